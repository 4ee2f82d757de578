package httpapi

import (
	"errors"
	"io"
	"net/http"

	"atlasforge.io/internal/apply"
	"atlasforge.io/internal/obs"
)

const maxResumeBytes = 5 << 20

// handleApplicationSubmit accepts the public application form as multipart
// form data: jobTitle, name, email, phone, and an optional resume file.
func (a *API) handleApplicationSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	sub := apply.Submission{
		JobTitle: r.FormValue("jobTitle"),
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Phone:    r.FormValue("phone"),
	}
	if file, header, err := r.FormFile("resume"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxResumeBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid resume upload")
			return
		}
		sub.Resume = data
		sub.ResumeName = header.Filename
	}

	app, err := a.pipeline.Submit(r.Context(), sub)
	if err != nil {
		if errors.Is(err, apply.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Internal detail stays out of the public response.
		a.log.Error().Err(err).Msg("application submission failed")
		obs.CountSubmission("error")
		writeError(w, http.StatusBadGateway, "submission failed, please try again")
		return
	}
	obs.CountSubmission("success")
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     app.ID,
		"status": app.Status,
	})
}

func (a *API) handleApplicationState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": a.pipeline.State()})
}
