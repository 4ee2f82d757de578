package httpapi

import (
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atlasforge.io/internal/entity"
)

func TestJobLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", "rootpw")

	rec := env.do(t, http.MethodPost, "/admin/api/jobs", token, map[string]any{
		"title": "Process Engineer", "company": "Atlas Forge",
		"location": "Dayton, OH", "type": "Full-time",
		"hiringManagerEmail": "hm@atlasforge.io",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create job: status %d, body %s", rec.Code, rec.Body.String())
	}
	var created entity.JobPosting
	decodeBody(t, rec, &created)
	if created.CreatedBy != "root" {
		t.Fatalf("createdBy = %q, want the session username", created.CreatedBy)
	}
	if created.HiringManagerEmail != "hm@atlasforge.io" {
		t.Fatalf("camelCase field lost: %+v", created)
	}

	rec = env.do(t, http.MethodPatch, "/admin/api/jobs/"+created.ID, token,
		map[string]any{"status": entity.JobStatusInactive})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch job: status %d, body %s", rec.Code, rec.Body.String())
	}
	var patched entity.JobPosting
	decodeBody(t, rec, &patched)
	if patched.Status != entity.JobStatusInactive {
		t.Fatalf("status = %q", patched.Status)
	}

	// Inactive postings stay in the admin listing but vanish publicly.
	rec = env.do(t, http.MethodGet, "/admin/api/jobs", token, nil)
	var adminJobs []entity.JobPosting
	decodeBody(t, rec, &adminJobs)
	if len(adminJobs) != 1 {
		t.Fatalf("admin listing: %d jobs", len(adminJobs))
	}
	rec = env.do(t, http.MethodGet, "/api/jobs", "", nil)
	var publicJobs []entity.JobPosting
	decodeBody(t, rec, &publicJobs)
	if len(publicJobs) != 0 {
		t.Fatalf("public listing leaked inactive posting")
	}

	// Inactive and nonexistent postings answer identically.
	recInactive := env.do(t, http.MethodGet, "/api/jobs/"+created.ID, "", nil)
	recMissing := env.do(t, http.MethodGet, "/api/jobs/no-such-id", "", nil)
	if recInactive.Code != http.StatusNotFound || recMissing.Code != http.StatusNotFound {
		t.Fatalf("detail statuses: %d and %d, want 404 for both", recInactive.Code, recMissing.Code)
	}
	if recInactive.Body.String() != recMissing.Body.String() {
		t.Fatalf("inactive and missing postings are distinguishable")
	}

	rec = env.do(t, http.MethodDelete, "/admin/api/jobs/"+created.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete job: status %d", rec.Code)
	}
	if env.store.Count("jobs") != 0 {
		t.Fatalf("job row survived delete")
	}
}

func TestJobCreateValidationOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", "rootpw")

	rec := env.do(t, http.MethodPost, "/admin/api/jobs", token, map[string]any{"title": "No company"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid draft: status %d", rec.Code)
	}
	rec = env.do(t, http.MethodPatch, "/admin/api/jobs/missing", token, map[string]any{"title": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("patch unknown id: status %d", rec.Code)
	}
}

func TestEventsSortedLatestFirstPublicly(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", "rootpw")

	for _, date := range []string{"2026-02-01", "2026-06-01", "2026-04-01"} {
		rec := env.do(t, http.MethodPost, "/admin/api/events", token, map[string]any{
			"title": "Event " + date, "date": date, "location": "Dayton plant",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create event: status %d, body %s", rec.Code, rec.Body.String())
		}
	}

	// Admin listing keeps insertion order.
	rec := env.do(t, http.MethodGet, "/admin/api/events", token, nil)
	var adminEvents []entity.EventRecord
	decodeBody(t, rec, &adminEvents)
	if adminEvents[0].Date != "2026-02-01" {
		t.Fatalf("admin order changed: %v", adminEvents)
	}

	// Public listing is latest-first.
	rec = env.do(t, http.MethodGet, "/api/events", "", nil)
	var publicEvents []entity.EventRecord
	decodeBody(t, rec, &publicEvents)
	if len(publicEvents) != 3 || publicEvents[0].Date != "2026-06-01" || publicEvents[2].Date != "2026-02-01" {
		t.Fatalf("public order wrong: %v", publicEvents)
	}
}

func TestContentEditsVisiblePublicly(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", "rootpw")

	rec := env.do(t, http.MethodPatch, "/admin/api/content", token, map[string]any{
		"hero": map[string]any{"title": "New Headline"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch content: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/content", "", nil)
	var tree map[string]any
	decodeBody(t, rec, &tree)
	hero, _ := tree["hero"].(map[string]any)
	if hero["title"] != "New Headline" {
		t.Fatalf("edit missing from public content: %v", hero)
	}
	if hero["subtitle"] == nil || hero["subtitle"] == "" {
		t.Fatalf("sibling default lost: %v", hero)
	}
}

func multipartSubmission(t *testing.T, fields map[string]string, resumeName string, resume []byte) (*strings.Reader, string) {
	t.Helper()
	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if resumeName != "" {
		fw, err := mw.CreateFormFile("resume", resumeName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(resume); err != nil {
			t.Fatalf("write resume: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return strings.NewReader(buf.String()), mw.FormDataContentType()
}

func TestApplicationSubmitOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartSubmission(t, map[string]string{
		"jobTitle": "Process Engineer",
		"name":     "Jordan Ives",
		"email":    "jordan@example.com",
		"phone":    "555-0134",
	}, "jordan-ives.pdf", []byte("%PDF-1.4 resume"))

	req := httptest.NewRequest(http.MethodPost, "/api/applications", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.api.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, rec, &resp)
	if resp.ID == "" || resp.Status != "applied" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if env.store.Count("applications") != 1 {
		t.Fatalf("application row missing")
	}

	// The flow reports success, then settles back to idle.
	stateRec := env.do(t, http.MethodGet, "/api/applications/state", "", nil)
	var state struct {
		State string `json:"state"`
	}
	decodeBody(t, stateRec, &state)
	if state.State != "success" {
		t.Fatalf("state = %q right after submit", state.State)
	}
	deadline := time.Now().Add(time.Second)
	for state.State != "idle" {
		if time.Now().After(deadline) {
			t.Fatalf("state stuck at %q", state.State)
		}
		time.Sleep(5 * time.Millisecond)
		stateRec = env.do(t, http.MethodGet, "/api/applications/state", "", nil)
		decodeBody(t, stateRec, &state)
	}
}

func TestApplicationSubmitValidationOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartSubmission(t, map[string]string{
		"jobTitle": "Process Engineer",
		// name and email missing
	}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/applications", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.api.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid submission: status %d", rec.Code)
	}
	if env.store.Count("applications") != 0 {
		t.Fatalf("invalid submission wrote a row")
	}
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "root", "rootpw")

	rec := env.do(t, http.MethodGet, "/api/nothing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown public route: status %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/admin/api/widgets/1", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown admin resource: status %d", rec.Code)
	}
}
