package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"atlasforge.io/internal/store"
)

func TestFieldMappingToRemote(t *testing.T) {
	row := store.Row{
		"title":              "Process Engineer",
		"hiringManagerEmail": "ops@atlasforge.io",
		"careerLevel":        "Senior",
	}
	out := jobFields.ToRemote(row)

	assert.Equal(t, "ops@atlasforge.io", out["hiring_manager_email"])
	assert.Equal(t, "Senior", out["career_level"])
	assert.Equal(t, "Process Engineer", out["title"])
	// The application-side key must not leak alongside the remote column.
	assert.NotContains(t, out, "hiringManagerEmail")
	assert.NotContains(t, out, "careerLevel")
}

func TestFieldMappingRoundTrip(t *testing.T) {
	row := store.Row{
		"id":                 "job_1",
		"careerLevel":        "Mid",
		"hiringManagerEmail": "hr@atlasforge.io",
		"createdBy":          "avery",
		"createdAt":          "2026-03-01T09:00:00Z",
	}
	assert.Equal(t, row, jobFields.FromRemote(jobFields.ToRemote(row)))
}

func TestFieldMappingPassesUnknownKeysThrough(t *testing.T) {
	row := store.Row{"something_else": 7}
	assert.Equal(t, row, jobFields.ToRemote(row))
	assert.Equal(t, row, jobFields.FromRemote(row))
}

func TestTimestampHelper(t *testing.T) {
	want := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, timestamp(store.Row{"at": want}, "at"))
	assert.Equal(t, want, timestamp(store.Row{"at": "2026-03-01T09:00:00Z"}, "at"))
	assert.True(t, timestamp(store.Row{"at": "not-a-time"}, "at").IsZero())
	assert.True(t, timestamp(store.Row{}, "at").IsZero())
}
