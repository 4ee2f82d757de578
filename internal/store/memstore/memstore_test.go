package memstore

import (
	"context"
	"errors"
	"testing"

	"atlasforge.io/internal/store"
)

func TestInsertSelectIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	row := store.Row{"id": "1", "title": "x"}
	if _, err := s.Insert(ctx, "jobs", row); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// Mutating the caller's row must not reach the stored copy.
	row["title"] = "mutated"

	rows, err := s.Select(ctx, "jobs", nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 || rows[0]["title"] != "x" {
		t.Fatalf("stored row aliased caller memory: %v", rows)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Insert(ctx, "jobs", store.Row{"id": "1"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := s.Insert(ctx, "jobs", store.Row{"id": "1"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate insert: got %v, want ErrConflict", err)
	}
}

func TestUpdateReturnsTouchedRows(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"1", "2"} {
		if _, err := s.Insert(ctx, "jobs", store.Row{"id": id, "status": "Active"}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	rows, err := s.Update(ctx, "jobs", store.Row{"status": "Inactive"}, store.Filter{"id": "1"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(rows) != 1 || rows[0]["status"] != "Inactive" {
		t.Fatalf("unexpected update result: %v", rows)
	}

	// A filter matching nothing is an empty result, not an error.
	rows, err = s.Update(ctx, "jobs", store.Row{"status": "x"}, store.Filter{"id": "missing"})
	if err != nil || len(rows) != 0 {
		t.Fatalf("no-match update: rows=%v err=%v", rows, err)
	}
}

func TestDeleteByFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"1", "2"} {
		if _, err := s.Insert(ctx, "jobs", store.Row{"id": id}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := s.Delete(ctx, "jobs", store.Filter{"id": "1"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := s.Count("jobs"); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
}

func TestBlobs(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Upload(ctx, "resumes", "resumes/a.pdf", []byte("aaa")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := s.Upload(ctx, "resumes", "resumes/b.pdf", []byte("bbb")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	data, err := s.Download(ctx, "resumes", "resumes/a.pdf")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "aaa" {
		t.Fatalf("unexpected blob: %q", data)
	}

	if _, err := s.Download(ctx, "resumes", "resumes/missing.pdf"); !errors.Is(err, store.ErrNoRows) {
		t.Fatalf("missing blob: got %v, want ErrNoRows", err)
	}

	paths, err := s.List(ctx, "resumes", "resumes/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 || paths[0] != "resumes/a.pdf" {
		t.Fatalf("unexpected listing: %v", paths)
	}
}
