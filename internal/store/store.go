// Package store defines the generic persistent record store the back-office
// talks to: tabular CRUD plus blob storage. Implementations must translate
// their own failure modes into RemoteError so callers can distinguish a
// remote fault from local validation.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Row is a single record keyed by column name.
type Row map[string]any

// Filter selects rows by exact column match. All entries must match.
type Filter map[string]any

// ErrNoRows reports that a filtered operation matched nothing.
var ErrNoRows = errors.New("store: no rows")

// ErrConflict reports a uniqueness violation on insert or update.
var ErrConflict = errors.New("store: conflict")

// RemoteError wraps the underlying store failure with the operation that
// produced it. It always carries the store's own error detail.
type RemoteError struct {
	Op    string
	Table string
	Err   error
}

func (e *RemoteError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Remote wraps err into a RemoteError unless it already is one or is a
// sentinel the caller needs to match directly.
func Remote(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoRows) || errors.Is(err, ErrConflict) {
		return err
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Table: table, Err: err}
}

// RecordStore is the tabular half of the contract.
type RecordStore interface {
	// Select returns all rows matching filter. A nil filter returns the
	// whole table. Row order is unspecified; callers sort.
	Select(ctx context.Context, table string, filter Filter) ([]Row, error)
	// Insert stores row and returns it as persisted (defaults filled in).
	Insert(ctx context.Context, table string, row Row) (Row, error)
	// Update applies patch to every row matching filter and returns the
	// updated rows. Matching nothing is not an error; it returns an empty
	// slice.
	Update(ctx context.Context, table string, patch Row, filter Filter) ([]Row, error)
	// Delete removes all rows matching filter.
	Delete(ctx context.Context, table string, filter Filter) error
}

// BlobStore stores opaque binary objects by bucket and path.
type BlobStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte) error
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Store is the full collaborator contract.
type Store interface {
	RecordStore
	BlobStore
}
