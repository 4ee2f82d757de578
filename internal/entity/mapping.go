package entity

import (
	"time"

	"atlasforge.io/internal/store"
)

// FieldMapping renames application-facing keys to their remote columns and
// back. It is applied exactly once per boundary crossing: ToRemote before a
// write goes out, FromRemote on every row that comes back. Keys not in the
// table pass through unchanged.
type FieldMapping map[string]string

// ToRemote returns a copy of row with every mapped application key renamed
// to its remote column. The application-side key is removed so the remote
// store never sees a column it does not recognize.
func (m FieldMapping) ToRemote(row store.Row) store.Row {
	out := make(store.Row, len(row))
	for k, v := range row {
		if remote, ok := m[k]; ok {
			out[remote] = v
			continue
		}
		out[k] = v
	}
	return out
}

// FromRemote reverses ToRemote, reconstructing the application-facing keys.
func (m FieldMapping) FromRemote(row store.Row) store.Row {
	inverse := make(map[string]string, len(m))
	for app, remote := range m {
		inverse[remote] = app
	}
	out := make(store.Row, len(row))
	for k, v := range row {
		if app, ok := inverse[k]; ok {
			out[app] = v
			continue
		}
		out[k] = v
	}
	return out
}

func str(row store.Row, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func timestamp(row store.Row, key string) time.Time {
	switch v := row[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
