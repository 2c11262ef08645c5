package repositories

import "errors"

// Repository errors
var (
	// ErrStore marks any failure of the backing store: lookups, upserts and bulk writes.
	ErrStore = errors.New("store error")
	// ErrNotFound is returned when a keyed lookup matches no row.
	ErrNotFound = errors.New("record not found")
)
