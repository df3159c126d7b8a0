package domain

import "errors"

var (
	// ErrAlreadyRunning is returned when a start request arrives while a
	// run is in progress. The request is rejected, never queued.
	ErrAlreadyRunning = errors.New("repricing job already running")

	// ErrInvalidInput is returned when the pricing input fails validation;
	// no job state is touched in that case.
	ErrInvalidInput = errors.New("invalid pricing input")

	// ErrUnparseableVariant marks a variant whose title does not encode
	// karat and quality grade in the expected shape.
	ErrUnparseableVariant = errors.New("unparseable variant title")

	// ErrNonPositivePrice marks a variant whose derived price is zero or
	// negative and therefore must not be written back.
	ErrNonPositivePrice = errors.New("derived price is not positive")

	// ErrCatalogFetchFailed marks a failed page fetch. Unlike per-item
	// failures it aborts the whole run: continuing would silently leave
	// stale prices on the unseen tail of the catalog.
	ErrCatalogFetchFailed = errors.New("catalog fetch failed")
)
