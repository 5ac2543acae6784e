package resolver

import "errors"

var (
	// ErrEmptyInput is returned when the input text is empty or normalizes
	// to nothing. Distinct from a no-match result, which is not an error.
	ErrEmptyInput = errors.New("resolver: empty input text")

	// ErrDataStore is returned when no gazetteer snapshot is available.
	ErrDataStore = errors.New("resolver: gazetteer index unavailable")
)
