package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrInvariantViolation marks malformed upstream segmentation, e.g. an
	// aspect phrase with zero words.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrScoringFailure wraps any scorer error; a summary build that hits it
	// is aborted as a whole.
	ErrScoringFailure = errors.New("scoring failure")

	ErrEmptyUpload     = errors.New("no reviews in upload")
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrVersionRequired is returned for exports that carry several app
	// versions when no version was selected.
	ErrVersionRequired = errors.New("version required")
)
