package types

import "errors"

// Domain errors for type validation
var (
	// Snippet errors
	ErrEmptyBody  = errors.New("body cannot be empty")
	ErrEmptyTitle = errors.New("title cannot be empty")

	// Tag and collection errors
	ErrEmptyName = errors.New("name cannot be empty")

	// Search request errors
	ErrInvalidLimit  = errors.New("limit out of range")
	ErrInvalidOffset = errors.New("offset must be >= 0")
	ErrInvalidSort   = errors.New("sort must be one of relevance, newest, pinned")
)
