package recommend

import "errors"

var (
	// ErrPreconditionUnmet means the user has no usable history yet
	ErrPreconditionUnmet = errors.New("user not eligible for recommendations yet")

	// ErrNoCandidates means nothing survived retrieval, exclusion and dedup
	ErrNoCandidates = errors.New("no candidates available")

	// ErrInvalidInput means the caller passed a malformed argument
	ErrInvalidInput = errors.New("invalid input")
)
