package model

import "github.com/rotisserie/eris"

// Error taxonomy for the decision engine. InvalidGeometry, CrsMismatch,
// DegenerateColumn, InvalidCost, and Timeout are fatal for a run and are
// surfaced with the offending feature or candidate id. Inconsistent AHP
// weights and constraint violations are informational and travel on the
// result instead of aborting it.
var (
	// ErrInvalidGeometry marks empty, self-intersecting, or otherwise
	// unusable input geometry.
	ErrInvalidGeometry = eris.New("invalid geometry")

	// ErrCrsMismatch marks operations over features with incompatible
	// declared coordinate reference systems.
	ErrCrsMismatch = eris.New("crs mismatch")

	// ErrDegenerateColumn marks a decision-matrix column whose values are
	// all equal and therefore cannot be normalized.
	ErrDegenerateColumn = eris.New("degenerate criterion column")

	// ErrInvalidCost marks a negative edge cost on a corridor cost surface.
	ErrInvalidCost = eris.New("invalid edge cost")

	// ErrTimeout marks a run aborted by the caller-supplied deadline.
	// Partial results are discarded, never surfaced.
	ErrTimeout = eris.New("analysis timed out")
)
