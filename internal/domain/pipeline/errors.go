package pipeline

import "errors"

// MaxNotesLength caps the free-text notes accepted on a transition.
// Longer input fails validation at the boundary; it is never truncated.
const MaxNotesLength = 500

var (
	// ErrInvalidStep is returned when a requested step is not part of the pipeline
	ErrInvalidStep = errors.New("invalid pipeline step")

	// ErrBackwardTransition is returned when a transition targets a step
	// earlier in canonical order than the current one
	ErrBackwardTransition = errors.New("backward transition not allowed")

	// ErrNotesTooLong is returned when transition notes exceed MaxNotesLength
	ErrNotesTooLong = errors.New("transition notes too long")

	// ErrInvalidCategory is returned when an upload declares a document
	// category outside the application's valid set
	ErrInvalidCategory = errors.New("invalid document category")

	// ErrConcurrentModification is returned when an optimistic version check
	// fails during a transition; callers may retry with fresh state
	ErrConcurrentModification = errors.New("concurrent status modification")
)
