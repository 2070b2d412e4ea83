package engine

import "errors"

// Engine errors
var (
	ErrCreateRejected = errors.New("task: create rejected")
	ErrTaskNotFound   = errors.New("task: not found")
	ErrCancelConflict = errors.New("task: already in a terminal state")
	ErrNoHandler      = errors.New("task: no handler registered for operation")
)
