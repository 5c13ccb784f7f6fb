package errors

import "errors"

// Sentinel errors for handlers to map to HTTP status. Capacity and
// uniqueness violations on the timer registry are expected, recoverable
// conditions and must never surface as panics.
var (
	ErrTimerLimit          = errors.New("timer registry is at capacity")
	ErrDuplicateTimer      = errors.New("a timer for this project already exists")
	ErrTimerNotFound       = errors.New("timer not found")
	ErrTimerAlreadyRunning = errors.New("timer is already running")
	ErrTimerNotRunning     = errors.New("timer is not running")
	ErrTimerNotPaused      = errors.New("timer is not paused")
	ErrTimerNotStarted     = errors.New("timer has never been started")
	ErrSubmitInProgress    = errors.New("timer submit already in progress")
	ErrAccountNotFound     = errors.New("account not found or invalid API key")
	ErrProjectNotFound     = errors.New("project not found")
	ErrRecurringNotFound   = errors.New("recurring cashflow not found")
)
