package handlers

// API error codes returned in JSON { "error": "...", "code": "..." } for stable client handling.
const (
	ErrCodeTimerLimit       = "timer_limit"
	ErrCodeTimerDuplicate   = "timer_duplicate"
	ErrCodeTimerState       = "timer_state"
	ErrCodeSubmitInProgress = "submit_in_progress"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeForbidden        = "forbidden"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeNotImplemented   = "not_implemented"
	ErrCodeInternal         = "internal_error"
)
