package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	domerrors "github.com/GwydionBr/life-manager-sub000/internal/domain/errors"
)

// writeErr sends JSON { "error": message, "code": errCode }. If errCode is empty, a default is used from code.
func writeErr(w http.ResponseWriter, code int, errCode string, message string) {
	if errCode == "" {
		errCode = defaultErrCode(code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": errCode})
}

func defaultErrCode(httpCode int) string {
	switch httpCode {
	case http.StatusBadRequest:
		return ErrCodeInvalidRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case http.StatusInternalServerError:
		return ErrCodeInternal
	case http.StatusNotImplemented:
		return ErrCodeNotImplemented
	default:
		return ErrCodeInternal
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainErr maps sentinel errors to HTTP statuses and stable codes.
// Unmatched errors become opaque 500s so internals never leak.
func writeDomainErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domerrors.ErrTimerLimit):
		writeErr(w, http.StatusConflict, ErrCodeTimerLimit, err.Error())
	case errors.Is(err, domerrors.ErrDuplicateTimer):
		writeErr(w, http.StatusConflict, ErrCodeTimerDuplicate, err.Error())
	case errors.Is(err, domerrors.ErrTimerNotFound),
		errors.Is(err, domerrors.ErrProjectNotFound),
		errors.Is(err, domerrors.ErrRecurringNotFound),
		errors.Is(err, domerrors.ErrAccountNotFound):
		writeErr(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, domerrors.ErrTimerAlreadyRunning),
		errors.Is(err, domerrors.ErrTimerNotRunning),
		errors.Is(err, domerrors.ErrTimerNotPaused),
		errors.Is(err, domerrors.ErrTimerNotStarted):
		writeErr(w, http.StatusConflict, ErrCodeTimerState, err.Error())
	case errors.Is(err, domerrors.ErrSubmitInProgress):
		writeErr(w, http.StatusConflict, ErrCodeSubmitInProgress, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
