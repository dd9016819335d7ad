package web

// errors.go maps pipeline errors to HTTP responses.
//
// Every error is logged with its technical detail and request ID, then
// returned to the client as a core.UserMessage so the code in the response
// can be matched against the logs.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/admissions/internal/core"
	"github.com/JonMunkholm/admissions/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for a pipeline error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnknownSource), errors.Is(err, core.ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoMajors):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	// Unmapped errors may carry SQL or driver detail; keep it in the logs.
	detail := err.Error()
	if !core.IsUserFacing(err) {
		detail = "internal error"
	}

	writeJSONStatus(w, status, ErrorResponse{
		Error:   detail,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}
