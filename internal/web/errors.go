package web

// errors.go maps import faults to HTTP responses.
//
// The caller is a notification source, not a person, so the status code is
// what matters: 5xx makes MinIO redeliver, 4xx drops the notification. The
// body carries the operator message from core.MapError for whoever reads
// the webhook logs.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/event-recorder/internal/core"
	"github.com/JonMunkholm/event-recorder/internal/logging"
)

// ErrorResponse represents the JSON structure for error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its operator message.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	writeJSON(w, status, ErrorResponse{
		Error:   err.Error(),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor chooses whether the notification source should retry.
func statusFor(err error) int {
	var metaErr *core.MetadataError
	switch {
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.As(err, &metaErr):
		// Redelivery cannot add the missing tags.
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
