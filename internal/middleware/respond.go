package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
)

// ErrorBody is the JSON envelope for every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-checkable code and a human message.
type ErrorDetail struct {
	Code    apperr.Kind `json:"code"`
	Message string      `json:"message"`
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as an ErrorBody. Internal errors are logged with the
// request ID and answered with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal && logger != nil {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}

	render.Status(r, StatusFor(kind))
	render.JSON(w, r, ErrorBody{Error: ErrorDetail{Code: kind, Message: apperr.MessageOf(err)}})
}
