package errors

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jw6ventures/fitverse/internal/api"
)

func InternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	slog.Error(message, "request_id", middleware.GetReqID(r.Context()), "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func BadRequestError(w http.ResponseWriter, r *http.Request, err error, clientMessage string) {
	slog.Warn("bad request", "request_id", middleware.GetReqID(r.Context()), "error", err)
	http.Error(w, clientMessage, http.StatusBadRequest)
}

// UpstreamError answers a request whose backend call failed with the status
// that best describes the failure class.
func UpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	status := UpstreamStatus(err)
	slog.Warn("upstream error", "request_id", middleware.GetReqID(r.Context()), "status", status, "error", err)
	http.Error(w, http.StatusText(status), status)
}

// UpstreamStatus maps a backend error class to the status this server
// answers with.
func UpstreamStatus(err error) int {
	switch {
	case stderrors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, api.ErrUnauthorized):
		return http.StatusForbidden
	case stderrors.Is(err, api.ErrValidationFailed), stderrors.Is(err, api.ErrConflict):
		return http.StatusBadRequest
	case stderrors.Is(err, api.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func LogError(r *http.Request, message string, err error) {
	slog.Error(message, "request_id", middleware.GetReqID(r.Context()), "error", err)
}

func LogInfo(r *http.Request, message string, args ...any) {
	slog.Info(message, append([]any{"request_id", middleware.GetReqID(r.Context())}, args...)...)
}
