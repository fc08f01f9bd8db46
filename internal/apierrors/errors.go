// Package apierrors provides structured API error handling.
package apierrors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// APIError represents a structured API error.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
	RequestID  string `json:"request_id,omitempty"`

	header map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

// Write sends e as a JSON body tagged with the request id.
func (e *APIError) Write(w http.ResponseWriter, r *http.Request) {
	e.RequestID = middleware.GetReqID(r.Context())

	h := w.Header()
	for k, v := range e.header {
		h.Set(k, v)
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

func newError(status int, code, message string) *APIError {
	return &APIError{Code: code, Message: message, StatusCode: status}
}

// NewBadRequestError is a 400 for malformed input.
func NewBadRequestError(message string) *APIError {
	return newError(http.StatusBadRequest, "BAD_REQUEST", message)
}

// NewUnauthorizedError returns a 401 that challenges for a bearer token.
func NewUnauthorizedError(message string) *APIError {
	e := newError(http.StatusUnauthorized, "UNAUTHORIZED", message)
	e.header = map[string]string{"WWW-Authenticate": "Bearer"}
	return e
}

func NewNotFoundError(resource, id string) *APIError {
	e := newError(http.StatusNotFound, "NOT_FOUND", resource+" not found")
	e.Details = map[string]string{"resource": resource, "id": id}
	return e
}

// NewValidationError is a 400 for input that parsed but was rejected,
// such as a taken username.
func NewValidationError(message string, details any) *APIError {
	e := newError(http.StatusBadRequest, "VALIDATION_ERROR", message)
	e.Details = details
	return e
}

// NewUpstreamError reports a failed call to the billing API or another
// external service, carrying its message.
func NewUpstreamError(err error) *APIError {
	return newError(http.StatusInternalServerError, "UPSTREAM_ERROR", err.Error())
}

func NewInternalError(message string) *APIError {
	return newError(http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// NewServiceUnavailableError is a 503 for an integration that is not set up.
func NewServiceUnavailableError(service string) *APIError {
	return newError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", service+" is not configured")
}

// ErrorHandler is middleware that turns panics into a 500 response.
func ErrorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				NewInternalError("Internal server error").Write(w, r)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
