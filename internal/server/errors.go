package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spigell/intraview/internal/coach"
	"github.com/spigell/intraview/internal/interview"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type httpError struct {
	status  int
	code    string
	message string
}

func (e *httpError) Error() string { return e.message }

func errUnauthorized(message string) error {
	return &httpError{status: http.StatusUnauthorized, code: "unauthorized", message: message}
}

func errBadRequest(message string) error {
	return &httpError{status: http.StatusBadRequest, code: "invalid_argument", message: message}
}

// classify maps service errors onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	var httpErr *httpError
	var upstream *coach.UpstreamError
	var storeErr *coach.StoreError

	switch {
	case errors.As(err, &httpErr):
		return httpErr.status, httpErr.code
	case errors.Is(err, coach.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, interview.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, coach.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, coach.ErrEmptyTranscript):
		return http.StatusUnprocessableEntity, "empty_transcript"
	case errors.Is(err, coach.ErrTranscriptionDisabled):
		return http.StatusNotImplemented, "transcription_disabled"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.As(err, &storeErr):
		return http.StatusInternalServerError, "store_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: apiError{Message: err.Error(), Code: code}})
}
