package http

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"

	"github.com/quantonganh/newsletter"
)

type appHandler func(w http.ResponseWriter, r *http.Request) error

// Error parse HTTP error and write to header and body
func (s *Server) Error(fn appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var clientError ClientError
		if !errors.As(err, &clientError) {
			clientError = fromDomainError(err)
		}

		status, headers := clientError.Headers()
		logger := hlog.FromRequest(r)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Msg("request failed")
			sentry.CaptureException(err)
		} else {
			logger.Info().Err(err).Int("status", status).Msg("request rejected")
		}

		body, err := clientError.Body()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		for k, v := range headers {
			w.Header().Set(k, v)
		}

		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}

// fromDomainError maps a service error to a response that carries no internal detail
func fromDomainError(err error) *Error {
	switch newsletter.ErrorCode(err) {
	case newsletter.ErrInvalid:
		return &Error{Cause: err, Status: http.StatusBadRequest, Message: newsletter.ErrorMessage(err)}
	case newsletter.ErrUnauthorized:
		return &Error{Cause: err, Status: http.StatusUnauthorized, Message: unauthorizedMessage}
	case newsletter.ErrNotFound:
		return &Error{Cause: err, Status: http.StatusNotFound, Message: "Not found."}
	case newsletter.ErrFeedLoadFailed:
		return &Error{Cause: err, Status: http.StatusBadGateway, Message: feedLoadFailedMessage}
	default:
		return &Error{Cause: err, Status: http.StatusInternalServerError, Message: newsletter.ErrInternal}
	}
}

// ClientError is the interface that wraps methods related to error on the client side
type ClientError interface {
	Error() string
	Body() ([]byte, error)
	Headers() (int, map[string]string)
}

// Error represents a detail error message
type Error struct {
	Cause   error  `json:"-"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// Body returns response body from error
func (e *Error) Body() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Errorf("Error while parsing response body: %v", err)
	}
	return body, nil
}

// Headers returns status and header
func (e *Error) Headers() (int, map[string]string) {
	return e.Status, map[string]string{
		"Content-Type": "application/json; charset=utf-8",
	}
}

// NewError returns new error message
func NewError(err error, status int, message string) error {
	return &Error{
		Cause:   err,
		Message: message,
		Status:  status,
	}
}
