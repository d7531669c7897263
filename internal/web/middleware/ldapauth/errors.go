package ldapauth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// Stable failure codes sent to clients.
const (
	CodeUsernameMissing    = "usernameMissing"
	CodePasswordMissing    = "passwordMissing"
	CodeInvalidCredentials = "invalidCredentials"
	CodeMalformedRequest   = "malformedRequest"
	CodeSessionUnavailable = "sessionUnavailable"
	CodeUnauthenticated    = "unauthenticated"
	CodeInternalError      = "internalError"
)

// Failure is an authentication failure with a HTTP status and a machine readable code.
type Failure struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (f *Failure) Error() string {
	return f.Message
}

var (
	// ErrUsernameMissing is returned for requests without username.
	ErrUsernameMissing = &Failure{Status: http.StatusUnauthorized, Message: "Username missing", Code: CodeUsernameMissing}
	// ErrPasswordMissing is returned for requests without password.
	ErrPasswordMissing = &Failure{Status: http.StatusUnauthorized, Message: "Password missing", Code: CodePasswordMissing}
	// ErrInvalidCredentials is returned when the directory rejects the credentials.
	ErrInvalidCredentials = &Failure{Status: http.StatusUnauthorized, Message: "Could not authenticate", Code: CodeInvalidCredentials}
	// ErrMalformedRequest is returned for request bodies that can not be decoded.
	ErrMalformedRequest = &Failure{Status: http.StatusBadRequest, Message: "Malformed request body", Code: CodeMalformedRequest}
	// ErrSessionUnavailable is returned by the session variant when no session manager is configured.
	ErrSessionUnavailable = &Failure{
		Status:  http.StatusNotImplemented,
		Message: "The session login requires a session storage",
		Code:    CodeSessionUnavailable,
	}
	// ErrUnauthenticated is returned for API requests without valid session.
	ErrUnauthenticated = &Failure{Status: http.StatusUnauthorized, Message: "Not authenticated", Code: CodeUnauthenticated}
)

// ErrorHandler renders errors as JSON {"status", "message", "code"}.
// Failures keep their status and code, fiber errors their status, anything else is a 500
// whose details are logged but not sent.
func ErrorHandler(c fiber.Ctx, err error) error {
	var (
		failure  *Failure
		fiberErr *fiber.Error
	)

	switch {
	case errors.As(err, &failure):
	case errors.As(err, &fiberErr):
		failure = &Failure{Status: fiberErr.Code, Message: fiberErr.Message, Code: codeFromStatus(fiberErr.Code)}
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")

		failure = &Failure{
			Status:  http.StatusInternalServerError,
			Message: http.StatusText(http.StatusInternalServerError),
			Code:    CodeInternalError,
		}
	}

	return c.Status(failure.Status).JSON(failure)
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "notFound"
	case http.StatusMethodNotAllowed:
		return "methodNotAllowed"
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	}

	if status >= http.StatusInternalServerError {
		return CodeInternalError
	}

	return "badRequest"
}
