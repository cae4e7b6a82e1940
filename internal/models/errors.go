package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned to API clients.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeOutOfOrder           = "OUT_OF_ORDER"
	CodeStaleState           = "STALE_STATE"
	CodeEscalationNotAllowed = "ESCALATION_NOT_ALLOWED"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewOutOfOrderError reports a milestone sequencing violation: a command tried
// to act on a milestone whose predecessor in the roadmap is not yet done.
func NewOutOfOrderError(message string) *AppError {
	return &AppError{
		Code:    CodeOutOfOrder,
		Message: message,
	}
}

// NewStaleStateError reports that the targeted milestone or payment request is
// no longer in the state the command expected, including lost races between a
// client decision and the auto-approval sweep. Callers must refetch.
func NewStaleStateError(message string) *AppError {
	return &AppError{
		Code:    CodeStaleState,
		Message: message,
	}
}

// NewEscalationNotAllowedError reports a dispute opened before the
// rejection-count threshold was reached.
func NewEscalationNotAllowedError(message string) *AppError {
	return &AppError{
		Code:    CodeEscalationNotAllowed,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// StatusForCode maps an application error code to an HTTP status.
func StatusForCode(code string) int {
	switch code {
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeUnauthorized:
		return fiber.StatusForbidden
	case CodeOutOfOrder, CodeStaleState, CodeEscalationNotAllowed:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
