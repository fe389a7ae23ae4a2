package task

import (
	"errors"

	domain "github.com/example/student-task-manager/domain/task"
)

// Error codes carried in ServiceError.
const (
	CodeValidation    = "validation"
	CodeNotFound      = "not_found"
	CodeNotAuthorized = "not_authorized"
)

// toServiceError classifies err for the reply. Store failures return nil and
// travel as transport errors, which the API reports as a generic 500.
func toServiceError(err error) *ServiceError {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return &ServiceError{Code: CodeValidation, Field: ve.Field, Message: ve.Message}
	case errors.Is(err, domain.ErrNotFound):
		return &ServiceError{Code: CodeNotFound, Message: domain.ErrNotFound.Error()}
	case errors.Is(err, domain.ErrNotAuthorized):
		return &ServiceError{Code: CodeNotAuthorized, Message: domain.ErrNotAuthorized.Error()}
	}
	return nil
}

// Err turns a ServiceError back into the domain error.
func (e *ServiceError) Err() error {
	if e == nil {
		return nil
	}
	switch e.Code {
	case CodeValidation:
		return domain.NewValidationError(e.Field, e.Message)
	case CodeNotFound:
		return domain.ErrNotFound
	case CodeNotAuthorized:
		return domain.ErrNotAuthorized
	}
	return errors.New(e.Message)
}
