package auth

import (
	"errors"
)

// InputError reports a signup or login field that failed validation.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when a user already exists.
	ErrUserExists = errors.New("user with this email already exists")

	// ErrNameRequired is returned when the display name is blank.
	ErrNameRequired = &InputError{"name is required"}
	// ErrNameTooLong is returned when the display name exceeds MaxNameLength.
	ErrNameTooLong = &InputError{"name must be at most 100 characters"}
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = &InputError{"invalid email format"}
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = &InputError{"password must be at least 8 characters"}
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = &InputError{"password must be at most 72 characters"}
)

// Error codes carried in ServiceError.
const (
	CodeInvalidInput       = "invalid_input"
	CodeUserExists         = "user_exists"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeExpiredToken       = "expired_token"
	CodeUserNotFound       = "user_not_found"
)

// toServiceError classifies err for the reply. Unclassified errors return nil
// and travel as transport errors instead.
func toServiceError(err error) *ServiceError {
	var input *InputError
	switch {
	case errors.As(err, &input):
		return &ServiceError{Code: CodeInvalidInput, Message: input.Message}
	case errors.Is(err, ErrUserExists):
		return &ServiceError{Code: CodeUserExists, Message: ErrUserExists.Error()}
	case errors.Is(err, ErrInvalidCredentials):
		return &ServiceError{Code: CodeInvalidCredentials, Message: ErrInvalidCredentials.Error()}
	case errors.Is(err, ErrExpiredToken):
		return &ServiceError{Code: CodeExpiredToken, Message: ErrExpiredToken.Error()}
	case errors.Is(err, ErrInvalidToken):
		return &ServiceError{Code: CodeInvalidToken, Message: ErrInvalidToken.Error()}
	case errors.Is(err, ErrUserNotFound):
		return &ServiceError{Code: CodeUserNotFound, Message: ErrUserNotFound.Error()}
	}
	return nil
}

// Err turns a ServiceError back into the error the service returned.
func (e *ServiceError) Err() error {
	if e == nil {
		return nil
	}
	switch e.Code {
	case CodeInvalidInput:
		return &InputError{Message: e.Message}
	case CodeUserExists:
		return ErrUserExists
	case CodeInvalidCredentials:
		return ErrInvalidCredentials
	case CodeExpiredToken:
		return ErrExpiredToken
	case CodeInvalidToken:
		return ErrInvalidToken
	case CodeUserNotFound:
		return ErrUserNotFound
	}
	return errors.New(e.Message)
}
