package auth

import (
	"time"

	domain "github.com/example/student-task-manager/domain/user"
)

// ServiceError carries a classified failure inside a reply.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SignupRequest represents a user registration request.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is the reply to signup and login.
type SessionResponse struct {
	Token string         `json:"token,omitempty"`
	User  domain.Profile `json:"user"`
	Error *ServiceError  `json:"error,omitempty"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid  bool          `json:"valid"`
	UserID string        `json:"user_id,omitempty"`
	Email  string        `json:"email,omitempty"`
	Error  *ServiceError `json:"error,omitempty"`
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	CreatedAt time.Time     `json:"created_at"`
	Error     *ServiceError `json:"error,omitempty"`
}
