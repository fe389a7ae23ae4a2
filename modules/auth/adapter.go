package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/student-task-manager/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort is what other modules use to reach the auth module.
type AuthPort interface {
	Signup(ctx context.Context, name, email, password string) (*domain.Session, error)
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// Signup creates an account.
func (a *AuthAdapter) Signup(ctx context.Context, name, email, password string) (*domain.Session, error) {
	req := SignupRequest{Name: name, Email: email, Password: password}
	var resp SessionResponse
	if err := call(ctx, a.container, "signup", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return &domain.Session{Token: resp.Token, User: resp.User}, nil
}

// Login exchanges credentials for a session.
func (a *AuthAdapter) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	req := LoginRequest{Email: email, Password: password}
	var resp SessionResponse
	if err := call(ctx, a.container, "login", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return &domain.Session{Token: resp.Token, User: resp.User}, nil
}

// ValidateToken validates a bearer token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := call(ctx, a.container, "validate-token", &req, &resp); err != nil {
		return nil, err
	}

	if !resp.Valid {
		if resp.Error != nil {
			return nil, resp.Error.Err()
		}
		return nil, ErrInvalidToken
	}

	return &domain.Claims{
		UserID: resp.UserID,
		Email:  resp.Email,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse
	if err := call(ctx, a.container, "get-user", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}

	return &domain.User{
		ID:        resp.ID,
		Name:      resp.Name,
		Email:     resp.Email,
		CreatedAt: resp.CreatedAt,
	}, nil
}

// call wraps the request-reply helper and names the service in errors.
func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}
