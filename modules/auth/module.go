package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the auth module.
type Config struct {
	DBPath string
	JWT    JWTConfig
}

// AuthModule provides signup, login and token validation services.
type AuthModule struct {
	config  Config
	db      *gorm.DB
	service *AuthService
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*AuthModule)(nil)
	_ mono.ServiceProviderModule = (*AuthModule)(nil)
	_ mono.HealthCheckableModule = (*AuthModule)(nil)
)

// NewModule creates a new AuthModule.
func NewModule(config Config, logger types.Logger) *AuthModule {
	if config.DBPath == "" {
		config.DBPath = "auth.db"
	}
	return &AuthModule{
		config: config,
		logger: logger,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start opens the user database and builds the service.
func (m *AuthModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.config.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	repo := NewUserRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewAuthService(repo, NewPasswordHasher(), NewJWTManager(m.config.JWT))

	m.logger.Info("Auth module started",
		"database", m.config.DBPath,
		"issuer", m.config.JWT.Issuer,
		"token_ttl", m.config.JWT.TokenDuration.String())
	return nil
}

// Stop closes the database.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	m.logger.Info("Auth module stopped")
	return nil
}

// Health reports whether the user database answers a ping.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.config.DBPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "signup", json.Unmarshal, json.Marshal, m.handleSignup,
	); err != nil {
		return fmt.Errorf("failed to register signup service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	m.logger.Info("Registered auth services",
		"services", []string{"signup", "login", "validate-token", "get-user"})
	return nil
}

func (m *AuthModule) handleSignup(ctx context.Context, req SignupRequest, _ *mono.Msg) (SessionResponse, error) {
	session, err := m.service.Signup(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		if se := toServiceError(err); se != nil {
			return SessionResponse{Error: se}, nil
		}
		m.logger.Error("Signup failed", "error", err)
		return SessionResponse{}, err
	}

	m.logger.Info("User signed up", "user_id", session.User.ID)
	return SessionResponse{Token: session.Token, User: session.User}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (SessionResponse, error) {
	session, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		if se := toServiceError(err); se != nil {
			return SessionResponse{Error: se}, nil
		}
		m.logger.Error("Login failed", "error", err)
		return SessionResponse{}, err
	}

	return SessionResponse{Token: session.Token, User: session.User}, nil
}

// handleValidateToken reports validation failures in the reply, not as an error.
func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		se := toServiceError(err)
		if se == nil {
			se = &ServiceError{Code: CodeInvalidToken, Message: ErrInvalidToken.Error()}
		}
		return ValidateTokenResponse{Valid: false, Error: se}, nil
	}

	return ValidateTokenResponse{
		Valid:  true,
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		if se := toServiceError(err); se != nil {
			return GetUserResponse{Error: se}, nil
		}
		return GetUserResponse{}, err
	}

	return GetUserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}, nil
}
