package api

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domain "github.com/example/student-task-manager/domain/task"
	user "github.com/example/student-task-manager/domain/user"
	"github.com/example/student-task-manager/modules/auth"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

// mockAuthPort implements auth.AuthPort for testing.
type mockAuthPort struct {
	signupFunc        func(ctx context.Context, name, email, password string) (*user.Session, error)
	loginFunc         func(ctx context.Context, email, password string) (*user.Session, error)
	validateTokenFunc func(ctx context.Context, token string) (*user.Claims, error)
	getUserFunc       func(ctx context.Context, userID string) (*user.User, error)
}

func (m *mockAuthPort) Signup(ctx context.Context, name, email, password string) (*user.Session, error) {
	if m.signupFunc != nil {
		return m.signupFunc(ctx, name, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) Login(ctx context.Context, email, password string) (*user.Session, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) ValidateToken(ctx context.Context, token string) (*user.Claims, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthPort) GetUser(ctx context.Context, userID string) (*user.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

// mockTaskPort implements task.TaskPort for testing.
type mockTaskPort struct {
	listFunc   func(ctx context.Context, userID string) ([]domain.Task, error)
	getFunc    func(ctx context.Context, taskID, callerID string) (*domain.Task, error)
	createFunc func(ctx context.Context, userID string, in domain.NewTask) (*domain.Task, error)
	updateFunc func(ctx context.Context, taskID, callerID string, body []byte) (*domain.Task, error)
	deleteFunc func(ctx context.Context, taskID, callerID string) (string, error)
}

func (m *mockTaskPort) List(ctx context.Context, userID string) ([]domain.Task, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) Get(ctx context.Context, taskID, callerID string) (*domain.Task, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, taskID, callerID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) Create(ctx context.Context, userID string, in domain.NewTask) (*domain.Task, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) Update(ctx context.Context, taskID, callerID string, body []byte) (*domain.Task, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, taskID, callerID, body)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) Delete(ctx context.Context, taskID, callerID string) (string, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, taskID, callerID)
	}
	return "", errors.New("not implemented")
}

// tokenAuth accepts "Bearer <user id>" for any non-empty user id.
func tokenAuth() *mockAuthPort {
	return &mockAuthPort{
		validateTokenFunc: func(_ context.Context, token string) (*user.Claims, error) {
			if token == "bad" {
				return nil, auth.ErrInvalidToken
			}
			return &user.Claims{UserID: token, Email: token + "@example.com"}, nil
		},
	}
}

func testApp(authPort auth.AuthPort, tasks *mockTaskPort) *fiber.App {
	cfg := DefaultConfig()
	return newApp(cfg, authPort, tasks, nil, &mockLogger{})
}

func do(t *testing.T, app *fiber.App, method, path, token, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	return resp.StatusCode, string(b)
}

func sampleTask(id, owner string) *domain.Task {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Task{ID: id, UserID: owner, Title: "Buy milk", Priority: domain.PriorityMedium, CreatedAt: now, UpdatedAt: now}
}
