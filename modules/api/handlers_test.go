package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	domain "github.com/example/student-task-manager/domain/task"
	user "github.com/example/student-task-manager/domain/user"
	"github.com/example/student-task-manager/modules/auth"
	"github.com/example/student-task-manager/modules/task"
)

func TestSignup(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		signupErr      error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "success",
			body:           `{"name":"Ada","email":"ada@example.com","password":"secret123"}`,
			expectedStatus: http.StatusCreated,
			expectedBody:   `"token":"tok-1"`,
		},
		{
			name:           "duplicate email",
			body:           `{"name":"Ada","email":"ada@example.com","password":"secret123"}`,
			signupErr:      auth.ErrUserExists,
			expectedStatus: http.StatusConflict,
			expectedBody:   `already exists`,
		},
		{
			name:           "weak password",
			body:           `{"name":"Ada","email":"ada@example.com","password":"short"}`,
			signupErr:      auth.ErrWeakPassword,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `at least 8 characters`,
		},
		{
			name:           "malformed body",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `Invalid request body`,
		},
		{
			name:           "store failure",
			body:           `{"name":"Ada","email":"ada@example.com","password":"secret123"}`,
			signupErr:      errors.New("signup request failed: database is locked"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `An internal error occurred`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authPort := &mockAuthPort{
				signupFunc: func(_ context.Context, name, email, _ string) (*user.Session, error) {
					if tt.signupErr != nil {
						return nil, tt.signupErr
					}
					return &user.Session{Token: "tok-1", User: user.Profile{ID: "u1", Name: name, Email: email}}, nil
				},
			}
			app := testApp(authPort, &mockTaskPort{})

			status, body := do(t, app, "POST", "/api/auth/signup", "", tt.body)
			if status != tt.expectedStatus {
				t.Errorf("status = %v, want %v (body %s)", status, tt.expectedStatus, body)
			}
			if !strings.Contains(body, tt.expectedBody) {
				t.Errorf("body = %v, want to contain %v", body, tt.expectedBody)
			}
			if strings.Contains(body, "database is locked") {
				t.Error("internal error detail leaked to the client")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	authPort := &mockAuthPort{
		loginFunc: func(_ context.Context, email, password string) (*user.Session, error) {
			if password != "secret123" {
				return nil, auth.ErrInvalidCredentials
			}
			return &user.Session{Token: "tok-2", User: user.Profile{ID: "u1", Email: email}}, nil
		},
	}
	app := testApp(authPort, &mockTaskPort{})

	status, body := do(t, app, "POST", "/api/auth/login", "", `{"email":"ada@example.com","password":"secret123"}`)
	if status != http.StatusOK || !strings.Contains(body, `"token":"tok-2"`) || !strings.Contains(body, `"user":{`) {
		t.Errorf("login = %d %s", status, body)
	}

	status, body = do(t, app, "POST", "/api/auth/login", "", `{"email":"ada@example.com","password":"wrong"}`)
	if status != http.StatusUnauthorized || !strings.Contains(body, "Invalid email or password") {
		t.Errorf("bad login = %d %s", status, body)
	}

	status, _ = do(t, app, "POST", "/api/auth/login", "", `{"email":""}`)
	if status != http.StatusBadRequest {
		t.Errorf("empty login status = %d, want 400", status)
	}
}

func TestAuthRateLimit(t *testing.T) {
	authPort := &mockAuthPort{
		loginFunc: func(context.Context, string, string) (*user.Session, error) {
			return nil, auth.ErrInvalidCredentials
		},
	}
	cfg := DefaultConfig()
	cfg.AuthRateLimit = 2
	app := newApp(cfg, authPort, &mockTaskPort{}, nil, &mockLogger{})

	for i := 0; i < 2; i++ {
		status, _ := do(t, app, "POST", "/api/auth/login", "", `{"email":"a@b.c","password":"x"}`)
		if status != http.StatusUnauthorized {
			t.Fatalf("request %d status = %d, want 401", i, status)
		}
	}
	status, body := do(t, app, "POST", "/api/auth/login", "", `{"email":"a@b.c","password":"x"}`)
	if status != http.StatusTooManyRequests || !strings.Contains(body, "rate_limited") {
		t.Errorf("third request = %d %s, want 429", status, body)
	}
}

func TestMe(t *testing.T) {
	authPort := tokenAuth()
	authPort.getUserFunc = func(_ context.Context, id string) (*user.User, error) {
		if id == "ghost" {
			return nil, auth.ErrUserNotFound
		}
		return &user.User{ID: id, Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}, nil
	}
	app := testApp(authPort, &mockTaskPort{})

	status, body := do(t, app, "GET", "/api/auth/me", "u1", "")
	if status != http.StatusOK || !strings.Contains(body, `"name":"Ada"`) {
		t.Errorf("me = %d %s", status, body)
	}
	if strings.Contains(body, "hash") || strings.Contains(body, "Password") {
		t.Errorf("me leaked the password hash: %s", body)
	}

	status, _ = do(t, app, "GET", "/api/auth/me", "ghost", "")
	if status != http.StatusNotFound {
		t.Errorf("me for missing user = %d, want 404", status)
	}

	status, _ = do(t, app, "GET", "/api/auth/me", "", "")
	if status != http.StatusUnauthorized {
		t.Errorf("me without token = %d, want 401", status)
	}
}

func TestTaskRoutesRequireToken(t *testing.T) {
	app := testApp(tokenAuth(), &mockTaskPort{})

	routes := []struct{ method, path string }{
		{"GET", "/api/tasks"},
		{"POST", "/api/tasks"},
		{"GET", "/api/tasks/t1"},
		{"PUT", "/api/tasks/t1"},
		{"DELETE", "/api/tasks/t1"},
	}
	for _, r := range routes {
		for _, token := range []string{"", "bad"} {
			status, _ := do(t, app, r.method, r.path, token, "")
			if status != http.StatusUnauthorized {
				t.Errorf("%s %s with token %q = %d, want 401", r.method, r.path, token, status)
			}
		}
	}
}

func TestListTasks(t *testing.T) {
	var gotUser string
	tasks := &mockTaskPort{
		listFunc: func(_ context.Context, userID string) ([]domain.Task, error) {
			gotUser = userID
			return []domain.Task{*sampleTask("t2", userID), *sampleTask("t1", userID)}, nil
		},
	}
	app := testApp(tokenAuth(), tasks)

	status, body := do(t, app, "GET", "/api/tasks", "alice", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	if gotUser != "alice" {
		t.Errorf("List called for %q, want alice", gotUser)
	}

	var got []domain.Task
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("response is not a task array: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t2" {
		t.Errorf("tasks = %+v", got)
	}
}

func TestListTasks_Empty(t *testing.T) {
	tasks := &mockTaskPort{
		listFunc: func(context.Context, string) ([]domain.Task, error) {
			return []domain.Task{}, nil
		},
	}
	app := testApp(tokenAuth(), tasks)

	status, body := do(t, app, "GET", "/api/tasks", "alice", "")
	if status != http.StatusOK || strings.TrimSpace(body) != "[]" {
		t.Errorf("empty list = %d %s, want []", status, body)
	}
}

func TestTaskErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, "Task not found"},
		{"not owner", domain.ErrNotAuthorized, http.StatusUnauthorized, "not_authorized"},
		{"validation", domain.NewValidationError("userId", "is server-controlled and cannot be set"), http.StatusBadRequest, `"field":"userId"`},
		{"store failure", fmt.Errorf("get-task request failed: %w", errors.New("disk full")), http.StatusInternalServerError, "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := &mockTaskPort{
				getFunc: func(context.Context, string, string) (*domain.Task, error) {
					return nil, tt.err
				},
				updateFunc: func(context.Context, string, string, []byte) (*domain.Task, error) {
					return nil, tt.err
				},
				deleteFunc: func(context.Context, string, string) (string, error) {
					return "", tt.err
				},
			}
			app := testApp(tokenAuth(), tasks)

			for _, req := range []struct{ method, body string }{
				{"GET", ""},
				{"PUT", `{"completed":true}`},
				{"DELETE", ""},
			} {
				status, body := do(t, app, req.method, "/api/tasks/t1", "bob", req.body)
				if status != tt.expectedStatus {
					t.Errorf("%s status = %d, want %d", req.method, status, tt.expectedStatus)
				}
				if !strings.Contains(body, tt.expectedBody) {
					t.Errorf("%s body = %s, want to contain %s", req.method, body, tt.expectedBody)
				}
				if strings.Contains(body, "disk full") {
					t.Errorf("%s leaked internal detail: %s", req.method, body)
				}
			}
		})
	}
}

func TestCreateTask(t *testing.T) {
	var got domain.NewTask
	tasks := &mockTaskPort{
		createFunc: func(_ context.Context, userID string, in domain.NewTask) (*domain.Task, error) {
			got = in
			created := sampleTask("t1", userID)
			created.Title = in.Title
			return created, nil
		},
	}
	app := testApp(tokenAuth(), tasks)

	status, body := do(t, app, "POST", "/api/tasks", "alice", `{"title":"Buy milk","dueDate":"2024-05-01"}`)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body %s", status, body)
	}
	if got.Title != "Buy milk" || got.DueDate == nil || got.DueDate.String() != "2024-05-01" {
		t.Errorf("Create received %+v", got)
	}
	if !strings.Contains(body, `"priority":"medium"`) || !strings.Contains(body, `"completed":false`) {
		t.Errorf("body = %s", body)
	}
}

func TestCreateTask_RejectsBadInput(t *testing.T) {
	called := false
	tasks := &mockTaskPort{
		createFunc: func(context.Context, string, domain.NewTask) (*domain.Task, error) {
			called = true
			return nil, errors.New("should not be called")
		},
	}
	app := testApp(tokenAuth(), tasks)

	for _, body := range []string{
		`{"title":"x","userId":"mallory"}`,
		`{"title":"x","completed":true}`,
		`{"title":5}`,
		`not json`,
	} {
		status, resp := do(t, app, "POST", "/api/tasks", "alice", body)
		if status != http.StatusBadRequest {
			t.Errorf("POST %s = %d %s, want 400", body, status, resp)
		}
	}
	if called {
		t.Error("Create was called for rejected input")
	}
}

func TestUpdateTask_ForwardsBody(t *testing.T) {
	var gotID, gotCaller, gotBody string
	tasks := &mockTaskPort{
		updateFunc: func(_ context.Context, taskID, callerID string, body []byte) (*domain.Task, error) {
			gotID, gotCaller, gotBody = taskID, callerID, string(body)
			updated := sampleTask(taskID, callerID)
			updated.Completed = true
			return updated, nil
		},
	}
	app := testApp(tokenAuth(), tasks)

	status, body := do(t, app, "PUT", "/api/tasks/t9", "alice", `{"completed":true}`)
	if status != http.StatusOK || !strings.Contains(body, `"completed":true`) {
		t.Fatalf("update = %d %s", status, body)
	}
	if gotID != "t9" || gotCaller != "alice" || gotBody != `{"completed":true}` {
		t.Errorf("Update(%q, %q, %s)", gotID, gotCaller, gotBody)
	}
}

func TestDeleteTask(t *testing.T) {
	tasks := &mockTaskPort{
		deleteFunc: func(context.Context, string, string) (string, error) {
			return task.DeleteConfirmation, nil
		},
	}
	app := testApp(tokenAuth(), tasks)

	status, body := do(t, app, "DELETE", "/api/tasks/t1", "alice", "")
	if status != http.StatusOK || strings.TrimSpace(body) != `{"message":"Task removed"}` {
		t.Errorf("delete = %d %s", status, body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := testApp(tokenAuth(), &mockTaskPort{})

	status, body := do(t, app, "GET", "/health", "", "")
	if status != http.StatusOK || !strings.Contains(body, "healthy") {
		t.Errorf("health = %d %s", status, body)
	}

	status, body = do(t, app, "GET", "/metrics", "", "")
	if status != http.StatusOK || !strings.Contains(body, "taskmanager_http_requests_total") {
		t.Errorf("metrics = %d, missing request counter", status)
	}
}

func TestUnknownRoute(t *testing.T) {
	app := testApp(tokenAuth(), &mockTaskPort{})
	status, body := do(t, app, "GET", "/nope", "", "")
	if status != http.StatusNotFound || !strings.Contains(body, `"error":"not_found"`) {
		t.Errorf("unknown route = %d %s", status, body)
	}
}

func TestNewModule_Defaults(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	if m.config.Port != 5000 || m.config.AuthRateLimit != 20 || m.config.CORSOrigins != "*" || m.config.BodyLimit != 1<<20 {
		t.Errorf("config = %+v", m.config)
	}
	if deps := m.Dependencies(); len(deps) != 2 {
		t.Errorf("Dependencies() = %v", deps)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("Start() without dependencies should fail")
	}
	if status := m.Health(context.Background()); status.Healthy {
		t.Error("Health() before Start should be unhealthy")
	}
}
