package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	domain "github.com/example/student-task-manager/domain/task"
	"github.com/example/student-task-manager/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// loopbackContainer runs request-reply services in process so the HTTP
// routes can be tested against the real task module and adapter.
type loopbackContainer struct {
	types.ServiceContainer
	handlers map[string]types.RequestReplyHandler
}

func (c *loopbackContainer) RegisterRequestReplyService(name string, handler types.RequestReplyHandler) error {
	c.handlers[name] = handler
	return nil
}

func (c *loopbackContainer) GetRequestReplyService(name string) (types.RequestReplyServiceClient, error) {
	h, ok := c.handlers[name]
	if !ok {
		return nil, fmt.Errorf("service %s not registered", name)
	}
	return loopbackClient{handler: h}, nil
}

type loopbackClient struct {
	handler types.RequestReplyHandler
}

func (c loopbackClient) Call(ctx context.Context, data []byte) (*types.Msg, error) {
	return c.CallMsg(ctx, &types.Msg{Data: data})
}

func (c loopbackClient) CallMsg(ctx context.Context, msg *types.Msg) (*types.Msg, error) {
	out, err := c.handler(ctx, msg)
	if err != nil {
		return nil, err
	}
	return &types.Msg{Data: out}, nil
}

// moduleApp serves the API over a started task module.
func moduleApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()

	m := task.NewModule(filepath.Join(t.TempDir(), "tasks.db"), &mockLogger{})
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { m.Stop(ctx) })

	container := &loopbackContainer{handlers: make(map[string]types.RequestReplyHandler)}
	if err := m.RegisterServices(container); err != nil {
		t.Fatalf("RegisterServices() error = %v", err)
	}
	return newApp(DefaultConfig(), tokenAuth(), task.NewTaskAdapter(container), nil, &mockLogger{})
}

func TestUpdateTask_MalformedBody(t *testing.T) {
	app := moduleApp(t)

	status, body := do(t, app, "POST", "/api/tasks", "alice", `{"title":"Buy milk"}`)
	if status != http.StatusCreated {
		t.Fatalf("create = %d %s", status, body)
	}
	var created domain.Task
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatalf("decode created task: %v", err)
	}

	tests := []struct {
		name           string
		path           string
		token          string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{"truncated object", "/api/tasks/" + created.ID, "alice", `{"title":`, http.StatusBadRequest, "validation_error"},
		{"not json", "/api/tasks/" + created.ID, "alice", `completed=true`, http.StatusBadRequest, "validation_error"},
		{"missing task", "/api/tasks/missing", "alice", `{"title":`, http.StatusNotFound, "Task not found"},
		{"other owner", "/api/tasks/" + created.ID, "bob", `{"title":`, http.StatusUnauthorized, "not_authorized"},
		{"valid patch", "/api/tasks/" + created.ID, "alice", `{"completed":true}`, http.StatusOK, `"completed":true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, "PUT", tt.path, tt.token, tt.body)
			if status != tt.expectedStatus {
				t.Errorf("status = %d, want %d (%s)", status, tt.expectedStatus, body)
			}
			if !strings.Contains(body, tt.expectedBody) {
				t.Errorf("body = %s, want to contain %s", body, tt.expectedBody)
			}
		})
	}
}
