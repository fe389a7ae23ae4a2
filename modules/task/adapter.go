package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/example/student-task-manager/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskPort is what other modules use to reach the task store.
type TaskPort interface {
	List(ctx context.Context, userID string) ([]domain.Task, error)
	Get(ctx context.Context, taskID, callerID string) (*domain.Task, error)
	Create(ctx context.Context, userID string, in domain.NewTask) (*domain.Task, error)
	Update(ctx context.Context, taskID, callerID string, body []byte) (*domain.Task, error)
	Delete(ctx context.Context, taskID, callerID string) (string, error)
}

// TaskAdapter implements TaskPort using the service container.
type TaskAdapter struct {
	container mono.ServiceContainer
}

var _ TaskPort = (*TaskAdapter)(nil)

// NewTaskAdapter creates a new TaskAdapter.
func NewTaskAdapter(container mono.ServiceContainer) *TaskAdapter {
	return &TaskAdapter{container: container}
}

// List returns the caller's tasks, newest first.
func (a *TaskAdapter) List(ctx context.Context, userID string) ([]domain.Task, error) {
	req := ListTasksRequest{UserID: userID}
	var resp ListTasksResponse
	if err := call(ctx, a.container, "list-tasks", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if resp.Tasks == nil {
		resp.Tasks = []domain.Task{}
	}
	return resp.Tasks, nil
}

// Get returns one task.
func (a *TaskAdapter) Get(ctx context.Context, taskID, callerID string) (*domain.Task, error) {
	req := GetTaskRequest{TaskID: taskID, CallerID: callerID}
	var resp TaskResponse
	if err := call(ctx, a.container, "get-task", &req, &resp); err != nil {
		return nil, err
	}
	return taskOf(resp)
}

// Create stores a new task for userID.
func (a *TaskAdapter) Create(ctx context.Context, userID string, in domain.NewTask) (*domain.Task, error) {
	req := CreateTaskRequest{UserID: userID, Task: in}
	var resp TaskResponse
	if err := call(ctx, a.container, "create-task", &req, &resp); err != nil {
		return nil, err
	}
	return taskOf(resp)
}

// Update applies a raw JSON patch.
func (a *TaskAdapter) Update(ctx context.Context, taskID, callerID string, body []byte) (*domain.Task, error) {
	req := UpdateTaskRequest{TaskID: taskID, CallerID: callerID, Patch: body}
	var resp TaskResponse
	if err := call(ctx, a.container, "update-task", &req, &resp); err != nil {
		return nil, err
	}
	return taskOf(resp)
}

// Delete removes a task and returns the confirmation message.
func (a *TaskAdapter) Delete(ctx context.Context, taskID, callerID string) (string, error) {
	req := DeleteTaskRequest{TaskID: taskID, CallerID: callerID}
	var resp DeleteTaskResponse
	if err := call(ctx, a.container, "delete-task", &req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error.Err()
	}
	return resp.Message, nil
}

func taskOf(resp TaskResponse) (*domain.Task, error) {
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if resp.Task == nil {
		return nil, errors.New("empty task reply")
	}
	return resp.Task, nil
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
