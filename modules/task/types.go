package task

import (
	domain "github.com/example/student-task-manager/domain/task"
)

// ServiceError carries a classified failure inside a reply.
type ServiceError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ListTasksRequest asks for the caller's tasks.
type ListTasksRequest struct {
	UserID string `json:"user_id"`
}

// ListTasksResponse holds the caller's tasks, newest first.
type ListTasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Error *ServiceError `json:"error,omitempty"`
}

// GetTaskRequest asks for one task on behalf of CallerID.
type GetTaskRequest struct {
	TaskID   string `json:"task_id"`
	CallerID string `json:"caller_id"`
}

// CreateTaskRequest creates a task owned by UserID.
type CreateTaskRequest struct {
	UserID string         `json:"user_id"`
	Task   domain.NewTask `json:"task"`
}

// UpdateTaskRequest carries the raw update body so the task module decides
// which fields are writable. Patch travels base64-encoded, so a body that is
// not valid JSON still reaches the module and is rejected there.
type UpdateTaskRequest struct {
	TaskID   string `json:"task_id"`
	CallerID string `json:"caller_id"`
	Patch    []byte `json:"patch"`
}

// DeleteTaskRequest deletes one task on behalf of CallerID.
type DeleteTaskRequest struct {
	TaskID   string `json:"task_id"`
	CallerID string `json:"caller_id"`
}

// TaskResponse is the reply to get, create and update.
type TaskResponse struct {
	Task  *domain.Task  `json:"task,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

// DeleteTaskResponse confirms a delete.
type DeleteTaskResponse struct {
	Message string        `json:"message,omitempty"`
	Error   *ServiceError `json:"error,omitempty"`
}
