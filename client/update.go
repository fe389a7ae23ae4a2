package client

import (
	domain "github.com/example/student-task-manager/domain/task"
)

// Update is a partial task update. Nil fields are not sent.
type Update struct {
	Title        *string
	Description  *string
	Priority     *domain.Priority
	DueDate      *domain.Date
	ClearDueDate bool
	Completed    *bool
}

// SetCompleted returns an Update that only changes completion.
func SetCompleted(done bool) Update {
	return Update{Completed: &done}
}

// IsEmpty reports whether the update sends no fields.
func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil &&
		u.DueDate == nil && !u.ClearDueDate && u.Completed == nil
}

func (u Update) body() map[string]any {
	m := make(map[string]any)
	if u.Title != nil {
		m["title"] = *u.Title
	}
	if u.Description != nil {
		m["description"] = *u.Description
	}
	if u.Priority != nil {
		m["priority"] = *u.Priority
	}
	if u.ClearDueDate {
		m["dueDate"] = nil
	} else if u.DueDate != nil {
		m["dueDate"] = u.DueDate.String()
	}
	if u.Completed != nil {
		m["completed"] = *u.Completed
	}
	return m
}
