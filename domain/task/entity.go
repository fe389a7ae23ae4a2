package task

import (
	"time"
)

// Priority is the importance of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is assigned when a task is created without one.
const DefaultPriority = PriorityMedium

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities for sorting: high(3) > medium(2) > low(1).
// Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Task is a single user-owned to-do item.
type Task struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	UserID      string    `gorm:"not null;type:text;index:idx_tasks_user_created,priority:1" json:"userId"`
	Title       string    `gorm:"not null;type:text" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Priority    Priority  `gorm:"not null;type:text;default:medium" json:"priority"`
	DueDate     *Date     `gorm:"type:date" json:"dueDate"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false;index:idx_tasks_user_created,priority:2" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false" json:"updatedAt"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// OwnedBy reports whether userID owns the task.
func (t *Task) OwnedBy(userID string) bool {
	return t.UserID == userID
}

// Apply copies the fields present in p onto the task.
// Timestamps are left to the caller.
func (t *Task) Apply(p Patch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}
