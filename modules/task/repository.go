package task

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/student-task-manager/domain/task"
	"gorm.io/gorm"
)

// Repository persists tasks with GORM. Each method is a single statement.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the tasks table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&domain.Task{})
}

// ListByUser returns the tasks owned by userID, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// FindByID retrieves a task by its ID regardless of owner.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// Create inserts a new task.
func (r *Repository) Create(ctx context.Context, t *domain.Task) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Save writes every mutable column of t. The identifier, owner and creation
// time are never written. Returns ErrNotFound if the row is gone.
func (r *Repository) Save(ctx context.Context, t *domain.Task) error {
	result := r.db.WithContext(ctx).
		Model(t).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(t)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a task permanently.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Task{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
