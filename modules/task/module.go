package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/student-task-manager/events"
	"github.com/example/student-task-manager/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DeleteConfirmation is the message returned by a successful delete.
const DeleteConfirmation = "Task removed"

// TaskModule owns persisted tasks and serves the task request-reply services.
type TaskModule struct {
	dbPath   string
	db       *gorm.DB
	store    *Store
	cache    cache.Cache
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*TaskModule)(nil)
	_ mono.ServiceProviderModule = (*TaskModule)(nil)
	_ mono.EventEmitterModule    = (*TaskModule)(nil)
	_ mono.UsePluginModule       = (*TaskModule)(nil)
	_ mono.HealthCheckableModule = (*TaskModule)(nil)
)

// NewModule creates a new TaskModule backed by the SQLite file at dbPath.
func NewModule(dbPath string, logger types.Logger) *TaskModule {
	if dbPath == "" {
		dbPath = "tasks.db"
	}
	return &TaskModule{
		dbPath: dbPath,
		logger: logger,
	}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// SetPlugin receives the cache plugin.
func (m *TaskModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "cache" {
		return
	}
	cachePlugin, ok := plugin.(*cache.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for cache", "alias", alias)
		return
	}
	m.cache = cachePlugin.Port()
	m.logger.Info("Received cache plugin", "alias", alias)
}

// SetEventBus receives the EventBus from the framework.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

// Start opens the task database and builds the store.
func (m *TaskModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	repo := NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var publisher Publisher
	if m.eventBus != nil {
		publisher = busPublisher{bus: m.eventBus}
	} else {
		m.logger.Warn("Event bus not set, task events will not be published")
	}
	if m.cache == nil {
		m.logger.Warn("Cache plugin not set, task lists will not be cached")
	}

	m.store = NewStore(repo, m.cache, publisher, m.logger)
	m.logger.Info("Task module started", "database", m.dbPath)
	return nil
}

// Stop closes the database.
func (m *TaskModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	m.logger.Info("Task module stopped")
	return nil
}

// Health reports whether the task database answers a ping.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database error: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"database": m.dbPath},
	}
}

// RegisterServices registers the task request-reply services.
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	m.logger.Info("Registered task services",
		"services", []string{"list-tasks", "get-task", "create-task", "update-task", "delete-task"})
	return nil
}

func (m *TaskModule) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.store.List(ctx, req.UserID)
	if err != nil {
		return ListTasksResponse{}, m.fail("list-tasks", err)
	}
	return ListTasksResponse{Tasks: tasks}, nil
}

func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.store.Get(ctx, req.TaskID, req.CallerID)
	if err != nil {
		if se := toServiceError(err); se != nil {
			return TaskResponse{Error: se}, nil
		}
		return TaskResponse{}, m.fail("get-task", err)
	}
	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.store.Create(ctx, req.UserID, req.Task)
	if err != nil {
		if se := toServiceError(err); se != nil {
			return TaskResponse{Error: se}, nil
		}
		return TaskResponse{}, m.fail("create-task", err)
	}
	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.store.UpdateJSON(ctx, req.TaskID, req.CallerID, req.Patch)
	if err != nil {
		if se := toServiceError(err); se != nil {
			return TaskResponse{Error: se}, nil
		}
		return TaskResponse{}, m.fail("update-task", err)
	}
	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if err := m.store.Delete(ctx, req.TaskID, req.CallerID); err != nil {
		if se := toServiceError(err); se != nil {
			return DeleteTaskResponse{Error: se}, nil
		}
		return DeleteTaskResponse{}, m.fail("delete-task", err)
	}
	return DeleteTaskResponse{Message: DeleteConfirmation}, nil
}

// fail logs a store failure in full and returns an error without detail.
func (m *TaskModule) fail(service string, err error) error {
	m.logger.Error("Task service failed", "service", service, "error", err)
	return fmt.Errorf("%s failed", service)
}
