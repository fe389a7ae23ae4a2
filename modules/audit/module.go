// Package audit records task lifecycle events as structured log lines.
package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/student-task-manager/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultCapacity is the number of entries kept in memory.
const DefaultCapacity = 100

var auditedEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "taskmanager_audit_events_total",
		Help: "Task lifecycle events recorded by the audit module",
	},
	[]string{"event"},
)

// Entry is one audited event.
type Entry struct {
	Event  string    `json:"event"`
	TaskID string    `json:"task_id"`
	UserID string    `json:"user_id"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Module consumes task events.
type Module struct {
	logger types.Logger

	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	total   uint64
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates an audit module keeping the last DefaultCapacity entries.
func NewModule(logger types.Logger) *Module {
	return &Module{
		logger:  logger,
		entries: make([]Entry, DefaultCapacity),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "audit"
}

// RegisterEventConsumers subscribes to every task event.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"TaskCreated.v1", "TaskUpdated.v1", "TaskDeleted.v1"})
	return nil
}

func (m *Module) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.record(Entry{
		Event:  "task_created",
		TaskID: event.TaskID,
		UserID: event.UserID,
		Detail: "priority=" + event.Priority,
		At:     event.CreatedAt,
	})
	return nil
}

func (m *Module) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	m.record(Entry{
		Event:  "task_updated",
		TaskID: event.TaskID,
		UserID: event.UserID,
		Detail: "fields=" + strings.Join(event.Fields, ","),
		At:     event.UpdatedAt,
	})
	return nil
}

func (m *Module) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	m.record(Entry{
		Event:  "task_deleted",
		TaskID: event.TaskID,
		UserID: event.UserID,
		At:     event.DeletedAt,
	})
	return nil
}

// record logs e and stores it, overwriting the oldest entry once full.
// Titles are never logged.
func (m *Module) record(e Entry) {
	m.logger.Info("Task audit",
		"event", e.Event,
		"task_id", e.TaskID,
		"user_id", e.UserID,
		"detail", e.Detail,
		"at", e.At)
	auditedEvents.WithLabelValues(e.Event).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	m.total++
}

// Recent returns the stored entries, oldest first.
func (m *Module) Recent() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.full {
		out := make([]Entry, m.next)
		copy(out, m.entries[:m.next])
		return out
	}
	out := make([]Entry, 0, len(m.entries))
	out = append(out, m.entries[m.next:]...)
	out = append(out, m.entries[:m.next]...)
	return out
}

// Health reports how many events were recorded and the most recent one.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	recent := m.Recent()

	m.mu.RLock()
	total := m.total
	m.mu.RUnlock()

	details := map[string]any{
		"recorded": total,
		"retained": len(recent),
	}
	if len(recent) > 0 {
		last := recent[len(recent)-1]
		details["last_event"] = last.Event
		details["last_at"] = last.At
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

// Start starts the audit module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Audit module started")
	return nil
}

// Stop stops the audit module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Audit module stopped")
	return nil
}
