package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/example/student-task-manager/domain/task"
	"github.com/example/student-task-manager/events"
	"github.com/example/student-task-manager/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Publisher receives task lifecycle events after each successful write.
type Publisher interface {
	TaskCreated(events.TaskCreatedEvent) error
	TaskUpdated(events.TaskUpdatedEvent) error
	TaskDeleted(events.TaskDeletedEvent) error
}

// busPublisher publishes on the mono event bus.
type busPublisher struct {
	bus mono.EventBus
}

func (p busPublisher) TaskCreated(e events.TaskCreatedEvent) error {
	return events.TaskCreatedV1.Publish(p.bus, e, nil)
}

func (p busPublisher) TaskUpdated(e events.TaskUpdatedEvent) error {
	return events.TaskUpdatedV1.Publish(p.bus, e, nil)
}

func (p busPublisher) TaskDeleted(e events.TaskDeletedEvent) error {
	return events.TaskDeletedV1.Publish(p.bus, e, nil)
}

// Store is the authorization-gated task CRUD service. Every lookup checks
// existence before ownership.
type Store struct {
	repo      *Repository
	cache     cache.Cache
	publisher Publisher
	logger    types.Logger
	now       func() time.Time
	newID     func() string

	lists singleflight.Group

	// instance and generations version the cached lists. A cached list is
	// only served while its version matches, so a list read before a write
	// can never be served after it, even if it reaches the cache late.
	instance    string
	mu          sync.Mutex
	generations map[string]uint64
}

// cachedList is the cache entry for one owner's list.
type cachedList struct {
	Version string        `json:"version"`
	Tasks   []domain.Task `json:"tasks"`
}

// NewStore creates a Store. A nil cache disables caching and a nil publisher
// drops events.
func NewStore(repo *Repository, c cache.Cache, publisher Publisher, logger types.Logger) *Store {
	if c == nil {
		c = &cache.NopCache{}
	}
	return &Store{
		repo:        repo,
		cache:       c,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		instance:    uuid.New().String(),
		generations: make(map[string]uint64),
	}
}

func listKey(userID string) string {
	return "tasks:" + userID
}

// List returns the caller's tasks, newest first.
func (s *Store) List(ctx context.Context, userID string) (tasks []domain.Task, err error) {
	defer observe("list", time.Now(), &err)

	version := s.listVersion(userID)

	var cached cachedList
	found, cerr := s.cache.Get(ctx, listKey(userID), &cached)
	if cerr != nil {
		s.logger.Warn("Task list cache read failed", "user_id", userID, "error", cerr)
	}
	if found && cached.Version == version {
		if cached.Tasks == nil {
			cached.Tasks = []domain.Task{}
		}
		return cached.Tasks, nil
	}

	// Callers only share a query that started after the same write.
	v, err, _ := s.lists.Do(listKey(userID)+"@"+version, func() (any, error) {
		return s.repo.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]domain.Task)
	tasks = make([]domain.Task, len(shared))
	copy(tasks, shared)

	if err := s.cache.Set(ctx, listKey(userID), cachedList{Version: version, Tasks: tasks}); err != nil {
		s.logger.Warn("Task list cache write failed", "user_id", userID, "error", err)
	}
	return tasks, nil
}

// Get returns the task if callerID owns it.
func (s *Store) Get(ctx context.Context, taskID, callerID string) (t *domain.Task, err error) {
	defer observe("get", time.Now(), &err)
	return s.owned(ctx, taskID, callerID)
}

// Create stores a new task owned by userID.
func (s *Store) Create(ctx context.Context, userID string, in domain.NewTask) (t *domain.Task, err error) {
	defer observe("create", time.Now(), &err)

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t = &domain.Task{
		ID:          s.newID(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	titleLength.Observe(float64(len(t.Title)))

	s.publish(t.ID, "TaskCreated", func(p Publisher) error {
		return p.TaskCreated(events.TaskCreatedEvent{
			TaskID:    t.ID,
			UserID:    t.UserID,
			Title:     t.Title,
			Priority:  string(t.Priority),
			CreatedAt: t.CreatedAt,
		})
	})
	s.logger.Info("Task created", "task_id", t.ID, "user_id", userID)
	return t, nil
}

// Update applies patch to a task owned by callerID and re-stamps its update
// time, even when the patch is empty.
func (s *Store) Update(ctx context.Context, taskID, callerID string, patch domain.Patch) (*domain.Task, error) {
	return s.update(ctx, taskID, callerID, func() (domain.Patch, error) {
		return patch, nil
	})
}

// UpdateJSON is Update for a raw request body. The body is only decoded once
// the task is known to exist and belong to callerID.
func (s *Store) UpdateJSON(ctx context.Context, taskID, callerID string, body []byte) (*domain.Task, error) {
	return s.update(ctx, taskID, callerID, func() (domain.Patch, error) {
		return domain.DecodePatch(body)
	})
}

func (s *Store) update(ctx context.Context, taskID, callerID string, decode func() (domain.Patch, error)) (t *domain.Task, err error) {
	defer observe("update", time.Now(), &err)

	t, err = s.owned(ctx, taskID, callerID)
	if err != nil {
		return nil, err
	}

	patch, err := decode()
	if err != nil {
		return nil, err
	}
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	t.Apply(patch)
	t.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, t.UserID)

	s.publish(t.ID, "TaskUpdated", func(p Publisher) error {
		return p.TaskUpdated(events.TaskUpdatedEvent{
			TaskID:    t.ID,
			UserID:    t.UserID,
			Fields:    patch.Fields(),
			Completed: t.Completed,
			UpdatedAt: t.UpdatedAt,
		})
	})
	return t, nil
}

// Delete removes a task owned by callerID.
func (s *Store) Delete(ctx context.Context, taskID, callerID string) (err error) {
	defer observe("delete", time.Now(), &err)

	t, err := s.owned(ctx, taskID, callerID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return err
	}
	s.invalidate(ctx, t.UserID)

	deletedAt := s.now().UTC()
	s.publish(t.ID, "TaskDeleted", func(p Publisher) error {
		return p.TaskDeleted(events.TaskDeletedEvent{
			TaskID:    t.ID,
			UserID:    t.UserID,
			DeletedAt: deletedAt,
		})
	})
	s.logger.Info("Task deleted", "task_id", t.ID, "user_id", t.UserID)
	return nil
}

// owned loads a task and checks that callerID owns it.
func (s *Store) owned(ctx context.Context, taskID, callerID string) (*domain.Task, error) {
	t, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !t.OwnedBy(callerID) {
		return nil, domain.ErrNotAuthorized
	}
	return t, nil
}

// listVersion names the owner's list as of the last write this store made.
func (s *Store) listVersion(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%s.%d", s.instance, s.generations[userID])
}

// invalidate drops the owner's cached list. It runs after every write and
// before the write is reported.
func (s *Store) invalidate(ctx context.Context, userID string) {
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, listKey(userID)); err != nil {
		s.logger.Warn("Task list cache invalidation failed", "user_id", userID, "error", err)
	}
}

// publish is best effort; a failed publish is logged and the write stands.
func (s *Store) publish(taskID, name string, send func(Publisher) error) {
	if s.publisher == nil {
		return
	}
	if err := send(s.publisher); err != nil {
		s.logger.Warn(fmt.Sprintf("Failed to publish %s event", name), "task_id", taskID, "error", err)
	}
}
