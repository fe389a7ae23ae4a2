package view

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/example/student-task-manager/client"
	domain "github.com/example/student-task-manager/domain/task"
	user "github.com/example/student-task-manager/domain/user"
)

var (
	// ErrBusy is returned when a task already has a request in flight.
	ErrBusy = errors.New("task is busy")
	// ErrUnknownTask is returned for an id that is not in the session.
	ErrUnknownTask = errors.New("task not loaded")
	// ErrNotLoggedIn is returned by task operations before login.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrSessionEnded is returned when the user logged out or signed in
	// again while a request was in flight. Its reply is discarded.
	ErrSessionEnded = errors.New("session ended during request")
)

// API is the part of client.Client a Session uses.
type API interface {
	Signup(ctx context.Context, name, email, password string) (*user.Session, error)
	Login(ctx context.Context, email, password string) (*user.Session, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, in domain.NewTask) (*domain.Task, error)
	UpdateTask(ctx context.Context, id string, fields client.Update) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) (string, error)
	SetToken(token string)
	Token() string
}

var _ API = (*client.Client)(nil)

// Session holds the signed-in user's tasks as last confirmed by the server.
// Nothing is changed locally until the server has accepted the change; a
// failed call is kept in LastError and leaves the tasks untouched.
type Session struct {
	api API

	mu      sync.Mutex
	user    *user.Profile
	tasks   []domain.Task
	busy    map[string]bool
	lastErr error
	// epoch changes on every sign-in and logout.
	epoch uint64
}

// NewSession creates an empty session over api.
func NewSession(api API) *Session {
	return &Session{
		api:  api,
		busy: make(map[string]bool),
	}
}

// Login authenticates and loads the user's tasks.
func (s *Session) Login(ctx context.Context, email, password string) error {
	session, err := s.api.Login(ctx, email, password)
	if err != nil {
		return s.fail(err)
	}
	s.signedIn(session)
	return s.Refresh(ctx)
}

// Signup creates an account, which is signed in straight away.
func (s *Session) Signup(ctx context.Context, name, email, password string) error {
	session, err := s.api.Signup(ctx, name, email, password)
	if err != nil {
		return s.fail(err)
	}
	s.signedIn(session)
	return s.Refresh(ctx)
}

// Resume continues a session from a stored token.
func (s *Session) Resume(ctx context.Context, token string) error {
	s.api.SetToken(token)
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
	return s.Refresh(ctx)
}

func (s *Session) signedIn(session *user.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := session.User
	s.user = &profile
	s.tasks = nil
	s.lastErr = nil
	s.epoch++
}

// Refresh replaces the task set with the server's list.
func (s *Session) Refresh(ctx context.Context) error {
	if s.api.Token() == "" {
		return s.fail(ErrNotLoggedIn)
	}
	epoch := s.currentEpoch()
	tasks, err := s.api.ListTasks(ctx)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return ErrSessionEnded
	}
	s.tasks = tasks
	s.lastErr = nil
	return nil
}

// Create adds a task. The new task goes first, matching the server's
// newest-first order.
func (s *Session) Create(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	if s.api.Token() == "" {
		return nil, s.fail(ErrNotLoggedIn)
	}
	epoch := s.currentEpoch()
	created, err := s.api.CreateTask(ctx, in)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, ErrSessionEnded
	}
	s.tasks = append([]domain.Task{*created}, s.tasks...)
	s.lastErr = nil
	return created, nil
}

// Update sends fields for task id and stores the server's version.
func (s *Session) Update(ctx context.Context, id string, fields client.Update) (*domain.Task, error) {
	epoch, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer s.release(id, epoch)

	updated, err := s.api.UpdateTask(ctx, id, fields)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, ErrSessionEnded
	}
	if i := s.indexOf(id); i >= 0 {
		s.tasks[i] = *updated
	}
	s.lastErr = nil
	return updated, nil
}

// Toggle flips the completion state of task id.
func (s *Session) Toggle(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	var completed bool
	if i >= 0 {
		completed = s.tasks[i].Completed
	}
	s.mu.Unlock()

	if i < 0 {
		return nil, s.fail(fmt.Errorf("%w: %s", ErrUnknownTask, id))
	}
	return s.Update(ctx, id, client.SetCompleted(!completed))
}

// Delete removes task id once the server confirms.
func (s *Session) Delete(ctx context.Context, id string) error {
	epoch, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer s.release(id, epoch)

	if _, err := s.api.DeleteTask(ctx, id); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return ErrSessionEnded
	}
	if i := s.indexOf(id); i >= 0 {
		s.tasks = slices.Delete(s.tasks, i, i+1)
	}
	s.lastErr = nil
	return nil
}

// Logout discards the token and everything cached for the user.
func (s *Session) Logout() {
	s.api.SetToken("")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.tasks = nil
	s.busy = make(map[string]bool)
	s.lastErr = nil
	s.epoch++
}

// View derives the display list from the confirmed tasks.
func (s *Session) View(q Query) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Derive(s.tasks, q)
}

// Tasks returns a copy of the confirmed tasks in server order.
func (s *Session) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// User returns the signed-in profile, or nil.
func (s *Session) User() *user.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Busy reports whether task id has a request in flight.
func (s *Session) Busy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[id]
}

// LastError is the most recent failure, cleared by the next success.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// acquire marks id busy and returns the epoch it was marked in.
func (s *Session) acquire(id string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[id] {
		return 0, ErrBusy
	}
	s.busy[id] = true
	return s.epoch, nil
}

func (s *Session) release(id string, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		delete(s.busy, id)
	}
}

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	return err
}

// indexOf must be called with mu held.
func (s *Session) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
