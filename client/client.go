// Package client is a Go client for the task manager REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/example/student-task-manager/domain/task"
	user "github.com/example/student-task-manager/domain/user"
)

// DefaultTimeout bounds every request made without a caller deadline.
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string
	Field   string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsValidation reports whether err is a 400 from the server.
func IsValidation(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client calls the REST API. It is safe for concurrent use once configured,
// except for SetToken.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	token   string
}

// New creates a client for the server at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token. An empty token logs the client out.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// Signup creates an account and stores the returned token.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*user.Session, error) {
	var session user.Session
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", body, &session); err != nil {
		return nil, err
	}
	c.token = session.Token
	return &session, nil
}

// Login exchanges credentials for a token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (*user.Session, error) {
	var session user.Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &session); err != nil {
		return nil, err
	}
	c.token = session.Token
	return &session, nil
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context) (*user.Profile, error) {
	var p user.Profile
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListTasks returns the caller's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	tasks := []domain.Task{}
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in domain.NewTask) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask sends a partial update. Only the fields present in fields are
// changed; a nil DueDate entry clears the due date.
func (c *Client) UpdateTask(ctx context.Context, id string, fields Update) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), fields.body(), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes a task and returns the server's confirmation.
func (c *Client) DeleteTask(ctx context.Context, id string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, taskPath(id), nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// taskPath escapes id so it always names a single path segment.
func taskPath(id string) string {
	return "/api/tasks/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Field   string `json:"field"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Code = payload.Error
			apiErr.Field = payload.Field
			apiErr.Message = payload.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
