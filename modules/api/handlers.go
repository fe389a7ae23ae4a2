package api

import (
	"errors"

	domain "github.com/example/student-task-manager/domain/task"
	"github.com/example/student-task-manager/modules/auth"
	"github.com/example/student-task-manager/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth   auth.AuthPort
	tasks  task.TaskPort
	logger types.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authPort auth.AuthPort, tasks task.TaskPort, logger types.Logger) *Handlers {
	return &Handlers{
		auth:   authPort,
		tasks:  tasks,
		logger: logger,
	}
}

// Signup creates an account and logs it in.
func (h *Handlers) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	session, err := h.auth.Signup(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// Login exchanges credentials for a token.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(session)
}

// Me returns the profile of the authenticated user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	user, err := h.auth.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(user.Profile())
}

// ListTasks returns the caller's tasks, newest first.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	tasks, err := h.tasks.List(c.UserContext(), claims.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(tasks)
}

// GetTask returns one task owned by the caller.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	t, err := h.tasks.Get(c.UserContext(), c.Params("id"), claims.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

// CreateTask creates a task owned by the caller.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	in, err := domain.DecodeNewTask(c.Body())
	if err != nil {
		return h.writeError(c, err)
	}

	t, err := h.tasks.Create(c.UserContext(), claims.UserID, in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// UpdateTask applies a partial update. The body is forwarded untouched so the
// task module checks ownership before it looks at the fields.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	// Fiber reuses the body buffer once the handler returns.
	body := append([]byte(nil), c.Body()...)

	t, err := h.tasks.Update(c.UserContext(), c.Params("id"), claims.UserID, body)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

// DeleteTask removes a task owned by the caller.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return unauthenticated(c)
	}

	message, err := h.tasks.Delete(c.UserContext(), c.Params("id"), claims.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(MessageResponse{Message: message})
}

// writeError maps domain errors to status codes. Anything unclassified is
// logged and reported without detail.
func (h *Handlers) writeError(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	var input *auth.InputError

	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: ve.Error(),
			Field:   ve.Field,
		})
	case errors.As(err, &input):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: input.Message,
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Task not found",
		})
	case errors.Is(err, domain.ErrNotAuthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "not_authorized",
			Message: "Not authorized",
		})
	case errors.Is(err, auth.ErrUserExists):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User with this email already exists",
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "User not found",
		})
	}

	h.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: "Invalid request body",
	})
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}
