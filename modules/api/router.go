package api

import (
	"strings"
	"time"

	"github.com/example/student-task-manager/modules/auth"
	"github.com/example/student-task-manager/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newApp builds the Fiber app with all middleware and routes. A nil storage
// keeps rate limit counters in memory.
func newApp(config Config, authPort auth.AuthPort, tasks task.TaskPort, storage fiber.Storage, log types.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Student Task Manager",
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(requestMetrics())

	h := NewHandlers(authPort, tasks, log)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	rateLimited := limiter.New(limiter.Config{
		Max:        config.AuthRateLimit,
		Expiration: time.Minute,
		Storage:    storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "rate_limited",
				Message: "Too many requests, please try again later",
			})
		},
	})
	authRoutes.Post("/signup", rateLimited, h.Signup)
	authRoutes.Post("/login", rateLimited, h.Login)
	authRoutes.Get("/me", AuthMiddleware(authPort, log), h.Me)

	taskRoutes := api.Group("/tasks", AuthMiddleware(authPort, log))
	taskRoutes.Get("/", h.ListTasks)
	taskRoutes.Post("/", h.CreateTask)
	taskRoutes.Get("/:id", h.GetTask)
	taskRoutes.Put("/:id", h.UpdateTask)
	taskRoutes.Delete("/:id", h.DeleteTask)

	return app
}

// customErrorHandler handles errors Fiber raises itself, such as unknown
// routes or oversized bodies.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   strings.ReplaceAll(strings.ToLower(utils.StatusMessage(code)), " ", "_"),
		Message: message,
	})
}
