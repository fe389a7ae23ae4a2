package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/student-task-manager/modules/api"
	"github.com/example/student-task-manager/modules/audit"
	"github.com/example/student-task-manager/modules/auth"
	"github.com/example/student-task-manager/modules/cache"
	"github.com/example/student-task-manager/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment
	httpPort := getEnvInt("HTTP_PORT", 5000)
	authDBPath := getEnv("AUTH_DB_PATH", "auth.db")
	taskDBPath := getEnv("TASK_DB_PATH", "tasks.db")
	redisAddr := getEnv("REDIS_ADDR", "")
	cacheTTL := getEnvDuration("CACHE_TTL", 5*time.Minute)
	authRateLimit := getEnvInt("AUTH_RATE_LIMIT", 20)
	corsOrigins := getEnv("CORS_ORIGINS", "*")

	jwtConfig := auth.DefaultJWTConfig()
	jwtConfig.SecretKey = getEnv("JWT_SECRET_KEY", jwtConfig.SecretKey)
	jwtConfig.Issuer = getEnv("JWT_ISSUER", jwtConfig.Issuer)
	jwtConfig.TokenDuration = getEnvDuration("JWT_TOKEN_TTL", jwtConfig.TokenDuration)

	log.Println("=== Student Task Manager ===")
	if jwtConfig.SecretKey == auth.DefaultJWTConfig().SecretKey {
		log.Println("Warning: JWT_SECRET_KEY not set, using the development secret")
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// The framework calls SetPlugin("cache", ...) on the task and api modules.
	cachePlugin := cache.NewPluginModule(cache.Config{
		RedisAddr: redisAddr,
		TTL:       cacheTTL,
	}, logger)
	if err := app.RegisterPlugin(cachePlugin, "cache"); err != nil {
		log.Fatalf("Failed to register cache plugin: %v", err)
	}

	// Order: independent modules first, then modules with dependencies
	// - auth: accounts and tokens (SQLite)
	// - task: task store (SQLite, emits events, uses cache)
	// - audit: event consumer for task events
	// - api: Fiber HTTP server, depends on auth and task
	app.Register(auth.NewModule(auth.Config{DBPath: authDBPath, JWT: jwtConfig}, logger))
	app.Register(task.NewModule(taskDBPath, logger))
	app.Register(audit.NewModule(logger))
	app.Register(api.NewModule(api.Config{
		Port:          httpPort,
		AuthRateLimit: authRateLimit,
		CORSOrigins:   corsOrigins,
	}, logger))

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(httpPort, redisAddr)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(port int, redisAddr string) {
	cacheInfo := "disabled (set REDIS_ADDR to enable)"
	if redisAddr != "" {
		cacheInfo = "Redis at " + redisAddr
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber")
	log.Println("  - Storage: SQLite via GORM (auth.db, tasks.db)")
	log.Printf("  - Task list cache: %s", cacheInfo)
	log.Println("  - TaskCreated/TaskUpdated/TaskDeleted events -> audit module")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", port)
	log.Println("  POST   /api/auth/signup        - Create an account")
	log.Println("  POST   /api/auth/login         - Log in")
	log.Println("  GET    /api/auth/me            - Current user (Bearer token)")
	log.Println("  GET    /api/tasks              - List your tasks, newest first")
	log.Println("  POST   /api/tasks              - Create a task")
	log.Println("  GET    /api/tasks/:id          - Get a task")
	log.Println("  PUT    /api/tasks/:id          - Update a task")
	log.Println("  DELETE /api/tasks/:id          - Delete a task")
	log.Println("  GET    /health                 - Health check")
	log.Println("  GET    /metrics                - Prometheus metrics")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
