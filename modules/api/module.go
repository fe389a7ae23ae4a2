// Package api serves the REST interface over the auth and task modules.
package api

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/student-task-manager/modules/auth"
	"github.com/example/student-task-manager/modules/cache"
	"github.com/example/student-task-manager/modules/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Config holds the HTTP server settings.
type Config struct {
	Port int
	// AuthRateLimit is the number of signup and login requests a client IP
	// may make per minute.
	AuthRateLimit int
	// CORSOrigins is a comma-separated list of allowed origins.
	CORSOrigins string
	// BodyLimit is the largest accepted request body in bytes.
	BodyLimit int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Port:          5000,
		AuthRateLimit: 20,
		CORSOrigins:   "*",
		BodyLimit:     1 << 20,
	}
}

// APIModule is the HTTP API module.
type APIModule struct {
	config  Config
	logger  types.Logger
	app     *fiber.App
	auth    auth.AuthPort
	tasks   task.TaskPort
	cache   *cache.PluginModule
	serving atomic.Bool
	started time.Time
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*APIModule)(nil)
	_ mono.DependentModule       = (*APIModule)(nil)
	_ mono.UsePluginModule       = (*APIModule)(nil)
	_ mono.HealthCheckableModule = (*APIModule)(nil)
)

// NewModule creates a new APIModule. Zero config fields take their defaults.
func NewModule(config Config, logger types.Logger) *APIModule {
	def := DefaultConfig()
	if config.Port == 0 {
		config.Port = def.Port
	}
	if config.AuthRateLimit <= 0 {
		config.AuthRateLimit = def.AuthRateLimit
	}
	if config.CORSOrigins == "" {
		config.CORSOrigins = def.CORSOrigins
	}
	if config.BodyLimit <= 0 {
		config.BodyLimit = def.BodyLimit
	}
	return &APIModule{
		config: config,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "task"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.auth = auth.NewAuthAdapter(container)
	case "task":
		m.tasks = task.NewTaskAdapter(container)
	}
}

// SetPlugin receives the cache plugin, whose Redis storage backs the auth
// rate limiter when available.
func (m *APIModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "cache" {
		return
	}
	cachePlugin, ok := plugin.(*cache.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for cache", "alias", alias)
		return
	}
	m.cache = cachePlugin
}

// Start builds the Fiber app and starts listening.
func (m *APIModule) Start(_ context.Context) error {
	if m.auth == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.tasks == nil {
		return fmt.Errorf("task dependency not set")
	}

	// Plugins start before modules, so the storage is ready here.
	var storage fiber.Storage
	if m.cache != nil {
		storage = m.cache.LimiterStorage()
	}

	m.app = newApp(m.config, m.auth, m.tasks, storage, m.logger)
	m.started = time.Now()

	addr := fmt.Sprintf(":%d", m.config.Port)
	go func() {
		m.serving.Store(true)
		defer m.serving.Store(false)
		if err := m.app.Listen(addr); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started",
		"addr", addr,
		"auth_rate_limit", m.config.AuthRateLimit,
		"shared_rate_limit", storage != nil)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{
		Healthy: m.serving.Load(),
		Message: "operational",
		Details: map[string]any{
			"port":   m.config.Port,
			"uptime": time.Since(m.started).Round(time.Second).String(),
		},
	}
}
