package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"
)

// Config configures the cache plugin. An empty RedisAddr disables caching.
type Config struct {
	RedisAddr string
	Prefix    string
	TTL       time.Duration
}

// PluginModule provides the task list cache as a mono plugin. Plugins start
// before and stop after regular modules.
type PluginModule struct {
	container types.ServiceContainer
	config    Config
	cache     Cache
	limiter   *fiberredis.Storage
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates the cache plugin.
func NewPluginModule(config Config, logger types.Logger) *PluginModule {
	if config.Prefix == "" {
		config.Prefix = "taskmanager:"
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	return &PluginModule{
		config: config,
		logger: logger,
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "cache"
}

// Start connects to Redis, or falls back to a NopCache when no address is set.
func (m *PluginModule) Start(ctx context.Context) error {
	if m.config.RedisAddr == "" {
		m.cache = &NopCache{}
		m.logger.Info("Cache plugin started without Redis, caching disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         m.config.RedisAddr,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", m.config.RedisAddr, err)
	}
	m.cache = NewRedisCache(client, m.config.Prefix, m.config.TTL)

	host, port := parseRedisAddr(m.config.RedisAddr)
	m.limiter = fiberredis.New(fiberredis.Config{
		Host:     host,
		Port:     port,
		PoolSize: 10,
	})

	m.logger.Info("Cache plugin started",
		"redis_addr", m.config.RedisAddr,
		"prefix", m.config.Prefix,
		"ttl", m.config.TTL.String())
	return nil
}

// Stop closes the Redis connections.
func (m *PluginModule) Stop(_ context.Context) error {
	var firstErr error
	if m.limiter != nil {
		if err := m.limiter.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close limiter storage: %w", err)
		}
	}
	if m.cache != nil {
		if err := m.cache.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close connection: %w", err)
		}
	}
	if firstErr != nil {
		m.logger.Error("Cache plugin stopped with error", "error", firstErr)
		return firstErr
	}
	m.logger.Info("Cache plugin stopped")
	return nil
}

// SetContainer sets the service container for this plugin.
func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

// Container returns the service container for this plugin.
func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

// Port returns the cache consumers use. It is nil before Start.
func (m *PluginModule) Port() Cache {
	return m.cache
}

// LimiterStorage returns Redis-backed storage for fiber's limiter middleware so
// rate limits are shared between instances. It is nil when caching is disabled.
func (m *PluginModule) LimiterStorage() fiber.Storage {
	if m.limiter == nil {
		return nil
	}
	return m.limiter
}

// Health reports the backend status and counters.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.cache == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "cache not initialized",
		}
	}

	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("health check failed: %v", err),
		}
	}

	message := "operational"
	if !m.cache.Enabled() {
		message = "disabled"
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: message,
		Details: map[string]any{
			"redis_addr": m.config.RedisAddr,
			"prefix":     m.config.Prefix,
			"ttl":        m.config.TTL.String(),
			"stats":      m.cache.Stats(),
		},
	}
}

// parseRedisAddr parses "host:port" into host and port.
// Returns defaults (127.0.0.1:6379) for invalid or missing values.
func parseRedisAddr(addr string) (string, int) {
	const defaultHost = "127.0.0.1"
	const defaultPort = 6379

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	if host == "" {
		host = defaultHost
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}

	return host, port
}
