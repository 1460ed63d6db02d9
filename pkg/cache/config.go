package cache

import "time"

type RedisOption func(*RedisConfig)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	PingTimeout  time.Duration

	// Prefix namespaces every key as "<prefix>:<key>". Empty leaves keys as is.
	Prefix string
}

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  30 * time.Second,
		PingTimeout:  5 * time.Second,
	}
}

func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) { c.Addr = addr }
}

// WithRedisAuth selects the database and authenticates with password.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sizes the connection pool. Non-positive values keep the
// defaults.
func WithRedisPool(size, minIdle int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
		}
		if minIdle > 0 {
			c.MinIdleConns = minIdle
		}
		if timeout > 0 {
			c.PoolTimeout = timeout
		}
	}
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// MemoryOption configures a MemoryCache, standalone or as the L1 of a
// LayeredCache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig bounds the in-memory cache. MaxSize 0 disables eviction and
// CleanupInterval 0 disables the expiry sweeper.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

func defaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{CleanupInterval: 5 * time.Minute}
}

func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = size }
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = interval }
}
