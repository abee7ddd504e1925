// Package config resolves server settings. Precedence, lowest first:
// defaults, environment (optionally seeded from a .env file), command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const envPrefix = "STUDENTS_"

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQL    = "sqlite"
)

// Config holds everything the server needs to start
type Config struct {
	Addr            string
	Store           string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string
	LogLevel        string
	ShutdownTimeout time.Duration
	RandomStudents  int
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Addr:            ":5000",
		Store:           StoreMemory,
		RedisAddr:       "127.0.0.1:6379",
		RedisDB:         0,
		RedisPrefix:     "students",
		LogLevel:        "info",
		ShutdownTimeout: 15 * time.Second,
	}
}

// LoadDotEnv exports the variables in path into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// FromEnv overlays STUDENTS_* variables, read through lookup, onto c.
func FromEnv(c Config, lookup func(string) (string, bool)) (Config, error) {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	str("STORE", &c.Store)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("REDIS_PREFIX", &c.RedisPrefix)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(envPrefix + "REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("invalid %sREDIS_DB %q: %w", envPrefix, v, err)
		}
		c.RedisDB = n
	}
	if v, ok := lookup(envPrefix + "RANDOM_STUDENTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("invalid %sRANDOM_STUDENTS %q: %w", envPrefix, v, err)
		}
		c.RandomStudents = n
	}
	if v, ok := lookup(envPrefix + "SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("invalid %sSHUTDOWN_TIMEOUT %q: %w", envPrefix, v, err)
		}
		c.ShutdownTimeout = d
	}
	return c, nil
}

// BindFlags registers flags on fs that write into c. Call it after c holds
// the environment-derived values so they show up as flag defaults.
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	fs.StringVar(&c.Store, "store", c.Store, "record store backend: memory, redis or sqlite")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis server address (store=redis)")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password (store=redis)")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number (store=redis)")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", c.RedisPrefix, "key prefix for roster keys (store=redis)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: trace, debug, info, warn, error")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown timeout")
	fs.IntVar(&c.RandomStudents, "random-students", c.RandomStudents, "number of random demo students added after the seed records")
}

// Validate reports the first setting that cannot work
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis, StoreSQL:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Addr == "" {
		return errors.New("listen address cannot be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.RandomStudents < 0 {
		return fmt.Errorf("random students must not be negative, got %d", c.RandomStudents)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

// ConfigureLogging applies the log level to the standard logrus logger.
func (c Config) ConfigureLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}
