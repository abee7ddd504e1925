package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	c, err := FromEnv(Default(), lookupFrom(map[string]string{
		"STUDENTS_ADDR":             ":9000",
		"STUDENTS_STORE":            "redis",
		"STUDENTS_REDIS_DB":         "8",
		"STUDENTS_RANDOM_STUDENTS":  "4",
		"STUDENTS_SHUTDOWN_TIMEOUT": "3s",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Addr != ":9000" || c.Store != StoreRedis || c.RedisDB != 8 || c.RandomStudents != 4 {
		t.Errorf("env not applied: %+v", c)
	}
	if c.ShutdownTimeout != 3*time.Second {
		t.Errorf("got shutdown timeout %s, want 3s", c.ShutdownTimeout)
	}
	if c.RedisAddr != Default().RedisAddr {
		t.Errorf("unset variable changed redis addr to %q", c.RedisAddr)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "redis db", env: map[string]string{"STUDENTS_REDIS_DB": "eight"}},
		{name: "random students", env: map[string]string{"STUDENTS_RANDOM_STUDENTS": "x"}},
		{name: "shutdown timeout", env: map[string]string{"STUDENTS_SHUTDOWN_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromEnv(Default(), lookupFrom(tt.env)); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

func TestBindFlagsOverridesEnv(t *testing.T) {
	c, err := FromEnv(Default(), lookupFrom(map[string]string{"STUDENTS_STORE": "redis"}))
	if err != nil {
		t.Fatal(err)
	}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, &c)

	if err := fs.Parse([]string{"--addr", ":7000"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.Addr != ":7000" {
		t.Errorf("got addr %q, want :7000", c.Addr)
	}
	if c.Store != StoreRedis {
		t.Errorf("env value lost: got store %q", c.Store)
	}

	if err := fs.Parse([]string{"--store", "sqlite"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.Store != StoreSQL {
		t.Errorf("got store %q, want sqlite", c.Store)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "sqlite store", mutate: func(c *Config) { c.Store = StoreSQL }},
		{name: "unknown store", mutate: func(c *Config) { c.Store = "mongo" }, wantErr: true},
		{name: "empty addr", mutate: func(c *Config) { c.Addr = "" }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "negative random", mutate: func(c *Config) { c.RandomStudents = -1 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.ShutdownTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("STUDENTS_TEST_DOTENV=loaded\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("STUDENTS_TEST_DOTENV") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("STUDENTS_TEST_DOTENV"); got != "loaded" {
		t.Errorf("got %q, want %q", got, "loaded")
	}
}
