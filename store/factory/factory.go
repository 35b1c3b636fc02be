// Package factory opens a checkpoint store backend from a YAML
// configuration document, so deployments can swap the persistence layer
// without code changes.
//
// Example configuration:
//
//	backend: redis
//	addr: localhost:6379
//	prefix: "loom:"
//	ttl: 24h
package factory

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loomgraph/loom/store"
	"github.com/loomgraph/loom/store/file"
	"github.com/loomgraph/loom/store/memory"
	"github.com/loomgraph/loom/store/postgres"
	"github.com/loomgraph/loom/store/redis"
	"github.com/loomgraph/loom/store/sqlite"
)

// Config selects and configures a checkpoint store backend.
type Config struct {
	// Backend is one of "memory", "file", "redis", "postgres", "sqlite".
	Backend string `yaml:"backend"`

	// Path is the directory (file backend) or database file (sqlite).
	Path string `yaml:"path,omitempty"`

	// Redis settings. TTL is a Go duration string such as "24h".
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	TTL      string `yaml:"ttl,omitempty"`

	// Postgres settings.
	ConnString string `yaml:"conn_string,omitempty"`

	// TableName applies to the postgres and sqlite backends.
	TableName string `yaml:"table_name,omitempty"`
}

// Open creates the checkpoint store described by the config.
func Open(ctx context.Context, cfg Config) (store.CheckpointStore, error) {
	switch cfg.Backend {
	case "memory":
		return memory.NewCheckpointStore(), nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file backend requires a path")
		}
		return file.NewCheckpointStore(cfg.Path)
	case "redis":
		if cfg.Addr == "" {
			return nil, fmt.Errorf("redis backend requires an addr")
		}
		var ttl time.Duration
		if cfg.TTL != "" {
			var err error
			ttl, err = time.ParseDuration(cfg.TTL)
			if err != nil {
				return nil, fmt.Errorf("invalid ttl %q: %w", cfg.TTL, err)
			}
		}
		return redis.NewCheckpointStore(redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Prefix:   cfg.Prefix,
			TTL:      ttl,
		}), nil
	case "postgres":
		if cfg.ConnString == "" {
			return nil, fmt.Errorf("postgres backend requires a conn_string")
		}
		return postgres.NewCheckpointStore(ctx, postgres.Options{
			ConnString: cfg.ConnString,
			TableName:  cfg.TableName,
		})
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		return sqlite.NewCheckpointStore(sqlite.Options{
			Path:      cfg.Path,
			TableName: cfg.TableName,
		})
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}

// Parse decodes a YAML configuration document.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse store config: %w", err)
	}
	return cfg, nil
}

// OpenFile reads a YAML configuration file and opens the backend it
// describes.
func OpenFile(ctx context.Context, path string) (store.CheckpointStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg)
}
