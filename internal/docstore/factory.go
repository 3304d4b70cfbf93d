package docstore

import (
	"carecore/internal/infra/docstore/memory"
	"carecore/internal/infra/docstore/postgres"
	"carecore/internal/infra/docstore/redis"
	"carecore/internal/infra/docstore/sqlite"
	"context"
	"fmt"
	"strings"
)

// Config selects and parameterises a document store driver.
type Config struct {
	Driver      Driver `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// Open builds the Store described by cfg. An empty driver selects sqlite.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(string(cfg.Driver))))
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		s, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverRedis:
		s, err := redis.New(ctx, redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Prefix: cfg.RedisPrefix})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown docstore driver %q", cfg.Driver)
	}
}
