package svc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"coinsnap/internal/cache"
	"coinsnap/internal/config"
	"coinsnap/internal/persistence/snapshot"
	"coinsnap/internal/runner"
	"coinsnap/pkg/ingest"
	"coinsnap/pkg/sources"
)

const (
	pingTimeout = 5 * time.Second
	runLockTTL  = 2 * time.Hour
)

type ServiceContext struct {
	Config  config.Config
	Sources *sources.Config
	Deps    sources.Deps

	DBConn sqlx.SqlConn
	Redis  *redis.Redis

	Sink   ingest.Sink
	Guard  runner.Guard
	Runner *runner.Runner
}

// Options tweak construction for one process.
type Options struct {
	// DryRun keeps rows in memory instead of opening Postgres.
	DryRun bool
}

// NewServiceContext opens the store, builds the upstream clients and wires the
// sink. Outside dry runs an unreachable database is an error.
func NewServiceContext(ctx context.Context, c config.Config, opts Options) (*ServiceContext, error) {
	svc := &ServiceContext{
		Config:  c,
		Sources: c.Sources.Value,
	}
	if svc.Sources == nil {
		return nil, errors.New("svc: sources config not loaded")
	}
	svc.Deps = svc.Sources.Deps()

	if strings.TrimSpace(c.Redis.Host) != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			return nil, fmt.Errorf("svc: redis: %w", err)
		}
		svc.Redis = rds
	}

	if opts.DryRun {
		svc.Sink = &ingest.MemorySink{}
	} else {
		if c.Postgres.DSN == "" {
			return nil, errors.New("svc: postgres dsn is required (Postgres.DSN or DATABASE_URL)")
		}
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		if err := ping(ctx, conn, c.Postgres); err != nil {
			return nil, err
		}
		svc.DBConn = conn
		var sink ingest.Sink = snapshot.NewSink(conn)
		if c.Mirror.Enabled && svc.Redis != nil {
			sink = snapshot.NewMirror(svc.Redis, cache.TTL(c.Mirror.TTL, cache.DefaultLatestTTL)).Wrap(sink)
		}
		svc.Sink = sink
	}

	if svc.Redis != nil {
		svc.Guard = runner.NewRedisGuard(svc.Redis, runLockTTL, fmt.Sprintf("%s:%d", hostname(), os.Getpid()))
	} else {
		svc.Guard = &runner.LocalGuard{}
	}
	svc.Runner = runner.New(svc.Sink, svc.Guard)
	return svc, nil
}

func ping(ctx context.Context, conn sqlx.SqlConn, pc config.PostgresConf) error {
	db, err := conn.RawDB()
	if err != nil {
		return fmt.Errorf("svc: postgres: %w", err)
	}
	if pc.MaxOpen > 0 {
		db.SetMaxOpenConns(pc.MaxOpen)
	}
	if pc.MaxIdle > 0 {
		db.SetMaxIdleConns(pc.MaxIdle)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("svc: postgres ping: %w", err)
	}
	return nil
}

// Jobs builds the named sources, or every enabled one when names is empty.
func (s *ServiceContext) Jobs(names ...string) ([]ingest.Job, error) {
	return s.Sources.BuildJobs(s.Deps, names...)
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "coinsnap"
	}
	return h
}
