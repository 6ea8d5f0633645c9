package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/app"
	"github.com/nekogravitycat/visitor-parking-backend/internal/config"
	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
	"github.com/nekogravitycat/visitor-parking-backend/internal/logger"
)

// env is what every subcommand runs against.
type env struct {
	cfg  *config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
}

func connect(ctx context.Context) (*env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With(zap.String("instance_id", cfg.InstanceID), zap.String("cmd", "parkingctl"))

	pool, err := db.NewPool(ctx, cfg.DBDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	cleanup := func() {
		pool.Close()
		_ = log.Sync()
	}
	return &env{cfg: cfg, log: log, pool: pool}, cleanup, nil
}

// withContainer builds the full service graph and keeps the event bus
// running so published events reach other instances before exit.
func withContainer(ctx context.Context, fn func(ctx context.Context, e *env, c *app.Container) error) error {
	e, cleanup, err := connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := app.NewContainer(ctx, e.cfg, e.pool, e.log)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	busCtx, stopBus := context.WithCancel(ctx)
	busDone := make(chan struct{})
	go func() {
		defer close(busDone)
		if err := c.Bus.Run(busCtx); err != nil && !errors.Is(err, context.Canceled) {
			e.log.Warn("event bus stopped", zap.Error(err))
		}
	}()

	runErr := fn(ctx, e, c)

	// Run flushes the broadcast queue before it returns.
	stopBus()
	<-busDone
	return runErr
}
