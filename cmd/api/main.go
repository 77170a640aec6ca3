package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-runlog/internal/config"
	"backend-runlog/internal/db"
	"backend-runlog/internal/logging"
	"backend-runlog/internal/seed"
	"backend-runlog/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	newLogger       func(level string) *logrus.Logger
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	migrate         func(context.Context, *pgxpool.Pool) error
	seed            func(context.Context, *pgxpool.Pool) (bool, error)
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, *logrus.Logger, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		newLogger:       logging.New,
		connectPostgres: db.ConnectPostgres,
		migrate:         db.Migrate,
		seed:            seedSampleData,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func seedSampleData(ctx context.Context, pg *pgxpool.Pool) (bool, error) {
	return seed.SampleData(ctx, pg)
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	log := deps.newLogger(cfg.LogLevel)
	ctx := context.Background()

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.WithError(err).Error("postgres connection failed")
	}

	if pg != nil {
		if cfg.RunMigrations {
			if err := deps.migrate(ctx, pg); err != nil {
				log.WithError(err).Error("migrations failed")
			}
		}
		if cfg.SeedSampleData {
			seeded, err := deps.seed(ctx, pg)
			if err != nil {
				log.WithError(err).Error("seeding sample data failed")
			} else if seeded {
				log.WithField("username", seed.SampleUsername).Info("sample data seeded")
			}
		}
	}

	rdb := deps.connectRedis(cfg)
	if rdb == nil {
		log.Warn("redis not configured; run events stay in-process and logout cannot revoke access tokens")
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(ctx, cfg, pg, rdb, log, signals, nil); err != nil {
		log.WithError(err).Error("server exited with error")
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(srv *server.Server, ctx context.Context) error {
	return srv.Shutdown(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, log *logrus.Logger, signals <-chan os.Signal, listen ListenFunc) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	// A nil pool must stay a nil interface.
	var q db.Querier
	if pg != nil {
		q = pg
	}
	srv := server.NewServer(cfg, q, rdb, log)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()
	log.WithField("addr", cfg.ServerPort).Info("server starting")

	select {
	case sig := <-signals:
		log.WithField("signal", sig).Info("shutting down")
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv, shutdownCtx); err != nil {
		return err
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
