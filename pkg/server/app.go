package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockCast/internal/handler/api"
	"StockCast/internal/scheduler"
	"StockCast/internal/usecase"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/queue"
)

// Closer is a named resource released at shutdown.
type Closer struct {
	Name string
	io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	inventory  *usecase.InventoryUseCase
	scheduler  *scheduler.Scheduler
	consumer   *pkgkafka.Consumer
	queue      *queue.RedisQueue
	hub        *api.AlertHub
	closers    []Closer
}

// New creates a new App. consumer and queue are nil when Kafka or the job
// queue is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	inventory *usecase.InventoryUseCase,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	hub *api.AlertHub,
	closers ...Closer,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		inventory:  inventory,
		scheduler:  sched,
		consumer:   consumer,
		queue:      q,
		hub:        hub,
		closers:    closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.cfg.Forecast.TrainOnStart && a.inventory != nil {
		a.trainOnStart(ctx)
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.log.Error("job queue start error", applogger.Error(err))
			return err
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
		}
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.Shutdown(ctx)
}

// trainOnStart warms the models before serving. Failures only log: the
// endpoints surface the underlying error on their own.
func (a *App) trainOnStart(ctx context.Context) {
	start := time.Now()
	report, err := a.inventory.Train(ctx, false)
	if err != nil {
		a.log.Error("startup training failed", applogger.Error(err))
		return
	}
	a.log.Info("startup training complete",
		applogger.Int("trained", len(report.Trained)),
		applogger.Int("skipped", len(report.Skipped)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
}

// Shutdown stops intake first, then background workers, then releases
// infrastructure clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.queue != nil {
		if err := a.queue.Stop(stopCtx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.hub != nil {
		a.hub.Close()
	}

	for _, c := range a.closers {
		if c.Closer == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
