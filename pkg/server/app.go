package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"SignalTrader/internal/service/heartbeat"
	"SignalTrader/internal/usecase"
	"SignalTrader/pkg/config"
	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"

	"github.com/sourcegraph/conc"
)

// Closer releases one infrastructure resource on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	runner     *usecase.Runner
	heartbeat  *heartbeat.Emitter
	httpServer *xhttp.Server
	closers    []Closer
}

// New creates a new App. srv may be nil when the ops server is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.Runner,
	hb *heartbeat.Emitter,
	srv *xhttp.Server,
	closers ...Closer,
) *App {
	return &App{
		cfg:        cfg,
		log:        l,
		runner:     runner,
		heartbeat:  hb,
		httpServer: srv,
		closers:    closers,
	}
}

// Run starts the scheduler, heartbeat and ops server and blocks until
// interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext runs until ctx is cancelled, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	var lifecycle conc.WaitGroup

	lifecycle.Go(func() {
		if err := a.runner.Run(ctx); err != nil {
			a.log.Error("runner error", applogger.Error(err))
		}
	})
	lifecycle.Go(func() {
		if err := a.heartbeat.Run(ctx); err != nil {
			a.log.Error("heartbeat error", applogger.Error(err))
		}
	})
	if a.httpServer != nil {
		lifecycle.Go(func() {
			if err := a.httpServer.Start(); err != nil {
				a.log.Error("http server error", applogger.Error(err))
			}
		})
	}

	a.log.Info("signaltrader started",
		applogger.String("environment", a.cfg.Environment),
		applogger.Duration("poll_interval", a.cfg.Scheduler.PollInterval),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	lifecycle.Wait()
	a.release()
	return nil
}

// shutdown stops the ops server. The runner and heartbeat exit on their own
// once the context is done.
func (a *App) shutdown() {
	if a.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
}

// release closes infrastructure clients and finally the log sink.
func (a *App) release() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close failed", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
	a.log.DetachSink()
}
