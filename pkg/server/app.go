package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockLens/internal/service/ratelimit"
	xhttp "StockLens/pkg/http"
	applogger "StockLens/pkg/logger"
)

// Recorder is the series recorder as seen by the lifecycle: it must drain
// before its backends close.
type Recorder interface {
	Close() error
}

// App owns the HTTP server and every resource that needs an ordered shutdown.
type App struct {
	httpServer *xhttp.Server
	recorder   Recorder
	limiter    *ratelimit.Limiter
	logger     *applogger.Logger
	closers    []namedCloser
	sweepEvery time.Duration
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates the App. Closers registered with AddCloser run after the
// recorder has drained, in registration order.
func New(httpServer *xhttp.Server, recorder Recorder, limiter *ratelimit.Limiter, logger *applogger.Logger) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &App{
		httpServer: httpServer,
		recorder:   recorder,
		limiter:    limiter,
		logger:     logger,
		sweepEvery: time.Minute,
	}
}

// AddCloser registers a resource to close on shutdown. Nil closers are ignored.
func (a *App) AddCloser(name string, c io.Closer) {
	if c == nil {
		return
	}
	a.closers = append(a.closers, namedCloser{name: name, c: c})
}

// Run starts the application and blocks until SIGINT/SIGTERM or a fatal
// server error.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext is Run with the stop condition supplied by ctx.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	if a.limiter != nil {
		go a.sweepLimiter(sweepCtx)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
		a.logger.Error("http server failed", applogger.Error(runErr))
	}
	cancelSweep()

	return errors.Join(runErr, a.shutdown())
}

// shutdown stops intake first, then drains the recorder, then closes backends.
func (a *App) shutdown() error {
	a.logger.Info("shutting down")
	var errs []error

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	// flush aggregated error logs while the kafka producer is still open
	a.logger.RemoveCollector()

	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.logger.Warn("series recorder close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(a.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Sweep(10 * time.Minute); n > 0 {
				a.logger.Debug("rate limiter swept idle clients", applogger.Int("removed", n))
			}
		}
	}
}
