package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"campaigner/internal/campaign"
	"campaigner/internal/config"
	"campaigner/internal/httpserver"
	"campaigner/internal/logging"
	"campaigner/internal/observability"
	smtpsender "campaigner/internal/sender/smtp"
	"campaigner/internal/store/pg"
	"campaigner/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadDispatcher()
	logging.Init("dispatcher", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{})
	if err != nil {
		slog.Error("dispatcher db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	st := pg.New(db)

	startupCtx, startupCancel := context.WithTimeout(ctx, 3*time.Second)
	defer startupCancel()
	if err := db.Ping(startupCtx); err != nil {
		slog.Error("db not reachable", "err", err)
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	mailer := &smtpsender.Client{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.FromEmail,
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.SenderRPS), cfg.SenderBurst)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 3,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 10 },
	})

	dispatcher := &campaign.Dispatcher{
		Subjects:       st,
		Templates:      st,
		Queue:          st,
		Sender:         mailer,
		Limiter:        limiter,
		Breaker:        cb,
		SendTimeout:    cfg.SendTimeout,
		MaxSendRetries: cfg.MaxSendRetries,
	}

	// health server (liveness + readiness)
	healthMux := httpserver.New().Mux
	healthMux.HandleFunc("/healthz", httpserver.Healthz())
	healthMux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second,
		func(c context.Context) error { return db.Ping(c) },
	))
	healthSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpserver.Logging(healthMux),
	}

	healthErrCh := make(chan error, 1)
	go func() {
		slog.Info("dispatcher health listening", "port", cfg.Port)
		healthErrCh <- healthSrv.ListenAndServe()
	}()

	// Ticker-driven passes, serialized: a slow pass delays the next tick
	// instead of overlapping it. Overlap with other replicas stays safe
	// through the row-level claim.
	loopErrCh := make(chan error, 1)
	go func() {
		loopErrCh <- runLoop(ctx, dispatcher, cfg.DispatchInterval)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-loopErrCh:
		if err != nil && err != context.Canceled {
			slog.Error("dispatch loop failed", "err", err)
			os.Exit(1)
		}
	case err := <-healthErrCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("dispatcher health server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("dispatcher shutdown", "signal", sig.String())
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	select {
	case <-loopErrCh:
	case <-time.After(10 * time.Second):
		slog.Info("dispatcher shutdown timeout waiting for pass to finish")
	}
}

func runLoop(ctx context.Context, d *campaign.Dispatcher, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runPass(ctx, d)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runPass(ctx, d)
		}
	}
}

func runPass(ctx context.Context, d *campaign.Dispatcher) {
	start := time.Now()
	report, err := d.ProcessDue(ctx, util.NowUTC())
	if err != nil {
		slog.Error("dispatch pass failed",
			"err", err,
			"attempted", report.Attempted,
			"sent", report.Sent,
			"failed", report.Failed,
			"duration", time.Since(start),
		)
		return
	}
	if report.Attempted == 0 {
		slog.Info("dispatch pass: nothing due", "duration", time.Since(start))
		return
	}
	slog.Info("dispatch pass finished",
		"attempted", report.Attempted,
		"sent", report.Sent,
		"failed", report.Failed,
		"duration", time.Since(start),
	)
}
