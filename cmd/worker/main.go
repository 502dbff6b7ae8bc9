package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/msp-alerts/internal/app"
	"github.com/jwalitptl/msp-alerts/internal/config"
	"github.com/jwalitptl/msp-alerts/internal/handler/health"
	promhandler "github.com/jwalitptl/msp-alerts/internal/handler/prometheus"
	reminderhandler "github.com/jwalitptl/msp-alerts/internal/handler/reminder"
	"github.com/jwalitptl/msp-alerts/internal/repository/postgres"
	"github.com/jwalitptl/msp-alerts/internal/router"
	"github.com/jwalitptl/msp-alerts/internal/service/reminder"
	"github.com/jwalitptl/msp-alerts/internal/service/workflow"
	"github.com/jwalitptl/msp-alerts/pkg/messaging"
	"github.com/jwalitptl/msp-alerts/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := app.NewLogger(cfg.Log, "reminder-worker")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	broker, err := app.NewBroker(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	m := metrics.NewMetrics("msp", "reminders", prometheus.DefaultRegisterer)

	base := postgres.NewBaseRepository(db)
	notifier := workflow.NewNotifier(messaging.NewAdminBroadcaster(broker, cfg.Redis.AdminChannel), log)

	scheduler := reminder.New(
		postgres.NewWorkflowRepository(base),
		postgres.NewPolicyRepository(base),
		notifier,
		notifier,
		reminder.Config{
			Interval:             cfg.Scheduler.Interval,
			BatchSize:            cfg.Scheduler.BatchSize,
			AckReminderCeiling:   cfg.Scheduler.AckReminderCeiling,
			StartReminderCeiling: cfg.Scheduler.StartReminderCeiling,
			Backoff:              cfg.Scheduler.ReminderBackoff,
		},
		log,
		m,
	)

	gin.SetMode(gin.ReleaseMode)
	r := router.NewRouter(
		router.RouterConfig{
			Timeout:       5 * time.Second,
			MetricsPrefix: "msp_reminders",
			Registerer:    prometheus.DefaultRegisterer,
		},
		log,
		[]router.RootHandler{
			health.NewHandler(map[string]health.Check{
				"database": db.PingContext,
				"redis":    broker.Ping,
			}),
			promhandler.New(prometheus.DefaultGatherer),
		},
		[]router.Handler{reminderhandler.NewHandler(scheduler, nil)},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.HealthPort),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "Health check server failed")
		}
	}()

	scheduler.Start(ctx)

	<-ctx.Done()
	log.Info("Shutting down...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "health server forced to shutdown")
	}
}
