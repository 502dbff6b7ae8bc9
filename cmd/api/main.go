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
	alerthandler "github.com/jwalitptl/msp-alerts/internal/handler/alert"
	"github.com/jwalitptl/msp-alerts/internal/handler/health"
	promhandler "github.com/jwalitptl/msp-alerts/internal/handler/prometheus"
	reminderhandler "github.com/jwalitptl/msp-alerts/internal/handler/reminder"
	"github.com/jwalitptl/msp-alerts/internal/phrase"
	"github.com/jwalitptl/msp-alerts/internal/repository/postgres"
	"github.com/jwalitptl/msp-alerts/internal/router"
	"github.com/jwalitptl/msp-alerts/internal/service/delivery"
	"github.com/jwalitptl/msp-alerts/internal/service/dispatch"
	"github.com/jwalitptl/msp-alerts/internal/service/quiethours"
	"github.com/jwalitptl/msp-alerts/internal/service/subscriber"
	"github.com/jwalitptl/msp-alerts/internal/service/workflow"
	"github.com/jwalitptl/msp-alerts/pkg/messaging"
	"github.com/jwalitptl/msp-alerts/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := app.NewLogger(cfg.Log, "alerts-api")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := app.NewBroker(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("msp", "alerts", prometheus.DefaultRegisterer)

	// Repositories
	base := postgres.NewBaseRepository(db)
	alertRepo := postgres.NewAlertRepository(base)
	subscriptionRepo := postgres.NewSubscriptionRepository(base)
	deliveryRepo := postgres.NewDeliveryRepository(base)
	workflowRepo := postgres.NewWorkflowRepository(base)

	// Channels
	mailer, err := app.NewEmailRegistry(ctx, cfg.Email, log)
	if err != nil {
		log.Fatal(err, "failed to configure email providers")
	}
	smsSender, err := app.NewSMSSender(cfg.SMS, log)
	if err != nil {
		log.Fatal(err, "failed to configure SMS")
	}

	// Services
	quiet, err := quiethours.New(cfg.Dispatch.FallbackTimezone, log, m)
	if err != nil {
		log.Fatal(err, "invalid quiet hours configuration")
	}
	dispatcher := dispatch.NewService(dispatch.Dependencies{
		Alerts:     alertRepo,
		Resolver:   subscriber.NewResolver(subscriptionRepo, log),
		QuietHours: quiet,
		Recorder:   delivery.NewRecorder(deliveryRepo, cfg.Recorder.AlertAfter, log, m),
		Realtime:   messaging.NewAdminBroadcaster(broker, cfg.Redis.AdminChannel),
		Email:      mailer,
		SMS:        smsSender,
		Phrases:    phrase.NewStaticTable(),
	}, dispatch.Config{
		Concurrency:   cfg.Dispatch.Concurrency,
		StaffLocale:   cfg.Dispatch.StaffLocale,
		DefaultLocale: cfg.Dispatch.DefaultLocale,
		From:          cfg.Email.From,
	}, log, m)

	gin.SetMode(gin.ReleaseMode)
	r := router.NewRouter(
		router.RouterConfig{
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			TimeoutExempt: []string{"/api/v1/alerts/:id/dispatch"},
			MetricsPrefix: "msp_alerts",
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
		[]router.Handler{
			alerthandler.NewHandler(dispatcher, deliveryRepo),
			reminderhandler.NewHandler(nil, workflow.NewCompletion(workflowRepo, log)),
		},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting API server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
