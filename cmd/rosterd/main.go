// @title Roster Dashboard API
// @version 1.0
// @description Animator dashboard over the roster service: events, attendance, payments, registrations, messages and the member picker.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the dashboard token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mjpery-beep/mj-member-sub014/config"
	_ "github.com/mjpery-beep/mj-member-sub014/docs"
	"github.com/mjpery-beep/mj-member-sub014/internal/adapters/auth"
	"github.com/mjpery-beep/mj-member-sub014/internal/adapters/email"
	"github.com/mjpery-beep/mj-member-sub014/internal/adapters/rosterapi"
	deliveryhttp "github.com/mjpery-beep/mj-member-sub014/internal/delivery/http"
	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/controllers"
	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/middleware"
	"github.com/mjpery-beep/mj-member-sub014/internal/domain"
	"github.com/mjpery-beep/mj-member-sub014/internal/metrics"
	"github.com/mjpery-beep/mj-member-sub014/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := config.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("rosterd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Info("effective config",
		"env", cfg.Environment,
		"port", cfg.Port,
		"roster_api_url", cfg.RosterAPIURL,
		"request_timeout", cfg.RequestTimeout,
		"picker_per_page", cfg.PickerPerPage,
		"email_provider", cfg.Email.Provider,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}
	messages := services.NewMessageService(mailer, email.NewTemplateRenderer(), logger)

	var issuer domain.TokenIssuer
	if cfg.RosterAPISecret != "" {
		issuer = auth.NewJWTIssuer(cfg.RosterAPISecret)
	} else {
		logger.Warn("ROSTER_API_SECRET is not set; roster requests are sent without a token")
	}
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	dashboardCfg := services.DashboardConfig{
		Timeout:               cfg.RequestTimeout,
		LockedPaymentMethods:  cfg.LockedPaymentMethods,
		PickerPerPage:         cfg.PickerPerPage,
		PickerDebounce:        cfg.PickerDebounce,
		PickerScrollThreshold: cfg.PickerScrollThreshold,
	}
	sessions := services.NewSessionStore(func(animatorID string) domain.DashboardService {
		sessionLogger := logger.With("animator_id", animatorID)
		gateway := rosterapi.NewClient(httpClient, rosterapi.Config{
			BaseURL:    cfg.RosterAPIURL,
			AnimatorID: animatorID,
			TokenTTL:   cfg.RosterAPITokenTTL,
		}, issuer, sessionLogger, m)
		return services.NewDashboard(gateway, messages, sessionLogger, m, dashboardCfg)
	}, logger)

	if cfg.DashboardJWTSecret == "" {
		return errors.New("DASHBOARD_JWT_SECRET is required")
	}
	requireAuth := middleware.RequireAuth(auth.NewJWTVerifier(cfg.DashboardJWTSecret), logger)

	router := deliveryhttp.NewRouter(
		controllers.NewDashboardController(logger, sessions),
		controllers.NewPickerController(logger, sessions),
		requireAuth,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)
	handler := middleware.LoggingMiddleware(logger, middleware.CORS(cfg.CORSAllowedOrigins, router))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("rosterd exiting")
	return nil
}
