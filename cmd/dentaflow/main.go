package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/events"
	v1 "github.com/dmehra2102/prod-golang-projects/dentaflow/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/scheduling"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const metricsNamespace = "dentaflow"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dentaflow",
		Short: "Dental clinic appointment scheduling API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal outside local development.
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas, tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return err
			}
			return database.Migrate(db, log)
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a staff token pair signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			rawID, _ := cmd.Flags().GetString("user-id")
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")

			userID := uuid.New()
			if rawID != "" {
				if userID, err = uuid.Parse(rawID); err != nil {
					return fmt.Errorf("invalid --user-id: %w", err)
				}
			}

			pair, err := auth.NewJWTManager(cfg.JWT).GenerateTokenPair(&domain.Claims{
				UserID: userID,
				Email:  email,
				Role:   domain.Role(role),
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pair)
		},
	}
	cmd.Flags().String("user-id", "", "Subject UUID (random when empty)")
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().String("role", string(domain.RoleReceptionist), "One of admin, dentist, assistant, receptionist")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runServer(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting dentaflow")

	policy, err := scheduling.NewPolicy(cfg.Clinic)
	if err != nil {
		return err
	}
	open, closeAt := policy.Open(), policy.Close()
	closedStart, closedEnd := policy.ClosedInterval()
	log.Info("clinic calendar loaded",
		zap.String("timezone", policy.Location().String()),
		zap.Stringer("opens", open),
		zap.Stringer("closes", closeAt),
		zap.Stringer("closed_from", closedStart),
		zap.Stringer("closed_until", closedEnd),
		zap.Ints("durations", policy.AllowedDurations()),
	)

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(metricsNamespace, reg)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		rp, err := events.NewRabbitPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange)
		if err != nil {
			return err
		}
		publisher = rp
		log.Info("publishing appointment events", zap.String("exchange", cfg.Events.Exchange))
	}
	defer publisher.Close()

	auditSvc := service.NewAuditService(postgres.NewAuditRepository(db), m, log.Named("audit"))
	defer auditSvc.Shutdown()

	appointments := service.NewAppointmentService(
		postgres.NewAppointmentRepository(db),
		postgres.NewPatientRepository(db),
		scheduling.NewValidator(policy),
		auditSvc,
		publisher,
		m,
		log.Named("appointments"),
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterDeps{
		Appointments: appointments,
		Tokens:       auth.NewJWTManager(cfg.JWT),
		RateLimiter:  middleware.NewRateLimiter(cfg.RateLimit),
		Metrics:      m,
		Log:          log.Named("http"),
		Ready:        sqlDB.PingContext,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
