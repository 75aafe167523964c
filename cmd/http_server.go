package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/accountrequest"
	accountrequestRepo "github.com/reservehq/reserve-personnel/internal/accountrequest/postgres"
	"github.com/reservehq/reserve-personnel/internal/audit"
	auditRepo "github.com/reservehq/reserve-personnel/internal/audit/postgres"
	"github.com/reservehq/reserve-personnel/internal/auth"
	authRepo "github.com/reservehq/reserve-personnel/internal/auth/postgres"
	"github.com/reservehq/reserve-personnel/internal/core/events"
	"github.com/reservehq/reserve-personnel/internal/personnel"
	personnelRepo "github.com/reservehq/reserve-personnel/internal/personnel/postgres"
	"github.com/reservehq/reserve-personnel/internal/policy"
	policyRepo "github.com/reservehq/reserve-personnel/internal/policy/postgres"
	"github.com/reservehq/reserve-personnel/internal/training"
	trainingRepo "github.com/reservehq/reserve-personnel/internal/training/postgres"
	"github.com/reservehq/reserve-personnel/internal/transport/rest"
	"github.com/reservehq/reserve-personnel/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	GormDB   *gorm.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Config.Server.AllowedOrigins, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	log := logger.L()

	if err := validateAPISpec("./api/openapi.yml"); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Repositories run on GORM over the same connection pool.
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	bus := events.NewEventBus(log)

	auditService := audit.NewService(auditRepo.NewAuditRepository(gormDB), log, config.Audit.RetentionDays)

	tokens := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo.NewUserRepository(gormDB), tokens, auditService, log, config.Security.BCryptCost)

	accountService := accountrequest.NewService(accountrequestRepo.NewAccountRequestRepository(gormDB), auditService, bus, log)
	personnelService := personnel.NewService(personnelRepo.NewPersonnelRepository(gormDB), auditService, log)
	personnelService.RegisterEventHandlers(bus)

	trainingService := training.NewService(trainingRepo.NewTrainingRepository(gormDB), auditService, log)
	policyService := policy.NewService(policyRepo.NewPolicyRepository(gormDB), auditService, log)

	handlers := rest.Handlers{
		Auth:           auth.NewHandler(authService),
		AccountRequest: accountrequest.NewHandler(accountService),
		Personnel:      personnel.NewHandler(personnelService),
		Audit:          audit.NewHandler(auditService),
		Training:       training.NewHandler(trainingService),
		Policy:         policy.NewHandler(policyService),
	}

	return &Dependencies{
		Config:   config,
		Logger:   log,
		DB:       db,
		GormDB:   gormDB,
		Router:   chi.NewRouter(),
		Handlers: handlers,
	}, nil
}

// validateAPISpec fails startup when the served contract does not parse, so a
// broken spec never reaches the Swagger UI.
func validateAPISpec(path string) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return err
	}
	return doc.Validate(loader.Context)
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
