package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/audit"
	auditRepo "github.com/reservehq/reserve-personnel/internal/audit/postgres"
	"github.com/reservehq/reserve-personnel/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers such as the audit retention sweeper`,
}

var retentionWorkerCmd = &cobra.Command{
	Use:   "retention",
	Short: "Start the audit retention sweeper",
	Long:  `Periodically deletes audit entries older than the configured retention window`,
	Run: func(cmd *cobra.Command, args []string) {
		startRetentionWorker()
	},
}

var sweepInterval time.Duration

func startRetentionWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	log := logger.L()

	if cfg.Audit.RetentionDays <= 0 {
		log.Error("retention worker requires audit.retention_days > 0")
		os.Exit(1)
	}

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		log.Error("failed to init db", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
	if err != nil {
		log.Error("failed to init orm", "error", err)
		os.Exit(1)
	}

	auditService := audit.NewService(auditRepo.NewAuditRepository(gormDB), log, cfg.Audit.RetentionDays)
	sweeper := internal.Actor{ID: 0, Name: "retention-worker", Role: "system"}

	log.Info("retention worker started",
		"retention_days", cfg.Audit.RetentionDays,
		"interval", sweepInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		cutoff := time.Now().UTC().AddDate(0, 0, -cfg.Audit.RetentionDays)
		deleted, err := auditService.Purge(ctx, sweeper, cutoff)
		if err != nil {
			log.Error("retention sweep failed", "error", err)
			return
		}
		log.Info("retention sweep finished", "deleted", deleted, "cutoff", cutoff)
	}

	sweep()
	for {
		select {
		case <-ticker.C:
			sweep()
		case sig := <-sigChan:
			log.Info("retention worker stopping", "signal", sig)
			return
		}
	}
}

func init() {
	retentionWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 24*time.Hour, "time between retention sweeps")
	workerCmd.AddCommand(retentionWorkerCmd)
	rootCmd.AddCommand(workerCmd)
}
