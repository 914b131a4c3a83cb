// Command assetaudit reports image files no product references and product
// images whose file is missing. With -prune it deletes the unreferenced files
// older than -min-age.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-catalog-service/config"
	"github.com/fekuna/omnipos-catalog-service/internal/asset/audit"
	"github.com/fekuna/omnipos-catalog-service/internal/asset/storage"
	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	prodRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/product/repository"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 1 when the report is not clean.
func run() int {
	prune := flag.Bool("prune", false, "delete image files that no product references")
	asJSON := flag.Bool("json", false, "print the report as JSON on stdout")
	minAge := flag.Duration("min-age", 10*time.Minute, "only prune files last written at least this long ago")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.LoadEnv()

	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     true,
		DisableStacktrace: true,
	})
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(&database.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix)
	if err != nil {
		appLogger.Fatal("Could not open upload directory", zap.Error(err))
	}

	report, err := audit.Run(ctx, store, prodRepoPkg.NewPGRepository(db))
	if err != nil {
		appLogger.Fatal("Audit failed", zap.Error(err))
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			appLogger.Fatal("Could not write report", zap.Error(err))
		}
	}

	appLogger.Info("Audit finished",
		zap.Int("stored", report.Stored),
		zap.Int("records", report.Records),
		zap.Int("external", report.External),
		zap.Strings("orphans", report.Orphans),
		zap.Strings("dangling", report.Dangling),
	)

	if *prune && len(report.Orphans) > 0 {
		removed, err := audit.Prune(ctx, store, report, *minAge, appLogger)
		if err != nil {
			appLogger.Fatal("Prune stopped", zap.Int("removed", removed), zap.Error(err))
		}
		appLogger.Info("Prune finished", zap.Int("removed", removed), zap.Strings("skipped", report.Orphans))
	}

	if !report.Clean() {
		return 1
	}
	return 0
}
