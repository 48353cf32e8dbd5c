package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/oakledger/claimflow/internal/application/service"
	"github.com/oakledger/claimflow/internal/config"
	"github.com/oakledger/claimflow/internal/domain/policy"
	"github.com/oakledger/claimflow/internal/infrastructure/cache"
	"github.com/oakledger/claimflow/internal/infrastructure/persistence/repository"
	"github.com/oakledger/claimflow/internal/infrastructure/persistence/sqlite"
	httpiface "github.com/oakledger/claimflow/internal/interfaces/http"
	"github.com/oakledger/claimflow/internal/voucher"
	"github.com/oakledger/claimflow/pkg/database"
	"github.com/oakledger/claimflow/pkg/utils"
)

func main() {
	// Local overrides from .env, if present
	_ = gotenv.Load()

	configPath := os.Getenv("CLAIMFLOW_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting claimflow approval engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	materiality, err := decimal.NewFromString(cfg.Compliance.MaterialityThreshold)
	if err != nil {
		logger.Fatal("Invalid materiality threshold", zap.Error(err))
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)

	// Repositories
	claimRepo := repository.NewClaimRepository(db.DB, logger)
	chainRepo := repository.NewChainRepository(db.DB, logger)
	ruleRepo := repository.NewRuleRepository(db.DB, logger)
	policyRepo := repository.NewPolicyRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)

	refCache := cache.NewReferenceCache(ruleRepo, policyRepo, logger)

	voucherWriter, err := voucher.NewExcelWriter(cfg.Voucher.OutputDir, cfg.Voucher.CompanyName, logger)
	if err != nil {
		logger.Fatal("Failed to initialize voucher writer", zap.Error(err))
	}

	// Application services
	kvLogger := utils.NewZapKVLogger(logger)
	claimService := service.NewClaimService(claimRepo, chainRepo, historyRepo, refCache, txManager, kvLogger)
	decisionService := service.NewDecisionService(claimRepo, chainRepo, historyRepo, txManager, kvLogger)
	complianceService := service.NewComplianceService(claimRepo, refCache, policy.NewAnalyzer(materiality), kvLogger)
	ruleService := service.NewRuleService(ruleRepo, txManager, refCache, kvLogger)
	policyService := service.NewPolicyService(policyRepo, refCache, kvLogger)
	voucherService := service.NewVoucherService(claimRepo, historyRepo, txManager, voucherWriter, kvLogger)

	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, claimService, decisionService, complianceService, ruleService, policyService, voucherService, kvLogger)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
