package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/somalearn/payclaims/internal/api"
	"github.com/somalearn/payclaims/internal/app"
	"github.com/somalearn/payclaims/internal/config"
	"github.com/somalearn/payclaims/internal/domain"
	"github.com/somalearn/payclaims/internal/enrollment"
	"github.com/somalearn/payclaims/internal/methods"
	"github.com/somalearn/payclaims/internal/notify"
	"github.com/somalearn/payclaims/internal/repository"
	"github.com/somalearn/payclaims/internal/submission"
	"github.com/somalearn/payclaims/internal/sweeper"
	"github.com/somalearn/payclaims/internal/verification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Initializing database", zap.String("path", cfg.DBPath))
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to init DB", zap.Error(err))
	}
	defer db.Close()

	// Create repositories.
	claimRepo := repository.NewClaimRepo(db)
	methodRepo := repository.NewMethodRepo(db)

	// External collaborators.
	var enrollTrigger enrollment.Trigger
	if cfg.EnrollmentURL != "" {
		enrollTrigger = enrollment.NewHTTPTrigger(cfg.EnrollmentURL, cfg.EnrollmentToken)
		logger.Info("Enrollment trigger configured", zap.String("url", cfg.EnrollmentURL))
	} else {
		enrollTrigger = enrollment.NewLogTrigger(logger)
		logger.Warn("ENROLLMENT_URL not set, enrollment grants are log-only")
	}
	notifier := notify.NewLogNotifier(logger)

	// Create services.
	submissionSvc := submission.NewService(claimRepo, methodRepo, notifier, logger, cfg.ClaimWindow)
	verificationSvc := verification.NewService(claimRepo, enrollTrigger, notifier, logger)
	methodsSvc := methods.NewService(methodRepo, logger)

	// Seed payment methods if DB is empty.
	count, err := methodRepo.Count()
	if err != nil {
		logger.Fatal("Failed to count payment methods", zap.Error(err))
	}
	if count == 0 {
		logger.Info("Database is empty, seeding payment methods from testdata...")
		if err := seedMethods(methodRepo); err != nil {
			logger.Warn("Failed to seed payment methods", zap.Error(err))
		}
	} else {
		logger.Info("Database already has payment methods, skipping seed",
			zap.Int("count", count))
	}

	// Background expiration sweep, independent of request traffic.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sw := sweeper.New(claimRepo, cfg.SweepInterval, logger)
	sw.Start(ctx)
	defer sw.Stop()

	// Create router.
	router := api.NewRouter(submissionSvc, verificationSvc, methodsSvc,
		[]byte(cfg.JWTSecret), logger)

	logger.Sugar().Infof("Somalearn Payment Claim Reconciliation Service")
	logger.Sugar().Infof("Listening on http://localhost:%s", cfg.Port)
	logger.Sugar().Infof("API base: http://localhost:%s/api/v1", cfg.Port)
	logger.Sugar().Infof("Endpoints:")
	logger.Sugar().Infof("  GET    /api/v1/payment-methods")
	logger.Sugar().Infof("  POST   /api/v1/payment-methods")
	logger.Sugar().Infof("  PATCH  /api/v1/payment-methods/{id}")
	logger.Sugar().Infof("  POST   /api/v1/claims")
	logger.Sugar().Infof("  GET    /api/v1/claims")
	logger.Sugar().Infof("  GET    /api/v1/claims/{id}")
	logger.Sugar().Infof("  POST   /api/v1/claims/{id}/verify")
	logger.Sugar().Infof("  GET    /api/v1/dashboard")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

func seedMethods(repo *repository.MethodRepo) error {
	// Try multiple possible locations for testdata.
	candidates := []string{
		"testdata/methods.json",
		filepath.Join(".", "testdata", "methods.json"),
	}

	// Also try to find relative to the executable.
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "testdata", "methods.json"),
			filepath.Join(dir, "..", "..", "testdata", "methods.json"),
		)
	}

	var data []byte
	var loadErr error
	for _, path := range candidates {
		data, loadErr = os.ReadFile(path)
		if loadErr == nil {
			break
		}
	}
	if loadErr != nil {
		return fmt.Errorf("could not find methods.json in any candidate path: %w", loadErr)
	}

	var seedList []domain.PaymentMethod
	if err := json.Unmarshal(data, &seedList); err != nil {
		return fmt.Errorf("unmarshal methods: %w", err)
	}

	for i := range seedList {
		if err := repo.Insert(&seedList[i]); err != nil {
			return fmt.Errorf("insert method %s: %w", seedList[i].ID, err)
		}
	}
	return nil
}
