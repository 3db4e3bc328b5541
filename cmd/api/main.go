package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/roda-fin/credit-service/internal/config"
	"github.com/roda-fin/credit-service/internal/handler"
	"github.com/roda-fin/credit-service/internal/integrations/cbr"
	"github.com/roda-fin/credit-service/internal/integrations/userdir"
	"github.com/roda-fin/credit-service/internal/middleware"
	"github.com/roda-fin/credit-service/internal/notify"
	"github.com/roda-fin/credit-service/internal/repository"
	"github.com/roda-fin/credit-service/internal/service"
	"github.com/roda-fin/credit-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Repositories
	creditRepo := repository.NewCreditRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txManager := repository.NewTxManager(db)

	// Integrations
	cbrClient := cbr.NewClient(cfg, logger)
	userClient := userdir.NewClient(cfg, logger)
	sender := email.NewSender(cfg, logger)
	notifier := notify.NewNotifier(userClient, sender, logger)

	// Services
	creditSvc := service.NewCreditService(creditRepo, installmentRepo, txManager, cbrClient, logger)
	paymentSvc := service.NewPaymentService(creditRepo, installmentRepo, paymentRepo, txManager, notifier, logger)

	h := handler.NewHandler(creditSvc, paymentSvc, cbrClient, userClient, logger)

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/key-rate", h.KeyRate).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/credits", h.CreateCredit).Methods("POST")
	authRouter.HandleFunc("/credits", h.GetCredits).Methods("GET")
	authRouter.HandleFunc("/credits/{id:[0-9]+}", h.GetCredit).Methods("GET")
	authRouter.HandleFunc("/credits/{id:[0-9]+}/status", h.UpdateCreditStatus).Methods("PUT")
	authRouter.HandleFunc("/credits/{id:[0-9]+}/approve", h.ApproveCredit).Methods("POST")
	authRouter.HandleFunc("/credits/{id:[0-9]+}/reject", h.RejectCredit).Methods("POST")
	authRouter.HandleFunc("/credits/{id:[0-9]+}/summary", h.CreditSummary).Methods("GET")
	authRouter.HandleFunc("/credits/{id:[0-9]+}/check-status", h.CheckCreditStatus).Methods("GET")
	authRouter.HandleFunc("/credits/{id:[0-9]+}/payments", h.GetCreditPayments).Methods("GET")
	authRouter.HandleFunc("/payments", h.CreatePayment).Methods("POST")
	authRouter.HandleFunc("/payments", h.GetPayments).Methods("GET")
	authRouter.HandleFunc("/payments/summary", h.PaymentSummary).Methods("GET")
	authRouter.HandleFunc("/installments/{id:[0-9]+}/pay", h.PayInstallment).Methods("POST")

	// Scheduled automatic payment sweep
	c := cron.New()
	if _, err := c.AddFunc(cfg.AutoPaymentCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := paymentSvc.ProcessDuePayments(ctx); err != nil {
			logger.WithError(err).Error("Automatic payment sweep failed")
		}
		if err := paymentSvc.NotifyDelinquents(ctx); err != nil {
			logger.WithError(err).Error("Delinquency notification sweep failed")
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule automatic payments: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
