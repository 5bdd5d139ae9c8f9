package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"festival-ticketing/internal/audit"
	"festival-ticketing/internal/config"
	"festival-ticketing/internal/discount"
	"festival-ticketing/internal/events"
	"festival-ticketing/internal/gateway"
	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/mailer"
	ordersdb "festival-ticketing/internal/orders/db"
	paymentapi "festival-ticketing/internal/payment/api"
	"festival-ticketing/internal/recon"
	"festival-ticketing/internal/recon/redislock"
	"festival-ticketing/internal/sse"
	"festival-ticketing/internal/tickets"
	ticketsdb "festival-ticketing/internal/tickets/db"
	"festival-ticketing/internal/tickets/qr"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	appLog := logger.NewLogger()
	defer appLog.Close()

	ctx := context.Background()

	// --- PostgreSQL Setup ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	ordersdb.Migrate(bunDB)

	// --- Redis Setup ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// --- Collaborators ---
	auditStore, err := audit.NewStore(sqldb, appLog)
	if err != nil {
		log.Fatalf("Failed to build audit store: %v", err)
	}

	producer := events.NewProducer(cfg.Kafka, appLog)
	defer producer.Close()

	orderStore := &ordersdb.DB{Bun: bunDB}
	ticketStore := &ticketsdb.DB{Bun: bunDB}
	qrGen := qr.NewGenerator(os.Getenv("QR_SECRET_KEY"))
	ticketService := tickets.NewService(ticketStore, qrGen, appLog)
	discountStore := &discount.Store{Bun: bunDB, Log: appLog}
	smtpMailer := mailer.NewSMTPMailer(cfg.Email, appLog)
	emitter := sse.NewStatusEventEmitter()

	engine := &recon.Engine{
		Orders:   orderStore,
		Tickets:  ticketService,
		Discount: discountStore,
		Mailer:   smtpMailer,
		Events:   producer,
		Audit:    auditStore,
		Lock:     redislock.NewLock(redisClient, cfg.Redis.LockTTL),
		Notify:   emitter,
		Logger:   appLog,
	}

	handler := &paymentapi.Handler{
		Engine:   engine,
		Orders:   orderStore,
		Verifier: gateway.SHA512Verifier{ServerKey: cfg.Gateway.ServerKey},
		Emitter:  emitter,
		Logger:   appLog,
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("SERVER", "Payment service running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("SERVER", "Shutdown signal received. Cleaning up...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLog.Info("SERVER", "Server exited gracefully")
}
