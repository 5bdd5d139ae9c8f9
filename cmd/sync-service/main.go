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

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"festival-ticketing/internal/audit"
	"festival-ticketing/internal/auth"
	"festival-ticketing/internal/config"
	"festival-ticketing/internal/discount"
	"festival-ticketing/internal/events"
	"festival-ticketing/internal/gateway"
	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/mailer"
	ordersdb "festival-ticketing/internal/orders/db"
	"festival-ticketing/internal/recon"
	"festival-ticketing/internal/recon/redislock"
	"festival-ticketing/internal/sweep"
	syncapi "festival-ticketing/internal/sync/api"
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

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

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
	gatewayClient, err := gateway.NewClient(cfg.Gateway, appLog)
	if err != nil {
		log.Fatalf("Failed to build gateway client: %v", err)
	}

	auditStore, err := audit.NewStore(sqldb, appLog)
	if err != nil {
		log.Fatalf("Failed to build audit store: %v", err)
	}

	producer := events.NewProducer(cfg.Kafka, appLog)
	defer producer.Close()
	if cfg.Kafka.Enabled {
		if err := events.EnsureTopicsExist(cfg.Kafka.Brokers, []string{
			cfg.Kafka.Topics.PaymentSettled,
			cfg.Kafka.Topics.PaymentFailed,
		}); err != nil {
			appLog.Warn("KAFKA", "could not ensure topics: "+err.Error())
		}
	}

	orderStore := &ordersdb.DB{Bun: bunDB}
	ticketStore := &ticketsdb.DB{Bun: bunDB}
	qrGen := qr.NewGenerator(os.Getenv("QR_SECRET_KEY"))
	ticketService := tickets.NewService(ticketStore, qrGen, appLog)
	discountStore := &discount.Store{Bun: bunDB, Log: appLog}
	smtpMailer := mailer.NewSMTPMailer(cfg.Email, appLog)

	engine := &recon.Engine{
		Orders:   orderStore,
		Tickets:  ticketService,
		Discount: discountStore,
		Mailer:   smtpMailer,
		Events:   producer,
		Audit:    auditStore,
		Lock:     redislock.NewLock(redisClient, cfg.Redis.LockTTL),
		Logger:   appLog,
	}

	sweeper := sweep.NewSweeper(engine, orderStore, gatewayClient, cfg.Sweep, appLog)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	handler := &syncapi.Handler{
		Engine:  engine,
		Orders:  orderStore,
		Sweeper: sweeper,
		Gateway: gatewayClient,
		Audit:   auditStore,
		Logger:  appLog,
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.AdminMiddleware(cfg.Admin.JWTSecret))

		r.Post("/sync/order/{orderNumber}", handler.SyncOrder)
		r.Post("/sync/order/{orderNumber}/force", handler.ForceSyncOrder)
		r.Post("/sync/orders", handler.SyncOrders)
		r.Get("/sync/order/{orderNumber}/status", handler.OrderStatus)

		r.Post("/admin/order/{orderNumber}/lock", handler.LockOrder)
		r.Post("/admin/order/{orderNumber}/unlock", handler.UnlockOrder)
		r.Post("/admin/order/{orderNumber}/override", handler.OverrideStatus)
		r.Post("/admin/order/{orderNumber}/repair", handler.RepairOrder)
		r.Get("/admin/side-effect-failures", handler.SideEffectFailures)
		r.Post("/admin/orders/cleanup", handler.CleanupOrders)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("SERVER", "Sync service running on "+cfg.Server.Port)
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
