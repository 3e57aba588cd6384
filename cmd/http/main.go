package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopdemo/order-service/internal/config"
	"shopdemo/order-service/internal/handler"
	"shopdemo/order-service/internal/repository"
	"shopdemo/order-service/internal/service"
	"shopdemo/order-service/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. Setup Telemetry (no-op without an OTLP endpoint)
	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "order-service")
	if err != nil {
		log.Fatalf("Failed to setup telemetry: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("Telemetry shutdown: %v", err)
		}
	}()

	// 3. Setup Database
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	fmt.Println("Connected to database")

	// 4. Setup Logic
	repo := repository.NewOrderRepository(dbPool)

	// Seed the order id sequence past existing rows so a restarted
	// process does not reuse ids.
	maxID, err := repo.MaxOrderID(ctx)
	if err != nil {
		log.Fatalf("Failed to read max order id: %v", err)
	}
	seq := service.NewOrderSequence(maxID)

	svc := service.NewOrderService(repo, seq)
	h := handler.NewHandler(handler.NewOrderHandler(svc))

	// 5. Setup Server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: h,
	}

	// 6. Run Server with Graceful Shutdown
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Printf("Starting server on port %s\n", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 2)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-quit:
			fmt.Println("Shutting down server...")
		case <-gctx.Done():
			return gctx.Err()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	fmt.Println("Server exiting")
}
