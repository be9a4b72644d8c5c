package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/customer-alerts/internal/api"
	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/datanorm"
	"github.com/ignite/customer-alerts/internal/pkg/logger"
	"github.com/ignite/customer-alerts/internal/runner"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s is already in use: %v\n  Hint: run 'lsof -i %s' to find the blocking process", addr, err, addr)
	}
	return ln.Close()
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Customer Alerts Server (cmd/server/main.go)              ║")
	log.Println("║  Engagement priority worklists over HTTP                  ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	configPath := os.Getenv("ALERTS_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.RedactPII != nil {
		logger.SetRedactPII(*cfg.Log.RedactPII)
	}

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		log.Fatalf("Cannot start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		client redis.Cmdable
		pinger api.Pinger
	)
	if cfg.Redis.Addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rc.Close()
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rc.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis at %s unreachable: %v", cfg.Redis.Addr, err)
		} else {
			log.Printf("Redis connected: %s", cfg.Redis.Addr)
		}
		pingCancel()
		client = rc
		pinger = api.PingFunc(func(ctx context.Context) error { return rc.Ping(ctx).Err() })
	} else {
		log.Println("Redis not configured: meta cache off, run lock is process-local")
	}

	deps, err := runner.FromConfig(ctx, cfg, client)
	if err != nil {
		log.Fatalf("Failed to configure runner: %v", err)
	}
	defer deps.Close()

	var meta api.MetaLookup
	if deps.Cache != nil {
		meta = deps.Cache
	}
	server := api.NewServer(cfg.Server,
		api.NewHandlers(deps.Runner, meta),
		api.NewHealthChecker(pinger, deps.Runner))

	// Score once at startup so lookups work before the first POST /api/runs.
	go func() {
		if _, err := deps.Runner.Run(ctx, datanorm.Day(time.Now())); err != nil {
			logger.Warn("startup run failed", "error", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
