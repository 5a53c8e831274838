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

	"github.com/ignite/klaviyo-audit/internal/analysis"
	"github.com/ignite/klaviyo-audit/internal/api"
	"github.com/ignite/klaviyo-audit/internal/config"
	"github.com/ignite/klaviyo-audit/internal/export"
	"github.com/ignite/klaviyo-audit/internal/notify"
	"github.com/ignite/klaviyo-audit/internal/pricing"
	"github.com/ignite/klaviyo-audit/internal/segcache"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

// buildCache picks the segment cache backend: Redis when configured,
// otherwise in-process memory (segment ids are then lost on restart).
func buildCache(cfg config.CacheConfig) segcache.Store {
	if cfg.RedisURL == "" {
		log.Println("No REDIS_URL configured; using in-memory segment cache")
		return segcache.NewMemory()
	}

	store, err := segcache.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Printf("Invalid REDIS_URL (%v); falling back to in-memory segment cache", err)
		return segcache.NewMemory()
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		log.Printf("Redis unreachable (%v); falling back to in-memory segment cache", err)
		return segcache.NewMemory()
	}

	log.Println("Segment cache backed by Redis")
	return store
}

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Pricing table: built-in tiers unless a YAML override is configured
	table, err := pricing.LoadTable(cfg.Pricing.TablePath)
	if err != nil {
		log.Fatalf("Failed to load pricing table: %v", err)
	}
	log.Printf("Pricing table version %s loaded (%d tiers)", table.Version, len(table.Tiers))

	cache := buildCache(cfg.Cache)

	webhook := notify.NewWebhook(cfg.Notify.WebhookURL)
	if cfg.Notify.WebhookURL != "" {
		log.Println("Completion webhook notifications enabled")
	}

	orchestrator := analysis.NewOrchestrator(table, cache, webhook, analysis.Options{
		CreationPause: cfg.Analysis.CreationPause(),
		InitialWait:   cfg.Analysis.InitialWait(),
		PollInterval:  cfg.Analysis.PollInterval(),
		MaxPolls:      cfg.Analysis.MaxPolls,
		DeleteTotal:   !cfg.Analysis.KeepTotalSegment,
	})
	exporter := export.NewExporter(cache, export.Options{
		PageSize: cfg.Export.PageSize,
		MaxRows:  cfg.Export.MaxRows,
	})

	handlers := api.NewHandlers(cfg, orchestrator, exporter)
	server := api.NewServer(cfg.Server, handlers)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
