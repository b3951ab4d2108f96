// Command main is the entry point for the GiftFeed backend server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giftfeed/internal/bootstrap"
	"giftfeed/internal/config"
	"giftfeed/internal/mail"
	"giftfeed/internal/observability"
	"giftfeed/internal/push"
	"giftfeed/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "giftfeed-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.SamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	// Connect DB and Redis, seed built-in taxonomies
	db, redisClient, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	// Push delivery is optional; without credentials, notifications are
	// inbox-only.
	var sender push.Sender
	if cfg.FCMCredentialsFile != "" {
		fcm, err := push.NewFCMSender(ctx, cfg.FCMCredentialsFile)
		if err != nil {
			log.Fatalf("Failed to initialize push sender: %v", err)
		}
		sender = fcm
	} else {
		log.Println("FCM credentials not configured; push delivery disabled")
	}

	srv, err := server.NewServerWithDeps(cfg, db, redisClient, mail.NewSMTPMailer(cfg), sender)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
