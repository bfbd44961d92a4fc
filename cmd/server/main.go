package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/doli-systems/attachment-gateway/cmd/middleware"
	"github.com/doli-systems/attachment-gateway/internal/api"
	"github.com/doli-systems/attachment-gateway/internal/api/handlers"
	"github.com/doli-systems/attachment-gateway/internal/configuration"
	"github.com/doli-systems/attachment-gateway/internal/remote"
	"github.com/doli-systems/attachment-gateway/internal/services"
	"github.com/doli-systems/attachment-gateway/internal/toast"
)

func main() {
	cfg := configuration.Load()

	// The broker is optional; the pipeline works without it.
	events, err := services.ConnectEvents(cfg.NATSURL)
	if err != nil {
		log.Printf("Warning: NATS unavailable, lifecycle events disabled: %v", err)
		events = nil
	}

	client := remote.NewClient(remote.Options{
		BaseURL: cfg.Remote.BaseURL,
		TokenProvider: func(ctx context.Context) string {
			if token := remote.TokenFromContext(ctx); token != "" {
				return token
			}
			return cfg.Remote.SessionToken
		},
	})

	toasts := toast.NewQueue(toast.DefaultDwell)
	registry := services.NewRegistry(cfg.Extensions, client, toasts, events)
	handler := handlers.New(registry, toasts, cfg.ReadOnly)

	setupGracefulShutdown(events, toasts)

	r := gin.Default()
	r.Use(middleware.SessionToken())
	api.RegisterRoutes(r, handler)

	log.Println("Attachment gateway starting on :" + cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupGracefulShutdown(events *services.EventPublisher, toasts *toast.Queue) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down gracefully...")
		toasts.Close()
		events.Close()
		os.Exit(0)
	}()
}
