package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnlink-server/internal/config"
	"learnlink-server/internal/handler"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// Wiring
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := config.NewContainer(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialise backends: %v", err)
	}

	// start server
	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           handler.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr,
			"documentStore", container.Config.GetDocumentStore(),
			"objectStore", container.Config.GetObjectStore(),
			"generativeProvider", container.Config.GetGenerativeProvider())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown failed", err)
	}
	if err := container.Close(shutdownCtx); err != nil {
		container.Logger.Error("Failed to close backends", err)
	}

	container.Logger.Info("Server exited")
}
