/*
Package main is the entry point for the Reef Chat server.

It is responsible for loading configuration, initializing the global logging system,
wiring the WebSocket transport and the chat server in shared mode, setting up the
HTTP server, and gracefully handling operating system interrupt signals (SIGINT,
SIGTERM) to ensure a smooth shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reefchat/internal/chat"
	"reefchat/internal/configs"
	"reefchat/internal/handler"
	"reefchat/internal/pkg/logx"
	"reefchat/internal/transport/ws"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("echo_to_sender", cfg.EchoToSender).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The transport is owned here and shared with the chat server: the HTTP
	// listener below serves the upgrade endpoint alongside the admin API.
	tr := ws.NewServer(ws.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Development:    cfg.Environment == "development",
		Logger:         logx.Component("transport"),
	})
	if err := tr.Open(0); err != nil {
		logx.Fatal(err, "Failed to open transport")
	}

	chatServer := chat.NewServer(tr, chat.Options{
		ServerPassword: cfg.ServerPassword,
		EchoToSender:   cfg.EchoToSender,
		Logger:         logx.Component("chat"),
	})
	if err := chatServer.Open(); err != nil {
		logx.Fatal(err, "Failed to open chat server")
	}

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		ChatServer: chatServer,
		Transport:  tr,
		Config:     cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Reef Chat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	if err := chatServer.Close(); err != nil {
		logx.Error(err, "Chat server shutdown reported an error")
	}
	if err := tr.Close(); err != nil {
		logx.Error(err, "Transport shutdown reported an error")
	}

	logx.Info("Server gracefully stopped.")
}
