package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/akarpov/specqa/internal/adapters/mcp"
	"github.com/akarpov/specqa/internal/bootstrap"
	"github.com/akarpov/specqa/internal/config"
	"github.com/akarpov/specqa/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(app.AskUC, app.AskUC, version)
	logger.Info("mcp server starting", "version", version)
	if err := server.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
