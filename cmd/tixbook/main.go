package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	_ "github.com/kirinyoku/tix-booking/docs"
	"github.com/kirinyoku/tix-booking/internal/app"
	"github.com/kirinyoku/tix-booking/internal/config"
)

// @title TixBook API
// @version 1.0
// @description Ticket booking for a single event: tiers, manual payment review and operator approval.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		logger.Error("application finished with error", "error", runErr)
	}

	if err := application.Close(ctx); err != nil {
		logger.Error("failed to release resources", "error", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
