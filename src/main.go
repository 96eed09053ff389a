package main

import (
	"log"
	"log/slog"
	"os"

	"call-session-service/logger"
	"call-session-service/src/config"
	"call-session-service/src/server"
)

func main() {
	cfg := loadConfig()
	setupLogging(cfg)

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Run(); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}

func loadConfig() *config.GlobalConfig {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func setupLogging(cfg *config.GlobalConfig) {
	logger.Init(cfg.LogLevel)

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(slogger)
}
