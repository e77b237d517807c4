package main

import (
	"log/slog"
	"os"

	"github.com/Lernia/authgate/internal/config"
	"github.com/Lernia/authgate/internal/server"
	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; real environments set variables directly
	_ = godotenv.Load()

	envConfig := config.LoadEnv()

	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := server.Start(cfg, envConfig); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
