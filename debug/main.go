package main

import (
	"os"

	"github.com/emrgen/suggest/internal/config"
	"github.com/emrgen/suggest/internal/server"
	"github.com/sirupsen/logrus"
)

// debug runs the server against a local sqlite file with verbose logging.
func main() {
	if os.Getenv("LOG_LEVEL") == "" {
		_ = os.Setenv("LOG_LEVEL", "debug")
	}
	if os.Getenv("DATABASE_URL") == "" {
		_ = os.Setenv("DATABASE_URL", "debug.db")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatal(err)
	}
	config.SetupLogging(cfg)

	if err := server.Start(cfg); err != nil {
		logrus.Fatal(err)
	}
}
