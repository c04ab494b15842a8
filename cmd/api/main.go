package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/yigit/enrollment/internal/bootstrap"
	"github.com/yigit/enrollment/internal/pkg/logger"
	"github.com/yigit/enrollment/internal/server"
)

// @title Course Enrollment API
// @version 1.0
// @description Course selection and drop with capacity enforcement
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	configPath := pflag.StringP("config", "c", bootstrap.DefaultConfigPath, "path to the YAML configuration file")
	pflag.Parse()

	srv, err := server.NewServer(*configPath)
	if err != nil {
		// Error details are logged within NewServer's setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
