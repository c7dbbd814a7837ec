package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillz/pkg/api"
	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/presenter"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	Host string
	Port int
}

// NewServeConfig creates a new ServeConfig with default values
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host: "localhost",
		Port: 8080,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the skills over a JSON HTTP API",
	Long: `Start a local HTTP server exposing the skills:

  GET  /healthz
  GET  /api/skills
  POST /api/skills/{name}

The server will be available at http://localhost:8080 by default.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getServeConfigFromFlags(cmd)
		runServeCommand(ctx, config)
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the API server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the API server to")
}

// getServeConfigFromFlags extracts serve configuration from command flags
func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}

	return config
}

// validateServeConfig validates the serve configuration
func validateServeConfig(config *ServeConfig) error {
	if config.Host == "" {
		return errors.New("host cannot be empty")
	}

	if config.Host != "localhost" && config.Host != "0.0.0.0" {
		if ip := net.ParseIP(config.Host); ip == nil {
			if strings.Contains(config.Host, " ") || strings.Contains(config.Host, ":") {
				return errors.Errorf("invalid host: %s", config.Host)
			}
		}
	}

	if config.Port < 1 || config.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}

	if config.Port < 1024 {
		logger.G(context.Background()).WithField("port", config.Port).Warn("using privileged port (< 1024) may require elevated permissions")
	}

	return nil
}

// runServeCommand starts the API server and blocks until interrupted
func runServeCommand(ctx context.Context, config *ServeConfig) {
	if err := validateServeConfig(config); err != nil {
		presenter.Error(err, "invalid server configuration")
		exit(ctx, 1)
	}

	logger.G(ctx).WithFields(map[string]any{
		"host": config.Host,
		"port": config.Port,
	}).Info("Starting skills API server")

	state := mustState(ctx)
	server, err := api.NewServer(ctx, &api.ServerConfig{Host: config.Host, Port: config.Port}, state)
	if err != nil {
		presenter.Error(err, "failed to create API server")
		exit(ctx, 1)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	presenter.Info("Press Ctrl+C to stop the server")

	if err := server.Start(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("API server error")
		presenter.Error(err, "API server failed")
		exit(ctx, 1)
	}

	presenter.Success(fmt.Sprintf("API server on %s:%d stopped", config.Host, config.Port))
}
