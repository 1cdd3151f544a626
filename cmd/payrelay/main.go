package main

import (
	"fmt"
	"os"

	"payrelay/config"
	"payrelay/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "payrelay",
		Short:         "payrelay - merchant gateway and payment orchestrator",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(orchestratorCmd(&configPath))
	rootCmd.AddCommand(merchantCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the service logger.
func bootstrap(configPath, service string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(service, cfg.Log.Level, cfg.Log.Pretty)

	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode, gin.DebugMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		log.Warn().Str("mode", cfg.Server.Mode).Msg("unknown server mode, using debug")
		gin.SetMode(gin.DebugMode)
	}

	return cfg, log, nil
}
