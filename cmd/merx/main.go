// -----------------------------------------------------------------------
// merx - background price discovery service
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/merx/internal/app"
	"github.com/ternarybob/merx/internal/common"
)

var (
	configFile   = flag.String("config", "", "Configuration file path")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Merx version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup order: config, logger, banner, services
	configPath := *configFile
	if configPath == "" {
		configPath = *configFileC
	}
	if configPath == "" {
		if _, err := os.Stat("merx.toml"); err == nil {
			configPath = "merx.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("environment", config.Environment).
		Str("storage_path", config.Storage.Badger.Path).
		Str("default_provider", config.LLM.DefaultProvider).
		Msg("Starting merx")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build services")
		os.Exit(1)
	}

	if err := application.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
		os.Exit(1)
	}

	logger.Info().Msg("Merx running; press Ctrl+C to stop")
	<-ctx.Done()

	logger.Info().Msg("Shutdown signal received")
	if err := application.Stop(); err != nil {
		logger.Error().Err(err).Msg("Shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info().Msg("Shutdown complete")
}
