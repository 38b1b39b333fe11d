// Command touchstone inspects point-cloud datasets and scores segmentation
// predictions, locally or against a running touchstone server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/touchstone3d/semseg/internal/config"
	"github.com/touchstone3d/semseg/internal/dataset"
	"github.com/touchstone3d/semseg/internal/utils/logger"
)

var cfg *config.AppConfig

func rootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "touchstone",
		Short:         "point-cloud segmentation dataset and metrics toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envErr := godotenv.Load()
			logger.Init(logLevel)
			if envErr != nil {
				log.Debug().Msg(".env not loaded; continuing with existing environment")
			}

			var err error
			if cfg, err = config.LoadConfig(); err != nil {
				return fmt.Errorf("load environment configuration: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	root.AddCommand(sampleCmd(), evaluateCmd(), runsCmd())
	return root
}

// classNames resolves class names from MAP_FILE, if one is configured.
func classNames() []string {
	if cfg.MapFile == "" {
		return nil
	}
	cm, err := dataset.LoadClassMap(cfg.MapFile)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.MapFile).Msg("class map not loaded, using class indices")
		return nil
	}
	return cm.Classes
}

func main() {
	defer logger.Sync()
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		logger.Sync()
		os.Exit(1)
	}
}
