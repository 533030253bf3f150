// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/edly-io/nodebb-sync/internal/config"
	"github.com/edly-io/nodebb-sync/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "nodebb-sync",
	Short: "nodebb-sync mirrors platform users, courses and enrollments into a NodeBB forum",
	Long: `nodebb-sync mirrors platform users, courses and enrollments into a NodeBB forum.
Platform events arrive on a webhook and become forum jobs on a retrying queue;
the sync command enqueues whatever the forum is still missing.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var configPath string // directory holding main.toml

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory holding main.toml")
}

// loadConfig reads the configuration and initialises the global logger from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return config.Config{}, err //nolint:wrapcheck
	}

	if err = logger.Init(cfg.Log); err != nil {
		return config.Config{}, err //nolint:wrapcheck
	}

	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
