package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edly-io/nodebb-sync/internal/config"
)

func init() { //nolint: gochecknoinits
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "toml", "output format: toml or json")

	configCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	dumpFormat string

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration after env overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err //nolint:wrapcheck
			}

			var out string

			switch dumpFormat {
			case "toml":
				out, err = config.DumpConfig(&cfg)
			case "json":
				out, err = config.DumpConfigJSON(&cfg)
			default:
				return fmt.Errorf("unknown format %q", dumpFormat)
			}

			if err != nil {
				return err //nolint:wrapcheck
			}

			cmd.Print(out)

			return nil
		},
	}
)
