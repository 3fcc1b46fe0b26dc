package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maine/publishing_radio/internal/config"
	"github.com/maine/publishing_radio/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "radio",
	Short:         "Publishing radio: daily audio digest of publishing industry news",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("radio %s (commit: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "configs/radio.yaml", "path to config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig читает .env и YAML и настраивает журнал. Возвращает функцию закрытия журнала.
func loadConfig() (config.Root, func() error, error) {
	config.LoadDotEnv()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Root{}, nil, err
	}

	closeLog, err := logger.Init(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return config.Root{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, closeLog, nil
}
