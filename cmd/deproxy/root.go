package main

import (
	"errors"
	"fmt"
	"io/fs"

	configs "go_deproxy/internal/infra/config"
	"go_deproxy/utils"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	// cfg is loaded once by the root command before any subcommand runs.
	cfg *configs.DeproxyConfig
)

var rootCmd = &cobra.Command{
	Use:           "deproxy",
	Short:         "Programmable HTTP test double",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		if err := utils.InitLogger(utils.LogOptions{
			Level: loaded.Log.Level,
			File:  loaded.Log.File,
		}); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config (default: $DEPROXY_CONFIG_PATH or deproxy.<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

// loadConfig reads path, or the environment-resolved file. A missing
// default file is not an error; the built-in defaults apply.
func loadConfig(path string) (*configs.DeproxyConfig, error) {
	loaded, err := configs.LoadDeproxyConfig(path)
	if err == nil {
		return loaded, nil
	}
	if path == "" && errors.Is(err, fs.ErrNotExist) {
		return configs.DefaultDeproxyConfig(), nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}
