package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sagarc03/servekit/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "servekit",
	Short:   "Static file server with conditional and range requests",
	Long: `servekit serves a directory over HTTP with ETag and Last-Modified
validation, byte range requests and content negotiated error responses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("error loading env file", "file", envFile, "err", err)
		}

		configFiles, _ := cmd.Flags().GetStringSlice("config")
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, merged left to right (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: SERVEKIT_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json (env: SERVEKIT_LOG_FORMAT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
