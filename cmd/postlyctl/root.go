package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/editor/composer"
	"github.com/debemdeboas/postly/internal/editor/draft"
	"github.com/debemdeboas/postly/internal/logger"
	"github.com/debemdeboas/postly/internal/rpc"
)

const defaultServerURL = "http://localhost:12600"

var (
	serverURL  string
	configPath string
	logLevel   string

	ctlLogger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "postlyctl",
	Short: "Manage a Postly blog from the command line",
	Long: `postlyctl imports Markdown and HTML into a running Postly server,
lists what is published and clears stored drafts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		l := logger.New(logLevel)
		ctlLogger = logger.Component(l, "postlyctl")
		config.SetLogger(logger.Component(l, "config"))
		composer.SetLogger(logger.Component(l, "composer"))
		draft.SetLogger(logger.Component(l, "draft"))
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr(config.EnvPrefix+"SERVER", defaultServerURL), "Base URL of the Postly server")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", envOr(config.EnvPrefix+"CONFIG", "config.yaml"), "Configuration file, used by commands that touch local stores")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func newClient() *rpc.Client {
	return rpc.NewClient(serverURL)
}

// loadConfig reads the configuration file with environment overrides.
func loadConfig() (*config.Config, error) {
	if err := config.LoadConfig(configPath); err != nil {
		return nil, err
	}
	return config.AppConfig, nil
}
