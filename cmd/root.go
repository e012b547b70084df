package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/sessionhub/config"
	"github.com/xiaoyuanzhu-com/sessionhub/log"
)

// Version is set at build time with -ldflags
var Version = "dev"

var (
	configPath string
	logLevel   string
	jsonOutput bool
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sessionhub",
		Short:         "Track work sessions and sync them across devices",
		Long:          `sessionhub tracks work sessions against local projects, syncs them through a shared folder and exposes a small remote control endpoint.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default $SESSIONHUB_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewSessionCommand())
	rootCmd.AddCommand(NewProjectCommand())
	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewRemoteCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and applies logging settings
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.Configure(cfg.IsDevelopment(), cfg.LogLevel)
	if logLevel != "" {
		log.SetLevel(logLevel)
	}
	return cfg, nil
}
