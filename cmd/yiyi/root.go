package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yiyi-hq/gateway/pkg/cli"
	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yiyi",
		Short: "YiYi - WebSocket chat gateway for LLM providers",
		Long: `YiYi relays chat turns from WebSocket clients to LLM providers.

Each connection keeps a bounded conversation history. A turn is sent to the
primary model and, if that fails, to each fallback in order until one
answers.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigPath(), "config file path (.yaml, .toml or .json)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	cmd.AddCommand(newGatewayCmd(), newChatCmd(), newConfigCmd(), newVersionCmd())
	return cmd
}

// Execute runs the root command and exits with the code its error maps to.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.NewPrinter(nil, os.Stderr).Error("%v", err)
		os.Exit(cli.ExitCode(err))
	}
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:          level,
		Format:         cfg.Logging.Format,
		AddSource:      cfg.Logging.AddSource,
		Redact:         cfg.Logging.RedactEnabled(),
		RedactPatterns: cfg.Logging.RedactPatterns,
		Dir:            config.ExpandHome(cfg.Logging.Dir),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
