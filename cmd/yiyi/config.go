package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"yiyi-hq/gateway/pkg/cli"
	"yiyi-hq/gateway/pkg/config"
	"yiyi-hq/gateway/pkg/routing"
	"yiyi-hq/gateway/pkg/telemetry/logging"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration file",
	}
	cmd.AddCommand(newConfigValidateCmd(), newConfigShowCmd(), newConfigSetPrimaryCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Load the configuration file with environment overrides applied and
report every validation error.

Exit codes:
  0 - configuration is valid
  2 - configuration is invalid or unreadable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := cli.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())

			cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
			if err != nil {
				return cli.NewConfigError(cfgFile, err)
			}

			p.Success("configuration valid: %s", cfgFile)
			if cfg.Model.Primary == "" {
				p.Warn("model.primary is not set; every turn will fail with CONFIG_ERROR")
			}
			if verbose {
				fmt.Fprintf(p.Out(), "  providers: %d\n", len(cfg.Providers))
				fmt.Fprintf(p.Out(), "  chain:     %s\n", strings.Join(append([]string{cfg.Model.Primary}, cfg.Model.Fallbacks...), " -> "))
			}
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := cli.NewFormatter(cli.OutputFormat(format))
			if err != nil {
				return err
			}

			cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
			if err != nil {
				return cli.NewConfigError(cfgFile, err)
			}
			return formatter.FormatTo(cmd.OutOrStdout(), redactConfig(cfg))
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", string(cli.FormatYAML), "output format (yaml, json)")
	return cmd
}

func newConfigSetPrimaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-primary <provider/model>",
		Short: "Set model.primary and save the file",
		Long: `Set model.primary in the configuration file. The previous file is
copied to the backups directory next to it first; the newest 5 backups are
kept. A running gateway picks up the change on its next turn.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := cli.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			ref := args[0]

			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return cli.NewConfigError(cfgFile, err)
			}
			if _, err := routing.ResolveModelRef(ref, cfg); err != nil {
				return cli.NewConfigError(cfgFile, err)
			}

			if raw, err := os.ReadFile(cfgFile); err == nil && strings.Contains(string(raw), "${") {
				p.Warn("${VAR} placeholders in %s are written back with their current values", cfgFile)
			}

			cfg.Model.Primary = ref
			if err := config.Save(cfg, cfgFile); err != nil {
				return err
			}
			p.Success("model.primary set to %s", ref)
			return nil
		},
	}
}

// redactConfig returns a copy of cfg with provider API keys masked.
func redactConfig(cfg *config.Config) *config.Config {
	out := *cfg
	out.Providers = make(map[string]config.ProviderConfig, len(cfg.Providers))
	for name, provider := range cfg.Providers {
		provider.APIKey = logging.RedactAPIKey(provider.APIKey)
		if len(provider.Headers) > 0 {
			headers := make(map[string]string, len(provider.Headers))
			for k, v := range provider.Headers {
				if logging.IsSensitiveKey(k) {
					v = logging.Replacement
				}
				headers[k] = v
			}
			provider.Headers = headers
		}
		out.Providers[name] = provider
	}
	return &out
}
