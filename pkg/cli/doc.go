/*
Package cli provides terminal helpers shared by the yiyi commands.

Exit codes:

Commands return errors; main maps them to a process exit code with
ExitCode. ConfigError maps to ExitConfig, ExitError carries its own code,
and a cancelled context maps to ExitInterrupted.

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Output:

Printer writes colored status lines through fatih/color, and NewFormatter
prints structured results as text, JSON or YAML.

	p := cli.NewPrinter(nil, nil)
	p.Success("configuration is valid: %s", path)

Signal handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
