package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"yiyi-hq/gateway/pkg/cli"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			p := cli.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
			p.Label("YiYi " + Version + "\n")
			fmt.Fprintf(p.Out(), "Git Commit: %s\n", GitCommit)
			fmt.Fprintf(p.Out(), "Build Date: %s\n", BuildDate)
			fmt.Fprintf(p.Out(), "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(p.Out(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
