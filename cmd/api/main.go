package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

type rootFlags struct {
	config string
	addr   string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "fintrack",
		Short:         "Personal finance API server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.config, "config", os.Getenv("CONFIG"), "Path to a JSON config file")
	root.Flags().StringVar(&flags.addr, "addr", "", "Listen address (overrides PORT)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the statement import worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	serveCmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (overrides PORT)")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema and job queue migrations, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), flags)
		},
	}

	var analyzeOut string
	analyzeCmd := &cobra.Command{
		Use:   "analyze <statement.pdf>",
		Short: "Extract the expenses of a statement PDF and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if analyzeOut != "" {
				f, err := os.Create(analyzeOut)
				if err != nil {
					return codeError(3, "creating output: %s", err)
				}
				defer f.Close()
				out = f
			}
			return runAnalyze(cmd.Context(), flags, args[0], out)
		},
	}
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "Write output to file instead of stdout")

	root.AddCommand(serveCmd, migrateCmd, analyzeCmd)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
