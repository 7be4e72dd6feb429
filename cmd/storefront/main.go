package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/storefront/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	config  string
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "storefront",
		Short: "Client-side navigation core for the bookstore storefront",
		Long: `storefront resolves navigation targets against the bookstore route table.

It matches paths to nested routes, binds named view slots, defers lazily
loaded views until they are needed, and redirects unauthenticated visitors
away from protected pages.

Configuration is read from storefront.json in the current directory (or the
file given with --config) and STOREFRONT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Path to storefront.json or its directory")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug output")

	rootCmd.AddCommand(
		routesCmd(flags),
		resolveCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
