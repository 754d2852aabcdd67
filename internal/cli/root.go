// Package cli provides the command-line interface for witdl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rescale/witdl/internal/api"
	"github.com/rescale/witdl/internal/attachments"
	"github.com/rescale/witdl/internal/logging"
)

var (
	// Global flags
	cfgFile    string
	pat        string
	tokenFile  string // Path to file containing the personal access token
	apiVersion string
	verbose    bool
	debug      bool
	noProgress bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information - set by main package at startup
var (
	Version   = "v1.0.0-dev"
	BuildTime = "unknown"
)

// NewRootCmd creates the root command. Running it without a subcommand
// downloads the attachments of a saved query.
func NewRootCmd() *cobra.Command {
	opts := &downloadOptions{}

	rootCmd := &cobra.Command{
		Use:   "witdl --server URL --query ID --output DIR",
		Short: "Download work item attachments returned by a saved query",
		Long: `witdl ` + Version + ` - Built: ` + BuildTime + `
Runs a saved work item query on Azure DevOps or Team Foundation Server and
downloads the file attachments of every work item it returns.

By default each work item gets its own directory below --output and every
attachment is downloaded, newest first. Use --flat to write all files
directly into --output and --latest to download only the most recent
attachment of each work item.

Authentication uses a personal access token, taken from (in order):
--pat, --token-file, ~/.config/witdl/token, AZURE_DEVOPS_EXT_PAT, WITDL_PAT,
or an interactive prompt.`,
		Example: `  witdl -s https://dev.azure.com/contoso -q 6a3c9d1e-0b2f-4c55-9e1a-7f0d2b8c4e11 -o ./attachments
  witdl -s https://tfs.contoso.local/tfs/DefaultCollection -q 6a3c9d1e-0b2f-4c55-9e1a-7f0d2b8c4e11 -o ./out --flat --latest`,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, opts)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&pat, "pat", "", "Personal access token (overrides all other sources)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "Path to file containing the personal access token")
	rootCmd.PersistentFlags().StringVar(&apiVersion, "api-version", "", "REST api-version parameter (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")

	addDownloadFlags(rootCmd, opts)

	rootCmd.Version = Version + " (" + BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for witdl.

QUICK START:

  zsh:
    witdl completion zsh > "${fpath[1]}/_witdl"

  bash:
    witdl completion bash | sudo tee /etc/bash_completion.d/witdl

  fish:
    witdl completion fish > ~/.config/fish/completions/witdl.fish

  PowerShell:
    witdl completion powershell >> $PROFILE`,
	}
	rootCmd.AddCommand(completionCmd)

	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenBashCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenZshCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "powershell",
		Short: "Generate PowerShell completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenPowerShellCompletion(cmd.OutOrStdout())
		},
	})

	// Disable default completion command (we're adding our own above)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// Execute runs the CLI. Errors are printed by their deepest cause.
func Execute() error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	err := execute(NewRootCmd())

	// Clean up signal handler
	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// execute runs cmd and prints a failure, with a hint when one applies, to
// the command's output next to the progress lines.
func execute(cmd *cobra.Command) error {
	err := cmd.Execute()
	if err != nil {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Error: %v\n", attachments.RootCause(err))
		if hint := errorHint(err); hint != "" {
			fmt.Fprintf(out, "Hint: %s\n", hint)
		}
	}
	return err
}

// errorHint suggests what to check for the common failure classes.
func errorHint(err error) string {
	switch {
	case api.IsUnauthorized(err):
		return "check that the personal access token is valid and has the Work Items (Read) scope"
	case api.IsNotFound(err):
		return "check the --query id and that --server includes the organization or collection"
	case attachments.IsAuthError(err):
		return "check --server and the network or proxy settings"
	}
	return ""
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		// Fallback to background context if called before Execute()
		return context.Background()
	}
	return rootContext
}
