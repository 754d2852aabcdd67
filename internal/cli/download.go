package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rescale/witdl/internal/api"
	"github.com/rescale/witdl/internal/attachments"
	"github.com/rescale/witdl/internal/config"
	"github.com/rescale/witdl/internal/http"
	"github.com/rescale/witdl/internal/logging"
	"github.com/rescale/witdl/internal/pathutil"
	"github.com/rescale/witdl/internal/progress"
)

// downloadOptions holds the flags of a download run.
type downloadOptions struct {
	server    string
	query     string
	output    string
	flat      bool
	latest    bool
	overwrite bool
}

func addDownloadFlags(cmd *cobra.Command, opts *downloadOptions) {
	cmd.Flags().StringVarP(&opts.server, "server", "s", "", "Organization or collection URL (required)")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Saved query ID, a GUID (required)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output directory (required)")
	cmd.Flags().BoolVar(&opts.flat, "flat", false, "Write all attachments directly into the output directory")
	cmd.Flags().BoolVar(&opts.latest, "latest", false, "Download only the most recent attachment of each work item")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Accepted for compatibility; existing files are always replaced")

	cmd.MarkFlagRequired("server")
	cmd.MarkFlagRequired("query")
	cmd.MarkFlagRequired("output")
}

// validate checks the flags and returns the pipeline options.
func (o *downloadOptions) validate() (attachments.Options, error) {
	var runOpts attachments.Options

	server := strings.TrimSpace(o.server)
	u, err := url.Parse(server)
	if server == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return runOpts, fmt.Errorf("--server must be an http(s) URL, got %q", o.server)
	}

	queryID, err := uuid.Parse(strings.TrimSpace(o.query))
	if err != nil {
		return runOpts, fmt.Errorf("--query must be a query GUID: %w", err)
	}

	if strings.TrimSpace(o.output) == "" {
		return runOpts, fmt.Errorf("--output cannot be empty")
	}
	outputRoot, err := pathutil.ResolveAbsolutePath(o.output)
	if err != nil {
		return runOpts, fmt.Errorf("failed to resolve --output %q: %w", o.output, err)
	}

	runOpts = attachments.Options{
		ServerURL:  server,
		QueryID:    queryID.String(),
		OutputRoot: outputRoot,
		Layout:     attachments.LayoutPerItem,
		Policy:     attachments.PolicyAll,
		Overwrite:  o.overwrite,
	}
	if o.flat {
		runOpts.Layout = attachments.LayoutFlat
	}
	if o.latest {
		runOpts.Policy = attachments.PolicyLatest
	}
	return runOpts, nil
}

// serviceAuthorizer adapts api.Client to attachments.Authorizer.
type serviceAuthorizer struct {
	client *api.Client
}

func (a serviceAuthorizer) Authorize(ctx context.Context, serverURL string) (attachments.Connection, error) {
	conn, err := a.client.Authorize(ctx, serverURL)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func runDownload(cmd *cobra.Command, opts *downloadOptions) error {
	runOpts, err := opts.validate()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	logger := GetLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token, err := resolveToken()
	if err != nil {
		return err
	}

	client, err := api.NewClient(cfg, token, api.WithWarmupURL(runOpts.ServerURL))
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	// Bars share stdout with the progress lines when it is a terminal and
	// fall back to stderr when stdout is redirected.
	barOut := os.Stderr
	if term.IsTerminal(int(os.Stdout.Fd())) {
		barOut = os.Stdout
	}
	ui := progress.NewDownloadUI(barOut, !noProgress, verbose || debug)
	out := ui.LineWriter(cmd.OutOrStdout())
	prevOutput := logger.Output()
	if ui.IsTerminal() {
		// Keep logs above the bars.
		logger.SetOutput(ui.LogWriter())
		logging.SetGlobalOutput(ui.LogWriter())
	}

	logger.Debug().
		Str("server", runOpts.ServerURL).
		Str("query", runOpts.QueryID).
		Str("layout", runOpts.Layout.String()).
		Str("policy", runOpts.Policy.String()).
		Bool("overwrite", runOpts.Overwrite).
		Msg("Starting download")

	pipeline := attachments.NewPipeline(serviceAuthorizer{client: client}, out, logger, ui)
	report, err := pipeline.Run(GetContext(), runOpts)
	ui.Wait()
	if ui.IsTerminal() {
		logger.SetOutput(prevOutput)
		logging.SetGlobalOutput(os.Stderr)
	}
	if err != nil {
		return err
	}

	if report.Status == attachments.RunCompleted && (verbose || debug || len(report.Failures()) > 0) {
		fmt.Fprint(cmd.OutOrStdout(), report.Summary())
	}
	return nil
}

// loadConfig merges the config file, .env, WITDL_* variables and flags, and
// prompts for a proxy password when one is needed.
func loadConfig() (*config.Config, error) {
	config.LoadEnv()

	configPath := cfgFile
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	cfg, err := config.LoadConfigCSV(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(cfg)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if http.NeedsProxyPassword(cfg) && stdinIsTerminal() {
		password, err := promptSecret(fmt.Sprintf("Proxy password for %s@%s: ", cfg.ProxyUser, cfg.ProxyHost))
		if err != nil {
			return nil, err
		}
		cfg.ProxyPassword = password
	}
	return cfg, nil
}

// resolveToken finds the personal access token, prompting as a last resort.
func resolveToken() (string, error) {
	token, source, err := config.ResolveTokenSource(pat, tokenFile)
	if err != nil {
		return "", err
	}
	if token != "" {
		GetLogger().Debug().Str("source", source).Msg("Using personal access token")
		return token, nil
	}

	if !stdinIsTerminal() {
		return "", fmt.Errorf("no personal access token: use --pat, --token-file or set %s", config.EnvAzureDevOpsPAT)
	}
	token, err = promptSecret("Personal access token: ")
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("personal access token cannot be empty")
	}
	return token, nil
}
