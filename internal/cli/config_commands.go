package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rescale/witdl/internal/api"
	"github.com/rescale/witdl/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage witdl configuration",
		Long: `Configuration management commands for witdl.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the connection to a server
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for witdl.

The configuration will be saved to ~/.config/witdl/config.csv and the
personal access token, if entered, to ~/.config/witdl/token (mode 0600).

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			configPath := cfgFile
			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", configPath)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Fprintln(out, "witdl Configuration Setup")
			fmt.Fprintln(out, "=========================")
			fmt.Fprintln(out)

			reader := bufio.NewReader(cmd.InOrStdin())
			cfg := config.DefaultConfig()

			cfg.APIVersion = promptLine(reader, out, "REST api-version", cfg.APIVersion)

			fmt.Fprintln(out)
			if promptYesNo(reader, out, "Configure proxy?") {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Proxy Configuration")
				fmt.Fprintln(out, "-------------------")
				fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
				cfg.ProxyMode = promptLine(reader, out, "Proxy mode", "system")

				switch strings.ToLower(cfg.ProxyMode) {
				case "basic", "ntlm":
					cfg.ProxyHost = promptLine(reader, out, "Proxy host", "")
					cfg.ProxyPort = 8080
					if v, err := strconv.Atoi(promptLine(reader, out, "Proxy port", "8080")); err == nil && v > 0 {
						cfg.ProxyPort = v
					}
					cfg.ProxyUser = promptLine(reader, out, "Proxy user (empty for none)", "")
					cfg.NoProxy = promptLine(reader, out, "Hosts to bypass (comma separated)", "")
					cfg.ProxyWarmup = promptYesNo(reader, out, "Warm up the proxy connection before each run?")
				}
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.SaveConfigCSV(cfg, configPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			logger.Info().Str("path", configPath).Msg("Configuration saved")
			fmt.Fprintf(out, "\n✓ Configuration saved to: %s\n", configPath)

			if stdinIsTerminal() {
				token, err := promptSecret("Personal access token (empty to skip): ")
				if err != nil {
					return err
				}
				if token != "" {
					tokenPath := config.GetDefaultTokenPath()
					if err := config.WriteTokenFile(tokenPath, token); err != nil {
						return err
					}
					logger.Info().Str("path", tokenPath).Msg("Token saved")
					fmt.Fprintf(out, "✓ Token saved to: %s\n", tokenPath)
				}
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Test your configuration with: witdl config test --server <url>")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/witdl/config.csv)
  2. .env file and WITDL_* environment variables
  3. Command-line flags (--api-version)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			configPath := cfgFile
			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}

			config.LoadEnv()
			cfg, err := config.LoadConfigCSV(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			config.ApplyEnv(cfg)
			if apiVersion != "" {
				cfg.APIVersion = apiVersion
			}

			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)

			fmt.Fprintln(out, "API Settings:")
			fmt.Fprintf(out, "  API Version:     %s\n", cfg.APIVersion)
			fmt.Fprintf(out, "  Max Retries:     %d\n", cfg.MaxRetries)
			fmt.Fprintf(out, "  Request Timeout: %s\n", cfg.RequestTimeout)
			token, source, err := config.ResolveTokenSource(pat, tokenFile)
			if err != nil {
				fmt.Fprintf(out, "  Token:           <error: %v>\n", err)
			} else if token != "" {
				// Never display any portion of the token
				fmt.Fprintf(out, "  Token:           <set from %s>\n", source)
			} else {
				fmt.Fprintln(out, "  Token:           <not set>")
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Proxy Settings:")
			fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
				fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
			}
			if cfg.ProxyUser != "" {
				fmt.Fprintf(out, "  Proxy User: %s\n", cfg.ProxyUser)
			}
			if cfg.NoProxy != "" {
				fmt.Fprintf(out, "  No Proxy:   %s\n", cfg.NoProxy)
			}
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Configuration file: %s\n", configPath)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			return nil
		},
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the connection to a server",
		Long: `Authorize against a server with the current configuration and token.

Use this to verify your personal access token and network connectivity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()
			cmd.SilenceUsage = true

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := resolveToken()
			if err != nil {
				return err
			}

			client, err := api.NewClient(cfg, token, api.WithWarmupURL(server))
			if err != nil {
				return fmt.Errorf("failed to create API client: %w", err)
			}

			fmt.Fprintf(out, "Authorizing to %s...\n", server)
			conn, err := client.Authorize(GetContext(), server)
			if err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				return err
			}

			logger.Info().Msg("Connection test successful")
			fmt.Fprintln(out, "✓ Connection SUCCESSFUL")
			fmt.Fprintf(out, "  User: %s\n", conn.User.ProviderDisplayName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "Organization or collection URL")
	cmd.MarkFlagRequired("server")

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			configPath := cfgFile
			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(out, "  %s\n\n", configPath)

			if info, err := os.Stat(configPath); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Size:   %d bytes\n", info.Size())
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: witdl config init")
			}
			return nil
		},
	}
}
