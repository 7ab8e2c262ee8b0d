package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxshelf/internal/config"
	"github.com/teemow/inboxshelf/internal/instrumentation"
	"github.com/teemow/inboxshelf/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI.
func SetVersion(v string) {
	version = v
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	debug     bool
	logFormat string
	envFile   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "inboxshelf",
		Short: "Keeps a shelf of newsletter articles from your inbox",
		Long: `inboxshelf saves newsletter emails as HTML articles in a year-partitioned
directory and serves them as a searchable, categorized listing.

  inboxshelf sync     fetch new newsletters from Gmail or IMAP
  inboxshelf serve    browse the library in a web UI
  inboxshelf list     print the catalog in the terminal

Configuration is read from the environment and an optional .env file.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := "info"
			if opts.debug {
				level = "debug"
			}
			slog.SetDefault(logging.NewLogger(cmd.ErrOrStderr(), level, opts.logFormat))
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "inboxshelf version %s\n" .Version}}`)

	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded when present")

	rootCmd.AddCommand(newSyncCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newAuthCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute is the main entry point for the CLI application
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the flags common to the
// library commands.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if f := cmd.Flags().Lookup("blogs"); f != nil && f.Changed {
		cfg.BlogsPath = f.Value.String()
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

const instrumentationShutdownTimeout = 10 * time.Second

// shutdownInstrumentation is swapped in tests.
var shutdownInstrumentation = func(ctx context.Context, p *instrumentation.Provider) error {
	return p.Shutdown(ctx)
}

// startInstrumentation creates the provider from the environment. The
// returned stop func flushes it and must be deferred by the caller.
func startInstrumentation(ctx context.Context, logger *slog.Logger) (*instrumentation.Provider, instrumentation.Config, func(), error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, instrConfig, nil, fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), instrumentationShutdownTimeout)
		defer cancel()
		if err := shutdownInstrumentation(shutdownCtx, provider); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}
	return provider, instrConfig, stop, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inboxshelf version %s\n", version)
		},
	}
}
