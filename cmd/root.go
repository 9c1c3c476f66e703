package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tetelio/asset-pipeline/cmd/backend"
	"github.com/tetelio/asset-pipeline/internal/tracing"
)

// Version is set at build time with -ldflags "-X github.com/tetelio/asset-pipeline/cmd.Version=..."
var Version = "dev"

func NewRootCmd(fs afero.Fs, services backend.Services) *cobra.Command {
	cmd, _ := newRootCmd(fs, services)
	return cmd
}

// newRootCmd also returns a func flushing the traces of the run, if tracing got enabled.
func newRootCmd(fs afero.Fs, services backend.Services) (*cobra.Command, func()) {
	var shutdownTracer func(context.Context) error

	cmd := &cobra.Command{
		Use:     "assetpipe",
		Short:   "Asset encryption pipeline",
		Long:    `Downloads media assets, encrypts them with a keyed byte transform, uploads them to S3 and records how long every stage took.`,
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: false,
			HiddenDefaultCmd:  true,
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			shutdownTracer = startTracing(cmd, fs)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.PersistentFlags().String("env-file", ".env", "dotenv file read below the process environment")

	cmd.AddCommand(NewEncryptCmd(fs, services))
	cmd.AddCommand(NewDecryptCmd(fs, services))
	cmd.AddCommand(NewTimingCmd(fs, services))
	cmd.AddCommand(NewVersionCmd())
	cmd.AddCommand(NewAutocompleteCmd())

	flush := func() {
		if shutdownTracer == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			zlog.Sugar().Warnf("Failed to flush traces: %v", err)
		}
	}

	return cmd, flush
}

// startTracing installs the OTLP exporter when a collector endpoint is configured.
func startTracing(cmd *cobra.Command, fs afero.Fs) func(context.Context) error {
	cfg, err := loadConfig(cmd, fs)
	if err != nil || cfg.Tracing.Endpoint == "" {
		// commands report config errors themselves
		return nil
	}

	shutdown, err := tracing.InitTracer(cmd.Context(), tracing.Options{
		Endpoint: cfg.Tracing.Endpoint,
		Insecure: cfg.Tracing.Insecure,
		Version:  Version,
	})
	if err != nil {
		zlog.Sugar().Warnf("Tracing disabled: %v", err)
		return nil
	}
	return shutdown
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, flush := newRootCmd(afero.NewOsFs(), backend.Default{})
	err := root.ExecuteContext(ctx)
	flush()

	// CheckErr prints formatted error message, if there is any, and exits
	cobra.CheckErr(err)
}
