package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tetelio/asset-pipeline/cmd/backend"
	"github.com/tetelio/asset-pipeline/pipeline"
	"github.com/tetelio/asset-pipeline/timing"
	"github.com/tetelio/asset-pipeline/transform"
)

func NewDecryptCmd(fs afero.Fs, services backend.Services) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt and verify the encrypted assets",
		Long: `Decrypts every file of the encrypted assets directory, compares it with the
original asset and writes it to the decrypted assets directory only when both
match. A mismatch usually means the key or the rounds changed since encryption.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			timingFile, _ := cmd.Flags().GetString("timing-file")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			cfg, err := loadConfig(cmd, fs)
			if err != nil {
				return err
			}

			engine, err := transform.New(cfg.TransformConfig())
			if err != nil {
				return fmt.Errorf("invalid encryption settings: %w", err)
			}

			registry := services.Metrics()
			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, registry)
				defer stop()
			}
			recorder := timing.NewRecorder(timing.WithObserver(registry))

			decryptor := &pipeline.Decryptor{
				Fs:          fs,
				Transformer: engine,
				Layout:      layout(cfg),
				Recorder:    recorder,
				Metrics:     registry,
				Workers:     cfg.Workers.Transform,
			}

			report, runErr := decryptor.Run(cmd.Context())
			if report == nil {
				return runErr
			}

			if timingFile != "" {
				if err := timing.WriteJSON(fs, timingFile, recorder.Records()); err != nil {
					return err
				}
			}

			printReport(cmd.OutOrStdout(), report)

			if runErr != nil {
				return runErr
			}
			if failed := len(report.Failed()); failed > 0 {
				return fmt.Errorf("%d of %d files failed: %w", failed, len(report.Results), report.Err())
			}
			return nil
		},
	}

	cmd.Flags().String("timing-file", "", "also write the decrypt stage timings to this JSON file")
	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address while running (e.g. :9100)")

	return cmd
}
