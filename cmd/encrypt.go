package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tetelio/asset-pipeline/cmd/backend"
	"github.com/tetelio/asset-pipeline/metrics"
	"github.com/tetelio/asset-pipeline/pipeline"
	"github.com/tetelio/asset-pipeline/storage"
	"github.com/tetelio/asset-pipeline/timing"
	"github.com/tetelio/asset-pipeline/transform"
	"github.com/tetelio/asset-pipeline/utils"
)

// defaultAssetURLs are the course videos encrypted when no url is given.
var defaultAssetURLs = []string{
	"https://github.com/tetelio/data-engineering-course/releases/download/v0.1.0/34406122.mp4",
	"https://github.com/tetelio/data-engineering-course/releases/download/v0.1.0/5159092.mp4",
	"https://github.com/tetelio/data-engineering-course/releases/download/v0.1.0/5157341.mp4",
	"https://github.com/tetelio/data-engineering-course/releases/download/v0.1.0/6139586.mp4",
	"https://github.com/tetelio/data-engineering-course/releases/download/v0.1.0/8928255.mp4",
	"https://github.com/tetelio/data-engineering-course/releases/download/v0.1.0/4769542.mp4",
	"https://github.com/tetelio/data-engineering-course/releases/download/v0.1.0/3255275.mp4",
	"https://github.com/tetelio/data-engineering-course/releases/download/v0.1.0/3196061.mp4",
	"https://github.com/tetelio/data-engineering-course/releases/download/v0.1.0/4778723.mp4",
}

func NewEncryptCmd(fs afero.Fs, services backend.Services) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt [url...]",
		Short: "Download, encrypt and upload assets",
		Long: `Downloads every url into the assets directory, writes its encrypted copy
to the encrypted assets directory and uploads it to BUCKET_NAME when set.
Without urls the course videos are processed. Stage timings are written to
TIME_ANALYSIS_DIR/TIME_ANALYSIS_FILE.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			urlsFile, _ := cmd.Flags().GetString("urls-file")
			noUpload, _ := cmd.Flags().GetBool("no-upload")
			timingDB, _ := cmd.Flags().GetString("timing-db")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			cfg, err := loadConfig(cmd, fs)
			if err != nil {
				return err
			}

			engine, err := transform.New(cfg.TransformConfig())
			if err != nil {
				return fmt.Errorf("invalid encryption settings: %w", err)
			}

			urls := args
			if urlsFile != "" {
				fromFile, err := readURLs(fs, urlsFile)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				urls = defaultAssetURLs
			}

			registry := services.Metrics()
			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr, registry)
				defer stop()
			}
			recorder := timing.NewRecorder(timing.WithObserver(registry))

			var uploader storage.Uploader
			if !noUpload && cfg.Bucket.Name != "" {
				uploader, err = services.Uploader(ctx, cfg, fs)
				if err != nil {
					zlog.Error("Failed to acquire a valid s3 client, encrypted assets stay local", zap.Error(err))
					uploader = nil
				}
			}

			encryptor := &pipeline.Encryptor{
				Fs:            fs,
				Fetcher:       services.Fetcher(cfg.Fetch.Timeout),
				Transformer:   engine,
				Layout:        layout(cfg),
				Uploader:      uploader,
				Bucket:        cfg.Bucket.Name,
				Recorder:      recorder,
				Metrics:       registry,
				Workers:       cfg.Workers.Transform,
				UploadWorkers: cfg.Workers.Upload,
			}

			report, runErr := encryptor.Run(ctx, urls)
			if report == nil {
				return runErr
			}

			records := recorder.Records()
			if err := timing.WriteJSON(fs, cfg.TimingPath(), records); err != nil {
				return err
			}
			if timingDB != "" {
				if err := saveTimingRun(ctx, services, timingDB, report.RunID, records); err != nil {
					return err
				}
			}

			printReport(out, report)
			if size, err := utils.GetDirectorySize(fs, cfg.Paths.Encrypted); err == nil {
				fmt.Fprintf(out, "\nEncrypted assets: %s in %s\n", humanize.Bytes(uint64(size)), cfg.Paths.Encrypted)
			}
			fmt.Fprintf(out, "\nTotal time is %ds\n", int(recorder.Elapsed().Seconds()))

			if runErr != nil {
				return runErr
			}
			if failed := len(report.Failed()); failed > 0 {
				return fmt.Errorf("%d of %d files failed: %w", failed, len(report.Results), report.Err())
			}
			return nil
		},
	}

	cmd.Flags().String("urls-file", "", "file with one asset url per line")
	cmd.Flags().Bool("no-upload", false, "keep encrypted assets local")
	cmd.Flags().String("timing-db", "", "sqlite database the run timings are also stored in")
	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address while running (e.g. :9100)")

	return cmd
}

func saveTimingRun(ctx context.Context, services backend.Services, path, runID string, records timing.Records) error {
	store, err := services.TimingStore(path)
	if err != nil {
		return err
	}
	return store.SaveRun(ctx, runID, records)
}

// serveMetrics exposes registry over http until the returned func is called.
func serveMetrics(addr string, registry *metrics.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
