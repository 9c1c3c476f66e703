package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tetelio/asset-pipeline/cmd/backend"
	"github.com/tetelio/asset-pipeline/timing"
)

func NewTimingCmd(fs afero.Fs, services backend.Services) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timing",
		Short: "Inspect recorded stage timings",
	}

	cmd.AddCommand(newTimingShowCmd(fs))
	cmd.AddCommand(newTimingHistoryCmd(services))

	return cmd
}

func newTimingShowCmd(fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stage timings of the last encrypt run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				cfg, err := loadConfig(cmd, fs)
				if err != nil {
					return err
				}
				path = cfg.TimingPath()
			}

			records, err := timing.ReadJSON(fs, path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printRecords(out, records)
			fmt.Fprintln(out)
			printSummary(out, records)
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "", "timing JSON file (default from TIME_ANALYSIS_DIR/TIME_ANALYSIS_FILE)")

	return cmd
}

func newTimingHistoryCmd(services backend.Services) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the runs stored in the timing database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("timing-db")
			runID, _ := cmd.Flags().GetString("run")

			store, err := services.TimingStore(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if runID != "" {
				records, err := store.LoadRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				printRecords(out, records)
				fmt.Fprintln(out)
				printSummary(out, records)
				return nil
			}

			runs, err := store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs stored yet")
				return nil
			}

			table := setupTable(out, []string{"Run", "Files", "Records", "Last end (s)"})
			for _, run := range runs {
				table.Append([]string{
					run.RunID,
					humanize.Comma(int64(run.Files)),
					humanize.Comma(int64(run.Records)),
					fmt.Sprintf("%.3f", run.Latest),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("timing-db", "timing.db", "sqlite database written by encrypt --timing-db")
	cmd.Flags().String("run", "", "print the stage timings of this run")

	return cmd
}
