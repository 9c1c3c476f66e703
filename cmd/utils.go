package cmd

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tetelio/asset-pipeline/internal/config"
	"github.com/tetelio/asset-pipeline/pipeline"
	"github.com/tetelio/asset-pipeline/timing"
)

func loadConfig(cmd *cobra.Command, fs afero.Fs) (*config.Config, error) {
	// not defined when a command runs without the root command
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		envFile = ".env"
	}
	return config.Load(fs, envFile)
}

func layout(cfg *config.Config) pipeline.Layout {
	return pipeline.Layout{
		AssetsDir:    cfg.Paths.Assets,
		EncryptedDir: cfg.Paths.Encrypted,
		DecryptedDir: cfg.Paths.Decrypted,
	}
}

// readURLs returns the non-blank lines of path that are not # comments.
func readURLs(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open urls file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read urls file: %w", err)
	}
	return urls, nil
}

func setupTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	return table
}

func printReport(w io.Writer, report *pipeline.Report) {
	table := setupTable(w, []string{"#", "Source", "Output", "Remote", "Size", "Status", "Error"})
	for _, res := range report.Results {
		var size, errMsg string
		if res.Bytes > 0 {
			size = humanize.Bytes(uint64(res.Bytes))
		}
		if res.Err != nil {
			errMsg = res.Err.Error()
		}
		table.Append([]string{
			fmt.Sprint(res.Index), res.Source, res.Output, res.Remote, size, string(res.Status), errMsg,
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d succeeded, %d failed\n", len(report.Succeeded()), len(report.Failed()))
}

func printRecords(w io.Writer, records timing.Records) {
	table := setupTable(w, []string{"File", "Stage", "Start (s)", "End (s)", "Duration"})
	table.SetAutoMergeCellsByColumnIndex([]int{0})
	for _, index := range records.Indexes() {
		spans := records[index]
		for _, stage := range orderedStages(spans) {
			span := spans[stage]
			table.Append([]string{
				fmt.Sprint(index),
				string(stage),
				fmt.Sprintf("%.3f", span.Start),
				fmt.Sprintf("%.3f", span.End),
				span.Duration().String(),
			})
		}
	}
	table.Render()
}

func printSummary(w io.Writer, records timing.Records) {
	table := setupTable(w, []string{"Stage", "Files", "Total", "Mean", "Min", "Max", "Wall"})
	for _, s := range timing.Summarize(records) {
		table.Append([]string{
			string(s.Stage),
			fmt.Sprint(s.Files),
			s.Total.String(),
			s.Mean().String(),
			s.Min.String(),
			s.Max.String(),
			s.Wall().String(),
		})
	}
	table.Render()
}

// orderedStages lists the stages of spans in pipeline order, unknown ones last.
func orderedStages(spans map[timing.Stage]timing.Span) []timing.Stage {
	var out []timing.Stage
	known := make(map[timing.Stage]bool, len(timing.Stages))
	for _, stage := range timing.Stages {
		known[stage] = true
		if _, ok := spans[stage]; ok {
			out = append(out, stage)
		}
	}
	var extra []string
	for stage := range spans {
		if !known[stage] {
			extra = append(extra, string(stage))
		}
	}
	sort.Strings(extra)
	for _, stage := range extra {
		out = append(out, timing.Stage(stage))
	}
	return out
}
