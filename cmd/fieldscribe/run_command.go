package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"fieldscribe/internal/pipeline"
	"fieldscribe/internal/transcription"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transcribe new recordings and update the compiled documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			transcriber, err := transcription.New(cfg)
			if err != nil {
				return err
			}

			var opts []pipeline.Option
			if skipPreflight {
				opts = append(opts, pipeline.WithoutPreflight())
			}
			runner, err := pipeline.New(cfg, store, transcriber, logger, opts...)
			if err != nil {
				return err
			}

			summary, runErr := runner.Run(cmd.Context())
			if jsonOutput {
				if err := writeJSON(cmd, newRunView(summary)); err != nil {
					return err
				}
				return runErr
			}
			renderRunSummary(cmd.OutOrStdout(), summary, shouldColorize(cmd.OutOrStdout()))
			return runErr
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory and endpoint checks before processing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

type runView struct {
	RunID            string            `json:"run_id"`
	Listed           int               `json:"listed"`
	Unsupported      int               `json:"unsupported"`
	AlreadyProcessed int               `json:"already_processed"`
	Processed        int               `json:"processed"`
	Skipped          int               `json:"skipped"`
	UploadFailed     int               `json:"upload_failed"`
	Failed           int               `json:"failed"`
	DurationSeconds  float64           `json:"duration_seconds"`
	Documents        []runDocumentView `json:"documents"`
}

type runDocumentView struct {
	Date     string `json:"date"`
	Path     string `json:"path"`
	Records  int    `json:"records"`
	Appended bool   `json:"appended"`
	Error    string `json:"error,omitempty"`
}

func newRunView(s pipeline.Summary) runView {
	view := runView{
		RunID:            s.RunID,
		Listed:           s.Listed,
		Unsupported:      s.Unsupported,
		AlreadyProcessed: s.AlreadyProcessed,
		Processed:        s.Processed,
		Skipped:          s.Skipped,
		UploadFailed:     s.UploadFailed,
		Failed:           s.Failed,
		DurationSeconds:  s.Duration.Seconds(),
		Documents:        make([]runDocumentView, 0, len(s.Compiled)),
	}
	for _, res := range s.Compiled {
		doc := runDocumentView{
			Date:     res.Date,
			Path:     res.Path,
			Records:  res.Records,
			Appended: res.Appended,
		}
		if res.Err != nil {
			doc.Error = res.Err.Error()
		}
		view.Documents = append(view.Documents, doc)
	}
	return view
}

func renderRunSummary(out io.Writer, s pipeline.Summary, colorize bool) {
	for _, line := range renderSectionHeader("Run "+s.RunID, colorize) {
		fmt.Fprintln(out, line)
	}

	kind := statusOK
	switch {
	case s.Failed > 0:
		kind = statusError
	case s.Skipped > 0 || s.UploadFailed > 0:
		kind = statusWarn
	case s.Processed == 0:
		kind = statusInfo
	}
	fmt.Fprintln(out, renderStatusLine("Processed", kind, english.Plural(s.Processed, "recording", "recordings"), colorize))
	fmt.Fprintln(out, renderStatusLine("Listed", statusInfo, humanize.Comma(int64(s.Listed)), colorize))
	fmt.Fprintln(out, renderStatusLine("Already processed", statusInfo, humanize.Comma(int64(s.AlreadyProcessed)), colorize))
	if s.Unsupported > 0 {
		fmt.Fprintln(out, renderStatusLine("Unsupported", statusInfo, humanize.Comma(int64(s.Unsupported)), colorize))
	}
	if s.Skipped > 0 {
		fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, english.Plural(s.Skipped, "recording", "recordings")+" will be retried", colorize))
	}
	if s.UploadFailed > 0 {
		fmt.Fprintln(out, renderStatusLine("Upload failures", statusWarn, humanize.Comma(int64(s.UploadFailed)), colorize))
	}
	if s.Failed > 0 {
		fmt.Fprintln(out, renderStatusLine("Failed", statusError, humanize.Comma(int64(s.Failed)), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, s.Duration.Round(time.Second).String(), colorize))

	if len(s.Compiled) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(s.Compiled))
	for _, res := range s.Compiled {
		state := "created"
		if res.Appended {
			state = "appended"
		}
		if res.Err != nil {
			state = "failed: " + res.Err.Error()
		}
		rows = append(rows, []string{res.Date, res.Path, strconv.Itoa(res.Records), state})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Date", "Document", "Records", "Result"},
		rows, 2,
	))
}
