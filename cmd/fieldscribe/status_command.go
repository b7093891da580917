package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fieldscribe/internal/config"
	"fieldscribe/internal/deps"
	"fieldscribe/internal/ledger"
	"fieldscribe/internal/logging"
	"fieldscribe/internal/preflight"
	"fieldscribe/internal/storage/backends"
	"fieldscribe/internal/vocabulary"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, dependencies, storage and the processed ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			writeSection(out, "Preflight", colorize, preflightLines(preflight.RunAll(cmd.Context(), cfg), colorize))
			fmt.Fprintln(out)
			writeSection(out, "Dependencies", colorize, dependencyLines(preflight.CheckSystemDeps(cfg), colorize))
			fmt.Fprintln(out)

			storageResult := preflight.CheckStorage(cmd.Context(), cfg)
			lines := preflightLines([]preflight.Result{storageResult}, colorize)
			if storageResult.Passed {
				lines = append(lines, stateLines(cmd, cfg, colorize)...)
			}
			writeSection(out, "Storage", colorize, lines)
			return nil
		},
	}
}

func writeSection(out io.Writer, title string, colorize bool, lines []string) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		kind := statusOK
		if !res.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(res.Name, kind, res.Detail, colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Path != "" {
				message = fmt.Sprintf("Ready (%s)", dep.Path)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines
}

// stateLines loads the ledger and vocabulary to report their sizes.
func stateLines(cmd *cobra.Command, cfg *config.Config, colorize bool) []string {
	store, err := backends.Open(cfg)
	if err != nil {
		return []string{renderStatusLine("Ledger", statusError, err.Error(), colorize)}
	}
	defer store.Close()

	logger := logging.NewNop()
	lines := make([]string, 0, 2)

	led := ledger.New(store, cfg.Storage.LedgerPath, logger)
	if err := led.Load(cmd.Context()); err != nil {
		lines = append(lines, renderStatusLine("Ledger", statusError, err.Error(), colorize))
	} else {
		lines = append(lines, renderStatusLine("Ledger", statusInfo,
			fmt.Sprintf("%s processed (%s)", humanize.Comma(int64(led.Len())), led.Path()), colorize))
	}

	vocab, err := vocabulary.NewStore(store, cfg.Storage.VocabularyPath, logger).Load(cmd.Context())
	if err != nil {
		lines = append(lines, renderStatusLine("Vocabulary", statusError, err.Error(), colorize))
	} else {
		lines = append(lines, renderStatusLine("Vocabulary", statusInfo,
			fmt.Sprintf("%s labels", humanize.Comma(int64(vocab.Len()))), colorize))
	}
	return lines
}
