package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fieldscribe/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the processed-recordings ledger",
	}
	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerShowCommand(ctx))
	return ledgerCmd
}

type ledgerRecordView struct {
	Fingerprint string `json:"fingerprint"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Date        string `json:"date"`
	Text        string `json:"text,omitempty"`
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	var date string
	var label string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processed recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			led, closeFn, err := loadLedger(cmd, ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			records := filterRecords(led.Records(), strings.TrimSpace(date), strings.TrimSpace(label))
			if jsonOutput {
				views := make([]ledgerRecordView, 0, len(records))
				for _, rec := range records {
					views = append(views, ledgerRecordView{
						Fingerprint: rec.Fingerprint,
						Name:        rec.SourceName,
						Label:       rec.Label,
						Date:        rec.CaptureDate,
					})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No processed recordings")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.CaptureDate,
					rec.Label,
					rec.SourceName,
					humanize.Bytes(uint64(len(rec.Text))),
					shortFingerprint(rec.Fingerprint),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Date", "Label", "Recording", "Transcript", "Fingerprint"},
				rows, 3,
			))
			fmt.Fprintf(out, "%s of %s recordings\n", humanize.Comma(int64(len(records))), humanize.Comma(int64(led.Len())))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Only list recordings captured on this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&label, "label", "", "Only list recordings with this label (case-insensitive)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print records as JSON")
	return cmd
}

func newLedgerShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <fingerprint>",
		Short: "Show one ledger entry including its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			led, closeFn, err := loadLedger(cmd, ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			fingerprint, err := resolveFingerprint(led, args[0])
			if err != nil {
				return err
			}
			entry, _ := led.Lookup(fingerprint)
			if jsonOutput {
				return writeJSON(cmd, ledgerRecordView{
					Fingerprint: fingerprint,
					Name:        entry.SourceName,
					Label:       entry.Label,
					Date:        entry.CaptureDate,
					Text:        entry.Text,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fingerprint: %s\n", fingerprint)
			fmt.Fprintf(out, "Recording:   %s\n", entry.SourceName)
			fmt.Fprintf(out, "Label:       %s\n", entry.Label)
			fmt.Fprintf(out, "Date:        %s\n", entry.CaptureDate)
			if entry.Text != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, entry.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the entry as JSON")
	return cmd
}

func loadLedger(cmd *cobra.Command, ctx *commandContext) (*ledger.Ledger, func(), error) {
	cfg, store, err := ctx.openStore()
	if err != nil {
		return nil, nil, err
	}
	logger, err := ctx.logger()
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	led := ledger.New(store, cfg.Storage.LedgerPath, logger)
	if err := led.Load(cmd.Context()); err != nil {
		store.Close()
		return nil, nil, err
	}
	return led, func() { _ = store.Close() }, nil
}

func filterRecords(records []ledger.Record, date, label string) []ledger.Record {
	if date == "" && label == "" {
		return records
	}
	out := make([]ledger.Record, 0, len(records))
	for _, rec := range records {
		if date != "" && rec.CaptureDate != date {
			continue
		}
		if label != "" && !strings.EqualFold(rec.Label, label) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// resolveFingerprint accepts a full fingerprint or an unambiguous prefix.
func resolveFingerprint(led *ledger.Ledger, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("fingerprint is required")
	}
	if led.IsProcessed(arg) {
		return arg, nil
	}
	var matches []string
	for _, rec := range led.Records() {
		if strings.HasPrefix(rec.Fingerprint, arg) {
			matches = append(matches, rec.Fingerprint)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no ledger entry matches %q", arg)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("fingerprint prefix %q is ambiguous (%d matches)", arg, len(matches))
	}
}

func shortFingerprint(fp string) string {
	const width = 12
	if len(fp) <= width {
		return fp
	}
	return fp[:width]
}
