package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fieldscribe/internal/labels"
	"fieldscribe/internal/vocabulary"
)

func newVocabularyCommand(ctx *commandContext) *cobra.Command {
	vocabCmd := &cobra.Command{
		Use:   "vocabulary",
		Short: "Inspect the learned label vocabulary",
	}
	vocabCmd.AddCommand(newVocabularyShowCommand(ctx))
	return vocabCmd
}

type vocabularyEntryView struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

func newVocabularyShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List known labels in the order they were first seen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vocab, err := loadVocabulary(cmd, ctx)
			if err != nil {
				return err
			}
			entries := vocab.Entries()
			if jsonOutput {
				views := make([]vocabularyEntryView, 0, len(entries))
				for _, e := range entries {
					views = append(views, vocabularyEntryView{Label: e.Label, Count: e.Count})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Vocabulary is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Label, humanize.Comma(int64(e.Count))})
			}
			fmt.Fprintln(out, renderTable([]string{"Label", "Uses"}, rows, 1))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}

func newLabelCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label [text...]",
		Short: "Show which label a transcript would receive",
		Long: "Runs the label heuristic against the stored vocabulary without saving it.\n" +
			"Reads the transcript from stdin when no text is given or the only argument is \"-\".",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			text, err := labelInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			extractor, err := labels.New(cfg.Labels.Markers, cfg.Labels.Unidentified)
			if err != nil {
				return err
			}
			vocab, err := loadVocabulary(cmd, ctx)
			if err != nil {
				return err
			}

			result := extractor.Analyze(text, vocab.Clone())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Label:      %s\n", result.Label)
			fmt.Fprintf(out, "Source:     %s\n", result.Source)
			if len(result.Candidates) > 0 {
				fmt.Fprintf(out, "Candidates: %s\n", strings.Join(result.Candidates, ", "))
			}
			return nil
		},
	}
	return cmd
}

func labelInput(in io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}

func loadVocabulary(cmd *cobra.Command, ctx *commandContext) (*vocabulary.Vocabulary, error) {
	cfg, store, err := ctx.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	logger, err := ctx.logger()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return vocabulary.NewStore(store, cfg.Storage.VocabularyPath, logger).Load(cmd.Context())
}
