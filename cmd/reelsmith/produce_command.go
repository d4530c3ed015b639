package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/credentials"
	"reelsmith/internal/generation"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/studio"
)

func newProduceCommand(ctx *commandContext) *cobra.Command {
	var genre string
	var topic string
	var duration int

	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Run every pipeline stage for a new topic",
		Example: `  reelsmith produce --genre tech --topic "How qubits work" --duration 8
  reelsmith produce -g story -t "The lighthouse keeper"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(genre) == "" || strings.TrimSpace(topic) == "" {
				return fmt.Errorf("--genre and --topic are required")
			}
			out := cmd.OutOrStdout()
			if !generation.KnownGenre(genre) {
				fmt.Fprintf(out, "Note: %q is not a known genre; continuing anyway\n", genre)
			}
			return ctx.withStudio(cmd.Context(), func(s *studio.Studio) error {
				production, err := s.Produce(cmd.Context(), studio.ProduceRequest{
					Genre:           genre,
					Topic:           topic,
					DurationMinutes: duration,
				})
				if err != nil {
					return err
				}
				keys, err := s.Pool.List(cmd.Context())
				if err != nil {
					return err
				}
				printProduction(out, production, shouldColorize(out))
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderSectionHeader("Credential usage", shouldColorize(out)))
				fmt.Fprintln(out, renderKeysTable(keys))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&genre, "genre", "g", "", "Content genre (see `reelsmith genres`)")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Video topic")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Target length in minutes (0 uses the configured default)")
	return cmd
}

func printProduction(out io.Writer, production *studio.Production, colorize bool) {
	project := production.View.Project
	fmt.Fprintln(out, renderSectionHeader("Project", colorize))
	fmt.Fprintf(out, "ID:          %s\n", project.ID)
	fmt.Fprintf(out, "Genre:       %s\n", generation.GenreLabel(project.Genre))
	fmt.Fprintf(out, "Title:       %s\n", project.VideoTitle)
	fmt.Fprintf(out, "Status:      %s\n", project.Status)
	fmt.Fprintf(out, "Tags:        %s\n", strings.Join(project.Tags, ", "))
	fmt.Fprintln(out)

	if len(production.Metadata.Titles) > 1 {
		fmt.Fprintln(out, renderSectionHeader("Title candidates", colorize))
		for i, title := range production.Metadata.Titles {
			fmt.Fprintf(out, "%d. %s\n", i+1, title)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, renderSectionHeader("Scenes", colorize))
	if production.ScenesNeedRetry {
		fmt.Fprintln(out, renderStatusLine("Scenes", statusWarn, "breakdown returned no scenes; run produce again", colorize))
		return
	}
	rows := make([][]string, 0, len(production.View.Scenes))
	for _, scene := range production.View.Scenes {
		rows = append(rows, []string{
			strconv.Itoa(scene.Order),
			scene.Text,
			strconv.FormatFloat(scene.DurationSeconds, 'f', 1, 64),
			yesNo(scene.HasVoice()),
			yesNo(scene.HasImage()),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Text", "Seconds", "Voice", "Image"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	))
	printAssetStatus(out, "Voice", production.Voice, colorize)
	printAssetStatus(out, "Images", production.Images, colorize)
}

func printAssetStatus(out io.Writer, label string, result pipeline.AssetResult, colorize bool) {
	failed := result.Failed()
	if len(failed) == 0 {
		fmt.Fprintln(out, renderStatusLine(label, statusOK, fmt.Sprintf("%d filled, %d skipped", result.Filled(), result.Skipped()), colorize))
		return
	}
	orders := make([]string, 0, len(failed))
	for _, outcome := range failed {
		orders = append(orders, strconv.Itoa(outcome.Order))
	}
	fmt.Fprintln(out, renderStatusLine(label, statusWarn, fmt.Sprintf("%d failed (scenes %s)", len(failed), strings.Join(orders, ", ")), colorize))
}

func maskedOrEmpty(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return "-"
	}
	return credentials.MaskSecret(secret)
}
