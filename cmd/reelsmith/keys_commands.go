package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/services/llm"
	"reelsmith/internal/store"
	"reelsmith/internal/studio"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect configured credential keys",
	}
	keysCmd.AddCommand(newKeysListCommand(ctx))
	keysCmd.AddCommand(newKeysCheckCommand(ctx))
	return keysCmd
}

func newKeysListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credential keys with masked secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd.Context(), func(s *studio.Studio) error {
				keys, err := s.Pool.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(keys) == 0 {
					fmt.Fprintln(out, "No credential keys configured")
					return nil
				}
				fmt.Fprintln(out, renderKeysTable(keys))
				return nil
			})
		},
	}
}

func newKeysCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Send a test request with every active key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStudio(cmd.Context(), func(s *studio.Studio) error {
				results, err := s.CheckKeys(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if len(results) == 0 {
					fmt.Fprintln(out, renderStatusLine("Keys", statusWarn, "no credential keys configured", colorize))
					return nil
				}
				failures := 0
				for _, result := range results {
					switch {
					case !result.Checked:
						fmt.Fprintln(out, renderStatusLine(result.Name, statusInfo, "inactive, skipped", colorize))
					case result.Err != nil:
						failures++
						message := result.Err.Error()
						if code := llm.StatusCode(result.Err); code != 0 {
							message = fmt.Sprintf("HTTP %d", code)
						}
						fmt.Fprintln(out, renderStatusLine(result.Name, statusError, message, colorize))
					default:
						fmt.Fprintln(out, renderStatusLine(result.Name, statusOK, result.Elapsed.Round(time.Millisecond).String(), colorize))
					}
				}
				if failures > 0 {
					return fmt.Errorf("%d of %d keys failed the health check", failures, len(results))
				}
				return nil
			})
		},
	}
}

func renderKeysTable(keys []*store.CredentialKey) string {
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		lastUsed := "-"
		if key.LastUsedAt != nil {
			lastUsed = key.LastUsedAt.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			key.Name,
			maskedOrEmpty(key.Secret),
			yesNo(key.IsActive),
			strconv.FormatInt(key.UsageCount, 10),
			lastUsed,
		})
	}
	return renderTable(
		[]string{"Name", "Secret", "Active", "Usage", "Last Used"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
