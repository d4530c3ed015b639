package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/generation"
)

func newGenresCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "genres",
		Short:       "List known content genres",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			genres := generation.Genres()
			rows := make([][]string, 0, len(genres))
			for _, genre := range genres {
				rows = append(rows, []string{genre.Key, genre.Label})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Label"}, rows, nil))
			return nil
		},
	}
}
