package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/stepchat/internal/domain"
)

func newParseCmd(flags *rootFlags) *cobra.Command {
	var (
		refresh bool
		sample  bool
	)

	cmd := &cobra.Command{
		Use:   "parse <url>",
		Short: "Fetch a recipe and print it as JSON",
		Long: `Fetch and parse a recipe the same way a conversation would, then print
the result. Cached recipes are served from the cache unless --refresh
is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, appOptions{sample: sample, defaultLogFile: "stderr"})
			if err != nil {
				return err
			}
			defer a.Close()

			var r *domain.Recipe
			if refresh && a.cached != nil {
				r, err = a.cached.Refresh(cmd.Context(), args[0])
			} else {
				r, err = a.source.Fetch(cmd.Context(), args[0])
			}
			if err != nil {
				return fmt.Errorf("fetching recipe: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and refetch")
	cmd.Flags().BoolVar(&sample, "sample", false, "look the name up in the built-in sample recipes")
	return cmd
}
