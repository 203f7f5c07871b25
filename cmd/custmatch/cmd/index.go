package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the fuzzy match corpus",
		Long: `Manage the per-field fuzzy match corpus.

Each indexed field keeps one durable corpus file. A missing file marks the
field stale; fuzzy queries rebuild stale fields on demand, but a rebuild can
also be forced here after bulk data changes.`,
	}

	cmd.AddCommand(newIndexRebuildCmd())
	cmd.AddCommand(newIndexStatusCmd())
	return cmd
}

func newIndexRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the fuzzy corpus for every indexed field",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			idx, closer, err := openIndex(cfg)
			if err != nil {
				return err
			}
			defer closer()

			if err := idx.RebuildAll(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt %d field corpora in %s\n",
				len(idx.Fields()), cfg.Fuzzy.Dir)
			return nil
		},
	}
}

// fieldStatus is the JSON shape of one field's corpus state.
type fieldStatus struct {
	Field   string `json:"field"`
	Fresh   bool   `json:"fresh"`
	Entries int    `json:"entries"`
}

func newIndexStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-field corpus freshness and size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			idx, closer, err := openIndex(cfg)
			if err != nil {
				return err
			}
			defer closer()

			var statuses []fieldStatus
			for _, f := range idx.Fields() {
				stats, err := idx.FieldStats(f)
				if err != nil {
					return err
				}
				statuses = append(statuses, fieldStatus{
					Field:   f.String(),
					Fresh:   stats.Exists,
					Entries: stats.Entries,
				})
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(statuses)
			}

			for _, st := range statuses {
				state := "fresh"
				if !st.Fresh {
					state = "stale"
				}
				fmt.Fprintf(out, "%-24s %-6s %d entries\n", st.Field, state, st.Entries)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
