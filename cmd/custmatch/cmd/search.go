package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/custmatch/internal/search"
	"github.com/Aman-CERP/custmatch/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	agentID         int64
	privileged      bool
	suppressOnExact bool
	format          string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Match a query against customer records",
		Long: `Match a query against customer records.

The query is classified into every shape it satisfies (phone, email,
identifier, structured name, free text, payment card) and each applicable
strategy runs its exact, substring, and fuzzy passes.

Examples:
  custmatch search "John Smith"
  custmatch search "555-123-4567" --agent 7
  custmatch search "4111-11xx-xxxx-1111" --format json
  custmatch search "Acme Corp (Smith, John)"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().Int64VarP(&opts.agentID, "agent", "a", 0, "Restrict matches to one agent's records (0 = all)")
	cmd.Flags().BoolVar(&opts.privileged, "privileged", false, "Use the privileged substring length minimum")
	cmd.Flags().BoolVar(&opts.suppressOnExact, "suppress-on-exact", false, "Skip substring and fuzzy passes when an exact match hits")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// searchOutput is the JSON shape of one search invocation.
type searchOutput struct {
	Query   string           `json:"query"`
	Records []store.RecordID `json:"records"`
	Count   int              `json:"count"`
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, _, closer, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer closer()

	mq := search.MatchQuery{
		Raw:                     query,
		SuppressFuzzyOnExactHit: opts.suppressOnExact,
		Privileged:              opts.privileged,
	}
	if opts.agentID != 0 {
		mq.Qualifier = store.AgentQualifier{AgentID: opts.agentID}
	}

	slog.Info("search_started", slog.String("query", query), slog.Int64("agent", opts.agentID))

	// Partial results are still worth showing when a strategy failed;
	// print them first and return the error afterwards.
	records, err := engine.Search(ctx, mq)

	out := cmd.OutOrStdout()
	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(searchOutput{Query: query, Records: records, Count: len(records)}); encErr != nil {
			return encErr
		}
	default:
		if len(records) == 0 {
			fmt.Fprintln(out, "No matches found.")
		}
		for _, id := range records {
			fmt.Fprintf(out, "customer %d\n", id)
		}
	}

	return err
}
