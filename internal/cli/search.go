package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"harshagw/recsearch/internal/search"
)

// SearchOutput is what search prints.
type SearchOutput struct {
	Query    string          `json:"query"`
	Strategy string          `json:"strategy"`
	Index    string          `json:"index"`
	Total    int             `json:"total"`
	Records  []search.Record `json:"records"`
	Recids   []uint32        `json:"recids,omitempty"`
}

type searchFlags struct {
	collection string
	from       int
	size       int
	recids     bool
	noEnhance  bool
}

func searchOptions(collection string, params map[string]any) search.SearchOptions {
	return search.SearchOptions{Collection: collection, Params: params}
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a query against the configured backend",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, rootOpts, flags, queryArg(args))
		},
	}

	cmd.Flags().StringVar(&flags.collection, "collection", "", "collection the query is scoped to")
	cmd.Flags().IntVar(&flags.from, "from", 0, "offset of the first record")
	cmd.Flags().IntVar(&flags.size, "size", 0, "number of records (default: page_size from config)")
	cmd.Flags().BoolVar(&flags.recids, "recids", false, "also fetch the ids of every match")
	cmd.Flags().BoolVar(&flags.noEnhance, "no-enhance", false, "skip the enhancer pipeline")
	return cmd
}

func runSearch(cmd *cobra.Command, opts *RootOptions, flags *searchFlags, raw string) error {
	a, err := opts.open(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	params := map[string]any{"from": flags.from}
	if flags.size > 0 {
		params["size"] = flags.size
	}
	so := searchOptions(flags.collection, params)
	if flags.noEnhance {
		enhance := false
		so.Enhance = &enhance
	}

	ctx := opts.context(cmd.Context())
	res, err := a.engine.NewQuery(raw).Search(ctx, so)
	if err != nil {
		return err
	}

	out := SearchOutput{
		Query:    raw,
		Strategy: res.Strategy().String(),
		Index:    res.Index(),
	}

	// Records and recids are two independent requests.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := res.Records(gctx)
		if err != nil {
			return err
		}
		out.Records = records
		out.Total, err = res.Len(gctx)
		return err
	})
	if flags.recids {
		g.Go(func() error {
			recids, err := res.Recids(gctx)
			if err != nil {
				return err
			}
			out.Recids = recids.ToArray()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), out)
}
