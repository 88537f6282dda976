package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"harshagw/recsearch/internal/auth"
	"harshagw/recsearch/internal/dsl"
	"harshagw/recsearch/internal/grammar"
)

// ParseOutput is what parse prints.
type ParseOutput struct {
	Query       string   `json:"query"`
	Parsed      string   `json:"parsed"`
	SyntaxError string   `json:"syntax_error,omitempty"`
	Enhanced    string   `json:"enhanced"`
	Strategy    string   `json:"strategy"`
	Index       string   `json:"index"`
	Body        dsl.Body `json:"body"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "parse <query>",
		Short: "Show how a query is parsed, enhanced and compiled",
		Long: `Parse a query and print its tree, the tree after the enhancers ran, the
chosen strategy and the search body that would be sent. Nothing is searched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, rootOpts, queryArg(args), collection)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "collection the query is scoped to")
	return cmd
}

func runParse(cmd *cobra.Command, opts *RootOptions, raw, collection string) error {
	a, err := opts.open(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := opts.context(cmd.Context())
	q := a.engine.NewQuery(raw)

	parsed, err := q.Parsed()
	if err != nil {
		return err
	}
	out := ParseOutput{Query: raw, Parsed: parsed.String()}

	// The engine swallows syntax errors; show the reason here.
	if normalized := grammar.Normalize(raw); strings.TrimSpace(normalized) != "" {
		if _, err := grammar.Default().Parse(normalized); err != nil {
			out.SyntaxError = err.Error()
		}
	}

	enhanced, err := q.Enhanced(ctx, auth.FromContext(ctx), collection)
	if err != nil {
		return fmt.Errorf("enhance: %w", err)
	}
	out.Enhanced = enhanced.String()

	res, err := q.Search(ctx, searchOptions(collection, nil))
	if err != nil {
		return err
	}
	out.Strategy = res.Strategy().String()
	out.Index = res.Index()
	out.Body = res.Body()

	return writeJSON(cmd.OutOrStdout(), out)
}
