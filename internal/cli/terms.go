package cli

import (
	"github.com/spf13/cobra"
)

// TermsOutput is what terms prints.
type TermsOutput struct {
	Query string   `json:"query"`
	Terms []string `json:"terms"`
}

// NewTermsCommand creates the terms command.
func NewTermsCommand(rootOpts *RootOptions) *cobra.Command {
	var keywords []string

	cmd := &cobra.Command{
		Use:   "terms <query>",
		Short: "List the positive search terms of a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			raw := queryArg(args)
			terms, err := a.engine.NewQuery(raw).Terms(rootOpts.context(cmd.Context()), keywords...)
			if err != nil {
				return err
			}
			if terms == nil {
				terms = []string{}
			}
			return writeJSON(cmd.OutOrStdout(), TermsOutput{Query: raw, Terms: terms})
		},
	}

	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "only terms under these keywords")
	return cmd
}
