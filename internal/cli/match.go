package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"harshagw/recsearch/internal/search"
)

// MatchOutput is what match prints.
type MatchOutput struct {
	Query   string `json:"query"`
	Matches bool   `json:"matches"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	var recordPath string

	cmd := &cobra.Command{
		Use:   "match <query>",
		Short: "Check a JSON record against a query without an index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, rootOpts, queryArg(args), recordPath)
		},
	}

	cmd.Flags().StringVarP(&recordPath, "record", "r", "-", "JSON record file, - for stdin")
	return cmd
}

func readRecord(cmd *cobra.Command, path string) (search.Record, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var record search.Record
	if err := json.NewDecoder(r).Decode(&record); err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	return record, nil
}

func runMatch(cmd *cobra.Command, opts *RootOptions, raw, recordPath string) error {
	record, err := readRecord(cmd, recordPath)
	if err != nil {
		return err
	}

	a, err := opts.open(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.engine.NewQuery(raw).Match(opts.context(cmd.Context()), record)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), MatchOutput{Query: raw, Matches: ok})
}
