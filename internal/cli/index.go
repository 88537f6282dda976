package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"harshagw/recsearch/internal/analysis"
	"harshagw/recsearch/internal/search"
)

type indexFlags struct {
	index   string
	docType string
	idField string
	compact bool
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &indexFlags{}

	cmd := &cobra.Command{
		Use:   "index [files...]",
		Short: "Load JSON records into the embedded index",
		Long: `Load a stream of JSON records into the embedded index. Records are read
from the given files, or stdin when there are none. A record replaces any
previous record with the same id.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, rootOpts, flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.index, "index", "", "index name (default: default_index from config)")
	cmd.Flags().StringVar(&flags.docType, "doc-type", "", "document type (default: doc_type from config)")
	cmd.Flags().StringVar(&flags.idField, "id-field", search.RecidField, "record field holding the id")
	cmd.Flags().BoolVar(&flags.compact, "compact", false, "merge all segments when done")
	return cmd
}

func runIndex(cmd *cobra.Command, opts *RootOptions, flags *indexFlags, paths []string) error {
	a, err := opts.open(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.local == nil {
		return fmt.Errorf("index needs the local backend, config has %q", a.cfg.Backend.Kind)
	}
	if flags.index == "" {
		flags.index = a.cfg.Search.DefaultIndex
	}
	if flags.docType == "" {
		flags.docType = a.cfg.Search.DocType
	}

	load := func(name string, r io.Reader) (int, error) {
		dec := json.NewDecoder(r)
		n := 0
		for {
			var record map[string]any
			err := dec.Decode(&record)
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			if err != nil {
				return n, fmt.Errorf("%s: record %d: %w", name, n+1, err)
			}
			id, ok := analysis.Scalar(record[flags.idField])
			if !ok || id == "" {
				return n, fmt.Errorf("%s: record %d: no %q", name, n+1, flags.idField)
			}
			if err := a.local.Index(cmd.Context(), flags.index, flags.docType, id, record); err != nil {
				return n, err
			}
			n++
		}
	}

	total := 0
	if len(paths) == 0 {
		n, err := load("stdin", cmd.InOrStdin())
		total += n
		if err != nil {
			return err
		}
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		n, err := load(path, f)
		f.Close()
		total += n
		if err != nil {
			return err
		}
	}

	if err := a.local.Flush(); err != nil {
		return err
	}
	if flags.compact {
		if err := a.local.Compact(); err != nil {
			return err
		}
	}
	a.logger.Info("records indexed", "index", flags.index, "count", total)
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d records into %s\n", total, flags.index)
	return nil
}
