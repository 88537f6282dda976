package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/spf13/cobra"

	"harshagw/recsearch/internal/search"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive query shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}

			r := &repl{
				app:  a,
				ctx:  rootOpts.context(cmd.Context()),
				out:  cmd.OutOrStdout(),
				size: a.cfg.Search.PageSize,
			}
			fmt.Fprintln(r.out, "recsearch shell")
			fmt.Fprintln(r.out)
			r.printHelp()
			fmt.Fprintln(r.out)

			p := prompt.New(
				r.executor,
				r.completer,
				prompt.OptionPrefix("recsearch >> "),
				prompt.OptionTitle("recsearch"),
			)
			p.Run()
			return a.Close()
		},
	}
}

type repl struct {
	app        *app
	ctx        context.Context
	out        io.Writer
	collection string
	size       int
}

var replCommands = []prompt.Suggest{
	{Text: "search", Description: "Run a query"},
	{Text: "parse", Description: "Show the parsed and compiled query"},
	{Text: "terms", Description: "List the positive terms of a query"},
	{Text: "collection", Description: "Set or clear the collection"},
	{Text: "size", Description: "Set the page size"},
	{Text: "help", Description: "Show this help"},
	{Text: "quit", Description: "Exit"},
}

func (r *repl) completer(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(replCommands, d.GetWordBeforeCursor(), true)
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  search <query>      - Run a query and list the matching records")
	fmt.Fprintln(r.out, "  parse <query>       - Show the tree, strategy and search body")
	fmt.Fprintln(r.out, "  terms <query>       - List the positive search terms")
	fmt.Fprintln(r.out, "  collection [name]   - Scope queries to a collection, or clear it")
	fmt.Fprintln(r.out, "  size <n>            - Records shown per search")
	fmt.Fprintln(r.out, "  help                - Show this help")
	fmt.Fprintln(r.out, "  quit                - Exit")
}

func (r *repl) executor(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "search":
		r.cmdSearch(rest)
	case "parse":
		r.cmdParse(rest)
	case "terms":
		r.cmdTerms(rest)
	case "collection":
		r.collection = rest
		if rest == "" {
			fmt.Fprintln(r.out, "Collection cleared")
		} else {
			fmt.Fprintf(r.out, "Collection set to %s\n", rest)
		}
	case "size":
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			fmt.Fprintln(r.out, "Usage: size <n>")
			return
		}
		r.size = n
	case "help":
		r.printHelp()
	case "quit", "exit":
		fmt.Fprintln(r.out, "Goodbye!")
		r.app.Close()
		os.Exit(0)
	default:
		fmt.Fprintf(r.out, "Unknown command: %s\n", cmd)
	}
}

func (r *repl) cmdSearch(raw string) {
	res, err := r.app.engine.NewQuery(raw).Search(r.ctx, searchOptions(r.collection, map[string]any{"size": r.size}))
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	records, err := res.Records(r.ctx)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	total, err := res.Len(r.ctx)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}

	if total == 0 {
		fmt.Fprintf(r.out, "No results (%s, index %s)\n", res.Strategy(), res.Index())
		return
	}
	fmt.Fprintf(r.out, "Found %d results (%s, index %s):\n", total, res.Strategy(), res.Index())
	for _, rec := range records {
		fmt.Fprintf(r.out, "  %s\n", describeRecord(rec))
	}
}

// describeRecord prints the record id and title when present.
func describeRecord(rec search.Record) string {
	id := fmt.Sprint(rec[search.RecidField])
	if title, ok := rec["title"]; ok {
		return fmt.Sprintf("%s: %v", id, title)
	}
	return id
}

func (r *repl) cmdParse(raw string) {
	q := r.app.engine.NewQuery(raw)
	parsed, err := q.Parsed()
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	res, err := q.Search(r.ctx, searchOptions(r.collection, nil))
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "Parsed:   %s\n", parsed)
	fmt.Fprintf(r.out, "Strategy: %s\n", res.Strategy())
	writeJSON(r.out, res.Body())
}

func (r *repl) cmdTerms(raw string) {
	terms, err := r.app.engine.NewQuery(raw).Terms(r.ctx)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	if len(terms) == 0 {
		fmt.Fprintln(r.out, "No terms")
		return
	}
	fmt.Fprintln(r.out, strings.Join(terms, ", "))
}
