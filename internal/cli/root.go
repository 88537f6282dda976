// Package cli implements the recsearch command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string // overrides log_level from the config file
	User       string
	Groups     []string
}

// NewRootCommand creates the root command for the recsearch CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "recsearch",
		Short: "recsearch - record search query compiler",
		Long: `Compile free-text and keyword queries into search bodies and run them
against an embedded index or an Elasticsearch cluster.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "user id the query is compiled for")
	cmd.PersistentFlags().StringSliceVar(&opts.Groups, "group", nil, "groups of the user")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewMatchCommand(opts))
	cmd.AddCommand(NewTermsCommand(opts))
	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewREPLCommand(opts))

	return cmd
}
