package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"harshagw/recsearch/internal/auth"
	"harshagw/recsearch/internal/backend"
	"harshagw/recsearch/internal/backend/elastic"
	"harshagw/recsearch/internal/backend/local"
	"harshagw/recsearch/internal/config"
	"harshagw/recsearch/internal/dsl"
	"harshagw/recsearch/internal/logging"
	"harshagw/recsearch/internal/search"
)

// errOffline is returned by the client of commands that never search.
var errOffline = errors.New("no backend configured for this command")

// app is everything a command needs, built from the global flags.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	engine *search.Engine
	local  *local.Client // nil unless the local backend is open
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	if opts.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(opts.ConfigPath)
}

// open builds the app. With online unset the engine compiles queries but
// cannot reach an index.
func (o *RootOptions) open(stderr io.Writer, online bool) (*app, error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return nil, err
	}

	levelName := cfg.LogLevel
	if o.LogLevel != "" {
		levelName = o.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logging.NewText(stderr, level)}

	var client backend.Client = backend.ClientFunc(func(context.Context, string, string, dsl.Body) (*backend.Response, error) {
		return nil, errOffline
	})
	if online {
		switch cfg.Backend.Kind {
		case config.BackendLocal:
			a.local, err = local.Open(cfg.Backend.Local, a.logger.With("component", "local"))
			if err != nil {
				return nil, err
			}
			client = a.local
		case config.BackendElastic:
			client, err = elastic.New(cfg.Backend.Elastic, elastic.WithLogger(a.logger.With("component", "elastic")))
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
		}
	}

	a.engine, err = search.New(cfg.Search, client, search.WithLogger(a.logger))
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// context attaches the user from the flags, if any.
func (o *RootOptions) context(ctx context.Context) context.Context {
	if o.User == "" && len(o.Groups) == 0 {
		return ctx
	}
	return auth.WithUser(ctx, auth.User{ID: o.User, Groups: o.Groups})
}

func (a *app) Close() error {
	if a.local != nil {
		return a.local.Close()
	}
	return nil
}

func queryArg(args []string) string {
	return strings.Join(args, " ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
