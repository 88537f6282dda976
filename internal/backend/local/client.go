// Package local runs search bodies against embedded on-disk indexes, one
// segment index per index name.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"harshagw/recsearch/internal/backend"
	"harshagw/recsearch/internal/config"
	"harshagw/recsearch/internal/dsl"
	"harshagw/recsearch/internal/index"
	"harshagw/recsearch/internal/logging"
)

const defaultSize = 10

var (
	// ErrIndexNotFound is returned when searching an index that was never
	// written to.
	ErrIndexNotFound = errors.New("index not found")
	// ErrInvalidIndexName is returned for names that cannot be a directory.
	ErrInvalidIndexName = errors.New("invalid index name")
)

// Client owns the indexes below one data directory.
type Client struct {
	dir            string
	flushThreshold int
	logger         *slog.Logger

	mu      sync.Mutex
	indexes map[string]*index.Index
	closed  bool
}

var _ backend.Client = (*Client)(nil)

// Open prepares a client over cfg.Dir. Indexes are opened on first use.
func Open(cfg config.Local, logger *slog.Logger) (*Client, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Client{
		dir:            cfg.Dir,
		flushThreshold: cfg.FlushThreshold,
		logger:         logging.Default(logger),
		indexes:        make(map[string]*index.Index),
	}, nil
}

func validIndexName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, "_") {
		return fmt.Errorf("%w: %q", ErrInvalidIndexName, name)
	}
	return nil
}

// index returns the open index called name. Unless create is set, an index
// with no directory yet is reported as not found.
func (c *Client) index(name string, create bool) (*index.Index, error) {
	if err := validIndexName(name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, index.ErrClosed
	}
	if idx, ok := c.indexes[name]; ok {
		return idx, nil
	}

	dir := filepath.Join(c.dir, name)
	if !create {
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
		}
	}

	cfg := index.DefaultConfig(dir)
	cfg.FlushThreshold = c.flushThreshold
	cfg.Logger = c.logger.With("index", name)
	idx, err := index.New(cfg)
	if err != nil {
		return nil, err
	}
	c.indexes[name] = idx
	c.logger.Debug("index opened", "index", name, "dir", dir)
	return idx, nil
}

// Index stores doc under id, replacing any previous version.
func (c *Client) Index(ctx context.Context, name, docType, id string, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx, err := c.index(name, true)
	if err != nil {
		return err
	}
	return idx.Index(id, docType, doc)
}

// Delete removes the document with id.
func (c *Client) Delete(ctx context.Context, name, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx, err := c.index(name, false)
	if err != nil {
		return err
	}
	return idx.Delete(id)
}

// Flush writes buffered documents of every open index to segments.
func (c *Client) Flush() error {
	return c.each(func(name string, idx *index.Index) error {
		return idx.Flush()
	})
}

// Compact flushes and merges the segments of every open index into one.
func (c *Client) Compact() error {
	return c.each(func(name string, idx *index.Index) error {
		if err := idx.ForceMerge(); err != nil {
			return err
		}
		c.logger.Info("index compacted", "index", name, "segments", idx.NumSegments())
		return nil
	})
}

func (c *Client) each(fn func(name string, idx *index.Index) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return index.ErrClosed
	}
	for name, idx := range c.indexes {
		if err := fn(name, idx); err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}
	return nil
}

// Close flushes and closes every open index.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for name, idx := range c.indexes {
		if err := idx.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", name, err))
		}
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", name, err))
		}
	}
	c.indexes = nil
	return errors.Join(errs...)
}

// Search runs body against the index. docType, when set, restricts the
// matches to documents indexed under that type.
func (c *Client) Search(ctx context.Context, name, docType string, body dsl.Body) (*backend.Response, error) {
	start := time.Now()
	resp, err := c.search(ctx, name, docType, body)
	if err != nil {
		return nil, backend.Wrap(name, err)
	}
	c.logger.DebugContext(ctx, "search finished",
		"index", name,
		"doc_type", docType,
		"total", resp.Total,
		"hits", len(resp.Hits),
		"took", time.Since(start),
	)
	return resp, nil
}

func (c *Client) search(ctx context.Context, name, docType string, body dsl.Body) (*backend.Response, error) {
	req, err := parseRequest(body)
	if err != nil {
		return nil, err
	}
	idx, err := c.index(name, false)
	if err != nil {
		return nil, err
	}

	resp := &backend.Response{}
	err = idx.View(func(snap *index.IndexSnapshot) error {
		s := newSearcher(ctx, snap)
		h, err := s.eval(req.query)
		if err != nil {
			return err
		}
		if docType != "" {
			h = h.restrict(h.docs.Intersect(s.typeDocs(docType)))
		}

		results := s.results(h)
		docs := make(map[docKey]map[string]any)
		load := func(k docKey) (map[string]any, error) {
			if doc, ok := docs[k]; ok {
				return doc, nil
			}
			doc, err := s.loadDoc(k)
			if err != nil {
				return nil, err
			}
			docs[k] = doc
			return doc, nil
		}
		if len(req.sort) > 0 {
			if err := sortResults(results, req.sort, load); err != nil {
				return err
			}
		}

		resp.Total = len(results)
		page := paginate(results, req.from, req.size)
		resp.Hits = make([]backend.Hit, 0, len(page))
		for _, r := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := load(r.key)
			if err != nil {
				return fmt.Errorf("load %s: %w", r.DocID, err)
			}
			hit := backend.Hit{ID: r.DocID, Score: r.Score}
			if req.fields != nil {
				hit.Fields = selectFields(doc, req.fields)
			}
			if req.source {
				hit.Source = doc
			}
			resp.Hits = append(resp.Hits, hit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func paginate(results []Result, from, size int) []Result {
	if from >= len(results) {
		return nil
	}
	end := len(results)
	if size < end-from {
		end = from + size
	}
	return results[from:end]
}
