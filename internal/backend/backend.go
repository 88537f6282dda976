// Package backend defines the contract between compiled queries and the
// index that executes them.
package backend

import (
	"context"
	"fmt"

	"harshagw/recsearch/internal/dsl"
)

// Client executes a search body against one index.
type Client interface {
	Search(ctx context.Context, index, docType string, body dsl.Body) (*Response, error)
}

// Response is the part of a search response the engine reads.
type Response struct {
	Total int
	Hits  []Hit
}

// Hit is one matching document. Fields holds the values requested through
// the body's "fields" parameter.
type Hit struct {
	ID     string
	Score  float64
	Source map[string]any
	Fields map[string][]any
}

// Error wraps every failure raised while executing a search, so callers
// can tell execution failures apart from compile errors.
type Error struct {
	Index string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("search %s: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err as an *Error for index, leaving nil and existing *Error
// values alone.
func Wrap(index string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Index: index, Err: err}
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, index, docType string, body dsl.Body) (*Response, error)

func (f ClientFunc) Search(ctx context.Context, index, docType string, body dsl.Body) (*Response, error) {
	return f(ctx, index, docType, body)
}
