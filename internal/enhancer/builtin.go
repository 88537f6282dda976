package enhancer

import (
	"context"
	"slices"

	"harshagw/recsearch/internal/ast"
	"harshagw/recsearch/internal/auth"
	"harshagw/recsearch/internal/config"
)

const (
	NameCollectionScope       = "collection_scope"
	NameRestrictedCollections = "restricted_collections"
	NameDefaultFilters        = "default_filters"
)

// Builtin returns a registry holding the shipped enhancers configured from s.
func Builtin(s config.Search) *Registry {
	r := NewRegistry()
	// Names are constant and distinct, so Register cannot fail here.
	_ = r.Register(NameCollectionScope, CollectionScope(s.CollectionKeyword))
	_ = r.Register(NameRestrictedCollections, RestrictedCollections(s.CollectionKeyword, s.RestrictedCollections))
	_ = r.Register(NameDefaultFilters, DefaultFilters(s))
	return r
}

func exact(keyword, value string) ast.Node {
	return &ast.KeywordQuery{
		Keyword: &ast.Keyword{Name: keyword},
		Value:   &ast.SingleQuotedValue{Text: value},
	}
}

// constrain ANDs clauses onto node. A tree without terms is replaced by the
// clauses alone so an empty query still returns only what they allow.
func constrain(node ast.Node, clauses ...ast.Node) ast.Node {
	if len(clauses) == 0 {
		return node
	}
	if ast.IsEmpty(node) {
		return ast.And(clauses...)
	}
	return ast.And(append([]ast.Node{node}, clauses...)...)
}

// CollectionScope limits the query to the requested collection.
func CollectionScope(keyword string) Enhancer {
	return func(_ context.Context, node ast.Node, _ auth.User, collection string) (ast.Node, error) {
		if collection == "" {
			return node, nil
		}
		return constrain(node, exact(keyword, collection)), nil
	}
}

// RestrictedCollections hides every restricted collection the user holds
// none of the unlocking groups for.
func RestrictedCollections(keyword string, restricted map[string][]string) Enhancer {
	names := make([]string, 0, len(restricted))
	for name := range restricted {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(_ context.Context, node ast.Node, user auth.User, _ string) (ast.Node, error) {
		var clauses []ast.Node
		for _, name := range names {
			if user.InGroup(restricted[name]...) {
				continue
			}
			clauses = append(clauses, &ast.NotQuery{Op: exact(keyword, name)})
		}
		return constrain(node, clauses...), nil
	}
}

// DefaultFilters ANDs the default filters of s that apply to the collection.
func DefaultFilters(s config.Search) Enhancer {
	return func(_ context.Context, node ast.Node, _ auth.User, collection string) (ast.Node, error) {
		var clauses []ast.Node
		for _, f := range s.FiltersFor(collection) {
			clauses = append(clauses, exact(f.Keyword, f.Value))
		}
		return constrain(node, clauses...), nil
	}
}
