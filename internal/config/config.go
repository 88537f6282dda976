// Package config loads the YAML configuration shared by the engine, the
// backends and the command line tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"harshagw/recsearch/internal/dsl"
)

const (
	BackendLocal   = "local"
	BackendElastic = "elastic"
)

type Config struct {
	Search   Search  `yaml:"search"`
	Backend  Backend `yaml:"backend"`
	LogLevel string  `yaml:"log_level"`
}

type Search struct {
	DefaultIndex string `yaml:"default_index"`
	DocType      string `yaml:"doc_type"`
	// CollectionIndexMapping is tried in order; Collection may be a glob.
	CollectionIndexMapping []IndexMapping `yaml:"collection_index_mapping"`
	FullTextFields         []string       `yaml:"fulltext_fields"`
	// KeywordAliases entries extend the built-in aliases.
	KeywordAliases    map[string]string `yaml:"keyword_aliases"`
	Enhancers         []string          `yaml:"enhancers"`
	CollectionKeyword string            `yaml:"collection_keyword"`
	// RestrictedCollections maps a collection to the groups allowed to see it.
	RestrictedCollections map[string][]string `yaml:"restricted_collections"`
	DefaultFilters        []Filter            `yaml:"default_filters"`
	PageSize              int                 `yaml:"page_size"`
}

type IndexMapping struct {
	Collection string `yaml:"collection"`
	Index      string `yaml:"index"`
}

// Filter is ANDed into queries for collections matching the Collection glob.
// An empty Collection applies to every query.
type Filter struct {
	Collection string `yaml:"collection"`
	Keyword    string `yaml:"keyword"`
	Value      string `yaml:"value"`
}

type Backend struct {
	Kind    string  `yaml:"kind"`
	Local   Local   `yaml:"local"`
	Elastic Elastic `yaml:"elastic"`
}

type Local struct {
	Dir            string `yaml:"dir"`
	FlushThreshold int    `yaml:"flush_threshold"`
}

type Elastic struct {
	URL  string `yaml:"url"`
	Gzip bool   `yaml:"gzip"`
}

func Default() Config {
	return Config{
		Search: Search{
			DefaultIndex:   "records",
			DocType:        "record",
			FullTextFields: append([]string(nil), dsl.DefaultFullTextFields...),
			KeywordAliases: map[string]string{
				"t":   "title",
				"a":   "author",
				"au":  "author",
				"abs": "abstract",
				"rn":  "reportnumber",
				"cn":  "control_number",
			},
			Enhancers:         []string{"collection_scope", "restricted_collections", "default_filters"},
			CollectionKeyword: "collection",
			PageSize:          10,
		},
		Backend: Backend{
			Kind: BackendLocal,
			Local: Local{
				Dir:            "data",
				FlushThreshold: 1000,
			},
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	return nil
}

func (s Search) Validate() error {
	if s.DefaultIndex == "" {
		return fmt.Errorf("default_index is required")
	}
	if s.DocType == "" {
		return fmt.Errorf("doc_type is required")
	}
	if s.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", s.PageSize)
	}
	for i, m := range s.CollectionIndexMapping {
		if m.Collection == "" || m.Index == "" {
			return fmt.Errorf("collection_index_mapping[%d]: collection and index are required", i)
		}
		if !doublestar.ValidatePattern(m.Collection) {
			return fmt.Errorf("collection_index_mapping[%d]: invalid pattern %q", i, m.Collection)
		}
	}
	if len(s.FullTextFields) == 0 {
		return fmt.Errorf("fulltext_fields must not be empty")
	}
	for _, f := range s.FullTextFields {
		if _, err := dsl.ParseField(f); err != nil {
			return fmt.Errorf("fulltext_fields: %w", err)
		}
	}
	seen := make(map[string]bool, len(s.Enhancers))
	for _, name := range s.Enhancers {
		if seen[name] {
			return fmt.Errorf("enhancers: %q listed twice", name)
		}
		seen[name] = true
	}
	for i, f := range s.DefaultFilters {
		if f.Keyword == "" || f.Value == "" {
			return fmt.Errorf("default_filters[%d]: keyword and value are required", i)
		}
		if f.Collection != "" && !doublestar.ValidatePattern(f.Collection) {
			return fmt.Errorf("default_filters[%d]: invalid pattern %q", i, f.Collection)
		}
	}
	return nil
}

func (b Backend) Validate() error {
	switch b.Kind {
	case BackendLocal:
		if b.Local.Dir == "" {
			return fmt.Errorf("local.dir is required")
		}
		if b.Local.FlushThreshold <= 0 {
			return fmt.Errorf("local.flush_threshold must be positive")
		}
	case BackendElastic:
		if b.Elastic.URL == "" {
			return fmt.Errorf("elastic.url is required")
		}
	default:
		return fmt.Errorf("unknown kind %q", b.Kind)
	}
	return nil
}

// ResolveIndex maps a collection to its index: an exact entry wins, then the
// first matching glob in declaration order, then DefaultIndex.
func (s Search) ResolveIndex(collection string) string {
	if collection == "" {
		return s.DefaultIndex
	}
	for _, m := range s.CollectionIndexMapping {
		if m.Collection == collection {
			return m.Index
		}
	}
	for _, m := range s.CollectionIndexMapping {
		if ok, _ := doublestar.Match(m.Collection, collection); ok {
			return m.Index
		}
	}
	return s.DefaultIndex
}

// Applies reports whether f is in force for collection.
func (f Filter) Applies(collection string) bool {
	if f.Collection == "" {
		return true
	}
	if collection == "" {
		return false
	}
	ok, _ := doublestar.Match(f.Collection, collection)
	return ok
}

// FiltersFor returns the default filters that apply to collection.
func (s Search) FiltersFor(collection string) []Filter {
	var out []Filter
	for _, f := range s.DefaultFilters {
		if f.Applies(collection) {
			out = append(out, f)
		}
	}
	return out
}
