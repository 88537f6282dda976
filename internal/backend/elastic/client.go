// Package elastic sends search bodies to an Elasticsearch cluster over HTTP.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"

	"harshagw/recsearch/internal/backend"
	"harshagw/recsearch/internal/config"
	"harshagw/recsearch/internal/dsl"
	"harshagw/recsearch/internal/logging"
)

// maxResponseBytes bounds the decompressed size of one search response.
const maxResponseBytes = 256 << 20

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	Code   int
	Type   string
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s: %s", e.Code, e.Type, e.Reason)
}

// Client searches one cluster.
type Client struct {
	base   *url.URL
	gzip   bool
	http   *http.Client
	logger *slog.Logger
	parser fastjson.ParserPool
}

var _ backend.Client = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. to set timeouts or TLS.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the cluster at cfg.URL.
func New(cfg config.Elastic, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("elastic url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("elastic url %q: scheme must be http or https", cfg.URL)
	}

	c := &Client{
		base: base,
		gzip: cfg.Gzip,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Default(c.logger)
	return c, nil
}

// searchURL returns {base}/{index}[/{docType}]/_search.
func (c *Client) searchURL(index, docType string) string {
	elems := []string{index}
	if docType != "" {
		elems = append(elems, docType)
	}
	return c.base.JoinPath(append(elems, "_search")...).String()
}

// Search posts body to the index. Every failure comes back as a
// *backend.Error.
func (c *Client) Search(ctx context.Context, index, docType string, body dsl.Body) (*backend.Response, error) {
	start := time.Now()
	resp, err := c.search(ctx, index, docType, body)
	if err != nil {
		c.logger.DebugContext(ctx, "search failed", "index", index, "error", err)
		return nil, backend.Wrap(index, err)
	}
	c.logger.DebugContext(ctx, "search finished",
		"index", index,
		"doc_type", docType,
		"total", resp.Total,
		"hits", len(resp.Hits),
		"took", time.Since(start),
	)
	return resp, nil
}

func (c *Client) search(ctx context.Context, index, docType string, body dsl.Body) (*backend.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	var reqBody bytes.Buffer
	if c.gzip {
		zw := gzip.NewWriter(&reqBody)
		if _, err := zw.Write(payload); err != nil {
			return nil, fmt.Errorf("compress body: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress body: %w", err)
		}
	} else {
		reqBody.Write(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL(index, docType), &reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.gzip {
		req.Header.Set("Content-Encoding", "gzip")
		req.Header.Set("Accept-Encoding", "gzip")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := readBody(res)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, c.statusError(res.StatusCode, data)
	}
	return c.parseResponse(data)
}

// readBody reads the response, inflating it when the server compressed it.
func readBody(res *http.Response) ([]byte, error) {
	var r io.Reader = res.Body
	if strings.EqualFold(res.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, fmt.Errorf("open gzip response: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

func (c *Client) statusError(code int, data []byte) error {
	serr := &StatusError{Code: code}
	p := c.parser.Get()
	defer c.parser.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return serr
	}
	if errVal := v.Get("error"); errVal != nil {
		if errVal.Type() == fastjson.TypeString {
			serr.Reason = string(errVal.GetStringBytes())
			return serr
		}
		serr.Type = string(errVal.GetStringBytes("type"))
		serr.Reason = string(errVal.GetStringBytes("reason"))
	}
	return serr
}

// parseResponse reads hits.total, given as a number or as {"value": n},
// and every hit of hits.hits.
func (c *Client) parseResponse(data []byte) (*backend.Response, error) {
	p := c.parser.Get()
	defer c.parser.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	hitsVal := v.Get("hits")
	if hitsVal == nil {
		return nil, fmt.Errorf("parse response: missing hits")
	}

	resp := &backend.Response{}
	if total := hitsVal.Get("total"); total != nil {
		if total.Type() == fastjson.TypeObject {
			total = total.Get("value")
		}
		if total != nil {
			n, err := total.Int()
			if err != nil {
				return nil, fmt.Errorf("parse hits.total: %w", err)
			}
			resp.Total = n
		}
	}

	for _, h := range hitsVal.GetArray("hits") {
		hit := backend.Hit{ID: string(h.GetStringBytes("_id"))}
		if score := h.Get("_score"); score != nil && score.Type() == fastjson.TypeNumber {
			hit.Score = score.GetFloat64()
		}
		if src := h.Get("_source"); src != nil && src.Type() == fastjson.TypeObject {
			hit.Source, _ = toAny(src).(map[string]any)
		}
		if fields := h.GetObject("fields"); fields != nil {
			hit.Fields = make(map[string][]any, fields.Len())
			fields.Visit(func(key []byte, val *fastjson.Value) {
				values, ok := toAny(val).([]any)
				if !ok {
					values = []any{toAny(val)}
				}
				hit.Fields[string(key)] = values
			})
		}
		resp.Hits = append(resp.Hits, hit)
	}
	return resp, nil
}

// toAny copies a parsed value out of the parser's memory into the shapes
// encoding/json produces.
func toAny(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		obj := v.GetObject()
		out := make(map[string]any, obj.Len())
		obj.Visit(func(key []byte, val *fastjson.Value) {
			out[string(key)] = toAny(val)
		})
		return out
	case fastjson.TypeArray:
		arr := v.GetArray()
		out := make([]any, len(arr))
		for i, item := range arr {
			out[i] = toAny(item)
		}
		return out
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}
