// Package searchclient wraps the OpenSearch/Elasticsearch-compatible HTTP
// surface the ingestion core depends on. URL normalization and
// retry/backoff are hand-written (the upstream client library does not
// expose these semantics); transport itself goes through opensearch-go.
package searchclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	opensearch "github.com/opensearch-project/opensearch-go/v2"

	"github.com/Sebastian25gb/nubla-siem/logging"
	"github.com/Sebastian25gb/nubla-siem/metrics"
)

const (
	defaultRetries     = 3
	defaultBaseBackoff = 500 * time.Millisecond
	defaultTimeout     = 30 * time.Second
)

// Client wraps the search backend. Each call to New builds a new Client;
// the process constructs one at startup and passes it to its users.
type Client struct {
	es      *opensearch.Client
	log     *logging.Logger
	retries int
	base    time.Duration
}

// Options configures New.
type Options struct {
	Host     string
	User     string
	Password string
	Retries  int
	Base     time.Duration
	Log      *logging.Logger
}

// NormalizeURL canonicalizes a configured host string: a bare host gets
// the default port, host:port gets the http scheme, and a full URL
// passes through unchanged.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "http://localhost:9200"
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if strings.Contains(raw, ":") {
		return "http://" + raw
	}
	return "http://" + raw + ":9200"
}

// New builds a Client, performing a single Info() sanity check against the
// backend before returning it.
func New(opts Options) (*Client, error) {
	if opts.Log == nil {
		opts.Log = logging.NewDiscard()
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.Base <= 0 {
		opts.Base = defaultBaseBackoff
	}

	cfg := opensearch.Config{
		Addresses: []string{NormalizeURL(opts.Host)},
	}
	if opts.User != "" && opts.Password != "" {
		cfg.Username = opts.User
		cfg.Password = opts.Password
	}
	es, err := opensearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{es: es, log: opts.Log, retries: opts.Retries, base: opts.Base}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if _, err := c.Info(ctx); err != nil {
		return nil, fmt.Errorf("search backend sanity check failed: %w", err)
	}
	return c, nil
}

// Info issues GET / for a liveness/version check.
func (c *Client) Info(ctx context.Context) (map[string]interface{}, error) {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("info: %s", res.String())
	}
	var out map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping issues HEAD / and reports reachability.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// IndexResult captures the outcome of a single-document index call.
type IndexResult struct {
	ID      string
	Version int
	Result  string
}

// Index performs a single-document index with bounded retries: default 3
// retries, base 500ms, multiplier attempt+1 (so successive waits are
// base*1, base*2, base*3). Each retry increments index_retries_total.
func (c *Client) Index(ctx context.Context, index string, body map[string]interface{}, pipeline string, refresh bool) (*IndexResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var result *IndexResult
	docID, _ := body["event_id"].(string)
	op := func() error {
		req := opensearch.IndexRequest{
			Index:      index,
			DocumentID: docID,
			Body:       bytes.NewReader(payload),
		}
		if pipeline != "" {
			req.Pipeline = pipeline
		}
		if refresh {
			req.Refresh = "true"
		}
		res, err := req.Do(ctx, c.es)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("index: %s", res.String())
		}
		var decoded struct {
			ID      string `json:"_id"`
			Version int    `json:"_version"`
			Result  string `json:"result"`
		}
		if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
			return backoff.Permanent(err)
		}
		result = &IndexResult{ID: decoded.ID, Version: decoded.Version, Result: decoded.Result}
		return nil
	}

	bo := c.retryPolicy(ctx)
	err = backoff.RetryNotify(op, bo, func(err error, d time.Duration) {
		metrics.IndexRetriesTotal.Inc()
		c.log.Warn("index_retry", logging.F("index", index), logging.F("error", err), logging.F("wait", d))
	})
	return result, err
}

// retryPolicy builds a bounded backoff with an attempt-proportional wait:
// base * (attempt+1), capped at c.retries retries (c.retries+1 attempts).
func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	b := &linearBackoff{base: c.base}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries)), ctx)
}

// linearBackoff implements a multiplier = attempt+1 growth rule, which
// bounded-exponential libraries like cenkalti/backoff don't express
// directly (their multiplier is constant across attempts).
type linearBackoff struct {
	base    time.Duration
	attempt int
}

func (l *linearBackoff) NextBackOff() time.Duration {
	l.attempt++
	return l.base * time.Duration(l.attempt)
}

func (l *linearBackoff) Reset() {
	l.attempt = 0
}

// IndexAlias resolves GET /_alias/<alias>, used by the external query
// surface's alias-admin interface.
func (c *Client) IndexAlias(ctx context.Context, alias string) (map[string]interface{}, error) {
	res, err := c.es.Indices.GetAlias(c.es.Indices.GetAlias.WithContext(ctx), c.es.Indices.GetAlias.WithName(alias))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("get_alias: %s", res.String())
	}
	var out map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count resolves POST /<index>/_count.
func (c *Client) Count(ctx context.Context, index string) (int64, error) {
	res, err := c.es.Count(c.es.Count.WithContext(ctx), c.es.Count.WithIndex(index))
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("count: %s", res.String())
	}
	var out struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Exists resolves HEAD /<index>.
func (c *Client) Exists(ctx context.Context, index string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	return res.StatusCode == 200, nil
}
