package searchclient

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Sebastian25gb/nubla-siem/logging"
	"github.com/Sebastian25gb/nubla-siem/metrics"
)

// bulkAction is one buffered document awaiting a flush.
type bulkAction struct {
	index    string
	source   map[string]interface{}
	pipeline string
}

// BulkIndexer is a simple in-memory buffer that flushes on size or
// elapsed interval. Add and Flush both take flushMu, since the consumer's
// receive loop calls Add while a separate ticker goroutine calls Flush on
// its own schedule.
type BulkIndexer struct {
	client          *Client
	maxItems        int
	maxInterval     time.Duration
	defaultPipeline string
	log             *logging.Logger

	buffer    []bulkAction
	lastFlush time.Time
	flushMu   sync.Mutex
}

// BulkOptions configures NewBulkIndexer.
type BulkOptions struct {
	MaxItems        int
	MaxInterval     time.Duration
	DefaultPipeline string
	Log             *logging.Logger
}

// NewBulkIndexer builds a BulkIndexer over client with the given flush
// triggers, defaulting to 500 items or 1000ms.
func NewBulkIndexer(client *Client, opts BulkOptions) *BulkIndexer {
	if opts.MaxItems <= 0 {
		opts.MaxItems = 500
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = time.Second
	}
	if opts.Log == nil {
		opts.Log = logging.NewDiscard()
	}
	return &BulkIndexer{
		client:          client,
		maxItems:        opts.MaxItems,
		maxInterval:     opts.MaxInterval,
		defaultPipeline: opts.DefaultPipeline,
		log:             opts.Log,
		lastFlush:       time.Now(),
	}
}

// Add appends doc to the buffer under index, flushing immediately if the
// size or interval trigger fires.
func (b *BulkIndexer) Add(ctx context.Context, index string, doc map[string]interface{}, pipeline string) {
	action := bulkAction{index: index, source: doc}
	if pipeline != "" {
		action.pipeline = pipeline
	} else if b.defaultPipeline != "" {
		action.pipeline = b.defaultPipeline
	}

	b.flushMu.Lock()
	b.buffer = append(b.buffer, action)
	size := len(b.buffer)
	due := time.Since(b.lastFlush) >= b.maxInterval
	b.flushMu.Unlock()

	metrics.ConsumerBufferSize.Set(float64(size))
	if size >= b.maxItems || due {
		b.Flush(ctx)
	}
}

// Size reports the number of currently buffered actions.
func (b *BulkIndexer) Size() int {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return len(b.buffer)
}

// Flush issues one bulk request for the full buffer. The buffer is
// cleared unconditionally on return — both success and failure — and a
// failure or partial-error warning carrying the batch's item count is
// logged; failed items are not retried.
func (b *BulkIndexer) Flush(ctx context.Context) {
	b.flushMu.Lock()
	if len(b.buffer) == 0 {
		b.flushMu.Unlock()
		return
	}
	items := b.buffer
	b.buffer = nil
	b.lastFlush = time.Now()
	b.flushMu.Unlock()

	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	for _, a := range items {
		meta := map[string]interface{}{"_index": a.index}
		if a.pipeline != "" {
			meta["pipeline"] = a.pipeline
		}
		if id, ok := a.source["event_id"].(string); ok && id != "" {
			meta["_id"] = id
		}
		header := map[string]interface{}{"index": meta}
		_ = enc.Encode(header)
		_ = enc.Encode(a.source)
	}

	start := time.Now()
	res, err := b.client.es.Bulk(bytes.NewReader(payload.Bytes()), b.client.es.Bulk.WithContext(ctx))
	took := time.Since(start)
	metrics.IndexLatencySeconds.Observe(took.Seconds())
	metrics.BulkFlushesTotal.Inc()

	if err != nil {
		b.log.Warn("bulk_flush_failed", logging.F("items", len(items)), logging.F("error", err))
	} else {
		defer res.Body.Close()
		var decoded struct {
			Errors bool `json:"errors"`
		}
		if derr := json.NewDecoder(res.Body).Decode(&decoded); derr == nil && decoded.Errors {
			b.log.Warn("bulk_flush_partial_errors", logging.F("items", len(items)))
		} else if res.IsError() {
			b.log.Warn("bulk_flush_failed", logging.F("items", len(items)), logging.F("status", res.StatusCode))
		} else {
			b.log.Info("bulk_flush_ok", logging.F("items", len(items)), logging.F("took_seconds", took.Seconds()))
			metrics.EventsIndexedTotal.Add(float64(len(items)))
			for _, a := range items {
				if tid, ok := a.source["tenant_id"].(string); ok && tid != "" {
					metrics.EventsIndexedByTenantTotal.WithLabelValues(tid).Inc()
				}
			}
		}
	}

	metrics.ConsumerBufferSize.Set(0)
}
