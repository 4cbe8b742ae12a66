package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Sebastian25gb/nubla-siem/logging"
	"github.com/Sebastian25gb/nubla-siem/model"
	"github.com/Sebastian25gb/nubla-siem/normalize"
)

// ReprocessOptions configures a single Reprocess run, mirroring the DLQ
// reprocessor's CLI flag surface.
type ReprocessOptions struct {
	Exchange        string
	RoutingKey      string
	DLQ             string
	Quarantine      string
	Limit           int
	Sleep           time.Duration
	DryRun          bool
	SeverityDefault string
	Verbose         bool
}

// ReprocessSummary reports the outcome of a Reprocess run, printed by the
// CLI entrypoint as its final JSON line.
type ReprocessSummary struct {
	Processed      int  `json:"processed"`
	Published      int  `json:"published"`
	RequeuedDryRun int  `json:"requeued_dry_run"`
	InvalidJSON    int  `json:"invalid_json"`
	Limit          int  `json:"limit"`
	DryRun         bool `json:"dry_run"`
}

// Reprocess drains up to opts.Limit messages from the DLQ via basic_get,
// re-normalizing and republishing each.
func Reprocess(ctx context.Context, ch *amqp.Channel, log *logging.Logger, opts ReprocessOptions) (ReprocessSummary, error) {
	if log == nil {
		log = logging.NewDiscard()
	}
	var summary ReprocessSummary
	summary.Limit = opts.Limit
	summary.DryRun = opts.DryRun

	for i := 0; i < opts.Limit; i++ {
		d, ok, err := ch.Get(opts.DLQ, false)
		if err != nil {
			return summary, fmt.Errorf("basic_get: %w", err)
		}
		if !ok {
			break
		}

		var evt map[string]interface{}
		if err := json.Unmarshal(d.Body, &evt); err != nil {
			summary.InvalidJSON++
			if opts.DryRun {
				d.Nack(false, true)
			} else {
				if opts.Quarantine != "" {
					if perr := ch.Publish("", opts.Quarantine, false, false, amqp.Publishing{
						ContentType: "application/octet-stream",
						Body:        d.Body,
					}); perr != nil {
						log.Warn("quarantine_publish_failed", logging.F("error", perr))
					}
				}
				d.Ack(false)
			}
			if opts.Verbose {
				log.Info("reprocess_invalid_json", logging.F("seq", i+1))
			}
			continue
		}

		before, _ := evt["severity"]
		fixed := fixEvent(evt, opts.SeverityDefault)

		var reprocessID string
		if opts.DryRun {
			summary.RequeuedDryRun++
			d.Nack(false, true)
		} else {
			body, merr := json.Marshal(fixed)
			if merr != nil {
				d.Nack(false, true)
				summary.Processed++
				continue
			}
			reprocessID = uuid.New().String()
			perr := ch.Publish(opts.Exchange, opts.RoutingKey, false, false, amqp.Publishing{
				ContentType: "application/json",
				Body:        body,
				Headers: amqp.Table{
					"x-reprocess-reason": "dlq_reprocess",
					"x-reprocess-id":     reprocessID,
				},
			})
			if perr != nil {
				d.Nack(false, true)
				summary.Processed++
				if opts.Verbose {
					log.Warn("reprocess_publish_failed", logging.F("seq", i+1), logging.F("error", perr))
				}
				continue
			}
			summary.Published++
			d.Ack(false)
		}

		summary.Processed++
		if opts.Verbose {
			log.Info("reprocess_event",
				logging.F("seq", i+1),
				logging.F("tenant_id", fixed["tenant_id"]),
				logging.F("severity_before", before),
				logging.F("severity_after", fixed["severity"]),
				logging.F("published", !opts.DryRun),
				logging.F("reprocess_id", reprocessID),
			)
		}

		if opts.Sleep > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(opts.Sleep):
			}
		}
	}

	return summary, nil
}

// fixEvent re-normalizes a DLQ event and applies the reprocessor's defaults:
// a default severity when null/empty, a tenant_id when absent, and the
// dlq_reprocess marker.
func fixEvent(evt map[string]interface{}, severityDefault string) map[string]interface{} {
	fixed := normalize.Normalize(evt)

	if sev, ok := fixed["severity"].(string); !ok || sev == "" || sev == "null" {
		fixed["severity"] = severityDefault
	}
	if _, ok := fixed["severity_original"]; !ok {
		fixed["severity_original"] = severityDefault
	}

	if tid, ok := fixed["tenant_id"].(string); !ok || tid == "" {
		fixed["tenant_id"] = model.DefaultTenantID
	}

	if _, ok := fixed["dataset"]; !ok {
		fixed["dataset"] = model.DefaultDataset
	}
	if _, ok := fixed["schema_version"]; !ok {
		fixed["schema_version"] = model.DefaultSchemaVersion
	}
	if _, ok := fixed["@timestamp"]; !ok {
		if ts, ok := fixed["timestamp"].(string); ok && ts != "" {
			fixed["@timestamp"] = ts
		} else {
			fixed["@timestamp"] = model.NowUTC()
		}
	}

	fixed["dlq_reprocess"] = true
	return fixed
}
