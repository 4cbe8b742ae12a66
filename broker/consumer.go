package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Sebastian25gb/nubla-siem/config"
	"github.com/Sebastian25gb/nubla-siem/logging"
	"github.com/Sebastian25gb/nubla-siem/metrics"
	"github.com/Sebastian25gb/nubla-siem/model"
	"github.com/Sebastian25gb/nubla-siem/normalize"
	"github.com/Sebastian25gb/nubla-siem/searchclient"
	"github.com/Sebastian25gb/nubla-siem/tenant"
	"github.com/Sebastian25gb/nubla-siem/validate"
)

// severityTable is the fixed severity-enum mapping applied to normalized
// events. Unknown values pass through lowercased.
var severityTable = map[string]string{
	"error":   "critical",
	"alert":   "high",
	"warning": "medium",
	"warn":    "medium",
}

// Rejection reasons attached to the x-reject-reason header and counted in
// events_nacked_by_reason_total.
const (
	ReasonMissingTenant       = "missing_tenant_id"
	ReasonValidationFailed    = "validation_failed"
	ReasonUnknownTenant       = "unknown_tenant_id"
	ReasonIndexFailed         = "index_failed"
	ReasonProcessingException = "processing_exception"
)

// Consumer wires the broker channel to the normalize→validate→route state
// machine that turns a raw delivery into an indexed (or rejected) event.
type Consumer struct {
	cfg       *config.Config
	conn      *amqp.Connection
	ch        *amqp.Channel
	topology  Topology
	log       *logging.Logger
	registry  *tenant.Registry
	hostMap   *tenant.HostMap
	validator *validate.Validator
	client    *searchclient.Client
	bulk      *searchclient.BulkIndexer
	preparer  normalize.Preparer
}

// Deps bundles the collaborators a Consumer needs; built once at process
// start and handed in rather than constructed lazily behind a singleton.
type Deps struct {
	Config    *config.Config
	Log       *logging.Logger
	Registry  *tenant.Registry
	HostMap   *tenant.HostMap
	Validator *validate.Validator
	Client    *searchclient.Client
	Bulk      *searchclient.BulkIndexer
}

// Dial opens the AMQP connection and channel, declares the topology, and
// sets the configured prefetch.
func Dial(cfg *config.Config) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.AMQPURL())
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	topology := Topology{
		Exchange:   cfg.RabbitMQExchange,
		DLX:        cfg.RabbitMQDLX,
		Queue:      cfg.RabbitMQQueue,
		DLQ:        cfg.RabbitMQDLQ,
		RoutingKey: cfg.RabbitMQRoutingKey,
	}
	if err := Declare(ch, topology); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}
	if err := ch.Qos(cfg.ConsumerPrefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("basic_qos: %w", err)
	}
	return conn, ch, nil
}

// NewConsumer builds a Consumer over an already-dialed connection/channel.
func NewConsumer(conn *amqp.Connection, ch *amqp.Channel, topology Topology, d Deps) *Consumer {
	log := d.Log
	if log == nil {
		log = logging.NewDiscard()
	}
	return &Consumer{
		cfg:       d.Config,
		conn:      conn,
		ch:        ch,
		topology:  topology,
		log:       log,
		registry:  d.Registry,
		hostMap:   d.HostMap,
		validator: d.Validator,
		client:    d.Client,
		bulk:      d.Bulk,
		preparer:  normalize.Preparer{DefaultTenant: d.Config.DefaultTenant},
	}
}

// Run starts consuming the main queue and blocks until ctx is cancelled or
// a SIGINT/SIGTERM arrives, then drains the bulk buffer and closes the
// channel/connection.
func (c *Consumer) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deliveries, err := c.ch.Consume(c.topology.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("basic_consume: %w", err)
	}
	c.log.Info("consumer_started", logging.F("queue", c.topology.Queue))

	flushTicker := time.NewTicker(c.cfg.BulkMaxInterval())
	defer flushTicker.Stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-flushTicker.C:
				if c.bulk != nil {
					c.bulk.Flush(context.Background())
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if c.bulk != nil {
				c.bulk.Flush(context.Background())
			}
			<-done
			c.ch.Close()
			c.conn.Close()
			c.log.Info("consumer_stopped")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				<-done
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle implements the Received → Parsed → Normalized → {Validated |
// Rejected} → {Indexed | Buffered | Rejected} state machine.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	metrics.EventsProcessedTotal.Inc()

	var raw map[string]interface{}
	if err := json.Unmarshal(d.Body, &raw); err != nil {
		c.reject(d, ReasonProcessingException)
		return
	}

	start := time.Now()
	doc := normalize.Normalize(raw)
	metrics.NormalizerLatencySeconds.Observe(time.Since(start).Seconds())

	c.applyHostTenantMapping(doc)
	c.applySeverityMapping(doc)

	if c.cfg.RequireTenant && !hasTenant(doc) {
		c.reject(d, ReasonMissingTenant)
		return
	}

	doc = c.preparer.Prepare(doc)

	if c.validator != nil {
		if errs := c.validator.Validate(doc); len(errs) > 0 {
			c.logValidationErrors(errs)
			c.reject(d, ReasonValidationFailed)
			return
		}
	}

	tenantID, _ := doc["tenant_id"].(string)
	if c.registry != nil && !c.registry.IsValid(tenantID) {
		c.reject(d, ReasonUnknownTenant)
		return
	}

	index := fmt.Sprintf("logs-%s", tenantID)

	if c.cfg.UseBulk && c.bulk != nil {
		c.bulk.Add(ctx, index, doc, "")
		d.Ack(false)
		return
	}

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	start = time.Now()
	_, err := c.client.Index(indexCtx, index, doc, "", false)
	metrics.EventIndexLatencySeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EventsIndexFailedTotal.Inc()
		c.reject(d, ReasonIndexFailed)
		return
	}
	metrics.EventsIndexedTotal.Inc()
	metrics.EventsIndexedByTenantTotal.WithLabelValues(tenantID).Inc()
	d.Ack(false)
	c.log.Info("event_indexed", logging.F("tenant_id", tenantID))
}

// reject handles a failed delivery in one of two modes: manual DLX
// republish (preserving the reason across requeues) or a plain
// broker-driven nack that relies on the queue's configured DLX.
func (c *Consumer) reject(d amqp.Delivery, reason string) {
	metrics.EventsNackedTotal.Inc()
	metrics.EventsNackedByReasonTotal.WithLabelValues(reason).Inc()
	if reason == ReasonValidationFailed {
		metrics.EventsValidationFailedTotal.Inc()
	}

	if c.cfg.UseManualDLX {
		err := c.ch.Publish(c.topology.DLX, "", false, false, amqp.Publishing{
			ContentType: "application/json",
			Body:        d.Body,
			Headers:     amqp.Table{"x-reject-reason": reason},
		})
		if err != nil {
			c.log.Error("dlx_publish_failed", logging.F("reason", reason), logging.F("error", err))
		}
		d.Ack(false)
		c.log.Info("rejected_to_dlx", logging.F("reason", reason))
		return
	}

	d.Nack(false, false)
	c.log.Info("rejected_nack", logging.F("reason", reason))
}

func (c *Consumer) applyHostTenantMapping(doc map[string]interface{}) {
	if c.hostMap == nil {
		return
	}
	tid, _ := doc["tenant_id"].(string)
	if tid != "" && tid != model.DefaultTenantID {
		return
	}
	host, _ := doc["host"].(string)
	if mapped, ok := c.hostMap.Lookup(host); ok {
		doc["tenant_id"] = mapped
	}
}

func (c *Consumer) applySeverityMapping(doc map[string]interface{}) {
	sev, ok := doc["severity"].(string)
	if !ok || sev == "" {
		return
	}
	lower := strings.ToLower(sev)
	if mapped, ok := severityTable[lower]; ok {
		doc["severity"] = mapped
	} else {
		doc["severity"] = lower
	}
}

func (c *Consumer) logValidationErrors(errs []validate.ValidationError) {
	n := len(errs)
	if n > 5 {
		errs = errs[:5]
	}
	for _, e := range errs {
		c.log.Warn("validation_error", logging.F("path", e.Path), logging.F("message", e.Message))
	}
	c.log.Warn("validation_failed", logging.F("error_count", n))
}

func hasTenant(doc map[string]interface{}) bool {
	tid, ok := doc["tenant_id"].(string)
	return ok && tid != "" && tid != model.DefaultTenantID
}
