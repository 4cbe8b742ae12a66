package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds every environment-variable-configurable setting named in
// the ingestion core's external-interfaces contract.
type Config struct {
	// Search backend
	OpenSearchHost string
	OSUser         string
	OSPass         string

	// Broker endpoint
	RabbitMQHost     string
	RabbitMQPort     uint16
	RabbitMQUser     string
	RabbitMQPassword string
	RabbitMQVHost    string

	// Broker topology names
	RabbitMQExchange   string
	RabbitMQQueue      string
	RabbitMQDLX        string
	RabbitMQDLQ        string
	RabbitMQRoutingKey string

	ConsumerPrefetch int

	UseBulk             bool
	BulkMaxItems        int
	BulkMaxIntervalMS   int
	UseManualDLX        bool
	RequireTenant       bool
	DefaultTenant       string
	HostTenantMapPath   string
	NCSSchemaLocalPath  string
	TenantsRegistryPath string
	MetricsPort         uint16
}

// Load reads every recognized environment variable, falling back to the
// defaults documented in the external-interfaces table.
func Load() *Config {
	return &Config{
		OpenSearchHost: String("OPENSEARCH_HOST", "localhost:9200"),
		OSUser:         String("OS_USER", ""),
		OSPass:         String("OS_PASS", ""),

		RabbitMQHost:     String("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:     Uint16("RABBITMQ_PORT", 5672),
		RabbitMQUser:     String("RABBITMQ_USER", "guest"),
		RabbitMQPassword: String("RABBITMQ_PASSWORD", "guest"),
		RabbitMQVHost:    String("RABBITMQ_VHOST", "/"),

		RabbitMQExchange:   String("RABBITMQ_EXCHANGE", "logs_default"),
		RabbitMQQueue:      String("RABBITMQ_QUEUE", "nubla_logs_default"),
		RabbitMQDLX:        String("RABBITMQ_DLX", "logs_default.dlx"),
		RabbitMQDLQ:        String("RABBITMQ_DLQ", "nubla_logs_default.dlq"),
		RabbitMQRoutingKey: String("RABBITMQ_ROUTING_KEY", "nubla.log.default"),

		ConsumerPrefetch: Int("CONSUMER_PREFETCH", 5),

		UseBulk:           Bool("USE_BULK", false),
		BulkMaxItems:      Int("BULK_MAX_ITEMS", 500),
		BulkMaxIntervalMS: Int("BULK_MAX_INTERVAL_MS", 1000),
		UseManualDLX:      Bool("USE_MANUAL_DLX", true),
		RequireTenant:     Bool("REQUIRE_TENANT", false),
		DefaultTenant:     String("DEFAULT_TENANT", ""),

		HostTenantMapPath:   String("HOST_TENANT_MAP_PATH", ""),
		NCSSchemaLocalPath:  String("NCS_SCHEMA_LOCAL_PATH", ""),
		TenantsRegistryPath: String("TENANTS_REGISTRY_PATH", "config/tenants.json"),
		MetricsPort:         Uint16("METRICS_PORT", 9090),
	}
}

// Verify performs structural validation, failing fast on nonsensical values
// rather than deferring to a confusing runtime error later.
func (c *Config) Verify() error {
	if c.ConsumerPrefetch <= 0 {
		return errors.New("CONSUMER_PREFETCH must be a positive integer")
	}
	if c.BulkMaxItems <= 0 {
		return errors.New("BULK_MAX_ITEMS must be a positive integer")
	}
	if c.BulkMaxIntervalMS <= 0 {
		return errors.New("BULK_MAX_INTERVAL_MS must be a positive integer")
	}
	if c.RabbitMQExchange == "" || c.RabbitMQQueue == "" || c.RabbitMQDLX == "" || c.RabbitMQDLQ == "" {
		return errors.New("broker topology names must not be empty")
	}
	if c.OpenSearchHost == "" {
		return errors.New("OPENSEARCH_HOST must not be empty")
	}
	return nil
}

// BulkMaxInterval returns the configured flush interval as a time.Duration.
func (c *Config) BulkMaxInterval() time.Duration {
	return time.Duration(c.BulkMaxIntervalMS) * time.Millisecond
}

// AMQPURL composes the amqp091-go DSN from the broker fields.
func (c *Config) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort, vhostPath(c.RabbitMQVHost))
}

func vhostPath(vhost string) string {
	if vhost == "" || vhost == "/" {
		return "/"
	}
	if vhost[0] != '/' {
		return "/" + vhost
	}
	return vhost
}
