package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Sebastian25gb/nubla-siem/broker"
	"github.com/Sebastian25gb/nubla-siem/config"
	"github.com/Sebastian25gb/nubla-siem/logging"
)

var (
	host            = flag.String("host", config.String("RABBITMQ_HOST", "localhost"), "broker host")
	port            = flag.Int("port", int(config.Uint16("RABBITMQ_PORT", 5672)), "broker port")
	user            = flag.String("user", config.String("RABBITMQ_USER", "guest"), "broker user")
	password        = flag.String("password", config.String("RABBITMQ_PASSWORD", "guest"), "broker password")
	vhost           = flag.String("vhost", config.String("RABBITMQ_VHOST", "/"), "broker vhost")
	dlq             = flag.String("dlq", config.String("RABBITMQ_DLQ", "nubla_logs_default.dlq"), "DLQ queue name")
	exchange        = flag.String("exchange", config.String("RABBITMQ_EXCHANGE", "logs_default"), "main exchange")
	routingKey      = flag.String("routing-key", config.String("RABBITMQ_ROUTING_KEY", "nubla.log.default"), "republish routing key")
	limit           = flag.Int("limit", 100, "max messages to process")
	sleep           = flag.Float64("sleep", 0, "sleep seconds between messages")
	dryRun          = flag.Bool("dry-run", false, "only show transformations; do NOT publish")
	severityDefault = flag.String("severity-default", "info", "default severity when missing")
	quarantine      = flag.String("quarantine", "", "queue to route non-JSON bodies into, instead of ack-drop")
	verbose         = flag.Bool("verbose", false, "print each processed message summary")
)

func main() {
	flag.Parse()

	log := logging.NewDiscard()
	if *verbose || *dryRun {
		log = logging.New(os.Stderr)
		log.SetLevel(logging.DEBUG)
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s", *user, *password, *host, *port, vhostPath(*vhost))
	conn, err := amqp.Dial(url)
	if err != nil {
		fmt.Println(toJSON(map[string]interface{}{"error": "connection_failed", "details": err.Error()}))
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		fmt.Println(toJSON(map[string]interface{}{"error": "connection_failed", "details": err.Error()}))
		os.Exit(1)
	}
	defer ch.Close()

	summary, err := broker.Reprocess(context.Background(), ch, log, broker.ReprocessOptions{
		Exchange:        *exchange,
		RoutingKey:      *routingKey,
		DLQ:             *dlq,
		Quarantine:      *quarantine,
		Limit:           *limit,
		Sleep:           time.Duration(*sleep * float64(time.Second)),
		DryRun:          *dryRun,
		SeverityDefault: *severityDefault,
		Verbose:         *verbose || *dryRun,
	})
	if err != nil {
		fmt.Println(toJSON(map[string]interface{}{"error": "reprocess_failed", "details": err.Error()}))
		os.Exit(1)
	}

	fmt.Println(toJSON(map[string]interface{}{"summary": summary}))
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":"marshal_failed","details":%q}`, err.Error())
	}
	return string(b)
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
