package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Sebastian25gb/nubla-siem/broker"
	"github.com/Sebastian25gb/nubla-siem/config"
	"github.com/Sebastian25gb/nubla-siem/logging"
	"github.com/Sebastian25gb/nubla-siem/metrics"
	"github.com/Sebastian25gb/nubla-siem/searchclient"
	"github.com/Sebastian25gb/nubla-siem/tenant"
	"github.com/Sebastian25gb/nubla-siem/validate"
)

var (
	verbose = flag.Bool("v", false, "display verbose status updates to stdout")
)

func main() {
	flag.Parse()

	log := logging.New(os.Stdout)
	if *verbose {
		log.SetLevel(logging.DEBUG)
	} else {
		log.SetLevelString(config.String("LOG_LEVEL", "INFO"))
	}

	cfg := config.Load()
	if err := cfg.Verify(); err != nil {
		log.Fatal("bad_configuration", logging.F("error", err))
	}

	registry := tenant.New(cfg.TenantsRegistryPath, log)
	registry.Reload()
	registry.Watch()
	defer registry.Close()
	metrics.TenantRegistrySize.Set(float64(registry.Size()))

	hostMap := tenant.LoadHostMap(cfg.HostTenantMapPath, log)

	validator := validate.LoadOptional(cfg.NCSSchemaLocalPath, log)

	client, err := searchclient.New(searchclient.Options{
		Host:     cfg.OpenSearchHost,
		User:     cfg.OSUser,
		Password: cfg.OSPass,
		Log:      log,
	})
	if err != nil {
		log.Fatal("search_backend_unreachable", logging.F("error", err))
	}

	var bulkIndexer *searchclient.BulkIndexer
	if cfg.UseBulk {
		bulkIndexer = searchclient.NewBulkIndexer(client, searchclient.BulkOptions{
			MaxItems:    cfg.BulkMaxItems,
			MaxInterval: cfg.BulkMaxInterval(),
			Log:         log,
		})
	}

	conn, ch, err := broker.Dial(cfg)
	if err != nil {
		log.Fatal("broker_unreachable", logging.F("error", err))
	}

	topology := broker.Topology{
		Exchange:   cfg.RabbitMQExchange,
		DLX:        cfg.RabbitMQDLX,
		Queue:      cfg.RabbitMQQueue,
		DLQ:        cfg.RabbitMQDLQ,
		RoutingKey: cfg.RabbitMQRoutingKey,
	}
	consumer := broker.NewConsumer(conn, ch, topology, broker.Deps{
		Config:    cfg,
		Log:       log,
		Registry:  registry,
		HostMap:   hostMap,
		Validator: validator,
		Client:    client,
		Bulk:      bulkIndexer,
	})

	go func() {
		if err := metrics.Serve(cfg.MetricsPort); err != nil {
			log.Error("metrics_server_failed", logging.F("error", err))
		}
	}()

	fmt.Fprintf(os.Stdout, "nubla-siem consumer starting on queue %s\n", topology.Queue)
	if err := consumer.Run(context.Background()); err != nil {
		log.Fatal("consumer_run_failed", logging.F("error", err))
	}
}
