package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/crm-console/internal/version"
)

const (
	defaultLimit       = 100
	defaultIdleTimeout = 2 * time.Second

	envBrokers  = "CRM_KAFKA_BROKERS"
	envTopic    = "CRM_KAFKA_TOPIC"
	envDLQTopic = "CRM_KAFKA_DLQ_TOPIC"
)

var errUsage = errors.New("usage")

type options struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

// parseArgs разбирает флаги; брокеры и топики по умолчанию берутся из окружения консоли.
func parseArgs(args []string, getenv func(string) string, stderr io.Writer) (options, error) {
	var (
		opts       options
		brokersRaw string
	)

	fs := flag.NewFlagSet("dlq-replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers, comma-separated (fallback: "+envBrokers+")")
	fs.StringVar(&opts.sourceTopic, "source-topic", firstNonEmpty(getenv(envDLQTopic), kafka.TopicDeadLetterQueue), "DLQ topic to scan")
	fs.StringVar(&opts.targetTopic, "target-topic", firstNonEmpty(getenv(envTopic), kafka.TopicConsoleEvents), "topic for replayed events")
	fs.IntVar(&opts.limit, "limit", defaultLimit, "max number of messages to scan")
	fs.BoolVar(&opts.execute, "execute", false, "publish replayed events; default is dry-run")
	fs.BoolVar(&opts.fromNewest, "from-newest", false, "scan the latest messages of each partition")
	fs.DurationVar(&opts.idleTimeout, "idle-timeout", defaultIdleTimeout, "stop reading a partition after this idle period")
	if err := fs.Parse(args); err != nil {
		return options{}, fmt.Errorf("%w: %v", errUsage, err)
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv(envBrokers)
	}
	opts.brokers = splitBrokers(brokersRaw)
	opts.sourceTopic = strings.TrimSpace(opts.sourceTopic)
	opts.targetTopic = strings.TrimSpace(opts.targetTopic)

	switch {
	case len(opts.brokers) == 0:
		return options{}, fmt.Errorf("%w: %s (or -brokers) is required", errUsage, envBrokers)
	case opts.sourceTopic == "":
		return options{}, fmt.Errorf("%w: source-topic is required", errUsage)
	case opts.targetTopic == "":
		return options{}, fmt.Errorf("%w: target-topic is required", errUsage)
	case opts.sourceTopic == opts.targetTopic:
		return options{}, fmt.Errorf("%w: source and target topics must differ", errUsage)
	case opts.limit <= 0:
		return options{}, fmt.Errorf("%w: limit must be > 0", errUsage)
	case opts.idleTimeout <= 0:
		return options{}, fmt.Errorf("%w: idle-timeout must be > 0", errUsage)
	}
	return opts, nil
}

func splitBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

type consumerAdapter struct {
	consumer sarama.Consumer
}

func (a consumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a consumerAdapter) Close() error { return a.consumer.Close() }

// connect открывает клиента, consumer и, в режиме execute, синхронный producer.
var connect = func(opts options) (offsetClient, consumerSource, replayProducer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = version.UserAgent()
	cfg.Consumer.Return.Errors = true

	client, err := sarama.NewClient(opts.brokers, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if !opts.execute {
		return client, consumerAdapter{consumer: consumer}, nil, nil
	}

	producer, err := sarama.NewSyncProducer(opts.brokers, kafka.ProducerSaramaConfig(version.UserAgent()))
	if err != nil {
		_ = consumer.Close()
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return client, consumerAdapter{consumer: consumer}, producer, nil
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	client, consumer, producer, err := connect(opts)
	if err != nil {
		return err
	}
	defer func() {
		if producer != nil {
			_ = producer.Close()
		}
		_ = consumer.Close()
		_ = client.Close()
	}()

	r := newReplayer(client, consumer, producer, opts, log.WithField("component", "dlq-replay"))
	summary, err := r.Run(ctx)
	printSummary(stdout, opts, summary)
	return err
}

func printSummary(w io.Writer, opts options, s summary) {
	mode := "dry-run"
	if opts.execute {
		mode = "execute"
	}
	_, _ = fmt.Fprintf(w, "dlq replay %s: %s -> %s scanned=%d replayed=%d skipped=%d\n",
		mode, opts.sourceTopic, opts.targetTopic, s.Scanned, s.Replayed, s.Skipped)
}

func main() {
	_ = godotenv.Load()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	opts, err := parseArgs(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
