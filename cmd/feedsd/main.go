// Command feedsd runs the feed-fanout core: the two bus consumers, the
// processor loop, and the read-RPC HTTP server, joined as a single
// fail-fast group.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/bez-dna/bzd-flux/internal/config"
	"github.com/bez-dna/bzd-flux/internal/feeds/bus"
	"github.com/bez-dna/bzd-flux/internal/feeds/events"
	"github.com/bez-dna/bzd-flux/internal/feeds/fanout"
	"github.com/bez-dna/bzd-flux/internal/feeds/membership"
	"github.com/bez-dna/bzd-flux/internal/feeds/metrics"
	"github.com/bez-dna/bzd-flux/internal/feeds/processor"
	"github.com/bez-dna/bzd-flux/internal/feeds/queue"
	"github.com/bez-dna/bzd-flux/internal/feeds/read"
	"github.com/bez-dna/bzd-flux/internal/feeds/repo"
	"github.com/bez-dna/bzd-flux/internal/feeds/transport"
	"github.com/bez-dna/bzd-flux/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML configuration file")
	logLevel := flag.String("log-level", "info", "debug, info, warn, or error")
	flag.Parse()

	if err := run(*configPath, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DB.Endpoint)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := repo.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	store := repo.NewPostgres(pool)

	nc, err := nats.Connect(cfg.NATS.Endpoint)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("open jetstream context: %w", err)
	}
	if err := ensureStream(js, cfg); err != nil {
		return fmt.Errorf("ensure jetstream stream: %w", err)
	}

	collectors := metrics.New()
	collectors.MustRegister(prometheus.DefaultRegisterer)

	emitter := events.LoggingEmitter{Log: log}

	taskQueue := queue.New(store, emitter)
	membershipSvc := membership.New(store, emitter)
	fanoutSvc := fanout.New(store).WithMetrics(collectors)
	readSvc := read.New(store, cfg.Feeds.Limits.User)

	messageConsumer, err := bus.NewMessageConsumer(js,
		firstSubject(cfg.Feeds.Messaging.Message), cfg.Feeds.Messaging.Message.Consumer, taskQueue, log)
	if err != nil {
		return fmt.Errorf("start message consumer: %w", err)
	}
	messageConsumer.WithMetrics(collectors)

	topicUserConsumer, err := bus.NewTopicUserConsumer(js,
		firstSubject(cfg.Feeds.Messaging.TopicUser), cfg.Feeds.Messaging.TopicUser.Consumer, membershipSvc, log)
	if err != nil {
		return fmt.Errorf("start topic-user consumer: %w", err)
	}
	topicUserConsumer.WithMetrics(collectors)

	router := transport.NewRouter(readSvc, log)
	router.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	group, groupCtx := errgroup.WithContext(ctx)

	proc := processor.New(taskQueue, fanoutSvc, log).WithMetrics(collectors)
	if err := proc.Start(groupCtx); err != nil {
		return fmt.Errorf("start processor: %w", err)
	}
	group.Go(func() error {
		<-groupCtx.Done()
		proc.Stop()
		return nil
	})

	group.Go(func() error { return messageConsumer.Run(groupCtx) })
	group.Go(func() error { return topicUserConsumer.Run(groupCtx) })
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	return group.Wait()
}

// ensureStream creates the backing JetStream stream if it doesn't exist,
// covering both consumers' subject filters.
func ensureStream(js nats.JetStreamContext, cfg config.Config) error {
	if _, err := js.StreamInfo(cfg.NATS.Stream); err == nil {
		return nil
	}

	subjects := append(
		append([]string{}, cfg.Feeds.Messaging.Message.Subjects...),
		cfg.Feeds.Messaging.TopicUser.Subjects...,
	)
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     cfg.NATS.Stream,
		Subjects: subjects,
		Storage:  nats.FileStorage,
	})
	return err
}

func firstSubject(c config.ConsumerConfig) string {
	if len(c.Subjects) == 0 {
		return ""
	}
	return c.Subjects[0]
}
