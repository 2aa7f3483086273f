package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/mkocikowski/libkafka07/client"
	"github.com/mkocikowski/libkafka07/compression"
	"github.com/mkocikowski/libkafka07/config"
	"github.com/mkocikowski/libkafka07/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// dial is used for every broker connection; tests replace it.
var dial func(network, addr string) (net.Conn, error)

type options struct {
	configPath  string
	host        string
	port        int
	topic       string
	partition   int32
	compression string
	logLevel    string
	metricsAddr string
	retries     uint
	retryDelay  time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "kafka07",
		Short:         "Publish to and consume from Kafka 0.7 brokers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			log.SetOutput(cmd.ErrOrStderr())
			if opts.metricsAddr != "" {
				serveMetrics(opts.metricsAddr)
			}
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.host, "host", config.DefaultHost, "Broker host")
	flags.IntVarP(&opts.port, "port", "p", config.DefaultPort, "Broker port")
	flags.StringVarP(&opts.topic, "topic", "t", config.DefaultTopic, "Topic")
	flags.Int32Var(&opts.partition, "partition", 0, "Partition")
	flags.StringVarP(&opts.compression, "compression", "c", "no", "Compression: no, gzip, or snappy")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (for example :8001)")
	flags.UintVar(&opts.retries, "retries", 3, "Attempts per call on socket failures, reconnecting in between (0: no limit)")
	flags.DurationVar(&opts.retryDelay, "retry-delay", time.Second, "Delay between attempts")
	root.AddCommand(newPublishCmd(opts), newConsumeCmd(opts))
	return root
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		log.Infof("serving metrics on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()
}

// loadConfig layers defaults, the config file, the environment, and the
// flags that were set explicitly.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()
	var err error
	if opts.configPath != "" {
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if cfg, err = config.FromEnv(cfg, os.Getenv); err != nil {
		return cfg, errors.Wrap(err, "error reading environment")
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Port = opts.port
	}
	if flags.Changed("topic") {
		cfg.Topic = opts.topic
	}
	if flags.Changed("partition") {
		cfg.Partition = opts.partition
	}
	if flags.Changed("compression") {
		if cfg.Compression, err = compression.Parse(opts.compression); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// withRetry calls fn until it succeeds, fails with something other than a
// socket error, or runs out of attempts. reconnect is called before every
// retry since a socket failure closes the connection.
func withRetry(ctx context.Context, opts *options, reconnect func() error, fn func() error) error {
	return retry.New(
		retry.Context(ctx),
		retry.Attempts(opts.retries),
		retry.Delay(opts.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, client.ErrSocket) }),
		retry.OnRetry(func(attempt uint, err error) {
			log.Warnf("attempt %d failed: %v; reconnecting", attempt+1, err)
			if err := reconnect(); err != nil {
				log.Warnf("reconnect failed: %v", err)
			}
		}),
	).Do(fn)
}
