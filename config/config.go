// Package config holds the settings shared by producers, consumers, and the
// kafka07 command. A Config is a plain value: build it with Default, overlay
// a YAML file with Load and environment variables with FromEnv, then pass it
// to producer.New or consumer.New.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/mkocikowski/libkafka07"
	"github.com/mkocikowski/libkafka07/compression"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Host        string           `yaml:"host"`
	Port        int              `yaml:"port"`
	Topic       string           `yaml:"topic"`
	Partition   int32            `yaml:"partition"`
	Compression compression.Type `yaml:"compression"` // "no", "gzip", or "snappy"
	// Offset to start consuming from. Nil means the latest offset is
	// fetched from the broker on the first Consume.
	Offset       *int64        `yaml:"offset"`
	Polling      time.Duration `yaml:"polling"`
	MaxSize      int32         `yaml:"max_size"`    // max fetch size in bytes
	MaxOffsets   int32         `yaml:"max_offsets"` // max offsets per offsets request
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

const (
	DefaultHost       = libkafka07.Host
	DefaultPort       = libkafka07.Port
	DefaultTopic      = "test"
	DefaultPolling    = 2 * time.Second
	DefaultMaxSize    = 1048576
	DefaultMaxOffsets = 1
)

func Default() Config {
	return Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		Topic:       DefaultTopic,
		Compression: compression.None,
		Polling:     DefaultPolling,
		MaxSize:     DefaultMaxSize,
		MaxOffsets:  DefaultMaxOffsets,
		ReadTimeout: 30 * time.Second,
	}
}

// Parse YAML into a copy of cfg. Keys missing from the document keep their
// values from cfg.
func Parse(cfg Config, b []byte) (Config, error) {
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "error parsing config")
	}
	return cfg, nil
}

// Load the YAML file at path over Default.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "error reading config file %s", path)
	}
	return Parse(Default(), b)
}

// FromEnv overlays KAFKA_HOST, KAFKA_PORT, KAFKA_TOPIC, KAFKA_PARTITION,
// KAFKA_COMPRESSION, KAFKA_OFFSET, and KAFKA_POLLING (seconds) on cfg. Unset
// or empty variables are ignored. getenv is usually os.Getenv.
func FromEnv(cfg Config, getenv func(string) string) (Config, error) {
	var err error
	if v := getenv("KAFKA_HOST"); v != "" {
		cfg.Host = v
	}
	if v := getenv("KAFKA_PORT"); v != "" {
		if cfg.Port, err = strconv.Atoi(v); err != nil {
			return cfg, errors.Wrap(err, "KAFKA_PORT")
		}
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		cfg.Topic = v
	}
	if v := getenv("KAFKA_PARTITION"); v != "" {
		p, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return cfg, errors.Wrap(err, "KAFKA_PARTITION")
		}
		cfg.Partition = int32(p)
	}
	if v := getenv("KAFKA_COMPRESSION"); v != "" {
		if cfg.Compression, err = compression.Parse(v); err != nil {
			return cfg, errors.Wrap(err, "KAFKA_COMPRESSION")
		}
	}
	if v := getenv("KAFKA_OFFSET"); v != "" {
		o, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, errors.Wrap(err, "KAFKA_OFFSET")
		}
		cfg.Offset = &o
	}
	if v := getenv("KAFKA_POLLING"); v != "" {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, errors.Wrap(err, "KAFKA_POLLING")
		}
		cfg.Polling = time.Duration(s * float64(time.Second))
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("host is required")
	case c.Port < 1 || c.Port > 65535:
		return errors.Errorf("port out of range: %d", c.Port)
	case c.Topic == "":
		return errors.New("topic is required")
	case c.Partition < 0:
		return errors.Errorf("negative partition: %d", c.Partition)
	case c.Polling <= 0:
		return errors.Errorf("polling interval must be positive: %s", c.Polling)
	case c.MaxSize <= 0:
		return errors.Errorf("max size must be positive: %d", c.MaxSize)
	case c.MaxOffsets <= 0:
		return errors.Errorf("max offsets must be positive: %d", c.MaxOffsets)
	}
	if _, err := compression.Lookup(c.Compression); err != nil {
		return err
	}
	return nil
}
