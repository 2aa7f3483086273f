// Package producer implements Kafka 0.7 producers. PartitionProducer writes
// to a single topic partition; MultiProducer writes to any topic partitions,
// several at a time with MultiPush. Produce requests get no response from
// the broker: a nil error means only that the request was written in full.
package producer

import (
	"github.com/mkocikowski/libkafka07/batch"
	"github.com/mkocikowski/libkafka07/client"
	"github.com/mkocikowski/libkafka07/compression"
	"github.com/mkocikowski/libkafka07/config"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/mkocikowski/libkafka07/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func conn(cfg config.Config) client.Conn {
	return client.Conn{
		Host:         cfg.Host,
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

type PartitionProducer struct {
	client.PartitionClient
	Compression compression.Type
}

func New(cfg config.Config) *PartitionProducer {
	return &PartitionProducer{
		PartitionClient: client.PartitionClient{
			Conn:      conn(cfg),
			Topic:     cfg.Topic,
			Partition: cfg.Partition,
		},
		Compression: cfg.Compression,
	}
}

// PushStrings is Push with a message per value.
func (p *PartitionProducer) PushStrings(values ...string) (int, error) {
	return p.Batch(func(b *batch.Builder) { b.AddStrings(values...) })
}

// Push messages as one message set, compressed into a single message if
// Compression is set. One write is made (no retries). Returns the number of
// bytes written. See client.PartitionClient for how socket errors are
// handled; the set may have reached the broker even when an error is
// returned.
func (p *PartitionProducer) Push(messages ...*message.Message) (int, error) {
	codec, err := compression.Lookup(p.Compression)
	if err != nil {
		return 0, err
	}
	set, err := batch.Build(codec, messages...)
	if err != nil {
		return 0, err
	}
	n, err := p.PartitionClient.Produce(set)
	if err != nil {
		return n, errors.Wrapf(err, "error producing to %s:%d", p.Topic, p.Partition)
	}
	metrics.MessagesProduced.Add(float64(len(messages)))
	log.WithFields(log.Fields{"topic": p.Topic, "partition": p.Partition}).Debugf("produced %d messages in %d bytes", len(messages), n)
	return n, nil
}

// Batch calls fn with an empty builder and then pushes whatever fn added in a
// single write, even if that is nothing. Not safe for concurrent use of the
// same builder.
func (p *PartitionProducer) Batch(fn func(*batch.Builder)) (int, error) {
	b := batch.NewBuilder()
	fn(b)
	return p.Push(b.Messages()...)
}
