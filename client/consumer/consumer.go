// Package consumer implements a single partition Kafka consumer. The consumer
// tracks its own offset: a byte position in the partition log. Until the
// offset is known (set with SetOffset, or in the config) the first Consume
// asks the broker for the latest offset and starts from there.
package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/client"
	"github.com/mkocikowski/libkafka07/client/fetcher"
	"github.com/mkocikowski/libkafka07/config"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/mkocikowski/libkafka07/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrStop is returned by a Loop callback to end the loop. Loop then
	// returns nil.
	ErrStop = errors.New("stop consuming")
	// ErrNoOffsets is returned when an offsets request returns no offsets.
	ErrNoOffsets = fetcher.ErrNoOffsets
)

type Response struct {
	Topic      string
	Partition  int32
	Offset     int64 // offset the fetch started at
	NextOffset int64
	Messages   []*message.Message
	Skipped    []*message.FrameError
	// MessageSetSizeBytes is the size of the fetched set; NextOffset-Offset
	// can be smaller when the set ends with a truncated message.
	MessageSetSizeBytes int
}

type PartitionConsumer struct {
	fetcher.PartitionFetcher
	Polling    time.Duration // sleep between Loop iterations, config.DefaultPolling if not set
	MaxOffsets int32
	// OnCorrupt is called for every skipped frame. The default logs a
	// warning.
	OnCorrupt func(*message.FrameError)
	mu        sync.Mutex
	offset    int64
	known     bool
}

// New consumer for cfg.Topic and cfg.Partition. If cfg.Offset is set it is
// the starting offset.
func New(cfg config.Config) *PartitionConsumer {
	c := &PartitionConsumer{
		PartitionFetcher: fetcher.PartitionFetcher{
			PartitionClient: client.PartitionClient{
				Conn: client.Conn{
					Host:         cfg.Host,
					Port:         cfg.Port,
					ReadTimeout:  cfg.ReadTimeout,
					WriteTimeout: cfg.WriteTimeout,
				},
				Topic:     cfg.Topic,
				Partition: cfg.Partition,
			},
			MaxSize: cfg.MaxSize,
		},
		Polling:    cfg.Polling,
		MaxOffsets: cfg.MaxOffsets,
	}
	if cfg.Offset != nil {
		c.SetOffset(*cfg.Offset)
	}
	return c
}

// Offset returns the current offset and whether it is known.
func (c *PartitionConsumer) Offset() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset, c.known
}

func (c *PartitionConsumer) SetOffset(offset int64) {
	c.mu.Lock()
	c.offset = offset
	c.known = true
	c.mu.Unlock()
}

// FetchOffsets returns at most max offsets before time (ms since epoch, or
// api.OffsetsLatest, or api.OffsetsEarliest). Does not change the offset.
func (c *PartitionConsumer) FetchOffsets(time int64, max int32) ([]int64, error) {
	return c.PartitionFetcher.Offsets(time, max)
}

func (c *PartitionConsumer) first(time int64) (int64, error) {
	max := c.MaxOffsets
	if max < 1 {
		max = 1
	}
	offsets, err := c.FetchOffsets(time, max)
	if err != nil {
		return 0, err
	}
	if len(offsets) == 0 {
		return 0, ErrNoOffsets
	}
	return offsets[0], nil
}

// FetchLatestOffset returns the offset at which the next message will be
// written. Does not change the offset.
func (c *PartitionConsumer) FetchLatestOffset() (int64, error) {
	return c.first(api.OffsetsLatest)
}

// FetchEarliestOffset returns the oldest offset still held by the broker.
func (c *PartitionConsumer) FetchEarliestOffset() (int64, error) {
	return c.first(api.OffsetsEarliest)
}

func (c *PartitionConsumer) onCorrupt(e *message.FrameError) {
	metrics.FramesSkipped.Inc()
	if c.OnCorrupt != nil {
		c.OnCorrupt(e)
		return
	}
	log.WithFields(log.Fields{"topic": c.Topic, "partition": c.Partition}).Warnf("skipping corrupt message: %v", e)
}

// Consume fetches messages from the current offset (fetching the latest
// offset first if it is not known) and advances the offset by the bytes of
// complete messages read, skipped corrupt messages included. A truncated
// message at the end of the set is fetched again by the next call. If the
// set holds no complete message at all the fetch size is too small for the
// next message and an error wrapping message.ErrIncomplete is returned.
// Socket and broker errors leave the offset unchanged.
func (c *PartitionConsumer) Consume() (*Response, error) {
	offset, known := c.Offset()
	if !known {
		latest, err := c.FetchLatestOffset()
		if err != nil {
			return nil, errors.Wrap(err, "error fetching latest offset")
		}
		log.WithFields(log.Fields{"topic": c.Topic, "partition": c.Partition}).Debugf("starting from latest offset %d", latest)
		c.SetOffset(latest)
		offset = latest
	}
	fetched, err := c.Fetch(offset)
	if err != nil {
		return nil, errors.Wrapf(err, "error fetching offset %d", offset)
	}
	resp := &Response{
		Topic:               c.Topic,
		Partition:           c.Partition,
		Offset:              offset,
		MessageSetSizeBytes: len(fetched.MessageSet),
	}
	scanner := message.NewScanner(fetched.MessageSet)
	for scanner.Scan() {
		resp.Messages = append(resp.Messages, scanner.Message())
	}
	resp.Skipped = scanner.Skipped()
	for _, e := range resp.Skipped {
		c.onCorrupt(e)
	}
	if scanner.Err() != nil && scanner.Consumed() == 0 {
		return nil, errors.Wrapf(scanner.Err(), "no complete message within fetch size %d at offset %d", c.MaxSize, offset)
	}
	resp.NextOffset = offset + int64(scanner.Consumed())
	c.SetOffset(resp.NextOffset)
	metrics.MessagesConsumed.Add(float64(len(resp.Messages)))
	return resp, nil
}

func (c *PartitionConsumer) polling() time.Duration {
	if c.Polling <= 0 {
		return config.DefaultPolling
	}
	return c.Polling
}

// Loop calls Consume, then fn once for every message in order, then sleeps
// for Polling, until fn returns an error or ctx is done. The offset is
// advanced past the whole fetch before fn is called. If fn returns ErrStop
// Loop returns nil; any other error from fn or from Consume is returned
// as is, and so is ctx.Err().
func (c *PartitionConsumer) Loop(ctx context.Context, fn func(*message.Message) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := c.Consume()
		if err != nil {
			return err
		}
		for _, m := range resp.Messages {
			if err := fn(m); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		timer := time.NewTimer(c.polling())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
