package producer

import (
	"sync"

	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/api/MultiProduce"
	"github.com/mkocikowski/libkafka07/api/Produce"
	"github.com/mkocikowski/libkafka07/client"
	"github.com/mkocikowski/libkafka07/compression"
	"github.com/mkocikowski/libkafka07/config"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/mkocikowski/libkafka07/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Requests collects messages for MultiProducer.Batch.
type Requests struct {
	requests []*MultiProduce.Request
}

// Add messages for a topic partition.
func (r *Requests) Add(topic string, partition int32, messages ...*message.Message) *Requests {
	for _, m := range messages {
		r.requests = append(r.requests, &MultiProduce.Request{Topic: topic, Partition: partition, Message: m})
	}
	return r
}

func (r *Requests) Append(requests ...*MultiProduce.Request) *Requests {
	r.requests = append(r.requests, requests...)
	return r
}

func (r *Requests) Len() int {
	return len(r.requests)
}

// MultiProducer writes to any topic partition over one connection, opened
// on first use. Calls are serialized. After a socket error call Reconnect.
type MultiProducer struct {
	client.Conn
	Compression compression.Type
	mu          sync.Mutex
}

func NewMulti(cfg config.Config) *MultiProducer {
	return &MultiProducer{Conn: conn(cfg), Compression: cfg.Compression}
}

func (p *MultiProducer) send(typ api.RequestType, body []byte, numMessages int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.Conn.Send(typ, body)
	if err != nil {
		return n, err
	}
	metrics.MessagesProduced.Add(float64(numMessages))
	log.Debugf("produced %d messages in %d bytes (%s)", numMessages, n, typ)
	return n, nil
}

// Push messages to topic partition in a single produce request. Returns the
// number of bytes written.
func (p *MultiProducer) Push(topic string, partition int32, messages ...*message.Message) (int, error) {
	body, err := Produce.Encode(topic, partition, p.Compression, messages...)
	if err != nil {
		return 0, err
	}
	n, err := p.send(api.Produce, body, len(messages))
	return n, errors.Wrapf(err, "error producing to %s:%d", topic, partition)
}

// MultiPush writes all requests in one multi produce request. Messages for
// the same topic partition are grouped into one message set (compressed
// together if Compression is set).
func (p *MultiProducer) MultiPush(requests ...*MultiProduce.Request) (int, error) {
	body, err := MultiProduce.Encode(requests, p.Compression)
	if err != nil {
		return 0, err
	}
	n, err := p.send(api.MultiProduce, body, len(requests))
	return n, errors.Wrap(err, "error sending multi produce request")
}

// Batch calls fn with an empty collector and then issues exactly one
// MultiPush with everything fn added.
func (p *MultiProducer) Batch(fn func(*Requests)) (int, error) {
	r := &Requests{}
	fn(r)
	return p.MultiPush(r.requests...)
}

// Reconnect after a socket failure.
func (p *MultiProducer) Reconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Conn.Reconnect()
}

func (p *MultiProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Conn.Disconnect()
}
