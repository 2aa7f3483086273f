package producer

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/api/MultiProduce"
	"github.com/mkocikowski/libkafka07/api/Produce"
	"github.com/mkocikowski/libkafka07/batch"
	"github.com/mkocikowski/libkafka07/client"
	"github.com/mkocikowski/libkafka07/compression"
	"github.com/mkocikowski/libkafka07/config"
	"github.com/mkocikowski/libkafka07/internal/brokertest"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/mkocikowski/libkafka07/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newProducer(b *brokertest.Broker, c compression.Type) *PartitionProducer {
	cfg := config.Default()
	cfg.Compression = c
	p := New(cfg)
	p.Dialer = b.Dial
	return p
}

// messageSet returns the message set of a produce request body (after the
// request type).
func messageSet(t *testing.T, body []byte) message.Set {
	t.Helper()
	topicLen := int(binary.BigEndian.Uint16(body))
	rest := body[2+topicLen+4:]
	n := int(binary.BigEndian.Uint32(rest))
	require.Equal(t, n, len(rest)-4)
	return rest[4:]
}

func TestUnitPushSingleMessage(t *testing.T) {
	b := brokertest.New()
	defer b.Close()
	p := newProducer(b, compression.None)
	defer p.Close()
	before := testutil.ToFloat64(metrics.MessagesProduced)
	n, err := p.Push(message.NewString("ale"))
	require.NoError(t, err)
	expected := []byte{
		0, 0, // produce
		0, 4, 't', 'e', 's', 't',
		0, 0, 0, 0, // partition
		0, 0, 0, 13, // message set size
		0, 0, 0, 9, 1, 0, 0x42, 0xc4, 0xc9, 0x79, 'a', 'l', 'e',
	}
	assert.Equal(t, 4+len(expected), n)
	requests := b.Wait(1)
	require.Len(t, requests, 1)
	assert.Equal(t, expected[2:], requests[0].Body)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MessagesProduced))
}

func TestUnitPushCompressed(t *testing.T) {
	for _, typ := range []compression.Type{compression.Gzip, compression.Snappy} {
		t.Run(typ.String(), func(t *testing.T) {
			b := brokertest.New()
			defer b.Close()
			p := newProducer(b, typ)
			defer p.Close()
			_, err := p.PushStrings("foo", "bar")
			require.NoError(t, err)
			requests := b.Wait(1)
			require.Len(t, requests, 1)
			set := messageSet(t, requests[0].Body)
			wrapper, err := message.Unmarshal(set[4:])
			require.NoError(t, err)
			assert.Equal(t, typ, wrapper.Compression)
			messages, err := set.Messages()
			require.NoError(t, err)
			require.Len(t, messages, 2)
			assert.Equal(t, "bar", string(messages[1].Payload))
		})
	}
}

func TestUnitBatchSingleWrite(t *testing.T) {
	for _, count := range []int{0, 2} {
		b := brokertest.New()
		p := newProducer(b, compression.None)
		n, err := p.Batch(func(builder *batch.Builder) {
			for i := 0; i < count; i++ {
				builder.AddStrings("m")
			}
		})
		require.NoError(t, err)
		assert.True(t, n > 0)
		requests := b.Wait(1)
		require.Len(t, requests, 1)
		assert.Equal(t, 1, b.Writes(), count)
		messages, err := messageSet(t, requests[0].Body).Messages()
		require.NoError(t, err)
		assert.Len(t, messages, count)
		p.Close()
		b.Close()
	}
}

func TestUnitPushNilMessage(t *testing.T) {
	b := brokertest.New()
	defer b.Close()
	p := newProducer(b, compression.None)
	defer p.Close()
	_, err := p.Push(message.NewString("a"), nil)
	assert.Equal(t, batch.ErrNilMessage, err)
	assert.Equal(t, 0, b.Dials())
}

func TestUnitPushAfterSocketFailure(t *testing.T) {
	client1, server := net.Pipe()
	server.Close()
	p := &PartitionProducer{PartitionClient: client.PartitionClient{
		Conn:  client.Conn{Host: "broker", Port: 9092, Dialer: func(string, string) (net.Conn, error) { return client1, nil }},
		Topic: "test",
	}}
	_, err := p.PushStrings("a")
	assert.True(t, errors.Is(err, client.ErrSocket), err)
	_, err = p.PushStrings("a")
	assert.True(t, errors.Is(err, client.ErrNotConnected), err)
}

func TestUnitMultiPushGroupsByPartition(t *testing.T) {
	b := brokertest.New()
	defer b.Close()
	p := NewMulti(config.Default())
	p.Dialer = b.Dial
	defer p.Close()
	_, err := p.MultiPush(
		&MultiProduce.Request{Topic: "a", Partition: 0, Message: message.NewString("1")},
		&MultiProduce.Request{Topic: "b", Partition: 1, Message: message.NewString("2")},
		&MultiProduce.Request{Topic: "a", Partition: 0, Message: message.NewString("3")},
	)
	require.NoError(t, err)
	requests := b.Wait(1)
	require.Len(t, requests, 1)
	assert.Equal(t, api.MultiProduce, requests[0].Type)
	expected, _ := MultiProduce.Encode([]*MultiProduce.Request{
		{Topic: "a", Partition: 0, Message: message.NewString("1")},
		{Topic: "b", Partition: 1, Message: message.NewString("2")},
		{Topic: "a", Partition: 0, Message: message.NewString("3")},
	}, compression.None)
	assert.Equal(t, expected[2:], requests[0].Body)
	assert.Equal(t, []byte{0, 2}, requests[0].Body[:2]) // two groups
}

func TestUnitMultiPush(t *testing.T) {
	b := brokertest.New()
	defer b.Close()
	p := NewMulti(config.Default())
	p.Dialer = b.Dial
	defer p.Close()
	_, err := p.Push("other", 3, message.NewString("x"))
	require.NoError(t, err)
	requests := b.Wait(1)
	require.Len(t, requests, 1)
	expected, _ := Produce.Encode("other", 3, compression.None, message.NewString("x"))
	assert.Equal(t, expected[2:], requests[0].Body)
}

func TestUnitMultiBatchSingleWrite(t *testing.T) {
	for _, count := range []int{0, 2} {
		b := brokertest.New()
		p := NewMulti(config.Default())
		p.Dialer = b.Dial
		_, err := p.Batch(func(r *Requests) {
			for i := 0; i < count; i++ {
				r.Add("t", int32(i), message.NewString("m"))
			}
			assert.Equal(t, count, r.Len())
		})
		require.NoError(t, err)
		requests := b.Wait(1)
		require.Len(t, requests, 1)
		assert.Equal(t, api.MultiProduce, requests[0].Type)
		assert.Equal(t, 1, b.Writes())
		assert.Equal(t, int16(count), int16(binary.BigEndian.Uint16(requests[0].Body)))
		p.Close()
		b.Close()
	}
}

func TestIntegrationPartitionProducer(t *testing.T) {
	conn, err := net.DialTimeout("tcp", "localhost:9092", time.Second)
	if err != nil {
		t.Skip("no broker on localhost:9092")
	}
	conn.Close()
	p := New(config.Default())
	defer p.Close()
	if _, err := p.PushStrings("foo", "bar"); err != nil {
		t.Fatal(err)
	}
}
