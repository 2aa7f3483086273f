package MultiProduce

import (
	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/batch"
	"github.com/mkocikowski/libkafka07/compression"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/pkg/errors"
)

// Request pairs a message with the topic partition it is produced to.
type Request struct {
	Topic     string
	Partition int32
	Message   *message.Message
}

func NewRequest(data []Data) *api.Request {
	return &api.Request{
		Type: api.MultiProduce,
		Body: Body{Data: data},
	}
}

type Body struct {
	Data []Data `wire:"len16"`
}

type Data struct {
	Topic      string
	Partition  int32
	MessageSet []byte
}

type group struct {
	topic     string
	partition int32
	messages  []*message.Message
}

// Encode a multi produce request. Requests for the same topic partition are
// coalesced into one message set, placed where that topic partition first
// appears; otherwise the given order is kept. Compression, when set, applies
// to each message set as in Produce.Encode. The result does not include the 4
// byte size header.
func Encode(requests []*Request, c compression.Type) ([]byte, error) {
	codec, err := compression.Lookup(c)
	if err != nil {
		return nil, err
	}
	var groups []*group
	index := make(map[string]map[int32]*group)
	for i, r := range requests {
		if r == nil || r.Message == nil {
			return nil, errors.Errorf("nil request or message at position %d", i)
		}
		if index[r.Topic] == nil {
			index[r.Topic] = make(map[int32]*group)
		}
		g := index[r.Topic][r.Partition]
		if g == nil {
			g = &group{topic: r.Topic, partition: r.Partition}
			index[r.Topic][r.Partition] = g
			groups = append(groups, g)
		}
		g.messages = append(g.messages, r.Message)
	}
	data := make([]Data, 0, len(groups))
	for _, g := range groups {
		set, err := batch.Build(codec, g.messages...)
		if err != nil {
			return nil, errors.Wrapf(err, "error building message set for %s:%d", g.topic, g.partition)
		}
		data = append(data, Data{Topic: g.topic, Partition: g.partition, MessageSet: set})
	}
	return NewRequest(data).Bytes(), nil
}
