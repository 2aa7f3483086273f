package Produce

import (
	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/batch"
	"github.com/mkocikowski/libkafka07/compression"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/pkg/errors"
)

func NewRequest(topic string, partition int32, set message.Set) *api.Request {
	return &api.Request{
		Type: api.Produce,
		Body: Request{
			Topic:      topic,
			Partition:  partition,
			MessageSet: set,
		},
	}
}

type Request struct {
	Topic      string
	Partition  int32
	MessageSet []byte // int32 size followed by the messages
}

// Encode a produce request for messages. With compression other than None
// the messages are compressed together into a single wrapper message. The
// result does not include the 4 byte size header.
func Encode(topic string, partition int32, c compression.Type, messages ...*message.Message) ([]byte, error) {
	codec, err := compression.Lookup(c)
	if err != nil {
		return nil, err
	}
	set, err := batch.Build(codec, messages...)
	if err != nil {
		return nil, errors.Wrap(err, "error building message set")
	}
	return NewRequest(topic, partition, set).Bytes(), nil
}
