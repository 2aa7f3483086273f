package Offsets

import (
	"github.com/mkocikowski/libkafka07/api"
)

// NewRequest for at most maxNumOffsets offsets before time (ms since epoch,
// or api.OffsetsLatest, or api.OffsetsEarliest).
func NewRequest(topic string, partition int32, time int64, maxNumOffsets int32) *api.Request {
	return &api.Request{
		Type: api.Offsets,
		Body: api.PartitionRequest{
			Topic:     topic,
			Partition: partition,
			Offset:    time,
			Limit:     maxNumOffsets,
		},
	}
}
