package Fetch

import (
	"github.com/mkocikowski/libkafka07/api"
)

type Args struct {
	Topic     string
	Partition int32
	Offset    int64
	MaxSize   int32
}

func NewRequest(args *Args) *api.Request {
	return &api.Request{
		Type: api.Fetch,
		Body: api.PartitionRequest{
			Topic:     args.Topic,
			Partition: args.Partition,
			Offset:    args.Offset,
			Limit:     args.MaxSize,
		},
	}
}
