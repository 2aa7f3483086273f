// Package fetcher implements a single partition Kafka fetcher. A "fetcher", in
// my nomenclature, is different from a "consumer" in that it does no offset
// management of its own: every Fetch is told the offset to read from, and the
// returned message set is handed back undecoded. The reason for this is that
// there are many nuanced error scenarios (example: fetch response successful;
// 3rd out of 5 returned messages is corrupted; last message truncated by the
// fetch size) and so it makes sense to push the error handling logic (and the
// logic responsible for advancing offsets) to a higher level library (see
// client/consumer) or even to the user.
package fetcher

import (
	"time"

	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/client"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/pkg/errors"
)

type Response struct {
	Topic      string
	Partition  int32
	Offset     int64 // offset the fetch started at
	ErrorCode  int16
	MessageSet message.Set `json:"-"`
}

// ErrNoOffsets is returned by Seek when the broker returns an empty list.
var ErrNoOffsets = errors.New("no offsets returned by broker")

var (
	MessageNewest = time.Unix(0, api.OffsetsLatest*1e6)
	MessageOldest = time.Unix(0, api.OffsetsEarliest*1e6)
)

type PartitionFetcher struct {
	client.PartitionClient
	MaxSize int32 // max fetch size in bytes
}

// Fetch the message set starting at offset. A non zero broker error code is
// returned as *libkafka07.Error together with the response.
func (f *PartitionFetcher) Fetch(offset int64) (*Response, error) {
	resp, err := f.PartitionClient.Fetch(offset, f.MaxSize)
	if resp == nil {
		return nil, err
	}
	return &Response{
		Topic:      f.Topic,
		Partition:  f.Partition,
		Offset:     offset,
		ErrorCode:  resp.ErrorCode,
		MessageSet: resp.MessageSet,
	}, err
}

// Offsets returns at most max offsets of the segments before time (ms since
// epoch, or api.OffsetsLatest, or api.OffsetsEarliest). Newest first.
func (f *PartitionFetcher) Offsets(time int64, max int32) ([]int64, error) {
	resp, err := f.PartitionClient.Offsets(time, max)
	if err != nil {
		return nil, err
	}
	return resp.Offsets, nil
}

// Seek returns the first offset before t. Use MessageNewest and MessageOldest
// for the latest and earliest offsets.
func (f *PartitionFetcher) Seek(t time.Time) (int64, error) {
	offsets, err := f.Offsets(t.UnixNano()/int64(time.Millisecond), 1)
	if err != nil {
		return 0, err
	}
	if len(offsets) == 0 {
		return 0, ErrNoOffsets
	}
	return offsets[0], nil
}
