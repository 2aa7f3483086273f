// Package api defines Kafka 0.7 protocol requests and responses.
package api

// RequestType identifies the operation in the request header.
type RequestType int16

const (
	Produce      RequestType = 0
	Fetch        RequestType = 1
	Offsets      RequestType = 2
	MultiProduce RequestType = 3
)

var Keys = map[RequestType]string{
	Produce:      "Produce",
	Fetch:        "Fetch",
	Offsets:      "Offsets",
	MultiProduce: "MultiProduce",
}

func (t RequestType) String() string {
	if s, ok := Keys[t]; ok {
		return s
	}
	return "Unknown"
}

const (
	// OffsetsLatest as the time of an Offsets request asks for the offset of
	// the next message to be written.
	OffsetsLatest int64 = -1
	// OffsetsEarliest asks for the oldest offset still on the broker.
	OffsetsEarliest int64 = -2
)
