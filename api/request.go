package api

import (
	"bytes"
	"encoding/binary"
	"reflect"

	"github.com/mkocikowski/libkafka07/wire"
)

// https://cwiki.apache.org/confluence/display/KAFKA/Writing+a+Driver+for+Kafka

// Request is encoded as the int16 request type followed by the body. Encoding
// is pure: the 4 byte size header is added by Framed or by the transport.
type Request struct {
	Type RequestType
	Body interface{}
}

// Bytes returns the encoded request without the size header. Panics if the
// body contains a type the wire package can not encode (this is a programming
// error, not a runtime condition).
func (r *Request) Bytes() []byte {
	buf := new(bytes.Buffer)
	if err := wire.Write(buf, reflect.ValueOf(r)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Framed returns the encoded request prefixed with its int32 size.
func (r *Request) Framed() []byte {
	return Frame(r.Bytes())
}

// Frame prefixes body with its int32 big endian size.
func Frame(body []byte) []byte {
	b := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(b, uint32(len(body)))
	copy(b[4:], body)
	return b
}

// PartitionRequest is the body shared by Fetch and Offsets requests.
type PartitionRequest struct {
	Topic     string
	Partition int32
	Offset    int64
	Limit     int32
}

// EncodePartitionRequest encodes a Fetch or Offsets request. For Fetch, offset
// is the byte offset to read from and limit the maximum number of bytes to
// return. For Offsets, offset is a time (OffsetsLatest, OffsetsEarliest, or
// ms since epoch) and limit is the maximum number of offsets to return.
func EncodePartitionRequest(typ RequestType, topic string, partition int32, offset int64, limit int32) []byte {
	req := &Request{
		Type: typ,
		Body: PartitionRequest{
			Topic:     topic,
			Partition: partition,
			Offset:    offset,
			Limit:     limit,
		},
	}
	return req.Bytes()
}
