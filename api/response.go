package api

import (
	"bytes"
	"encoding/binary"
	"io"
	"reflect"

	"github.com/mkocikowski/libkafka07/wire"
	"github.com/pkg/errors"
)

var ErrShortResponse = errors.New("response shorter than error code")

// Read a size prefixed response.
func Read(r io.Reader) (*Response, error) {
	var size int32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, errors.Wrap(err, "error reading response size")
	}
	if size < 0 {
		return nil, errors.Errorf("negative response size %d", size)
	}
	b := make([]byte, int(size))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, errors.Wrap(err, "error reading response body")
	}
	return Parse(b)
}

// Parse a response body (without the size prefix).
func Parse(b []byte) (*Response, error) {
	if len(b) < 2 {
		return nil, ErrShortResponse
	}
	return &Response{body: b}, nil
}

// Response is the int16 broker error code followed by the payload.
type Response struct {
	body []byte
}

func (r *Response) ErrorCode() int16 {
	return int16(binary.BigEndian.Uint16(r.body))
}

// Payload is everything after the error code.
func (r *Response) Payload() []byte {
	return r.body[2:]
}

func (r *Response) Unmarshal(v interface{}) error {
	return wire.Read(bytes.NewReader(r.Payload()), reflect.ValueOf(v))
}

// Bytes returns the whole body, error code included.
func (r *Response) Bytes() []byte {
	return r.body
}
