// Package message implements functions for marshaling and unmarshaling
// individual Kafka 0.7 messages and for iterating over message sets.
//
// On the wire a message is:
//
//	length    int32  number of bytes that follow
//	magic     int8   1 (0 in old logs: no attributes byte)
//	attribute int8   compression.Type
//	checksum  uint32 crc32 (IEEE) of payload
//	payload   []byte
//
// When the attribute is not compression.None the payload is a compressed
// message set, and Scanner expands it into the messages it contains.
package message

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/mkocikowski/libkafka07/compression"
	"github.com/pkg/errors"
)

const (
	MagicWithoutCompression int8 = 0
	MagicWithCompression    int8 = 1
	// bytes before the payload, excluding the length field
	headerSize = 1 + 1 + 4
	// bytes before the payload, including the length field
	FullHeaderSize = 4 + headerSize
)

var (
	ErrChecksum     = errors.New("message checksum does not match payload")
	ErrUnknownMagic = errors.New("unknown message magic byte")
	ErrIncomplete   = errors.New("incomplete message frame")
	ErrTooDeep      = errors.New("compressed messages nested too deep")
)

var ord = binary.BigEndian

func New(payload []byte) *Message {
	return &Message{Payload: payload}
}

func NewString(payload string) *Message {
	return New([]byte(payload))
}

// Message is immutable once built: the checksum is always computed from the
// payload. Not safe for concurrent mutation.
type Message struct {
	Compression compression.Type
	Payload     []byte
}

func (m *Message) Checksum() uint32 {
	return crc32.ChecksumIEEE(m.Payload)
}

// Size of the marshaled message, including the length field.
func (m *Message) Size() int {
	return FullHeaderSize + len(m.Payload)
}

// Marshal the message, length prefix included. Always uses magic 1.
func (m *Message) Marshal() []byte {
	return m.AppendTo(make([]byte, 0, m.Size()))
}

// AppendTo appends the marshaled message to b.
func (m *Message) AppendTo(b []byte) []byte {
	var h [FullHeaderSize]byte
	ord.PutUint32(h[0:], uint32(headerSize+len(m.Payload)))
	h[4] = byte(MagicWithCompression)
	h[5] = byte(m.Compression)
	ord.PutUint32(h[6:], m.Checksum())
	b = append(b, h[:]...)
	return append(b, m.Payload...)
}

// Unmarshal a single message frame (without the length field). The payload
// is not copied. Returns ErrUnknownMagic, ErrChecksum,
// compression.ErrUnsupported, or ErrIncomplete.
func Unmarshal(frame []byte) (*Message, error) {
	if len(frame) < 1 {
		return nil, ErrIncomplete
	}
	m := &Message{}
	var body []byte
	switch magic := int8(frame[0]); magic {
	case MagicWithoutCompression:
		if len(frame) < 1+4 {
			return nil, ErrIncomplete
		}
		m.Compression = compression.None
		body = frame[1:]
	case MagicWithCompression:
		if len(frame) < headerSize {
			return nil, ErrIncomplete
		}
		m.Compression = compression.Type(frame[1])
		if _, err := compression.Lookup(m.Compression); err != nil {
			return nil, err
		}
		body = frame[2:]
	default:
		return nil, errors.Wrapf(ErrUnknownMagic, "magic %d", magic)
	}
	crc := ord.Uint32(body)
	m.Payload = body[4:]
	if c := m.Checksum(); c != crc {
		return nil, errors.Wrapf(ErrChecksum, "expected %d got %d", crc, c)
	}
	return m, nil
}
