package message

import (
	"github.com/mkocikowski/libkafka07/compression"
	"github.com/pkg/errors"
)

// MaxDepth limits how many levels of compressed messages Scanner expands.
// Brokers only ever nest one level.
const MaxDepth = 4

// Set is a message set: zero or more length prefixed messages. Fetch
// responses carry message sets, and because the broker limits response sizes
// the last message in a fetched set may be truncated.
type Set []byte

// Build a message set from messages, without compression.
func Build(messages ...*Message) Set {
	size := 0
	for _, m := range messages {
		size += m.Size()
	}
	b := make([]byte, 0, size)
	for _, m := range messages {
		b = m.AppendTo(b)
	}
	return b
}

// Messages decodes the whole set. Frames that fail to decode are skipped.
// The returned error is ErrIncomplete if the set ends with a truncated frame.
func (s Set) Messages() ([]*Message, error) {
	var messages []*Message
	scanner := NewScanner(s)
	for scanner.Scan() {
		messages = append(messages, scanner.Message())
	}
	return messages, scanner.Err()
}

// FrameError describes a frame that was skipped by Scanner.
type FrameError struct {
	// Position of the top level frame in the scanned set.
	Position int
	Depth    int
	Err      error
}

func (e *FrameError) Error() string {
	return errors.Wrapf(e.Err, "frame at position %d depth %d", e.Position, e.Depth).Error()
}

func (e *FrameError) Unwrap() error { return e.Err }

type cursor struct {
	buf   []byte
	depth int
}

// Scanner lazily decodes a message set. Compressed messages are decompressed
// and their contents returned in place, so a caller never sees a compressed
// message. Frames with a bad checksum, magic byte, or compression attribute
// are skipped and recorded (see Skipped); scanning continues with the next
// frame since the frame length is still trusted. A truncated frame stops
// scanning: at the top level it is reported by Err and its bytes are not
// counted by Consumed.
//
// Usage:
//
//	scanner := message.NewScanner(set)
//	for scanner.Scan() {
//		m := scanner.Message()
//	}
//	if err := scanner.Err(); err != nil {
//	}
type Scanner struct {
	stack    []cursor
	message  *Message
	err      error
	skipped  []*FrameError
	consumed int
	position int // start of the current top level frame
}

func NewScanner(set []byte) *Scanner {
	return &Scanner{stack: []cursor{{buf: set}}}
}

// Scan advances to the next message. It returns false when the set is
// exhausted or a top level frame is truncated.
func (s *Scanner) Scan() bool {
	s.message = nil
	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]
		if len(top.buf) == 0 {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		frame, rest, ok := next(top.buf)
		if !ok {
			if top.depth == 0 {
				s.err = ErrIncomplete
				s.stack = nil
				return false
			}
			// the enclosing frame was complete, so this is corruption
			// inside a compressed payload: drop what is left of it
			s.skip(top.depth, ErrIncomplete)
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		depth := top.depth
		top.buf = rest
		if depth == 0 {
			s.position = s.consumed
			s.consumed += 4 + len(frame)
		}
		m, err := Unmarshal(frame)
		if err != nil {
			s.skip(depth, err)
			continue
		}
		if m.Compression == compression.None {
			s.message = m
			return true
		}
		if depth+1 > MaxDepth {
			s.skip(depth, ErrTooDeep)
			continue
		}
		c, _ := compression.Lookup(m.Compression) // checked by Unmarshal
		inner, err := c.Decompress(m.Payload)
		if err != nil {
			s.skip(depth, err)
			continue
		}
		s.stack = append(s.stack, cursor{buf: inner, depth: depth + 1})
	}
	return false
}

func next(b []byte) (frame, rest []byte, ok bool) {
	if len(b) < 4 {
		return nil, nil, false
	}
	n := int(int32(ord.Uint32(b)))
	if n < 0 || len(b)-4 < n {
		return nil, nil, false
	}
	return b[4 : 4+n], b[4+n:], true
}

func (s *Scanner) skip(depth int, err error) {
	s.skipped = append(s.skipped, &FrameError{Position: s.position, Depth: depth, Err: err})
}

// Message returned by the last successful call to Scan.
func (s *Scanner) Message() *Message {
	return s.message
}

// Err is ErrIncomplete if scanning stopped on a truncated top level frame.
func (s *Scanner) Err() error {
	return s.err
}

// Skipped frames, in the order they were encountered.
func (s *Scanner) Skipped() []*FrameError {
	return s.skipped
}

// Consumed is the number of bytes of complete top level frames scanned so
// far, including skipped frames. This is how far an offset advances.
func (s *Scanner) Consumed() int {
	return s.consumed
}
