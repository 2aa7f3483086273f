/*
Package batch implements the Builder used for accumulating messages and
turning them into a single message set, compressed or not.

Producing

Call NewBuilder and Add messages to it. Call Builder.Build with a codec and
pass the returned message set to a Produce request. With compression.Nop the
set is the concatenation of the marshaled messages. With any other codec the
marshaled messages are compressed together and wrapped in one message whose
attribute names the codec; that wrapper is the whole set.
*/
package batch

import (
	"github.com/mkocikowski/libkafka07/compression"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/pkg/errors"
)

func NewBuilder() *Builder {
	return &Builder{}
}

// Builder is used for building message sets. There is no limit on the number
// of messages (up to the user). Not safe for concurrent use.
type Builder struct {
	messages []*message.Message
}

// Add messages to the builder. References to added messages are not released
// on call to Build.
func (b *Builder) Add(messages ...*message.Message) *Builder {
	b.messages = append(b.messages, messages...)
	return b
}

func (b *Builder) AddStrings(values ...string) *Builder {
	for _, s := range values {
		b.messages = append(b.messages, message.NewString(s))
	}
	return b
}

// NumMessages that have been added to the builder.
func (b *Builder) NumMessages() int {
	return len(b.messages)
}

// Messages added so far. The slice is shared with the builder.
func (b *Builder) Messages() []*message.Message {
	return b.messages
}

var ErrNilMessage = errors.New("nil message in batch")

// Build the message set. A builder with no messages builds an empty set.
// Returns ErrNilMessage if any of the messages is nil. Idempotent.
func (b *Builder) Build(c compression.Codec) (message.Set, error) {
	return Build(c, b.messages...)
}

// Build a message set from messages using codec c. A nil codec is the same as
// compression.Nop.
func Build(c compression.Codec, messages ...*message.Message) (message.Set, error) {
	for _, m := range messages {
		if m == nil {
			return nil, ErrNilMessage
		}
	}
	set := message.Build(messages...)
	if c == nil || c.Type() == compression.None || len(messages) == 0 {
		return set, nil
	}
	compressed, err := c.Compress(set)
	if err != nil {
		return nil, errors.Wrapf(err, "error compressing message set with %s", c.Type())
	}
	wrapper := &message.Message{Compression: c.Type(), Payload: compressed}
	return message.Build(wrapper), nil
}
