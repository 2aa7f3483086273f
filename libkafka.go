/*
Package libkafka07 is a low level library for producing to and consuming from
Kafka 0.7 brokers. It speaks the 0.7 length-prefixed binary protocol
directly over TCP: Produce, MultiProduce, Fetch, and Offsets requests, with
optional gzip or snappy compression of message sets.


Project Scope

The library implements a single partition Producer, a MultiProducer that
writes to many topic partitions in one request, and a single partition
Consumer that tracks its own offset and can poll in a loop. There is no
consumer group coordination and no broker administration.


Get Started

Read the documentation for the "message", "client/producer" and
"client/consumer" packages.


Design Decisions

1. Messages and message sets. A message is a payload with a compression
attribute and a crc32 checksum. A message set is a concatenation of length
prefixed messages. A compressed message carries, as its payload, a compressed
message set; decoding flattens it back into the messages it contains.

2. Synchronous single-connection calls. Every producer and consumer owns one
TCP connection. Calls are synchronous: a request is written and (for Fetch and
Offsets) its response is read before the call returns. Any socket error closes
the connection, because a partially read response leaves the byte stream
desynchronized. Reconnecting and retrying are up to the caller.

3. Offsets are byte positions. In this protocol generation an offset is the
byte position of a message in the partition log. The consumer advances its
offset by the number of bytes of complete messages it has read.

4. Limited use of data hiding. Most structures are exposed to make debugging
and metrics collection easier.
*/
package libkafka07

import (
	"time"

	"github.com/mkocikowski/libkafka07/api/MultiProduce"
	"github.com/mkocikowski/libkafka07/message"
)

const (
	Host = "localhost"
	Port = 9092
)

var (
	// DialTimeout applies to every new broker connection.
	DialTimeout = 5 * time.Second
)

func NewMessage(payload []byte) *Message {
	return message.New(payload)
}

type Message = message.Message

type ProducerRequest = MultiProduce.Request
