package client

import (
	"sync"

	"github.com/mkocikowski/libkafka07"
	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/api/Fetch"
	"github.com/mkocikowski/libkafka07/api/Offsets"
	"github.com/mkocikowski/libkafka07/api/Produce"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/pkg/errors"
)

// PartitionClient maintains a connection to the broker holding a single topic
// partition. The connection is opened on the first API call and is
// persistent. All calls are synchronous. If a call can't complete the
// request-response round trip the connection is closed and a *SocketError is
// returned; the client does not reconnect on its own, call Reconnect. If the
// response is parsed but carries a non zero broker error code the returned
// error is a *libkafka07.Error and the connection stays open. Retries are up
// to the user. PartitionClient calls are safe for concurrent use (they are
// serialized).
type PartitionClient struct {
	sync.Mutex
	Conn
	Topic     string
	Partition int32
}

// Close the connection. Nop if there is no open connection. If there is a
// request in progress blocks until the request completes.
func (c *PartitionClient) Close() error { // implement io.Closer
	c.Lock()
	defer c.Unlock()
	return c.Conn.Disconnect()
}

// Reconnect after a socket failure, to the last known host and port.
func (c *PartitionClient) Reconnect() error {
	c.Lock()
	defer c.Unlock()
	return c.Conn.Reconnect()
}

func (c *PartitionClient) call(req *api.Request) (*api.Response, error) {
	c.Lock()
	defer c.Unlock()
	if _, err := c.Conn.Send(req.Type, req.Bytes()); err != nil {
		return nil, err
	}
	resp, err := c.Conn.ReadResponse()
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s response", req.Type)
	}
	return resp, nil
}

// Produce writes the message set. Produce requests get no response, so the
// returned byte count (size header included) is all there is to report.
func (c *PartitionClient) Produce(set message.Set) (int, error) {
	req := Produce.NewRequest(c.Topic, c.Partition, set)
	c.Lock()
	defer c.Unlock()
	return c.Conn.Send(req.Type, req.Bytes())
}

// Fetch up to maxSize bytes of the message set starting at offset.
func (c *PartitionClient) Fetch(offset int64, maxSize int32) (*Fetch.Response, error) {
	req := Fetch.NewRequest(&Fetch.Args{
		Topic:     c.Topic,
		Partition: c.Partition,
		Offset:    offset,
		MaxSize:   maxSize,
	})
	resp, err := c.call(req)
	if err != nil {
		return nil, err
	}
	r := Fetch.ParseResponse(resp)
	return r, libkafka07.ErrorFromCode(r.ErrorCode)
}

// Offsets returns at most max offsets before time (ms since epoch, or one of
// api.OffsetsLatest and api.OffsetsEarliest).
func (c *PartitionClient) Offsets(time int64, max int32) (*Offsets.Response, error) {
	resp, err := c.call(Offsets.NewRequest(c.Topic, c.Partition, time, max))
	if err != nil {
		return nil, err
	}
	r, err := Offsets.ParseResponse(resp)
	if err != nil {
		c.Lock()
		err = c.Conn.fail("parse", err)
		c.Unlock()
		return nil, errors.Wrap(err, "error parsing offsets response")
	}
	return r, libkafka07.ErrorFromCode(r.ErrorCode)
}
