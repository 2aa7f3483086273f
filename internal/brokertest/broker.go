// Package brokertest implements an in-memory broker that speaks the request
// side of the wire protocol over net.Pipe. Tests inject Broker.Dial as the
// client.Conn Dialer, queue responses, and inspect the requests received.
package brokertest

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkocikowski/libkafka07/api"
	log "github.com/sirupsen/logrus"
)

// Request as received by the broker, without the size header.
type Request struct {
	Type api.RequestType
	Body []byte // after the request type
}

type Broker struct {
	mu        sync.Mutex
	requests  []Request
	responses map[api.RequestType][][]byte
	conns     []net.Conn
	wg        sync.WaitGroup
	dials     int32
	writes    int32
}

func New() *Broker {
	return &Broker{responses: make(map[api.RequestType][][]byte)}
}

type countingConn struct {
	net.Conn
	writes *int32
}

func (c *countingConn) Write(b []byte) (int, error) {
	atomic.AddInt32(c.writes, 1)
	return c.Conn.Write(b)
}

// Dial has the signature of client.Conn.Dialer. Every call opens a new pipe
// served by its own goroutine.
func (b *Broker) Dial(network, addr string) (net.Conn, error) {
	client, server := net.Pipe()
	b.mu.Lock()
	b.conns = append(b.conns, server)
	b.mu.Unlock()
	atomic.AddInt32(&b.dials, 1)
	b.wg.Add(1)
	go b.serve(server)
	return &countingConn{Conn: client, writes: &b.writes}, nil
}

// Respond queues a response body (error code and payload, no size header)
// for the next request of type typ. A nil body makes the broker hang up
// instead of responding.
func (b *Broker) Respond(typ api.RequestType, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[typ] = append(b.responses[typ], body)
}

// RespondFetch queues a fetch response.
func (b *Broker) RespondFetch(code int16, set []byte) {
	body := make([]byte, 2, 2+len(set))
	binary.BigEndian.PutUint16(body, uint16(code))
	b.Respond(api.Fetch, append(body, set...))
}

// RespondOffsets queues an offsets response.
func (b *Broker) RespondOffsets(code int16, offsets ...int64) {
	body := make([]byte, 6+8*len(offsets))
	binary.BigEndian.PutUint16(body, uint16(code))
	binary.BigEndian.PutUint32(body[2:], uint32(len(offsets)))
	for i, o := range offsets {
		binary.BigEndian.PutUint64(body[6+8*i:], uint64(o))
	}
	b.Respond(api.Offsets, body)
}

// Hangup makes the broker close the connection on the next request of type
// typ.
func (b *Broker) Hangup(typ api.RequestType) {
	b.Respond(typ, nil)
}

func (b *Broker) next(typ api.RequestType) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.responses[typ]
	if len(queue) == 0 {
		switch typ {
		case api.Fetch:
			return []byte{0, 0}, true // empty message set
		case api.Offsets:
			return []byte{0, 0, 0, 0, 0, 0}, true // no offsets
		}
		return nil, false
	}
	b.responses[typ] = queue[1:]
	return queue[0], true
}

func (b *Broker) serve(conn net.Conn) {
	defer b.wg.Done()
	defer conn.Close()
	for {
		header := make([]byte, 4)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		body := make([]byte, binary.BigEndian.Uint32(header))
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		if len(body) < 2 {
			log.Warnf("brokertest: request too short: %v", body)
			return
		}
		typ := api.RequestType(binary.BigEndian.Uint16(body))
		b.mu.Lock()
		b.requests = append(b.requests, Request{Type: typ, Body: body[2:]})
		b.mu.Unlock()
		resp, ok := b.next(typ)
		if ok && resp == nil {
			return // hang up
		}
		if !ok {
			continue // produce requests get no response
		}
		if _, err := conn.Write(api.Frame(resp)); err != nil {
			return
		}
	}
}

// Requests received so far, in order.
func (b *Broker) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Wait until at least n requests have been received, or a second passes.
// Requests with no response are recorded after the client write returns, so
// tests of produce calls use Wait rather than Requests.
func (b *Broker) Wait(n int) []Request {
	deadline := time.Now().Add(time.Second)
	for {
		r := b.Requests()
		if len(r) >= n || time.Now().After(deadline) {
			return r
		}
		time.Sleep(time.Millisecond)
	}
}

// Count requests of type typ received so far.
func (b *Broker) Count(typ api.RequestType) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Type == typ {
			n++
		}
	}
	return n
}

// Dials is the number of connections opened.
func (b *Broker) Dials() int {
	return int(atomic.LoadInt32(&b.dials))
}

// Writes is the number of Write calls made by clients on all connections.
func (b *Broker) Writes() int {
	return int(atomic.LoadInt32(&b.writes))
}

// Close every connection and wait for the serving goroutines to exit.
func (b *Broker) Close() {
	b.mu.Lock()
	for _, c := range b.conns {
		c.Close()
	}
	b.mu.Unlock()
	b.wg.Wait()
}
