package client

import (
	"crypto/tls"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/mkocikowski/libkafka07"
	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Conn is a single TCP connection to a broker. Reads block until exactly the
// requested number of bytes arrive. Any I/O error closes the connection and
// is returned as a *SocketError; every later Read or Write fails the same way
// until Connect or Reconnect succeeds. Conn does no retries of its own.
//
// Conn is not safe for concurrent use. One request-response pair must
// complete before the next one starts.
type Conn struct {
	Host string // host name, or a DNS SRV name starting with "_"
	Port int
	TLS  *tls.Config
	// Dialer replaces the default TCP (or TLS) dialer when set.
	Dialer       func(network, addr string) (net.Conn, error)
	ReadTimeout  time.Duration // 0 means no deadline
	WriteTimeout time.Duration
	conn         net.Conn
	failed       bool // set by a socket failure, cleared by Connect
}

func (c *Conn) addr() string {
	if IsSrv(c.Host) && c.Port == 0 {
		return c.Host
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Conn) dial(addr string) (net.Conn, error) {
	if c.Dialer != nil {
		return c.Dialer("tcp", addr)
	}
	if IsSrv(c.Host) {
		addr = RandomBroker(c.Host)
	}
	d := &net.Dialer{Timeout: libkafka07.DialTimeout}
	if c.TLS != nil {
		return tls.DialWithDialer(d, "tcp", addr, c.TLS)
	}
	return d.Dial("tcp", addr)
}

// Connect opens a connection to host:port, replacing any open connection.
// Empty host or zero port fall back to the values stored by a previous call
// (or set on the struct). Returns ErrMissingEndpoint if there are none.
func (c *Conn) Connect(host string, port int) error {
	if host != "" {
		c.Host = host
	}
	if port != 0 {
		c.Port = port
	}
	if c.Host == "" || (c.Port == 0 && !IsSrv(c.Host)) {
		return ErrMissingEndpoint
	}
	c.Disconnect()
	addr := c.addr()
	conn, err := c.dial(addr)
	if err != nil {
		metrics.SocketFailures.WithLabelValues("connect").Inc()
		return &SocketError{Op: "connect", Addr: addr, Err: err}
	}
	log.WithField("addr", addr).Debug("connected to broker")
	c.conn = conn
	c.failed = false
	return nil
}

// Reconnect closes the connection (if open) and opens a new one to the last
// known host and port.
func (c *Conn) Reconnect() error {
	c.Disconnect()
	return c.Connect("", 0)
}

// Disconnect closes the connection. Nop if there is no open connection.
// Errors from closing an already broken socket are ignored.
func (c *Conn) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		log.WithField("addr", c.addr()).Debugf("error closing connection: %v", err)
	}
	c.conn = nil
	return nil
}

func (c *Conn) Connected() bool {
	return c.conn != nil
}

func (c *Conn) fail(op string, err error) error {
	addr := c.addr()
	log.WithFields(log.Fields{"addr": addr, "op": op}).Warnf("closing connection: %v", err)
	metrics.SocketFailures.WithLabelValues(op).Inc()
	c.Disconnect()
	c.failed = true
	return &SocketError{Op: op, Addr: addr, Err: err}
}

// Write b in full. Returns the number of bytes written.
func (c *Conn) Write(b []byte) (int, error) {
	if c.conn == nil {
		return 0, &SocketError{Op: "write", Addr: c.addr(), Err: ErrNotConnected}
	}
	if c.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout)); err != nil {
			return 0, c.fail("write", err)
		}
	}
	n, err := c.conn.Write(b)
	metrics.BytesWritten.Add(float64(n))
	if err != nil {
		return n, c.fail("write", err)
	}
	return n, nil
}

// WriteInt32 writes i as 4 big endian bytes (used for size headers).
func (c *Conn) WriteInt32(i int32) (int, error) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(i))
	return c.Write(b)
}

// Read exactly n bytes. There is no partial success: either all n bytes are
// returned or the connection is closed and a *SocketError returned.
func (c *Conn) Read(n int) ([]byte, error) {
	if c.conn == nil {
		return nil, &SocketError{Op: "read", Addr: c.addr(), Err: ErrNotConnected}
	}
	if c.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.ReadTimeout)); err != nil {
			return nil, c.fail("read", err)
		}
	}
	b := make([]byte, n)
	m, err := io.ReadFull(c.conn, b)
	metrics.BytesRead.Add(float64(m))
	if err != nil {
		return nil, c.fail("read", err)
	}
	return b, nil
}

// Send a request body preceded by its int32 size in a single write. The
// connection is opened on first use; after a socket failure Send keeps
// failing until the caller reconnects. Returns the number of bytes written,
// size header included.
func (c *Conn) Send(typ api.RequestType, body []byte) (int, error) {
	if c.conn == nil && !c.failed {
		if err := c.Connect("", 0); err != nil {
			return 0, err
		}
	}
	n, err := c.Write(api.Frame(body))
	if err != nil {
		return n, errors.Wrapf(err, "error sending %s request", typ)
	}
	metrics.Requests.WithLabelValues(typ.String()).Inc()
	return n, nil
}

// ReadResponse reads an int32 size and then that many bytes. A response that
// can not be parsed leaves the stream in an unknown state, so it is treated
// as a socket failure: the connection is closed and stays closed until
// Connect or Reconnect.
func (c *Conn) ReadResponse() (*api.Response, error) {
	b, err := c.Read(4)
	if err != nil {
		return nil, errors.Wrap(err, "error reading response size")
	}
	size := int32(binary.BigEndian.Uint32(b))
	if size < 0 {
		return nil, errors.Wrapf(c.fail("read", errors.Errorf("negative response size %d", size)), "error reading response")
	}
	body, err := c.Read(int(size))
	if err != nil {
		return nil, errors.Wrap(err, "error reading response body")
	}
	resp, err := api.Parse(body)
	if err != nil {
		return nil, errors.Wrap(c.fail("parse", err), "error parsing response")
	}
	return resp, nil
}
