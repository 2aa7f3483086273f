package client

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/internal/brokertest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestUnitConnMissingEndpoint(t *testing.T) {
	b := brokertest.New()
	defer b.Close()
	c := &Conn{Dialer: b.Dial}
	assert.Equal(t, ErrMissingEndpoint, c.Connect("", 0))
	assert.Equal(t, ErrMissingEndpoint, c.Connect("localhost", 0))
	_, err := c.Send(api.Produce, []byte{0, 0})
	assert.Equal(t, ErrMissingEndpoint, errors.Cause(err))
	assert.Equal(t, 0, b.Dials())
}

func TestUnitConnConnectStoresEndpoint(t *testing.T) {
	b := brokertest.New()
	defer b.Close()
	var addrs []string
	c := &Conn{Dialer: func(network, addr string) (net.Conn, error) {
		addrs = append(addrs, addr)
		return b.Dial(network, addr)
	}}
	require.NoError(t, c.Connect("broker", 9092))
	assert.True(t, c.Connected())
	require.NoError(t, c.Reconnect())
	require.NoError(t, c.Connect("", 0))
	assert.Equal(t, []string{"broker:9092", "broker:9092", "broker:9092"}, addrs)
	assert.Equal(t, 3, b.Dials())
	c.Disconnect()
}

func TestUnitConnDialError(t *testing.T) {
	c := &Conn{Host: "broker", Port: 9092, Dialer: func(string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}}
	err := c.Connect("", 0)
	var sockErr *SocketError
	require.True(t, errors.As(err, &sockErr))
	assert.Equal(t, "connect", sockErr.Op)
	assert.True(t, errors.Is(err, ErrSocket))
	assert.False(t, c.Connected())
}

func TestUnitConnWriteInt32AndRead(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	c := &Conn{Host: "broker", Port: 9092, Dialer: func(string, string) (net.Conn, error) {
		return client, nil
	}}
	require.NoError(t, c.Connect("", 0))
	defer c.Disconnect()
	done := make(chan []byte)
	go func() {
		b := make([]byte, 4)
		io.ReadFull(server, b)
		done <- b
		server.Write([]byte{1, 2, 3, 4, 5})
	}()
	n, err := c.WriteInt32(258)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 0, 1, 2}, <-done)
	b, err := c.Read(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)
	b, err = c.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, b)
}

func TestUnitConnFailureClosesSocket(t *testing.T) {
	b := brokertest.New()
	defer b.Close()
	b.Hangup(api.Fetch)
	c := &Conn{Host: "broker", Port: 9092, Dialer: b.Dial}
	_, err := c.Send(api.Fetch, api.EncodePartitionRequest(api.Fetch, "test", 0, 0, 100))
	require.NoError(t, err)
	_, err = c.ReadResponse()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSocket), err)
	assert.False(t, c.Connected())
	// every call fails the same way until reconnect
	for i := 0; i < 2; i++ {
		_, err = c.Write([]byte{0})
		assert.True(t, errors.Is(err, ErrSocket))
		assert.True(t, errors.Is(err, ErrNotConnected))
		_, err = c.Read(1)
		assert.True(t, errors.Is(err, ErrNotConnected))
		_, err = c.Send(api.Fetch, []byte{0, 1})
		assert.True(t, errors.Is(err, ErrNotConnected))
	}
	assert.Equal(t, 1, b.Dials())
	require.NoError(t, c.Reconnect())
	b.RespondFetch(0, nil)
	_, err = c.Send(api.Fetch, api.EncodePartitionRequest(api.Fetch, "test", 0, 0, 100))
	require.NoError(t, err)
	resp, err := c.ReadResponse()
	require.NoError(t, err)
	assert.Equal(t, int16(0), resp.ErrorCode())
	assert.Equal(t, 2, b.Dials())
	c.Disconnect()
}

func TestUnitConnReadTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	c := &Conn{Host: "broker", Port: 9092, ReadTimeout: 10 * time.Millisecond,
		Dialer: func(string, string) (net.Conn, error) { return client, nil }}
	require.NoError(t, c.Connect("", 0))
	_, err := c.Read(4)
	var sockErr *SocketError
	require.True(t, errors.As(err, &sockErr))
	assert.Equal(t, "read", sockErr.Op)
	assert.False(t, c.Connected())
}

type noDeadlineConn struct {
	net.Conn
}

func (noDeadlineConn) SetReadDeadline(time.Time) error  { return errors.New("deadline not supported") }
func (noDeadlineConn) SetWriteDeadline(time.Time) error { return errors.New("deadline not supported") }

func TestUnitConnDeadlineError(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	c := &Conn{Host: "broker", Port: 9092, ReadTimeout: time.Second, WriteTimeout: time.Second,
		Dialer: func(string, string) (net.Conn, error) { return noDeadlineConn{client}, nil }}
	require.NoError(t, c.Connect("", 0))
	_, err := c.Write([]byte{0})
	var sockErr *SocketError
	require.True(t, errors.As(err, &sockErr))
	assert.Equal(t, "write", sockErr.Op)
	assert.False(t, c.Connected())
	require.NoError(t, c.Reconnect())
	_, err = c.Read(1)
	require.True(t, errors.As(err, &sockErr))
	assert.Equal(t, "read", sockErr.Op)
	assert.False(t, c.Connected())
}

func TestUnitConnDisconnectTolerant(t *testing.T) {
	b := brokertest.New()
	defer b.Close()
	c := &Conn{Host: "broker", Port: 9092, Dialer: b.Dial}
	assert.NoError(t, c.Disconnect())
	require.NoError(t, c.Connect("", 0))
	c.conn.Close()
	assert.NoError(t, c.Disconnect())
	assert.NoError(t, c.Disconnect())
}

func TestUnitIsSrv(t *testing.T) {
	assert.True(t, IsSrv("_kafka._tcp.example.com"))
	assert.False(t, IsSrv("localhost"))
}
