// Package client has code for talking to Kafka 0.7 brokers. Conn is the
// transport: one TCP connection with blocking, exact length reads and a single
// failure signal (SocketError) for every socket level error. PartitionClient
// binds a Conn to a topic partition and makes Produce, Fetch, and Offsets
// calls (producers and consumers are built on top of that). Clients are
// synchronous and all code executes in the calling goroutine.
package client

import (
	"math/rand"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMissingEndpoint is returned by Connect when no host and port were
	// ever given. No I/O is attempted.
	ErrMissingEndpoint = errors.New("missing broker host or port")
	// ErrSocket matches every *SocketError with errors.Is.
	ErrSocket = errors.New("socket failure")
	// ErrNotConnected is wrapped by the SocketError returned from Read and
	// Write when there is no open connection (including after a failure).
	ErrNotConnected = errors.New("not connected")
)

// SocketError is the transport failure signal. Whenever it is returned the
// connection has been closed; call Reconnect before retrying.
type SocketError struct {
	Op   string // connect, read, or write
	Addr string
	Err  error
}

func (e *SocketError) Error() string {
	return "socket " + e.Op + " " + e.Addr + ": " + e.Err.Error()
}

func (e *SocketError) Unwrap() error { return e.Err }

func (e *SocketError) Is(target error) bool { return target == ErrSocket }

// IsSrv reports whether host looks like a DNS SRV name (_service._proto.name).
func IsSrv(host string) bool {
	return strings.HasPrefix(host, "_")
}

// LookupSrv returns a list of host:port strings in the order returned by the
// srv lookup call.
func LookupSrv(name string) ([]string, error) {
	_, srvs, err := net.LookupSRV("", "", name)
	if err != nil {
		return nil, err
	}
	var addrs []string
	for _, srv := range srvs {
		host := net.JoinHostPort(strings.TrimSuffix(srv.Target, "."), strconv.Itoa(int(srv.Port)))
		addrs = append(addrs, host)
	}
	return addrs, nil
}

// RandomBroker tries to resolve name through a call to LookupSrv. If
// successful it returns a random host:port from the list. If LookupSrv fails
// it returns name unmodified.
func RandomBroker(name string) string {
	addrs, err := LookupSrv(name)
	if err != nil || len(addrs) == 0 {
		return name
	}
	return addrs[rand.Intn(len(addrs))]
}
