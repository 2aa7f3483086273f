package brokertest

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/mkocikowski/libkafka07/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestUnitBrokerRespondsToOffsets(t *testing.T) {
	b := New()
	defer b.Close()
	b.RespondOffsets(0, 21346)
	conn, err := b.Dial("tcp", "test:9092")
	require.NoError(t, err)
	defer conn.Close()
	req := api.EncodePartitionRequest(api.Offsets, "test", 0, api.OffsetsLatest, 1)
	_, err = conn.Write(api.Frame(req))
	require.NoError(t, err)
	resp, err := api.Read(conn)
	require.NoError(t, err)
	assert.Equal(t, int16(0), resp.ErrorCode())
	assert.Equal(t, int64(21346), int64(binary.BigEndian.Uint64(resp.Payload()[4:])))
	assert.Equal(t, 1, b.Count(api.Offsets))
	assert.Equal(t, 1, b.Writes())
	assert.Equal(t, 1, b.Dials())
}

func TestUnitBrokerDefaultFetch(t *testing.T) {
	b := New()
	defer b.Close()
	conn, _ := b.Dial("tcp", "")
	defer conn.Close()
	conn.Write(api.Frame(api.EncodePartitionRequest(api.Fetch, "test", 0, 0, 100)))
	resp, err := api.Read(conn)
	require.NoError(t, err)
	assert.Empty(t, resp.Payload())
}

func TestUnitBrokerHangup(t *testing.T) {
	b := New()
	defer b.Close()
	b.Hangup(api.Fetch)
	conn, _ := b.Dial("tcp", "")
	defer conn.Close()
	conn.Write(api.Frame(api.EncodePartitionRequest(api.Fetch, "test", 0, 0, 100)))
	_, err := conn.Read(make([]byte, 4))
	assert.Equal(t, io.EOF, err)
}

func TestUnitBrokerProduceNoResponse(t *testing.T) {
	b := New()
	defer b.Close()
	conn, _ := b.Dial("tcp", "")
	defer conn.Close()
	conn.Write(api.Frame([]byte{0, 0, 0, 1, 't', 0, 0, 0, 0, 0, 0, 0, 0}))
	requests := b.Wait(1)
	require.Len(t, requests, 1)
	assert.Equal(t, api.Produce, requests[0].Type)
	assert.Equal(t, byte('t'), requests[0].Body[2])
}
