package Fetch

import (
	"testing"

	"github.com/mkocikowski/libkafka07/api"
	"github.com/mkocikowski/libkafka07/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitNewRequest(t *testing.T) {
	req := NewRequest(&Args{Topic: "test", Partition: 0, Offset: 0, MaxSize: 1048576})
	assert.Equal(t, api.EncodePartitionRequest(api.Fetch, "test", 0, 0, 1048576), req.Bytes())
	assert.Equal(t, []byte{0, 1}, req.Bytes()[:2])
}

func TestUnitParseResponse(t *testing.T) {
	set := message.Build(message.NewString("ale"))
	body := append([]byte{0, 0}, set...)
	r, err := api.Parse(body)
	require.NoError(t, err)
	resp := ParseResponse(r)
	assert.Equal(t, int16(0), resp.ErrorCode)
	messages, err := resp.MessageSet.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "ale", string(messages[0].Payload))
}

func TestUnitParseResponseError(t *testing.T) {
	r, err := api.Parse([]byte{0, 1})
	require.NoError(t, err)
	resp := ParseResponse(r)
	assert.Equal(t, int16(1), resp.ErrorCode)
	assert.Empty(t, resp.MessageSet)
}
