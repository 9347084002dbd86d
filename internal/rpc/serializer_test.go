package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRawLog() map[string]interface{} {
	return map[string]interface{}{
		"blockNumber":     "0x4b0",
		"blockHash":       "0xaaa",
		"transactionHash": "0xbbb",
		"logIndex":        "0x2",
		"address":         "0xccc",
		"data":            "0x00",
		"topics":          []interface{}{"0xtopic0", "0xtopic1"},
	}
}

func TestSerializeLog(t *testing.T) {
	l, err := serializeLog(validRawLog())
	require.NoError(t, err)
	assert.Equal(t, int64(1200), l.BlockNumber.Int64())
	assert.Equal(t, "0xaaa", l.BlockHash)
	assert.Equal(t, "0xbbb", l.TransactionHash)
	assert.Equal(t, uint64(2), l.LogIndex)
	assert.Equal(t, "0xccc", l.Address)
	assert.Equal(t, []string{"0xtopic0", "0xtopic1"}, l.Topics)
}

func TestSerializeLogMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(raw map[string]interface{})
	}{
		{"missing block number", func(raw map[string]interface{}) { delete(raw, "blockNumber") }},
		{"block number not hex", func(raw map[string]interface{}) { raw["blockNumber"] = "latest" }},
		{"block number wrong type", func(raw map[string]interface{}) { raw["blockNumber"] = 1200 }},
		{"missing transaction hash", func(raw map[string]interface{}) { delete(raw, "transactionHash") }},
		{"empty block hash", func(raw map[string]interface{}) { raw["blockHash"] = "" }},
		{"missing log index", func(raw map[string]interface{}) { delete(raw, "logIndex") }},
		{"topics not an array", func(raw map[string]interface{}) { raw["topics"] = "0xtopic0" }},
		{"topic not a string", func(raw map[string]interface{}) { raw["topics"] = []interface{}{7} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRawLog()
			tt.mutate(raw)
			_, err := serializeLog(raw)
			assert.Error(t, err)
		})
	}
}

func TestSerializeLogOptionalFields(t *testing.T) {
	raw := validRawLog()
	delete(raw, "address")
	delete(raw, "data")
	delete(raw, "topics")

	l, err := serializeLog(raw)
	require.NoError(t, err)
	assert.Empty(t, l.Address)
	assert.Empty(t, l.Data)
	assert.Empty(t, l.Topics)
}

func TestSerializeLogsReportsFailingIndex(t *testing.T) {
	bad := validRawLog()
	delete(bad, "blockHash")

	_, err := serializeLogs([]map[string]interface{}{validRawLog(), bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log 1")
}
