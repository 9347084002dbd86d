package common

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func makeLog(block int64, txHash string, logIndex uint64, blockHash string, ingestedAt time.Time) Log {
	return Log{
		BlockNumber:     big.NewInt(block),
		BlockHash:       blockHash,
		TransactionHash: txHash,
		LogIndex:        logIndex,
		Address:         "0xabc",
		Data:            "0x",
		Topics:          []string{"0xddf252ad"},
		IngestedAt:      ingestedAt,
	}
}

func TestDeduplicateLogsKeepsLatestIngested(t *testing.T) {
	older := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	logs := []Log{
		makeLog(100, "0xaaa", 0, "0xhash1", older),
		makeLog(100, "0xaaa", 0, "0xhash2", newer),
		makeLog(100, "0xaaa", 1, "0xhash1", older),
	}

	deduped := DeduplicateLogs(logs)
	assert.Len(t, deduped, 2)
	assert.Equal(t, "0xhash2", deduped[0].BlockHash)
	assert.Equal(t, uint64(1), deduped[1].LogIndex)
}

func TestDeduplicateLogsTiebreaksOnBlockHash(t *testing.T) {
	ingested := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	logs := []Log{
		makeLog(100, "0xaaa", 0, "0xbbb", ingested),
		makeLog(100, "0xaaa", 0, "0xccc", ingested),
		makeLog(100, "0xaaa", 0, "0xaaa", ingested),
	}

	deduped := DeduplicateLogs(logs)
	assert.Len(t, deduped, 1)
	assert.Equal(t, "0xccc", deduped[0].BlockHash)
}

// Two overlapping runs must converge on the same row set as a single run
// over the union window.
func TestDeduplicateLogsIdempotentConvergence(t *testing.T) {
	run1Time := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	run2Time := run1Time.Add(time.Minute)

	// Run 1 covers blocks 100-105, run 2 re-fetches 101-105 plus new blocks.
	run1 := []Log{
		makeLog(100, "0xt0", 0, "0xb100", run1Time),
		makeLog(101, "0xt1", 0, "0xb101", run1Time),
		makeLog(105, "0xt5", 0, "0xb105", run1Time),
	}
	run2 := []Log{
		makeLog(101, "0xt1", 0, "0xb101", run2Time),
		makeLog(105, "0xt5", 0, "0xb105-reorged", run2Time),
		makeLog(106, "0xt6", 0, "0xb106", run2Time),
	}

	union := DeduplicateLogs(append(append([]Log{}, run1...), run2...))

	keys := make(map[LogKey]Log)
	for _, l := range union {
		_, duplicate := keys[l.Key()]
		assert.False(t, duplicate, "duplicate key %+v survived dedup", l.Key())
		keys[l.Key()] = l
	}
	assert.Len(t, union, 4)

	// The reorged block resolves to the latest ingested hash.
	reorged := keys[LogKey{BlockNumber: 105, TransactionHash: "0xt5", LogIndex: 0}]
	assert.Equal(t, "0xb105-reorged", reorged.BlockHash)

	// Applying the dedup again changes nothing.
	assert.ElementsMatch(t, union, DeduplicateLogs(union))
}

func TestTopicsJoined(t *testing.T) {
	l := Log{Topics: []string{"0xa", "0xb", "0xc"}}
	assert.Equal(t, "0xa,0xb,0xc", l.TopicsJoined())

	assert.Equal(t, "", (&Log{}).TopicsJoined())
}
