package common

import (
	"math/big"
	"strings"
	"time"
)

// Log is one EVM event log row as it is uploaded to the analytics table.
// IngestedAt is zero until the sink stamps it at upload time.
type Log struct {
	BlockNumber     *big.Int  `json:"block_number"`
	BlockHash       string    `json:"block_hash"`
	TransactionHash string    `json:"transaction_hash"`
	LogIndex        uint64    `json:"log_index"`
	Address         string    `json:"address"`
	Data            string    `json:"data"`
	Topics          []string  `json:"topics"`
	IngestedAt      time.Time `json:"ingested_at"`
}

// LogKey identifies a log independently of how many times it was uploaded.
type LogKey struct {
	BlockNumber     uint64
	TransactionHash string
	LogIndex        uint64
}

func (l *Log) Key() LogKey {
	var blockNumber uint64
	if l.BlockNumber != nil {
		blockNumber = l.BlockNumber.Uint64()
	}
	return LogKey{
		BlockNumber:     blockNumber,
		TransactionHash: l.TransactionHash,
		LogIndex:        l.LogIndex,
	}
}

func (l *Log) TopicsJoined() string {
	return strings.Join(l.Topics, ",")
}

// DeduplicateLogs keeps one row per log key, preferring the most recently
// ingested row. When ingestion timestamps tie, the lexicographically highest
// block hash wins so repeated runs converge on the same row set. This is the
// same rule the documented read-time dedup query applies on the Dune side.
func DeduplicateLogs(logs []Log) []Log {
	type slot struct {
		index int
		log   Log
	}
	seen := make(map[LogKey]slot, len(logs))
	order := 0
	for _, l := range logs {
		key := l.Key()
		existing, ok := seen[key]
		if !ok {
			seen[key] = slot{index: order, log: l}
			order++
			continue
		}
		if replacesLog(existing.log, l) {
			seen[key] = slot{index: existing.index, log: l}
		}
	}

	out := make([]Log, len(seen))
	for _, s := range seen {
		out[s.index] = s.log
	}
	return out
}

func replacesLog(current, candidate Log) bool {
	if candidate.IngestedAt.After(current.IngestedAt) {
		return true
	}
	if current.IngestedAt.After(candidate.IngestedAt) {
		return false
	}
	return candidate.BlockHash > current.BlockHash
}
