package sink

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/surgencelabs/dune-sync/internal/common"
)

var csvHeader = []string{
	"block_number",
	"block_hash",
	"transaction_hash",
	"log_index",
	"address",
	"data",
	"topics",
	"ingested_at",
}

func serializeCSV(logs []common.Log) (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}
	for _, l := range logs {
		record := []string{
			l.BlockNumber.String(),
			l.BlockHash,
			l.TransactionHash,
			strconv.FormatUint(l.LogIndex, 10),
			l.Address,
			l.Data,
			l.TopicsJoined(),
			l.IngestedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func serializeNDJSON(logs []common.Log) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, l := range logs {
		row := map[string]interface{}{
			"block_number":     l.BlockNumber.Int64(),
			"block_hash":       l.BlockHash,
			"transaction_hash": l.TransactionHash,
			"log_index":        l.LogIndex,
			"address":          l.Address,
			"data":             l.Data,
			"topics":           l.TopicsJoined(),
			"ingested_at":      l.IngestedAt.UTC().Format(time.RFC3339),
		}
		if err := encoder.Encode(row); err != nil {
			return "", fmt.Errorf("failed to encode log as NDJSON: %w", err)
		}
	}
	return buf.String(), nil
}

// logsTableSchema is the column definition sent when creating the namespaced
// table. Types follow what the Dune uploads API accepts for these values.
var logsTableSchema = []map[string]interface{}{
	{"name": "block_number", "type": "bigint"},
	{"name": "block_hash", "type": "varchar"},
	{"name": "transaction_hash", "type": "varchar"},
	{"name": "log_index", "type": "bigint"},
	{"name": "address", "type": "varchar"},
	{"name": "data", "type": "varchar"},
	{"name": "topics", "type": "varchar"},
	{"name": "ingested_at", "type": "timestamp"},
}
