package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/surgencelabs/dune-sync/internal/common"
)

func serializeLogs(rawLogs []map[string]interface{}) ([]common.Log, error) {
	logs := make([]common.Log, 0, len(rawLogs))
	for i, rawLog := range rawLogs {
		serialized, err := serializeLog(rawLog)
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", i, err)
		}
		logs = append(logs, serialized)
	}
	return logs, nil
}

func serializeLog(rawLog map[string]interface{}) (common.Log, error) {
	blockNumber, err := hexToBig(rawLog["blockNumber"])
	if err != nil {
		return common.Log{}, fmt.Errorf("blockNumber: %w", err)
	}
	logIndex, err := hexToUint64(rawLog["logIndex"])
	if err != nil {
		return common.Log{}, fmt.Errorf("logIndex: %w", err)
	}
	txHash, err := requireString(rawLog["transactionHash"])
	if err != nil {
		return common.Log{}, fmt.Errorf("transactionHash: %w", err)
	}
	blockHash, err := requireString(rawLog["blockHash"])
	if err != nil {
		return common.Log{}, fmt.Errorf("blockHash: %w", err)
	}
	topics, err := serializeTopics(rawLog["topics"])
	if err != nil {
		return common.Log{}, fmt.Errorf("topics: %w", err)
	}

	return common.Log{
		BlockNumber:     blockNumber,
		BlockHash:       blockHash,
		TransactionHash: txHash,
		LogIndex:        logIndex,
		Address:         optionalString(rawLog["address"]),
		Data:            optionalString(rawLog["data"]),
		Topics:          topics,
	}, nil
}

func serializeTopics(value interface{}) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	rawTopics, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", value)
	}
	topics := make([]string, len(rawTopics))
	for i, topic := range rawTopics {
		s, ok := topic.(string)
		if !ok {
			return nil, fmt.Errorf("topic %d: expected string, got %T", i, topic)
		}
		topics[i] = s
	}
	return topics, nil
}

func hexToBig(value interface{}) (*big.Int, error) {
	s, err := requireString(value)
	if err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return n, nil
}

func hexToUint64(value interface{}) (uint64, error) {
	n, err := hexToBig(value)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("quantity %s out of range", n)
	}
	return n.Uint64(), nil
}

func requireString(value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("expected non-empty string, got %T", value)
	}
	return s, nil
}

func optionalString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}
