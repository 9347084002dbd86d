package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surgencelabs/dune-sync/internal/common"
	"github.com/surgencelabs/dune-sync/internal/retry"
	"github.com/surgencelabs/dune-sync/internal/rpc"
)

type stubRPC struct {
	latestBlock int64
	calls       []common.BlockRange
	getLogs     func(blockRange common.BlockRange) ([]common.Log, error)
}

func (s *stubRPC) GetLatestBlockNumber(context.Context) (int64, error) {
	return s.latestBlock, nil
}

func (s *stubRPC) GetLogs(_ context.Context, blockRange common.BlockRange) ([]common.Log, error) {
	s.calls = append(s.calls, blockRange)
	return s.getLogs(blockRange)
}

func (s *stubRPC) GetURL() string { return "stub://" }
func (s *stubRPC) Close()         {}

func testPolicy(maxAttempts int, delays *[]time.Duration) *retry.Policy {
	return retry.NewPolicy(maxAttempts, time.Second, 16*time.Second, rpc.IsTransient).
		WithSleeper(func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		})
}

func logAt(block int64, logIndex uint64) common.Log {
	return common.Log{
		BlockNumber:     big.NewInt(block),
		BlockHash:       fmt.Sprintf("0xblock%d", block),
		TransactionHash: fmt.Sprintf("0xtx%d", block),
		LogIndex:        logIndex,
	}
}

func transientErr() error {
	return &rpc.Error{Kind: rpc.ErrKindTransient, Method: "eth_getLogs", Err: errors.New("504 gateway timeout")}
}

func TestFetchRetryBound(t *testing.T) {
	var delays []time.Duration
	stub := &stubRPC{getLogs: func(common.BlockRange) ([]common.Log, error) {
		return nil, transientErr()
	}}

	fetcher := NewFetcher(stub, WithRetryPolicy(testPolicy(3, &delays)), WithBlocksPerRequest(0))

	_, err := fetcher.Fetch(context.Background(), common.BlockRange{Start: 0, End: 99})
	require.Error(t, err)
	assert.Len(t, stub.calls, 3)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, delays)
}

func TestFetchFatalErrorNotRetried(t *testing.T) {
	var delays []time.Duration
	fatal := &rpc.Error{Kind: rpc.ErrKindFatal, Method: "eth_getLogs", Err: errors.New("unexpected response shape")}
	stub := &stubRPC{getLogs: func(common.BlockRange) ([]common.Log, error) {
		return nil, fatal
	}}

	fetcher := NewFetcher(stub, WithRetryPolicy(testPolicy(5, &delays)))

	_, err := fetcher.Fetch(context.Background(), common.BlockRange{Start: 0, End: 99})
	require.Error(t, err)
	assert.Len(t, stub.calls, 1)
	assert.Empty(t, delays)
}

func TestFetchSplitsWindowIntoSubRanges(t *testing.T) {
	var delays []time.Duration
	stub := &stubRPC{getLogs: func(blockRange common.BlockRange) ([]common.Log, error) {
		return []common.Log{logAt(blockRange.Start, 0)}, nil
	}}

	fetcher := NewFetcher(stub, WithRetryPolicy(testPolicy(3, &delays)), WithBlocksPerRequest(40))

	logs, err := fetcher.Fetch(context.Background(), common.BlockRange{Start: 0, End: 99})
	require.NoError(t, err)
	assert.Equal(t, []common.BlockRange{
		{Start: 0, End: 39},
		{Start: 40, End: 79},
		{Start: 80, End: 99},
	}, stub.calls)
	assert.Len(t, logs, 3)
}

func TestFetchHalvesRangeOnProviderRejection(t *testing.T) {
	var delays []time.Duration
	rangeTooLarge := &rpc.Error{Kind: rpc.ErrKindRangeTooLarge, Method: "eth_getLogs", Err: errors.New("query returned more than 10000 results")}

	stub := &stubRPC{getLogs: func(blockRange common.BlockRange) ([]common.Log, error) {
		if blockRange.Blocks() > 25 {
			return nil, rangeTooLarge
		}
		return []common.Log{logAt(blockRange.Start, 0)}, nil
	}}

	fetcher := NewFetcher(stub, WithRetryPolicy(testPolicy(1, &delays)))

	logs, err := fetcher.Fetch(context.Background(), common.BlockRange{Start: 0, End: 99})
	require.NoError(t, err)
	// Splitting must not consume the retry budget: max attempts is 1 and the
	// fetch still succeeds after halving down to acceptable ranges.
	assert.Empty(t, delays)
	assert.Len(t, logs, 4)
}

func TestFetchOrdersLogsByBlockAndIndex(t *testing.T) {
	var delays []time.Duration
	stub := &stubRPC{getLogs: func(blockRange common.BlockRange) ([]common.Log, error) {
		return []common.Log{
			logAt(blockRange.End, 1),
			logAt(blockRange.Start, 2),
			logAt(blockRange.Start, 0),
		}, nil
	}}

	fetcher := NewFetcher(stub, WithRetryPolicy(testPolicy(1, &delays)))

	logs, err := fetcher.Fetch(context.Background(), common.BlockRange{Start: 10, End: 20})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, int64(10), logs[0].BlockNumber.Int64())
	assert.Equal(t, uint64(0), logs[0].LogIndex)
	assert.Equal(t, uint64(2), logs[1].LogIndex)
	assert.Equal(t, int64(20), logs[2].BlockNumber.Int64())
}

func TestFetchRecoversAfterTransientFailure(t *testing.T) {
	var delays []time.Duration
	failures := 2
	stub := &stubRPC{getLogs: func(blockRange common.BlockRange) ([]common.Log, error) {
		if failures > 0 {
			failures--
			return nil, transientErr()
		}
		return []common.Log{logAt(blockRange.Start, 0)}, nil
	}}

	fetcher := NewFetcher(stub, WithRetryPolicy(testPolicy(3, &delays)))

	logs, err := fetcher.Fetch(context.Background(), common.BlockRange{Start: 0, End: 9})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Len(t, delays, 2)
}
