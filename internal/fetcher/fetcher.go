package fetcher

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	config "github.com/surgencelabs/dune-sync/configs"
	"github.com/surgencelabs/dune-sync/internal/common"
	"github.com/surgencelabs/dune-sync/internal/metrics"
	"github.com/surgencelabs/dune-sync/internal/retry"
	"github.com/surgencelabs/dune-sync/internal/rpc"
)

// Fetcher pulls all logs for a sync window from the RPC endpoint. Large
// windows are queried in sub-ranges; a provider rejecting a sub-range as too
// large gets that sub-range halved and re-queried without consuming the retry
// budget. Transient failures retry the whole logical fetch with backoff.
type Fetcher struct {
	rpc              rpc.IRPCClient
	policy           *retry.Policy
	blocksPerRequest int64
}

type Option func(*Fetcher)

func WithRetryPolicy(policy *retry.Policy) Option {
	return func(f *Fetcher) {
		if policy == nil {
			return
		}
		f.policy = policy
	}
}

func WithBlocksPerRequest(blocks int64) Option {
	return func(f *Fetcher) {
		f.blocksPerRequest = blocks
	}
}

func NewFetcher(rpcClient rpc.IRPCClient, opts ...Option) *Fetcher {
	fetcher := &Fetcher{
		rpc:              rpcClient,
		blocksPerRequest: config.Cfg.RPC.LogsBlocksPerRequest,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	if fetcher.policy == nil {
		fetcher.policy = retry.NewPolicy(
			config.Cfg.RPC.MaxRetries,
			time.Duration(config.Cfg.Retry.BackoffBaseSeconds*float64(time.Second)),
			time.Duration(config.Cfg.Retry.BackoffMaxSeconds*float64(time.Second)),
			rpc.IsTransient,
		)
	}
	return fetcher
}

// Fetch returns every log in the window, ordered by (block, log index).
// The retry attempt counter covers the logical call: an attempt that fails
// on the third sub-range retries from the first one.
func (f *Fetcher) Fetch(ctx context.Context, window common.BlockRange) ([]common.Log, error) {
	var logs []common.Log
	err := f.policy.Do(ctx, "fetch logs", func() error {
		fetched, err := f.fetchWindow(ctx, window)
		if err != nil {
			return err
		}
		logs = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(logs, func(i, j int) bool {
		cmp := logs[i].BlockNumber.Cmp(logs[j].BlockNumber)
		if cmp != 0 {
			return cmp < 0
		}
		return logs[i].LogIndex < logs[j].LogIndex
	})

	metrics.FetchedLogs.Add(float64(len(logs)))
	metrics.LastFetchedBlock.Set(float64(window.End))
	return logs, nil
}

func (f *Fetcher) fetchWindow(ctx context.Context, window common.BlockRange) ([]common.Log, error) {
	pending := common.SplitRange(window, f.blocksPerRequest)
	var logs []common.Log

	for len(pending) > 0 {
		blockRange := pending[0]
		pending = pending[1:]

		fetched, err := f.rpc.GetLogs(ctx, blockRange)
		if err != nil {
			if rpc.IsRangeTooLarge(err) && blockRange.Blocks() > 1 {
				log.Debug().
					Str("range", blockRange.String()).
					Msg("Provider rejected log range, splitting in half")
				pending = append(common.Halves(blockRange), pending...)
				continue
			}
			return nil, err
		}
		logs = append(logs, fetched...)
	}
	return logs, nil
}
