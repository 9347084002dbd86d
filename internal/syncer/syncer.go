package syncer

import (
	"context"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	config "github.com/surgencelabs/dune-sync/configs"
	"github.com/surgencelabs/dune-sync/internal/checkpoint"
	"github.com/surgencelabs/dune-sync/internal/common"
	"github.com/surgencelabs/dune-sync/internal/metrics"
	"github.com/surgencelabs/dune-sync/internal/planner"
	"github.com/surgencelabs/dune-sync/internal/retry"
	"github.com/surgencelabs/dune-sync/internal/rpc"
)

// LogFetcher and UploadSink are what the orchestrator needs from its
// collaborators; the concrete fetcher and Dune client satisfy them.
type LogFetcher interface {
	Fetch(ctx context.Context, window common.BlockRange) ([]common.Log, error)
}

type UploadSink interface {
	Upload(ctx context.Context, logs []common.Log) error
}

// Syncer sequences one bounded run: plan, fetch, upload, advance checkpoint.
// It never loops; periodicity is the scheduler's concern. The checkpoint is
// written only after the sink confirmed the upload, so a crash or failure at
// any earlier point leaves the next run re-planning the same window.
type Syncer struct {
	rpc        rpc.IRPCClient
	fetcher    LogFetcher
	sink       UploadSink
	store      checkpoint.Store
	headPolicy *retry.Policy

	startBlock    int64
	batchSize     int64
	overlapBlocks int64
	lockFile      string
	dryRun        bool

	// manual window override for backfills; checkpoint is left untouched
	manualWindow *common.BlockRange
}

type Option func(*Syncer)

func WithManualWindow(window common.BlockRange) Option {
	return func(s *Syncer) {
		s.manualWindow = &window
	}
}

func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) {
		s.dryRun = dryRun
	}
}

func WithHeadRetryPolicy(policy *retry.Policy) Option {
	return func(s *Syncer) {
		if policy == nil {
			return
		}
		s.headPolicy = policy
	}
}

func NewSyncer(rpcClient rpc.IRPCClient, fetcher LogFetcher, sink UploadSink, store checkpoint.Store, opts ...Option) *Syncer {
	syncer := &Syncer{
		rpc:           rpcClient,
		fetcher:       fetcher,
		sink:          sink,
		store:         store,
		startBlock:    config.Cfg.Sync.StartBlock,
		batchSize:     config.Cfg.Sync.BlockBatchSize,
		overlapBlocks: config.Cfg.Sync.ReorgOverlapBlocks,
		lockFile:      config.Cfg.Sync.LockFile,
		dryRun:        config.Cfg.Sync.DryRun,
	}
	for _, opt := range opts {
		opt(syncer)
	}
	if syncer.headPolicy == nil {
		syncer.headPolicy = retry.NewPolicy(
			config.Cfg.RPC.MaxRetries,
			time.Duration(config.Cfg.Retry.BackoffBaseSeconds*float64(time.Second)),
			time.Duration(config.Cfg.Retry.BackoffMaxSeconds*float64(time.Second)),
			rpc.IsTransient,
		)
	}
	return syncer
}

// RunOnce executes a single pass. A nil return means DONE, including the
// "nothing new" case. ErrAlreadyRunning means the run lock is held elsewhere.
// Everything else is a StageError naming the failed stage; the checkpoint is
// only ever advanced after a successful upload.
func (s *Syncer) RunOnce(ctx context.Context) error {
	if s.lockFile != "" {
		lock := flock.New(s.lockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return newStageError(StagePlan, err)
		}
		if !locked {
			return ErrAlreadyRunning
		}
		defer lock.Unlock()
	}

	window, ok, err := s.plan(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Info().Msg("Nothing to sync, checkpoint is at the chain head")
		metrics.RunSuccess.Set(1)
		return nil
	}

	log.Info().
		Int64("from_block", window.Start).
		Int64("to_block", window.End).
		Msg("Fetching logs for sync window")

	logs, err := s.fetcher.Fetch(ctx, window)
	if err != nil {
		return newStageError(StageFetch, err)
	}

	if s.dryRun {
		log.Info().Int("rows", len(logs)).Msg("Dry run, skipping upload and checkpoint write")
		metrics.RunSuccess.Set(1)
		return nil
	}

	if err := s.sink.Upload(ctx, logs); err != nil {
		return newStageError(StageUpload, err)
	}

	if s.manualWindow != nil {
		log.Info().Int("rows", len(logs)).Msg("Manual window synced, checkpoint left untouched")
		metrics.RunSuccess.Set(1)
		return nil
	}

	if err := s.store.Write(window.End); err != nil {
		// The rows are safely in the sink, but without checkpoint progress
		// the next run would re-upload them forever. Operators must see this.
		log.Error().Err(err).
			Int64("block", window.End).
			Int("rows", len(logs)).
			Msg("Upload succeeded but checkpoint write failed")
		return newStageError(StageCheckpoint, err)
	}

	metrics.LastSyncedBlock.Set(float64(window.End))
	metrics.RunSuccess.Set(1)
	log.Info().
		Int64("last_block", window.End).
		Int("rows", len(logs)).
		Msg("Sync complete")
	return nil
}

func (s *Syncer) plan(ctx context.Context) (common.BlockRange, bool, error) {
	if s.manualWindow != nil {
		return *s.manualWindow, true, nil
	}

	var head int64
	err := s.headPolicy.Do(ctx, "get chain head", func() error {
		latest, err := s.rpc.GetLatestBlockNumber(ctx)
		if err != nil {
			return err
		}
		head = latest
		return nil
	})
	if err != nil {
		// An unreachable head is a skip, not a failure: the next scheduled
		// run will simply plan from the unchanged checkpoint.
		log.Warn().Err(err).Msg("Chain head unavailable, skipping run")
		metrics.RunSuccess.Set(1)
		return common.BlockRange{}, false, nil
	}
	metrics.ChainHead.Set(float64(head))

	cp, hasCheckpoint, err := s.store.Read()
	if err != nil {
		return common.BlockRange{}, false, newStageError(StagePlan, err)
	}

	window, ok := planner.Plan(planner.Input{
		Checkpoint:    cp,
		HasCheckpoint: hasCheckpoint,
		ChainHead:     head,
		OverlapBlocks: s.overlapBlocks,
		BatchSize:     s.batchSize,
		StartBlock:    s.startBlock,
	})
	return window, ok, nil
}
