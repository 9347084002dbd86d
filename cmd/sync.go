package cmd

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	config "github.com/surgencelabs/dune-sync/configs"
	"github.com/surgencelabs/dune-sync/internal/backup"
	"github.com/surgencelabs/dune-sync/internal/checkpoint"
	"github.com/surgencelabs/dune-sync/internal/common"
	"github.com/surgencelabs/dune-sync/internal/fetcher"
	"github.com/surgencelabs/dune-sync/internal/metrics"
	"github.com/surgencelabs/dune-sync/internal/rpc"
	"github.com/surgencelabs/dune-sync/internal/sink"
	"github.com/surgencelabs/dune-sync/internal/syncer"
)

var (
	syncDryRun    bool
	syncFromBlock int64
	syncToBlock   int64

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and exit",
		Long:  "Plan the next block window from the checkpoint, fetch its logs, upload them to Dune and advance the checkpoint. One invocation is one bounded run; schedule it externally.",
		Run: func(cmd *cobra.Command, args []string) {
			RunSync(cmd, args)
		},
	}
)

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Fetch and serialize logs but skip the upload and checkpoint write")
	syncCmd.Flags().Int64Var(&syncFromBlock, "from-block", -1, "Manual window start; requires --to-block, leaves the checkpoint untouched")
	syncCmd.Flags().Int64Var(&syncToBlock, "to-block", -1, "Manual window end")
}

func RunSync(cmd *cobra.Command, args []string) {
	log.Info().Msg("Starting sync run")
	defer metrics.Push()

	rpcClient, err := rpc.Initialize()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize RPC")
	}
	defer rpcClient.Close()

	store, err := checkpoint.NewStore(&config.Cfg.Checkpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize checkpoint store")
	}
	defer store.Close()

	archiver, err := backup.NewArchiver(&config.Cfg.Backup)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backup archiver")
	}

	var sinkOpts []sink.Option
	if archiver != nil {
		sinkOpts = append(sinkOpts, sink.WithArchiver(archiver))
	}
	duneClient, err := sink.NewDuneClient(&config.Cfg.Dune, sinkOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Dune client")
	}

	var syncerOpts []syncer.Option
	if syncDryRun {
		syncerOpts = append(syncerOpts, syncer.WithDryRun(true))
	}
	if syncFromBlock >= 0 || syncToBlock >= 0 {
		if syncFromBlock < 0 || syncToBlock < syncFromBlock {
			log.Fatal().Msg("--from-block and --to-block must both be set with from <= to")
		}
		syncerOpts = append(syncerOpts, syncer.WithManualWindow(common.BlockRange{Start: syncFromBlock, End: syncToBlock}))
	}

	run := syncer.NewSyncer(rpcClient, fetcher.NewFetcher(rpcClient), duneClient, store, syncerOpts...)
	if err := run.RunOnce(cmd.Context()); err != nil {
		if errors.Is(err, syncer.ErrAlreadyRunning) {
			log.Warn().Msg("Previous sync run still in progress, skipping")
			return
		}
		log.Fatal().Err(err).Msg("Sync run failed")
	}
}
