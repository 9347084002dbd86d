package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	configs "github.com/surgencelabs/dune-sync/configs"
	"github.com/surgencelabs/dune-sync/internal/env"
	customLogger "github.com/surgencelabs/dune-sync/internal/log"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "dune-sync",
		Short: "Sync EVM event logs to Dune Analytics",
		Long:  "One-shot sync of EVM event logs from a JSON-RPC endpoint to a Dune Analytics table, checkpointed between cron invocations.",
		Run: func(cmd *cobra.Command, args []string) {
			RunSync(cmd, args)
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yml)")
	rootCmd.PersistentFlags().String("rpc-url", "", "JSON-RPC endpoint to fetch logs from")
	rootCmd.PersistentFlags().Int64("rpc-logs-blocks-per-request", 0, "Max blocks per eth_getLogs request, 0 queries the whole window at once")
	rootCmd.PersistentFlags().Int("max-rpc-retries", 5, "How many attempts to make for a failing RPC call")
	rootCmd.PersistentFlags().String("dune-api-key", "", "Dune API key")
	rootCmd.PersistentFlags().String("dune-table-name", "", "Dune table to upload into")
	rootCmd.PersistentFlags().String("dune-namespace", "", "Dune namespace; enables the NDJSON uploads API when set")
	rootCmd.PersistentFlags().Int("dune-upload-retries", 3, "How many attempts to make for a failing upload")
	rootCmd.PersistentFlags().Int64("start-block", -1, "Block to start syncing from when no checkpoint exists")
	rootCmd.PersistentFlags().Int64("block-batch-size", 100, "Max blocks per sync window")
	rootCmd.PersistentFlags().Int64("reorg-overlap-blocks", 5, "How many blocks before the checkpoint to re-fetch every run")
	rootCmd.PersistentFlags().Float64("backoff-base-seconds", 1, "Base delay for exponential retry backoff")
	rootCmd.PersistentFlags().Float64("backoff-max-seconds", 16, "Cap for exponential retry backoff")
	rootCmd.PersistentFlags().String("checkpoint-file", "", "Path of the checkpoint file")
	rootCmd.PersistentFlags().String("lock-file", "", "Path of the run lock file")
	rootCmd.PersistentFlags().String("backup-dir", "", "Directory to archive uploaded payloads into")
	rootCmd.PersistentFlags().String("log-level", "", "Log level to use for the application")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Whether to prettify the log output")
	viper.BindPFlag("rpc.url", rootCmd.PersistentFlags().Lookup("rpc-url"))
	viper.BindPFlag("rpc.logsBlocksPerRequest", rootCmd.PersistentFlags().Lookup("rpc-logs-blocks-per-request"))
	viper.BindPFlag("rpc.maxRetries", rootCmd.PersistentFlags().Lookup("max-rpc-retries"))
	viper.BindPFlag("dune.apiKey", rootCmd.PersistentFlags().Lookup("dune-api-key"))
	viper.BindPFlag("dune.tableName", rootCmd.PersistentFlags().Lookup("dune-table-name"))
	viper.BindPFlag("dune.namespace", rootCmd.PersistentFlags().Lookup("dune-namespace"))
	viper.BindPFlag("dune.uploadRetries", rootCmd.PersistentFlags().Lookup("dune-upload-retries"))
	viper.BindPFlag("sync.startBlock", rootCmd.PersistentFlags().Lookup("start-block"))
	viper.BindPFlag("sync.blockBatchSize", rootCmd.PersistentFlags().Lookup("block-batch-size"))
	viper.BindPFlag("sync.reorgOverlapBlocks", rootCmd.PersistentFlags().Lookup("reorg-overlap-blocks"))
	viper.BindPFlag("retry.backoffBaseSeconds", rootCmd.PersistentFlags().Lookup("backoff-base-seconds"))
	viper.BindPFlag("retry.backoffMaxSeconds", rootCmd.PersistentFlags().Lookup("backoff-max-seconds"))
	viper.BindPFlag("checkpoint.file.path", rootCmd.PersistentFlags().Lookup("checkpoint-file"))
	viper.BindPFlag("sync.lockFile", rootCmd.PersistentFlags().Lookup("lock-file"))
	viper.BindPFlag("backup.dir", rootCmd.PersistentFlags().Lookup("backup-dir"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(uploadCmd)
}

func initConfig() {
	env.Load()
	configs.LoadConfig(cfgFile)
	customLogger.InitLogger()
}
