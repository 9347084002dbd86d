package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	config "github.com/surgencelabs/dune-sync/configs"
	"github.com/surgencelabs/dune-sync/internal/sink"
)

var (
	uploadCmd = &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a backup CSV file to Dune",
		Long:  "Replay an archived CSV payload (as written by the backup archiver) into the configured Dune table. Duplicate rows are resolved by the read-time dedup query.",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			RunUpload(cmd, args)
		},
	}
)

func RunUpload(cmd *cobra.Command, args []string) {
	path := args[0]
	payload, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to read backup file")
	}

	duneClient, err := sink.NewDuneClient(&config.Cfg.Dune)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Dune client")
	}

	if err := duneClient.UploadCSVPayload(cmd.Context(), string(payload)); err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Upload failed")
	}
	log.Info().Str("file", path).Str("table", config.Cfg.Dune.TableName).Msg("Upload successful")
}
