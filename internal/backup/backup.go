package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	config "github.com/surgencelabs/dune-sync/configs"
	"github.com/surgencelabs/dune-sync/internal/sink"
)

// NewArchiver builds the configured backup destinations. Returns nil when
// backups are disabled entirely.
func NewArchiver(cfg *config.BackupConfig) (sink.Archiver, error) {
	var archivers []sink.Archiver

	if cfg.Dir != "" {
		local, err := NewLocalArchiver(cfg.Dir)
		if err != nil {
			return nil, err
		}
		archivers = append(archivers, local)
	}
	if cfg.S3 != nil {
		s3Archiver, err := NewS3Archiver(cfg.S3)
		if err != nil {
			return nil, err
		}
		archivers = append(archivers, s3Archiver)
	}

	switch len(archivers) {
	case 0:
		return nil, nil
	case 1:
		return archivers[0], nil
	default:
		return multiArchiver(archivers), nil
	}
}

// LocalArchiver writes each uploaded payload into a directory, mirroring the
// *_backup.csv files the original cron deployment kept for replay.
type LocalArchiver struct {
	dir string
}

func NewLocalArchiver(dir string) (*LocalArchiver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", dir, err)
	}
	return &LocalArchiver{dir: dir}, nil
}

func (a *LocalArchiver) Archive(_ context.Context, name string, payload []byte) error {
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write backup file %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("bytes", len(payload)).Msg("Archived upload payload")
	return nil
}

type multiArchiver []sink.Archiver

func (m multiArchiver) Archive(ctx context.Context, name string, payload []byte) error {
	for _, a := range m {
		if err := a.Archive(ctx, name, payload); err != nil {
			return err
		}
	}
	return nil
}
