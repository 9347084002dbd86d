package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileStore keeps the checkpoint in a single plain-text file holding one
// decimal block number. Writes go through a temp file and os.Rename so a
// crash mid-write never corrupts the committed value.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint file path is empty")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Read() (int64, bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read checkpoint file %s: %w", s.path, err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return 0, false, nil
	}

	block, err := strconv.ParseInt(trimmed, 0, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt checkpoint file %s: %w", s.path, err)
	}
	return block, true, nil
}

func (s *FileStore) Write(block int64) error {
	if current, ok, err := s.Read(); err == nil && ok && block < current {
		return fmt.Errorf("refusing to move checkpoint backwards from %d to %d", current, block)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(strconv.FormatInt(block, 10)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync checkpoint temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
