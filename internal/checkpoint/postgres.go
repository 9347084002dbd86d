package checkpoint

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	config "github.com/surgencelabs/dune-sync/configs"
)

const defaultCursorID = "raw_logs"

// PostgresStore keeps the checkpoint in a sync_cursors table, one row per
// cursor id. The table is created on first use so the sync job needs nothing
// beyond its own role permissions.
type PostgresStore struct {
	db       *sql.DB
	cursorID string
}

func NewPostgresStore(cfg *config.PostgresCheckpointConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "require"
		log.Info().Msg("No SSL mode specified, defaulting to 'require' for secure connection")
	}
	connStr += fmt.Sprintf(" sslmode=%s", sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS sync_cursors (
		cursor_id TEXT PRIMARY KEY,
		block_number BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure sync_cursors table: %w", err)
	}

	cursorID := cfg.CursorID
	if cursorID == "" {
		cursorID = defaultCursorID
	}
	return &PostgresStore{db: db, cursorID: cursorID}, nil
}

func (s *PostgresStore) Read() (int64, bool, error) {
	query := `SELECT block_number FROM sync_cursors WHERE cursor_id = $1`

	var block int64
	err := s.db.QueryRow(query, s.cursorID).Scan(&block)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read checkpoint from postgres: %w", err)
	}
	return block, true, nil
}

func (s *PostgresStore) Write(block int64) error {
	query := `INSERT INTO sync_cursors (cursor_id, block_number, updated_at)
	          VALUES ($1, $2, now())
	          ON CONFLICT (cursor_id)
	          DO UPDATE SET block_number = GREATEST(sync_cursors.block_number, EXCLUDED.block_number), updated_at = now()`

	if _, err := s.db.Exec(query, s.cursorID, block); err != nil {
		return fmt.Errorf("failed to write checkpoint to postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
