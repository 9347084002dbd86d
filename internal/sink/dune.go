package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	config "github.com/surgencelabs/dune-sync/configs"
	"github.com/surgencelabs/dune-sync/internal/common"
	"github.com/surgencelabs/dune-sync/internal/metrics"
	"github.com/surgencelabs/dune-sync/internal/retry"
)

const (
	csvChunkSize    = 2000
	ndjsonChunkSize = 5000
)

// Archiver receives a copy of every payload before it is uploaded. The cron
// deployment keeps these as *_backup.csv files for replay after incidents.
type Archiver interface {
	Archive(ctx context.Context, name string, payload []byte) error
}

// DuneClient delivers log rows to a Dune Analytics table. With a namespace
// configured it uses the uploads API (create table once, NDJSON inserts);
// otherwise the older CSV upload endpoint. Duplicate rows are accepted by
// both; uniqueness is restored downstream by the documented dedup query.
type DuneClient struct {
	apiKey     string
	tableName  string
	namespace  string
	baseURL    string
	httpClient *http.Client
	policy     *retry.Policy
	archiver   Archiver

	tableEnsured bool
	now          func() time.Time
}

type Option func(*DuneClient)

func WithRetryPolicy(policy *retry.Policy) Option {
	return func(c *DuneClient) {
		if policy == nil {
			return
		}
		c.policy = policy
	}
}

func WithArchiver(archiver Archiver) Option {
	return func(c *DuneClient) {
		c.archiver = archiver
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *DuneClient) {
		c.httpClient = client
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *DuneClient) {
		c.now = now
	}
}

func NewDuneClient(cfg *config.DuneConfig, opts ...Option) (*DuneClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("DUNE_API_KEY environment variable is not set")
	}

	client := &DuneClient{
		apiKey:     cfg.APIKey,
		tableName:  cfg.TableName,
		namespace:  cfg.Namespace,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.policy == nil {
		client.policy = retry.NewPolicy(
			cfg.UploadRetries,
			time.Duration(config.Cfg.Retry.BackoffBaseSeconds*float64(time.Second)),
			time.Duration(config.Cfg.Retry.BackoffMaxSeconds*float64(time.Second)),
			IsTransient,
		)
	}
	return client, nil
}

// Upload delivers rows to the configured table. Empty input is a no-op
// success so a window with zero logs still advances the checkpoint.
// IngestedAt is stamped here, at upload time.
func (c *DuneClient) Upload(ctx context.Context, logs []common.Log) error {
	if len(logs) == 0 {
		log.Info().Msg("No new data to upload")
		return nil
	}

	ingestedAt := c.now().UTC()
	stamped := make([]common.Log, len(logs))
	for i, l := range logs {
		l.IngestedAt = ingestedAt
		stamped[i] = l
	}

	if c.namespace != "" {
		return c.uploadNDJSON(ctx, stamped)
	}
	return c.uploadCSV(ctx, stamped)
}

func (c *DuneClient) uploadCSV(ctx context.Context, logs []common.Log) error {
	for chunkIndex, chunk := range chunkLogs(logs, csvChunkSize) {
		payload, err := serializeCSV(chunk)
		if err != nil {
			return &UploadError{Err: fmt.Errorf("failed to serialize rows as CSV: %w", err)}
		}
		if err := c.archive(ctx, chunkIndex, "csv", []byte(payload)); err != nil {
			return err
		}
		if err := c.UploadCSVPayload(ctx, payload); err != nil {
			return err
		}
		metrics.UploadedRows.Add(float64(len(chunk)))
	}
	log.Info().Int("rows", len(logs)).Str("table", c.tableName).Msg("Upload successful")
	return nil
}

// UploadCSVPayload sends one CSV payload through the table upload endpoint.
// Also used by the upload command to replay backup files.
func (c *DuneClient) UploadCSVPayload(ctx context.Context, csvData string) error {
	body := map[string]interface{}{
		"data":        strings.TrimRight(csvData, "\n"),
		"description": fmt.Sprintf("Raw logs fetched via RPC for %s", c.tableName),
		"table_name":  c.tableName,
		"is_private":  false,
	}
	return c.policy.Do(ctx, "upload csv to dune", func() error {
		return c.post(ctx, c.baseURL+"/table/upload/csv", "application/json", body, nil)
	})
}

func (c *DuneClient) uploadNDJSON(ctx context.Context, logs []common.Log) error {
	if err := c.ensureTable(ctx); err != nil {
		return err
	}

	insertURL := fmt.Sprintf("%s/uploads/%s/%s/insert", c.baseURL, c.namespace, c.tableName)
	for chunkIndex, chunk := range chunkLogs(logs, ndjsonChunkSize) {
		payload, err := serializeNDJSON(chunk)
		if err != nil {
			return &UploadError{Err: err}
		}
		if err := c.archive(ctx, chunkIndex, "ndjson", []byte(payload)); err != nil {
			return err
		}
		err = c.policy.Do(ctx, "insert rows into dune", func() error {
			return c.post(ctx, insertURL, "application/x-ndjson", nil, []byte(payload))
		})
		if err != nil {
			return err
		}
		metrics.UploadedRows.Add(float64(len(chunk)))
	}
	log.Info().Int("rows", len(logs)).Str("table", c.namespace+"."+c.tableName).Msg("Insert successful")
	return nil
}

// ensureTable creates the namespaced table once per process. 409 means the
// table already exists and is fine.
func (c *DuneClient) ensureTable(ctx context.Context) error {
	if c.tableEnsured {
		return nil
	}

	body := map[string]interface{}{
		"namespace":   c.namespace,
		"table_name":  c.tableName,
		"description": fmt.Sprintf("Raw logs fetched via RPC for %s", c.tableName),
		"is_private":  false,
		"schema":      logsTableSchema,
	}
	err := c.policy.Do(ctx, "create dune table", func() error {
		err := c.post(ctx, c.baseURL+"/uploads", "application/json", body, nil)
		var uploadErr *UploadError
		if errors.As(err, &uploadErr) && uploadErr.Status == http.StatusConflict {
			log.Debug().Str("table", c.tableName).Msg("Dune table already exists")
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	c.tableEnsured = true
	return nil
}

func (c *DuneClient) post(ctx context.Context, url string, contentType string, jsonBody map[string]interface{}, rawBody []byte) error {
	var reader io.Reader
	if jsonBody != nil {
		encoded, err := json.Marshal(jsonBody)
		if err != nil {
			return &UploadError{Err: fmt.Errorf("failed to encode request body: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(rawBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return &UploadError{Err: err}
	}
	req.Header.Set("X-Dune-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newNetworkError(err)
	}
	defer resp.Body.Close()

	metrics.UploadAttempts.Inc()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return newStatusError(resp.StatusCode, string(bodyBytes))
}

func (c *DuneClient) archive(ctx context.Context, chunkIndex int, format string, payload []byte) error {
	if c.archiver == nil {
		return nil
	}
	name := fmt.Sprintf("%s_%s_%03d.%s", c.tableName, c.now().UTC().Format("20060102T150405"), chunkIndex, format)
	if err := c.archiver.Archive(ctx, name, payload); err != nil {
		// Backups are best effort; the sink itself is the source of truth.
		log.Warn().Err(err).Str("name", name).Msg("Failed to archive upload payload")
	}
	return nil
}

func chunkLogs(logs []common.Log, size int) [][]common.Log {
	if size <= 0 || len(logs) <= size {
		return [][]common.Log{logs}
	}
	var chunks [][]common.Log
	for i := 0; i < len(logs); i += size {
		end := i + size
		if end > len(logs) {
			end = len(logs)
		}
		chunks = append(chunks, logs[i:end])
	}
	return chunks
}
