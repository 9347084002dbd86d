package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
	config "github.com/surgencelabs/dune-sync/configs"
)

// Fetcher metrics
var (
	FetchedLogs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_fetched_logs_total",
		Help: "The total number of logs fetched from the RPC in this run",
	})

	LastFetchedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_last_fetched_block",
		Help: "The highest block number fetched from the RPC",
	})
)

// Sink metrics
var (
	UploadedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_uploaded_rows_total",
		Help: "The total number of rows delivered to the sink in this run",
	})

	UploadAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_upload_attempts_total",
		Help: "The total number of sink upload attempts, including retries",
	})
)

// Orchestrator metrics
var (
	LastSyncedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_last_synced_block",
		Help: "The checkpoint value persisted at the end of the run",
	})

	ChainHead = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_chain_head",
		Help: "The chain head observed at the start of the run",
	})

	RunSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_run_success",
		Help: "1 when the run finished DONE, 0 when it failed",
	})
)

// Push delivers this run's metrics to the configured Pushgateway. The job is
// cron-driven and exits after every run, so there is nothing for Prometheus
// to scrape; push failures are logged but never fail the run.
func Push() {
	gatewayURL := config.Cfg.Metrics.PushgatewayURL
	if gatewayURL == "" {
		return
	}

	err := push.New(gatewayURL, config.Cfg.Metrics.JobName).
		Gatherer(prometheus.DefaultGatherer).
		Push()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics to Pushgateway")
	}
}
