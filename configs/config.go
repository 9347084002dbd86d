package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type RPCConfig struct {
	URL                  string `mapstructure:"url"`
	LogsBlocksPerRequest int64  `mapstructure:"logsBlocksPerRequest"`
	MaxRetries           int    `mapstructure:"maxRetries"`
}

type DuneConfig struct {
	APIKey        string `mapstructure:"apiKey"`
	TableName     string `mapstructure:"tableName"`
	Namespace     string `mapstructure:"namespace"`
	BaseURL       string `mapstructure:"baseUrl"`
	UploadRetries int    `mapstructure:"uploadRetries"`
}

type SyncConfig struct {
	StartBlock         int64  `mapstructure:"startBlock"`
	BlockBatchSize     int64  `mapstructure:"blockBatchSize"`
	ReorgOverlapBlocks int64  `mapstructure:"reorgOverlapBlocks"`
	LockFile           string `mapstructure:"lockFile"`
	DryRun             bool   `mapstructure:"dryRun"`
}

type RetryConfig struct {
	BackoffBaseSeconds float64 `mapstructure:"backoffBaseSeconds"`
	BackoffMaxSeconds  float64 `mapstructure:"backoffMaxSeconds"`
}

type FileCheckpointConfig struct {
	Path string `mapstructure:"path"`
}

type RedisCheckpointConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type PostgresCheckpointConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslMode"`
	CursorID string `mapstructure:"cursorId"`
}

type CheckpointConfig struct {
	File     *FileCheckpointConfig     `mapstructure:"file"`
	Redis    *RedisCheckpointConfig    `mapstructure:"redis"`
	Postgres *PostgresCheckpointConfig `mapstructure:"postgres"`
}

type S3BackupConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
}

type BackupConfig struct {
	Dir string          `mapstructure:"dir"`
	S3  *S3BackupConfig `mapstructure:"s3"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgatewayUrl"`
	JobName        string `mapstructure:"jobName"`
}

type Config struct {
	RPC        RPCConfig        `mapstructure:"rpc"`
	Dune       DuneConfig       `mapstructure:"dune"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Backup     BackupConfig     `mapstructure:"backup"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

var Cfg Config

// Flat env names kept compatible with the original cron deployment, so an
// existing .env keeps working unchanged.
var envBindings = map[string]string{
	"rpc.url":                  "RPC_URL",
	"rpc.logsBlocksPerRequest": "RPC_LOGS_BLOCKS_PER_REQUEST",
	"rpc.maxRetries":           "MAX_RPC_RETRIES",
	"dune.apiKey":              "DUNE_API_KEY",
	"dune.tableName":           "DUNE_TABLE_NAME",
	"dune.namespace":           "DUNE_NAMESPACE",
	"dune.baseUrl":             "DUNE_BASE_URL",
	"dune.uploadRetries":       "DUNE_UPLOAD_RETRIES",
	"sync.startBlock":          "START_BLOCK",
	"sync.blockBatchSize":      "BLOCK_BATCH_SIZE",
	"sync.reorgOverlapBlocks":  "REORG_OVERLAP_BLOCKS",
	"sync.lockFile":            "LOCK_FILE",
	"retry.backoffBaseSeconds": "BACKOFF_BASE_SECONDS",
	"retry.backoffMaxSeconds":  "BACKOFF_MAX_SECONDS",
	"checkpoint.file.path":     "CHECKPOINT_FILE",
	"backup.dir":               "BACKUP_DIR",
	"metrics.pushgatewayUrl":   "METRICS_PUSHGATEWAY_URL",
	"log.level":                "LOG_LEVEL",
	"log.pretty":               "LOG_PRETTY",
}

func setDefaults() {
	viper.SetDefault("dune.tableName", "incentiv_testnet_raw_logs_rpc")
	viper.SetDefault("dune.baseUrl", "https://api.dune.com/api/v1")
	viper.SetDefault("dune.uploadRetries", 3)
	viper.SetDefault("rpc.maxRetries", 5)
	viper.SetDefault("sync.startBlock", -1)
	viper.SetDefault("sync.blockBatchSize", 100)
	viper.SetDefault("sync.reorgOverlapBlocks", 5)
	viper.SetDefault("retry.backoffBaseSeconds", 1)
	viper.SetDefault("retry.backoffMaxSeconds", 16)
	viper.SetDefault("checkpoint.file.path", "last_block.txt")
	viper.SetDefault("metrics.jobName", "dune_sync")
	viper.SetDefault("log.level", "info")
}

func LoadConfig(cfgFile string) error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file, %s", err)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file, %s", err)
			}
		}
	}

	// sets e.g. RPC_URL to rpc.url
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("error binding env %s: %v", env, err)
		}
	}

	err := viper.Unmarshal(&Cfg)
	if err != nil {
		return fmt.Errorf("error unmarshalling config: %v", err)
	}

	return nil
}
