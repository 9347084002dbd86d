package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	config "github.com/surgencelabs/dune-sync/configs"
)

const defaultRedisKey = "dune_sync:last_block"

// RedisStore keeps the checkpoint as a decimal string under one key. Useful
// when several hosts take turns running the cron job.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(cfg *config.RedisCheckpointConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = defaultRedisKey
	}
	log.Debug().Str("key", key).Msg("Using Redis checkpoint store")
	return &RedisStore{client: client, key: key}, nil
}

func (s *RedisStore) Read() (int64, bool, error) {
	value, err := s.client.Get(context.Background(), s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read checkpoint from redis: %w", err)
	}

	block, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt checkpoint value %q in redis: %w", value, err)
	}
	return block, true, nil
}

func (s *RedisStore) Write(block int64) error {
	err := s.client.Set(context.Background(), s.key, strconv.FormatInt(block, 10), 0).Err()
	if err != nil {
		return fmt.Errorf("failed to write checkpoint to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
