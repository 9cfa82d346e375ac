package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/autopo-forecast/internal/config"
	"github.com/andresuchdata/autopo-forecast/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	forecastKeyPrefix = "forecast:"
	latestSnapshotKey = forecastKeyPrefix + "latest"

	defaultLatestTTL = 5 * time.Minute
	pingTimeout      = 5 * time.Second
	unlinkBatch      = 100
)

// ForecastCache caches the latest persisted snapshot between runs
type ForecastCache interface {
	GetLatest(ctx context.Context) (*domain.ForecastSnapshot, bool, error)
	SetLatest(ctx context.Context, snapshot *domain.ForecastSnapshot) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

// NewForecastCache connects to redis when caching is enabled and falls back
// to a cache that never hits otherwise.
func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &redisForecastCache{client: client, ttl: latestTTL(cfg)}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

// redisOptions prefers REDIS_URL and otherwise assembles host, port and db
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func latestTTL(cfg config.CacheConfig) time.Duration {
	if cfg.LatestTTLSeconds <= 0 {
		return defaultLatestTTL
	}
	return time.Duration(cfg.LatestTTLSeconds) * time.Second
}

func (c *redisForecastCache) GetLatest(ctx context.Context) (*domain.ForecastSnapshot, bool, error) {
	payload, err := c.client.Get(ctx, latestSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var snapshot domain.ForecastSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode forecast snapshot cache: %w", err)
	}

	return &snapshot, true, nil
}

func (c *redisForecastCache) SetLatest(ctx context.Context, snapshot *domain.ForecastSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode forecast snapshot cache: %w", err)
	}

	if err := c.client.Set(ctx, latestSnapshotKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll unlinks every forecast key in batches while scanning
func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, forecastKeyPrefix+"*", unlinkBatch).Iterator()

	batch := make([]string, 0, unlinkBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == unlinkBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return flush()
}

func (n *noopForecastCache) GetLatest(ctx context.Context) (*domain.ForecastSnapshot, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) SetLatest(ctx context.Context, snapshot *domain.ForecastSnapshot) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}
