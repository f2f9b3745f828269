package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/config"
	"github.com/redis/go-redis/v9"
)

// historySize bounds the list of previous entries kept next to the latest one.
const historySize = 50

// RedisLedger stores the latest entry under key and a bounded history under
// key + ":history", newest first.
type RedisLedger struct {
	client *redis.Client
	key    string
}

func NewRedisLedger(client *redis.Client, key string) *RedisLedger {
	return &RedisLedger{client: client, key: key}
}

func (l *RedisLedger) historyKey() string {
	return l.key + ":history"
}

func (l *RedisLedger) Record(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, l.key, data, 0)
		pipe.LPush(ctx, l.historyKey(), data)
		pipe.LTrim(ctx, l.historyKey(), 0, historySize-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis ledger write failed: %w", err)
	}
	return nil
}

func (l *RedisLedger) Last(ctx context.Context) (*Entry, error) {
	data, err := l.client.Get(ctx, l.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoEntry
	}
	if err != nil {
		return nil, fmt.Errorf("redis ledger read failed: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode ledger entry %s: %w", l.key, err)
	}
	return &e, nil
}

// History returns up to limit previous entries, newest first.
func (l *RedisLedger) History(ctx context.Context, limit int64) ([]Entry, error) {
	if limit <= 0 || limit > historySize {
		limit = historySize
	}
	raw, err := l.client.LRange(ctx, l.historyKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ledger history failed: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode ledger history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

var _ Historian = (*RedisLedger)(nil)

func newRedisClient(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
