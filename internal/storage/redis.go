package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/NewsWatch/internal/collector"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultListKey = "newswatch:delivered"
	DefaultListMax = 500
)

// RedisSink 把投递的记录以 JSON 追加到 Redis 列表，只保留最新 max 条，
// 方便其他进程读取最近的新闻
type RedisSink struct {
	Redis *redis.Client
	key   string
	max   int64
}

func NewRedisSink(addr, key string, maxLen int) *RedisSink {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}
	return newRedisSink(rdb, key, maxLen)
}

func newRedisSink(rdb *redis.Client, key string, maxLen int) *RedisSink {
	if key == "" {
		key = DefaultListKey
	}
	if maxLen <= 0 {
		maxLen = DefaultListMax
	}
	return &RedisSink{Redis: rdb, key: key, max: int64(maxLen)}
}

func (s *RedisSink) Deliver(ctx context.Context, item collector.NewsItem) error {
	bs, err := json.Marshal(item)
	if err != nil {
		return err
	}
	_, err = s.Redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.key, bs)
		p.LTrim(ctx, s.key, -s.max, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis push %q: %w", item.Title, err)
	}
	return nil
}

// recent 返回最新的 n 条（旧 → 新）
func (s *RedisSink) recent(ctx context.Context, n int) ([]collector.NewsItem, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := s.Redis.LRange(ctx, s.key, int64(-n), -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]collector.NewsItem, 0, len(raw))
	for _, r := range raw {
		var it collector.NewsItem
		if err := json.Unmarshal([]byte(r), &it); err != nil {
			log.Printf("redis: skip malformed entry: %v", err)
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *RedisSink) Close() error {
	return s.Redis.Close()
}
