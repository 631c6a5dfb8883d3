package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// AnswerCacheConfig 问答结果缓存配置。
type AnswerCacheConfig struct {
	// TTL 缓存过期时间，0 表示禁用。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// AnswerCache 缓存 grounded QA 的回答，键为规范化问题的哈希。
// 拒答句同样会被缓存，新导入的视频要等 TTL 过期后才会影响旧问题。
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache 创建缓存实例，redis 为 nil 或 TTL 为 0 时所有操作为空操作。
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{}
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "valuerag:answer:"
	}
	return &AnswerCache{redis: redis, config: config}
}

func (c *AnswerCache) enabled() bool {
	return c != nil && c.redis != nil && c.config.TTL > 0
}

func (c *AnswerCache) key(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	hash := sha256.Sum256([]byte(normalized))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get 返回缓存的回答，未命中返回 false。
func (c *AnswerCache) Get(ctx context.Context, question string) (string, bool) {
	if !c.enabled() {
		return "", false
	}
	key := c.key(question)
	answer, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != goredis.Nil {
			logger.Warnw("failed to get from cache", "error", err.Error(), "key", key)
		}
		return "", false
	}
	logger.Debugw("cache hit", "key", key)
	return answer, true
}

// Set 写入回答。
func (c *AnswerCache) Set(ctx context.Context, question, answer string) {
	if !c.enabled() {
		return
	}
	key := c.key(question)
	if err := c.redis.Set(ctx, key, answer, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set cache", "error", err.Error(), "key", key)
	}
}

// Clear 清除所有问答缓存，导入新视频后调用。
func (c *AnswerCache) Clear(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}
