package cache

import (
	"context"
	"errors"
	"math/rand"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	contentBaseTTL = 30 * time.Second // 基础过期时间
	contentJitter  = 10 * time.Second // 随机抖动范围，防止缓存雪崩
)

// ContentCache 是文档全文的读穿缓存：命中直接回，未命中时用
// singleflight 合并并发回源（回源意味着一次跨进程的内容拉取，不便宜）。
// 每次有操作批落地时调用 Invalidate 让缓存失效。
type ContentCache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewContentCache(rdb *redis.Client) *ContentCache {
	return &ContentCache{rdb: rdb}
}

func randomTTL() time.Duration {
	return contentBaseTTL + time.Duration(rand.Int63n(int64(contentJitter)))
}

// Get 读取文档全文；miss 时调用 loader 回源并写缓存。
// rdb 为 nil（未配置 Redis）时退化为纯 singleflight 包裹的直读。
func (c *ContentCache) Get(ctx context.Context, docID string, loader func() (string, error)) (string, error) {
	val, err, _ := c.sf.Do(docID, func() (interface{}, error) {
		if c.rdb != nil {
			res, err := c.rdb.Get(ctx, contentKey(docID)).Result()
			if err == nil {
				return res, nil
			}
			if !errors.Is(err, redis.Nil) {
				// Redis 故障时降级为直读，不挡读路径
				return c.loadThrough(ctx, docID, loader, false)
			}
		}
		return c.loadThrough(ctx, docID, loader, c.rdb != nil)
	})
	if err != nil {
		return "", err
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return "", errors.New("internal type error")
}

func (c *ContentCache) loadThrough(ctx context.Context, docID string, loader func() (string, error), fill bool) (string, error) {
	content, err := loader()
	if err != nil {
		return "", err
	}
	if fill {
		_ = c.rdb.Set(ctx, contentKey(docID), content, randomTTL()).Err()
	}
	return content, nil
}

// Invalidate 在文档被修改后删除缓存键
func (c *ContentCache) Invalidate(ctx context.Context, docID string) {
	if c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, contentKey(docID)).Err()
}
