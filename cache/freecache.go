package cache

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/pkg/errors"
)

type FreeCacheOptions struct {
	// Size 缓存占用的内存字节数，freecache 最小为 512KB
	Size       int           `cfg:"size" def:"104857600" validate:"gte=0"`
	DefaultTTL time.Duration `cfg:"defaultTTL" def:"1m"`
}

// FreeCache 进程内缓存
type FreeCache struct {
	cache      *freecache.Cache
	defaultTTL time.Duration
}

func NewFreeCacheWithOptions(options *FreeCacheOptions) (*FreeCache, error) {
	if options == nil {
		options = &FreeCacheOptions{}
	}
	size := options.Size
	if size == 0 {
		size = 100 * 1024 * 1024
	}
	return &FreeCache{
		cache:      freecache.NewCache(size),
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (c *FreeCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.cache.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "freecache.Get failed")
	}
	return val, nil
}

func (c *FreeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	// freecache 以秒为单位，0 表示永不过期
	expireSeconds := int(ttl.Seconds())
	if ttl > 0 && expireSeconds == 0 {
		expireSeconds = 1
	}
	if err := c.cache.Set([]byte(key), value, expireSeconds); err != nil {
		return errors.Wrap(err, "freecache.Set failed")
	}
	return nil
}

func (c *FreeCache) Del(ctx context.Context, key string) error {
	c.cache.Del([]byte(key))
	return nil
}

func (c *FreeCache) Close() error {
	c.cache.Clear()
	return nil
}
