package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/esx/ref"
)

var ErrNotFound = errors.New("cache: key not found")

// Cache 字节缓存，用于缓存搜索响应
type Cache interface {
	// Get 键不存在或已过期时返回 ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set ttl <= 0 时使用缓存的默认过期时间
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

func init() {
	ref.MustRegisterT[*FreeCache](NewFreeCacheWithOptions)
	ref.MustRegisterT[*Redis](NewRedisWithOptions)
}

// NewCacheWithOptions 通过类型配置创建缓存，namespace 为空时使用本包
func NewCacheWithOptions(options *ref.TypeOptions) (Cache, error) {
	obj, err := ref.NewWithOptions(options, "github.com/hatlonely/esx/cache")
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	c, ok := obj.(Cache)
	if !ok {
		return nil, errors.Errorf("%T is not a Cache", obj)
	}
	return c, nil
}
