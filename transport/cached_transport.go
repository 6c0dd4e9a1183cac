package transport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hatlonely/esx/cache"
	"github.com/hatlonely/esx/log"
	"github.com/hatlonely/esx/log/logger"
	"github.com/hatlonely/esx/ref"
)

type CachedTransportOptions struct {
	Transport *ref.TypeOptions `cfg:"transport" validate:"required"`
	Cache     *ref.TypeOptions `cfg:"cache" validate:"required"`

	// TTL 缓存的有效期，0 表示使用缓存的默认过期时间
	TTL time.Duration `cfg:"ttl" def:"1m"`

	Logger *logger.SLogOptions `cfg:"logger"`
}

// cacheEntry 缓存中保存的响应
type cacheEntry struct {
	Body      []byte `msgpack:"body"`
	CreatedAt int64  `msgpack:"createdAt"`
}

// CachedTransport 相同的索引和请求体在有效期内只访问一次引擎
// 缓存读写失败时直接请求引擎，不影响查询结果
type CachedTransport struct {
	transport Transport
	cache     cache.Cache
	ttl       time.Duration
	logger    logger.Logger
	now       func() time.Time
}

func NewCachedTransport(t Transport, c cache.Cache, ttl time.Duration) *CachedTransport {
	return &CachedTransport{
		transport: t,
		cache:     c,
		ttl:       ttl,
		logger:    log.Discard(),
		now:       time.Now,
	}
}

func NewCachedTransportWithOptions(options *CachedTransportOptions) (*CachedTransport, error) {
	if options == nil || options.Transport == nil || options.Cache == nil {
		return nil, errors.New("transport and cache are required")
	}

	t, err := NewTransportWithOptions(options.Transport)
	if err != nil {
		return nil, errors.WithMessage(err, "create underlying transport failed")
	}
	c, err := cache.NewCacheWithOptions(options.Cache)
	if err != nil {
		return nil, errors.WithMessage(err, "cache.NewCacheWithOptions failed")
	}

	ct := NewCachedTransport(t, c, options.TTL)
	if options.Logger != nil {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
		}
		ct.logger = l.WithGroup("cachedTransport")
	}
	return ct, nil
}

func (t *CachedTransport) SetLogger(l logger.Logger) {
	if l != nil {
		t.logger = l
	}
}

// Key 缓存键，索引列表和请求体的 sha256
func Key(index []string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(index, ",")))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func (t *CachedTransport) Search(ctx context.Context, index []string, body []byte) ([]byte, error) {
	key := Key(index, body)

	if res, ok := t.get(ctx, key); ok {
		return res, nil
	}

	res, err := t.transport.Search(ctx, index, body)
	if err != nil {
		return nil, err
	}

	buf, err := msgpack.Marshal(&cacheEntry{Body: res, CreatedAt: t.now().UnixNano()})
	if err != nil {
		t.logger.WarnContext(ctx, "encode cache entry failed", "key", key, "error", err.Error())
		return res, nil
	}
	if err := t.cache.Set(ctx, key, buf, t.ttl); err != nil {
		t.logger.WarnContext(ctx, "cache set failed", "key", key, "error", err.Error())
	}
	return res, nil
}

func (t *CachedTransport) get(ctx context.Context, key string) ([]byte, bool) {
	buf, err := t.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		t.logger.WarnContext(ctx, "cache get failed", "key", key, "error", err.Error())
		return nil, false
	}

	var entry cacheEntry
	if err := msgpack.Unmarshal(buf, &entry); err != nil {
		t.logger.WarnContext(ctx, "decode cache entry failed", "key", key, "error", err.Error())
		return nil, false
	}
	// 部分缓存的过期精度为秒，这里按写入时间再检查一次
	if t.ttl > 0 && t.now().Sub(time.Unix(0, entry.CreatedAt)) >= t.ttl {
		return nil, false
	}
	t.logger.DebugContext(ctx, "cache hit", "key", key)
	return entry.Body, true
}

func (t *CachedTransport) Close() error {
	return t.cache.Close()
}
