package transport

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hatlonely/esx/ref"
)

// ErrRequestFailed 引擎返回了错误状态码，或者没有可用的响应
var ErrRequestFailed = errors.New("search request failed")

// Transport 把构建好的请求体发送到引擎，返回原始响应体
type Transport interface {
	Search(ctx context.Context, index []string, body []byte) ([]byte, error)
}

const namespace = "github.com/hatlonely/esx/transport"

func init() {
	ref.MustRegisterT[*ESTransport](NewESTransportWithOptions)
	ref.MustRegisterT[*OpenSearchTransport](NewOpenSearchTransportWithOptions)
	ref.MustRegisterT[*MemoryTransport](NewMemoryTransportWithOptions)
	ref.MustRegisterT[*CachedTransport](NewCachedTransportWithOptions)
	ref.MustRegisterT[*ObservableTransport](NewObservableTransportWithOptions)
}

// NewTransportWithOptions 通过类型配置创建 Transport，namespace 为空时使用本包
func NewTransportWithOptions(options *ref.TypeOptions) (Transport, error) {
	obj, err := ref.NewWithOptions(options, namespace)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	t, ok := obj.(Transport)
	if !ok {
		return nil, errors.Errorf("%T is not a Transport", obj)
	}
	return t, nil
}
