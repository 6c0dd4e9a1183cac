package transport

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Request 内存 Transport 收到的请求
type Request struct {
	Index []string
	Body  []byte
}

// HandlerFunc 根据请求生成响应
type HandlerFunc func(index []string, body []byte) ([]byte, error)

type MemoryTransportOptions struct {
	// Responses 按顺序返回的响应体，最后一个会一直重复
	Responses []string `cfg:"responses"`
}

// MemoryTransport 不访问网络的 Transport，用于测试和离线调试
// 有 handler 时由 handler 生成响应，否则按入队顺序返回响应
type MemoryTransport struct {
	mu        sync.Mutex
	handler   HandlerFunc
	responses [][]byte
	requests  []Request
}

func NewMemoryTransport(handler HandlerFunc) *MemoryTransport {
	return &MemoryTransport{handler: handler}
}

func NewMemoryTransportWithOptions(options *MemoryTransportOptions) (*MemoryTransport, error) {
	t := &MemoryTransport{}
	if options != nil {
		for _, r := range options.Responses {
			t.Enqueue([]byte(r))
		}
	}
	return t, nil
}

// Enqueue 追加响应
func (t *MemoryTransport) Enqueue(bodies ...[]byte) *MemoryTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range bodies {
		t.responses = append(t.responses, append([]byte(nil), b...))
	}
	return t
}

// Requests 已收到的请求
func (t *MemoryTransport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

func (t *MemoryTransport) Search(ctx context.Context, index []string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.requests = append(t.requests, Request{
		Index: append([]string(nil), index...),
		Body:  append([]byte(nil), body...),
	})
	handler := t.handler
	if handler != nil {
		t.mu.Unlock()
		return handler(index, body)
	}
	defer t.mu.Unlock()

	if len(t.responses) == 0 {
		return nil, errors.Wrap(ErrRequestFailed, "memory transport: no response")
	}
	res := t.responses[0]
	if len(t.responses) > 1 {
		t.responses = t.responses[1:]
	}
	return append([]byte(nil), res...), nil
}
