package client

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/esx/aggregation"
	"github.com/hatlonely/esx/cfg"
	"github.com/hatlonely/esx/log"
	"github.com/hatlonely/esx/log/logger"
	"github.com/hatlonely/esx/ref"
	"github.com/hatlonely/esx/response"
	"github.com/hatlonely/esx/search"
	"github.com/hatlonely/esx/transport"
)

type Options struct {
	// Transport 例如 {type: ESTransport, options: {addresses: [...]}}
	Transport *ref.TypeOptions         `cfg:"transport"`
	Converter response.ConverterOptions `cfg:"converter"`
	Logger    *logger.SLogOptions       `cfg:"logger"`

	// Index 调用时没有指定索引时使用
	Index []string `cfg:"index"`
}

// Client 构建请求、发送并解析响应
type Client struct {
	transport transport.Transport
	converter *response.Converter
	logger    logger.Logger
	index     []string
}

func NewClientWithOptions(options *Options) (*Client, error) {
	if options == nil || options.Transport == nil {
		return nil, errors.New("transport is required")
	}
	t, err := transport.NewTransportWithOptions(options.Transport)
	if err != nil {
		return nil, errors.WithMessage(err, "transport.NewTransportWithOptions failed")
	}
	return NewClientWithTransport(t, options)
}

// NewClientWithTransport 使用已有的 Transport，忽略 options.Transport
func NewClientWithTransport(t transport.Transport, options *Options) (*Client, error) {
	if t == nil {
		return nil, errors.New("transport is nil")
	}
	if options == nil {
		options = &Options{}
	}

	converter, err := response.NewConverterWithOptions(&options.Converter)
	if err != nil {
		return nil, errors.WithMessage(err, "response.NewConverterWithOptions failed")
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}

	return &Client{
		transport: t,
		converter: converter,
		logger:    l,
		index:     append([]string(nil), options.Index...),
	}, nil
}

// NewClient 从配置文件创建
func NewClient(filename string) (*Client, error) {
	var options Options
	if err := cfg.Load(filename, &options); err != nil {
		return nil, err
	}
	return NewClientWithOptions(&options)
}

func (c *Client) SetLogger(l logger.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Converter 用于注册自定义的聚合结果解析规则
func (c *Client) Converter() *response.Converter {
	return c.converter
}

// Search 构建并发送请求，以请求中的聚合树作为解析提示
// ctx 中通过 logger.NewContext 放入的日志器优先于客户端的日志器
func (c *Client) Search(ctx context.Context, req *search.Request, index ...string) (*response.SearchResponse, error) {
	if req == nil {
		return nil, errors.Wrap(search.ErrInvalidRequest, "request is nil")
	}
	if len(index) == 0 {
		index = c.index
	}

	src, err := req.Build()
	if err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx, c.logger)
	start := time.Now()
	body, err := c.transport.Search(ctx, index, src.Body)
	if err != nil {
		l.ErrorContext(ctx, "search failed", "index", index, "duration", time.Since(start), "error", err.Error())
		return nil, err
	}

	res, err := response.ParseSearchResponse(body, src.Tree, c.converter)
	if err != nil {
		l.ErrorContext(ctx, "parse search response failed", "index", index, "error", err.Error())
		return nil, err
	}
	l.DebugContext(ctx, "search", "index", index, "took", res.Took, "duration", time.Since(start),
		"total", res.Hits.Total, "aggregations", res.Aggregations.Names())
	return res, nil
}

// Aggregate 只返回聚合结果，不返回文档
func (c *Client) Aggregate(ctx context.Context, index []string, aggs ...aggregation.Aggregation) (*response.Aggregations, error) {
	res, err := c.Search(ctx, search.NewRequest().Size(0).Aggregation(aggs...), index...)
	if err != nil {
		return nil, err
	}
	return res.Aggregations, nil
}
