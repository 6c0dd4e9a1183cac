package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"
)

// ESTransportOptions Elasticsearch 连接选项
type ESTransportOptions struct {
	Addresses  []string      `cfg:"addresses" def:"[\"http://localhost:9200\"]" validate:"dive,url"`
	Username   string        `cfg:"username"`
	Password   string        `cfg:"password"`
	APIKey     string        `cfg:"apiKey"`
	Timeout    time.Duration `cfg:"timeout" def:"30s"`
	MaxRetries int           `cfg:"maxRetries" def:"3"`

	// Ping 为 true 时创建后立即请求一次集群信息，确认连接可用
	Ping bool `cfg:"ping"`
}

// ESTransport 基于 go-elasticsearch 的 Transport
type ESTransport struct {
	client *elasticsearch.Client
}

func NewESTransportWithOptions(options *ESTransportOptions) (*ESTransport, error) {
	if options == nil {
		options = &ESTransportOptions{}
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: options.Addresses,
		Username:  options.Username,
		Password:  options.Password,
		APIKey:    options.APIKey,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: options.Timeout,
		},
		MaxRetries: options.MaxRetries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "elasticsearch.NewClient failed")
	}

	if options.Ping {
		res, err := client.Info()
		if err != nil {
			return nil, errors.Wrap(err, "elasticsearch ping failed")
		}
		defer res.Body.Close()
		if res.IsError() {
			return nil, errors.Wrapf(ErrRequestFailed, "elasticsearch ping: %s", res.String())
		}
	}

	return &ESTransport{client: client}, nil
}

// NewESTransport 使用已有的客户端
func NewESTransport(client *elasticsearch.Client) *ESTransport {
	return &ESTransport{client: client}
}

func (t *ESTransport) Search(ctx context.Context, index []string, body []byte) ([]byte, error) {
	req := esapi.SearchRequest{
		Index: index,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, t.client)
	if err != nil {
		return nil, errors.Wrap(err, "esapi.SearchRequest failed")
	}
	defer res.Body.Close()

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read search response failed")
	}
	if res.IsError() {
		return nil, errors.Wrapf(ErrRequestFailed, "elasticsearch: status %s: %s", res.Status(), buf)
	}
	return buf, nil
}
