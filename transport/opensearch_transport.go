package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/pkg/errors"
)

// OpenSearchTransportOptions OpenSearch 连接选项
type OpenSearchTransportOptions struct {
	Addresses  []string      `cfg:"addresses" def:"[\"http://localhost:9200\"]" validate:"dive,url"`
	Username   string        `cfg:"username"`
	Password   string        `cfg:"password"`
	Timeout    time.Duration `cfg:"timeout" def:"30s"`
	MaxRetries int           `cfg:"maxRetries" def:"3"`
	Ping       bool          `cfg:"ping"`
}

// OpenSearchTransport 基于 opensearch-go 的 Transport，响应格式与 Elasticsearch 7.x 兼容
type OpenSearchTransport struct {
	client *opensearch.Client
}

func NewOpenSearchTransportWithOptions(options *OpenSearchTransportOptions) (*OpenSearchTransport, error) {
	if options == nil {
		options = &OpenSearchTransportOptions{}
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: options.Addresses,
		Username:  options.Username,
		Password:  options.Password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: options.Timeout,
		},
		MaxRetries: options.MaxRetries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opensearch.NewClient failed")
	}

	if options.Ping {
		res, err := client.Ping()
		if err != nil {
			return nil, errors.Wrap(err, "opensearch ping failed")
		}
		defer res.Body.Close()
		if res.IsError() {
			return nil, errors.Wrapf(ErrRequestFailed, "opensearch ping: status %d", res.StatusCode)
		}
	}

	return &OpenSearchTransport{client: client}, nil
}

func (t *OpenSearchTransport) Search(ctx context.Context, index []string, body []byte) ([]byte, error) {
	res, err := t.client.Search(
		t.client.Search.WithContext(ctx),
		t.client.Search.WithIndex(index...),
		t.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "opensearch search failed")
	}
	defer res.Body.Close()

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read search response failed")
	}
	if res.IsError() {
		return nil, errors.Wrapf(ErrRequestFailed, "opensearch: status %s: %s", res.Status(), buf)
	}
	return buf, nil
}
