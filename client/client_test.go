package client

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/esx/aggregation"
	"github.com/hatlonely/esx/log"
	"github.com/hatlonely/esx/log/logger"
	"github.com/hatlonely/esx/query"
	"github.com/hatlonely/esx/response"
	"github.com/hatlonely/esx/search"
	"github.com/hatlonely/esx/transport"
)

type testOrder struct {
	Status string
	Amount float64
}

const termsBody = `{
	"took": 3,
	"timed_out": false,
	"_shards": {"total": 1, "successful": 1, "skipped": 0, "failed": 0},
	"hits": {"total": {"value": 12, "relation": "eq"}, "max_score": null, "hits": []},
	"aggregations": {
		"by_status": {
			"doc_count_error_upper_bound": 0,
			"sum_other_doc_count": 0,
			"buckets": [
				{"key": "paid", "doc_count": 8, "avg_amount": {"value": 12.5}},
				{"key": "refunded", "doc_count": 4, "avg_amount": {"value": null}}
			]
		}
	}
}`

func newTestClient(tr transport.Transport) *Client {
	c, err := NewClientWithTransport(tr, &Options{Index: []string{"orders"}})
	So(err, ShouldBeNil)
	c.SetLogger(log.Discard())
	return c
}

func byStatus() aggregation.Aggregation {
	return aggregation.NewTerms[testOrder]("by_status").
		FieldOf(func(o *testOrder) any { return &o.Status }).
		Size(10).
		SubAggregation(aggregation.NewAvg[testOrder]("avg_amount").FieldOf(func(o *testOrder) any { return &o.Amount }))
}

func TestClientSearch(t *testing.T) {
	Convey("TestClientSearch", t, func() {
		tr := transport.NewMemoryTransport(nil).Enqueue([]byte(termsBody))
		c := newTestClient(tr)

		Convey("构建请求并解析响应", func() {
			res, err := c.Search(context.Background(), search.NewRequest().
				Query(query.Term("status", "paid")).
				Size(0).
				Aggregation(byStatus()))
			So(err, ShouldBeNil)
			So(res.Took, ShouldEqual, 3)
			So(res.Hits.Total, ShouldEqual, 12)

			requests := tr.Requests()
			So(requests, ShouldHaveLength, 1)
			So(requests[0].Index, ShouldResemble, []string{"orders"})
			So(string(requests[0].Body), ShouldEqual,
				`{"query":{"term":{"status":"paid"}},"size":0,"aggs":{"by_status":{"terms":{"field":"status","size":10},"aggs":{"avg_amount":{"avg":{"field":"amount"}}}}}}`)

			terms, ok := res.Aggregations.Terms("by_status")
			So(ok, ShouldBeTrue)
			So(terms.Buckets, ShouldHaveLength, 2)
			So(terms.Buckets[0].Key, ShouldEqual, "paid")
			So(terms.Buckets[0].DocCount, ShouldEqual, 8)
			So(terms.Buckets[0].Aggregations.GetValue("avg_amount"), ShouldEqual, 12.5)

			avg, ok := terms.Buckets[1].Aggregations.Value("avg_amount")
			So(ok, ShouldBeTrue)
			So(avg.Value, ShouldBeNil)
		})

		Convey("指定索引", func() {
			_, err := c.Search(context.Background(), search.NewRequest(), "refunds", "orders-2024")
			So(err, ShouldBeNil)
			So(tr.Requests()[0].Index, ShouldResemble, []string{"refunds", "orders-2024"})
		})

		Convey("请求错误不会发送", func() {
			_, err := c.Search(context.Background(), search.NewRequest().Size(-1))
			So(errors.Is(err, search.ErrInvalidRequest), ShouldBeTrue)
			So(tr.Requests(), ShouldBeEmpty)

			_, err = c.Search(context.Background(), nil)
			So(errors.Is(err, search.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("Transport 错误", func() {
			c := newTestClient(transport.NewMemoryTransport(nil))
			_, err := c.Search(context.Background(), search.NewRequest())
			So(errors.Is(err, transport.ErrRequestFailed), ShouldBeTrue)
		})

		Convey("响应格式错误", func() {
			c := newTestClient(transport.NewMemoryTransport(nil).Enqueue([]byte(`[1,2]`)))
			_, err := c.Search(context.Background(), search.NewRequest())
			So(errors.Is(err, response.ErrMalformedResponseShape), ShouldBeTrue)
		})

		Convey("使用 ctx 中的日志器", func() {
			var buf bytes.Buffer
			scoped, err := logger.NewSLogWithWriter(&buf, slog.LevelDebug, &logger.SLogOptions{})
			So(err, ShouldBeNil)

			ctx := logger.NewContext(context.Background(), scoped.With("requestID", "r-1"))
			_, err = c.Search(ctx, search.NewRequest())
			So(err, ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "requestID=r-1")
			So(buf.String(), ShouldContainSubstring, "took=3")
		})

		Convey("context 取消", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := c.Search(ctx, search.NewRequest())
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestClientAggregate(t *testing.T) {
	Convey("TestClientAggregate", t, func() {
		tr := transport.NewMemoryTransport(nil).Enqueue([]byte(termsBody))
		c := newTestClient(tr)

		aggs, err := c.Aggregate(context.Background(), nil, byStatus())
		So(err, ShouldBeNil)
		So(aggs.Names(), ShouldResemble, []string{"by_status"})
		So(aggs.GetBuckets("by_status"), ShouldHaveLength, 2)
		So(string(tr.Requests()[0].Body), ShouldStartWith, `{"size":0,"aggs":{"by_status":`)

		Convey("自定义解析规则", func() {
			c.Converter().Register(statusVariant{})
			aggs, err := c.Aggregate(context.Background(), []string{"orders"}, byStatus())
			So(err, ShouldBeNil)
			// 提示中的类型优先于自定义规则
			_, ok := aggs.Terms("by_status")
			So(ok, ShouldBeTrue)
		})
	})
}

type statusVariant struct{}

func (statusVariant) Type() aggregation.AggregationType { return "status" }

func (statusVariant) Match(obj *response.Object) bool { return obj.Has("buckets") }

func (statusVariant) Decode(c *response.Converter, name string, obj *response.Object, hint response.Hint) (response.Result, error) {
	return nil, errors.New("unexpected")
}

func TestNewClient(t *testing.T) {
	Convey("TestNewClient", t, func() {
		for _, c := range []struct {
			name    string
			content string
		}{
			{"esx.json", `{
				"index": ["orders"],
				"converter": {"strict": true},
				"transport": {"type": "MemoryTransport", "options": {"responses": ["{\"took\":1,\"hits\":{\"total\":1,\"hits\":[]}}"]}}
			}`},
			{"esx.yaml", `
index: [orders]
converter:
  strict: true
transport:
  type: MemoryTransport
  options:
    responses:
      - '{"took":1,"hits":{"total":1,"hits":[]}}'
`},
			{"esx.toml", `
index = ["orders"]

[converter]
strict = true

[transport]
type = "MemoryTransport"

[transport.options]
responses = ['{"took":1,"hits":{"total":1,"hits":[]}}']
`},
		} {
			Convey(c.name, func() {
				filename := filepath.Join(t.TempDir(), c.name)
				So(os.WriteFile(filename, []byte(c.content), 0644), ShouldBeNil)

				client, err := NewClient(filename)
				So(err, ShouldBeNil)
				client.SetLogger(log.Discard())
				So(client.index, ShouldResemble, []string{"orders"})

				res, err := client.Search(context.Background(), search.NewRequest())
				So(err, ShouldBeNil)
				So(res.Took, ShouldEqual, 1)
				So(res.Hits.Total, ShouldEqual, 1)
			})
		}

		Convey("缺少 transport", func() {
			_, err := NewClientWithOptions(&Options{})
			So(err, ShouldNotBeNil)
			_, err = NewClientWithTransport(nil, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("配置文件不存在", func() {
			_, err := NewClient("not-exist.yaml")
			So(err, ShouldNotBeNil)
		})
	})
}
