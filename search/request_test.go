package search

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/esx/aggregation"
	"github.com/hatlonely/esx/query"
)

type testOrder struct {
	Status    string
	Amount    float64
	CreatedAt string
}

func TestRequest(t *testing.T) {
	Convey("TestRequest", t, func() {
		Convey("空请求", func() {
			src, err := NewRequest().Build()
			So(err, ShouldBeNil)
			So(string(src.Body), ShouldEqual, `{}`)
			So(src.Tree.Len(), ShouldEqual, 0)
		})

		Convey("查询和聚合", func() {
			src, err := NewRequest().
				Query(query.Term("status", "paid")).
				Size(0).
				Aggregation(aggregation.NewTerms[testOrder]("by_status").Field("status").Size(5)).
				Build()
			So(err, ShouldBeNil)
			So(string(src.Body), ShouldEqual,
				`{"query":{"term":{"status":"paid"}},"size":0,"aggs":{"by_status":{"terms":{"field":"status","size":5}}}}`)
			So(src.Tree.Names(), ShouldResemble, []string{"by_status"})
		})

		Convey("分页和排序", func() {
			src, err := NewRequest().
				From(20).
				Size(10).
				Sort("createdAt", true).
				Sort("amount", false).
				Source("status", "amount").
				TrackTotalHits(true).
				Build()
			So(err, ShouldBeNil)
			So(string(src.Body), ShouldEqual,
				`{"from":20,"size":10,"_source":["status","amount"],"track_total_hits":true,"sort":[{"createdAt":{"order":"desc"}},{"amount":{"order":"asc"}}]}`)
		})

		Convey("aggregations 键名", func() {
			src, err := NewRequest().
				AggregationsKey("aggregations").
				Aggregation(aggregation.NewAvg[testOrder]("avg_amount").FieldOf(func(o *testOrder) any { return &o.Amount })).
				Build()
			So(err, ShouldBeNil)
			So(string(src.Body), ShouldEqual, `{"aggregations":{"avg_amount":{"avg":{"field":"amount"}}}}`)
		})

		Convey("非法参数", func() {
			_, err := NewRequest().Size(-1).Build()
			So(errors.Is(err, ErrInvalidRequest), ShouldBeTrue)

			_, err = NewRequest().AggregationsKey("facets").Build()
			So(errors.Is(err, ErrInvalidRequest), ShouldBeTrue)

			_, err = NewRequest().Sort("", true).Build()
			So(errors.Is(err, ErrInvalidRequest), ShouldBeTrue)

			_, err = NewRequest().Aggregation(
				aggregation.NewAvg[testOrder]("x").Field("amount"),
				aggregation.NewSum[testOrder]("x").Field("amount"),
			).Build()
			So(errors.Is(err, aggregation.ErrInvalidAggregation), ShouldBeTrue)
		})

		Convey("声明式配置", func() {
			size := 0
			track := false
			r, err := NewRequestWithOptions(&RequestOptions{
				Size:           &size,
				Sort:           []aggregation.SortField{{Field: "createdAt", Order: aggregation.OrderDesc}},
				TrackTotalHits: &track,
			})
			So(err, ShouldBeNil)
			src, err := r.Build()
			So(err, ShouldBeNil)
			So(string(src.Body), ShouldEqual, `{"size":0,"track_total_hits":false,"sort":[{"createdAt":{"order":"desc"}}]}`)

			_, err = NewRequestWithOptions(&RequestOptions{AggregationsKey: "facets"})
			So(errors.Is(err, ErrInvalidRequest), ShouldBeTrue)
		})
	})
}
