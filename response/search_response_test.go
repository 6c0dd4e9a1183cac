package response

import (
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/esx/aggregation"
)

const searchResponseBody = `{
	"took": 5,
	"timed_out": false,
	"_shards": {"total": 3, "successful": 3, "skipped": 0, "failed": 0},
	"hits": {
		"total": {"value": 120, "relation": "eq"},
		"max_score": 1.5,
		"hits": [
			{"_index": "orders", "_id": "o-1", "_score": 1.5, "_source": {"Status": "paid", "Amount": 30}}
		]
	},
	"aggregations": {
		"by_status": {
			"doc_count_error_upper_bound": 0,
			"sum_other_doc_count": 3,
			"buckets": [
				{"key": "paid", "doc_count": 80, "avg_amount": {"value": 12.5}},
				{"key": "refunded", "doc_count": 37, "avg_amount": {"value": null}}
			]
		},
		"total_amount": {"value": 1500.0, "value_as_string": "1,500"}
	}
}`

func TestParseSearchResponse(t *testing.T) {
	Convey("TestParseSearchResponse", t, func() {
		Convey("完整响应", func() {
			hint := aggregation.MustFreeze(
				aggregation.NewTerms[testOrder]("by_status").Field("status").SubAggregation(
					aggregation.NewAvg[testOrder]("avg_amount").Field("amount"),
				),
				aggregation.NewSum[testOrder]("total_amount").Field("amount"),
			)

			res, err := ParseSearchResponse([]byte(searchResponseBody), hint, nil)
			So(err, ShouldBeNil)
			So(res.Took, ShouldEqual, 5)
			So(res.TimedOut, ShouldBeFalse)
			So(res.Shards, ShouldResemble, ShardsInfo{Total: 3, Successful: 3})
			So(res.Hits.Total, ShouldEqual, 120)
			So(res.Hits.TotalRelation, ShouldEqual, "eq")
			So(*res.Hits.MaxScore, ShouldEqual, 1.5)
			So(res.Hits.Hits, ShouldHaveLength, 1)

			var o testOrder
			So(res.Hits.Hits[0].Decode(&o), ShouldBeNil)
			So(o, ShouldResemble, testOrder{Status: "paid", Amount: 30})

			So(res.Aggregations.Names(), ShouldResemble, []string{"by_status", "total_amount"})
			sum, ok := res.Aggregations.Value("total_amount")
			So(ok, ShouldBeTrue)
			So(sum.Type(), ShouldEqual, aggregation.AggTypeSum)
			So(sum.ValueAsString, ShouldEqual, "1,500")

			buckets := res.Aggregations.GetBuckets("by_status")
			So(buckets, ShouldHaveLength, 2)
			So(buckets[0].Aggregations.GetValue("avg_amount"), ShouldEqual, 12.5)
			So(buckets[1].Aggregations.GetValue("avg_amount"), ShouldEqual, 0)
		})

		Convey("数字形式的 total", func() {
			res, err := ParseSearchResponse([]byte(`{"took":1,"timed_out":false,"hits":{"total":42,"max_score":null,"hits":[]}}`), nil, nil)
			So(err, ShouldBeNil)
			So(res.Hits.Total, ShouldEqual, 42)
			So(res.Hits.TotalRelation, ShouldEqual, "eq")
			So(res.Hits.MaxScore, ShouldBeNil)
			So(res.Hits.Hits, ShouldBeEmpty)
			So(res.Aggregations.Len(), ShouldEqual, 0)
		})

		Convey("track_total_hits 为 false 时没有 total", func() {
			res, err := ParseSearchResponse([]byte(`{"took":1,"hits":{"hits":[]},"aggregations":null}`), nil, nil)
			So(err, ShouldBeNil)
			So(res.Hits.Total, ShouldEqual, 0)
			So(res.Hits.TotalRelation, ShouldEqual, "")
			So(res.Aggregations.Len(), ShouldEqual, 0)
		})

		Convey("格式错误", func() {
			for _, body := range []string{
				`[]`,
				`{"hits":[]}`,
				`{"hits":{"total":"many"}}`,
				`{"aggregations":{"a":1}}`,
			} {
				_, err := ParseSearchResponse([]byte(body), nil, nil)
				So(errors.Is(err, ErrMalformedResponseShape), ShouldBeTrue)
			}
		})

		Convey("严格模式的解析器", func() {
			c, err := NewConverterWithOptions(&ConverterOptions{Strict: true})
			So(err, ShouldBeNil)
			_, err = ParseSearchResponse([]byte(`{"aggregations":{"a":{"unknown":1}}}`), nil, c)
			So(errors.Is(err, ErrUnknownVariant), ShouldBeTrue)
		})
	})
}

func TestObject(t *testing.T) {
	Convey("TestObject", t, func() {
		obj, err := ParseObject([]byte(`{"b":1,"a":{"x":[1,2.5,"s"]},"c":null,"d":"NaN"}`))
		So(err, ShouldBeNil)
		So(obj.Keys(), ShouldResemble, []string{"b", "a", "c", "d"})
		So(obj.HasAll("a", "b"), ShouldBeTrue)
		So(obj.HasAny("x", "c"), ShouldBeTrue)
		So(obj.IsObject("a"), ShouldBeTrue)
		So(obj.IsNumber("b"), ShouldBeTrue)

		v, err := obj.Value("a")
		So(err, ShouldBeNil)
		So(v, ShouldResemble, map[string]any{"x": []any{int64(1), 2.5, "s"}})

		f, err := obj.Float64("c")
		So(err, ShouldBeNil)
		So(f, ShouldBeNil)

		f, err = obj.Float64("d")
		So(err, ShouldBeNil)
		So(*f != *f, ShouldBeTrue)

		_, err = obj.Float64("a")
		So(errors.Is(err, ErrMalformedResponseShape), ShouldBeTrue)

		buf, err := obj.MarshalJSON()
		So(err, ShouldBeNil)
		So(string(buf), ShouldEqual, `{"b":1,"a":{"x":[1,2.5,"s"]},"c":null,"d":"NaN"}`)
	})
}
