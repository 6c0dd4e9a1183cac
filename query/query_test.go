package query

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/esx/field"
)

func TestLeafQueryToES(t *testing.T) {
	Convey("测试叶子查询 ToES 方法", t, func() {
		Convey("TermQuery", func() {
			q := Term("status", "active")
			So(q.Type(), ShouldEqual, QueryTypeTerm)
			So(q.ToES(), ShouldResemble, map[string]any{
				"term": map[string]any{"status": "active"},
			})
		})

		Convey("TermsQuery 空值输出空数组", func() {
			So(Terms("status").ToES(), ShouldResemble, map[string]any{
				"terms": map[string]any{"status": []any{}},
			})
			So(Terms("status", "a", "b").ToES(), ShouldResemble, map[string]any{
				"terms": map[string]any{"status": []any{"a", "b"}},
			})
		})

		Convey("MatchQuery 和 MatchAllQuery", func() {
			So(Match("title", "golang").ToES(), ShouldResemble, map[string]any{
				"match": map[string]any{"title": "golang"},
			})
			So(MatchAll().ToES(), ShouldResemble, map[string]any{"match_all": map[string]any{}})
		})

		Convey("ExistsQuery", func() {
			So(Exists("email").ToES(), ShouldResemble, map[string]any{
				"exists": map[string]any{"field": "email"},
			})
		})

		Convey("PrefixQuery WildcardQuery RegexpQuery", func() {
			So(Prefix("name", "jo").ToES(), ShouldResemble, map[string]any{
				"prefix": map[string]any{"name": "jo"},
			})
			So(Wildcard("name", "j*n?").ToES(), ShouldResemble, map[string]any{
				"wildcard": map[string]any{"name": "j*n?"},
			})
			So(Regexp("name", "jo.*").ToES(), ShouldResemble, map[string]any{
				"regexp": map[string]any{"name": "jo.*"},
			})
		})

		Convey("字段路径支持多级字段", func() {
			q := Term(field.New("address").Child("city"), "Paris")
			So(q.ToES(), ShouldResemble, map[string]any{
				"term": map[string]any{"address.city": "Paris"},
			})
		})
	})
}

func TestRangeQueryToES(t *testing.T) {
	Convey("测试 RangeQuery ToES 方法", t, func() {
		Convey("只有 Gte 条件", func() {
			q := Range("age").GreaterThanOrEqual(18)
			So(q.ToES(), ShouldResemble, map[string]any{
				"range": map[string]any{
					"age": map[string]any{"gte": 18},
				},
			})
		})

		Convey("组合条件和额外参数", func() {
			q := &RangeQuery{
				Field: "timestamp",
				Gt:    "2024-01-01",
				Lt:    "2024-02-01",
				Extra: map[string]any{"format": "yyyy-MM-dd"},
			}
			So(q.ToES(), ShouldResemble, map[string]any{
				"range": map[string]any{
					"timestamp": map[string]any{
						"gt":     "2024-01-01",
						"lt":     "2024-02-01",
						"format": "yyyy-MM-dd",
					},
				},
			})
		})

		Convey("没有条件时输出空对象", func() {
			So(Range("age").ToES(), ShouldResemble, map[string]any{
				"range": map[string]any{"age": map[string]any{}},
			})
		})
	})
}

func TestBoolQueryToES(t *testing.T) {
	Convey("测试 BoolQuery ToES 方法", t, func() {
		Convey("空的 BoolQuery", func() {
			So(Bool().ToES(), ShouldResemble, map[string]any{"bool": map[string]any{}})
		})

		Convey("包含各类子句", func() {
			q := Bool().
				AddMust(Term("status", "active")).
				AddShould(Term("tag", "a"), Term("tag", "b")).
				AddMustNot(Term("deleted", true)).
				AddFilter(Range("timestamp").GreaterThanOrEqual(1000)).
				MinimumShouldMatch(1)
			result := q.ToES()["bool"].(map[string]any)
			So(result["must"], ShouldHaveLength, 1)
			So(result["should"], ShouldHaveLength, 2)
			So(result["must_not"], ShouldHaveLength, 1)
			So(result["filter"], ShouldHaveLength, 1)
			So(result["minimum_should_match"], ShouldEqual, 1)
		})

		Convey("嵌套布尔查询", func() {
			q := Bool().AddMust(Bool().AddShould(Term("a", 1)))
			must := q.ToES()["bool"].(map[string]any)["must"].([]any)
			So(must[0], ShouldResemble, map[string]any{
				"bool": map[string]any{
					"should": []any{map[string]any{"term": map[string]any{"a": 1}}},
				},
			})
		})
	})
}

func TestSource(t *testing.T) {
	Convey("序列化查询", t, func() {
		buf, err := Source(Bool().AddFilter(Term("status", "paid")))
		So(err, ShouldBeNil)
		So(string(buf), ShouldEqual, `{"bool":{"filter":[{"term":{"status":"paid"}}]}}`)

		_, err = Source(nil)
		So(err, ShouldNotBeNil)
	})
}
