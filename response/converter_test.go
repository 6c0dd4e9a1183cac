package response

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatlonely/esx/aggregation"
)

type testOrder struct {
	Status    string
	Amount    float64
	CreatedAt string
}

func convert(t *testing.T, raw string, hint Hint) Result {
	r, err := NewConverter().Convert("agg", json.RawMessage(raw), hint)
	require.NoError(t, err)
	return r
}

func TestConvertInference(t *testing.T) {
	for _, c := range []struct {
		name     string
		raw      string
		expected aggregation.AggregationType
	}{
		{"composite 优先于 terms", `{"after_key":{"status":"paid"},"buckets":[{"key":{"status":"paid"},"doc_count":3}]}`, aggregation.AggTypeComposite},
		{"terms", `{"doc_count_error_upper_bound":0,"sum_other_doc_count":0,"buckets":[{"key":"paid","doc_count":3}]}`, aggregation.AggTypeTerms},
		{"带 key_as_string 的 terms 仍然是 terms", `{"doc_count_error_upper_bound":0,"sum_other_doc_count":0,"buckets":[{"key":1,"key_as_string":"true","doc_count":3}]}`, aggregation.AggTypeTerms},
		{"range", `{"buckets":[{"key":"*-100.0","to":100.0,"doc_count":2},{"key":"100.0-*","from":100.0,"doc_count":1}]}`, aggregation.AggTypeRange},
		{"keyed range", `{"buckets":{"small":{"to":100.0,"doc_count":2}}}`, aggregation.AggTypeRange},
		{"date_histogram", `{"buckets":[{"key_as_string":"2024-01-01","key":1704067200000,"doc_count":3}]}`, aggregation.AggTypeDateHisto},
		{"histogram", `{"buckets":[{"key":0.0,"doc_count":3},{"key":50.0,"doc_count":1}]}`, aggregation.AggTypeHistogram},
		{"空桶推断为 histogram", `{"buckets":[]}`, aggregation.AggTypeHistogram},
		{"extended_stats 优先于 stats", `{"count":2,"min":1,"max":3,"avg":2,"sum":4,"sum_of_squares":10,"variance":1,"std_deviation":1}`, aggregation.AggTypeExtendedStats},
		{"stats", `{"count":2,"min":1,"max":3,"avg":2,"sum":4}`, aggregation.AggTypeStats},
		{"percentiles", `{"values":{"50.0":12.5,"99.0":30.1}}`, aggregation.AggTypePercentiles},
		{"top_hits", `{"hits":{"total":{"value":1,"relation":"eq"},"max_score":1.0,"hits":[]}}`, aggregation.AggTypeTopHits},
		{"单值指标", `{"value":12.5}`, TypeValue},
		{"单桶聚合", `{"doc_count":12,"avg_amount":{"value":1.5}}`, TypeSingleBucket},
	} {
		t.Run(c.name, func(t *testing.T) {
			r := convert(t, c.raw, nil)
			assert.Equal(t, c.expected, r.Type())
			assert.Equal(t, "agg", r.Name())
		})
	}
}

func TestConvertRuleOrderMatters(t *testing.T) {
	raw := json.RawMessage(`{"count":2,"min":1,"max":3,"avg":2,"sum":4,"std_deviation":1}`)

	c := NewConverter()
	r, err := c.Convert("agg", raw, nil)
	require.NoError(t, err)
	assert.IsType(t, &ExtendedStatsResult{}, r)

	// stats 放到 extended_stats 之前后，同样的结果被识别为 stats
	swapped := NewConverter()
	swapped.builtin[5], swapped.builtin[6] = swapped.builtin[6], swapped.builtin[5]
	r, err = swapped.Convert("agg", raw, nil)
	require.NoError(t, err)
	assert.IsType(t, &StatsResult{}, r)
}

func TestConvertResults(t *testing.T) {
	t.Run("terms 桶和子聚合", func(t *testing.T) {
		r := convert(t, `{
			"doc_count_error_upper_bound": 1,
			"sum_other_doc_count": 7,
			"buckets": [
				{"key": "paid", "doc_count": 80, "avg_amount": {"value": 12.5}},
				{"key": 42, "doc_count": 3, "avg_amount": {"value": null}}
			]
		}`, nil)
		terms := r.(*TermsResult)
		assert.EqualValues(t, 1, terms.DocCountErrorUpperBound)
		assert.EqualValues(t, 7, terms.SumOtherDocCount)
		require.Len(t, terms.Buckets, 2)
		assert.Equal(t, "paid", terms.Buckets[0].Key)
		assert.Equal(t, int64(42), terms.Buckets[1].Key)
		assert.EqualValues(t, 80, terms.Buckets[0].DocCount)
		assert.Equal(t, 12.5, terms.Buckets[0].Aggregations.GetValue("avg_amount"))

		avg, ok := terms.Buckets[1].Aggregations.Value("avg_amount")
		require.True(t, ok)
		assert.Nil(t, avg.Value)
	})

	t.Run("数字键", func(t *testing.T) {
		r := convert(t, `{"buckets":[{"key":0,"doc_count":3},{"key":2.5,"doc_count":1}]}`, nil)
		buckets := r.(*HistogramResult).Buckets
		assert.Equal(t, int64(0), buckets[0].Key)
		assert.Equal(t, 2.5, buckets[1].Key)
	})

	t.Run("keyed histogram", func(t *testing.T) {
		r := convert(t, `{"buckets":{"0.0":{"key":0.0,"doc_count":3},"50.0":{"key":50.0,"doc_count":1}}}`, nil)
		buckets := r.(*HistogramResult).Buckets
		require.Len(t, buckets, 2)
		assert.EqualValues(t, 1, buckets[1].DocCount)
	})

	t.Run("range", func(t *testing.T) {
		r := convert(t, `{"buckets":{"small":{"to":100.0,"doc_count":2},"big":{"from":100.0,"doc_count":1}}}`, nil)
		buckets := r.(*RangeResult).Buckets
		require.Len(t, buckets, 2)
		assert.Equal(t, "small", buckets[0].Key)
		assert.Nil(t, buckets[0].From)
		assert.Equal(t, 100.0, *buckets[0].To)
		assert.Equal(t, 100.0, *buckets[1].From)
	})

	t.Run("composite", func(t *testing.T) {
		r := convert(t, `{"after_key":{"status":"paid","day":1704067200000},"buckets":[{"key":{"status":"paid","day":1704067200000},"doc_count":3}]}`, nil)
		composite := r.(*CompositeResult)
		assert.Equal(t, map[string]any{"status": "paid", "day": int64(1704067200000)}, composite.AfterKey)
		assert.Equal(t, map[string]any{"status": "paid", "day": int64(1704067200000)}, composite.Buckets[0].Key)
	})

	t.Run("extended_stats", func(t *testing.T) {
		r := convert(t, `{"count":2,"min":1,"max":3,"avg":2,"sum":4,"sum_of_squares":10,"variance":1,"std_deviation":1,"std_deviation_bounds":{"upper":4,"lower":0}}`, nil)
		stats := r.(*ExtendedStatsResult)
		assert.EqualValues(t, 2, stats.Count)
		assert.Equal(t, 4.0, stats.Sum)
		assert.Equal(t, 3.0, *stats.Max)
		assert.Equal(t, 1.0, *stats.StdDeviation)
		assert.Equal(t, 4.0, *stats.StdDeviationBounds["upper"])
	})

	t.Run("没有文档时 stats 的值为 null", func(t *testing.T) {
		r := convert(t, `{"count":0,"min":null,"max":null,"avg":null,"sum":0.0}`, nil)
		stats := r.(*StatsResult)
		assert.EqualValues(t, 0, stats.Count)
		assert.Nil(t, stats.Min)
	})

	t.Run("percentiles 对象和数组", func(t *testing.T) {
		r := convert(t, `{"values":{"50.0":12.5,"50.0_as_string":"12.5","99.0":null}}`, nil)
		p := r.(*PercentilesResult)
		require.Len(t, p.Values, 2)
		v, ok := p.Get(50)
		require.True(t, ok)
		assert.Equal(t, 12.5, *v)
		v, ok = p.Get(99)
		require.True(t, ok)
		assert.Nil(t, v)

		r = convert(t, `{"values":[{"key":50.0,"value":12.5},{"key":99.0,"value":30.0}]}`, nil)
		p = r.(*PercentilesResult)
		assert.Equal(t, []float64{50, 99}, []float64{p.Values[0].Percent, p.Values[1].Percent})
	})

	t.Run("top_hits", func(t *testing.T) {
		r := convert(t, `{"hits":{"total":{"value":5,"relation":"gte"},"max_score":null,"hits":[{"_index":"orders","_id":"1","_score":null,"_source":{"Status":"paid","Amount":12.5},"sort":[1704067200000]}]}}`, nil)
		top := r.(*TopHitsResult)
		assert.EqualValues(t, 5, top.Total)
		assert.Equal(t, "gte", top.TotalRelation)
		require.Len(t, top.Hits, 1)
		assert.Equal(t, "1", top.Hits[0].ID)

		var o testOrder
		require.NoError(t, top.Hits[0].Decode(&o))
		assert.Equal(t, testOrder{Status: "paid", Amount: 12.5}, o)
	})

	t.Run("单桶聚合的子聚合", func(t *testing.T) {
		r := convert(t, `{"doc_count":12,"meta":{"color":"blue"},"avg_amount":{"value":1.5}}`, nil)
		single := r.(*SingleBucketResult)
		assert.EqualValues(t, 12, single.DocCount)
		assert.Equal(t, []string{"avg_amount"}, single.Aggregations.Names())
		assert.Equal(t, map[string]any{"color": "blue"}, single.Meta)
	})

	t.Run("NaN 和 Infinity", func(t *testing.T) {
		r := convert(t, `{"value":"Infinity"}`, nil)
		assert.True(t, *r.(*ValueResult).Value > 0)
	})
}

func TestConvertWithHint(t *testing.T) {
	tree := aggregation.MustFreeze(
		aggregation.NewTerms[testOrder]("by_status").
			Field("status").
			SubAggregation(
				aggregation.NewAvg[testOrder]("avg_amount").Field("amount"),
				aggregation.NewDateHistogram[testOrder]("per_day").Field("createdAt").CalendarInterval("1d"),
			),
		aggregation.NewCardinality[testOrder]("users").Field("userID"),
	)

	raw := `{
		"by_status": {
			"doc_count_error_upper_bound": 0,
			"sum_other_doc_count": 0,
			"buckets": [
				{"key": "paid", "doc_count": 2, "avg_amount": {"value": 3.0}, "per_day": {"buckets": []}}
			]
		},
		"users": {"value": 7}
	}`

	t.Run("使用请求的类型", func(t *testing.T) {
		aggs, err := NewConverter().ConvertAll(json.RawMessage(raw), tree)
		require.NoError(t, err)
		assert.Equal(t, []string{"by_status", "users"}, aggs.Names())

		users, ok := aggs.Value("users")
		require.True(t, ok)
		assert.Equal(t, aggregation.AggTypeCardinality, users.Type())
		assert.Equal(t, 7.0, *users.Value)

		terms, ok := aggs.Terms("by_status")
		require.True(t, ok)
		sub := terms.Buckets[0].Aggregations
		perDay, ok := sub.Histogram("per_day")
		require.True(t, ok)
		assert.Equal(t, aggregation.AggTypeDateHisto, perDay.Type())
		avg, _ := sub.Value("avg_amount")
		assert.Equal(t, aggregation.AggTypeAvg, avg.Type())
	})

	t.Run("没有提示时按形状推断", func(t *testing.T) {
		aggs, err := NewConverter().ConvertAll(json.RawMessage(raw), nil)
		require.NoError(t, err)
		terms, _ := aggs.Terms("by_status")
		perDay, _ := terms.Buckets[0].Aggregations.Histogram("per_day")
		assert.Equal(t, aggregation.AggTypeHistogram, perDay.Type())
		users, _ := aggs.Value("users")
		assert.Equal(t, TypeValue, users.Type())
	})

	t.Run("请求的类型解析失败时按形状推断", func(t *testing.T) {
		hint := aggregation.MustFreeze(aggregation.NewStats[testOrder]("users").Field("userID"))
		r, err := NewConverter().Convert("users", json.RawMessage(`{"value":7}`), hint)
		require.NoError(t, err)
		assert.IsType(t, &ValueResult{}, r)
	})
}

func TestConvertFallback(t *testing.T) {
	raw := json.RawMessage(`{"bounds":{"top_left":{"lat":1.5,"lon":2},"bottom_right":{"lat":0,"lon":3}},"meta":{"k":"v"}}`)

	t.Run("无法识别时保留原始内容", func(t *testing.T) {
		r, err := NewConverter().Convert("viewport", raw, nil)
		require.NoError(t, err)
		rawResult := r.(*RawResult)
		assert.Equal(t, "viewport", rawResult.Name())
		assert.Equal(t, []string{"bounds", "meta"}, rawResult.Fields.Keys())
		assert.Equal(t, map[string]any{"k": "v"}, rawResult.Meta)

		buf, err := json.Marshal(rawResult)
		require.NoError(t, err)
		assert.JSONEq(t, string(raw), string(buf))
		assert.Equal(t, string(raw), string(rawResult.Raw()))
	})

	t.Run("严格模式", func(t *testing.T) {
		c, err := NewConverterWithOptions(&ConverterOptions{Strict: true})
		require.NoError(t, err)
		_, err = c.Convert("viewport", raw, nil)
		assert.True(t, errors.Is(err, ErrUnknownVariant))
	})

	t.Run("非对象", func(t *testing.T) {
		for _, s := range []string{`[1,2]`, `"x"`, `12`, `null`} {
			_, err := NewConverter().Convert("agg", json.RawMessage(s), nil)
			assert.True(t, errors.Is(err, ErrMalformedResponseShape), s)
		}

		_, err := NewConverter().ConvertAll(json.RawMessage(`{"a":{"value":1},"b":[1]}`), nil)
		assert.True(t, errors.Is(err, ErrMalformedResponseShape))

		_, err = NewConverter().ConvertAll(json.RawMessage(`[]`), nil)
		assert.True(t, errors.Is(err, ErrMalformedResponseShape))
	})
}

type geoBoundsResult struct {
	name     string
	TopLeft  map[string]float64
	BotRight map[string]float64
}

func (r *geoBoundsResult) Name() string                      { return r.name }
func (r *geoBoundsResult) Type() aggregation.AggregationType { return "geo_bounds" }

type geoBoundsVariant struct{}

func (geoBoundsVariant) Type() aggregation.AggregationType { return "geo_bounds" }
func (geoBoundsVariant) Match(obj *Object) bool           { return obj.IsObject("bounds") }
func (geoBoundsVariant) Decode(c *Converter, name string, obj *Object, hint Hint) (Result, error) {
	var bounds struct {
		TopLeft     map[string]float64 `json:"top_left"`
		BottomRight map[string]float64 `json:"bottom_right"`
	}
	if err := obj.Decode("bounds", &bounds); err != nil {
		return nil, err
	}
	return &geoBoundsResult{name: name, TopLeft: bounds.TopLeft, BotRight: bounds.BottomRight}, nil
}

func TestRegister(t *testing.T) {
	c := NewConverter()
	c.Register(geoBoundsVariant{})

	r, err := c.Convert("viewport", json.RawMessage(`{"bounds":{"top_left":{"lat":1.5,"lon":2},"bottom_right":{"lat":0,"lon":3}}}`), nil)
	require.NoError(t, err)
	geo, ok := r.(*geoBoundsResult)
	require.True(t, ok)
	assert.Equal(t, 1.5, geo.TopLeft["lat"])

	// 自定义规则先于内置规则
	c.Register(&rule{typ: "my_value", match: matchValue, decode: decodeValueResult})
	r, err = c.Convert("x", json.RawMessage(`{"value":1}`), nil)
	require.NoError(t, err)
	assert.Equal(t, aggregation.AggregationType("my_value"), r.Type())
}
