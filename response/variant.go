package response

import (
	"strconv"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/hatlonely/esx/aggregation"
)

// 推断出的类型无法区分具体的指标或单桶聚合时使用的类型
const (
	TypeValue        aggregation.AggregationType = "value"
	TypeSingleBucket aggregation.AggregationType = "single_bucket"
)

// rule 内置规则
type rule struct {
	typ    aggregation.AggregationType
	match  func(obj *Object) bool
	decode func(c *Converter, h header, obj *Object, hint Hint) (Result, error)
}

func (r *rule) Type() aggregation.AggregationType {
	return r.typ
}

func (r *rule) Match(obj *Object) bool {
	return r.match(obj)
}

func (r *rule) Decode(c *Converter, name string, obj *Object, hint Hint) (Result, error) {
	meta, err := decodeMeta(obj)
	if err != nil {
		return nil, err
	}
	return r.decode(c, header{name: name, typ: r.typ, Meta: meta}, obj, hint)
}

// DefaultVariants 内置规则，按匹配顺序排列
//
//  1. composite: buckets + after_key
//  2. terms: buckets + doc_count_error_upper_bound 或 sum_other_doc_count
//  3. range: 第一个桶有 from 或 to
//  4. date_histogram: 第一个桶有 key_as_string 且 key 是数字
//  5. histogram: 其他有 buckets 的结果
//  6. extended_stats: std_deviation + count
//  7. stats: count + min + max + avg + sum
//  8. percentiles: values
//  9. top_hits: hits
//  10. 单值指标: value
//  11. 单桶聚合: doc_count
func DefaultVariants() []Variant {
	return []Variant{
		&rule{typ: aggregation.AggTypeComposite, match: matchComposite, decode: decodeComposite},
		&rule{typ: aggregation.AggTypeTerms, match: matchTerms, decode: decodeTerms},
		&rule{typ: aggregation.AggTypeRange, match: matchRange, decode: decodeRange},
		&rule{typ: aggregation.AggTypeDateHisto, match: matchDateHistogram, decode: decodeHistogram},
		&rule{typ: aggregation.AggTypeHistogram, match: matchHistogram, decode: decodeHistogram},
		&rule{typ: aggregation.AggTypeExtendedStats, match: matchExtendedStats, decode: decodeExtendedStats},
		&rule{typ: aggregation.AggTypeStats, match: matchStats, decode: decodeStats},
		&rule{typ: aggregation.AggTypePercentiles, match: matchPercentiles, decode: decodePercentiles},
		&rule{typ: aggregation.AggTypeTopHits, match: matchTopHits, decode: decodeTopHits},
		valueVariant(TypeValue),
		singleBucketVariant(TypeSingleBucket),
	}
}

func valueVariant(typ aggregation.AggregationType) Variant {
	return &rule{typ: typ, match: matchValue, decode: decodeValueResult}
}

func singleBucketVariant(typ aggregation.AggregationType) Variant {
	return &rule{typ: typ, match: matchSingleBucket, decode: decodeSingleBucket}
}

func matchComposite(obj *Object) bool {
	return obj.HasAll("buckets", "after_key")
}

func matchTerms(obj *Object) bool {
	return obj.Has("buckets") && obj.HasAny("doc_count_error_upper_bound", "sum_other_doc_count")
}

func matchRange(obj *Object) bool {
	b := firstBucket(obj)
	return b != nil && b.HasAny("from", "to")
}

func matchDateHistogram(obj *Object) bool {
	b := firstBucket(obj)
	return b != nil && b.Has("key_as_string") && b.IsNumber("key")
}

func matchHistogram(obj *Object) bool {
	return obj.IsArray("buckets") || obj.IsObject("buckets")
}

func matchExtendedStats(obj *Object) bool {
	return obj.HasAll("std_deviation", "count")
}

func matchStats(obj *Object) bool {
	return obj.HasAll("count", "min", "max", "avg", "sum")
}

func matchPercentiles(obj *Object) bool {
	return obj.IsObject("values") || obj.IsArray("values")
}

func matchTopHits(obj *Object) bool {
	return obj.IsObject("hits")
}

func matchValue(obj *Object) bool {
	return obj.Has("value")
}

func matchSingleBucket(obj *Object) bool {
	return obj.IsNumber("doc_count")
}

// firstBucket 第一个桶，buckets 为数组或以 key 为键的对象
func firstBucket(obj *Object) *Object {
	raw, ok := obj.Get("buckets")
	if !ok {
		return nil
	}
	switch kindOf(raw) {
	case "array":
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
			return nil
		}
		b, err := ParseObject(items[0])
		if err != nil {
			return nil
		}
		return b
	case "object":
		keyed, err := ParseObject(raw)
		if err != nil || keyed.Len() == 0 {
			return nil
		}
		v, _ := keyed.Get(keyed.keys[0])
		b, err := ParseObject(v)
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

var bucketKeys = []string{"key", "key_as_string", "doc_count", "from", "to", "from_as_string", "to_as_string"}

func decodeBuckets(c *Converter, obj *Object, hint Hint) ([]*Bucket, error) {
	raw, ok := obj.Get("buckets")
	if !ok {
		return nil, errors.Wrap(ErrMalformedResponseShape, "missing buckets")
	}

	buckets := []*Bucket{}
	switch kindOf(raw) {
	case "array":
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.Wrapf(ErrMalformedResponseShape, "decode buckets: %v", err)
		}
		for i, item := range items {
			b, err := decodeBucket(c, item, "", hint)
			if err != nil {
				return nil, errors.WithMessagef(err, "bucket %d", i)
			}
			buckets = append(buckets, b)
		}
	case "object":
		keyed, err := ParseObject(raw)
		if err != nil {
			return nil, err
		}
		for _, k := range keyed.Keys() {
			item, _ := keyed.Get(k)
			b, err := decodeBucket(c, item, k, hint)
			if err != nil {
				return nil, errors.WithMessagef(err, "bucket %q", k)
			}
			buckets = append(buckets, b)
		}
	default:
		return nil, errors.Wrapf(ErrMalformedResponseShape, "buckets must be array or object, got %s", kindOf(raw))
	}
	return buckets, nil
}

func decodeBucket(c *Converter, raw json.RawMessage, keyName string, hint Hint) (*Bucket, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return nil, err
	}

	b := &Bucket{}
	if obj.Has("key") {
		if b.Key, err = obj.Value("key"); err != nil {
			return nil, err
		}
	} else if keyName != "" {
		b.Key = keyName
	}
	if b.KeyAsString, err = obj.String("key_as_string"); err != nil {
		return nil, err
	}
	if b.DocCount, err = obj.Int64("doc_count"); err != nil {
		return nil, err
	}
	if b.From, err = obj.Float64("from"); err != nil {
		return nil, err
	}
	if b.To, err = obj.Float64("to"); err != nil {
		return nil, err
	}
	if b.FromAsString, err = obj.String("from_as_string"); err != nil {
		return nil, err
	}
	if b.ToAsString, err = obj.String("to_as_string"); err != nil {
		return nil, err
	}
	if b.Aggregations, err = c.SubAggregations(obj, bucketKeys, hint); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeComposite(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	buckets, err := decodeBuckets(c, obj, hint)
	if err != nil {
		return nil, err
	}
	r := &CompositeResult{header: h, Buckets: buckets}
	if obj.IsObject("after_key") {
		v, err := obj.Value("after_key")
		if err != nil {
			return nil, err
		}
		r.AfterKey, _ = v.(map[string]any)
	}
	return r, nil
}

func decodeTerms(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	buckets, err := decodeBuckets(c, obj, hint)
	if err != nil {
		return nil, err
	}
	r := &TermsResult{header: h, Buckets: buckets}
	if r.DocCountErrorUpperBound, err = obj.Int64("doc_count_error_upper_bound"); err != nil {
		return nil, err
	}
	if r.SumOtherDocCount, err = obj.Int64("sum_other_doc_count"); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeRange(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	buckets, err := decodeBuckets(c, obj, hint)
	if err != nil {
		return nil, err
	}
	return &RangeResult{header: h, Buckets: buckets}, nil
}

func decodeHistogram(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	buckets, err := decodeBuckets(c, obj, hint)
	if err != nil {
		return nil, err
	}
	return &HistogramResult{header: h, Buckets: buckets}, nil
}

func decodeStatsFields(obj *Object, r *StatsResult) error {
	if !obj.Has("count") {
		return errors.Wrap(ErrMalformedResponseShape, "missing count")
	}
	var err error
	if r.Count, err = obj.Int64("count"); err != nil {
		return err
	}
	if r.Min, err = obj.Float64("min"); err != nil {
		return err
	}
	if r.Max, err = obj.Float64("max"); err != nil {
		return err
	}
	if r.Avg, err = obj.Float64("avg"); err != nil {
		return err
	}
	sum, err := obj.Float64("sum")
	if err != nil {
		return err
	}
	if sum != nil {
		r.Sum = *sum
	}
	return nil
}

func decodeStats(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	r := &StatsResult{header: h}
	if err := decodeStatsFields(obj, r); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeExtendedStats(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	r := &ExtendedStatsResult{StatsResult: StatsResult{header: h}}
	if err := decodeStatsFields(obj, &r.StatsResult); err != nil {
		return nil, err
	}

	var err error
	if r.SumOfSquares, err = obj.Float64("sum_of_squares"); err != nil {
		return nil, err
	}
	if r.Variance, err = obj.Float64("variance"); err != nil {
		return nil, err
	}
	if r.StdDeviation, err = obj.Float64("std_deviation"); err != nil {
		return nil, err
	}
	if raw, ok := obj.Get("std_deviation_bounds"); ok && kindOf(raw) == "object" {
		bounds, err := ParseObject(raw)
		if err != nil {
			return nil, err
		}
		r.StdDeviationBounds = make(map[string]*float64, bounds.Len())
		for _, k := range bounds.Keys() {
			if r.StdDeviationBounds[k], err = bounds.Float64(k); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func decodePercentiles(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	raw, ok := obj.Get("values")
	if !ok {
		return nil, errors.Wrap(ErrMalformedResponseShape, "missing values")
	}

	r := &PercentilesResult{header: h, Values: []Percentile{}}
	switch kindOf(raw) {
	case "object":
		values, err := ParseObject(raw)
		if err != nil {
			return nil, err
		}
		for _, k := range values.Keys() {
			// 带 _as_string 后缀的是格式化后的值
			percent, err := strconv.ParseFloat(k, 64)
			if err != nil {
				continue
			}
			v, err := values.Float64(k)
			if err != nil {
				return nil, err
			}
			r.Values = append(r.Values, Percentile{Percent: percent, Value: v})
		}
	case "array":
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.Wrapf(ErrMalformedResponseShape, "decode values: %v", err)
		}
		for _, item := range items {
			o, err := ParseObject(item)
			if err != nil {
				return nil, err
			}
			key, err := o.Float64("key")
			if err != nil {
				return nil, err
			}
			if key == nil {
				return nil, errors.Wrap(ErrMalformedResponseShape, "percentile without key")
			}
			v, err := o.Float64("value")
			if err != nil {
				return nil, err
			}
			r.Values = append(r.Values, Percentile{Percent: *key, Value: v})
		}
	default:
		return nil, errors.Wrapf(ErrMalformedResponseShape, "values must be object or array, got %s", kindOf(raw))
	}
	return r, nil
}

func decodeTopHits(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	raw, ok := obj.Get("hits")
	if !ok {
		return nil, errors.Wrap(ErrMalformedResponseShape, "missing hits")
	}
	hits, err := decodeHits(raw)
	if err != nil {
		return nil, err
	}
	return &TopHitsResult{
		header:        h,
		Total:         hits.Total,
		TotalRelation: hits.TotalRelation,
		MaxScore:      hits.MaxScore,
		Hits:          hits.Hits,
	}, nil
}

func decodeValueResult(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	if !obj.Has("value") {
		return nil, errors.Wrap(ErrMalformedResponseShape, "missing value")
	}
	r := &ValueResult{header: h}
	var err error
	if r.Value, err = obj.Float64("value"); err != nil {
		return nil, err
	}
	if r.ValueAsString, err = obj.String("value_as_string"); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeSingleBucket(c *Converter, h header, obj *Object, hint Hint) (Result, error) {
	if !obj.Has("doc_count") {
		return nil, errors.Wrap(ErrMalformedResponseShape, "missing doc_count")
	}
	r := &SingleBucketResult{header: h}
	var err error
	if r.DocCount, err = obj.Int64("doc_count"); err != nil {
		return nil, err
	}
	if r.Aggregations, err = c.SubAggregations(obj, []string{"doc_count", "meta"}, hint); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeMeta(obj *Object) (map[string]any, error) {
	if !obj.IsObject("meta") {
		return nil, nil
	}
	v, err := obj.Value("meta")
	if err != nil {
		return nil, err
	}
	meta, _ := v.(map[string]any)
	return meta, nil
}
