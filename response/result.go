package response

import (
	"github.com/goccy/go-json"

	"github.com/hatlonely/esx/aggregation"
)

// Result 单个聚合的解析结果
type Result interface {
	Name() string
	Type() aggregation.AggregationType
}

type header struct {
	name string
	typ  aggregation.AggregationType

	// Meta 请求时设置的元数据，引擎原样返回
	Meta map[string]any
}

func (h *header) Name() string {
	return h.name
}

func (h *header) Type() aggregation.AggregationType {
	return h.typ
}

// Bucket 桶
type Bucket struct {
	// Key 整数为 int64，其他数字为 float64，composite 聚合为 map[string]any
	Key         any
	KeyAsString string
	DocCount    int64

	// 仅 range 聚合
	From         *float64
	To           *float64
	FromAsString string
	ToAsString   string

	Aggregations *Aggregations
}

// TermsResult terms 聚合结果
type TermsResult struct {
	header
	DocCountErrorUpperBound int64
	SumOtherDocCount        int64
	Buckets                 []*Bucket
}

// HistogramResult histogram 和 date_histogram 聚合结果
type HistogramResult struct {
	header
	Buckets []*Bucket
}

// RangeResult range 聚合结果
type RangeResult struct {
	header
	Buckets []*Bucket
}

// CompositeResult composite 聚合结果，AfterKey 用于请求下一页
type CompositeResult struct {
	header
	AfterKey map[string]any
	Buckets  []*Bucket
}

// SingleBucketResult filter, missing, global 等单桶聚合结果
type SingleBucketResult struct {
	header
	DocCount     int64
	Aggregations *Aggregations
}

// ValueResult avg, sum, min, max, value_count, cardinality 等单值指标结果
// 没有文档参与计算时 Value 为 nil
type ValueResult struct {
	header
	Value         *float64
	ValueAsString string
}

// StatsResult stats 聚合结果
type StatsResult struct {
	header
	Count int64
	Min   *float64
	Max   *float64
	Avg   *float64
	Sum   float64
}

// ExtendedStatsResult extended_stats 聚合结果
type ExtendedStatsResult struct {
	StatsResult
	SumOfSquares       *float64
	Variance           *float64
	StdDeviation       *float64
	StdDeviationBounds map[string]*float64
}

// Percentile 一个百分位及其值
type Percentile struct {
	Percent float64
	Value   *float64
}

// PercentilesResult percentiles 聚合结果，按响应中的顺序排列
type PercentilesResult struct {
	header
	Values []Percentile
}

// Get 返回指定百分位的值
func (r *PercentilesResult) Get(percent float64) (*float64, bool) {
	for _, p := range r.Values {
		if p.Percent == percent {
			return p.Value, true
		}
	}
	return nil, false
}

// Hit 命中的文档
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  *float64        `json:"_score"`
	Source json.RawMessage `json:"_source"`
	Sort   []any           `json:"sort"`
}

// Decode 把 _source 解析到 out
func (h *Hit) Decode(out any) error {
	if len(h.Source) == 0 {
		return nil
	}
	return json.Unmarshal(h.Source, out)
}

// TopHitsResult top_hits 聚合结果
type TopHitsResult struct {
	header
	Total         int64
	TotalRelation string
	MaxScore      *float64
	Hits          []*Hit
}

// RawResult 无法识别的聚合结果，保留所有原始字段和字节
type RawResult struct {
	header
	Fields *Object
	raw    json.RawMessage
}

// Raw 原始字节
func (r *RawResult) Raw() json.RawMessage {
	return r.raw
}

func (r *RawResult) MarshalJSON() ([]byte, error) {
	return r.raw, nil
}

// Aggregations 同一层级的聚合结果，按响应中的顺序排列
type Aggregations struct {
	names   []string
	results map[string]Result
}

func NewAggregations() *Aggregations {
	return &Aggregations{results: map[string]Result{}}
}

func (a *Aggregations) add(r Result) {
	if _, ok := a.results[r.Name()]; !ok {
		a.names = append(a.names, r.Name())
	}
	a.results[r.Name()] = r
}

func (a *Aggregations) Names() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.names...)
}

func (a *Aggregations) Len() int {
	if a == nil {
		return 0
	}
	return len(a.names)
}

func (a *Aggregations) Get(name string) (Result, bool) {
	if a == nil {
		return nil, false
	}
	r, ok := a.results[name]
	return r, ok
}

func (a *Aggregations) Terms(name string) (*TermsResult, bool) {
	return as[*TermsResult](a, name)
}

func (a *Aggregations) Histogram(name string) (*HistogramResult, bool) {
	return as[*HistogramResult](a, name)
}

func (a *Aggregations) Range(name string) (*RangeResult, bool) {
	return as[*RangeResult](a, name)
}

func (a *Aggregations) Composite(name string) (*CompositeResult, bool) {
	return as[*CompositeResult](a, name)
}

func (a *Aggregations) SingleBucket(name string) (*SingleBucketResult, bool) {
	return as[*SingleBucketResult](a, name)
}

func (a *Aggregations) Value(name string) (*ValueResult, bool) {
	return as[*ValueResult](a, name)
}

func (a *Aggregations) Stats(name string) (*StatsResult, bool) {
	if r, ok := as[*ExtendedStatsResult](a, name); ok {
		return &r.StatsResult, true
	}
	return as[*StatsResult](a, name)
}

func (a *Aggregations) ExtendedStats(name string) (*ExtendedStatsResult, bool) {
	return as[*ExtendedStatsResult](a, name)
}

func (a *Aggregations) Percentiles(name string) (*PercentilesResult, bool) {
	return as[*PercentilesResult](a, name)
}

func (a *Aggregations) TopHits(name string) (*TopHitsResult, bool) {
	return as[*TopHitsResult](a, name)
}

func (a *Aggregations) Raw(name string) (*RawResult, bool) {
	return as[*RawResult](a, name)
}

// GetValue 单值指标的值，不存在或为 null 时返回 0
func (a *Aggregations) GetValue(name string) float64 {
	if r, ok := a.Value(name); ok && r.Value != nil {
		return *r.Value
	}
	return 0
}

// GetCount 单桶聚合的文档数，不存在时返回 0
func (a *Aggregations) GetCount(name string) int64 {
	if r, ok := a.SingleBucket(name); ok {
		return r.DocCount
	}
	return 0
}

// GetBuckets 多桶聚合的桶列表
func (a *Aggregations) GetBuckets(name string) []*Bucket {
	r, ok := a.Get(name)
	if !ok {
		return nil
	}
	switch x := r.(type) {
	case *TermsResult:
		return x.Buckets
	case *HistogramResult:
		return x.Buckets
	case *RangeResult:
		return x.Buckets
	case *CompositeResult:
		return x.Buckets
	}
	return nil
}

func as[R Result](a *Aggregations, name string) (R, bool) {
	var zero R
	r, ok := a.Get(name)
	if !ok {
		return zero, false
	}
	x, ok := r.(R)
	return x, ok
}
