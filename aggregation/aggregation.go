package aggregation

import (
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/hatlonely/esx/field"
)

// AggregationType 聚合类型，同时也是请求体中的类型键
type AggregationType string

const (
	AggTypeTerms         AggregationType = "terms"
	AggTypeHistogram     AggregationType = "histogram"
	AggTypeDateHisto     AggregationType = "date_histogram"
	AggTypeRange         AggregationType = "range"
	AggTypeComposite     AggregationType = "composite"
	AggTypeFilter        AggregationType = "filter"
	AggTypeMissing       AggregationType = "missing"
	AggTypeGlobal        AggregationType = "global"
	AggTypeAvg           AggregationType = "avg"
	AggTypeSum           AggregationType = "sum"
	AggTypeMin           AggregationType = "min"
	AggTypeMax           AggregationType = "max"
	AggTypeValueCount    AggregationType = "value_count"
	AggTypeCardinality   AggregationType = "cardinality"
	AggTypeStats         AggregationType = "stats"
	AggTypeExtendedStats AggregationType = "extended_stats"
	AggTypePercentiles   AggregationType = "percentiles"
	AggTypeTopHits       AggregationType = "top_hits"
)

// IsBucket 该类型的聚合可以包含子聚合
func (t AggregationType) IsBucket() bool {
	switch t {
	case AggTypeTerms, AggTypeHistogram, AggTypeDateHisto, AggTypeRange, AggTypeComposite,
		AggTypeFilter, AggTypeMissing, AggTypeGlobal:
		return true
	}
	return false
}

// IsMetric 内置的指标聚合类型
func (t AggregationType) IsMetric() bool {
	switch t {
	case AggTypeAvg, AggTypeSum, AggTypeMin, AggTypeMax, AggTypeValueCount, AggTypeCardinality,
		AggTypeStats, AggTypeExtendedStats, AggTypePercentiles, AggTypeTopHits:
		return true
	}
	return false
}

// ErrInvalidAggregation 构建器参数不合法
var ErrInvalidAggregation = errors.New("invalid aggregation")

// Aggregation 聚合接口
type Aggregation interface {
	Type() AggregationType
	Name() string

	// Props 本聚合显式设置的属性
	Props() *Props
	SubAggregations() []Aggregation

	// Err 构建过程中记录的第一个错误
	Err() error

	// ToES 序列化为 {"<type>": {...}, "aggs": {...}, "meta": {...}}
	ToES() (json.RawMessage, error)
}

var validate = validator.New()

// base 所有内置聚合共享的状态
type base struct {
	name  string
	typ   AggregationType
	props *Props
	subs  []Aggregation
	meta  map[string]any
	err   error

	// body 不为 nil 时替代 props 作为类型键的值，例如 filter 聚合直接输出查询
	body func() (any, error)
}

func newBase(name string, typ AggregationType) base {
	return base{name: name, typ: typ, props: NewProps()}
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Type() AggregationType {
	return b.typ
}

func (b *base) Props() *Props {
	return b.props
}

func (b *base) SubAggregations() []Aggregation {
	return append([]Aggregation(nil), b.subs...)
}

// Metadata 通过 Meta 设置的元数据
func (b *base) Metadata() map[string]any {
	return b.meta
}

func (b *base) Err() error {
	return b.err
}

func (b *base) ToES() (json.RawMessage, error) {
	n, err := freezeNode(b)
	if err != nil {
		return nil, err
	}
	return n.source, nil
}

func (b *base) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *base) failf(format string, args ...any) {
	b.fail(wrapInvalid(format, args...))
}

func wrapInvalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidAggregation, format, args...)
}

func (b *base) setField(p field.Path) {
	if p.IsEmpty() {
		b.failf("%s %q: field cannot be empty", b.typ, b.name)
		return
	}
	b.props.Set("field", p)
}

func (b *base) setNonNegative(key string, v int) {
	if v < 0 {
		b.failf("%s %q: %s must be non-negative, got %d", b.typ, b.name, key, v)
		return
	}
	b.props.Set(key, v)
}

func (b *base) addSubAggregations(aggs []Aggregation) {
	for _, agg := range aggs {
		if agg == nil {
			b.failf("%s %q: sub aggregation cannot be nil", b.typ, b.name)
			continue
		}
		b.subs = append(b.subs, agg)
	}
}

func (b *base) setMeta(meta map[string]any) {
	b.meta = meta
}

// resolveField 用默认解析器解析 selector 并设置 field 属性
func resolveField[T any](b *base, selector func(*T) any) {
	p, err := field.Of(selector)
	if err != nil {
		b.fail(errors.WithMessagef(fieldError{cause: err}, "%s %q", b.typ, b.name))
		return
	}
	b.setField(p)
}

// fieldError 字段解析失败，同时匹配 ErrInvalidAggregation 和解析器返回的错误
type fieldError struct {
	cause error
}

func (e fieldError) Error() string {
	return ErrInvalidAggregation.Error() + ": " + e.cause.Error()
}

func (e fieldError) Is(target error) bool {
	return target == ErrInvalidAggregation
}

func (e fieldError) Unwrap() error {
	return e.cause
}

func validateOptions(typ AggregationType, name string, options any) error {
	if err := validate.Struct(options); err != nil {
		return errors.Wrapf(ErrInvalidAggregation, "%s %q: %v", typ, name, err)
	}
	return nil
}

func stringOf(p *Props, key string) *string {
	if v, ok := getAs[field.Path](p, key); ok {
		s := v.String()
		return &s
	}
	return ptrOf[string](p, key)
}
