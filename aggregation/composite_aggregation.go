package aggregation

import (
	"bytes"

	"github.com/hatlonely/esx/field"
)

// CompositeSource 复合聚合的值来源
// Type 为 terms, histogram 或 date_histogram；Interval 对 histogram 是数值，对 date_histogram 是日历间隔
type CompositeSource struct {
	Name          string          `cfg:"name" validate:"required"`
	Type          AggregationType `cfg:"type" def:"terms" validate:"omitempty,oneof=terms histogram date_histogram"`
	Field         string          `cfg:"field" validate:"required"`
	Interval      any             `cfg:"interval"`
	Order         OrderDirection  `cfg:"order" validate:"omitempty,oneof=asc desc"`
	MissingBucket *bool           `cfg:"missingBucket"`
}

// TermsSource 按词条取值的复合聚合源
func TermsSource(name, path string) CompositeSource {
	return CompositeSource{Name: name, Type: AggTypeTerms, Field: path}
}

// HistogramSource 按数值间隔取值的复合聚合源
func HistogramSource(name, path string, interval float64) CompositeSource {
	return CompositeSource{Name: name, Type: AggTypeHistogram, Field: path, Interval: interval}
}

// DateHistogramSource 按日历间隔取值的复合聚合源
func DateHistogramSource(name, path string, calendarInterval string) CompositeSource {
	return CompositeSource{Name: name, Type: AggTypeDateHisto, Field: path, Interval: calendarInterval}
}

func (s CompositeSource) MarshalJSON() ([]byte, error) {
	typ := s.Type
	if typ == "" {
		typ = AggTypeTerms
	}

	props := NewProps().Set("field", s.Field)
	switch typ {
	case AggTypeHistogram:
		props.Set("interval", s.Interval)
	case AggTypeDateHisto:
		props.Set("calendar_interval", s.Interval)
	}
	if s.Order != "" {
		props.Set("order", s.Order)
	}
	props.Set("missing_bucket", s.MissingBucket)

	inner := NewProps().Set(string(typ), props)
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, s.Name, inner); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CompositeOptions composite 聚合的声明式配置
type CompositeOptions struct {
	Sources []CompositeSource `cfg:"sources" validate:"dive"`
	Size    *int              `cfg:"size" validate:"omitempty,gte=0"`
	After   map[string]any    `cfg:"after"`
}

// CompositeAggregation 复合聚合，多个来源组合成桶，通过 After 分页遍历所有桶
type CompositeAggregation[T any] struct {
	base
}

func NewComposite[T any](name string) *CompositeAggregation[T] {
	return &CompositeAggregation[T]{base: newBase(name, AggTypeComposite)}
}

func NewCompositeWithOptions[T any](name string, options *CompositeOptions) (*CompositeAggregation[T], error) {
	a := NewComposite[T](name)
	if options == nil {
		return a, nil
	}
	if err := validateOptions(AggTypeComposite, name, options); err != nil {
		return nil, err
	}

	a.Sources(options.Sources...)
	if options.Size != nil {
		a.Size(*options.Size)
	}
	if options.After != nil {
		a.After(options.After)
	}
	return a, a.Err()
}

func (a *CompositeAggregation[T]) Options() *CompositeOptions {
	p := a.props
	o := &CompositeOptions{Size: ptrOf[int](p, "size")}
	o.After, _ = getAs[map[string]any](p, "after")
	if sources, ok := getAs[[]CompositeSource](p, "sources"); ok {
		o.Sources = append([]CompositeSource{}, sources...)
	}
	return o
}

// Sources 追加值来源，来源名称不能重复
func (a *CompositeAggregation[T]) Sources(sources ...CompositeSource) *CompositeAggregation[T] {
	prev, _ := getAs[[]CompositeSource](a.props, "sources")
	next := append([]CompositeSource{}, prev...)
	for _, s := range sources {
		if s.Name == "" || s.Field == "" {
			a.failf("composite %q: source must have name and field", a.name)
			return a
		}
		for _, p := range next {
			if p.Name == s.Name {
				a.failf("composite %q: duplicate source %q", a.name, s.Name)
				return a
			}
		}
		next = append(next, s)
	}
	a.props.Set("sources", next)
	return a
}

// TermsSourceOf 使用模型成员访问追加一个 terms 来源
func (a *CompositeAggregation[T]) TermsSourceOf(name string, selector func(*T) any) *CompositeAggregation[T] {
	p, err := field.Of(selector)
	if err != nil {
		a.failf("composite %q: source %q: %v", a.name, name, err)
		return a
	}
	return a.Sources(TermsSource(name, p.String()))
}

func (a *CompositeAggregation[T]) Size(size int) *CompositeAggregation[T] {
	a.setNonNegative("size", size)
	return a
}

// After 上一页响应中的 after_key
func (a *CompositeAggregation[T]) After(after map[string]any) *CompositeAggregation[T] {
	a.props.Set("after", after)
	return a
}

func (a *CompositeAggregation[T]) SubAggregation(aggs ...Aggregation) *CompositeAggregation[T] {
	a.addSubAggregations(aggs)
	return a
}

func (a *CompositeAggregation[T]) Meta(meta map[string]any) *CompositeAggregation[T] {
	a.setMeta(meta)
	return a
}
