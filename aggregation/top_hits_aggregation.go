package aggregation

import (
	"github.com/hatlonely/esx/field"
)

// SortField 排序字段
type SortField struct {
	Field string         `cfg:"field" validate:"required"`
	Order OrderDirection `cfg:"order" validate:"omitempty,oneof=asc desc"`
}

func (s SortField) MarshalJSON() ([]byte, error) {
	order := s.Order
	if order == "" {
		order = OrderAsc
	}
	return NewProps().Set(s.Field, NewProps().Set("order", order)).MarshalJSON()
}

// SourceFilter _source 字段过滤
type SourceFilter struct {
	Includes []string `json:"includes,omitempty" cfg:"includes"`
	Excludes []string `json:"excludes,omitempty" cfg:"excludes"`
}

// TopHitsOptions top_hits 聚合的声明式配置
type TopHitsOptions struct {
	Size   *int          `cfg:"size" validate:"omitempty,gte=0"`
	From   *int          `cfg:"from" validate:"omitempty,gte=0"`
	Sort   []SortField   `cfg:"sort" validate:"dive"`
	Source *SourceFilter `cfg:"source"`
}

// TopHitsAggregation 返回每个桶中匹配度最高的文档
type TopHitsAggregation[T any] struct {
	base
}

func NewTopHits[T any](name string) *TopHitsAggregation[T] {
	return &TopHitsAggregation[T]{base: newBase(name, AggTypeTopHits)}
}

func NewTopHitsWithOptions[T any](name string, options *TopHitsOptions) (*TopHitsAggregation[T], error) {
	a := NewTopHits[T](name)
	if options == nil {
		return a, nil
	}
	if err := validateOptions(AggTypeTopHits, name, options); err != nil {
		return nil, err
	}

	if options.Size != nil {
		a.Size(*options.Size)
	}
	if options.From != nil {
		a.From(*options.From)
	}
	for _, s := range options.Sort {
		a.addSort(s)
	}
	if options.Source != nil {
		a.SourceIncludes(options.Source.Includes...)
		a.SourceExcludes(options.Source.Excludes...)
	}
	return a, a.Err()
}

func (a *TopHitsAggregation[T]) Options() *TopHitsOptions {
	p := a.props
	o := &TopHitsOptions{
		Size: ptrOf[int](p, "size"),
		From: ptrOf[int](p, "from"),
	}
	if sort, ok := getAs[[]SortField](p, "sort"); ok {
		o.Sort = append([]SortField{}, sort...)
	}
	if src, ok := getAs[*SourceFilter](p, "_source"); ok {
		c := *src
		o.Source = &c
	}
	return o
}

func (a *TopHitsAggregation[T]) Size(size int) *TopHitsAggregation[T] {
	a.setNonNegative("size", size)
	return a
}

func (a *TopHitsAggregation[T]) From(from int) *TopHitsAggregation[T] {
	a.setNonNegative("from", from)
	return a
}

// Sort 追加排序字段
func (a *TopHitsAggregation[T]) Sort(path string, desc bool) *TopHitsAggregation[T] {
	order := OrderAsc
	if desc {
		order = OrderDesc
	}
	return a.addSort(SortField{Field: path, Order: order})
}

// SortOf 使用模型成员访问追加排序字段
func (a *TopHitsAggregation[T]) SortOf(selector func(*T) any, desc bool) *TopHitsAggregation[T] {
	p, err := field.Of(selector)
	if err != nil {
		a.failf("top_hits %q: sort: %v", a.name, err)
		return a
	}
	return a.Sort(p.String(), desc)
}

func (a *TopHitsAggregation[T]) addSort(s SortField) *TopHitsAggregation[T] {
	if s.Field == "" {
		a.failf("top_hits %q: sort field cannot be empty", a.name)
		return a
	}
	prev, _ := getAs[[]SortField](a.props, "sort")
	a.props.Set("sort", append(append([]SortField{}, prev...), s))
	return a
}

// SourceIncludes 返回的文档只包含这些字段
func (a *TopHitsAggregation[T]) SourceIncludes(fields ...string) *TopHitsAggregation[T] {
	if len(fields) == 0 {
		return a
	}
	src := a.sourceFilter()
	src.Includes = append(src.Includes, fields...)
	a.props.Set("_source", src)
	return a
}

// SourceExcludes 返回的文档不包含这些字段
func (a *TopHitsAggregation[T]) SourceExcludes(fields ...string) *TopHitsAggregation[T] {
	if len(fields) == 0 {
		return a
	}
	src := a.sourceFilter()
	src.Excludes = append(src.Excludes, fields...)
	a.props.Set("_source", src)
	return a
}

func (a *TopHitsAggregation[T]) sourceFilter() *SourceFilter {
	src := &SourceFilter{}
	if prev, ok := getAs[*SourceFilter](a.props, "_source"); ok {
		src.Includes = append([]string(nil), prev.Includes...)
		src.Excludes = append([]string(nil), prev.Excludes...)
	}
	return src
}

func (a *TopHitsAggregation[T]) Meta(meta map[string]any) *TopHitsAggregation[T] {
	a.setMeta(meta)
	return a
}
