package aggregation

import (
	"github.com/hatlonely/esx/field"
)

// RangeItem 一个区间，From 包含，To 不包含，缺省表示不限
type RangeItem struct {
	Key  string   `json:"key,omitempty" cfg:"key"`
	From *float64 `json:"from,omitempty" cfg:"from"`
	To   *float64 `json:"to,omitempty" cfg:"to"`
}

// RangeOptions range 聚合的声明式配置
type RangeOptions struct {
	Field   *string     `cfg:"field"`
	Script  *string     `cfg:"script"`
	Ranges  []RangeItem `cfg:"ranges"`
	Keyed   *bool       `cfg:"keyed"`
	Missing any         `cfg:"missing"`
}

// RangeAggregation 数值区间聚合
type RangeAggregation[T any] struct {
	base
}

func NewRange[T any](name string) *RangeAggregation[T] {
	return &RangeAggregation[T]{base: newBase(name, AggTypeRange)}
}

func NewRangeWithOptions[T any](name string, options *RangeOptions) (*RangeAggregation[T], error) {
	a := NewRange[T](name)
	if options == nil {
		return a, nil
	}
	if err := validateOptions(AggTypeRange, name, options); err != nil {
		return nil, err
	}

	if options.Field != nil {
		a.Field(*options.Field)
	}
	if options.Script != nil {
		a.Script(*options.Script)
	}
	for _, r := range options.Ranges {
		a.addRange(r)
	}
	if options.Keyed != nil {
		a.Keyed(*options.Keyed)
	}
	if options.Missing != nil {
		a.Missing(options.Missing)
	}
	return a, a.Err()
}

func (a *RangeAggregation[T]) Options() *RangeOptions {
	p := a.props
	o := &RangeOptions{
		Field:  stringOf(p, "field"),
		Script: stringOf(p, "script"),
		Keyed:  ptrOf[bool](p, "keyed"),
	}
	o.Missing, _ = p.Get("missing")
	if ranges, ok := getAs[[]RangeItem](p, "ranges"); ok {
		o.Ranges = append([]RangeItem{}, ranges...)
	}
	return o
}

func (a *RangeAggregation[T]) Field(name string) *RangeAggregation[T] {
	a.setField(field.New(name))
	return a
}

func (a *RangeAggregation[T]) FieldOf(selector func(*T) any) *RangeAggregation[T] {
	resolveField(&a.base, selector)
	return a
}

func (a *RangeAggregation[T]) Script(script string) *RangeAggregation[T] {
	a.props.Set("script", script)
	return a
}

// AddRange 追加区间 [from, to)
func (a *RangeAggregation[T]) AddRange(from, to float64) *RangeAggregation[T] {
	return a.addRange(RangeItem{From: &from, To: &to})
}

// AddKeyedRange 追加带名称的区间
func (a *RangeAggregation[T]) AddKeyedRange(key string, from, to float64) *RangeAggregation[T] {
	return a.addRange(RangeItem{Key: key, From: &from, To: &to})
}

// AddUnboundedTo 追加区间 (-inf, to)
func (a *RangeAggregation[T]) AddUnboundedTo(to float64) *RangeAggregation[T] {
	return a.addRange(RangeItem{To: &to})
}

// AddUnboundedFrom 追加区间 [from, +inf)
func (a *RangeAggregation[T]) AddUnboundedFrom(from float64) *RangeAggregation[T] {
	return a.addRange(RangeItem{From: &from})
}

func (a *RangeAggregation[T]) addRange(r RangeItem) *RangeAggregation[T] {
	if r.From == nil && r.To == nil {
		a.failf("range %q: range must have from or to", a.name)
		return a
	}
	if r.From != nil && r.To != nil && *r.From > *r.To {
		a.failf("range %q: from %v is greater than to %v", a.name, *r.From, *r.To)
		return a
	}
	prev, _ := getAs[[]RangeItem](a.props, "ranges")
	ranges := make([]RangeItem, 0, len(prev)+1)
	a.props.Set("ranges", append(append(ranges, prev...), r))
	return a
}

func (a *RangeAggregation[T]) Keyed(keyed bool) *RangeAggregation[T] {
	a.props.Set("keyed", keyed)
	return a
}

func (a *RangeAggregation[T]) Missing(value any) *RangeAggregation[T] {
	a.props.Set("missing", value)
	return a
}

func (a *RangeAggregation[T]) SubAggregation(aggs ...Aggregation) *RangeAggregation[T] {
	a.addSubAggregations(aggs)
	return a
}

func (a *RangeAggregation[T]) Meta(meta map[string]any) *RangeAggregation[T] {
	a.setMeta(meta)
	return a
}
