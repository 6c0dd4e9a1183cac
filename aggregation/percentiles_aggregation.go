package aggregation

import (
	"github.com/hatlonely/esx/field"
)

// PercentilesOptions percentiles 聚合的声明式配置
type PercentilesOptions struct {
	Field    *string   `cfg:"field"`
	Script   *string   `cfg:"script"`
	Percents []float64 `cfg:"percents" validate:"dive,gte=0,lte=100"`
	Keyed    *bool     `cfg:"keyed"`
	Missing  any       `cfg:"missing"`
}

// PercentilesAggregation 百分位聚合
type PercentilesAggregation[T any] struct {
	base
}

func NewPercentiles[T any](name string) *PercentilesAggregation[T] {
	return &PercentilesAggregation[T]{base: newBase(name, AggTypePercentiles)}
}

func NewPercentilesWithOptions[T any](name string, options *PercentilesOptions) (*PercentilesAggregation[T], error) {
	a := NewPercentiles[T](name)
	if options == nil {
		return a, nil
	}
	if err := validateOptions(AggTypePercentiles, name, options); err != nil {
		return nil, err
	}

	if options.Field != nil {
		a.Field(*options.Field)
	}
	if options.Script != nil {
		a.Script(*options.Script)
	}
	if options.Percents != nil {
		a.Percents(options.Percents...)
	}
	if options.Keyed != nil {
		a.Keyed(*options.Keyed)
	}
	if options.Missing != nil {
		a.Missing(options.Missing)
	}
	return a, a.Err()
}

func (a *PercentilesAggregation[T]) Options() *PercentilesOptions {
	p := a.props
	o := &PercentilesOptions{
		Field:  stringOf(p, "field"),
		Script: stringOf(p, "script"),
		Keyed:  ptrOf[bool](p, "keyed"),
	}
	o.Missing, _ = p.Get("missing")
	if percents, ok := getAs[[]float64](p, "percents"); ok {
		o.Percents = append([]float64{}, percents...)
	}
	return o
}

func (a *PercentilesAggregation[T]) Field(name string) *PercentilesAggregation[T] {
	a.setField(field.New(name))
	return a
}

func (a *PercentilesAggregation[T]) FieldOf(selector func(*T) any) *PercentilesAggregation[T] {
	resolveField(&a.base, selector)
	return a
}

func (a *PercentilesAggregation[T]) Script(script string) *PercentilesAggregation[T] {
	a.props.Set("script", script)
	return a
}

// Percents 要计算的百分位，取值 [0, 100]
func (a *PercentilesAggregation[T]) Percents(percents ...float64) *PercentilesAggregation[T] {
	for _, p := range percents {
		if p < 0 || p > 100 {
			a.failf("percentiles %q: percent %v out of range [0, 100]", a.name, p)
			return a
		}
	}
	a.props.Set("percents", append([]float64{}, percents...))
	return a
}

// Keyed 为 false 时响应中的 values 是数组
func (a *PercentilesAggregation[T]) Keyed(keyed bool) *PercentilesAggregation[T] {
	a.props.Set("keyed", keyed)
	return a
}

func (a *PercentilesAggregation[T]) Missing(value any) *PercentilesAggregation[T] {
	a.props.Set("missing", value)
	return a
}

func (a *PercentilesAggregation[T]) Meta(meta map[string]any) *PercentilesAggregation[T] {
	a.setMeta(meta)
	return a
}
