package aggregation

import (
	"github.com/hatlonely/esx/field"
)

// MetricOptions 单值和统计类指标聚合的声明式配置
type MetricOptions struct {
	Field   *string `cfg:"field"`
	Script  *string `cfg:"script"`
	Missing any     `cfg:"missing"`
	Format  *string `cfg:"format"`

	// cardinality 专用
	PrecisionThreshold *int `cfg:"precisionThreshold" validate:"omitempty,gte=0"`

	// extended_stats 专用
	Sigma *float64 `cfg:"sigma" validate:"omitempty,gte=0"`
}

// MetricAggregation 指标聚合：avg, sum, min, max, value_count, cardinality, stats, extended_stats
// 指标聚合不能包含子聚合
type MetricAggregation[T any] struct {
	base
}

func newMetric[T any](name string, typ AggregationType) *MetricAggregation[T] {
	return &MetricAggregation[T]{base: newBase(name, typ)}
}

func NewAvg[T any](name string) *MetricAggregation[T] {
	return newMetric[T](name, AggTypeAvg)
}

func NewSum[T any](name string) *MetricAggregation[T] {
	return newMetric[T](name, AggTypeSum)
}

func NewMin[T any](name string) *MetricAggregation[T] {
	return newMetric[T](name, AggTypeMin)
}

func NewMax[T any](name string) *MetricAggregation[T] {
	return newMetric[T](name, AggTypeMax)
}

func NewValueCount[T any](name string) *MetricAggregation[T] {
	return newMetric[T](name, AggTypeValueCount)
}

func NewCardinality[T any](name string) *MetricAggregation[T] {
	return newMetric[T](name, AggTypeCardinality)
}

func NewStats[T any](name string) *MetricAggregation[T] {
	return newMetric[T](name, AggTypeStats)
}

func NewExtendedStats[T any](name string) *MetricAggregation[T] {
	return newMetric[T](name, AggTypeExtendedStats)
}

// NewMetricWithOptions typ 必须是 avg, sum, min, max, value_count, cardinality, stats, extended_stats 之一
func NewMetricWithOptions[T any](typ AggregationType, name string, options *MetricOptions) (*MetricAggregation[T], error) {
	switch typ {
	case AggTypeAvg, AggTypeSum, AggTypeMin, AggTypeMax, AggTypeValueCount,
		AggTypeCardinality, AggTypeStats, AggTypeExtendedStats:
	default:
		return nil, wrapInvalid("%s %q: not a metric aggregation", typ, name)
	}

	a := newMetric[T](name, typ)
	if options == nil {
		return a, nil
	}
	if err := validateOptions(typ, name, options); err != nil {
		return nil, err
	}

	if options.Field != nil {
		a.Field(*options.Field)
	}
	if options.Script != nil {
		a.Script(*options.Script)
	}
	if options.Missing != nil {
		a.Missing(options.Missing)
	}
	if options.Format != nil {
		a.Format(*options.Format)
	}
	if options.PrecisionThreshold != nil {
		a.PrecisionThreshold(*options.PrecisionThreshold)
	}
	if options.Sigma != nil {
		a.Sigma(*options.Sigma)
	}
	return a, a.Err()
}

func (a *MetricAggregation[T]) Options() *MetricOptions {
	p := a.props
	o := &MetricOptions{
		Field:              stringOf(p, "field"),
		Script:             stringOf(p, "script"),
		Format:             stringOf(p, "format"),
		PrecisionThreshold: ptrOf[int](p, "precision_threshold"),
		Sigma:              ptrOf[float64](p, "sigma"),
	}
	o.Missing, _ = p.Get("missing")
	return o
}

func (a *MetricAggregation[T]) Field(name string) *MetricAggregation[T] {
	a.setField(field.New(name))
	return a
}

func (a *MetricAggregation[T]) FieldOf(selector func(*T) any) *MetricAggregation[T] {
	resolveField(&a.base, selector)
	return a
}

func (a *MetricAggregation[T]) Script(script string) *MetricAggregation[T] {
	a.props.Set("script", script)
	return a
}

func (a *MetricAggregation[T]) Missing(value any) *MetricAggregation[T] {
	a.props.Set("missing", value)
	return a
}

func (a *MetricAggregation[T]) Format(format string) *MetricAggregation[T] {
	a.props.Set("format", format)
	return a
}

// PrecisionThreshold 仅 cardinality 可用
func (a *MetricAggregation[T]) PrecisionThreshold(threshold int) *MetricAggregation[T] {
	if a.typ != AggTypeCardinality {
		a.failf("%s %q: precision_threshold is only supported by cardinality", a.typ, a.name)
		return a
	}
	a.setNonNegative("precision_threshold", threshold)
	return a
}

// Sigma 仅 extended_stats 可用
func (a *MetricAggregation[T]) Sigma(sigma float64) *MetricAggregation[T] {
	if a.typ != AggTypeExtendedStats {
		a.failf("%s %q: sigma is only supported by extended_stats", a.typ, a.name)
		return a
	}
	if sigma < 0 {
		a.failf("%s %q: sigma must be non-negative, got %v", a.typ, a.name, sigma)
		return a
	}
	a.props.Set("sigma", sigma)
	return a
}

func (a *MetricAggregation[T]) Meta(meta map[string]any) *MetricAggregation[T] {
	a.setMeta(meta)
	return a
}
