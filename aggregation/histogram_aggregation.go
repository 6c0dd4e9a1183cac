package aggregation

import (
	"github.com/hatlonely/esx/field"
)

// Bounds 直方图的 extended_bounds，nil 表示不限
type Bounds struct {
	Min any `cfg:"min"`
	Max any `cfg:"max"`
}

func (b Bounds) MarshalJSON() ([]byte, error) {
	return NewProps().Set("min", b.Min).Set("max", b.Max).MarshalJSON()
}

// HistogramOptions histogram 聚合的声明式配置
type HistogramOptions struct {
	Field          *string     `cfg:"field"`
	Script         *string     `cfg:"script"`
	Interval       *float64    `cfg:"interval" validate:"omitempty,gt=0"`
	MinDocCount    *int        `cfg:"minDocCount" validate:"omitempty,gte=0"`
	Order          []OrderItem `cfg:"order" validate:"dive"`
	ExtendedBounds *Bounds     `cfg:"extendedBounds"`
	Offset         *float64    `cfg:"offset"`
	Keyed          *bool       `cfg:"keyed"`
	Missing        any         `cfg:"missing"`
}

// HistogramAggregation 数值直方图聚合，按固定间隔分桶
type HistogramAggregation[T any] struct {
	base
}

func NewHistogram[T any](name string) *HistogramAggregation[T] {
	return &HistogramAggregation[T]{base: newBase(name, AggTypeHistogram)}
}

func NewHistogramWithOptions[T any](name string, options *HistogramOptions) (*HistogramAggregation[T], error) {
	a := NewHistogram[T](name)
	if options == nil {
		return a, nil
	}
	if err := validateOptions(AggTypeHistogram, name, options); err != nil {
		return nil, err
	}

	if options.Field != nil {
		a.Field(*options.Field)
	}
	if options.Script != nil {
		a.Script(*options.Script)
	}
	if options.Interval != nil {
		a.Interval(*options.Interval)
	}
	if options.MinDocCount != nil {
		a.MinDocCount(*options.MinDocCount)
	}
	if options.Order != nil {
		a.Order(NewOrder(options.Order...))
	}
	if options.ExtendedBounds != nil {
		a.ExtendedBounds(options.ExtendedBounds.Min, options.ExtendedBounds.Max)
	}
	if options.Offset != nil {
		a.Offset(*options.Offset)
	}
	if options.Keyed != nil {
		a.Keyed(*options.Keyed)
	}
	if options.Missing != nil {
		a.Missing(options.Missing)
	}
	return a, a.Err()
}

func (a *HistogramAggregation[T]) Options() *HistogramOptions {
	p := a.props
	o := &HistogramOptions{
		Field:          stringOf(p, "field"),
		Script:         stringOf(p, "script"),
		Interval:       ptrOf[float64](p, "interval"),
		MinDocCount:    ptrOf[int](p, "min_doc_count"),
		ExtendedBounds: ptrOf[Bounds](p, "extended_bounds"),
		Offset:         ptrOf[float64](p, "offset"),
		Keyed:          ptrOf[bool](p, "keyed"),
	}
	o.Missing, _ = p.Get("missing")
	if order, ok := getAs[*Order](p, "order"); ok {
		o.Order = order.Items()
	}
	return o
}

func (a *HistogramAggregation[T]) Field(name string) *HistogramAggregation[T] {
	a.setField(field.New(name))
	return a
}

func (a *HistogramAggregation[T]) FieldOf(selector func(*T) any) *HistogramAggregation[T] {
	resolveField(&a.base, selector)
	return a
}

func (a *HistogramAggregation[T]) Script(script string) *HistogramAggregation[T] {
	a.props.Set("script", script)
	return a
}

// Interval 桶宽度，必须大于 0
func (a *HistogramAggregation[T]) Interval(interval float64) *HistogramAggregation[T] {
	if interval <= 0 {
		a.failf("histogram %q: interval must be positive, got %v", a.name, interval)
		return a
	}
	a.props.Set("interval", interval)
	return a
}

func (a *HistogramAggregation[T]) MinDocCount(count int) *HistogramAggregation[T] {
	a.setNonNegative("min_doc_count", count)
	return a
}

func (a *HistogramAggregation[T]) Order(order *Order) *HistogramAggregation[T] {
	setOrder(&a.base, order)
	return a
}

func (a *HistogramAggregation[T]) ExtendedBounds(min, max any) *HistogramAggregation[T] {
	a.props.Set("extended_bounds", Bounds{Min: min, Max: max})
	return a
}

func (a *HistogramAggregation[T]) Offset(offset float64) *HistogramAggregation[T] {
	a.props.Set("offset", offset)
	return a
}

// Keyed 为 true 时响应中的 buckets 是以 key 为键的对象
func (a *HistogramAggregation[T]) Keyed(keyed bool) *HistogramAggregation[T] {
	a.props.Set("keyed", keyed)
	return a
}

func (a *HistogramAggregation[T]) Missing(value any) *HistogramAggregation[T] {
	a.props.Set("missing", value)
	return a
}

func (a *HistogramAggregation[T]) SubAggregation(aggs ...Aggregation) *HistogramAggregation[T] {
	a.addSubAggregations(aggs)
	return a
}

func (a *HistogramAggregation[T]) Meta(meta map[string]any) *HistogramAggregation[T] {
	a.setMeta(meta)
	return a
}

// DateHistogramOptions date_histogram 聚合的声明式配置
type DateHistogramOptions struct {
	Field            *string     `cfg:"field"`
	Script           *string     `cfg:"script"`
	Interval         *string     `cfg:"interval"`
	CalendarInterval *string     `cfg:"calendarInterval"`
	FixedInterval    *string     `cfg:"fixedInterval"`
	Format           *string     `cfg:"format"`
	TimeZone         *string     `cfg:"timeZone"`
	MinDocCount      *int        `cfg:"minDocCount" validate:"omitempty,gte=0"`
	Order            []OrderItem `cfg:"order" validate:"dive"`
	ExtendedBounds   *Bounds     `cfg:"extendedBounds"`
	Offset           *string     `cfg:"offset"`
	Keyed            *bool       `cfg:"keyed"`
	Missing          any         `cfg:"missing"`
}

// DateHistogramAggregation 日期直方图聚合
type DateHistogramAggregation[T any] struct {
	base
}

func NewDateHistogram[T any](name string) *DateHistogramAggregation[T] {
	return &DateHistogramAggregation[T]{base: newBase(name, AggTypeDateHisto)}
}

func NewDateHistogramWithOptions[T any](name string, options *DateHistogramOptions) (*DateHistogramAggregation[T], error) {
	a := NewDateHistogram[T](name)
	if options == nil {
		return a, nil
	}
	if err := validateOptions(AggTypeDateHisto, name, options); err != nil {
		return nil, err
	}

	if options.Field != nil {
		a.Field(*options.Field)
	}
	if options.Script != nil {
		a.Script(*options.Script)
	}
	if options.Interval != nil {
		a.Interval(*options.Interval)
	}
	if options.CalendarInterval != nil {
		a.CalendarInterval(*options.CalendarInterval)
	}
	if options.FixedInterval != nil {
		a.FixedInterval(*options.FixedInterval)
	}
	if options.Format != nil {
		a.Format(*options.Format)
	}
	if options.TimeZone != nil {
		a.TimeZone(*options.TimeZone)
	}
	if options.MinDocCount != nil {
		a.MinDocCount(*options.MinDocCount)
	}
	if options.Order != nil {
		a.Order(NewOrder(options.Order...))
	}
	if options.ExtendedBounds != nil {
		a.ExtendedBounds(options.ExtendedBounds.Min, options.ExtendedBounds.Max)
	}
	if options.Offset != nil {
		a.Offset(*options.Offset)
	}
	if options.Keyed != nil {
		a.Keyed(*options.Keyed)
	}
	if options.Missing != nil {
		a.Missing(options.Missing)
	}
	return a, a.Err()
}

func (a *DateHistogramAggregation[T]) Options() *DateHistogramOptions {
	p := a.props
	o := &DateHistogramOptions{
		Field:            stringOf(p, "field"),
		Script:           stringOf(p, "script"),
		Interval:         stringOf(p, "interval"),
		CalendarInterval: stringOf(p, "calendar_interval"),
		FixedInterval:    stringOf(p, "fixed_interval"),
		Format:           stringOf(p, "format"),
		TimeZone:         stringOf(p, "time_zone"),
		MinDocCount:      ptrOf[int](p, "min_doc_count"),
		ExtendedBounds:   ptrOf[Bounds](p, "extended_bounds"),
		Offset:           stringOf(p, "offset"),
		Keyed:            ptrOf[bool](p, "keyed"),
	}
	o.Missing, _ = p.Get("missing")
	if order, ok := getAs[*Order](p, "order"); ok {
		o.Order = order.Items()
	}
	return o
}

func (a *DateHistogramAggregation[T]) Field(name string) *DateHistogramAggregation[T] {
	a.setField(field.New(name))
	return a
}

func (a *DateHistogramAggregation[T]) FieldOf(selector func(*T) any) *DateHistogramAggregation[T] {
	resolveField(&a.base, selector)
	return a
}

func (a *DateHistogramAggregation[T]) Script(script string) *DateHistogramAggregation[T] {
	a.props.Set("script", script)
	return a
}

// Interval 旧版本引擎使用的 interval 参数，新版本使用 CalendarInterval 或 FixedInterval
func (a *DateHistogramAggregation[T]) Interval(interval string) *DateHistogramAggregation[T] {
	return a.setInterval("interval", interval)
}

// CalendarInterval 日历间隔，例如 1d, 1M, quarter
func (a *DateHistogramAggregation[T]) CalendarInterval(interval string) *DateHistogramAggregation[T] {
	return a.setInterval("calendar_interval", interval)
}

// FixedInterval 固定间隔，例如 30m, 12h
func (a *DateHistogramAggregation[T]) FixedInterval(interval string) *DateHistogramAggregation[T] {
	return a.setInterval("fixed_interval", interval)
}

func (a *DateHistogramAggregation[T]) setInterval(key, interval string) *DateHistogramAggregation[T] {
	if interval == "" {
		a.failf("date_histogram %q: %s cannot be empty", a.name, key)
		return a
	}
	a.props.Set(key, interval)
	return a
}

func (a *DateHistogramAggregation[T]) Format(format string) *DateHistogramAggregation[T] {
	a.props.Set("format", format)
	return a
}

func (a *DateHistogramAggregation[T]) TimeZone(tz string) *DateHistogramAggregation[T] {
	a.props.Set("time_zone", tz)
	return a
}

func (a *DateHistogramAggregation[T]) MinDocCount(count int) *DateHistogramAggregation[T] {
	a.setNonNegative("min_doc_count", count)
	return a
}

func (a *DateHistogramAggregation[T]) Order(order *Order) *DateHistogramAggregation[T] {
	setOrder(&a.base, order)
	return a
}

// ExtendedBounds min/max 可以是日期字符串或毫秒时间戳
func (a *DateHistogramAggregation[T]) ExtendedBounds(min, max any) *DateHistogramAggregation[T] {
	a.props.Set("extended_bounds", Bounds{Min: min, Max: max})
	return a
}

func (a *DateHistogramAggregation[T]) Offset(offset string) *DateHistogramAggregation[T] {
	a.props.Set("offset", offset)
	return a
}

func (a *DateHistogramAggregation[T]) Keyed(keyed bool) *DateHistogramAggregation[T] {
	a.props.Set("keyed", keyed)
	return a
}

func (a *DateHistogramAggregation[T]) Missing(value any) *DateHistogramAggregation[T] {
	a.props.Set("missing", value)
	return a
}

func (a *DateHistogramAggregation[T]) SubAggregation(aggs ...Aggregation) *DateHistogramAggregation[T] {
	a.addSubAggregations(aggs)
	return a
}

func (a *DateHistogramAggregation[T]) Meta(meta map[string]any) *DateHistogramAggregation[T] {
	a.setMeta(meta)
	return a
}

func setOrder(b *base, order *Order) {
	if order == nil {
		b.props.Unset("order")
		return
	}
	b.props.Set("order", order.clone())
}
