package aggregation

import (
	"github.com/samber/lo"

	"github.com/hatlonely/esx/field"
)

// TermsExecutionHint terms 聚合的执行方式
type TermsExecutionHint string

const (
	ExecutionHintMap                          TermsExecutionHint = "map"
	ExecutionHintGlobalOrdinals               TermsExecutionHint = "global_ordinals"
	ExecutionHintGlobalOrdinalsHash           TermsExecutionHint = "global_ordinals_hash"
	ExecutionHintGlobalOrdinalsLowCardinality TermsExecutionHint = "global_ordinals_low_cardinality"
)

// CollectMode 子聚合的计算顺序
type CollectMode string

const (
	CollectModeDepthFirst   CollectMode = "depth_first"
	CollectModeBreadthFirst CollectMode = "breadth_first"
)

// TermsOptions terms 聚合的声明式配置，与构建器写入相同的属性
type TermsOptions struct {
	Field         *string             `cfg:"field"`
	Script        *string             `cfg:"script"`
	Params        map[string]any      `cfg:"params"`
	Size          *int                `cfg:"size" validate:"omitempty,gte=0"`
	ShardSize     *int                `cfg:"shardSize" validate:"omitempty,gte=0"`
	MinDocCount   *int                `cfg:"minDocCount" validate:"omitempty,gte=0"`
	ExecutionHint *TermsExecutionHint `cfg:"executionHint" validate:"omitempty,oneof=map global_ordinals global_ordinals_hash global_ordinals_low_cardinality"`
	Order         []OrderItem         `cfg:"order" validate:"dive"`
	Include       *IncludeExclude     `cfg:"include"`
	Exclude       *IncludeExclude     `cfg:"exclude"`
	CollectMode   *CollectMode        `cfg:"collectMode" validate:"omitempty,oneof=depth_first breadth_first"`
	Missing       any                 `cfg:"missing"`
}

// TermsAggregation 词条聚合，按字段的每个唯一值分桶
// T 为领域模型类型，FieldOf 通过它解析字段路径
//
//	aggregation.NewTerms[Order]("by_status").
//		FieldOf(func(o *Order) any { return &o.Status }).
//		Size(5).
//		OrderDescending("_count")
type TermsAggregation[T any] struct {
	base
}

func NewTerms[T any](name string) *TermsAggregation[T] {
	return &TermsAggregation[T]{base: newBase(name, AggTypeTerms)}
}

func NewTermsWithOptions[T any](name string, options *TermsOptions) (*TermsAggregation[T], error) {
	a := NewTerms[T](name)
	if options == nil {
		return a, nil
	}
	if err := validateOptions(AggTypeTerms, name, options); err != nil {
		return nil, err
	}

	if options.Field != nil {
		a.Field(*options.Field)
	}
	if options.Script != nil {
		a.Script(*options.Script)
	}
	if options.Params != nil {
		a.Params(options.Params)
	}
	if options.Size != nil {
		a.Size(*options.Size)
	}
	if options.ShardSize != nil {
		a.ShardSize(*options.ShardSize)
	}
	if options.MinDocCount != nil {
		a.MinDocCount(*options.MinDocCount)
	}
	if options.ExecutionHint != nil {
		a.ExecutionHint(*options.ExecutionHint)
	}
	if options.Order != nil {
		a.Order(NewOrder(options.Order...))
	}
	if options.Include != nil {
		a.setIncludeExclude("include", options.Include)
	}
	if options.Exclude != nil {
		a.setIncludeExclude("exclude", options.Exclude)
	}
	if options.CollectMode != nil {
		a.CollectMode(*options.CollectMode)
	}
	if options.Missing != nil {
		a.Missing(options.Missing)
	}
	return a, a.Err()
}

// Options 读回声明式配置
func (a *TermsAggregation[T]) Options() *TermsOptions {
	p := a.props
	o := &TermsOptions{
		Field:         stringOf(p, "field"),
		Script:        stringOf(p, "script"),
		Size:          ptrOf[int](p, "size"),
		ShardSize:     ptrOf[int](p, "shard_size"),
		MinDocCount:   ptrOf[int](p, "min_doc_count"),
		ExecutionHint: ptrOf[TermsExecutionHint](p, "execution_hint"),
		CollectMode:   ptrOf[CollectMode](p, "collect_mode"),
	}
	o.Params, _ = getAs[map[string]any](p, "params")
	o.Missing, _ = p.Get("missing")
	if order, ok := getAs[*Order](p, "order"); ok {
		o.Order = order.Items()
	}
	if ie, ok := getAs[*IncludeExclude](p, "include"); ok {
		o.Include = ie.clone()
	}
	if ie, ok := getAs[*IncludeExclude](p, "exclude"); ok {
		o.Exclude = ie.clone()
	}
	return o
}

// Field 使用字面量字段路径
func (a *TermsAggregation[T]) Field(name string) *TermsAggregation[T] {
	a.setField(field.New(name))
	return a
}

// FieldOf 使用模型成员访问解析字段路径，例如 func(o *Order) any { return &o.Status }
func (a *TermsAggregation[T]) FieldOf(selector func(*T) any) *TermsAggregation[T] {
	resolveField(&a.base, selector)
	return a
}

// FieldPath 使用已解析的路径
func (a *TermsAggregation[T]) FieldPath(p field.Path) *TermsAggregation[T] {
	a.setField(p)
	return a
}

func (a *TermsAggregation[T]) Script(script string) *TermsAggregation[T] {
	a.props.Set("script", script)
	return a
}

// Params 替换脚本参数
func (a *TermsAggregation[T]) Params(params map[string]any) *TermsAggregation[T] {
	if params != nil {
		params = lo.Assign(params)
	}
	a.props.Set("params", params)
	return a
}

// Param 追加一个脚本参数
func (a *TermsAggregation[T]) Param(key string, value any) *TermsAggregation[T] {
	params, _ := getAs[map[string]any](a.props, "params")
	a.props.Set("params", lo.Assign(params, map[string]any{key: value}))
	return a
}

func (a *TermsAggregation[T]) Size(size int) *TermsAggregation[T] {
	a.setNonNegative("size", size)
	return a
}

func (a *TermsAggregation[T]) ShardSize(size int) *TermsAggregation[T] {
	a.setNonNegative("shard_size", size)
	return a
}

func (a *TermsAggregation[T]) MinDocCount(count int) *TermsAggregation[T] {
	a.setNonNegative("min_doc_count", count)
	return a
}

func (a *TermsAggregation[T]) ExecutionHint(hint TermsExecutionHint) *TermsAggregation[T] {
	switch hint {
	case ExecutionHintMap, ExecutionHintGlobalOrdinals, ExecutionHintGlobalOrdinalsHash, ExecutionHintGlobalOrdinalsLowCardinality:
		a.props.Set("execution_hint", hint)
	default:
		a.failf("terms %q: unknown execution hint %q", a.name, hint)
	}
	return a
}

// OrderAscending 按 key 升序，覆盖之前的排序；多个排序键使用 Order
func (a *TermsAggregation[T]) OrderAscending(key string) *TermsAggregation[T] {
	return a.setSingleOrder(OrderItem{Key: key, Direction: OrderAsc})
}

// OrderDescending 按 key 降序，覆盖之前的排序
func (a *TermsAggregation[T]) OrderDescending(key string) *TermsAggregation[T] {
	return a.setSingleOrder(OrderItem{Key: key, Direction: OrderDesc})
}

// Order 替换排序
func (a *TermsAggregation[T]) Order(order *Order) *TermsAggregation[T] {
	setOrder(&a.base, order)
	return a
}

func (a *TermsAggregation[T]) setSingleOrder(item OrderItem) *TermsAggregation[T] {
	if item.Key == "" {
		a.failf("terms %q: order key cannot be empty", a.name)
		return a
	}
	a.props.Set("order", NewOrder(item))
	return a
}

// Include 正则过滤，flags 为 Lucene 正则标志，例如 "CANON_EQ|CASE_INSENSITIVE"
func (a *TermsAggregation[T]) Include(pattern string, flags ...string) *TermsAggregation[T] {
	return a.setIncludeExclude("include", &IncludeExclude{Pattern: pattern, Flags: firstOrEmpty(flags)})
}

// IncludeValues 精确值过滤
func (a *TermsAggregation[T]) IncludeValues(values ...string) *TermsAggregation[T] {
	return a.setIncludeExclude("include", &IncludeExclude{Values: append([]string{}, values...)})
}

func (a *TermsAggregation[T]) Exclude(pattern string, flags ...string) *TermsAggregation[T] {
	return a.setIncludeExclude("exclude", &IncludeExclude{Pattern: pattern, Flags: firstOrEmpty(flags)})
}

func (a *TermsAggregation[T]) ExcludeValues(values ...string) *TermsAggregation[T] {
	return a.setIncludeExclude("exclude", &IncludeExclude{Values: append([]string{}, values...)})
}

func (a *TermsAggregation[T]) setIncludeExclude(key string, ie *IncludeExclude) *TermsAggregation[T] {
	if ie.isEmpty() {
		a.failf("terms %q: %s pattern cannot be empty", a.name, key)
		return a
	}
	a.props.Set(key, ie.clone())
	return a
}

func (a *TermsAggregation[T]) CollectMode(mode CollectMode) *TermsAggregation[T] {
	switch mode {
	case CollectModeDepthFirst, CollectModeBreadthFirst:
		a.props.Set("collect_mode", mode)
	default:
		a.failf("terms %q: unknown collect mode %q", a.name, mode)
	}
	return a
}

// Missing 字段缺失的文档归入该值对应的桶
func (a *TermsAggregation[T]) Missing(value any) *TermsAggregation[T] {
	a.props.Set("missing", value)
	return a
}

func (a *TermsAggregation[T]) SubAggregation(aggs ...Aggregation) *TermsAggregation[T] {
	a.addSubAggregations(aggs)
	return a
}

func (a *TermsAggregation[T]) Meta(meta map[string]any) *TermsAggregation[T] {
	a.setMeta(meta)
	return a
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
