package aggregation

import (
	"github.com/pkg/errors"

	"github.com/hatlonely/esx/field"
	"github.com/hatlonely/esx/query"
)

// FilterAggregation 单桶聚合，只统计满足查询条件的文档
type FilterAggregation[T any] struct {
	base
	filter query.Query
}

func NewFilter[T any](name string, q query.Query) *FilterAggregation[T] {
	a := &FilterAggregation[T]{base: newBase(name, AggTypeFilter)}
	a.base.body = a.source
	return a.Filter(q)
}

// Filter 替换过滤条件
func (a *FilterAggregation[T]) Filter(q query.Query) *FilterAggregation[T] {
	if q == nil {
		a.failf("filter %q: query cannot be nil", a.name)
		return a
	}
	a.filter = q
	return a
}

// Query 当前的过滤条件
func (a *FilterAggregation[T]) Query() query.Query {
	return a.filter
}

func (a *FilterAggregation[T]) source() (any, error) {
	if a.filter == nil {
		return nil, errors.Wrapf(ErrInvalidAggregation, "filter %q: query is not set", a.name)
	}
	return a.filter.ToES(), nil
}

func (a *FilterAggregation[T]) SubAggregation(aggs ...Aggregation) *FilterAggregation[T] {
	a.addSubAggregations(aggs)
	return a
}

func (a *FilterAggregation[T]) Meta(meta map[string]any) *FilterAggregation[T] {
	a.setMeta(meta)
	return a
}

// MissingOptions missing 聚合的声明式配置
type MissingOptions struct {
	Field *string `cfg:"field" validate:"required"`
}

// MissingAggregation 单桶聚合，统计字段缺失的文档
type MissingAggregation[T any] struct {
	base
}

func NewMissing[T any](name string) *MissingAggregation[T] {
	return &MissingAggregation[T]{base: newBase(name, AggTypeMissing)}
}

func NewMissingWithOptions[T any](name string, options *MissingOptions) (*MissingAggregation[T], error) {
	a := NewMissing[T](name)
	if options == nil {
		return a, nil
	}
	if err := validateOptions(AggTypeMissing, name, options); err != nil {
		return nil, err
	}
	a.Field(*options.Field)
	return a, a.Err()
}

func (a *MissingAggregation[T]) Options() *MissingOptions {
	return &MissingOptions{Field: stringOf(a.props, "field")}
}

func (a *MissingAggregation[T]) Field(name string) *MissingAggregation[T] {
	a.setField(field.New(name))
	return a
}

func (a *MissingAggregation[T]) FieldOf(selector func(*T) any) *MissingAggregation[T] {
	resolveField(&a.base, selector)
	return a
}

func (a *MissingAggregation[T]) SubAggregation(aggs ...Aggregation) *MissingAggregation[T] {
	a.addSubAggregations(aggs)
	return a
}

func (a *MissingAggregation[T]) Meta(meta map[string]any) *MissingAggregation[T] {
	a.setMeta(meta)
	return a
}

// GlobalAggregation 单桶聚合，忽略查询条件统计索引中的所有文档，输出 {"global":{}}
type GlobalAggregation struct {
	base
}

func NewGlobal(name string) *GlobalAggregation {
	return &GlobalAggregation{base: newBase(name, AggTypeGlobal)}
}

func (a *GlobalAggregation) SubAggregation(aggs ...Aggregation) *GlobalAggregation {
	a.addSubAggregations(aggs)
	return a
}

func (a *GlobalAggregation) Meta(meta map[string]any) *GlobalAggregation {
	a.setMeta(meta)
	return a
}
