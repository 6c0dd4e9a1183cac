package query

import (
	"github.com/hatlonely/esx/field"
)

// RangeQuery 范围查询
type RangeQuery struct {
	Field field.Path
	Gt    any
	Gte   any
	Lt    any
	Lte   any

	// Extra 额外参数，例如 format, time_zone
	Extra map[string]any
}

func Range(path field.Path) *RangeQuery {
	return &RangeQuery{Field: path}
}

func (q *RangeQuery) GreaterThan(v any) *RangeQuery {
	q.Gt = v
	return q
}

func (q *RangeQuery) GreaterThanOrEqual(v any) *RangeQuery {
	q.Gte = v
	return q
}

func (q *RangeQuery) LessThan(v any) *RangeQuery {
	q.Lt = v
	return q
}

func (q *RangeQuery) LessThanOrEqual(v any) *RangeQuery {
	q.Lte = v
	return q
}

func (q *RangeQuery) Type() QueryType {
	return QueryTypeRange
}

func (q *RangeQuery) ToES() map[string]any {
	rangeQuery := make(map[string]any)

	if q.Gt != nil {
		rangeQuery["gt"] = q.Gt
	}
	if q.Gte != nil {
		rangeQuery["gte"] = q.Gte
	}
	if q.Lt != nil {
		rangeQuery["lt"] = q.Lt
	}
	if q.Lte != nil {
		rangeQuery["lte"] = q.Lte
	}
	for k, v := range q.Extra {
		rangeQuery[k] = v
	}

	return map[string]any{
		"range": map[string]any{
			q.Field.String(): rangeQuery,
		},
	}
}
