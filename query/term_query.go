package query

import (
	"github.com/hatlonely/esx/field"
)

// TermQuery 精确匹配查询
type TermQuery struct {
	Field field.Path
	Value any
}

func Term(path field.Path, value any) *TermQuery {
	return &TermQuery{Field: path, Value: value}
}

func (q *TermQuery) Type() QueryType {
	return QueryTypeTerm
}

func (q *TermQuery) ToES() map[string]any {
	return map[string]any{
		"term": map[string]any{
			q.Field.String(): q.Value,
		},
	}
}

// TermsQuery 多值精确匹配查询
type TermsQuery struct {
	Field  field.Path
	Values []any
}

func Terms(path field.Path, values ...any) *TermsQuery {
	return &TermsQuery{Field: path, Values: values}
}

func (q *TermsQuery) Type() QueryType {
	return QueryTypeTerms
}

func (q *TermsQuery) ToES() map[string]any {
	values := q.Values
	if values == nil {
		values = []any{}
	}
	return map[string]any{
		"terms": map[string]any{
			q.Field.String(): values,
		},
	}
}
