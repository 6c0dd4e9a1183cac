package query

import (
	"github.com/hatlonely/esx/field"
)

// MatchQuery 全文搜索查询
type MatchQuery struct {
	Field field.Path
	Value any
}

func Match(path field.Path, value any) *MatchQuery {
	return &MatchQuery{Field: path, Value: value}
}

func (q *MatchQuery) Type() QueryType {
	return QueryTypeMatch
}

func (q *MatchQuery) ToES() map[string]any {
	return map[string]any{
		"match": map[string]any{
			q.Field.String(): q.Value,
		},
	}
}

// MatchAllQuery 匹配所有文档
type MatchAllQuery struct{}

func MatchAll() *MatchAllQuery {
	return &MatchAllQuery{}
}

func (q *MatchAllQuery) Type() QueryType {
	return QueryTypeMatchAll
}

func (q *MatchAllQuery) ToES() map[string]any {
	return map[string]any{"match_all": map[string]any{}}
}
