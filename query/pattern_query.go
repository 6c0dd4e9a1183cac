package query

import (
	"github.com/hatlonely/esx/field"
)

// ExistsQuery 字段存在查询
type ExistsQuery struct {
	Field field.Path
}

func Exists(path field.Path) *ExistsQuery {
	return &ExistsQuery{Field: path}
}

func (q *ExistsQuery) Type() QueryType {
	return QueryTypeExists
}

func (q *ExistsQuery) ToES() map[string]any {
	return map[string]any{
		"exists": map[string]any{
			"field": q.Field.String(),
		},
	}
}

// PrefixQuery 前缀查询
type PrefixQuery struct {
	Field field.Path
	Value string
}

func Prefix(path field.Path, value string) *PrefixQuery {
	return &PrefixQuery{Field: path, Value: value}
}

func (q *PrefixQuery) Type() QueryType {
	return QueryTypePrefix
}

func (q *PrefixQuery) ToES() map[string]any {
	return map[string]any{
		"prefix": map[string]any{
			q.Field.String(): q.Value,
		},
	}
}

// WildcardQuery 通配符查询，* 匹配任意数量字符，? 匹配单个字符
type WildcardQuery struct {
	Field field.Path
	Value string
}

func Wildcard(path field.Path, value string) *WildcardQuery {
	return &WildcardQuery{Field: path, Value: value}
}

func (q *WildcardQuery) Type() QueryType {
	return QueryTypeWildcard
}

func (q *WildcardQuery) ToES() map[string]any {
	return map[string]any{
		"wildcard": map[string]any{
			q.Field.String(): q.Value,
		},
	}
}

// RegexpQuery 正则表达式查询
type RegexpQuery struct {
	Field field.Path
	Value string
}

func Regexp(path field.Path, value string) *RegexpQuery {
	return &RegexpQuery{Field: path, Value: value}
}

func (q *RegexpQuery) Type() QueryType {
	return QueryTypeRegexp
}

func (q *RegexpQuery) ToES() map[string]any {
	return map[string]any{
		"regexp": map[string]any{
			q.Field.String(): q.Value,
		},
	}
}
