package query

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// QueryType 查询类型
type QueryType string

const (
	QueryTypeBool     QueryType = "bool"
	QueryTypeTerm     QueryType = "term"
	QueryTypeTerms    QueryType = "terms"
	QueryTypeMatch    QueryType = "match"
	QueryTypeMatchAll QueryType = "match_all"
	QueryTypeRange    QueryType = "range"
	QueryTypeExists   QueryType = "exists"
	QueryTypeWildcard QueryType = "wildcard"
	QueryTypePrefix   QueryType = "prefix"
	QueryTypeRegexp   QueryType = "regexp"
)

// Query 查询节点接口
type Query interface {
	Type() QueryType
	ToES() map[string]any
}

// Source 序列化查询
func Source(q Query) (json.RawMessage, error) {
	if q == nil {
		return nil, errors.New("query is nil")
	}
	buf, err := json.Marshal(q.ToES())
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s query", q.Type())
	}
	return buf, nil
}

func toES(queries []Query) []any {
	out := make([]any, 0, len(queries))
	for _, q := range queries {
		if q != nil {
			out = append(out, q.ToES())
		}
	}
	return out
}
