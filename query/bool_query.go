package query

// BoolQuery 布尔查询
type BoolQuery struct {
	Must           []Query
	Should         []Query
	MustNot        []Query
	Filter         []Query
	MinShouldMatch *int
}

// Bool 创建布尔查询，通过链式方法追加子句
func Bool() *BoolQuery {
	return &BoolQuery{}
}

func (q *BoolQuery) Type() QueryType {
	return QueryTypeBool
}

func (q *BoolQuery) AddMust(queries ...Query) *BoolQuery {
	q.Must = append(q.Must, queries...)
	return q
}

func (q *BoolQuery) AddShould(queries ...Query) *BoolQuery {
	q.Should = append(q.Should, queries...)
	return q
}

func (q *BoolQuery) AddMustNot(queries ...Query) *BoolQuery {
	q.MustNot = append(q.MustNot, queries...)
	return q
}

func (q *BoolQuery) AddFilter(queries ...Query) *BoolQuery {
	q.Filter = append(q.Filter, queries...)
	return q
}

func (q *BoolQuery) MinimumShouldMatch(n int) *BoolQuery {
	q.MinShouldMatch = &n
	return q
}

func (q *BoolQuery) ToES() map[string]any {
	boolQuery := make(map[string]any)

	if len(q.Must) > 0 {
		boolQuery["must"] = toES(q.Must)
	}
	if len(q.Should) > 0 {
		boolQuery["should"] = toES(q.Should)
	}
	if len(q.MustNot) > 0 {
		boolQuery["must_not"] = toES(q.MustNot)
	}
	if len(q.Filter) > 0 {
		boolQuery["filter"] = toES(q.Filter)
	}
	if q.MinShouldMatch != nil {
		boolQuery["minimum_should_match"] = *q.MinShouldMatch
	}

	return map[string]any{"bool": boolQuery}
}
