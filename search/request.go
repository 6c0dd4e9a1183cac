package search

import (
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/hatlonely/esx/aggregation"
	"github.com/hatlonely/esx/query"
)

// ErrInvalidRequest 请求参数不合法
var ErrInvalidRequest = errors.New("invalid search request")

var validate = validator.New()

// Source 构建好的请求，Tree 在解析响应时作为类型提示
type Source struct {
	Body []byte
	Tree *aggregation.Tree
}

// RequestOptions 请求的声明式配置，查询和聚合需要通过代码设置
type RequestOptions struct {
	Size            *int                    `cfg:"size" validate:"omitempty,gte=0"`
	From            *int                    `cfg:"from" validate:"omitempty,gte=0"`
	Sort            []aggregation.SortField `cfg:"sort" validate:"dive"`
	Source          []string                `cfg:"source"`
	TrackTotalHits  *bool                   `cfg:"trackTotalHits"`
	AggregationsKey string                  `cfg:"aggregationsKey" validate:"omitempty,oneof=aggs aggregations"`
}

// Request 搜索请求，只有设置过的属性会出现在请求体中
type Request struct {
	query   query.Query
	aggs    []aggregation.Aggregation
	aggsKey string
	props   *aggregation.Props
	sort    []aggregation.SortField
	err     error
}

func NewRequest() *Request {
	return &Request{aggsKey: "aggs", props: aggregation.NewProps()}
}

func NewRequestWithOptions(options *RequestOptions) (*Request, error) {
	r := NewRequest()
	if options == nil {
		return r, nil
	}
	if err := validate.Struct(options); err != nil {
		return nil, errors.Wrapf(ErrInvalidRequest, "%v", err)
	}
	if options.Size != nil {
		r.Size(*options.Size)
	}
	if options.From != nil {
		r.From(*options.From)
	}
	for _, s := range options.Sort {
		r.Sort(s.Field, s.Order == aggregation.OrderDesc)
	}
	if options.Source != nil {
		r.Source(options.Source...)
	}
	if options.TrackTotalHits != nil {
		r.TrackTotalHits(*options.TrackTotalHits)
	}
	if options.AggregationsKey != "" {
		r.AggregationsKey(options.AggregationsKey)
	}
	return r, r.err
}

func (r *Request) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Request) Err() error {
	return r.err
}

func (r *Request) Query(q query.Query) *Request {
	r.query = q
	return r
}

// Aggregation 追加顶层聚合
func (r *Request) Aggregation(aggs ...aggregation.Aggregation) *Request {
	r.aggs = append(r.aggs, aggs...)
	return r
}

func (r *Request) Size(size int) *Request {
	if size < 0 {
		r.fail(errors.Wrapf(ErrInvalidRequest, "size must be non-negative, got %d", size))
		return r
	}
	r.props.Set("size", size)
	return r
}

func (r *Request) From(from int) *Request {
	if from < 0 {
		r.fail(errors.Wrapf(ErrInvalidRequest, "from must be non-negative, got %d", from))
		return r
	}
	r.props.Set("from", from)
	return r
}

func (r *Request) Sort(field string, desc bool) *Request {
	if field == "" {
		r.fail(errors.Wrap(ErrInvalidRequest, "sort field cannot be empty"))
		return r
	}
	order := aggregation.OrderAsc
	if desc {
		order = aggregation.OrderDesc
	}
	r.sort = append(r.sort, aggregation.SortField{Field: field, Order: order})
	return r
}

// Source 只返回指定的字段，不带参数时不返回 _source
func (r *Request) Source(includes ...string) *Request {
	if len(includes) == 0 {
		r.props.Set("_source", false)
		return r
	}
	r.props.Set("_source", append([]string(nil), includes...))
	return r
}

func (r *Request) TrackTotalHits(track bool) *Request {
	r.props.Set("track_total_hits", track)
	return r
}

// AggregationsKey 请求体中聚合的键名，aggs 或 aggregations
func (r *Request) AggregationsKey(key string) *Request {
	if key != "aggs" && key != "aggregations" {
		r.fail(errors.Wrapf(ErrInvalidRequest, "aggregations key must be aggs or aggregations, got %q", key))
		return r
	}
	r.aggsKey = key
	return r
}

// Build 校验并序列化请求
func (r *Request) Build() (*Source, error) {
	if r.err != nil {
		return nil, r.err
	}

	tree, err := aggregation.Freeze(r.aggs...)
	if err != nil {
		return nil, err
	}

	body := aggregation.NewProps()
	if r.query != nil {
		q, err := query.Source(r.query)
		if err != nil {
			return nil, err
		}
		body.Set("query", q)
	}
	for _, k := range r.props.Keys() {
		v, _ := r.props.Get(k)
		body.Set(k, v)
	}
	if len(r.sort) > 0 {
		body.Set("sort", r.sort)
	}
	if tree.Len() > 0 {
		body.Set(r.aggsKey, tree)
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal search body")
	}
	return &Source{Body: buf, Tree: tree}, nil
}
