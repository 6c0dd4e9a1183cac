package response

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ShardsInfo 分片执行情况
type ShardsInfo struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Hits 命中结果
type Hits struct {
	Total int64

	// TotalRelation eq 表示精确值，gte 表示下限
	TotalRelation string
	MaxScore      *float64
	Hits          []*Hit
}

// SearchResponse 搜索响应
type SearchResponse struct {
	Took         int64
	TimedOut     bool
	Shards       ShardsInfo
	Hits         *Hits
	Aggregations *Aggregations
}

// ParseSearchResponse 解析搜索响应，hint 为请求的聚合树，converter 为 nil 时使用默认解析器
func ParseSearchResponse(body []byte, hint Hint, converter *Converter) (*SearchResponse, error) {
	if converter == nil {
		converter = NewConverter()
	}

	obj, err := ParseObject(body)
	if err != nil {
		return nil, errors.WithMessage(err, "search response")
	}

	res := &SearchResponse{Hits: &Hits{Hits: []*Hit{}}, Aggregations: NewAggregations()}
	if res.Took, err = obj.Int64("took"); err != nil {
		return nil, err
	}
	if err := obj.Decode("timed_out", &res.TimedOut); err != nil {
		return nil, err
	}
	if err := obj.Decode("_shards", &res.Shards); err != nil {
		return nil, err
	}
	if raw, ok := obj.Get("hits"); ok {
		if res.Hits, err = decodeHits(raw); err != nil {
			return nil, err
		}
	}

	raw, ok := obj.Get("aggregations")
	if !ok || kindOf(raw) == "null" {
		return res, nil
	}
	if res.Aggregations, err = converter.ConvertAll(raw, hint); err != nil {
		return nil, err
	}
	return res, nil
}

func decodeHits(raw json.RawMessage) (*Hits, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return nil, errors.WithMessage(err, "hits")
	}

	hits := &Hits{Hits: []*Hit{}}
	if total, ok := obj.Get("total"); ok {
		if hits.Total, hits.TotalRelation, err = decodeTotal(total); err != nil {
			return nil, err
		}
	}
	if hits.MaxScore, err = obj.Float64("max_score"); err != nil {
		return nil, err
	}
	if err := obj.Decode("hits", &hits.Hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// decodeTotal 兼容 6.x 的数字和 7.x 之后的 {"value": n, "relation": "eq"}
func decodeTotal(raw json.RawMessage) (int64, string, error) {
	switch kindOf(raw) {
	case "null":
		return 0, "", nil
	case "number":
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, "", errors.Wrapf(ErrMalformedResponseShape, "decode total: %v", err)
		}
		return n, "eq", nil
	case "object":
		obj, err := ParseObject(raw)
		if err != nil {
			return 0, "", err
		}
		n, err := obj.Int64("value")
		if err != nil {
			return 0, "", err
		}
		relation, err := obj.String("relation")
		if err != nil {
			return 0, "", err
		}
		return n, relation, nil
	}
	return 0, "", errors.Wrapf(ErrMalformedResponseShape, "total must be number or object, got %s", kindOf(raw))
}
