package response

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/hatlonely/esx/aggregation"
	"github.com/hatlonely/esx/log"
	"github.com/hatlonely/esx/log/logger"
)

// Hint 请求时的聚合树，*aggregation.Tree 实现了该接口
type Hint = aggregation.Hint

// Variant 一种聚合结果的识别和解析规则
type Variant interface {
	// Type 该规则解析出的聚合类型，请求提示中的类型与之相同时直接使用该规则
	Type() aggregation.AggregationType

	// Match 根据字段判断结果是否属于该类型
	Match(obj *Object) bool

	// Decode 解析结果，hint 为该聚合的子聚合提示，可能为 nil
	Decode(c *Converter, name string, obj *Object, hint Hint) (Result, error)
}

// ConverterOptions 聚合结果解析选项
type ConverterOptions struct {
	// Strict 为 true 时无法识别的结果返回 ErrUnknownVariant，否则返回 RawResult
	Strict bool `cfg:"strict"`

	Logger *logger.SLogOptions `cfg:"logger"`
}

// Converter 把响应中的聚合结果解析为具体的结果类型
//
// 解析顺序：
//  1. 请求提示中有该名称时，使用对应类型的规则；解析失败则记录日志并继续
//  2. 通过 Register 注册的规则，按注册顺序
//  3. 内置规则，按 DefaultVariants 的顺序，越具体的规则越靠前
//  4. 都不匹配时返回 RawResult，严格模式下返回 ErrUnknownVariant
type Converter struct {
	strict bool
	logger logger.Logger

	mu      sync.RWMutex
	custom  []Variant
	builtin []Variant
	byType  map[aggregation.AggregationType]Variant
}

func NewConverterWithOptions(options *ConverterOptions) (*Converter, error) {
	if options == nil {
		options = &ConverterOptions{}
	}

	l := log.Discard()
	if options.Logger != nil {
		var err error
		if l, err = log.NewLoggerWithOptions(options.Logger); err != nil {
			return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
		}
	}

	c := &Converter{
		strict:  options.Strict,
		logger:  l,
		builtin: DefaultVariants(),
		byType:  map[aggregation.AggregationType]Variant{},
	}
	for _, v := range c.builtin {
		if _, ok := c.byType[v.Type()]; !ok {
			c.byType[v.Type()] = v
		}
	}
	for _, typ := range []aggregation.AggregationType{
		aggregation.AggTypeAvg, aggregation.AggTypeSum, aggregation.AggTypeMin, aggregation.AggTypeMax,
		aggregation.AggTypeValueCount, aggregation.AggTypeCardinality,
	} {
		c.byType[typ] = valueVariant(typ)
	}
	for _, typ := range []aggregation.AggregationType{aggregation.AggTypeFilter, aggregation.AggTypeMissing, aggregation.AggTypeGlobal} {
		c.byType[typ] = singleBucketVariant(typ)
	}
	return c, nil
}

// NewConverter 默认选项的解析器
func NewConverter() *Converter {
	c, _ := NewConverterWithOptions(nil)
	return c
}

func (c *Converter) SetLogger(l logger.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Register 注册自定义规则，自定义规则先于内置规则匹配，并覆盖相同类型的内置规则
func (c *Converter) Register(v Variant) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byType := make(map[aggregation.AggregationType]Variant, len(c.byType)+1)
	for k, x := range c.byType {
		byType[k] = x
	}
	byType[v.Type()] = v
	c.byType = byType
	c.custom = append(c.custom[:len(c.custom):len(c.custom)], v)
}

// Convert 解析单个聚合结果
func (c *Converter) Convert(name string, raw json.RawMessage, hint Hint) (Result, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return nil, errors.WithMessagef(err, "aggregation %q", name)
	}
	return c.convert(name, obj, raw, hint)
}

func (c *Converter) convert(name string, obj *Object, raw json.RawMessage, hint Hint) (Result, error) {
	c.mu.RLock()
	custom, builtin, byType := c.custom, c.builtin, c.byType
	c.mu.RUnlock()

	var sub Hint
	if hint != nil {
		if typ, h, ok := hint.Lookup(name); ok {
			sub = h
			if v, ok := byType[typ]; ok {
				r, err := v.Decode(c, name, obj, sub)
				if err == nil {
					return r, nil
				}
				c.logger.Warn("decode aggregation with requested type failed, fallback to inference",
					"name", name, "type", typ, "error", err.Error())
			}
		}
	}

	for _, rules := range [][]Variant{custom, builtin} {
		for _, v := range rules {
			if !v.Match(obj) {
				continue
			}
			r, err := v.Decode(c, name, obj, sub)
			if err == nil {
				return r, nil
			}
			c.logger.Warn("decode aggregation failed", "name", name, "type", v.Type(), "error", err.Error())
		}
	}

	if c.strict {
		return nil, errors.Wrapf(ErrUnknownVariant, "aggregation %q with keys %v", name, obj.Keys())
	}
	c.logger.Debug("unknown aggregation shape, keep raw", "name", name, "keys", obj.Keys())
	h := header{name: name}
	h.Meta, _ = decodeMeta(obj)
	return &RawResult{header: h, Fields: obj, raw: raw}, nil
}

// ConvertAll 解析 aggregations 对象
func (c *Converter) ConvertAll(raw json.RawMessage, hint Hint) (*Aggregations, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return nil, errors.WithMessage(err, "aggregations")
	}
	return c.convertMembers(obj, nil, hint)
}

// SubAggregations 解析桶或单桶结果中的子聚合，skip 中的键和非对象的值被忽略
func (c *Converter) SubAggregations(obj *Object, skip []string, hint Hint) (*Aggregations, error) {
	return c.convertMembers(obj, skip, hint)
}

func (c *Converter) convertMembers(obj *Object, skip []string, hint Hint) (*Aggregations, error) {
	aggs := NewAggregations()
	for _, key := range obj.Keys() {
		if lo.Contains(skip, key) {
			continue
		}
		raw, _ := obj.Get(key)
		if skip != nil && kindOf(raw) != "object" {
			continue
		}
		sub, err := ParseObject(raw)
		if err != nil {
			return nil, errors.WithMessagef(err, "aggregation %q", key)
		}
		r, err := c.convert(key, sub, raw, hint)
		if err != nil {
			return nil, err
		}
		aggs.add(r)
	}
	return aggs, nil
}
