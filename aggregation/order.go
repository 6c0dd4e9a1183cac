package aggregation

import (
	"bytes"

	"github.com/goccy/go-json"
)

// OrderDirection 排序方向
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// OrderItem 单个排序键，Key 可以是 _count, _key 或子聚合名称（多值指标用 agg.stat）
type OrderItem struct {
	Key       string         `cfg:"key" validate:"required"`
	Direction OrderDirection `cfg:"direction" validate:"omitempty,oneof=asc desc"`
}

// Order 有序的排序键列表
// 只有一个键时输出对象 {"_count":"desc"}，多个键时输出数组 [{"_count":"desc"},{"_key":"asc"}]
type Order struct {
	items []OrderItem
}

func NewOrder(items ...OrderItem) *Order {
	return &Order{items: append([]OrderItem(nil), items...)}
}

func (o *Order) Asc(key string) *Order {
	o.items = append(o.items, OrderItem{Key: key, Direction: OrderAsc})
	return o
}

func (o *Order) Desc(key string) *Order {
	o.items = append(o.items, OrderItem{Key: key, Direction: OrderDesc})
	return o
}

func (o *Order) Items() []OrderItem {
	return append([]OrderItem(nil), o.items...)
}

func (o *Order) Len() int {
	return len(o.items)
}

func (o *Order) clone() *Order {
	return NewOrder(o.items...)
}

func (o *Order) MarshalJSON() ([]byte, error) {
	if len(o.items) == 1 {
		return marshalOrderItem(o.items[0])
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range o.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalOrderItem(item)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalOrderItem(item OrderItem) ([]byte, error) {
	dir := item.Direction
	if dir == "" {
		dir = OrderAsc
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, item.Key, dir); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IncludeExclude terms 聚合的 include/exclude 过滤条件
// Values 非空时输出数组；否则输出正则 Pattern，带 Flags 时输出 {"pattern":..,"flags":..}
type IncludeExclude struct {
	Pattern string   `cfg:"pattern"`
	Flags   string   `cfg:"flags"`
	Values  []string `cfg:"values"`
}

func (ie *IncludeExclude) isEmpty() bool {
	return ie.Pattern == "" && ie.Values == nil
}

func (ie *IncludeExclude) clone() *IncludeExclude {
	c := *ie
	if c.Values != nil {
		c.Values = append([]string{}, c.Values...)
	}
	return &c
}

func (ie *IncludeExclude) MarshalJSON() ([]byte, error) {
	if ie.Values != nil {
		return json.Marshal(ie.Values)
	}
	if ie.Flags != "" {
		return json.Marshal(map[string]string{"pattern": ie.Pattern, "flags": ie.Flags})
	}
	return json.Marshal(ie.Pattern)
}
