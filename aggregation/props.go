package aggregation

import (
	"bytes"
	"reflect"

	"github.com/goccy/go-json"
)

// Prop 一个需要输出的属性
type Prop struct {
	Key   string
	Value any
}

// Props 按需输出的属性容器
// 只有显式 Set 过的属性才会被输出；值为 nil（空指针、nil map/slice）视为未设置，
// 非 nil 的空集合会输出为 [] 或 {}
// 输出顺序为属性第一次 Set 的顺序
type Props struct {
	keys   []string
	values map[string]any
}

func NewProps() *Props {
	return &Props{values: map[string]any{}}
}

// Set 记录属性，覆盖之前的值
func (p *Props) Set(key string, value any) *Props {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

func (p *Props) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has 属性被 Set 过，不论值是否为空
func (p *Props) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *Props) Unset(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

func (p *Props) Len() int {
	return len(p.keys)
}

func (p *Props) Keys() []string {
	return append([]string(nil), p.keys...)
}

func (p *Props) Clone() *Props {
	c := &Props{keys: append([]string(nil), p.keys...), values: make(map[string]any, len(p.values))}
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}

// Serialize 返回需要输出的属性
func (p *Props) Serialize() []Prop {
	out := make([]Prop, 0, len(p.keys))
	for _, k := range p.keys {
		v := p.values[k]
		if isAbsent(v) {
			continue
		}
		out = append(out, Prop{Key: k, Value: v})
	}
	return out
}

func (p *Props) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p.Serialize() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, prop.Key, prop.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// getAs 读取属性并断言类型
func getAs[V any](p *Props, key string) (V, bool) {
	var zero V
	raw, ok := p.values[key]
	if !ok || isAbsent(raw) {
		return zero, false
	}
	v, ok := raw.(V)
	return v, ok
}

// ptrOf 读取属性并返回指针，未设置时返回 nil
func ptrOf[V any](p *Props, key string) *V {
	v, ok := getAs[V](p, key)
	if !ok {
		return nil
	}
	return &v
}
