package response

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var (
	// ErrMalformedResponseShape 响应不是预期的 JSON 结构，例如聚合结果不是对象
	ErrMalformedResponseShape = errors.New("malformed response shape")

	// ErrUnknownVariant 严格模式下没有任何规则能识别聚合结果
	ErrUnknownVariant = errors.New("unknown aggregation variant")
)

// Object 保留键顺序的 JSON 对象，值为原始字节
type Object struct {
	keys   []string
	values map[string]json.RawMessage
}

// ParseObject 解析 JSON 对象，不是对象时返回 ErrMalformedResponseShape
func ParseObject(raw []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedResponseShape, "invalid json: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.Wrapf(ErrMalformedResponseShape, "expected object, got %s", kindOf(raw))
	}

	o := &Object{values: map[string]json.RawMessage{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedResponseShape, "invalid json: %v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedResponseShape, "expected object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, errors.Wrapf(ErrMalformedResponseShape, "invalid value of %q: %v", key, err)
		}
		if _, ok := o.values[key]; !ok {
			o.keys = append(o.keys, key)
		}
		o.values[key] = value
	}
	return o, nil
}

func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *Object) Len() int {
	return len(o.keys)
}

func (o *Object) Get(key string) (json.RawMessage, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// HasAll 所有键都存在
func (o *Object) HasAll(keys ...string) bool {
	for _, k := range keys {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

// HasAny 任意一个键存在
func (o *Object) HasAny(keys ...string) bool {
	for _, k := range keys {
		if o.Has(k) {
			return true
		}
	}
	return false
}

// IsObject 键存在且值是 JSON 对象
func (o *Object) IsObject(key string) bool {
	v, ok := o.values[key]
	return ok && kindOf(v) == "object"
}

// IsArray 键存在且值是 JSON 数组
func (o *Object) IsArray(key string) bool {
	v, ok := o.values[key]
	return ok && kindOf(v) == "array"
}

// IsNumber 键存在且值是 JSON 数字
func (o *Object) IsNumber(key string) bool {
	v, ok := o.values[key]
	return ok && kindOf(v) == "number"
}

// Decode 把键对应的值解析到 out，键不存在或值为 null 时不做任何修改
func (o *Object) Decode(key string, out any) error {
	v, ok := o.values[key]
	if !ok || kindOf(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, out); err != nil {
		return errors.Wrapf(ErrMalformedResponseShape, "decode %q: %v", key, err)
	}
	return nil
}

func (o *Object) Int64(key string) (int64, error) {
	var n json.Number
	if err := o.Decode(key, &n); err != nil || n == "" {
		return 0, err
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedResponseShape, "decode %q: %v", key, err)
	}
	return int64(f), nil
}

// Float64 null 或不存在时返回 nil
func (o *Object) Float64(key string) (*float64, error) {
	v, ok := o.values[key]
	if !ok {
		return nil, nil
	}
	return parseFloat(v)
}

func (o *Object) String(key string) (string, error) {
	var s string
	err := o.Decode(key, &s)
	return s, err
}

// Value 解析标量或复合值，整数为 int64，其他数字为 float64
func (o *Object) Value(key string) (any, error) {
	v, ok := o.values[key]
	if !ok {
		return nil, nil
	}
	return decodeValue(v)
}

// MarshalJSON 按原有的键顺序输出
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(o.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func parseFloat(raw json.RawMessage) (*float64, error) {
	switch kindOf(raw) {
	case "null":
		return nil, nil
	case "string":
		// 引擎对 NaN / Infinity 输出字符串
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(ErrMalformedResponseShape, "decode number: %v", err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedResponseShape, "decode number %q: %v", s, err)
		}
		return &f, nil
	case "number":
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, errors.Wrapf(ErrMalformedResponseShape, "decode number: %v", err)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedResponseShape, "decode number %q: %v", n, err)
		}
		return &f, nil
	}
	return nil, errors.Wrapf(ErrMalformedResponseShape, "expected number, got %s", kindOf(raw))
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponseShape, "decode value: %v", err)
	}
	return normalize(v), nil
}

// normalize 把 json.Number 转换为 int64 或 float64
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	}
	return v
}

func kindOf(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "empty"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	}
	return "number"
}
