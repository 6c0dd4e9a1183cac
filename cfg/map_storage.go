package cfg

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// MapStorage 解码后的配置树，实现了 ref.Convertable
// 转换为结构体时按 cfg tag、json tag、忽略大小写的字段名的顺序匹配键
type MapStorage struct {
	data any
}

func NewMapStorage(data any) *MapStorage {
	return &MapStorage{data: data}
}

func (ms *MapStorage) Data() any {
	return ms.data
}

// Sub 子配置，key 以点号分隔，数组下标写作 [0]，例如 "transport.options.addresses[0]"
func (ms *MapStorage) Sub(key string) *MapStorage {
	current := ms.data
	for _, k := range parseKey(key) {
		switch v := current.(type) {
		case map[string]any:
			current = v[k]
		case []any:
			i, err := strconv.Atoi(k)
			if err != nil || i < 0 || i >= len(v) {
				return NewMapStorage(nil)
			}
			current = v[i]
		default:
			return NewMapStorage(nil)
		}
	}
	return NewMapStorage(current)
}

func parseKey(key string) []string {
	return strings.FieldsFunc(key, func(r rune) bool {
		return r == '.' || r == '[' || r == ']'
	})
}

// ConvertTo 转换为 object 指向的结构，然后设置默认值并校验
func (ms *MapStorage) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer, got %T", object)
	}
	if err := convertValue(ms.data, rv.Elem(), ""); err != nil {
		return err
	}
	if err := SetDefaults(object); err != nil {
		return fmt.Errorf("set defaults: %w", err)
	}
	return Validate(object)
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

func convertValue(src any, dst reflect.Value, path string) error {
	if src == nil {
		return nil
	}
	if ms, ok := src.(*MapStorage); ok {
		return convertValue(ms.data, dst, path)
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem(), path)
	}

	sv := reflect.ValueOf(src)

	switch {
	case dst.Type() == durationType:
		return convertDuration(sv, dst, path)
	case dst.Type() == timeType:
		return convertTime(sv, dst, path)
	}

	switch dst.Kind() {
	case reflect.Interface:
		if dst.NumMethod() != 0 {
			break
		}
		// 嵌套的 options 保持为 MapStorage，由使用方按需要的类型转换
		if sv.Kind() == reflect.Map || sv.Kind() == reflect.Slice {
			dst.Set(reflect.ValueOf(NewMapStorage(src)))
			return nil
		}
		dst.Set(sv)
		return nil
	case reflect.Struct:
		m, ok := src.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", pathOrRoot(path), src)
		}
		return convertStruct(m, dst, path)
	case reflect.Map:
		m, ok := src.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", pathOrRoot(path), src)
		}
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		for k, v := range m {
			kv := reflect.New(dst.Type().Key()).Elem()
			if err := convertValue(k, kv, path); err != nil {
				return err
			}
			ev := reflect.New(dst.Type().Elem()).Elem()
			if err := convertValue(v, ev, join(path, k)); err != nil {
				return err
			}
			dst.SetMapIndex(kv, ev)
		}
		return nil
	case reflect.Slice:
		// 单个值视为只有一个元素的数组
		items := []any{src}
		if sv.Kind() == reflect.Slice || sv.Kind() == reflect.Array {
			items = make([]any, sv.Len())
			for i := range items {
				items[i] = sv.Index(i).Interface()
			}
		}
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := convertValue(item, out.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	case reflect.String:
		switch sv.Kind() {
		case reflect.Map, reflect.Slice, reflect.Struct:
			return fmt.Errorf("%s: expected scalar, got %T", pathOrRoot(path), src)
		case reflect.String:
			dst.SetString(sv.String())
		default:
			dst.SetString(fmt.Sprint(src))
		}
		return nil
	case reflect.Bool:
		switch v := src.(type) {
		case bool:
			dst.SetBool(v)
			return nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %v", pathOrRoot(path), err)
			}
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if s, ok := src.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("%s: %v", pathOrRoot(path), err)
			}
			sv = reflect.ValueOf(f)
		}
		if sv.CanConvert(dst.Type()) && sv.Kind() != reflect.String {
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}
	}

	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	if sv.CanConvert(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("%s: cannot convert %T to %v", pathOrRoot(path), src, dst.Type())
}

func convertStruct(m map[string]any, dst reflect.Value, path string) error {
	rt := dst.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Anonymous && sf.Tag.Get("cfg") == "" && indirect(sf.Type).Kind() == reflect.Struct {
			if err := convertValue(m, dst.Field(i), path); err != nil {
				return err
			}
			continue
		}

		name, ok := fieldName(sf)
		if !ok {
			continue
		}
		v, found := lookup(m, name, sf.Name)
		if !found {
			continue
		}
		if err := convertValue(v, dst.Field(i), join(path, name)); err != nil {
			return err
		}
	}
	return nil
}

// fieldName cfg tag 优先，其次 json tag，"-" 表示忽略
func fieldName(sf reflect.StructField) (string, bool) {
	for _, tag := range []string{"cfg", "json"} {
		if v, ok := sf.Tag.Lookup(tag); ok {
			name := strings.Split(v, ",")[0]
			if name == "-" {
				return "", false
			}
			if name != "" {
				return name, true
			}
		}
	}
	return sf.Name, true
}

func lookup(m map[string]any, name, goName string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) || strings.EqualFold(k, goName) {
			return v, true
		}
	}
	return nil, false
}

func convertDuration(sv reflect.Value, dst reflect.Value, path string) error {
	switch sv.Kind() {
	case reflect.String:
		d, err := time.ParseDuration(sv.String())
		if err != nil {
			return fmt.Errorf("%s: %v", pathOrRoot(path), err)
		}
		dst.SetInt(int64(d))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(sv.Int())
		return nil
	case reflect.Float32, reflect.Float64:
		// 浮点数视为秒，json 中的数字都是 float64
		dst.SetInt(int64(sv.Float() * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("%s: cannot convert %v to time.Duration", pathOrRoot(path), sv.Type())
}

func convertTime(sv reflect.Value, dst reflect.Value, path string) error {
	if t, ok := sv.Interface().(time.Time); ok {
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	if sv.Kind() != reflect.String {
		return fmt.Errorf("%s: cannot convert %v to time.Time", pathOrRoot(path), sv.Type())
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, sv.String()); err == nil {
			dst.Set(reflect.ValueOf(t))
			return nil
		}
	}
	return fmt.Errorf("%s: invalid time %q", pathOrRoot(path), sv.String())
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func pathOrRoot(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
