package field

import (
	"reflect"
	"runtime"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ResolverOptions 字段路径解析选项
type ResolverOptions struct {
	// 未声明 tag 时字段名的推导方式：camel（首字母小写）, snake, verbatim
	NameStyle string `cfg:"nameStyle" def:"camel" validate:"omitempty,oneof=camel snake verbatim"`

	// 按顺序查找的 tag，第一个非空名称生效
	Tags []string `cfg:"tags" def:"es,json"`

	// 自引用类型的最大展开深度
	MaxDepth int `cfg:"maxDepth" def:"8" validate:"gte=0"`
}

// Resolver 把对领域模型成员的访问解析为引擎字段路径
type Resolver struct {
	tags     []string
	infer    func(string) string
	maxDepth int
}

func NewResolverWithOptions(options *ResolverOptions) (*Resolver, error) {
	if options == nil {
		options = &ResolverOptions{}
	}

	r := &Resolver{
		tags:     options.Tags,
		maxDepth: options.MaxDepth,
	}
	if r.tags == nil {
		r.tags = []string{"es", "json"}
	}
	if r.maxDepth <= 0 {
		r.maxDepth = 8
	}

	switch options.NameStyle {
	case "", "camel":
		r.infer = CamelCase
	case "snake":
		r.infer = SnakeCase
	case "verbatim":
		r.infer = func(s string) string { return s }
	default:
		return nil, errors.Errorf("unknown name style %q", options.NameStyle)
	}

	return r, nil
}

// NewResolver 使用默认选项创建解析器
func NewResolver() *Resolver {
	r, _ := NewResolverWithOptions(nil)
	return r
}

var defaultResolver atomic.Pointer[Resolver]

func init() {
	defaultResolver.Store(NewResolver())
}

// DefaultResolver 包级默认解析器，Of 和各聚合构建器的 FieldOf 使用它
func DefaultResolver() *Resolver {
	return defaultResolver.Load()
}

// SetDefaultResolver 替换默认解析器，nil 被忽略
func SetDefaultResolver(r *Resolver) {
	if r != nil {
		defaultResolver.Store(r)
	}
}

// Name 返回结构体字段的线上名称，第二个返回值为 false 表示字段被排除
func (r *Resolver) Name(sf reflect.StructField) (string, bool) {
	name, _, ok := r.wireName(sf)
	return name, ok
}

func (r *Resolver) wireName(sf reflect.StructField) (name string, explicit bool, ok bool) {
	for _, tag := range r.tags {
		value, found := sf.Tag.Lookup(tag)
		if !found {
			continue
		}
		if value == "-" {
			return "", false, false
		}
		if n := strings.Split(value, ",")[0]; n != "" {
			return n, true, true
		}
	}
	return r.infer(sf.Name), false, true
}

// ResolveWith 使用指定解析器解析 selector
//
// selector 必须返回从参数出发的成员地址（&u.Address.City）或指针成员本身（u.Manager），
// 切片和数组元素的下标不出现在路径中（&u.Items[0].Name 解析为 items.name）。
// 方法调用、运算结果、局部变量等无法映射到字段的返回值都会得到 ErrUnsupportedExpressionShape
func ResolveWith[T any](r *Resolver, selector func(*T) any) (path Path, err error) {
	if selector == nil {
		return "", errors.Wrap(ErrUnsupportedExpressionShape, "selector is nil")
	}

	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() != reflect.Struct {
		return "", errors.Wrapf(ErrUnsupportedExpressionShape, "%v is not a struct", rt)
	}

	root := reflect.New(rt)
	w := &walker{resolver: r, paths: map[member]string{}}
	w.walkStruct(root.Elem(), "", 0)

	defer func() {
		if rec := recover(); rec != nil {
			path = ""
			err = errors.Wrapf(ErrUnsupportedExpressionShape, "selector on %v panicked: %v", rt, rec)
		}
		runtime.KeepAlive(root)
	}()

	return w.lookup(rt, selector(root.Interface().(*T)))
}

type member struct {
	addr uintptr
	typ  reflect.Type
}

// walker 在一个零值实例上展开所有可达成员，记录 地址+类型 到路径的映射
type walker struct {
	resolver *Resolver
	paths    map[member]string
	stack    []reflect.Type
}

func (w *walker) lookup(root reflect.Type, out any) (Path, error) {
	v := reflect.ValueOf(out)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() {
		return "", errors.Wrapf(ErrUnsupportedExpressionShape,
			"selector on %v must return the address of a member, got %T", root, out)
	}

	// 零大小的成员可能共享地址，无法区分
	if v.Type().Elem().Size() == 0 {
		return "", errors.Wrapf(ErrUnsupportedExpressionShape,
			"selector on %v returned zero-size member %v", root, v.Type())
	}
	if p, ok := w.paths[member{addr: v.Pointer(), typ: v.Type().Elem()}]; ok {
		return Path(p), nil
	}
	return "", errors.Wrapf(ErrUnsupportedExpressionShape,
		"selector on %v returned %v which is not a member access", root, v.Type())
}

func (w *walker) record(v reflect.Value, path string) {
	if path == "" || !v.CanAddr() || v.Type().Size() == 0 {
		return
	}
	m := member{addr: v.UnsafeAddr(), typ: v.Type()}
	if _, ok := w.paths[m]; !ok {
		w.paths[m] = path
	}
}

func (w *walker) walkStruct(v reflect.Value, prefix string, depth int) {
	t := v.Type()
	w.stack = append(w.stack, t)
	defer func() { w.stack = w.stack[:len(w.stack)-1] }()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() && !sf.Anonymous {
			continue
		}

		name, explicit, ok := w.resolver.wireName(sf)
		if !ok {
			continue
		}
		fv := v.Field(i)

		// 匿名嵌入且没有显式命名的结构体，成员提升到当前层级
		if sf.Anonymous && !explicit {
			if base := indirectType(sf.Type); base.Kind() == reflect.Struct {
				w.walkValue(fv, prefix, depth, false)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		path := join(prefix, name)
		w.record(fv, path)
		w.walkValue(fv, path, depth+1, true)
	}
}

func (w *walker) walkValue(v reflect.Value, path string, depth int, recordElem bool) {
	if depth > w.resolver.maxDepth {
		return
	}

	switch v.Kind() {
	case reflect.Struct:
		w.walkStruct(v, path, depth)

	case reflect.Ptr:
		if v.IsNil() {
			if !v.CanSet() || w.onStack(v.Type().Elem()) {
				return
			}
			v.Set(reflect.New(v.Type().Elem()))
		}
		if recordElem {
			w.record(v.Elem(), path)
		}
		w.walkValue(v.Elem(), path, depth, recordElem)

	case reflect.Slice:
		if v.IsNil() {
			if !v.CanSet() || w.onStack(v.Type().Elem()) {
				return
			}
			v.Set(reflect.MakeSlice(v.Type(), 1, 1))
		}
		if v.Len() == 0 {
			return
		}
		elem := v.Index(0)
		if recordElem {
			w.record(elem, path)
		}
		w.walkValue(elem, path, depth, recordElem)

	case reflect.Array:
		if v.Len() == 0 {
			return
		}
		elem := v.Index(0)
		if recordElem {
			w.record(elem, path)
		}
		w.walkValue(elem, path, depth, recordElem)
	}
}

func (w *walker) onStack(t reflect.Type) bool {
	base := indirectType(t)
	for _, s := range w.stack {
		if s == base {
			return true
		}
	}
	return false
}

func indirectType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + Separator + name
}

// CamelCase 首字母小写，其余保持不变：Status -> status, UserID -> userID
func CamelCase(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

// SnakeCase 驼峰转下划线：UserID -> user_id, HTTPStatusCode -> http_status_code
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
