package ref

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeOptions 可插拔组件的类型描述，Namespace + Type 定位构造函数，Options 作为构造参数
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type" validate:"required"`
	Options   any    `cfg:"options"`
}

// Convertable 可以自我转换为目标结构的配置数据
// 构造函数需要的参数类型与传入的 options 不一致时，如果 options 实现了该接口，
// 会先创建目标类型的实例，再通过 ConvertTo 填充
type Convertable interface {
	ConvertTo(object any) error
}

type constructor struct {
	fn           reflect.Value
	paramType    reflect.Type // 无参构造函数为 nil
	returnsError bool
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func newConstructor(fn any) (*constructor, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", fn)
	}

	ft := fv.Type()
	if ft.NumIn() > 1 {
		return nil, fmt.Errorf("constructor must have 0 or 1 input parameters, got %d", ft.NumIn())
	}
	if ft.NumOut() != 1 && ft.NumOut() != 2 {
		return nil, fmt.Errorf("constructor must have 1 or 2 return values, got %d", ft.NumOut())
	}
	if ft.NumOut() == 2 && !ft.Out(1).Implements(errorType) {
		return nil, fmt.Errorf("second return value of constructor must be error")
	}

	c := &constructor{fn: fv, returnsError: ft.NumOut() == 2}
	if ft.NumIn() == 1 {
		c.paramType = ft.In(0)
	}
	return c, nil
}

// call 调用构造函数，options 为 nil 时传入参数类型的零值
func (c *constructor) call(options any) (any, error) {
	var args []reflect.Value
	if c.paramType != nil {
		arg, err := c.prepare(options)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	out := c.fn.Call(args)
	if c.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func (c *constructor) prepare(options any) (reflect.Value, error) {
	if options == nil {
		if c.paramType.Kind() == reflect.Ptr {
			return reflect.New(c.paramType.Elem()), nil
		}
		return reflect.Zero(c.paramType), nil
	}

	ov := reflect.ValueOf(options)
	if ov.Type().AssignableTo(c.paramType) {
		return ov, nil
	}

	convertable, ok := options.(Convertable)
	if !ok {
		return reflect.Value{}, fmt.Errorf("options type %T is not assignable to %v", options, c.paramType)
	}

	if c.paramType.Kind() == reflect.Ptr {
		target := reflect.New(c.paramType.Elem())
		if err := convertable.ConvertTo(target.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("failed to convert options to %v: %w", c.paramType, err)
		}
		return target, nil
	}

	target := reflect.New(c.paramType)
	if err := convertable.ConvertTo(target.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("failed to convert options to %v: %w", c.paramType, err)
	}
	return target.Elem(), nil
}

type registry struct {
	mu           sync.RWMutex
	constructors map[string]*constructor
	funcs        map[string]uintptr
}

var defaultRegistry = &registry{
	constructors: map[string]*constructor{},
	funcs:        map[string]uintptr{},
}

func key(namespace, typ string) string {
	return namespace + ":" + typ
}

// Register 注册构造函数，同一个 key 重复注册相同函数是幂等的，注册不同函数返回错误
func Register(namespace string, typ string, fn any) error {
	c, err := newConstructor(fn)
	if err != nil {
		return fmt.Errorf("register %s: %w", key(namespace, typ), err)
	}

	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	k := key(namespace, typ)
	ptr := c.fn.Pointer()
	if existing, ok := defaultRegistry.funcs[k]; ok {
		if existing == ptr {
			return nil
		}
		return fmt.Errorf("constructor for %s already registered with different function", k)
	}

	defaultRegistry.constructors[k] = c
	defaultRegistry.funcs[k] = ptr
	return nil
}

// MustRegister 注册失败时 panic，用于 init
func MustRegister(namespace string, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

// RegisterT 以 T 的包路径和类型名作为 namespace 和 type 注册
func RegisterT[T any](fn any) error {
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

// MustRegisterT 同 RegisterT，失败时 panic
func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

// New 通过 namespace 和 type 创建对象
func New(namespace string, typ string, options any) (any, error) {
	defaultRegistry.mu.RLock()
	c, ok := defaultRegistry.constructors[key(namespace, typ)]
	defaultRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("constructor not found for %s", key(namespace, typ))
	}
	return c.call(options)
}

// NewWithOptions 通过 TypeOptions 创建对象，namespace 为空时使用 defaultNamespace
func NewWithOptions(options *TypeOptions, defaultNamespace string) (any, error) {
	if options == nil {
		return nil, fmt.Errorf("type options cannot be nil")
	}
	namespace := options.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	return New(namespace, options.Type, options.Options)
}

// NewT 以 T 的包路径和类型名查找构造函数，并把结果断言为 T
func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return zero, err
	}

	obj, err := New(namespace, typ, options)
	if err != nil {
		return zero, err
	}

	result, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("created object %T is not of type %T", obj, zero)
	}
	return result, nil
}

func typeKey[T any]() (string, string, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.PkgPath() == "" || rt.Name() == "" {
		return "", "", fmt.Errorf("cannot determine package path or type name for %v", rt)
	}
	return rt.PkgPath(), rt.Name(), nil
}
