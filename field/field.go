package field

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupportedExpressionShape selector 不是单纯的成员访问，无法映射为字段路径
var ErrUnsupportedExpressionShape = errors.New("unsupported expression shape")

// Separator 路径分隔符
const Separator = "."

// Path 字段在引擎中的路径，多级字段以点号连接，例如 "address.city"
// 两个 Path 当且仅当字符串相等时相等
type Path string

// New 使用字面量创建路径，原样保留
func New(path string) Path {
	return Path(path)
}

func (p Path) String() string {
	return string(p)
}

func (p Path) IsEmpty() bool {
	return p == ""
}

// Suffix 访问多字段（multi-field），例如 Path("name").Suffix("keyword") 得到 "name.keyword"
func (p Path) Suffix(suffix string) Path {
	return p.Child(suffix)
}

// Child 拼接子路径
func (p Path) Child(name string) Path {
	name = strings.Trim(name, Separator)
	if name == "" {
		return p
	}
	if p == "" {
		return Path(name)
	}
	return Path(string(p) + Separator + name)
}

// Segments 按分隔符拆分后的各级名称
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), Separator)
}

// Must 用于包级变量声明，解析失败时 panic
func Must(p Path, err error) Path {
	if err != nil {
		panic(err)
	}
	return p
}

// Of 使用默认解析器把 selector 解析为字段路径
//
//	p, err := field.Of(func(o *Order) any { return &o.Customer.Name })
func Of[T any](selector func(*T) any) (Path, error) {
	return ResolveWith(DefaultResolver(), selector)
}
