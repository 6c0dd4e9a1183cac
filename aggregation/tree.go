package aggregation

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Node 冻结后的聚合节点
type Node struct {
	name   string
	typ    AggregationType
	source json.RawMessage
	sub    *Tree
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) Type() AggregationType {
	return n.typ
}

// Sub 子聚合树，没有子聚合时为空树
func (n *Node) Sub() *Tree {
	return n.sub
}

// Source 节点序列化后的 JSON
func (n *Node) Source() json.RawMessage {
	return n.source
}

// Tree 不可变的聚合树
// 同一层级内名称唯一，按声明顺序输出；解析响应时作为类型提示
type Tree struct {
	names []string
	nodes map[string]*Node
}

var emptyTree = &Tree{nodes: map[string]*Node{}}

// Hint 解析响应时的类型提示：某个名称下请求的是哪种聚合，以及它的子聚合提示
type Hint interface {
	Lookup(name string) (AggregationType, Hint, bool)
}

// Freeze 校验并序列化一组聚合，返回不可变的聚合树
func Freeze(aggs ...Aggregation) (*Tree, error) {
	t := &Tree{nodes: make(map[string]*Node, len(aggs))}
	for _, agg := range aggs {
		if agg == nil {
			return nil, errors.Wrap(ErrInvalidAggregation, "aggregation cannot be nil")
		}
		if agg.Name() == "" {
			return nil, errors.Wrapf(ErrInvalidAggregation, "%s aggregation has no name", agg.Type())
		}
		if _, ok := t.nodes[agg.Name()]; ok {
			return nil, errors.Wrapf(ErrInvalidAggregation, "duplicate aggregation name %q", agg.Name())
		}
		n, err := freezeNode(agg)
		if err != nil {
			return nil, err
		}
		t.names = append(t.names, agg.Name())
		t.nodes[agg.Name()] = n
	}
	return t, nil
}

// MustFreeze 用于包级变量声明，失败时 panic
func MustFreeze(aggs ...Aggregation) *Tree {
	t, err := Freeze(aggs...)
	if err != nil {
		panic(err)
	}
	return t
}

func freezeNode(agg Aggregation) (*Node, error) {
	if err := agg.Err(); err != nil {
		return nil, err
	}

	subs := agg.SubAggregations()
	if len(subs) > 0 && agg.Type().IsMetric() {
		return nil, errors.Wrapf(ErrInvalidAggregation, "%s %q: metric aggregation cannot have sub aggregations", agg.Type(), agg.Name())
	}
	sub, err := Freeze(subs...)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s %q", agg.Type(), agg.Name())
	}

	var body any = agg.Props()
	var meta map[string]any
	if b, ok := agg.(interface{ self() *base }); ok {
		if b.self().body != nil {
			if body, err = b.self().body(); err != nil {
				return nil, errors.WithMessagef(err, "%s %q", agg.Type(), agg.Name())
			}
		}
		meta = b.self().meta
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, string(agg.Type()), body); err != nil {
		return nil, errors.Wrapf(err, "marshal %s %q", agg.Type(), agg.Name())
	}
	if sub.Len() > 0 {
		buf.WriteString(`,"aggs":`)
		src, _ := sub.MarshalJSON()
		buf.Write(src)
	}
	if meta != nil {
		buf.WriteByte(',')
		if err := writeMember(&buf, "meta", meta); err != nil {
			return nil, errors.Wrapf(err, "marshal meta of %s %q", agg.Type(), agg.Name())
		}
	}
	buf.WriteByte('}')

	return &Node{name: agg.Name(), typ: agg.Type(), source: buf.Bytes(), sub: sub}, nil
}

func (b *base) self() *base {
	return b
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

func (t *Tree) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.names...)
}

func (t *Tree) Node(name string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.nodes[name]
	return n, ok
}

// Lookup 按名称查找请求时的聚合类型和子树
func (t *Tree) Lookup(name string) (AggregationType, Hint, bool) {
	n, ok := t.Node(name)
	if !ok {
		return "", emptyTree, false
	}
	return n.typ, n.sub, true
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(t.nodes[name].source)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
