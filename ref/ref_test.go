package ref

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type widget struct {
	Name string
}

type widgetOptions struct {
	Name string
}

func newWidget(options *widgetOptions) (*widget, error) {
	if options.Name == "" {
		return nil, errors.New("name cannot be empty")
	}
	return &widget{Name: options.Name}, nil
}

func newDefaultWidget() *widget {
	return &widget{Name: "default"}
}

// mapOptions 模拟配置文件解析出的数据
type mapOptions map[string]string

func (m mapOptions) ConvertTo(object any) error {
	opts, ok := object.(*widgetOptions)
	if !ok {
		return errors.New("unexpected target")
	}
	opts.Name = m["name"]
	return nil
}

func TestRegisterAndNew(t *testing.T) {
	Convey("注册并创建对象", t, func() {
		So(Register("test/ref", "Widget", newWidget), ShouldBeNil)
		So(Register("test/ref", "DefaultWidget", newDefaultWidget), ShouldBeNil)

		Convey("相同函数重复注册是幂等的", func() {
			So(Register("test/ref", "Widget", newWidget), ShouldBeNil)
		})

		Convey("不同函数重复注册返回错误", func() {
			So(Register("test/ref", "Widget", newDefaultWidget), ShouldNotBeNil)
		})

		Convey("使用结构体参数创建", func() {
			obj, err := New("test/ref", "Widget", &widgetOptions{Name: "w1"})
			So(err, ShouldBeNil)
			So(obj.(*widget).Name, ShouldEqual, "w1")
		})

		Convey("构造函数返回的错误被透传", func() {
			_, err := New("test/ref", "Widget", &widgetOptions{})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "name cannot be empty")
		})

		Convey("Convertable 参数被转换为目标类型", func() {
			obj, err := New("test/ref", "Widget", mapOptions{"name": "from-map"})
			So(err, ShouldBeNil)
			So(obj.(*widget).Name, ShouldEqual, "from-map")
		})

		Convey("不可转换的参数返回错误", func() {
			_, err := New("test/ref", "Widget", 42)
			So(err, ShouldNotBeNil)
		})

		Convey("无参构造函数忽略 options", func() {
			obj, err := New("test/ref", "DefaultWidget", nil)
			So(err, ShouldBeNil)
			So(obj.(*widget).Name, ShouldEqual, "default")
		})

		Convey("未注册的类型返回错误", func() {
			_, err := New("test/ref", "Unknown", nil)
			So(err, ShouldNotBeNil)
		})

		Convey("TypeOptions 使用默认 namespace", func() {
			obj, err := NewWithOptions(&TypeOptions{Type: "DefaultWidget"}, "test/ref")
			So(err, ShouldBeNil)
			So(obj.(*widget).Name, ShouldEqual, "default")
		})
	})
}

func TestRegisterValidation(t *testing.T) {
	Convey("非法构造函数", t, func() {
		So(Register("test/ref", "NotFunc", 1), ShouldNotBeNil)
		So(Register("test/ref", "TooManyArgs", func(a, b int) int { return a + b }), ShouldNotBeNil)
		So(Register("test/ref", "BadReturn", func() (int, int) { return 1, 2 }), ShouldNotBeNil)
	})
}

func TestRegisterT(t *testing.T) {
	Convey("按类型注册和创建", t, func() {
		So(RegisterT[*widget](newWidget), ShouldBeNil)

		w, err := NewT[*widget](&widgetOptions{Name: "typed"})
		So(err, ShouldBeNil)
		So(w.Name, ShouldEqual, "typed")

		_, err = NewT[int](nil)
		So(err, ShouldNotBeNil)
	})
}
