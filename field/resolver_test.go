package field

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type testAddress struct {
	City    string
	ZipCode string `json:"zip"`
}

type testTag struct {
	Name  string
	Score float64 `es:"tag_score" json:"score"`
}

type testAudit struct {
	CreatedAt time.Time
	CreatedBy string
}

type testOrder struct {
	testAudit
	Status    string
	UserID    string
	Amount    float64       `json:"amount,omitempty"`
	Secret    string        `json:"-"`
	Address   testAddress
	Billing   *testAddress  `json:"billing_address"`
	Tags      []testTag
	Matrix    [2]testTag
	Labels    map[string]string
	Parent    *testOrder
	A         struct{ B string }
	unexposed string
}

func (o *testOrder) StatusPtr() *string {
	return &o.Status
}

func TestOf(t *testing.T) {
	Convey("解析成员访问为字段路径", t, func() {
		Convey("顶层字段使用首字母小写的名称", func() {
			p, err := Of(func(o *testOrder) any { return &o.Status })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("status"))

			p, err = Of(func(o *testOrder) any { return &o.UserID })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("userID"))
		})

		Convey("json tag 覆盖默认名称", func() {
			p, err := Of(func(o *testOrder) any { return &o.Amount })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("amount"))
		})

		Convey("嵌套结构体以点号连接", func() {
			p, err := Of(func(o *testOrder) any { return &o.Address.ZipCode })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("address.zip"))
		})

		Convey("字面量与成员访问解析出同一路径", func() {
			p, err := Of(func(o *testOrder) any { return &o.A.B })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, New("a.b"))
		})

		Convey("指针字段会被展开", func() {
			p, err := Of(func(o *testOrder) any { return &o.Billing.City })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("billing_address.city"))

			p, err = Of(func(o *testOrder) any { return o.Billing })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("billing_address"))
		})

		Convey("切片和数组下标被跳过", func() {
			p, err := Of(func(o *testOrder) any { return &o.Tags[0].Name })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("tags.name"))

			p, err = Of(func(o *testOrder) any { return &o.Matrix[0].Name })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("matrix.name"))

			p, err = Of(func(o *testOrder) any { return &o.Tags })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("tags"))
		})

		Convey("es tag 优先于 json tag", func() {
			p, err := Of(func(o *testOrder) any { return &o.Tags[0].Score })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("tags.tag_score"))
		})

		Convey("匿名嵌入结构体的字段提升到上一级", func() {
			p, err := Of(func(o *testOrder) any { return &o.CreatedBy })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("createdBy"))
		})

		Convey("map 字段本身可以解析", func() {
			p, err := Of(func(o *testOrder) any { return &o.Labels })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("labels"))
		})

		Convey("自引用类型的字段本身可以解析", func() {
			p, err := Of(func(o *testOrder) any { return &o.Parent })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("parent"))
		})
	})
}

func TestOfUnsupported(t *testing.T) {
	Convey("无法映射的表达式返回 ErrUnsupportedExpressionShape", t, func() {
		cases := map[string]func(o *testOrder) any{
			"返回值而不是地址":   func(o *testOrder) any { return o.Status },
			"返回 nil":      func(o *testOrder) any { return nil },
			"返回局部变量":     func(o *testOrder) any { v := o.Amount * 2; return &v },
			"返回根对象":      func(o *testOrder) any { return o },
			"被排除的字段":     func(o *testOrder) any { return &o.Secret },
			"未导出字段":      func(o *testOrder) any { return &o.unexposed },
			"访问自引用的下一层":  func(o *testOrder) any { return &o.Parent.Status },
			"map 元素不可寻址": func(o *testOrder) any { v := o.Labels["k"]; return &v },
		}
		for name, selector := range cases {
			Convey(name, func() {
				p, err := Of(selector)
				So(errors.Is(err, ErrUnsupportedExpressionShape), ShouldBeTrue)
				So(p, ShouldEqual, Path(""))
			})
		}

		Convey("方法调用的返回值指向成员时仍可解析", func() {
			p, err := Of(func(o *testOrder) any { return o.StatusPtr() })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("status"))
		})

		Convey("零大小的成员", func() {
			type markers struct {
				A struct{}
				B struct{}
				C int
			}
			p, err := Of(func(m *markers) any { return &m.B })
			So(errors.Is(err, ErrUnsupportedExpressionShape), ShouldBeTrue)
			So(p, ShouldEqual, Path(""))

			p, err = Of(func(m *markers) any { return &m.C })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("c"))
		})

		Convey("非结构体类型", func() {
			_, err := Of(func(s *string) any { return s })
			So(errors.Is(err, ErrUnsupportedExpressionShape), ShouldBeTrue)
		})

		Convey("nil selector", func() {
			_, err := Of[testOrder](nil)
			So(errors.Is(err, ErrUnsupportedExpressionShape), ShouldBeTrue)
		})
	})
}

func TestResolverOptions(t *testing.T) {
	Convey("解析器选项", t, func() {
		Convey("snake 风格", func() {
			r, err := NewResolverWithOptions(&ResolverOptions{NameStyle: "snake"})
			So(err, ShouldBeNil)
			p, err := ResolveWith(r, func(o *testOrder) any { return &o.UserID })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("user_id"))
		})

		Convey("verbatim 风格且只认 es tag", func() {
			r, err := NewResolverWithOptions(&ResolverOptions{NameStyle: "verbatim", Tags: []string{"es"}})
			So(err, ShouldBeNil)
			p, err := ResolveWith(r, func(o *testOrder) any { return &o.Address.ZipCode })
			So(err, ShouldBeNil)
			So(p, ShouldEqual, Path("Address.ZipCode"))
		})

		Convey("未知风格", func() {
			_, err := NewResolverWithOptions(&ResolverOptions{NameStyle: "kebab"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPath(t *testing.T) {
	Convey("Path 操作", t, func() {
		So(New("name").Suffix("keyword"), ShouldEqual, Path("name.keyword"))
		So(Path("").Child("name"), ShouldEqual, Path("name"))
		So(Path("a").Child(""), ShouldEqual, Path("a"))
		So(Path("a.b.c").Segments(), ShouldResemble, []string{"a", "b", "c"})
		So(Path("").IsEmpty(), ShouldBeTrue)
		So(func() { Must(Of(func(o *testOrder) any { return o.Status })) }, ShouldPanic)
	})
}

func TestNameStyles(t *testing.T) {
	Convey("名称推导", t, func() {
		So(CamelCase("Status"), ShouldEqual, "status")
		So(CamelCase("UserID"), ShouldEqual, "userID")
		So(CamelCase(""), ShouldEqual, "")
		So(SnakeCase("UserID"), ShouldEqual, "user_id")
		So(SnakeCase("HTTPStatusCode"), ShouldEqual, "http_status_code")
		So(SnakeCase("Field2Name"), ShouldEqual, "field2_name")
	})
}
