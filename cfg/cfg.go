package cfg

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误信息中使用配置文件里的键名
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name, ok := fieldName(sf)
		if !ok {
			return ""
		}
		return name
	})
	return v
}

// Validate 按 validate tag 校验结构体，非结构体直接返回 nil
func Validate(object any) error {
	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(rv.Interface()); err != nil {
		return errors.Wrap(err, "validate config")
	}
	return nil
}

// Load 读取配置文件到 object，格式由扩展名决定：json, yaml/yml, toml, ini
func Load(filename string, object any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "read config %s", filename)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return errors.WithMessagef(Unmarshal(data, format, object), "load config %s", filename)
}

// Unmarshal 解码、转换、设置默认值并校验
func Unmarshal(data []byte, format string, object any) error {
	storage, err := Decode(data, format)
	if err != nil {
		return err
	}
	return errors.WithMessage(storage.ConvertTo(object), "convert config")
}

// Decode 解码为 MapStorage
func Decode(data []byte, format string) (*MapStorage, error) {
	decode, ok := decoders[strings.ToLower(format)]
	if !ok {
		return nil, errors.Errorf("unsupported config format %q", format)
	}
	v, err := decode(data)
	if err != nil {
		return nil, err
	}
	return NewMapStorage(v), nil
}
