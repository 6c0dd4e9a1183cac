package cfg

import (
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Decoder 把配置文件内容解码为 map[string]any / []any 组成的树
type Decoder func(data []byte) (any, error)

var decoders = map[string]Decoder{
	"json": DecodeJSON,
	"yaml": DecodeYAML,
	"yml":  DecodeYAML,
	"toml": DecodeTOML,
	"ini":  DecodeINI,
}

func DecodeJSON(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decode json")
	}
	return v, nil
}

func DecodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}
	return v, nil
}

func DecodeTOML(data []byte) (any, error) {
	var v map[string]any
	if err := toml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decode toml")
	}
	return v, nil
}

// DecodeINI section 名中的点号表示嵌套，例如 [transport.options]
func DecodeINI(data []byte) (any, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:             true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "decode ini")
	}

	result := map[string]any{}
	for _, section := range f.Sections() {
		m := result
		if section.Name() != ini.DefaultSection {
			for _, name := range strings.Split(section.Name(), ".") {
				sub, ok := m[name].(map[string]any)
				if !ok {
					sub = map[string]any{}
					m[name] = sub
				}
				m = sub
			}
		}
		for _, key := range section.Keys() {
			values := key.ValueWithShadows()
			if len(values) > 1 {
				items := make([]any, len(values))
				for i, v := range values {
					items[i] = parseINIValue(v)
				}
				m[key.Name()] = items
				continue
			}
			m[key.Name()] = parseINIValue(key.String())
		}
	}
	return result, nil
}

func parseINIValue(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
