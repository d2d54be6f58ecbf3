package xtree

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 定义导入/导出格式。
type Format string

// 支持的导入/导出格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ValueKey 是导出为 map 时，带子节点的节点（以及根节点）保存自身值所用的键。
// 节点名只含字母和数字，不会与之冲突。
const ValueKey = "@value"

// koanfDelim 是 Koanf 实例使用的键分隔符。
const koanfDelim = "."

// Koanf 以根节点为顶层，将配置树载入一个新的 koanf 实例。
//
// 映射规则：
//   - 没有子节点的节点映射为其值（字符串）
//   - 有子节点的节点映射为 map，键为子节点名
//   - 同名子节点映射为列表
//   - 有子节点且有值的节点，值存放在 [ValueKey] 下；根节点有值时总是如此
//
// 返回的实例是快照，之后对树的修改不会反映到其中。
func (d *Document) Koanf() (*koanf.Koanf, error) {
	k := koanf.New(koanfDelim)
	if err := k.Load(treeProvider{root: d.Root()}, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}

// Unmarshal 将 path 处的配置反序列化到 target，path 为空时反序列化整棵树。
// path 使用 koanf 的 "." 分隔语法（如 "server.port"），与 Navigate 的路径语法不同。
// 允许弱类型转换，例如 "8080" 可以解到 int 字段。
func (d *Document) Unmarshal(path string, target any) error {
	k, err := d.Koanf()
	if err != nil {
		return err
	}
	if err := k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Export 将整棵树按 format 序列化，映射规则见 [Document.Koanf]。
func (d *Document) Export(format Format) ([]byte, error) {
	parser, err := parserFor(format)
	if err != nil {
		return nil, err
	}
	return parser.Marshal(elementMap(d.root))
}

// Import 解析 format 格式的数据，并将结果作为子节点追加到 n 下，映射规则见 [Document.Koanf]。
//
// map 的键按字典序追加，列表展开为同名兄弟，null 得到没有值的节点。
// 任何键不是合法节点名时返回 [ErrInvalidName]，此时 n 不会被修改。
func (n Node) Import(data []byte, format Format) error {
	if n.el == nil {
		return ErrNilNode
	}
	parser, err := parserFor(format)
	if err != nil {
		return err
	}
	k := koanf.New(koanfDelim)
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	// 先在游离节点上构建，全部成功后再挂到 n 下
	staging := newElement(n.el.name)
	if err := importMap(staging, k.Raw()); err != nil {
		return err
	}
	if staging.hasValue {
		n.el.setValue(staging.value)
	}
	for _, c := range slices.Clone(staging.children) {
		n.el.appendChild(c)
	}
	return nil
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// treeProvider 实现 koanf.Provider，直接提供配置树的 map 形式。
type treeProvider struct {
	root Node
}

// ReadBytes 不受支持，koanf 在 parser 为 nil 时只调用 Read。
func (treeProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("xtree: tree provider does not support ReadBytes")
}

// Read 返回配置树的 map 形式。
func (p treeProvider) Read() (map[string]any, error) {
	if p.root.el == nil {
		return nil, ErrNilNode
	}
	return elementMap(p.root.el), nil
}

func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// elementMap 返回 e 的 map 形式，即使 e 没有子节点也返回 map。
// 顶层节点本身有值时同样写入 [ValueKey]，不会因为没有子节点而丢失。
func elementMap(e *element) map[string]any {
	counts := make(map[string]int, len(e.children))
	for _, c := range e.children {
		counts[c.name]++
	}
	m := make(map[string]any, len(counts)+1)
	if e.hasValue {
		m[ValueKey] = e.value
	}
	for _, c := range e.children {
		v := elementAny(c)
		if counts[c.name] == 1 {
			m[c.name] = v
			continue
		}
		list, _ := m[c.name].([]any)
		m[c.name] = append(list, v)
	}
	return m
}

func elementAny(e *element) any {
	if len(e.children) == 0 {
		return e.value
	}
	return elementMap(e)
}

func importMap(parent *element, m map[string]any) error {
	for _, key := range slices.Sorted(maps.Keys(m)) {
		if key == ValueKey {
			parent.setValue(scalarString(m[key]))
			continue
		}
		if err := importValue(parent, key, m[key]); err != nil {
			return err
		}
	}
	return nil
}

func importValue(parent *element, key string, v any) error {
	if !isValidName(key) {
		return fmt.Errorf("%w: key %q", ErrInvalidName, key)
	}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if err := importValue(parent, key, item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		c := newElement(key)
		if err := importMap(c, t); err != nil {
			return err
		}
		parent.appendChild(c)
		return nil
	default:
		c := newElement(key)
		c.setValue(scalarString(t))
		parent.appendChild(c)
		return nil
	}
}

// scalarString 将解析得到的标量转为节点值，nil 转为空字符串（即无值）。
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
