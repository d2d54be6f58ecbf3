package xtree

import "errors"

// 配置树相关错误。
var (
	// ErrInvalidName 表示节点名或路径段名为空、包含非字母数字字符，或不以字母开头。
	ErrInvalidName = errors.New("xtree: name must be alphanumeric")

	// ErrInvalidPath 表示路径段的位置选择器无效（如 "a#0"、"a#x"）。
	ErrInvalidPath = errors.New("xtree: invalid path")

	// ErrInvalidConfig 表示配置树未通过校验。
	ErrInvalidConfig = errors.New("xtree: invalid configuration tree")

	// ErrSourceLoad 表示后端文件无法读取或解析，且不允许创建。
	ErrSourceLoad = errors.New("xtree: failed to load source")

	// ErrNilNode 表示在没有底层元素的 Node 上执行操作。
	ErrNilNode = errors.New("xtree: node has no underlying element")

	// ErrParseFailed 表示标记文本解析失败。
	ErrParseFailed = errors.New("xtree: failed to parse markup")

	// ErrSaveFailed 表示配置写入失败。
	ErrSaveFailed = errors.New("xtree: failed to save")

	// ErrInvalidValue 表示节点值不是合法 UTF-8，或含有 XML 不允许的字符（如 "\x01"）。
	ErrInvalidValue = errors.New("xtree: value cannot be represented in markup")

	// ErrNoBackingFile 表示文档没有关联的后端文件。
	ErrNoBackingFile = errors.New("xtree: document has no backing file")

	// ErrUnsupportedFormat 表示不支持的导入/导出格式。
	ErrUnsupportedFormat = errors.New("xtree: unsupported format")

	// ErrUnmarshalFailed 表示配置反序列化到结构体失败。
	ErrUnmarshalFailed = errors.New("xtree: failed to unmarshal")

	// ErrUnsafePath 表示文件路径包含空字节，或相对路径越出了 WithBaseDir 指定的目录。
	ErrUnsafePath = errors.New("xtree: unsafe file path")
)
