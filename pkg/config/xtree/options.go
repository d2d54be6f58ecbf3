package xtree

import "log/slog"

// ValidationMode 定义文档级校验的严格程度。
type ValidationMode int

const (
	// ValidateCharset 只要求所有节点名由字母和数字组成（默认）。
	ValidateCharset ValidationMode = iota

	// ValidateUnique 额外要求同一节点下的子节点名互不相同。
	ValidateUnique
)

// String 返回模式名称。
func (m ValidationMode) String() string {
	switch m {
	case ValidateCharset:
		return "charset"
	case ValidateUnique:
		return "unique"
	default:
		return "unknown"
	}
}

// Option 定义 Document 配置选项函数类型。
type Option func(*options)

type options struct {
	logger         *slog.Logger
	commitOnUnload bool
	cleanUpOnSave  bool
	mode           ValidationMode
	baseDir        string
}

func defaultOptions() *options {
	return &options{
		logger:         slog.Default(),
		commitOnUnload: true,
	}
}

// WithLogger 设置日志记录器。
// 默认使用 slog.Default()。传入 nil 将被忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCommitOnUnload 设置关闭或切换数据源时是否自动写回后端文件。
// 默认为 true。
func WithCommitOnUnload(commit bool) Option {
	return func(o *options) {
		o.commitOnUnload = commit
	}
}

// WithCleanUpOnSave 设置保存前是否先执行 Clean。
// 默认为 false。
func WithCleanUpOnSave(clean bool) Option {
	return func(o *options) {
		o.cleanUpOnSave = clean
	}
}

// WithValidationMode 设置文档级校验模式，默认 [ValidateCharset]。
func WithValidationMode(mode ValidationMode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithBaseDir 设置相对路径的基准目录。
// Open、Load、Save 收到的相对路径会拼接到 dir 下；绝对路径不受影响。
func WithBaseDir(dir string) Option {
	return func(o *options) {
		o.baseDir = dir
	}
}
