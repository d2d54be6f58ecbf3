package xtree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/cespare/xxhash/v2"
)

// DefaultRoot 是新建文档的根元素名。
const DefaultRoot = "xml"

// Document 持有一棵配置树及其后端文件。
//
// Document 不是并发安全的，所有访问（包括经由 Root 得到的 Node）需由调用方串行化。
type Document struct {
	root   *element
	path   string // 后端文件，空表示未关联
	sum    uint64 // 最近一次加载或保存时的内容指纹
	opts   *options
	closed bool
}

// New 创建只有根元素 "xml" 的空文档，不关联后端文件。
func New(opts ...Option) *Document {
	d := &Document{opts: defaultOptions()}
	for _, opt := range opts {
		opt(d.opts)
	}
	d.reset(newElement(DefaultRoot), "")
	return d
}

// NewWithRoot 创建根元素名为 root 的空文档。
func NewWithRoot(root string, opts ...Option) (*Document, error) {
	if !isValidName(root) {
		return nil, fmt.Errorf("%w: root %q", ErrInvalidName, root)
	}
	d := New(opts...)
	d.reset(newElement(root), "")
	return d, nil
}

// Open 从 path 加载文档。
//
// 文件不存在时：create 为 false 返回 [ErrSourceLoad]；
// create 为 true 则创建空文档（根元素 "xml"）并立即写入 path。
//
// create 只在文件不存在时生效。其他加载失败（无权限、无法解析、未通过校验）
// 即使 create 为 true 也返回错误，已有文件不会被空文档覆盖。
// 加载后的树未通过校验时返回 [ErrInvalidConfig]。
func Open(path string, create bool, opts ...Option) (*Document, error) {
	d := New(opts...)
	if err := d.Load(path, create); err != nil {
		return nil, err
	}
	return d, nil
}

// Parse 从标记文本创建不关联后端文件的文档。
func Parse(markup []byte, opts ...Option) (*Document, error) {
	d := New(opts...)
	if err := d.LoadBytes(markup); err != nil {
		return nil, err
	}
	return d, nil
}

// Use 打开 path 处的文档并执行 fn，返回前总是调用 Close。
// fn 返回错误或 panic 时同样会提交（CommitOnUnload 为 true 时），
// fn 与 Close 的错误通过 errors.Join 合并返回。
func Use(path string, create bool, fn func(*Document) error, opts ...Option) (err error) {
	d, err := Open(path, create, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(d)
}

// Root 返回根节点。
func (d *Document) Root() Node {
	return Node{el: d.root}
}

// Path 返回后端文件路径，未关联时返回空字符串。
func (d *Document) Path() string {
	return d.path
}

// CommitOnUnload 报告关闭或切换数据源时是否自动写回。
func (d *Document) CommitOnUnload() bool {
	return d.opts.commitOnUnload
}

// SetCommitOnUnload 设置关闭或切换数据源时是否自动写回。
func (d *Document) SetCommitOnUnload(commit bool) {
	d.opts.commitOnUnload = commit
}

// CleanUpOnSave 报告保存前是否执行 Clean。
func (d *Document) CleanUpOnSave() bool {
	return d.opts.cleanUpOnSave
}

// SetCleanUpOnSave 设置保存前是否执行 Clean。
func (d *Document) SetCleanUpOnSave(clean bool) {
	d.opts.cleanUpOnSave = clean
}

// Load 用 path 处的文件替换当前树，create 语义同 [Open]。
//
// CommitOnUnload 为 true 且当前树有未保存的修改时，先写回原来的后端文件。
// 读取、校验或创建失败时返回错误，当前树和后端文件保持不变。
func (d *Document) Load(path string, create bool) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrSourceLoad)
	}
	if err := d.commitPending(); err != nil {
		return err
	}

	full, err := d.resolve(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceLoad, err)
	}
	root, err := readSource(full)
	switch {
	case err == nil:
		if err := d.check(root); err != nil {
			return err
		}
		d.reset(root, full)
		d.opts.logger.Debug("xtree: document loaded", slog.String("path", full))
		return nil

	case create && errors.Is(err, fs.ErrNotExist):
		// 先写文件，成功后再替换当前树
		root := newElement(DefaultRoot)
		var buf bytes.Buffer
		if err := encodeMarkup(&buf, root); err != nil {
			return fmt.Errorf("%w: %w", ErrSaveFailed, err)
		}
		if err := writeSource(full, buf.Bytes()); err != nil {
			return fmt.Errorf("%w: %w", ErrSaveFailed, err)
		}
		d.reset(root, full)
		d.opts.logger.Debug("xtree: document created", slog.String("path", full))
		return nil

	default:
		return fmt.Errorf("%w: %s: %w", ErrSourceLoad, full, err)
	}
}

// LoadString 用标记文本替换当前树，参见 [Document.LoadBytes]。
func (d *Document) LoadString(markup string) error {
	return d.LoadBytes([]byte(markup))
}

// LoadBytes 用标记文本替换当前树。
//
// CommitOnUnload 为 true 且当前树有未保存的修改时，先写回原来的后端文件。
// 成功后文档不再关联任何后端文件，Commit 返回 false，直到再次 Save 到某个路径。
func (d *Document) LoadBytes(markup []byte) error {
	if err := d.commitPending(); err != nil {
		return err
	}
	root, err := decodeMarkup(bytes.NewReader(markup))
	if err != nil {
		return err
	}
	if err := d.check(root); err != nil {
		return err
	}
	d.reset(root, "")
	return nil
}

// Validate 按文档的校验模式检查整棵树。
// 未通过时：silent 为 true 返回 (false, nil)，否则返回 [ErrInvalidConfig]。
func (d *Document) Validate(silent bool) (bool, error) {
	if err := d.check(d.root); err != nil {
		if silent {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Clean 删除整棵树中既没有子节点也没有值的节点。
func (d *Document) Clean() {
	d.Root().Clean()
}

// Save 校验后将文档原子写入 path，并把 path 记为后端文件。
// CleanUpOnSave 为 true 时先执行 Clean。
func (d *Document) Save(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrSaveFailed)
	}
	full, err := d.resolve(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	data, err := d.prepareSave()
	if err != nil {
		return err
	}
	if err := writeSource(full, data); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	d.path = full
	d.sum = xxhash.Sum64(data)
	d.opts.logger.Debug("xtree: document saved", slog.String("path", full), slog.Int("bytes", len(data)))
	return nil
}

// SaveTo 校验后将文档写入 w，不改变后端文件。
func (d *Document) SaveTo(w io.Writer) error {
	data, err := d.prepareSave()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// Commit 在关联了后端文件时保存到该文件并返回 true，否则什么也不做并返回 false。
func (d *Document) Commit() (bool, error) {
	if d.path == "" {
		return false, nil
	}
	if err := d.Save(d.path); err != nil {
		return false, err
	}
	return true, nil
}

// Reload 丢弃内存中的修改并重新读取后端文件。未关联后端文件时返回 false。
// 重新加载失败时当前树保持不变。
func (d *Document) Reload() (bool, error) {
	if d.path == "" {
		return false, nil
	}
	root, err := readSource(d.path)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrSourceLoad, d.path, err)
	}
	if err := d.check(root); err != nil {
		return false, err
	}
	d.reset(root, d.path)
	d.opts.logger.Debug("xtree: document reloaded", slog.String("path", d.path))
	return true, nil
}

// Dirty 报告树在最近一次加载或保存之后是否被修改过。
func (d *Document) Dirty() bool {
	data, err := d.Bytes()
	if err != nil {
		return true
	}
	return xxhash.Sum64(data) != d.sum
}

// Bytes 将当前树序列化为标记文本，不做名字校验。
// 节点值无法写成 XML 时返回 [ErrInvalidValue]。
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeMarkup(&buf, d.root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String 返回序列化后的标记文本，序列化失败时返回空字符串。
func (d *Document) String() string {
	data, err := d.Bytes()
	if err != nil {
		return ""
	}
	return string(data)
}

// Close 结束文档的使用。CommitOnUnload 为 true 时提交到后端文件。
// 重复调用只有第一次生效。
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if !d.opts.commitOnUnload {
		return nil
	}
	if _, err := d.Commit(); err != nil {
		return fmt.Errorf("xtree: commit on close: %w", err)
	}
	return nil
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// reset 替换树和后端文件，并以新树为基准重置修改指纹。
func (d *Document) reset(root *element, path string) {
	d.root = root
	d.path = path
	if data, err := d.Bytes(); err == nil {
		d.sum = xxhash.Sum64(data)
	}
}

// check 按文档的校验模式检查 root。
func (d *Document) check(root *element) error {
	unique := d.opts.mode == ValidateUnique
	if !validateElement(root, unique) {
		return fmt.Errorf("%w: %s validation failed", ErrInvalidConfig, d.opts.mode)
	}
	return nil
}

// commitPending 在切换数据源之前写回未保存的修改。
func (d *Document) commitPending() error {
	if !d.opts.commitOnUnload || d.path == "" || !d.Dirty() {
		return nil
	}
	if _, err := d.Commit(); err != nil {
		return fmt.Errorf("xtree: commit before unload: %w", err)
	}
	return nil
}

// prepareSave 执行保存前的校验和清理，返回序列化结果。
func (d *Document) prepareSave() ([]byte, error) {
	if _, err := d.Validate(false); err != nil {
		return nil, err
	}
	if d.opts.cleanUpOnSave {
		d.Clean()
	}
	data, err := d.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return data, nil
}

// resolve 将相对路径映射到 WithBaseDir 指定的目录下。
func (d *Document) resolve(path string) (string, error) {
	return resolvePath(d.opts.baseDir, path)
}
