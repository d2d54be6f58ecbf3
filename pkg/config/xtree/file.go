package xtree

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// defaultFilePerm 新建配置文件的权限。
	defaultFilePerm = 0640

	// defaultDirPerm 保存时自动创建父目录的权限。
	defaultDirPerm = 0750
)

// readSource 读取并解析 path 处的配置文件。
func readSource(path string) (*element, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- 路径由调用方提供
	if err != nil {
		return nil, err
	}
	return decodeMarkup(bytes.NewReader(data))
}

// writeSource 将 data 原子写入 path，必要时创建父目录。
func writeSource(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return writeFileAtomic(path, data)
}

// resolvePath 规范化 path；baseDir 非空时把相对路径拼接到 baseDir 下。
//
// 内核会在空字节处截断路径，含空字节的路径一律拒绝。
// 拼接后的路径不能越出 baseDir（"../x" 之类），绝对路径不受 baseDir 约束。
func resolvePath(baseDir, path string) (string, error) {
	if strings.ContainsRune(path, 0) || strings.ContainsRune(baseDir, 0) {
		return "", fmt.Errorf("%w: null byte in %q", ErrUnsafePath, path)
	}
	if baseDir == "" || filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	base := filepath.Clean(baseDir)
	joined := filepath.Join(base, path)
	rel, err := filepath.Rel(base, joined)
	if err != nil || hasDotDotSegment(rel) {
		return "", fmt.Errorf("%w: %q escapes %q", ErrUnsafePath, path, baseDir)
	}
	return joined, nil
}

// hasDotDotSegment 报告 path 中是否有恰好为 ".." 的路径段，'/' 和 '\' 都视为分隔符。
// 按段比较，"..config" 之类的合法文件名不受影响。
func hasDotDotSegment(path string) bool {
	for seg := range strings.FieldsFuncSeq(path, isSeparator) {
		if seg == ".." {
			return true
		}
	}
	return false
}
