//go:build windows

package xtree

import "os"

// writeFileAtomic 在 Windows 上退化为直接写入，renameio 不支持该平台。
func writeFileAtomic(path string, data []byte) error {
	return os.WriteFile(path, data, defaultFilePerm)
}
