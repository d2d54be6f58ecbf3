//go:build !windows

package xtree

import (
	"fmt"

	"github.com/google/renameio/v2"
)

// writeFileAtomic 原子地替换 path 的内容：写临时文件、fsync 后 rename。
func writeFileAtomic(path string, data []byte) (err error) {
	pending, err := renameio.NewPendingFile(path,
		renameio.WithPermissions(defaultFilePerm),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	// 未提交时 Cleanup 删除临时文件，提交后为空操作
	defer func() {
		if cerr := pending.Cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("cleanup pending file: %w", cerr)
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write pending file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace file: %w", err)
	}
	return nil
}
