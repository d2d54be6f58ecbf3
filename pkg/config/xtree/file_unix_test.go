//go:build !windows

package xtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreateFailureKeepsDocument(t *testing.T) {
	// 父目录是悬空符号链接：读取报告文件不存在，创建父目录却会失败
	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(filepath.Join(dir, "nowhere"), link))
	target := filepath.Join(link, "app.xml")

	orig := createTempFile(t, "orig.xml", `<xml><a value="1"/></xml>`)
	doc, err := Open(orig, false, WithCommitOnUnload(false))
	require.NoError(t, err)
	before := snapshot(doc.Root())

	err = doc.Load(target, true)
	require.ErrorIs(t, err, ErrSaveFailed)

	assert.Equal(t, orig, doc.Path())
	assert.Equal(t, before, snapshot(doc.Root()))
	assert.False(t, doc.Dirty())

	_, statErr := os.Lstat(filepath.Join(dir, "nowhere"))
	assert.True(t, os.IsNotExist(statErr))
}
