package xtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 辅助函数
// =============================================================================

func newRoot(t *testing.T) Node {
	t.Helper()
	return New(WithCommitOnUnload(false)).Root()
}

func mustNavigate(t *testing.T, n Node, path string) Node {
	t.Helper()
	node, err := n.Navigate(path)
	require.NoError(t, err)
	require.False(t, node.IsZero())
	return node
}

// =============================================================================
// Navigate 测试
// =============================================================================

func TestNavigate_CreateOnMiss(t *testing.T) {
	root := newRoot(t)

	c := mustNavigate(t, root, "a/b/c")
	assert.Equal(t, "c", c.Name())

	// 形成 a -> b -> c 的单链
	require.Equal(t, 1, root.ChildrenCount(false))
	a := root.Children()[0]
	assert.Equal(t, "a", a.Name())
	require.Equal(t, 1, a.ChildrenCount(false))
	b := a.Children()[0]
	assert.Equal(t, "b", b.Name())
	require.Equal(t, 1, b.ChildrenCount(false))
	assert.True(t, b.Children()[0].Equal(c))

	// 再次导航不创建新节点
	again := mustNavigate(t, root, "a/b/c")
	assert.True(t, again.Equal(c))
	assert.Equal(t, 1, root.ChildrenCount(false))
	assert.Equal(t, 1, a.ChildrenCount(false))
	assert.Equal(t, 1, b.ChildrenCount(false))
}

func TestNavigate_Positional(t *testing.T) {
	root := newRoot(t)
	first := mustNavigate(t, root, "item")

	third := mustNavigate(t, root, "item#3")

	items, err := root.NamedChildren("item")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].Equal(first))
	assert.True(t, items[2].Equal(third))

	// 已存在的位置直接返回
	assert.True(t, mustNavigate(t, root, "item#2").Equal(items[1]))
	assert.True(t, mustNavigate(t, root, "item#1").Equal(first))
	assert.Equal(t, 3, root.ChildrenCount(false))
}

func TestNavigate_PositionalKeepsOtherSiblings(t *testing.T) {
	root := newRoot(t)
	mustNavigate(t, root, "item")
	mustNavigate(t, root, "other")

	mustNavigate(t, root, "item#2")

	names := make([]string, 0, 3)
	for _, c := range root.Children() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"item", "other", "item"}, names)
}

func TestNavigate_Append(t *testing.T) {
	root := newRoot(t)
	mustNavigate(t, root, "item#2")

	n1 := mustNavigate(t, root, "item##")
	count, err := root.NamedChildrenCount("item")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.True(t, root.Children()[2].Equal(n1))

	n2 := mustNavigate(t, root, "item##")
	count, err = root.NamedChildrenCount("item")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.False(t, n1.Equal(n2))
	assert.True(t, root.Children()[3].Equal(n2))
}

func TestNavigate_AppendInMiddleOfPath(t *testing.T) {
	root := newRoot(t)
	mustNavigate(t, root, "servers/host##").SetValue("a")
	mustNavigate(t, root, "servers/host##").SetValue("b")

	hosts, err := mustNavigate(t, root, "servers").NamedChildren("host")
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "a", hosts[0].Value())
	assert.Equal(t, "b", hosts[1].Value())
}

func TestNavigate_Separators(t *testing.T) {
	root := newRoot(t)
	c := mustNavigate(t, root, "a/b")

	for _, path := range []string{`a\b`, "/a/b/", `\a\b\`, "//a//b//", `a/\b`} {
		t.Run(path, func(t *testing.T) {
			assert.True(t, mustNavigate(t, root, path).Equal(c))
		})
	}
	assert.Equal(t, 1, root.ChildrenCount(false))
}

func TestNavigate_EmptyPathReturnsSelf(t *testing.T) {
	root := newRoot(t)
	for _, path := range []string{"", "/", `\\`} {
		assert.True(t, mustNavigate(t, root, path).Equal(root))
	}
}

func TestNavigate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"名字含横线", "a/b-c", ErrInvalidName},
		{"名字含空格", "a b", ErrInvalidName},
		{"名字含下划线", "x_y", ErrInvalidName},
		{"空名字", "#1", ErrInvalidName},
		{"空名字追加", "##", ErrInvalidName},
		{"位置为零", "a#0", ErrInvalidPath},
		{"位置为负", "a#-1", ErrInvalidPath},
		{"位置非数字", "a#x", ErrInvalidPath},
		{"位置为空", "a#", ErrInvalidPath},
		{"多余的井号", "a#1#", ErrInvalidPath},
		{"位置过大", "a#100000", ErrInvalidPath},
		{"位置带正号", "a#+2", ErrInvalidPath},
		{"位置有前导零", "a#02", ErrInvalidPath},
		{"位置含空白", "a# 2", ErrInvalidPath},
		{"数字开头", "1st", ErrInvalidName},
		{"非 ASCII 数字开头", "٣a", ErrInvalidName},
		{"数学花体字母", "𝒜", ErrInvalidName},
		{"数学粗体数字", "a𝟙", ErrInvalidName},
		{"标题大小写字母", "ǅx", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRoot(t)
			n, err := root.Navigate("ok/" + tt.path)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, n.IsZero())
			// 路径整体校验，失败时不应创建前面的段
			assert.Equal(t, 0, root.ChildrenCount(false))
		})
	}
}

func TestNavigate_UnicodeNames(t *testing.T) {
	root := newRoot(t)
	n := mustNavigate(t, root, "größe/höhe2")
	assert.Equal(t, "höhe2", n.Name())
	assert.True(t, root.Validate())
}

func TestGet(t *testing.T) {
	root := newRoot(t)
	root.Get("screen/height").SetInt(1080)
	assert.Equal(t, 1080, root.Get("screen/height").Int())

	bad := root.Get("bad-name")
	assert.True(t, bad.IsZero())
	assert.Equal(t, "", bad.Value())
	assert.Equal(t, 0, bad.Int())
}

// =============================================================================
// Lookup / Path 测试
// =============================================================================

func TestLookup(t *testing.T) {
	root := newRoot(t)
	host := mustNavigate(t, root, "servers/host#2")

	got, ok, err := root.Lookup("servers/host#2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(host))

	_, ok, err = root.Lookup("servers/host#3")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = root.Lookup("servers/host##")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = root.Lookup("missing/deeper")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = root.Lookup("bad-name")
	assert.ErrorIs(t, err, ErrInvalidName)

	// Lookup 从不创建节点
	count, err := mustNavigate(t, root, "servers").NamedChildrenCount("host")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, root.ChildrenCount(false))
}

func TestPath(t *testing.T) {
	root := newRoot(t)
	assert.Equal(t, "", root.Path())

	host := mustNavigate(t, root, "servers/host#2/port")
	assert.Equal(t, "servers#1/host#2/port#1", host.Path())

	got, ok, err := root.Lookup(host.Path())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(host))
}

func TestParent(t *testing.T) {
	root := newRoot(t)
	b := mustNavigate(t, root, "a/b")

	p, ok := b.Parent()
	require.True(t, ok)
	assert.Equal(t, "a", p.Name())

	_, ok = root.Parent()
	assert.False(t, ok)
}

// =============================================================================
// 值访问测试
// =============================================================================

func TestValue(t *testing.T) {
	n := mustNavigate(t, newRoot(t), "name")
	assert.Equal(t, "", n.Value())
	assert.False(t, n.HasValue())

	n.SetValue("demo")
	assert.Equal(t, "demo", n.Value())
	assert.True(t, n.HasValue())

	n.SetValue("")
	assert.Equal(t, "", n.Value())
	assert.False(t, n.HasValue())
}

func TestTypedGetters(t *testing.T) {
	tests := []struct {
		value     string
		wantInt   int
		wantBool  bool
		wantFloat float64
	}{
		{"42", 42, false, 42},
		{" 7 ", 7, false, 7},
		{"-3", -3, false, -3},
		{"1.5", 0, false, 1.5},
		{"true", 0, true, 0},
		{"True", 0, true, 0},
		{" FALSE ", 0, false, 0},
		{"yes", 0, false, 0},
		{"abc", 0, false, 0},
		{"", 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			n := mustNavigate(t, newRoot(t), "v")
			n.SetValue(tt.value)
			assert.Equal(t, tt.wantInt, n.Int())
			assert.Equal(t, tt.wantBool, n.Bool())
			assert.InDelta(t, tt.wantFloat, n.Float(), 1e-9)
		})
	}
}

func TestTypedSetters(t *testing.T) {
	n := mustNavigate(t, newRoot(t), "v")

	n.SetInt(8080)
	assert.Equal(t, "8080", n.Value())
	assert.Equal(t, 8080, n.Int())

	n.SetBool(true)
	assert.Equal(t, "true", n.Value())
	assert.True(t, n.Bool())

	n.SetFloat(0.1)
	assert.Equal(t, "0.1", n.Value())
	assert.InDelta(t, 0.1, n.Float(), 1e-12)
}

// =============================================================================
// 子节点测试
// =============================================================================

func TestChildren(t *testing.T) {
	root := newRoot(t)

	assert.NotNil(t, root.ChildrenNames(false))
	assert.Empty(t, root.ChildrenNames(false))
	assert.NotNil(t, root.Children())
	assert.Empty(t, root.Children())
	assert.Equal(t, 0, root.ChildrenCount(true))

	mustNavigate(t, root, "foo#2")
	mustNavigate(t, root, "bar#3")

	assert.Equal(t, 5, root.ChildrenCount(false))
	assert.Equal(t, 2, root.ChildrenCount(true))
	assert.Equal(t, []string{"bar", "bar", "bar", "foo", "foo"}, root.ChildrenNames(false))
	assert.Equal(t, []string{"bar", "foo"}, root.ChildrenNames(true))

	// Children 保持文档顺序
	children := root.Children()
	require.Len(t, children, 5)
	assert.Equal(t, "foo", children[0].Name())
	assert.Equal(t, "bar", children[2].Name())
}

func TestNamedChildren(t *testing.T) {
	root := newRoot(t)
	mustNavigate(t, root, "a").SetValue("1")
	mustNavigate(t, root, "b")
	mustNavigate(t, root, "a#2").SetValue("2")

	as, err := root.NamedChildren("a")
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "1", as[0].Value())
	assert.Equal(t, "2", as[1].Value())

	none, err := root.NamedChildren("zzz")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = root.NamedChildren("a.b")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = root.NamedChildrenCount("a/b")
	assert.ErrorIs(t, err, ErrInvalidName)
}

// =============================================================================
// Validate 测试
// =============================================================================

func TestValidate(t *testing.T) {
	root := newRoot(t)
	assert.True(t, root.Validate())

	deep := mustNavigate(t, root, "a/b/c")
	assert.True(t, root.Validate())

	deep.el.appendChild(newElement("bad-name"))
	assert.False(t, root.Validate())
	assert.False(t, deep.Validate())
	// 兄弟子树不受影响
	assert.True(t, mustNavigate(t, root, "x").Validate())
}

func TestValidate_InvalidCharacters(t *testing.T) {
	for _, name := range []string{"a-b", "a b", "a.b", "a:b", "a_b", "é!", "1st", "𝒜", "ǅx"} {
		t.Run(name, func(t *testing.T) {
			root := newRoot(t)
			mustNavigate(t, root, "ok/fine").el.appendChild(newElement(name))
			assert.False(t, root.Validate())
		})
	}
}

func TestValidateUnique(t *testing.T) {
	root := newRoot(t)
	mustNavigate(t, root, "a/b")
	mustNavigate(t, root, "c")
	assert.True(t, root.ValidateUnique())

	mustNavigate(t, root, "a/b#2")
	assert.True(t, root.Validate())
	assert.False(t, root.ValidateUnique())
}

// =============================================================================
// Clean / Remove 测试
// =============================================================================

func TestClean(t *testing.T) {
	root := newRoot(t)
	mustNavigate(t, root, "keep").SetValue("1")
	mustNavigate(t, root, "empty")
	mustNavigate(t, root, "branch/leaf").SetValue("2")
	mustNavigate(t, root, "branch/hollow/deeper")
	mustNavigate(t, root, "dead/end/here")

	root.Clean()

	assert.Equal(t, []string{"branch", "keep"}, root.ChildrenNames(false))
	assert.Equal(t, []string{"leaf"}, mustNavigate(t, root, "branch").ChildrenNames(false))
}

func TestClean_Idempotent(t *testing.T) {
	doc := New(WithCommitOnUnload(false))
	root := doc.Root()
	mustNavigate(t, root, "a/b").SetValue("x")
	mustNavigate(t, root, "a/c")
	mustNavigate(t, root, "d")

	root.Clean()
	first := doc.String()
	root.Clean()
	assert.Equal(t, first, doc.String())
}

func TestClean_RootStays(t *testing.T) {
	root := newRoot(t)
	mustNavigate(t, root, "a/b")
	root.Clean()
	assert.Equal(t, 0, root.ChildrenCount(false))
	assert.Equal(t, DefaultRoot, root.Name())
}

func TestClean_AfterClearingValue(t *testing.T) {
	root := newRoot(t)
	n := mustNavigate(t, root, "a")
	n.SetValue("v")
	root.Clean()
	assert.Equal(t, 1, root.ChildrenCount(false))

	n.SetValue("")
	root.Clean()
	assert.Equal(t, 0, root.ChildrenCount(false))
}

func TestRemove(t *testing.T) {
	root := newRoot(t)
	a := mustNavigate(t, root, "a")
	mustNavigate(t, root, "b")

	a.Remove()
	assert.Equal(t, []string{"b"}, root.ChildrenNames(false))
	_, ok := a.Parent()
	assert.False(t, ok)

	// 根节点没有父节点，Remove 无效果
	root.Remove()
	assert.Equal(t, 1, root.ChildrenCount(false))
}

func TestRemoveChildren(t *testing.T) {
	root := newRoot(t)
	a := mustNavigate(t, root, "a")
	a.SetValue("keep")
	mustNavigate(t, a, "x#3")

	a.RemoveChildren()
	assert.Equal(t, 0, a.ChildrenCount(false))
	assert.Equal(t, "keep", a.Value())
	assert.Equal(t, 1, root.ChildrenCount(false))
}

// =============================================================================
// 零值 Node 测试
// =============================================================================

func TestZeroNode(t *testing.T) {
	var n Node
	assert.True(t, n.IsZero())
	assert.Equal(t, "", n.Name())
	assert.Equal(t, "", n.Value())
	assert.False(t, n.Validate())
	assert.Empty(t, n.Children())
	assert.Empty(t, n.ChildrenNames(true))

	_, err := n.Navigate("a")
	assert.ErrorIs(t, err, ErrNilNode)
	_, _, err = n.Lookup("a")
	assert.ErrorIs(t, err, ErrNilNode)
	_, err = n.NamedChildren("a")
	assert.ErrorIs(t, err, ErrNilNode)
	_, err = n.NamedChildrenCount("a")
	assert.ErrorIs(t, err, ErrNilNode)

	assert.NotPanics(t, func() {
		n.SetValue("x")
		n.Clean()
		n.Remove()
		n.RemoveChildren()
	})
}
