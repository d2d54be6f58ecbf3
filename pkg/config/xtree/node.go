package xtree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Node 是配置树中单个元素的视图。
//
// Node 是值类型，可以随意复制；两个 Node 指向同一元素时相等（== 或 [Node.Equal]）。
// 零值 Node 不指向任何元素：返回 error 的方法返回 [ErrNilNode]，
// 其余读取方法返回零值，写入方法不做任何事。
type Node struct {
	el *element
}

// IsZero 报告 n 是否为零值（不指向任何元素）。
func (n Node) IsZero() bool {
	return n.el == nil
}

// Equal 报告 n 与 o 是否指向同一元素。
func (n Node) Equal(o Node) bool {
	return n.el == o.el
}

// Name 返回元素名。
func (n Node) Name() string {
	if n.el == nil {
		return ""
	}
	return n.el.name
}

// Value 返回 value 属性，属性不存在时返回空字符串。
func (n Node) Value() string {
	if n.el == nil {
		return ""
	}
	return n.el.value
}

// HasValue 报告 value 属性是否存在。
func (n Node) HasValue() bool {
	return n.el != nil && n.el.hasValue
}

// SetValue 设置 value 属性。空字符串会删除该属性。
// 含 XML 不允许的字符或非法 UTF-8 的值会让后续保存返回 [ErrInvalidValue]。
func (n Node) SetValue(v string) {
	if n.el == nil {
		return
	}
	n.el.setValue(v)
}

// Int 将值解析为 int，解析失败返回 0。
func (n Node) Int() int {
	i, err := strconv.Atoi(strings.TrimSpace(n.Value()))
	if err != nil {
		return 0
	}
	return i
}

// SetInt 以十进制字符串保存 i。
func (n Node) SetInt(i int) {
	n.SetValue(strconv.Itoa(i))
}

// Bool 将值解析为 bool（"true"/"false"，不区分大小写），其余情况返回 false。
func (n Node) Bool() bool {
	return strings.EqualFold(strings.TrimSpace(n.Value()), "true")
}

// SetBool 保存 "true" 或 "false"。
func (n Node) SetBool(b bool) {
	n.SetValue(strconv.FormatBool(b))
}

// Float 将值解析为 float64，解析失败返回 0。
func (n Node) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(n.Value()), 64)
	if err != nil {
		return 0
	}
	return f
}

// SetFloat 以最短可还原的形式保存 f。
func (n Node) SetFloat(f float64) {
	n.SetValue(strconv.FormatFloat(f, 'g', -1, 64))
}

// ChildrenCount 返回直接子节点数量。unique 为 true 时返回不同名字的数量。
//
// 例如有两个 foo 和三个 bar 子节点：unique 时为 2，否则为 5。
func (n Node) ChildrenCount(unique bool) int {
	if n.el == nil {
		return 0
	}
	if !unique {
		return len(n.el.children)
	}
	return len(n.ChildrenNames(true))
}

// ChildrenNames 返回按字典序排序的直接子节点名。unique 为 true 时去重。
// 没有子节点时返回空切片（非 nil）。
func (n Node) ChildrenNames(unique bool) []string {
	if n.el == nil {
		return []string{}
	}
	names := make([]string, 0, len(n.el.children))
	for _, c := range n.el.children {
		names = append(names, c.name)
	}
	slices.Sort(names)
	if unique {
		names = slices.Compact(names)
	}
	return names
}

// Children 按文档顺序返回所有直接子节点，没有子节点时返回空切片。
func (n Node) Children() []Node {
	if n.el == nil {
		return []Node{}
	}
	nodes := make([]Node, len(n.el.children))
	for i, c := range n.el.children {
		nodes[i] = Node{el: c}
	}
	return nodes
}

// NamedChildren 按文档顺序返回名为 name 的直接子节点。
func (n Node) NamedChildren(name string) ([]Node, error) {
	if n.el == nil {
		return nil, ErrNilNode
	}
	if !isValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	nodes := []Node{}
	for _, c := range n.el.children {
		if c.name == name {
			nodes = append(nodes, Node{el: c})
		}
	}
	return nodes, nil
}

// NamedChildrenCount 返回名为 name 的直接子节点数量。
func (n Node) NamedChildrenCount(name string) (int, error) {
	if n.el == nil {
		return 0, ErrNilNode
	}
	if !isValidName(name) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return n.el.countNamed(name), nil
}

// Navigate 沿 path 查找节点，缺失的节点会被依次创建。
//
// path 由 '/' 或 '\' 分隔，每段为 name、name#N 或 name##：
//
//	root.Navigate("screen/height")   // screen 的第一个 height
//	root.Navigate("servers/host#2")  // 第二个 host，不足时补齐
//	root.Navigate("servers/host##")  // 总是新建一个 host
//
// 若 name#N 中同名子节点不足 N 个，会在末尾追加同名节点直到第 N 个存在。
// 路径在修改树之前完整校验：名字非法返回 [ErrInvalidName]，选择器非法返回 [ErrInvalidPath]。
// 空路径返回 n 本身。
func (n Node) Navigate(path string) (Node, error) {
	if n.el == nil {
		return Node{}, ErrNilNode
	}
	segs, err := parsePath(path)
	if err != nil {
		return Node{}, err
	}
	cur := n.el
	for _, seg := range segs {
		ordinal := seg.ordinal
		if seg.append {
			ordinal = cur.countNamed(seg.name) + 1
		}
		next := cur.nth(seg.name, ordinal)
		if next == nil {
			// 补齐到第 ordinal 个同名节点，新节点依次追加在末尾
			for i := cur.countNamed(seg.name); i < ordinal; i++ {
				next = newElement(seg.name)
				cur.appendChild(next)
			}
		}
		cur = next
	}
	return Node{el: cur}, nil
}

// Get 与 Navigate 相同，但出错时返回零值 Node，便于链式读取：
//
//	height := root.Get("screen/height").Int()
func (n Node) Get(path string) Node {
	node, err := n.Navigate(path)
	if err != nil {
		return Node{}
	}
	return node
}

// Lookup 沿 path 查找节点但从不创建。路径语法同 Navigate；
// name## 永远指向不存在的节点，因此总是返回 false。
func (n Node) Lookup(path string) (Node, bool, error) {
	if n.el == nil {
		return Node{}, false, ErrNilNode
	}
	segs, err := parsePath(path)
	if err != nil {
		return Node{}, false, err
	}
	cur := n.el
	for _, seg := range segs {
		if seg.append {
			return Node{}, false, nil
		}
		cur = cur.nth(seg.name, seg.ordinal)
		if cur == nil {
			return Node{}, false, nil
		}
	}
	return Node{el: cur}, true, nil
}

// Parent 返回父节点，根节点返回 false。
func (n Node) Parent() (Node, bool) {
	if n.el == nil || n.el.parent == nil {
		return Node{}, false
	}
	return Node{el: n.el.parent}, true
}

// Path 返回从根到 n 的规范路径（如 "servers#1/host#2"），根节点返回空字符串。
// 对返回值调用根节点的 Navigate 或 Lookup 会得到 n。
func (n Node) Path() string {
	var segs []string
	for e := n.el; e != nil && e.parent != nil; e = e.parent {
		segs = append(segs, segment{name: e.name, ordinal: e.ordinal()}.String())
	}
	slices.Reverse(segs)
	return strings.Join(segs, "/")
}

// Validate 报告 n 及其所有后代的名字是否都是合法节点名（字母开头，只含字母和数字）。
// 不检查同名兄弟，需要时使用 [Node.ValidateUnique]。
func (n Node) Validate() bool {
	if n.el == nil {
		return false
	}
	return validateElement(n.el, false)
}

// ValidateUnique 在 Validate 的基础上，要求每个节点的直接子节点名互不相同。
func (n Node) ValidateUnique() bool {
	if n.el == nil {
		return false
	}
	return validateElement(n.el, true)
}

func validateElement(e *element, unique bool) bool {
	if !isValidName(e.name) {
		return false
	}
	var seen map[string]struct{}
	if unique {
		seen = make(map[string]struct{}, len(e.children))
	}
	for _, c := range e.children {
		if unique {
			if _, dup := seen[c.name]; dup {
				return false
			}
			seen[c.name] = struct{}{}
		}
		if !validateElement(c, unique) {
			return false
		}
	}
	return true
}

// Clean 自底向上删除既没有子节点也没有值的节点。
// 根节点本身不会被删除，但其子树照常清理。
func (n Node) Clean() {
	if n.el == nil {
		return
	}
	cleanElement(n.el)
}

func cleanElement(e *element) {
	// 子节点会在清理时把自己从 e.children 中移除，先复制一份
	for _, c := range slices.Clone(e.children) {
		cleanElement(c)
	}
	if len(e.children) == 0 && e.value == "" && e.parent != nil {
		e.parent.removeChild(e)
	}
}

// Remove 将 n 从父节点上摘除。根节点调用无效果。
func (n Node) Remove() {
	if n.el == nil || n.el.parent == nil {
		return
	}
	n.el.parent.removeChild(n.el)
}

// RemoveChildren 删除 n 的所有直接子节点，保留 n 本身。
func (n Node) RemoveChildren() {
	if n.el == nil {
		return
	}
	n.el.removeChildren()
}
