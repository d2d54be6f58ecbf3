package xtree

import (
	"encoding/xml"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// valueAttr 是承载节点值的属性名。
const valueAttr = "value"

// element 是配置树中的一个元素。
// parent 只是反向引用，树的所有权自上而下归 Document。
type element struct {
	name     string
	value    string
	hasValue bool
	attrs    []xml.Attr // value 以外的属性，保存时原样写回
	children []*element
	parent   *element
}

func newElement(name string) *element {
	return &element{name: name}
}

func (e *element) setValue(v string) {
	if v == "" {
		e.value, e.hasValue = "", false
		return
	}
	e.value, e.hasValue = v, true
}

func (e *element) appendChild(c *element) {
	c.parent = e
	e.children = append(e.children, c)
}

func (e *element) removeChild(c *element) {
	i := slices.Index(e.children, c)
	if i < 0 {
		return
	}
	e.children = slices.Delete(e.children, i, i+1)
	c.parent = nil
}

func (e *element) removeChildren() {
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil
}

// nth 返回名为 name 的第 ordinal 个子元素（从 1 开始），不存在时返回 nil。
func (e *element) nth(name string, ordinal int) *element {
	for _, c := range e.children {
		if c.name != name {
			continue
		}
		ordinal--
		if ordinal == 0 {
			return c
		}
	}
	return nil
}

func (e *element) countNamed(name string) int {
	n := 0
	for _, c := range e.children {
		if c.name == name {
			n++
		}
	}
	return n
}

// ordinal 返回 e 在同名兄弟中的位置（从 1 开始），根元素返回 0。
func (e *element) ordinal() int {
	if e.parent == nil {
		return 0
	}
	pos := 0
	for _, c := range e.parent.children {
		if c.name == e.name {
			pos++
		}
		if c == e {
			return pos
		}
	}
	return 0
}

// isValidName 判断 name 是否是合法的节点名：非空，只由字母和数字组成，且以字母开头。
//
// unicode 的字母数字范围比 XML 名字字符表宽（如 "𝒜"、"ǅ"），
// 含非 ASCII 字符的名字还需通过一次试解码，保证保存后能被重新读回。
func isValidName(name string) bool {
	first, _ := utf8.DecodeRuneInString(name)
	if name == "" || !unicode.IsLetter(first) {
		return false
	}
	ascii := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
		if r >= utf8.RuneSelf {
			ascii = false
		}
	}
	return ascii || isMarkupName(name)
}

// isMarkupName 报告 XML 解码器是否接受 name 作为元素名。
func isMarkupName(name string) bool {
	dec := xml.NewDecoder(strings.NewReader("<" + name + "/>"))
	tok, err := dec.RawToken()
	if err != nil {
		return false
	}
	start, ok := tok.(xml.StartElement)
	return ok && start.Name.Space == "" && start.Name.Local == name
}

// isMarkupChar 报告 r 是否属于 XML 1.0 的 Char 产生式。
func isMarkupChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// isMarkupText 报告 s 是否能原样写入 XML 属性值：合法 UTF-8 且每个字符都是 XML 字符。
func isMarkupText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !isMarkupChar(r) {
			return false
		}
	}
	return true
}
