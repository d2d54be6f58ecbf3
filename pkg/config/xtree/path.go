package xtree

import (
	"fmt"
	"strconv"
	"strings"
)

// 路径语法：
//
//	name        同名兄弟中的第 1 个
//	name#N      同名兄弟中的第 N 个（N >= 1）
//	name##      追加一个新的同名兄弟
//
// 段之间用 '/' 或 '\' 分隔，空段被忽略。
const (
	selectorMark   = "#"
	appendSelector = "#"

	// MaxOrdinal 是位置选择器允许的最大值，防止一次导航创建过多节点。
	MaxOrdinal = 1 << 16
)

// segment 是解析后的一个路径段。
type segment struct {
	name    string
	ordinal int
	append  bool
}

func (s segment) String() string {
	if s.append {
		return s.name + selectorMark + appendSelector
	}
	return s.name + selectorMark + strconv.Itoa(s.ordinal)
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// parsePath 解析完整路径。任何一段无效都会在修改树之前返回错误。
func parsePath(path string) ([]segment, error) {
	parts := strings.FieldsFunc(path, isSeparator)
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		seg, err := parseSegment(p)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func parseSegment(s string) (segment, error) {
	name, sel, found := strings.Cut(s, selectorMark)
	if !isValidName(name) {
		return segment{}, fmt.Errorf("%w: %q in segment %q", ErrInvalidName, name, s)
	}
	seg := segment{name: name, ordinal: 1}
	if !found {
		return seg, nil
	}
	if sel == appendSelector {
		seg.append = true
		return seg, nil
	}
	if !isOrdinal(sel) {
		return segment{}, fmt.Errorf("%w: bad selector %q in segment %q", ErrInvalidPath, sel, s)
	}
	n, err := strconv.Atoi(sel)
	if err != nil || n > MaxOrdinal {
		return segment{}, fmt.Errorf("%w: bad selector %q in segment %q", ErrInvalidPath, sel, s)
	}
	seg.ordinal = n
	return seg, nil
}

// isOrdinal 报告 s 是否为规范的正整数写法：只含 ASCII 数字且不以 0 开头。
func isOrdinal(s string) bool {
	if s == "" || s[0] == '0' {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
