package xtree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// maxMarkupSize 限制单个配置文档的大小。
const maxMarkupSize = 16 << 20

// decodeMarkup 将 XML 解析为元素树。
//
// 元素名即节点名，value 属性即节点值，其余属性原样保留。
// 注释、处理指令和 DOCTYPE 被忽略；元素内的非空白文本视为格式错误。
// 带前缀的名字（如 "a:b"）按原样保留，随后会在校验时被拒绝。
func decodeMarkup(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(io.LimitReader(r, maxMarkupSize))
	dec.Strict = true
	dec.Entity = map[string]string{}

	var root, cur *element
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := newElement(rawName(t.Name))
			for _, a := range t.Attr {
				if a.Name.Space == "" && a.Name.Local == valueAttr {
					el.value, el.hasValue = a.Value, true
					continue
				}
				el.attrs = append(el.attrs, xml.Attr{Name: xml.Name{Local: rawName(a.Name)}, Value: a.Value})
			}
			switch {
			case cur != nil:
				cur.appendChild(el)
			case root != nil:
				return nil, fmt.Errorf("%w: multiple root elements", ErrParseFailed)
			default:
				root = el
			}
			cur = el

		case xml.EndElement:
			// RawToken 不检查起止标签是否配对
			if cur == nil || cur.name != rawName(t.Name) {
				return nil, fmt.Errorf("%w: unexpected end element </%s>", ErrParseFailed, rawName(t.Name))
			}
			cur = cur.parent

		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("%w: text content is not supported", ErrParseFailed)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrParseFailed)
	}
	if cur != nil {
		return nil, fmt.Errorf("%w: unclosed element <%s>", ErrParseFailed, cur.name)
	}
	return root, nil
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// encodeMarkup 将元素树写为带缩进的 XML。
func encodeMarkup(w io.Writer, root *element) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := encodeElement(enc, root); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// 编码器会把 XML 不允许的字符替换为 U+FFFD，这类值直接报错，不做有损写出。
func encodeElement(enc *xml.Encoder, e *element) error {
	if e.hasValue && !isMarkupText(e.value) {
		return fmt.Errorf("%w: node %q", ErrInvalidValue, Node{el: e}.Path())
	}
	start := xml.StartElement{Name: xml.Name{Local: e.name}}
	if e.hasValue {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: valueAttr}, Value: e.value})
	}
	start.Attr = append(start.Attr, e.attrs...)

	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, c := range e.children {
		if err := encodeElement(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
