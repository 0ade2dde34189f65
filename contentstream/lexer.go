package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	errUnterminated = errors.New("contentstream: unterminated token")
	errUnbalanced   = errors.New("contentstream: unbalanced array or dictionary")
)

const maxNesting = 64

// Parse splits a content stream into operations. Unknown operators are kept;
// malformed trailing data yields an error alongside the operations parsed so
// far.
func Parse(data []byte) ([]Operation, error) {
	l := &lexer{data: data}
	var ops []Operation
	var stack []Operand
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			break
		}
		c := l.data[l.pos]
		switch {
		case c == ']' || c == '}':
			return ops, fmt.Errorf("offset %d: %w", l.pos, errUnbalanced)
		case c == '>' && l.peek(1) == '>':
			return ops, fmt.Errorf("offset %d: %w", l.pos, errUnbalanced)
		case isOperandStart(c, l.peek(1)):
			op, err := l.operand(0)
			if err != nil {
				return ops, err
			}
			stack = append(stack, op)
		default:
			word := l.word()
			if word == "" {
				l.pos++
				continue
			}
			switch word {
			case "true", "false", "null":
				stack = append(stack, NameOperand{Value: word})
				continue
			case "BI":
				img, err := l.inlineImage()
				if err != nil {
					return ops, err
				}
				ops = append(ops, Operation{Operator: "BI", Operands: []Operand{img}})
				stack = stack[:0]
				continue
			}
			ops = append(ops, Operation{Operator: word, Operands: stack})
			stack = nil
		}
	}
	return ops, nil
}

type lexer struct {
	data []byte
	pos  int
}

func (l *lexer) peek(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) operand(depth int) (Operand, error) {
	if depth > maxNesting {
		return nil, fmt.Errorf("offset %d: nesting too deep: %w", l.pos, errUnbalanced)
	}
	l.skipSpace()
	if l.pos >= len(l.data) {
		return nil, errUnterminated
	}
	c := l.data[l.pos]
	switch {
	case c == '(':
		return l.literalString()
	case c == '<' && l.peek(1) == '<':
		return l.dict(depth)
	case c == '<':
		return l.hexString()
	case c == '[':
		return l.array(depth)
	case c == '/':
		l.pos++
		return NameOperand{Value: decodeName(l.word())}, nil
	default:
		w := l.word()
		if w == "" {
			l.pos++
			return nil, fmt.Errorf("offset %d: unexpected %q: %w", l.pos-1, c, errUnterminated)
		}
		if v, err := strconv.ParseFloat(w, 64); err == nil {
			return NumberOperand{Value: v}, nil
		}
		return NameOperand{Value: w}, nil
	}
}

func (l *lexer) array(depth int) (Operand, error) {
	l.pos++ // [
	var out ArrayOperand
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, errUnterminated
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return out, nil
		}
		op, err := l.operand(depth + 1)
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, op)
	}
}

func (l *lexer) dict(depth int) (Operand, error) {
	l.pos += 2 // <<
	out := DictOperand{Values: make(map[string]Operand)}
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, errUnterminated
		}
		if l.data[l.pos] == '>' && l.peek(1) == '>' {
			l.pos += 2
			return out, nil
		}
		key, err := l.operand(depth + 1)
		if err != nil {
			return nil, err
		}
		name, ok := key.(NameOperand)
		if !ok {
			return nil, fmt.Errorf("offset %d: dictionary key is %s: %w", l.pos, key.Type(), errUnbalanced)
		}
		val, err := l.operand(depth + 1)
		if err != nil {
			return nil, err
		}
		out.Values[name.Value] = val
	}
}

func (l *lexer) literalString() (Operand, error) {
	l.pos++ // (
	var buf bytes.Buffer
	level := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			level++
			buf.WriteByte(c)
		case ')':
			level--
			if level == 0 {
				return StringOperand{Value: buf.Bytes()}, nil
			}
			buf.WriteByte(c)
		case '\\':
			if l.pos >= len(l.data) {
				return nil, errUnterminated
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(e)
				}
			}
		default:
			buf.WriteByte(c)
		}
	}
	return nil, errUnterminated
}

func (l *lexer) hexString() (Operand, error) {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				out[i] = unhex(digits[2*i])<<4 | unhex(digits[2*i+1])
			}
			return StringOperand{Value: out}, nil
		}
		if isHex(c) {
			digits = append(digits, c)
		}
	}
	return nil, errUnterminated
}

// inlineImage consumes "<dict entries> ID <data> EI" after a BI operator.
func (l *lexer) inlineImage() (Operand, error) {
	img := InlineImageOperand{Image: DictOperand{Values: make(map[string]Operand)}}
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, errUnterminated
		}
		if bytes.HasPrefix(l.data[l.pos:], []byte("ID")) && (l.pos+2 >= len(l.data) || isSpace(l.data[l.pos+2])) {
			l.pos += 3
			break
		}
		key, err := l.operand(1)
		if err != nil {
			return nil, err
		}
		val, err := l.operand(1)
		if err != nil {
			return nil, err
		}
		if name, ok := key.(NameOperand); ok {
			img.Image.Values[name.Value] = val
		}
	}
	start := l.pos
	for l.pos+2 < len(l.data) {
		if isSpace(l.data[l.pos]) && l.data[l.pos+1] == 'E' && l.data[l.pos+2] == 'I' &&
			(l.pos+3 >= len(l.data) || isSpace(l.data[l.pos+3]) || isDelim(l.data[l.pos+3])) {
			img.Data = l.data[start:l.pos]
			l.pos += 3
			return img, nil
		}
		l.pos++
	}
	return nil, errUnterminated
}

func decodeName(s string) string {
	if !bytes.ContainsRune([]byte(s), '#') {
		return s
	}
	var out []byte
	for i := 0; i < len(s); i++ {
		if s[i] == '#' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			out = append(out, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func isOperandStart(c, next byte) bool {
	switch {
	case c == '(' || c == '<' || c == '[' || c == '/':
		return true
	case c >= '0' && c <= '9', c == '+', c == '-':
		return true
	case c == '.':
		return next >= '0' && next <= '9'
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
