package contentstream

import (
	"bytes"
	"fmt"
	"sort"
)

// Serialize writes ops back to content stream syntax, one operation per line.
func Serialize(ops []Operation) []byte {
	if len(ops) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, op := range ops {
		if op.Operator == "BI" && len(op.Operands) == 1 {
			if img, ok := op.Operands[0].(InlineImageOperand); ok {
				writeInlineImage(&buf, img)
				continue
			}
		}
		for i, operand := range op.Operands {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.Write(serializeOperand(operand))
		}
		if len(op.Operands) > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeInlineImage(buf *bytes.Buffer, img InlineImageOperand) {
	buf.WriteString("BI")
	for _, k := range sortedKeys(img.Image.Values) {
		buf.WriteString(" /" + k + " ")
		buf.Write(serializeOperand(img.Image.Values[k]))
	}
	buf.WriteString(" ID ")
	buf.Write(img.Data)
	buf.WriteString(" EI\n")
}

func serializeOperand(op Operand) []byte {
	switch v := op.(type) {
	case NumberOperand:
		// %g keeps minimal form while preserving integer vs float readability.
		return []byte(fmt.Sprintf("%g", v.Value))
	case NameOperand:
		switch v.Value {
		case "true", "false", "null":
			return []byte(v.Value)
		}
		return []byte("/" + v.Value)
	case StringOperand:
		return escapeLiteralString(v.Value)
	case ArrayOperand:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, it := range v.Values {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.Write(serializeOperand(it))
		}
		buf.WriteByte(']')
		return buf.Bytes()
	case DictOperand:
		var buf bytes.Buffer
		buf.WriteString("<<")
		for _, k := range sortedKeys(v.Values) {
			buf.WriteString("/" + k + " ")
			buf.Write(serializeOperand(v.Values[k]))
		}
		buf.WriteString(">>")
		return buf.Bytes()
	default:
		return []byte("null")
	}
}

func sortedKeys(m map[string]Operand) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeLiteralString(raw []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range raw {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\b':
			b.WriteString("\\b")
		case '\f':
			b.WriteString("\\f")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}

// MCIDOf returns the MCID carried by a BDC operation.
func MCIDOf(op Operation) (int, bool) {
	if op.Operator != "BDC" || len(op.Operands) != 2 {
		return 0, false
	}
	props, ok := op.Operands[1].(DictOperand)
	if !ok {
		return 0, false
	}
	n, ok := props.Values["MCID"].(NumberOperand)
	if !ok {
		return 0, false
	}
	return int(n.Value), true
}
