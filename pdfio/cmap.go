package pdfio

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"slices"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// toUnicode maps character codes of a font to text. Codes may have
// different byte lengths; the longest match wins.
type toUnicode struct {
	entries map[string]string
	lengths []int // descending
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

func decodeUTF16(b []byte) string {
	if len(b)%2 == 1 {
		b = b[:len(b)-1]
	}
	out, err := utf16BE.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// parseToUnicode reads the bfchar and bfrange sections of a ToUnicode CMap.
func parseToUnicode(data []byte) *toUnicode {
	sc := bufio.NewScanner(bytes.NewReader(data))
	m := &toUnicode{entries: make(map[string]string)}
	lengths := make(map[int]bool)
	section := ""
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		switch {
		case strings.HasSuffix(line, "begincodespacerange"):
			section = "codespace"
			continue
		case strings.HasSuffix(line, "beginbfchar"):
			section = "bfchar"
			continue
		case strings.HasSuffix(line, "beginbfrange"):
			section = "bfrange"
			continue
		case strings.HasPrefix(line, "end"):
			section = ""
			continue
		}

		switch section {
		case "codespace":
			if toks := hexTokens(line); len(toks) > 0 && len(toks[0]) > 0 {
				lengths[len(toks[0])] = true
			}
		case "bfchar":
			toks := hexTokens(line)
			if len(toks) >= 2 && len(toks[0]) > 0 {
				m.entries[string(toks[0])] = decodeUTF16(toks[1])
				lengths[len(toks[0])] = true
			}
		case "bfrange":
			for !strings.Contains(line, "]") && strings.Contains(line, "[") && sc.Scan() {
				line += " " + strings.TrimSpace(sc.Text())
			}
			toks := hexTokens(line)
			if len(toks) < 3 || len(toks[0]) == 0 {
				continue
			}
			width := len(toks[0])
			lengths[width] = true
			lo, hi := bigEndian(toks[0]), bigEndian(toks[1])
			if hi < lo || hi-lo > 0xffff {
				continue
			}
			if strings.Contains(line, "[") {
				for i := 0; i <= hi-lo && 2+i < len(toks); i++ {
					m.entries[string(code(lo+i, width))] = decodeUTF16(toks[2+i])
				}
				continue
			}
			dst := bigEndian(toks[2])
			for i := 0; i <= hi-lo; i++ {
				m.entries[string(code(lo+i, width))] = decodeUTF16(code(dst+i, len(toks[2])))
			}
		}
	}
	if len(lengths) == 0 {
		for k := range m.entries {
			lengths[len(k)] = true
		}
	}
	for l := range lengths {
		m.lengths = append(m.lengths, l)
	}
	slices.Sort(m.lengths)
	slices.Reverse(m.lengths)
	return m
}

func hexTokens(line string) [][]byte {
	var out [][]byte
	for {
		start := strings.IndexByte(line, '<')
		if start < 0 {
			return out
		}
		end := strings.IndexByte(line[start+1:], '>')
		if end < 0 {
			return out
		}
		tok := strings.ReplaceAll(line[start+1:start+1+end], " ", "")
		if len(tok)%2 == 1 {
			tok += "0"
		}
		b, err := hex.DecodeString(tok)
		if err == nil {
			out = append(out, b)
		}
		line = line[start+end+2:]
	}
}

func bigEndian(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

func code(v, width int) []byte {
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// Decode maps raw string bytes to text. Unmapped bytes are passed through
// as Latin-1.
func (m *toUnicode) Decode(raw []byte) string {
	var sb strings.Builder
	for len(raw) > 0 {
		matched := false
		for _, l := range m.lengths {
			if len(raw) < l {
				continue
			}
			if s, ok := m.entries[string(raw[:l])]; ok {
				sb.WriteString(s)
				raw = raw[l:]
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteRune(rune(raw[0]))
			raw = raw[1:]
		}
	}
	return sb.String()
}
