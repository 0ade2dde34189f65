package pdfio

import (
	"encoding/hex"
	"fmt"
	"strings"

	"fortio.org/safecast"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/unicode"

	"github.com/wudi/tagremedy/geometry"
	"github.com/wudi/tagremedy/tagtree"
)

// store is the object table the codec reads and writes.
type store interface {
	Dereference(o types.Object) (types.Object, error)
	// Add allocates a new indirect object holding o.
	Add(o types.Object) (*types.IndirectRef, error)
	// Put replaces the object behind an existing reference.
	Put(ref types.IndirectRef, o types.Object) error
}

type xrefStore struct {
	t *model.XRefTable
}

func (s xrefStore) Dereference(o types.Object) (types.Object, error) { return s.t.Dereference(o) }

func (s xrefStore) Add(o types.Object) (*types.IndirectRef, error) { return s.t.IndRefForNewObject(o) }

func (s xrefStore) Put(ref types.IndirectRef, o types.Object) error {
	e, ok := s.t.Table[int(ref.ObjectNumber)]
	if !ok || e == nil || e.Free {
		return fmt.Errorf("pdfio: object %d is not in use", ref.ObjectNumber)
	}
	e.Object = o
	return nil
}

func derefDict(st store, o types.Object) types.Dict {
	if o == nil {
		return nil
	}
	v, err := st.Dereference(o)
	if err != nil {
		return nil
	}
	d, _ := v.(types.Dict)
	return d
}

func derefArray(st store, o types.Object) types.Array {
	if o == nil {
		return nil
	}
	v, err := st.Dereference(o)
	if err != nil {
		return nil
	}
	a, _ := v.(types.Array)
	return a
}

func derefStream(st store, o types.Object) ([]byte, error) {
	v, err := st.Dereference(o)
	if err != nil {
		return nil, err
	}
	sd, ok := v.(types.StreamDict)
	if !ok {
		return nil, fmt.Errorf("pdfio: expected stream, got %T", v)
	}
	if err := sd.Decode(); err != nil {
		return nil, err
	}
	return sd.Content, nil
}

func refOf(o types.Object) (tagtree.ObjRef, bool) {
	switch r := o.(type) {
	case types.IndirectRef:
		return tagtree.ObjRef{Num: int(r.ObjectNumber), Gen: int(r.GenerationNumber)}, true
	case *types.IndirectRef:
		if r == nil {
			return tagtree.ObjRef{}, false
		}
		return tagtree.ObjRef{Num: int(r.ObjectNumber), Gen: int(r.GenerationNumber)}, true
	}
	return tagtree.ObjRef{}, false
}

func indRef(r tagtree.ObjRef) types.IndirectRef {
	return *types.NewIndirectRef(r.Num, r.Gen)
}

// number reads an integer operand. Reals are accepted when they are whole.
func number(st store, o types.Object) (int, bool) {
	if st != nil {
		if v, err := st.Dereference(o); err == nil {
			o = v
		}
	}
	switch v := o.(type) {
	case types.Integer:
		return int(v), true
	case types.Float:
		n, err := safecast.Convert[int](float64(v))
		return n, err == nil
	}
	return 0, false
}

func floatValue(o types.Object) (float64, bool) {
	switch v := o.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

func rect(st store, o types.Object) (geometry.Rect, bool) {
	a := derefArray(st, o)
	if len(a) != 4 {
		return geometry.Rect{}, false
	}
	var v [4]float64
	for i, e := range a {
		f, ok := floatValue(e)
		if !ok {
			return geometry.Rect{}, false
		}
		v[i] = f
	}
	// Normalize corners; annotations may list them in any order.
	return geometry.Rect{
		LLX: min(v[0], v[2]), LLY: min(v[1], v[3]),
		URX: max(v[0], v[2]), URY: max(v[1], v[3]),
	}, true
}

func nameOf(o types.Object) string {
	switch v := o.(type) {
	case types.Name:
		return string(v)
	case *types.Name:
		if v != nil {
			return string(*v)
		}
	}
	return ""
}

func boolean(st store, o types.Object) bool {
	if v, err := st.Dereference(o); err == nil {
		o = v
	}
	b, _ := o.(types.Boolean)
	return bool(b)
}

// text decodes a PDF text string. Undecodable strings are returned raw.
func text(st store, o types.Object) string {
	if v, err := st.Dereference(o); err == nil {
		o = v
	}
	switch v := o.(type) {
	case types.StringLiteral:
		s, err := types.StringLiteralToString(v)
		if err != nil {
			return string(v)
		}
		return s
	case types.HexLiteral:
		s, err := types.HexLiteralToString(v)
		if err != nil {
			return string(v)
		}
		return s
	}
	return ""
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

var utf16BOM = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// encodeText writes s as a literal string when it is printable ASCII and as
// UTF-16BE with a byte order mark otherwise.
func encodeText(s string) types.Object {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			ascii = false
			break
		}
	}
	if ascii {
		return types.StringLiteral(literalEscaper.Replace(s))
	}
	b, err := utf16BOM.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return types.StringLiteral(literalEscaper.Replace(s))
	}
	return types.HexLiteral(hex.EncodeToString(b))
}
