package tagtree

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a blake2b-256 digest of the attached structure.
type Fingerprint [blake2b.Size256]byte

func (f Fingerprint) String() string { return hex.EncodeToString(f[:8]) }

// Fingerprint hashes roles, pages, attributes, object references and kid order
// of every node reachable from the root, plus the role map. Markers and arena
// layout are not part of the digest, so two trees with the same shape hash
// equal even when their node IDs differ.
func (t *Tree) Fingerprint() Fingerprint {
	h, _ := blake2b.New256(nil)
	keys := make([]string, 0, len(t.RoleMap))
	for k := range t.RoleMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeString(h, k)
		writeString(h, t.RoleMap[k])
	}
	t.hashNode(h, t.root)
	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out
}

func (t *Tree) hashNode(h hash.Hash, id NodeID) {
	n := t.nodes[id]
	writeString(h, n.Role)
	writeInt(h, n.Page)
	writeString(h, n.Alt)
	writeString(h, n.ActualText)
	writeString(h, n.Title)
	writeString(h, n.Lang)
	writeInt(h, n.Obj.Num)
	writeInt(h, n.Obj.Gen)
	writeInt(h, len(n.kids))
	for _, k := range n.kids {
		writeInt(h, int(k.Kind))
		switch k.Kind {
		case KidNode:
			t.hashNode(h, k.Node)
		case KidContent:
			writeInt(h, k.Page)
			writeInt(h, k.MCID)
		case KidObject:
			writeInt(h, k.Page)
			writeInt(h, k.Obj.Num)
			writeInt(h, k.Obj.Gen)
		}
	}
}

func writeString(h hash.Hash, s string) {
	writeInt(h, len(s))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, v int) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutVarint(buf[:], int64(v))
	h.Write(buf[:n])
}

// Clone returns a deep copy of the tree. Node IDs are preserved.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes:   make([]*Node, len(t.nodes)),
		root:    t.root,
		RoleMap: make(map[string]string, len(t.RoleMap)),
	}
	for k, v := range t.RoleMap {
		c.RoleMap[k] = v
	}
	for i, n := range t.nodes {
		cp := *n
		cp.kids = append([]Kid(nil), n.kids...)
		c.nodes[i] = &cp
	}
	return c
}
