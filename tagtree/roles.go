package tagtree

// Standard structure types. Custom roles resolve to these through the tree's
// RoleMap.
const (
	RoleStructTreeRoot = "StructTreeRoot"
	RoleDocument       = "Document"
	RolePart           = "Part"
	RoleArt            = "Art"
	RoleSect           = "Sect"
	RoleDiv            = "Div"
	RoleNonStruct      = "NonStruct"
	RolePrivate        = "Private"
	RoleBlockQuote     = "BlockQuote"
	RoleCaption        = "Caption"
	RoleTOC            = "TOC"
	RoleTOCI           = "TOCI"
	RoleIndex          = "Index"
	RoleP              = "P"
	RoleH              = "H"
	RoleH1             = "H1"
	RoleH2             = "H2"
	RoleH3             = "H3"
	RoleH4             = "H4"
	RoleH5             = "H5"
	RoleH6             = "H6"
	RoleL              = "L"
	RoleLI             = "LI"
	RoleLbl            = "Lbl"
	RoleLBody          = "LBody"
	RoleTable          = "Table"
	RoleTR             = "TR"
	RoleTH             = "TH"
	RoleTD             = "TD"
	RoleTHead          = "THead"
	RoleTBody          = "TBody"
	RoleTFoot          = "TFoot"
	RoleSpan           = "Span"
	RoleQuote          = "Quote"
	RoleNote           = "Note"
	RoleReference      = "Reference"
	RoleBibEntry       = "BibEntry"
	RoleCode           = "Code"
	RoleLink           = "Link"
	RoleAnnot          = "Annot"
	RoleFigure         = "Figure"
	RoleFormula        = "Formula"
	RoleForm           = "Form"
	RoleArtifact       = "Artifact"
)

var standardRoles = map[string]bool{
	RoleDocument: true, RolePart: true, RoleArt: true, RoleSect: true, RoleDiv: true,
	RoleNonStruct: true, RolePrivate: true, RoleBlockQuote: true, RoleCaption: true,
	RoleTOC: true, RoleTOCI: true, RoleIndex: true, RoleP: true, RoleH: true,
	RoleH1: true, RoleH2: true, RoleH3: true, RoleH4: true, RoleH5: true, RoleH6: true,
	RoleL: true, RoleLI: true, RoleLbl: true, RoleLBody: true, RoleTable: true,
	RoleTR: true, RoleTH: true, RoleTD: true, RoleTHead: true, RoleTBody: true,
	RoleTFoot: true, RoleSpan: true, RoleQuote: true, RoleNote: true,
	RoleReference: true, RoleBibEntry: true, RoleCode: true, RoleLink: true,
	RoleAnnot: true, RoleFigure: true, RoleFormula: true, RoleForm: true,
	RoleArtifact: true,
}

// IsStandardRole reports whether role is one of the predefined structure types.
func IsStandardRole(role string) bool { return standardRoles[role] }

// IsContainerRole reports whether role is a document-level container. Marker
// escalation stops at these.
func IsContainerRole(role string) bool {
	switch role {
	case RoleStructTreeRoot, RoleDocument, RolePart:
		return true
	}
	return false
}

// IsHeadingRole reports whether role is H or H1..H6.
func IsHeadingRole(role string) bool {
	switch role {
	case RoleH, RoleH1, RoleH2, RoleH3, RoleH4, RoleH5, RoleH6:
		return true
	}
	return false
}

// IsGroupingRole reports whether role only groups other elements.
func IsGroupingRole(role string) bool {
	switch role {
	case RoleStructTreeRoot, RoleDocument, RolePart, RoleArt, RoleSect, RoleDiv,
		RoleNonStruct, RolePrivate, RoleBlockQuote, RoleTOC, RoleIndex:
		return true
	}
	return false
}

const maxRoleMapHops = 8

// StandardRole resolves role through the role map. Chains are followed until a
// standard role is reached; unknown or cyclic chains return the last role seen.
func (t *Tree) StandardRole(role string) string {
	cur := role
	for i := 0; i < maxRoleMapHops; i++ {
		if IsStandardRole(cur) || cur == RoleStructTreeRoot {
			return cur
		}
		next, ok := t.RoleMap[cur]
		if !ok || next == cur {
			return cur
		}
		cur = next
	}
	return cur
}
