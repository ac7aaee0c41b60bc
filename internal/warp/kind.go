package warp

import "strings"

// Kind identifies the warp variant.
type Kind int

const (
	// KindUnknown is only produced when parsing an unrecognized name.
	KindUnknown Kind = iota
	// KindBilinear deforms content with a control grid and spline mesh.
	KindBilinear
	// KindPerspective maps content through a four-corner homography.
	KindPerspective
	// KindPerspectiveBilinear applies a homography first and a control grid
	// on top of it.
	KindPerspectiveBilinear
)

var kindNames = map[Kind]string{
	KindBilinear:            "bilinear",
	KindPerspective:         "perspective",
	KindPerspectiveBilinear: "perspectivebilinear",
}

// String returns the persisted name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// HasMesh reports whether warps of this kind are drawn through a mesh.
func (k Kind) HasMesh() bool {
	return k == KindBilinear || k == KindPerspectiveBilinear
}

// ParseKind converts a persisted name back into a Kind. Matching is case
// insensitive.
func ParseKind(name string) Kind {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return KindUnknown
}
