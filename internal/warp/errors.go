package warp

import (
	"github.com/pkg/errors"

	"warpcal/internal/grid"
	"warpcal/internal/homography"
)

var (
	// ErrDegenerateTransform reports that the corner quad cannot be mapped by a
	// homography. Warps recover from it by drawing with the identity.
	ErrDegenerateTransform = homography.ErrDegenerate
	// ErrIndexOutOfRange is returned for control point indices beyond the grid.
	ErrIndexOutOfRange = grid.ErrIndexOutOfRange
	// ErrInvalidGridSize is returned when fewer than 2 controls per axis are requested.
	ErrInvalidGridSize = grid.ErrInvalidGridSize
	// ErrNoSelection is returned when a selection edit finds nothing selected.
	ErrNoSelection = grid.ErrNoSelection

	// ErrInvalidSize is returned for non-positive content sizes.
	ErrInvalidSize = errors.New("invalid content size")
	// ErrUnknownKind is returned when constructing a warp of an unknown kind.
	ErrUnknownKind = errors.New("unknown warp kind")
	// ErrNoMesh is returned by Mesh for perspective warps.
	ErrNoMesh = errors.New("warp kind has no mesh")
	// ErrUnsupported is returned for operations a warp kind does not provide.
	ErrUnsupported = errors.New("operation not supported by warp kind")
	// ErrScope is returned for unbalanced Begin/End calls.
	ErrScope = errors.New("unbalanced render scope")
)
