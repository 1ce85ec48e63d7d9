// Package geo converts vehicle positions to simple-features geometry for
// storage. The ground plane X/Z maps to geometry X/Y and height becomes Z,
// so planar lengths are distances driven.
package geo

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/tandemdrive/tandem/pkg/core"
)

// ErrTooFewPoints is returned when a trajectory has fewer than two snapshots.
var ErrTooFewPoints = errors.New("trajectory needs at least two points")

// PointFromVec creates an XYZ point from a world position. Non-finite
// coordinates are rejected.
func PointFromVec(v mgl64.Vec3) (geom.Point, error) {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X(), Y: v.Z()},
		Z:    v.Y(),
		Type: geom.DimXYZ,
	})
}

// VecFromPoint is the inverse of PointFromVec. Empty points map to the origin.
func VecFromPoint(p geom.Point) mgl64.Vec3 {
	c, ok := p.Coordinates()
	if !ok {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{c.XY.X, c.Z, c.XY.Y}
}

// Trajectory builds an XYZM line string through the snapshot positions,
// with the snapshot timestamp as the measure. A car that never left its
// spawn has no valid line string and returns the constructor error.
func Trajectory(snaps []core.Snapshot) (geom.LineString, error) {
	if len(snaps) < 2 {
		return geom.LineString{}, ErrTooFewPoints
	}
	flat := make([]float64, 0, len(snaps)*4)
	for _, s := range snaps {
		p := s.Position
		flat = append(flat, p.X(), p.Z(), p.Y(), s.Timestamp)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZM))
}

// Distance returns the planar length of a trajectory in metres.
func Distance(ls geom.LineString) float64 {
	return ls.Length()
}

// Duration returns the measure span of a trajectory in seconds.
func Duration(ls geom.LineString) float64 {
	seq := ls.Coordinates()
	if seq.Length() < 2 {
		return 0
	}
	return seq.Get(seq.Length()-1).M - seq.Get(0).M
}
