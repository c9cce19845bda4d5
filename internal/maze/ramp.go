package maze

import (
	gomath "math"

	"github.com/Faultbox/robomap/pkg/math"
	"github.com/Faultbox/robomap/pkg/units"
)

// Ramp is a sloped passage between two levels. Steepness is negative for a
// descending ramp.
type Ramp struct {
	Steepness units.Degrees
	Length    units.Length // along the slope
	Width     units.Length // across the slope, one tile
}

// NewRamp validates a ramp observation. length is in centimetres.
func NewRamp(steepness float64, lengthCM float64) (Ramp, error) {
	if gomath.IsNaN(steepness) || gomath.IsInf(steepness, 0) || gomath.Abs(steepness) > 90 {
		return Ramp{}, ErrInvalidRamp
	}
	if gomath.IsNaN(lengthCM) || gomath.IsInf(lengthCM, 0) || lengthCM <= 0 {
		return Ramp{}, ErrInvalidRamp
	}
	return Ramp{Steepness: units.Degrees(steepness), Length: units.Centimeters(lengthCM)}, nil
}

// Rise returns the height difference between the ramp's ends.
func (r Ramp) Rise() float64 {
	return r.Steepness.Radians().Sin() * r.Length.Meters()
}

// Run returns the horizontal footprint of the ramp along the travel direction.
func (r Ramp) Run() float64 {
	return r.Steepness.Radians().Cos() * r.Length.Meters()
}

// rampPose places the ramp over the robot's current tile, starting at the
// tile's back edge and rising along heading h.
func (g Geometry) rampPose(offset math.Vec3, logical Point, h Heading, r Ramp) Pose {
	half := g.Tile.Meters()/2 - r.Run()/2
	var shift math.Vec3
	switch h {
	case North:
		shift.Z = half
	case East:
		shift.X = -half
	case South:
		shift.Z = -half
	case West:
		shift.X = half
	}
	p := offset.Add(g.localPosition(logical)).Add(shift)
	p.Y = offset.Y + r.Rise()/2
	yaw := units.Degrees(-90*float64(h) + 180).Normalize()
	return Pose{Position: p, Rotation: math.QuatYaw(float64(yaw.Radians()))}
}

// nextSegmentOffset returns the world offset of the segment reached through
// the ramp. Its logical (1,1) lies so that the first forward step after the
// ramp lands on the tile past the ramp's far end.
func (g Geometry) nextSegmentOffset(offset math.Vec3, logical Point, h Heading, r Ramp) math.Vec3 {
	half := g.halfTile()
	run := r.Run()
	px, py := float64(logical.X), float64(logical.Y)
	next := math.Vec3{Y: offset.Y + r.Rise()}
	switch h {
	case North:
		next.X = (px-1)*half + offset.X
		next.Z = (py+1)*half - run + offset.Z
	case East:
		next.X = (px-3)*half + run + offset.X
		next.Z = (py-1)*half + offset.Z
	case South:
		next.X = (px-1)*half + offset.X
		next.Z = (py-3)*half + run + offset.Z
	case West:
		next.X = (px+1)*half - run + offset.X
		next.Z = (py-1)*half + offset.Z
	}
	return next
}
