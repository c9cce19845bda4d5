package maze

import (
	"github.com/Faultbox/robomap/pkg/math"
	"github.com/Faultbox/robomap/pkg/units"
)

// Geometry holds the physical measures of the maze.
type Geometry struct {
	Tile          units.Length // side of a square room tile
	TileThickness units.Length
	WallHeight    units.Length
	WallThickness units.Length
}

// DefaultGeometry returns the measures of a standard rescue maze.
func DefaultGeometry() Geometry {
	return Geometry{
		Tile:          units.Centimeters(30),
		TileThickness: units.Centimeters(2),
		WallHeight:    units.Centimeters(15),
		WallThickness: units.Centimeters(2),
	}
}

func (g Geometry) orDefault() Geometry {
	if g.Tile <= 0 {
		return DefaultGeometry()
	}
	return g
}

// halfTile is the world distance between two adjacent matrix indices.
func (g Geometry) halfTile() float64 {
	return g.Tile.Meters() / 2
}

// Pose is an absolute placement in world space.
type Pose struct {
	Position math.Vec3
	Rotation math.Quat
}

// localPosition returns the segment-local floor-level position of a logical
// coordinate. Logical (1,1) sits at the segment's origin.
func (g Geometry) localPosition(logical Point) math.Vec3 {
	h := g.halfTile()
	return math.Vec3{
		X: float64(logical.X-1) * h,
		Y: 0,
		Z: float64(logical.Y-1) * h,
	}
}

// floorPose returns the pose of the room tile at a logical coordinate.
func (g Geometry) floorPose(offset math.Vec3, logical Point) Pose {
	return Pose{
		Position: offset.Add(g.localPosition(logical)),
		Rotation: math.QuatIdentity(),
	}
}

// wallPose returns the pose of the wall at a logical boundary coordinate.
// Walls between east/west neighbours have an even X and are turned a quarter.
func (g Geometry) wallPose(offset math.Vec3, logical Point) Pose {
	p := offset.Add(g.localPosition(logical))
	p.Y += g.WallHeight.Meters()/2 + g.TileThickness.Meters()/2
	rot := math.QuatIdentity()
	if logical.X%2 == 0 {
		rot = math.QuatYaw(float64(units.Degrees(90).Radians()))
	}
	return Pose{Position: p, Rotation: rot}
}
