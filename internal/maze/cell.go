package maze

import "fmt"

// CellKind tags the content of a grid cell.
type CellKind uint8

// Cell kinds.
const (
	CellEmpty CellKind = iota
	CellFloor
	CellWall
)

// String returns a human-readable cell kind name.
func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "Empty"
	case CellFloor:
		return "Floor"
	case CellWall:
		return "Wall"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Symbol returns the debug dump character for the kind.
func (k CellKind) Symbol() byte {
	switch k {
	case CellFloor:
		return 'F'
	case CellWall:
		return 'W'
	default:
		return '.'
	}
}

// Cell is one entry of a segment's matrix. Floor is set only for CellFloor
// and Wall only for CellWall. Copies of a wall cell share the same *Wall.
type Cell struct {
	Kind  CellKind
	Floor *Floor
	Wall  *Wall
}

// IsEmpty reports whether nothing has been observed at the cell.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// FloorKind is the type of floor tile under the robot.
type FloorKind uint8

// Floor codes as sent by the robot.
const (
	FloorRegular    FloorKind = 0
	FloorBlack      FloorKind = 1
	FloorBlue       FloorKind = 2
	FloorCheckpoint FloorKind = 3
)

// ParseFloorKind converts a wire floor code.
func ParseFloorKind(v int) (FloorKind, error) {
	if v < int(FloorRegular) || v > int(FloorCheckpoint) {
		return 0, ErrInvalidFloorCode
	}
	return FloorKind(v), nil
}

// String returns a human-readable floor name.
func (k FloorKind) String() string {
	switch k {
	case FloorRegular:
		return "Regular"
	case FloorBlack:
		return "Black"
	case FloorBlue:
		return "Blue"
	case FloorCheckpoint:
		return "Checkpoint"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Floor is an observed room tile.
type Floor struct {
	Kind         FloorKind
	Materialized bool
}

// Side selects one face of a wall, relative to the robot's approach.
type Side uint8

// Wall sides.
const (
	Left  Side = 0
	Right Side = 1
)

// Flip returns the other side.
func (s Side) Flip() Side {
	if s == Left {
		return Right
	}
	return Left
}

// String returns "Left" or "Right".
func (s Side) String() string {
	if s == Left {
		return "Left"
	}
	return "Right"
}

// VictimKind identifies a victim marking. Shape victims are letters, status
// victims are coloured.
type VictimKind uint8

// Victim kinds as encoded on the wire (modulo 100).
const (
	VictimU      VictimKind = 0
	VictimH      VictimKind = 1
	VictimS      VictimKind = 2
	VictimGreen  VictimKind = 10
	VictimYellow VictimKind = 11
	VictimRed    VictimKind = 12
)

// victimSideThreshold splits the wire code: codes at or above it are on the right.
const victimSideThreshold = 100

// Valid reports whether k is one of the known victim kinds.
func (k VictimKind) Valid() bool {
	switch k {
	case VictimU, VictimH, VictimS, VictimGreen, VictimYellow, VictimRed:
		return true
	}
	return false
}

// IsShape reports whether the victim is a letter victim.
func (k VictimKind) IsShape() bool {
	return k == VictimU || k == VictimH || k == VictimS
}

// String returns a human-readable victim name.
func (k VictimKind) String() string {
	switch k {
	case VictimU:
		return "U"
	case VictimH:
		return "H"
	case VictimS:
		return "S"
	case VictimGreen:
		return "Green"
	case VictimYellow:
		return "Yellow"
	case VictimRed:
		return "Red"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Victim is a marking found on one side of a wall.
type Victim struct {
	Kind VictimKind `json:"kind" yaml:"kind"`
	Side Side       `json:"side" yaml:"side"`
}

// DecodeVictim splits a wire victim code into kind and side.
func DecodeVictim(code int) (Victim, error) {
	if code < 0 || code >= 2*victimSideThreshold {
		return Victim{}, ErrInvalidVictimCode
	}
	v := Victim{Kind: VictimKind(code % victimSideThreshold), Side: Left}
	if code >= victimSideThreshold {
		v.Side = Right
	}
	if !v.Kind.Valid() {
		return Victim{}, ErrInvalidVictimCode
	}
	return v, nil
}

// Code re-encodes the victim to its wire form.
func (v Victim) Code() int {
	if v.Side == Right {
		return int(v.Kind) + victimSideThreshold
	}
	return int(v.Kind)
}

// Wall is a boundary between two rooms. Each face may carry one victim.
type Wall struct {
	Left  *VictimKind
	Right *VictimKind

	// Materialized is set once the wall geometry has been sent to the renderer.
	Materialized bool

	leftEmitted  bool
	rightEmitted bool
}

// Victim returns the marking on the given side, if any.
func (w *Wall) Victim(side Side) (VictimKind, bool) {
	p := w.Left
	if side == Right {
		p = w.Right
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// setVictim records kind on one side. It reports whether the side changed.
func (w *Wall) setVictim(kind VictimKind, side Side) bool {
	k := kind
	if side == Left {
		if w.Left != nil && *w.Left == kind {
			return false
		}
		w.Left = &k
		w.leftEmitted = false
		return true
	}
	if w.Right != nil && *w.Right == kind {
		return false
	}
	w.Right = &k
	w.rightEmitted = false
	return true
}

func (w *Wall) emitted(side Side) bool {
	if side == Left {
		return w.leftEmitted
	}
	return w.rightEmitted
}

func (w *Wall) markEmitted(side Side) {
	if side == Left {
		w.leftEmitted = true
	} else {
		w.rightEmitted = true
	}
}
