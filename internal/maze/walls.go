package maze

// WallMask is the 4-bit wall observation sent by the robot. Bit i is set
// when there is a wall on robot-relative side i: forward (bit 0), right
// (bit 1), backward (bit 2) and left (bit 3).
type WallMask uint8

// Robot-relative wall bits.
const (
	WallForward  WallMask = 1 << 0
	WallRight    WallMask = 1 << 1
	WallBackward WallMask = 1 << 2
	WallLeft     WallMask = 1 << 3
)

// ParseWallMask validates a wire wall mask.
func ParseWallMask(v int) (WallMask, error) {
	if v < 0 || v > 15 {
		return 0, ErrInvalidWallMask
	}
	return WallMask(v), nil
}

// Has reports whether the robot-relative bit is set.
func (m WallMask) Has(bit WallMask) bool {
	return m&bit != 0
}

// Absolute rotates the mask by the robot's heading and returns wall presence
// indexed by absolute side (North, East, South, West). Relative side r lands
// on absolute side (r + heading) mod 4.
func (m WallMask) Absolute(h Heading) [4]bool {
	var out [4]bool
	for r := 0; r < 4; r++ {
		if m.Has(1 << r) {
			out[Heading(r).Rotate(int(h))] = true
		}
	}
	return out
}

// victimWall returns the absolute side of the wall a victim reported on the
// robot's given side belongs to.
func victimWall(h Heading, side Side) Heading {
	if side == Left {
		return h.Left()
	}
	return h.Right()
}

// storedSide returns the wall face a decoded victim side is recorded on.
// Facing North or East the side is flipped; South and West keep it. This
// mirrors the robot firmware's convention and must stay as is until checked
// against real telemetry.
func storedSide(h Heading, side Side) Side {
	if h == North || h == East {
		return side.Flip()
	}
	return side
}
