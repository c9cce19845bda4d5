package maze

import "fmt"

// Heading is an absolute compass direction. It is used both for the robot's
// facing and for the four sides of a grid cell.
type Heading uint8

// Headings, clockwise from north.
const (
	North Heading = 0
	East  Heading = 1
	South Heading = 2
	West  Heading = 3
)

// Headings lists all headings in grid order.
var Headings = [4]Heading{North, East, South, West}

// ParseHeading converts a wire value into a Heading.
func ParseHeading(v int) (Heading, error) {
	if v < 0 || v > 3 {
		return 0, ErrInvalidHeading
	}
	return Heading(v), nil
}

// String returns a human-readable heading name.
func (h Heading) String() string {
	switch h {
	case North:
		return "North"
	case East:
		return "East"
	case South:
		return "South"
	case West:
		return "West"
	default:
		return fmt.Sprintf("Unknown(%d)", h)
	}
}

// Rotate turns the heading clockwise by n quarter turns (n may be negative).
func (h Heading) Rotate(n int) Heading {
	return Heading(((int(h)+n)%4 + 4) % 4)
}

// Left returns the heading a quarter turn counter-clockwise.
func (h Heading) Left() Heading { return h.Rotate(3) }

// Right returns the heading a quarter turn clockwise.
func (h Heading) Right() Heading { return h.Rotate(1) }

// Opposite returns the reverse heading.
func (h Heading) Opposite() Heading { return h.Rotate(2) }

// Step returns the unit grid displacement for the heading. Y grows southward.
func (h Heading) Step() Point {
	switch h {
	case North:
		return Point{0, -1}
	case East:
		return Point{1, 0}
	case South:
		return Point{0, 1}
	default:
		return Point{-1, 0}
	}
}

// Point is an integer grid coordinate.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns p + o.
func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }

// Sub returns p - o.
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }

// Scale returns p * s.
func (p Point) Scale(s int) Point { return Point{p.X * s, p.Y * s} }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }
