package maze

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/Faultbox/robomap/pkg/math"
)

// initialSize is the side of a fresh segment's matrix: one room and its
// four boundaries.
const initialSize = 3

// growStep is how many rows or columns an edge grows by: one room plus the
// boundary beyond it.
const growStep = 2

// Segment is the occupancy grid of one level of the maze.
//
// The matrix is addressed directly: odd logical coordinates are rooms, and an
// index between two rooms is their shared boundary. The matrix coordinate of
// logical (1,1) is origin, which moves when the grid grows up or left so that
// every logical coordinate keeps addressing the same content.
type Segment struct {
	cells    []Cell // row-major, width*height
	width    int
	height   int
	origin   Point
	position Point
	offset   math.Vec3
	geom     Geometry
}

func newSegment(offset math.Vec3, g Geometry) *Segment {
	return &Segment{
		geom:     g.orDefault(),
		cells:    make([]Cell, initialSize*initialSize),
		width:    initialSize,
		height:   initialSize,
		origin:   Point{1, 1},
		position: Point{1, 1},
		offset:   offset,
	}
}

// Width returns the number of matrix columns.
func (s *Segment) Width() int { return s.width }

// Height returns the number of matrix rows.
func (s *Segment) Height() int { return s.height }

// LogicWidth returns the number of room columns.
func (s *Segment) LogicWidth() int { return (s.width - 1) / 2 }

// LogicHeight returns the number of room rows.
func (s *Segment) LogicHeight() int { return (s.height - 1) / 2 }

// Origin returns the matrix coordinate of logical position (1,1).
func (s *Segment) Origin() Point { return s.origin }

// Position returns the robot's logical position in this segment.
func (s *Segment) Position() Point { return s.position }

// Offset returns the segment's placement in world space.
func (s *Segment) Offset() math.Vec3 { return s.offset }

// ToMatrix converts a logical coordinate to a matrix coordinate.
func (s *Segment) ToMatrix(logical Point) Point {
	return s.origin.Add(logical).Sub(Point{1, 1})
}

// ToLogical converts a matrix coordinate to a logical coordinate.
func (s *Segment) ToLogical(matrix Point) Point {
	return matrix.Sub(s.origin).Add(Point{1, 1})
}

// InBounds reports whether a matrix coordinate is inside the grid.
func (s *Segment) InBounds(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < s.width && p.Y < s.height
}

// Cell returns the cell at a matrix coordinate.
func (s *Segment) Cell(x, y int) (Cell, error) {
	p := Point{x, y}
	if !s.InBounds(p) {
		return Cell{}, fmt.Errorf("%w: %v not in %dx%d", ErrOutOfBounds, p, s.width, s.height)
	}
	return *s.at(p), nil
}

// CurrentCell returns the cell under the robot.
func (s *Segment) CurrentCell() Cell {
	return *s.at(s.ToMatrix(s.position))
}

func (s *Segment) at(p Point) *Cell {
	return &s.cells[p.Y*s.width+p.X]
}

// neighbour returns the matrix coordinate of the boundary on side d of the
// robot's current room.
func (s *Segment) neighbour(d Heading) Point {
	return s.ToMatrix(s.position).Add(d.Step())
}

// advance moves the robot one room along h and grows the grid if the new
// room touches an edge. It returns the grown edge, if any.
func (s *Segment) advance(h Heading) (Heading, bool) {
	s.position = s.position.Add(h.Step().Scale(growStep))
	edge, ok := s.edgeAt(s.ToMatrix(s.position))
	if ok {
		s.grow(edge)
	}
	return edge, ok
}

// edgeAt reports which matrix edge a room coordinate lies on or beyond.
func (s *Segment) edgeAt(m Point) (Heading, bool) {
	switch {
	case m.Y <= 0:
		return North, true
	case m.X >= s.width-1:
		return East, true
	case m.Y >= s.height-1:
		return South, true
	case m.X <= 0:
		return West, true
	}
	return 0, false
}

// grow adds growStep empty rows or columns on one edge, reallocating the
// backing store. Growing north or west shifts the origin.
func (s *Segment) grow(edge Heading) {
	w, h := s.width, s.height
	var shift Point
	switch edge {
	case North:
		h += growStep
		shift = Point{0, growStep}
	case South:
		h += growStep
	case East:
		w += growStep
	case West:
		w += growStep
		shift = Point{growStep, 0}
	}

	cells := make([]Cell, w*h)
	for y := 0; y < s.height; y++ {
		dst := (y+shift.Y)*w + shift.X
		copy(cells[dst:dst+s.width], s.cells[y*s.width:(y+1)*s.width])
	}
	s.cells = cells
	s.width, s.height = w, h
	s.origin = s.origin.Add(shift)
}

// Footprint returns the segment's bounding box on the floor plane, in world
// metres, with X mapped to orb X and Z to orb Y.
func (s *Segment) Footprint() orb.Bound {
	g := s.geom
	lo := s.offset.Add(g.localPosition(s.ToLogical(Point{0, 0}))).XZ()
	hi := s.offset.Add(g.localPosition(s.ToLogical(Point{s.width - 1, s.height - 1}))).XZ()
	return orb.Bound{
		Min: orb.Point{lo.X, lo.Y},
		Max: orb.Point{hi.X, hi.Y},
	}
}

// setFloor paints the robot's room. A floor whose kind changes is
// rendered again.
func (s *Segment) setFloor(kind FloorKind, emit func(Event)) {
	m := s.ToMatrix(s.position)
	c := s.at(m)
	switch c.Kind {
	case CellFloor:
		if c.Floor.Kind != kind {
			c.Floor.Kind = kind
			c.Floor.Materialized = false
		}
	case CellEmpty, CellWall:
		*c = Cell{Kind: CellFloor, Floor: &Floor{Kind: kind}}
	}
	if c.Floor.Materialized {
		return
	}
	c.Floor.Materialized = true
	emit(Event{
		Kind:  EventFloor,
		Pose:  s.geom.floorPose(s.offset, s.position),
		Floor: kind,
	})
}

// placeWalls creates a wall on every marked side of the robot's room whose
// boundary is still empty. Existing walls are kept as they are.
func (s *Segment) placeWalls(sides [4]bool, emit func(Event)) {
	for _, d := range Headings {
		if !sides[d] {
			continue
		}
		m := s.neighbour(d)
		c := s.at(m)
		if !c.IsEmpty() {
			continue
		}
		*c = Cell{Kind: CellWall, Wall: &Wall{}}
		s.materializeWall(m, emit)
	}
}

// attachVictim records a victim on the wall at side d of the robot's room,
// creating the wall first if the boundary is empty.
func (s *Segment) attachVictim(d Heading, v Victim, emit func(Event)) {
	m := s.neighbour(d)
	c := s.at(m)
	switch c.Kind {
	case CellEmpty:
		*c = Cell{Kind: CellWall, Wall: &Wall{}}
	case CellFloor:
		// A boundary index never holds a floor.
		return
	case CellWall:
	}
	s.materializeWall(m, emit)
	w := c.Wall
	w.setVictim(v.Kind, v.Side)
	if w.emitted(v.Side) {
		return
	}
	w.markEmitted(v.Side)
	emit(Event{
		Kind:   EventVictim,
		Pose:   s.geom.wallPose(s.offset, s.ToLogical(m)),
		Victim: v,
	})
}

func (s *Segment) materializeWall(m Point, emit func(Event)) {
	w := s.at(m).Wall
	if w.Materialized {
		return
	}
	w.Materialized = true
	emit(Event{
		Kind: EventWall,
		Pose: s.geom.wallPose(s.offset, s.ToLogical(m)),
	})
}

// String dumps the matrix, top row first: '.' empty, 'F' floor, 'W' wall.
func (s *Segment) String() string {
	var b strings.Builder
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			b.WriteByte(' ')
			b.WriteByte(s.cells[y*s.width+x].Kind.Symbol())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
