package maze

import (
	"fmt"

	"github.com/Faultbox/robomap/pkg/math"
	"github.com/Faultbox/robomap/pkg/units"
)

// Snapshot is a serialisable copy of a Map. Restore rebuilds an equivalent
// Map from it.
type Snapshot struct {
	Heading  Heading           `json:"heading" yaml:"heading"`
	Active   int               `json:"active" yaml:"active"`
	TileCM   float64           `json:"tileCm" yaml:"tile_cm"`
	Segments []SegmentSnapshot `json:"segments" yaml:"segments"`
}

// SegmentSnapshot holds one segment. Only non-empty cells are listed.
type SegmentSnapshot struct {
	Width    int            `json:"width" yaml:"width"`
	Height   int            `json:"height" yaml:"height"`
	Origin   Point          `json:"origin" yaml:"origin"`
	Position Point          `json:"position" yaml:"position"`
	Offset   math.Vec3      `json:"offset" yaml:"offset"`
	Cells    []CellSnapshot `json:"cells" yaml:"cells"`
}

// CellSnapshot is a non-empty cell at a matrix coordinate.
type CellSnapshot struct {
	X            int         `json:"x" yaml:"x"`
	Y            int         `json:"y" yaml:"y"`
	Kind         CellKind    `json:"kind" yaml:"kind"`
	Floor        *FloorKind  `json:"floor,omitempty" yaml:"floor,omitempty"`
	Left         *VictimKind `json:"left,omitempty" yaml:"left,omitempty"`
	Right        *VictimKind `json:"right,omitempty" yaml:"right,omitempty"`
	Materialized bool        `json:"materialized" yaml:"materialized"`
}

// Snapshot copies the map's state.
func (m *Map) Snapshot() Snapshot {
	snap := Snapshot{
		Heading:  m.heading,
		Active:   m.active,
		TileCM:   m.geom.Tile.Centimeters(),
		Segments: make([]SegmentSnapshot, 0, len(m.segments)),
	}
	for _, s := range m.segments {
		snap.Segments = append(snap.Segments, s.snapshot())
	}
	return snap
}

func (s *Segment) snapshot() SegmentSnapshot {
	out := SegmentSnapshot{
		Width:    s.width,
		Height:   s.height,
		Origin:   s.origin,
		Position: s.position,
		Offset:   s.offset,
	}
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			c := s.cells[y*s.width+x]
			cs := CellSnapshot{X: x, Y: y, Kind: c.Kind}
			switch c.Kind {
			case CellEmpty:
				continue
			case CellFloor:
				k := c.Floor.Kind
				cs.Floor = &k
				cs.Materialized = c.Floor.Materialized
			case CellWall:
				cs.Left = copyKind(c.Wall.Left)
				cs.Right = copyKind(c.Wall.Right)
				cs.Materialized = c.Wall.Materialized
			}
			out.Cells = append(out.Cells, cs)
		}
	}
	return out
}

func copyKind(k *VictimKind) *VictimKind {
	if k == nil {
		return nil
	}
	v := *k
	return &v
}

// Restore rebuilds a Map from a snapshot. Nothing is rendered; content
// already marked materialized stays so, and victims are considered emitted.
func Restore(snap Snapshot, cfg Config) (*Map, error) {
	if len(snap.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrInvalidSnapshot)
	}
	if snap.Active < 0 || snap.Active >= len(snap.Segments) {
		return nil, fmt.Errorf("%w: active segment %d of %d", ErrInvalidSnapshot, snap.Active, len(snap.Segments))
	}
	if snap.Heading > West {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, ErrInvalidHeading)
	}

	geom := cfg.Geometry.orDefault()
	if snap.TileCM > 0 {
		geom.Tile = units.Centimeters(snap.TileCM)
	}
	m := &Map{
		active:   snap.Active,
		heading:  snap.Heading,
		geom:     geom,
		renderer: cfg.Renderer,
	}
	if m.renderer == nil {
		m.renderer = discardRenderer{}
	}
	for i, ss := range snap.Segments {
		s, err := restoreSegment(ss, m.geom)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		m.segments = append(m.segments, s)
	}
	return m, nil
}

func restoreSegment(ss SegmentSnapshot, g Geometry) (*Segment, error) {
	if ss.Width < initialSize || ss.Height < initialSize || ss.Width%2 == 0 || ss.Height%2 == 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidSnapshot, ss.Width, ss.Height)
	}
	s := &Segment{
		cells:    make([]Cell, ss.Width*ss.Height),
		width:    ss.Width,
		height:   ss.Height,
		origin:   ss.Origin,
		position: ss.Position,
		offset:   ss.Offset,
		geom:     g,
	}
	if ss.Origin.X%2 == 0 || ss.Origin.Y%2 == 0 {
		return nil, fmt.Errorf("%w: origin %v is not a room", ErrInvalidSnapshot, ss.Origin)
	}
	if ss.Position.X%2 == 0 || ss.Position.Y%2 == 0 {
		return nil, fmt.Errorf("%w: position %v is not a room", ErrInvalidSnapshot, ss.Position)
	}
	// The robot's room needs a boundary on every side.
	if p := s.ToMatrix(ss.Position); p.X < 1 || p.Y < 1 || p.X > s.width-2 || p.Y > s.height-2 {
		return nil, fmt.Errorf("%w: position %v outside grid", ErrInvalidSnapshot, ss.Position)
	}
	for _, cs := range ss.Cells {
		p := Point{cs.X, cs.Y}
		if !s.InBounds(p) {
			return nil, fmt.Errorf("%w: cell %v", ErrOutOfBounds, p)
		}
		c := s.at(p)
		switch cs.Kind {
		case CellEmpty:
		case CellFloor:
			if cs.Floor == nil {
				return nil, fmt.Errorf("%w: floor cell %v without kind", ErrInvalidSnapshot, p)
			}
			if _, err := ParseFloorKind(int(*cs.Floor)); err != nil {
				return nil, fmt.Errorf("%w: cell %v: %w", ErrInvalidSnapshot, p, err)
			}
			*c = Cell{Kind: CellFloor, Floor: &Floor{Kind: *cs.Floor, Materialized: cs.Materialized}}
		case CellWall:
			w := &Wall{Materialized: cs.Materialized}
			for _, side := range []Side{Left, Right} {
				k := cs.Left
				if side == Right {
					k = cs.Right
				}
				if k == nil {
					continue
				}
				if !k.Valid() {
					return nil, fmt.Errorf("%w: cell %v: %w", ErrInvalidSnapshot, p, ErrInvalidVictimCode)
				}
				w.setVictim(*k, side)
				w.markEmitted(side)
			}
			*c = Cell{Kind: CellWall, Wall: w}
		default:
			return nil, fmt.Errorf("%w: cell %v kind %d", ErrInvalidSnapshot, p, cs.Kind)
		}
	}
	return s, nil
}
