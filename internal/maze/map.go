package maze

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/robomap/pkg/math"
)

// Config configures a Map.
type Config struct {
	Geometry Geometry
	Renderer Renderer
}

// Map is the multi-level map of one mission: an append-only list of
// segments linked by ramps, the active segment and the robot's heading.
//
// A Map is not safe for concurrent use. Updates must be applied one at a
// time from a single goroutine.
type Map struct {
	segments []*Segment
	active   int
	heading  Heading
	geom     Geometry
	renderer Renderer
}

// NewMap creates a map with a single segment at the world origin.
func NewMap(cfg Config) *Map {
	m := &Map{
		geom:     cfg.Geometry.orDefault(),
		renderer: cfg.Renderer,
	}
	if m.renderer == nil {
		m.renderer = discardRenderer{}
	}
	m.appendSegment(math.Vec3{})
	return m
}

// Observation is the content of one update, without its sequence id. Nil
// fields are absent.
type Observation struct {
	Direction      *int
	PositionUpdate *int
	Floor          *int
	Walls          *int
	Victim         *int
	Ramp           *float64 // degrees
	RampLength     *float64 // centimetres
}

// Apply applies one observation in field order: direction, positionUpdate,
// floor, walls, victim, ramp.
//
// An invalid direction rejects the whole observation and nothing changes.
// Any other invalid field is skipped while the remaining fields still
// apply; the returned error then joins one *FieldError per skipped field.
func (m *Map) Apply(obs Observation) error {
	if obs.Direction != nil {
		h, err := ParseHeading(*obs.Direction)
		if err != nil {
			return &FieldError{Field: FieldDirection, Value: *obs.Direction, Err: err}
		}
		m.heading = h
	}

	var errs []error
	fault := func(f Field, v any, err error) {
		errs = append(errs, &FieldError{Field: f, Value: v, Err: err})
	}
	seg := m.segments[m.active]

	if obs.PositionUpdate != nil {
		switch *obs.PositionUpdate {
		case 0:
		case 1:
			seg.advance(m.heading)
		default:
			fault(FieldPositionUpdate, *obs.PositionUpdate, ErrInvalidPositionUpdate)
		}
	}

	if obs.Floor != nil {
		if kind, err := ParseFloorKind(*obs.Floor); err != nil {
			fault(FieldFloor, *obs.Floor, err)
		} else {
			seg.setFloor(kind, m.emitter(m.active))
		}
	}

	if obs.Walls != nil {
		if mask, err := ParseWallMask(*obs.Walls); err != nil {
			fault(FieldWalls, *obs.Walls, err)
		} else {
			seg.placeWalls(mask.Absolute(m.heading), m.emitter(m.active))
		}
	}

	if obs.Victim != nil {
		if v, err := DecodeVictim(*obs.Victim); err != nil {
			fault(FieldVictim, *obs.Victim, err)
		} else {
			target := victimWall(m.heading, v.Side)
			v.Side = storedSide(m.heading, v.Side)
			seg.attachVictim(target, v, m.emitter(m.active))
		}
	}

	if obs.Ramp != nil {
		if obs.RampLength == nil {
			fault(FieldRamp, *obs.Ramp, fmt.Errorf("%w: missing rampLength", ErrInvalidRamp))
		} else if r, err := NewRamp(*obs.Ramp, *obs.RampLength); err != nil {
			fault(FieldRamp, *obs.Ramp, err)
		} else {
			m.traverse(r)
		}
	}

	return errors.Join(errs...)
}

// traverse renders the ramp under the robot and continues on a new segment
// beyond it.
func (m *Map) traverse(r Ramp) {
	seg := m.segments[m.active]
	r.Width = m.geom.Tile
	m.renderer.Render(Event{
		Kind:    EventRamp,
		Segment: m.active,
		Pose:    m.geom.rampPose(seg.offset, seg.position, m.heading, r),
		Ramp:    r,
	})
	m.appendSegment(m.geom.nextSegmentOffset(seg.offset, seg.position, m.heading, r))
}

func (m *Map) appendSegment(offset math.Vec3) {
	m.segments = append(m.segments, newSegment(offset, m.geom))
	m.active = len(m.segments) - 1
	m.renderer.Render(Event{
		Kind:    EventSegment,
		Segment: m.active,
		Pose:    Pose{Position: offset, Rotation: math.QuatIdentity()},
		Offset:  offset,
	})
}

func (m *Map) emitter(segment int) func(Event) {
	return func(e Event) {
		e.Segment = segment
		m.renderer.Render(e)
	}
}

// Segments returns all segments in discovery order.
func (m *Map) Segments() []*Segment {
	out := make([]*Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// Active returns the segment receiving updates.
func (m *Map) Active() *Segment { return m.segments[m.active] }

// ActiveIndex returns the index of the active segment.
func (m *Map) ActiveIndex() int { return m.active }

// Heading returns the robot's current heading.
func (m *Map) Heading() Heading { return m.heading }

// Geometry returns the measures the map was built with.
func (m *Map) Geometry() Geometry { return m.geom }

// Cell returns the cell at a matrix coordinate of a segment.
func (m *Map) Cell(segment, x, y int) (Cell, error) {
	if segment < 0 || segment >= len(m.segments) {
		return Cell{}, fmt.Errorf("%w: %d", ErrUnknownSegment, segment)
	}
	return m.segments[segment].Cell(x, y)
}

// String dumps every segment's matrix.
func (m *Map) String() string {
	var b strings.Builder
	for i, s := range m.segments {
		fmt.Fprintf(&b, "segment %d", i)
		if i == m.active {
			b.WriteString(" (active)")
		}
		b.WriteByte('\n')
		b.WriteString(s.String())
	}
	return b.String()
}

// MergeResult is the outcome of a loop closure attempt.
type MergeResult uint8

// Loop closure outcomes.
const (
	MergeFailed MergeResult = iota
	MergeNone
	MergeSucceeded
)

func (r MergeResult) String() string {
	switch r {
	case MergeSucceeded:
		return "merged"
	case MergeNone:
		return "no merge"
	default:
		return "failed"
	}
}

// LoopClosure looks for two segments overlapping within radius matrix cells
// and merges them. Merging is not implemented yet.
func (m *Map) LoopClosure(radius int) (MergeResult, error) {
	if radius < 1 {
		return MergeFailed, fmt.Errorf("%w: %d", ErrInvalidRadius, radius)
	}
	return MergeFailed, fmt.Errorf("loop closure: %w", ErrUnimplemented)
}

// Pathfind returns the shortest route between two logical positions of the
// active segment. Path finding is not implemented yet.
func (m *Map) Pathfind(from, to Point) ([]Point, error) {
	return nil, fmt.Errorf("pathfind %v -> %v: %w", from, to, ErrUnimplemented)
}
