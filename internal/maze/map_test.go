package maze

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type recorder struct {
	events []Event
}

func (r *recorder) Render(e Event) { r.events = append(r.events, e) }

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func mustApply(t *testing.T, m *Map, obs Observation) {
	t.Helper()
	require.NoError(t, m.Apply(obs))
}

func cellAt(t *testing.T, m *Map, segment, x, y int) Cell {
	t.Helper()
	c, err := m.Cell(segment, x, y)
	require.NoError(t, err)
	return c
}

func TestNewMap(t *testing.T) {
	rec := &recorder{}
	m := NewMap(Config{Renderer: rec})

	require.Len(t, m.Segments(), 1)
	assert.Equal(t, 0, m.ActiveIndex())
	assert.Equal(t, North, m.Heading())

	s := m.Active()
	assert.Equal(t, 3, s.Width())
	assert.Equal(t, 3, s.Height())
	assert.Equal(t, Point{1, 1}, s.Origin())
	assert.Equal(t, Point{1, 1}, s.Position())

	require.Len(t, rec.events, 1)
	assert.Equal(t, EventSegment, rec.events[0].Kind)
	assert.Equal(t, 0, rec.events[0].Segment)
}

func TestApplyWallsFacingNorth(t *testing.T) {
	m := NewMap(Config{})
	mustApply(t, m, Observation{Direction: ptr(0), Walls: ptr(0b0101)})

	assert.Equal(t, CellWall, cellAt(t, m, 0, 1, 0).Kind, "north")
	assert.Equal(t, CellWall, cellAt(t, m, 0, 1, 2).Kind, "south")
	assert.Equal(t, CellEmpty, cellAt(t, m, 0, 2, 1).Kind, "east")
	assert.Equal(t, CellEmpty, cellAt(t, m, 0, 0, 1).Kind, "west")
}

func TestApplyVictimFacingSouth(t *testing.T) {
	m := NewMap(Config{})
	mustApply(t, m, Observation{Direction: ptr(2), Victim: ptr(112)})

	c := cellAt(t, m, 0, 0, 1)
	require.Equal(t, CellWall, c.Kind)
	k, ok := c.Wall.Victim(Right)
	require.True(t, ok)
	assert.Equal(t, VictimRed, k)
	_, ok = c.Wall.Victim(Left)
	assert.False(t, ok)

	for _, p := range []Point{{1, 0}, {2, 1}, {1, 2}} {
		assert.Equal(t, CellEmpty, cellAt(t, m, 0, p.X, p.Y).Kind, "boundary %v", p)
	}
}

func TestApplyVictimFlipsFacingNorth(t *testing.T) {
	m := NewMap(Config{})
	mustApply(t, m, Observation{Direction: ptr(0), Victim: ptr(1)})

	c := cellAt(t, m, 0, 0, 1)
	require.Equal(t, CellWall, c.Kind)
	k, ok := c.Wall.Victim(Right)
	require.True(t, ok)
	assert.Equal(t, VictimH, k)
}

func TestApplyRamp(t *testing.T) {
	rec := &recorder{}
	m := NewMap(Config{Renderer: rec})
	mustApply(t, m, Observation{Floor: ptr(0), Ramp: ptr(30.0), RampLength: ptr(50.0)})

	require.Len(t, m.Segments(), 2)
	assert.Equal(t, 1, m.ActiveIndex())

	off := m.Active().Offset()
	assert.InDelta(t, 0.5*gomath.Sin(gomath.Pi/6), off.Y, 1e-9)
	assert.InDelta(t, 0.25, off.Y, 1e-9)
	assert.InDelta(t, 0, off.X, 1e-9)
	assert.InDelta(t, 0.30-0.5*gomath.Cos(gomath.Pi/6), off.Z, 1e-9)
	assert.Equal(t, 1, rec.count(EventRamp))
	assert.Equal(t, 2, rec.count(EventSegment))

	mustApply(t, m, Observation{Floor: ptr(2)})
	assert.Equal(t, FloorBlue, cellAt(t, m, 1, 1, 1).Floor.Kind)
	assert.Equal(t, FloorRegular, cellAt(t, m, 0, 1, 1).Floor.Kind, "old segment is frozen")
}

func TestRampOffsetPerHeading(t *testing.T) {
	run := 0.5 * gomath.Cos(gomath.Pi/6)
	tests := []struct {
		heading int
		x, z    float64
	}{
		{0, 0, 0.30 - run},
		{1, -0.30 + run, 0},
		{2, 0, -0.30 + run},
		{3, 0.30 - run, 0},
	}
	for _, tt := range tests {
		m := NewMap(Config{})
		mustApply(t, m, Observation{Direction: ptr(tt.heading), Ramp: ptr(30.0), RampLength: ptr(50.0)})
		off := m.Active().Offset()
		assert.InDelta(t, tt.x, off.X, 1e-9, "heading %d x", tt.heading)
		assert.InDelta(t, tt.z, off.Z, 1e-9, "heading %d z", tt.heading)
	}
}

func TestApplyRampWithoutLength(t *testing.T) {
	m := NewMap(Config{})
	err := m.Apply(Observation{Floor: ptr(1), Ramp: ptr(20.0)})
	require.ErrorIs(t, err, ErrInvalidRamp)

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FieldRamp, fe.Field)
	assert.Len(t, m.Segments(), 1)
	assert.Equal(t, FloorBlack, cellAt(t, m, 0, 1, 1).Floor.Kind)
}

func TestApplyInvalidDirectionRejectsUpdate(t *testing.T) {
	m := NewMap(Config{})
	mustApply(t, m, Observation{Direction: ptr(1)})

	err := m.Apply(Observation{Direction: ptr(7), PositionUpdate: ptr(1), Floor: ptr(1), Walls: ptr(15)})
	require.ErrorIs(t, err, ErrInvalidHeading)
	assert.Equal(t, East, m.Heading())
	assert.Equal(t, Point{1, 1}, m.Active().Position())
	assert.Equal(t, " . . .\n . . .\n . . .\n", m.Active().String())
}

func TestApplyInvalidFieldsAreSkipped(t *testing.T) {
	m := NewMap(Config{})
	err := m.Apply(Observation{
		PositionUpdate: ptr(2),
		Floor:          ptr(9),
		Walls:          ptr(0b0001),
		Victim:         ptr(55),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPositionUpdate)
	assert.ErrorIs(t, err, ErrInvalidFloorCode)
	assert.ErrorIs(t, err, ErrInvalidVictimCode)
	assert.NotErrorIs(t, err, ErrInvalidWallMask)

	assert.Equal(t, Point{1, 1}, m.Active().Position())
	assert.Equal(t, CellEmpty, cellAt(t, m, 0, 1, 1).Kind)
	assert.Equal(t, CellWall, cellAt(t, m, 0, 1, 0).Kind)
}

func TestPositionUpdateSteps(t *testing.T) {
	tests := []struct {
		heading int
		step    Point
	}{
		{0, Point{0, -2}},
		{1, Point{2, 0}},
		{2, Point{0, 2}},
		{3, Point{-2, 0}},
	}
	for _, tt := range tests {
		m := NewMap(Config{})
		mustApply(t, m, Observation{Direction: ptr(tt.heading)})
		for i := 0; i < 5; i++ {
			before := m.Active().Position()
			mustApply(t, m, Observation{PositionUpdate: ptr(1), Floor: ptr(0)})
			assert.Equal(t, before.Add(tt.step), m.Active().Position(), "heading %d step %d", tt.heading, i)
		}
		mustApply(t, m, Observation{PositionUpdate: ptr(0)})
		assert.Equal(t, Point{1, 1}.Add(tt.step.Scale(5)), m.Active().Position())
	}
}

func TestGrowthKeepsContent(t *testing.T) {
	tests := []struct {
		name       string
		heading    int
		wantWidth  int
		wantHeight int
		wantOrigin Point
	}{
		{"north", 0, 3, 5, Point{1, 3}},
		{"east", 1, 5, 3, Point{1, 1}},
		{"south", 2, 3, 5, Point{1, 1}},
		{"west", 3, 5, 3, Point{3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMap(Config{})
			mustApply(t, m, Observation{Direction: ptr(tt.heading), Floor: ptr(3)})
			mustApply(t, m, Observation{PositionUpdate: ptr(1), Floor: ptr(1)})

			s := m.Active()
			assert.Equal(t, tt.wantWidth, s.Width())
			assert.Equal(t, tt.wantHeight, s.Height())
			assert.Equal(t, tt.wantOrigin, s.Origin())

			start := s.ToMatrix(Point{1, 1})
			assert.Equal(t, FloorCheckpoint, cellAt(t, m, 0, start.X, start.Y).Floor.Kind)
			assert.Equal(t, FloorBlack, s.CurrentCell().Floor.Kind)
		})
	}
}

func TestGrowthIsMonotonic(t *testing.T) {
	m := NewMap(Config{})
	route := []int{1, 1, 2, 2, 3, 3, 3, 3, 0, 0, 0, 0, 1}
	w, h := 3, 3
	for _, d := range route {
		mustApply(t, m, Observation{Direction: ptr(d), PositionUpdate: ptr(1), Floor: ptr(0), Walls: ptr(0b1010)})
		s := m.Active()
		require.GreaterOrEqual(t, s.Width(), w)
		require.GreaterOrEqual(t, s.Height(), h)
		w, h = s.Width(), s.Height()

		p := s.ToMatrix(s.Position())
		require.True(t, s.InBounds(p), "position %v maps to %v in %dx%d", s.Position(), p, w, h)
		require.True(t, p.X > 0 && p.Y > 0 && p.X < w-1 && p.Y < h-1, "room %v touches the edge", p)
		require.Equal(t, CellFloor, s.CurrentCell().Kind)
	}
	assert.Equal(t, 11, m.Active().Width())
	assert.Equal(t, 11, m.Active().Height())
}

func TestSharedWallIsCreatedOnce(t *testing.T) {
	rec := &recorder{}
	m := NewMap(Config{Renderer: rec})

	mustApply(t, m, Observation{Direction: ptr(1), Walls: ptr(int(WallForward))})
	shared := cellAt(t, m, 0, 2, 1).Wall
	require.NotNil(t, shared)
	mustApply(t, m, Observation{Direction: ptr(2), Victim: ptr(1)})

	mustApply(t, m, Observation{Direction: ptr(1), PositionUpdate: ptr(1), Walls: ptr(int(WallBackward))})
	c := cellAt(t, m, 0, 2, 1)
	assert.Same(t, shared, c.Wall)
	k, ok := c.Wall.Victim(Left)
	require.True(t, ok)
	assert.Equal(t, VictimH, k)
	assert.Equal(t, 1, rec.count(EventWall))
}

func TestVictimOrderDoesNotMatter(t *testing.T) {
	left := func(m *Map) {
		mustApply(t, m, Observation{Direction: ptr(2), Victim: ptr(1)})
	}
	right := func(m *Map) {
		mustApply(t, m, Observation{Direction: ptr(1), PositionUpdate: ptr(1)})
		mustApply(t, m, Observation{Direction: ptr(0), Victim: ptr(10)})
		mustApply(t, m, Observation{Direction: ptr(3), PositionUpdate: ptr(1)})
	}

	a := NewMap(Config{})
	left(a)
	right(a)

	b := NewMap(Config{})
	right(b)
	left(b)

	wa, wb := cellAt(t, a, 0, 2, 1).Wall, cellAt(t, b, 0, 2, 1).Wall
	require.NotNil(t, wa)
	require.NotNil(t, wb)
	if diff := cmp.Diff(wa, wb, cmp.AllowUnexported(Wall{})); diff != "" {
		t.Errorf("wall differs by arrival order (-left first +right first):\n%s", diff)
	}
	kl, _ := wa.Victim(Left)
	kr, _ := wa.Victim(Right)
	assert.Equal(t, VictimH, kl)
	assert.Equal(t, VictimGreen, kr)
}

func TestRendererEmitsOnce(t *testing.T) {
	rec := &recorder{}
	m := NewMap(Config{Renderer: rec})

	obs := Observation{Floor: ptr(0), Walls: ptr(15), Victim: ptr(12)}
	mustApply(t, m, obs)
	mustApply(t, m, obs)

	assert.Equal(t, 1, rec.count(EventFloor))
	assert.Equal(t, 4, rec.count(EventWall))
	assert.Equal(t, 1, rec.count(EventVictim))

	mustApply(t, m, Observation{Floor: ptr(3)})
	assert.Equal(t, 2, rec.count(EventFloor), "floor kind change is rendered")
}

func TestRenderPoses(t *testing.T) {
	rec := &recorder{}
	m := NewMap(Config{Renderer: rec})
	mustApply(t, m, Observation{Direction: ptr(1), PositionUpdate: ptr(1), Floor: ptr(0), Walls: ptr(int(WallBackward))})

	var floor, wall Event
	for _, e := range rec.events {
		switch e.Kind {
		case EventFloor:
			floor = e
		case EventWall:
			wall = e
		}
	}
	assert.InDelta(t, 0.30, floor.Pose.Position.X, 1e-9)
	assert.InDelta(t, 0, floor.Pose.Position.Z, 1e-9)

	assert.InDelta(t, 0.15, wall.Pose.Position.X, 1e-9)
	assert.InDelta(t, 0.085, wall.Pose.Position.Y, 1e-9)
	assert.InDelta(t, gomath.Pi/2, wall.Pose.Rotation.Yaw(), 1e-9)
}

func TestCellQueries(t *testing.T) {
	m := NewMap(Config{})

	_, err := m.Cell(1, 0, 0)
	assert.ErrorIs(t, err, ErrUnknownSegment)
	_, err = m.Cell(-1, 0, 0)
	assert.ErrorIs(t, err, ErrUnknownSegment)
	_, err = m.Cell(0, 3, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Cell(0, 0, -1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMapString(t *testing.T) {
	m := NewMap(Config{})
	mustApply(t, m, Observation{Floor: ptr(0), Walls: ptr(0b0101)})

	want := "segment 0 (active)\n" +
		" . W .\n" +
		" . F .\n" +
		" . W .\n"
	assert.Equal(t, want, m.String())
}

func TestStubsFailLoudly(t *testing.T) {
	m := NewMap(Config{})

	res, err := m.LoopClosure(0)
	assert.ErrorIs(t, err, ErrInvalidRadius)
	assert.Equal(t, MergeFailed, res)

	res, err = m.LoopClosure(3)
	assert.ErrorIs(t, err, ErrUnimplemented)
	assert.Equal(t, MergeFailed, res)

	path, err := m.Pathfind(Point{1, 1}, Point{3, 1})
	assert.ErrorIs(t, err, ErrUnimplemented)
	assert.Nil(t, path)
}

func TestFootprint(t *testing.T) {
	m := NewMap(Config{})
	b := m.Active().Footprint()
	assert.InDelta(t, -0.15, b.Min.X(), 1e-9)
	assert.InDelta(t, -0.15, b.Min.Y(), 1e-9)
	assert.InDelta(t, 0.15, b.Max.X(), 1e-9)
	assert.InDelta(t, 0.15, b.Max.Y(), 1e-9)

	mustApply(t, m, Observation{Direction: ptr(3), PositionUpdate: ptr(1)})
	b = m.Active().Footprint()
	assert.InDelta(t, -0.45, b.Min.X(), 1e-9)
	assert.InDelta(t, 0.15, b.Max.X(), 1e-9)
}
