package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/robomap/internal/maze"
	"github.com/Faultbox/robomap/internal/network"
	"github.com/Faultbox/robomap/internal/store"
)

type fakeJournal struct {
	mu        sync.Mutex
	sessions  []store.Session
	ended     map[uuid.UUID]string
	faults    map[uuid.UUID]string
	packets   []store.Packet
	snapshots map[uuid.UUID][]int64
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{
		ended:     map[uuid.UUID]string{},
		faults:    map[uuid.UUID]string{},
		snapshots: map[uuid.UUID][]int64{},
	}
}

func (j *fakeJournal) CreateSession(_ context.Context, s store.Session) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sessions = append(j.sessions, s)
	return nil
}

func (j *fakeJournal) EndSession(_ context.Context, id uuid.UUID, _ time.Time, fault string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ended[id] = fault
	return nil
}

func (j *fakeJournal) FaultSession(_ context.Context, id uuid.UUID, fault string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.faults[id] = fault
	return nil
}

func (j *fakeJournal) AppendPacket(_ context.Context, p store.Packet) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.packets = append(j.packets, p)
	return nil
}

func (j *fakeJournal) SaveSnapshot(_ context.Context, id uuid.UUID, seq int64, _ maze.Snapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snapshots[id] = append(j.snapshots[id], seq)
	return nil
}

func frame(conn uint64, data string) network.Frame {
	return network.Frame{Conn: conn, Remote: "robot", Data: []byte(data), Received: time.Now()}
}

func TestRunnerSessions(t *testing.T) {
	ctx := context.Background()
	j := newFakeJournal()
	var events []maze.Event
	r := NewRunner(Config{
		Journal:       j,
		SnapshotEvery: 2,
		Renderer:      maze.RendererFunc(func(e maze.Event) { events = append(events, e) }),
	})
	assert.Nil(t, r.State())

	require.NoError(t, r.Handle(ctx, frame(1, `{"id":0,"floor":0}`)))
	require.NoError(t, r.Handle(ctx, frame(1, `{"id":1,"walls":15}`)))
	first := r.Current().ID

	st := r.State()
	require.NotNil(t, st)
	assert.Equal(t, first, st.SessionID)
	assert.Equal(t, int64(2), st.Packets)
	assert.Equal(t, int64(2), st.Expected)
	assert.Contains(t, st.Dump, " W F W")
	assert.Len(t, st.Footprints, 1)

	// A new connection restarts the sequence with a fresh map.
	require.NoError(t, r.Handle(ctx, frame(2, `{"id":0}`)))
	second := r.Current().ID
	assert.NotEqual(t, first, second)
	c, err := r.Current().Map().Cell(0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, maze.CellEmpty, c.Kind)

	require.NoError(t, r.Handle(ctx, network.Frame{Conn: 2, Closed: true}))
	assert.Nil(t, r.Current())
	assert.True(t, r.State().Ended)

	require.Len(t, j.sessions, 2)
	assert.Contains(t, j.ended, first)
	assert.Contains(t, j.ended, second)
	assert.Len(t, j.packets, 3)
	assert.Equal(t, []int64{1}, j.snapshots[first], "final snapshot not repeated after the periodic one")
	assert.Equal(t, []int64{0}, j.snapshots[second], "final snapshot keyed by the last packet's seq")

	var segments int
	for _, e := range events {
		if e.Kind == maze.EventSegment {
			segments++
		}
	}
	assert.Equal(t, 2, segments, "one initial segment per session")
}

func TestRunnerPacketLoss(t *testing.T) {
	ctx := context.Background()
	j := newFakeJournal()
	r := NewRunner(Config{Journal: j})

	require.NoError(t, r.Handle(ctx, frame(1, `{"id":0}`)))
	err := r.Handle(ctx, frame(1, `{"id":2}`))
	require.Error(t, err)
	err = r.Handle(ctx, frame(1, `{"id":1}`))
	assert.ErrorIs(t, err, ErrSessionFaulted)

	id := r.Current().ID
	assert.Contains(t, j.faults[id], "expected id 1, received 2")
	assert.NotEmpty(t, r.State().Fault)

	outcomes := make([]store.Outcome, 0, len(j.packets))
	for _, p := range j.packets {
		outcomes = append(outcomes, p.Outcome)
	}
	assert.Equal(t, []store.Outcome{store.OutcomeApplied, store.OutcomeLost, store.OutcomeIgnored}, outcomes)

	// Reconnecting recovers.
	require.NoError(t, r.Handle(ctx, frame(2, `{"id":0}`)))
	assert.False(t, r.Current().Faulted())
}

func TestRunnerRampSnapshot(t *testing.T) {
	ctx := context.Background()
	j := newFakeJournal()
	r := NewRunner(Config{Journal: j})

	require.NoError(t, r.Handle(ctx, frame(1, `{"id":0,"ramp":20,"rampLength":40}`)))
	id := r.Current().ID
	assert.Equal(t, []int64{0}, j.snapshots[id])
	assert.Len(t, r.State().Snapshot.Segments, 2)
}

func TestRunnerRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		states []*State
	)
	r := NewRunner(Config{OnState: func(s *State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}})

	in := make(chan network.Frame, 4)
	in <- frame(1, `{"id":0,"floor":3}`)
	in <- frame(1, `{"id":1,"direction":1,"positionUpdate":1,"floor":0}`)
	close(in)

	require.NoError(t, r.Run(ctx, in))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 3)
	last := states[len(states)-1]
	assert.True(t, last.Ended)
	assert.Equal(t, maze.East, last.Snapshot.Heading)
	assert.Equal(t, 5, last.Snapshot.Segments[0].Width)
}
