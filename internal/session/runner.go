package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/Faultbox/robomap/internal/maze"
	"github.com/Faultbox/robomap/internal/network"
	"github.com/Faultbox/robomap/internal/network/packets"
	"github.com/Faultbox/robomap/internal/store"
)

// Journal persists sessions and their packets. *store.Store implements it.
type Journal interface {
	CreateSession(ctx context.Context, sess store.Session) error
	EndSession(ctx context.Context, id uuid.UUID, endedAt time.Time, fault string) error
	FaultSession(ctx context.Context, id uuid.UUID, fault string) error
	AppendPacket(ctx context.Context, p store.Packet) error
	SaveSnapshot(ctx context.Context, id uuid.UUID, seq int64, snap maze.Snapshot) error
}

// Config configures a Runner.
type Config struct {
	Geometry      maze.Geometry
	Renderer      maze.Renderer // receives map events of the current session
	Journal       Journal       // optional
	SnapshotEvery int           // packets between journal snapshots, 0 for ramps only
	OnState       func(*State)  // called after every published state
	Log           *zap.Logger
}

// State is an immutable view of the current session, published after
// every packet for readers on other goroutines.
type State struct {
	SessionID  uuid.UUID     `json:"session"`
	Conn       uint64        `json:"conn"`
	Remote     string        `json:"remote"`
	Started    time.Time     `json:"started"`
	Ended      bool          `json:"ended"`
	Packets    int64         `json:"packets"`
	Expected   int64         `json:"expected"`
	Fault      string        `json:"fault,omitempty"`
	Snapshot   maze.Snapshot `json:"snapshot"`
	Footprints []orb.Bound   `json:"-"`
	Dump       string        `json:"dump"`
}

// Runner feeds frames from all sources into sessions, one frame at a time.
// It is the only goroutine that touches a session's map.
type Runner struct {
	cfg     Config
	log     *zap.Logger
	current *Session
	snapSeq int64 // seq of the current session's last journal snapshot, -1 for none
	state   atomic.Pointer[State]
}

// NewRunner creates a runner.
func NewRunner(cfg Config) *Runner {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, log: log}
}

// State returns the latest published state, or nil before the first
// session.
func (r *Runner) State() *State {
	return r.state.Load()
}

// Current returns the current session. Only safe from the Run goroutine.
func (r *Runner) Current() *Session {
	return r.current
}

// Run consumes frames until in is closed or ctx is cancelled, then ends
// the current session.
func (r *Runner) Run(ctx context.Context, in <-chan network.Frame) error {
	defer r.end(context.WithoutCancel(ctx))
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-in:
			if !ok {
				return nil
			}
			r.Handle(ctx, f)
		}
	}
}

// Handle processes one frame and returns the handling error of its
// packet, if any. A frame from a new connection starts a new session.
func (r *Runner) Handle(ctx context.Context, f network.Frame) error {
	if f.Closed {
		if r.current != nil && r.current.Conn == f.Conn {
			r.end(ctx)
		}
		return nil
	}

	if r.current == nil || r.current.Conn != f.Conn {
		r.end(ctx)
		r.start(ctx, f)
	}
	s := r.current
	log := r.log.With(zap.Stringer("session", s.ID))

	res, err := s.Handle(f.Data)
	switch {
	case err == nil:
		log.Debug("packet applied", zap.Int64("packet", *res.PacketID))
	case errors.Is(err, packets.ErrPacketLoss):
		log.Error("packet loss, session faulted", zap.Error(err))
	case errors.Is(err, ErrSessionFaulted):
		log.Debug("packet ignored", zap.Int64("seq", res.Seq))
	default:
		log.Warn("packet not fully applied",
			zap.Int64("seq", res.Seq),
			zap.String("outcome", string(res.Outcome)),
			zap.Error(err))
	}
	if res.Ramp {
		log.Info("ramp traversed, new segment", zap.Int("segment", s.Map().ActiveIndex()))
	}

	r.journal(ctx, s, f, res, err)
	r.publish(false)
	return err
}

func (r *Runner) start(ctx context.Context, f network.Frame) {
	cfg := maze.Config{Geometry: r.cfg.Geometry, Renderer: r.cfg.Renderer}
	s := New(f.Conn, f.Remote, cfg)
	if !f.Received.IsZero() {
		s.Started = f.Received
	}
	r.current = s
	r.snapSeq = -1
	r.log.Info("session started",
		zap.Stringer("session", s.ID),
		zap.Uint64("conn", s.Conn),
		zap.String("remote", s.Remote))

	if j := r.cfg.Journal; j != nil {
		err := j.CreateSession(ctx, store.Session{ID: s.ID, Conn: s.Conn, Remote: s.Remote, StartedAt: s.Started})
		if err != nil {
			r.log.Error("journal session", zap.Stringer("session", s.ID), zap.Error(err))
		}
	}
}

func (r *Runner) end(ctx context.Context) {
	s := r.current
	if s == nil {
		return
	}
	r.publish(true)
	r.current = nil

	fault := ""
	if s.Faulted() {
		fault = s.Fault().Error()
	}
	r.log.Info("session ended",
		zap.Stringer("session", s.ID),
		zap.Int64("packets", s.Arrived()),
		zap.String("fault", fault))

	if j := r.cfg.Journal; j != nil {
		// Snapshots are keyed by the seq of the last packet they include.
		if last := s.Arrived() - 1; last >= 0 && last != r.snapSeq {
			r.snapshot(ctx, s, last)
		}
		if err := j.EndSession(ctx, s.ID, time.Now(), fault); err != nil {
			r.log.Error("journal session end", zap.Stringer("session", s.ID), zap.Error(err))
		}
	}
}

func (r *Runner) journal(ctx context.Context, s *Session, f network.Frame, res Result, herr error) {
	j := r.cfg.Journal
	if j == nil {
		return
	}
	p := store.Packet{
		SessionID:  s.ID,
		Seq:        res.Seq,
		PacketID:   res.PacketID,
		Payload:    f.Data,
		ReceivedAt: f.Received,
		Outcome:    res.Outcome,
	}
	if p.ReceivedAt.IsZero() {
		p.ReceivedAt = time.Now()
	}
	if herr != nil {
		p.Error = herr.Error()
	}
	if err := j.AppendPacket(ctx, p); err != nil {
		r.log.Error("journal packet", zap.Stringer("session", s.ID), zap.Int64("seq", res.Seq), zap.Error(err))
	}

	if res.Outcome == store.OutcomeLost {
		if err := j.FaultSession(ctx, s.ID, herr.Error()); err != nil {
			r.log.Error("journal fault", zap.Stringer("session", s.ID), zap.Error(err))
		}
	}

	every := int64(r.cfg.SnapshotEvery)
	if res.Ramp || (every > 0 && s.Arrived()%every == 0) {
		r.snapshot(ctx, s, res.Seq)
	}
}

func (r *Runner) snapshot(ctx context.Context, s *Session, seq int64) {
	if err := r.cfg.Journal.SaveSnapshot(ctx, s.ID, seq, s.Map().Snapshot()); err != nil {
		r.log.Error("journal snapshot", zap.Stringer("session", s.ID), zap.Int64("seq", seq), zap.Error(err))
		return
	}
	r.snapSeq = seq
}

func (r *Runner) publish(ended bool) {
	s := r.current
	m := s.Map()
	st := &State{
		SessionID: s.ID,
		Conn:      s.Conn,
		Remote:    s.Remote,
		Started:   s.Started,
		Ended:     ended,
		Packets:   s.Arrived(),
		Expected:  s.Expected(),
		Snapshot:  m.Snapshot(),
		Dump:      m.String(),
	}
	if s.Faulted() {
		st.Fault = s.Fault().Error()
	}
	for _, seg := range m.Segments() {
		st.Footprints = append(st.Footprints, seg.Footprint())
	}
	r.state.Store(st)
	if r.cfg.OnState != nil {
		r.cfg.OnState(st)
	}
}
