// Package session turns the frames of one robot connection into a map.
//
// A session owns a sequence guard and a map. It lives as long as the
// connection it was created for; a new connection always starts a new
// session with a fresh map.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Faultbox/robomap/internal/maze"
	"github.com/Faultbox/robomap/internal/network/packets"
	"github.com/Faultbox/robomap/internal/store"
)

// ErrSessionFaulted is returned for packets that arrive after a packet loss.
var ErrSessionFaulted = errors.New("session faulted")

// Session maps one connection.
type Session struct {
	ID      uuid.UUID
	Conn    uint64
	Remote  string
	Started time.Time

	guard   packets.Guard
	m       *maze.Map
	arrived int64
	fault   error
}

// New creates a session with an empty map.
func New(conn uint64, remote string, cfg maze.Config) *Session {
	return &Session{
		ID:      uuid.New(),
		Conn:    conn,
		Remote:  remote,
		Started: time.Now(),
		m:       maze.NewMap(cfg),
	}
}

// Result describes how one packet was handled.
type Result struct {
	Seq      int64  // arrival order within the session
	PacketID *int64 // nil if the packet could not be decoded
	Outcome  store.Outcome
	Ramp     bool // a new segment was created
}

// Handle decodes and applies one raw packet. The returned error is the
// reason the packet, or part of it, was not applied.
func (s *Session) Handle(data []byte) (Result, error) {
	res := Result{Seq: s.arrived}
	s.arrived++

	if s.fault != nil {
		res.Outcome = store.OutcomeIgnored
		return res, fmt.Errorf("%w: %w", ErrSessionFaulted, s.fault)
	}

	u, derr := packets.Decode(data)
	if u == nil {
		res.Outcome = store.OutcomeMalformed
		return res, derr
	}
	id := u.Seq()
	res.PacketID = &id

	if err := s.guard.Check(id); err != nil {
		s.fault = err
		res.Outcome = store.OutcomeLost
		return res, err
	}

	// A direction that could not be decoded rejects the update like an
	// invalid one.
	if rejectsWhole(derr) {
		res.Outcome = store.OutcomeRejected
		return res, derr
	}

	segments := len(s.m.Segments())
	err := errors.Join(derr, s.m.Apply(u.Observation()))
	res.Ramp = len(s.m.Segments()) > segments
	switch {
	case err == nil:
		res.Outcome = store.OutcomeApplied
	case rejectsWhole(err):
		res.Outcome = store.OutcomeRejected
	default:
		res.Outcome = store.OutcomePartial
	}
	return res, err
}

// rejectsWhole reports whether err holds a direction fault.
func rejectsWhole(err error) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *maze.FieldError:
		return e.Field == maze.FieldDirection
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if rejectsWhole(inner) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return rejectsWhole(e.Unwrap())
	}
	return false
}

// Map returns the session's map. It must only be used from the goroutine
// that calls Handle.
func (s *Session) Map() *maze.Map { return s.m }

// Fault returns the packet loss that faulted the session, if any.
func (s *Session) Fault() error { return s.fault }

// Faulted reports whether the session stopped accepting packets.
func (s *Session) Faulted() bool { return s.fault != nil }

// Arrived returns the number of packets received.
func (s *Session) Arrived() int64 { return s.arrived }

// Expected returns the next packet id the session accepts.
func (s *Session) Expected() int64 { return s.guard.Expected() }
