package viewer

import (
	"github.com/paulmach/orb"

	"github.com/Faultbox/robomap/internal/maze"
	"github.com/Faultbox/robomap/internal/session"
	"github.com/Faultbox/robomap/pkg/math"
)

// Envelope is one message on the viewer stream. Seq increases by one per
// message so viewers can detect gaps and refetch /api/map.
type Envelope struct {
	Seq     uint64 `json:"seq"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Message types besides the map event kinds.
const (
	TypeSession = "session"
)

// PosePayload is a world placement.
type PosePayload struct {
	Position math.Vec3 `json:"position"`
	Rotation math.Quat `json:"rotation"`
}

// EventPayload is a map event as sent to viewers.
type EventPayload struct {
	Segment int         `json:"segment"`
	Pose    PosePayload `json:"pose"`
	Floor   string      `json:"floor,omitempty"`
	Victim  string      `json:"victim,omitempty"`
	Letter  bool        `json:"letter,omitempty"` // letter victim rather than a colour patch
	Side    string      `json:"side,omitempty"`
	Ramp    *RampInfo   `json:"ramp,omitempty"`
	Offset  *math.Vec3  `json:"offset,omitempty"`
}

// RampInfo describes a ramp in metres and degrees.
type RampInfo struct {
	Steepness float64 `json:"steepness"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
}

func eventPayload(e maze.Event) EventPayload {
	p := EventPayload{
		Segment: e.Segment,
		Pose:    PosePayload{Position: e.Pose.Position, Rotation: e.Pose.Rotation},
	}
	switch e.Kind {
	case maze.EventFloor:
		p.Floor = e.Floor.String()
	case maze.EventWall:
	case maze.EventVictim:
		p.Victim = e.Victim.Kind.String()
		p.Side = e.Victim.Side.String()
		p.Letter = e.Victim.Kind.IsShape()
	case maze.EventRamp:
		p.Ramp = &RampInfo{
			Steepness: float64(e.Ramp.Steepness),
			Length:    e.Ramp.Length.Meters(),
			Width:     e.Ramp.Width.Meters(),
		}
	case maze.EventSegment:
		off := e.Offset
		p.Offset = &off
	}
	return p
}

// SessionPayload announces a session change.
type SessionPayload struct {
	ID      string `json:"id"`
	Remote  string `json:"remote"`
	Ended   bool   `json:"ended"`
	Fault   string `json:"fault,omitempty"`
	Packets int64  `json:"packets"`
}

func sessionPayload(st *session.State) SessionPayload {
	return SessionPayload{
		ID:      st.SessionID.String(),
		Remote:  st.Remote,
		Ended:   st.Ended,
		Fault:   st.Fault,
		Packets: st.Packets,
	}
}

// SegmentInfo is the overview of one segment.
type SegmentInfo struct {
	Index     int        `json:"index"`
	Active    bool       `json:"active"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Origin    maze.Point `json:"origin"`
	Position  maze.Point `json:"position"`
	Offset    math.Vec3  `json:"offset"`
	Footprint Bound      `json:"footprint"`
}

// Bound is a floor-plane box in world metres.
type Bound struct {
	Min [2]float64 `json:"min"`
	Max [2]float64 `json:"max"`
}

func bound(b orb.Bound) Bound {
	return Bound{Min: [2]float64(b.Min), Max: [2]float64(b.Max)}
}

// MapResponse is the body of GET /api/map.
type MapResponse struct {
	Session  SessionPayload `json:"session"`
	Heading  string         `json:"heading"`
	Segments []SegmentInfo  `json:"segments"`
	Snapshot maze.Snapshot  `json:"snapshot"`
	Dump     string         `json:"dump"`
}

func mapResponse(st *session.State) MapResponse {
	resp := MapResponse{
		Session:  sessionPayload(st),
		Heading:  st.Snapshot.Heading.String(),
		Snapshot: st.Snapshot,
		Dump:     st.Dump,
	}
	for i, seg := range st.Snapshot.Segments {
		info := SegmentInfo{
			Index:    i,
			Active:   i == st.Snapshot.Active,
			Width:    seg.Width,
			Height:   seg.Height,
			Origin:   seg.Origin,
			Position: seg.Position,
			Offset:   seg.Offset,
		}
		if i < len(st.Footprints) {
			info.Footprint = bound(st.Footprints[i])
		}
		resp.Segments = append(resp.Segments, info)
	}
	return resp
}
