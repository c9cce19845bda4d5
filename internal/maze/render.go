package maze

import (
	"fmt"

	"github.com/Faultbox/robomap/pkg/math"
)

// EventKind tags a renderer event.
type EventKind uint8

// Renderer event kinds.
const (
	EventFloor EventKind = iota
	EventWall
	EventVictim
	EventRamp
	EventSegment
)

// String returns the event kind name used on the wire.
func (k EventKind) String() string {
	switch k {
	case EventFloor:
		return "floor"
	case EventWall:
		return "wall"
	case EventVictim:
		return "victim"
	case EventRamp:
		return "ramp"
	case EventSegment:
		return "segment"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Event describes one piece of content that became visible. Only the payload
// field matching Kind is meaningful.
type Event struct {
	Kind    EventKind
	Segment int
	Pose    Pose

	Floor  FloorKind // EventFloor
	Victim Victim    // EventVictim, Side is the wall face
	Ramp   Ramp      // EventRamp
	Offset math.Vec3 // EventSegment
}

// Renderer receives events synchronously after each mutation. It must not
// call back into the Map.
type Renderer interface {
	Render(Event)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Event)

// Render calls f(e).
func (f RendererFunc) Render(e Event) { f(e) }

type discardRenderer struct{}

func (discardRenderer) Render(Event) {}

// MultiRenderer fans events out to several renderers in order.
func MultiRenderer(rs ...Renderer) Renderer {
	return RendererFunc(func(e Event) {
		for _, r := range rs {
			r.Render(e)
		}
	})
}
