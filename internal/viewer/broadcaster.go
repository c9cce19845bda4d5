package viewer

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/robomap/internal/maze"
	"github.com/Faultbox/robomap/internal/session"
)

// queueSize bounds the envelopes waiting for slow viewers.
const queueSize = 1024

// Broadcaster turns map events into envelopes for the hub. Render and
// SessionChanged never block: envelopes are queued and written by Run.
type Broadcaster struct {
	hub   *Hub
	log   *zap.Logger
	seq   atomic.Uint64
	queue chan []byte

	mu   sync.Mutex
	last SessionPayload
}

// NewBroadcaster creates a broadcaster writing to hub.
func NewBroadcaster(hub *Hub, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{hub: hub, log: log, queue: make(chan []byte, queueSize)}
}

// Render queues a map event.
func (b *Broadcaster) Render(e maze.Event) {
	b.enqueue(e.Kind.String(), eventPayload(e))
}

// SessionChanged queues a session message when the session, its end or
// its fault changed since the last call.
func (b *Broadcaster) SessionChanged(st *session.State) {
	p := sessionPayload(st)
	b.mu.Lock()
	same := p.ID == b.last.ID && p.Ended == b.last.Ended && p.Fault == b.last.Fault
	b.last = p
	b.mu.Unlock()
	if !same {
		b.enqueue(TypeSession, p)
	}
}

// Seq returns the sequence number of the last queued envelope.
func (b *Broadcaster) Seq() uint64 {
	return b.seq.Load()
}

func (b *Broadcaster) enqueue(typ string, payload any) {
	data, err := b.encode(typ, payload)
	if err != nil {
		b.log.Error("encoding viewer message", zap.String("type", typ), zap.Error(err))
		return
	}
	select {
	case b.queue <- data:
	default:
		b.log.Warn("viewer queue full, message dropped", zap.String("type", typ))
	}
}

func (b *Broadcaster) encode(typ string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Seq: b.seq.Add(1), Type: typ, Payload: payload})
}

// Run writes queued envelopes to the hub until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-b.queue:
			b.hub.Broadcast(data)
		}
	}
}
