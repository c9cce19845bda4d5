package packets

import (
	"errors"
	"fmt"
)

// ErrPacketLoss is returned when an update arrives out of sequence.
var ErrPacketLoss = errors.New("packet loss")

// LossError reports the id that was expected and the one received.
type LossError struct {
	Expected int64
	Received int64
}

func (e *LossError) Error() string {
	return fmt.Sprintf("packet loss: expected id %d, received %d", e.Expected, e.Received)
}

func (e *LossError) Unwrap() error {
	return ErrPacketLoss
}

// Guard checks that update ids arrive as 0, 1, 2, ... without gaps.
// After a loss the guard stays at the missing id until Reset.
type Guard struct {
	expected int64
}

// Check accepts id if it is the expected one and advances the counter.
func (g *Guard) Check(id int64) error {
	if id != g.expected {
		return &LossError{Expected: g.expected, Received: id}
	}
	g.expected++
	return nil
}

// Expected returns the next id the guard accepts.
func (g *Guard) Expected() int64 {
	return g.expected
}

// Reset starts a new sequence at 0.
func (g *Guard) Reset() {
	g.expected = 0
}
