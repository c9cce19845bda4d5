// Package packets defines the telemetry messages exchanged with the robot.
package packets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/robomap/internal/maze"
)

// Decoding errors.
var (
	ErrMalformed = errors.New("malformed packet")
	ErrMissingID = errors.New("packet has no id")
	ErrFieldType = errors.New("wrong field type")
)

// Update is one map update sent by the robot. Every field but ID is
// optional; a nil field leaves the map unchanged.
type Update struct {
	ID             *int64   `json:"id"`
	Direction      *int     `json:"direction,omitempty"`
	PositionUpdate *int     `json:"positionUpdate,omitempty"`
	Floor          *int     `json:"floor,omitempty"`
	Walls          *int     `json:"walls,omitempty"`
	Victim         *int     `json:"victim,omitempty"`
	Ramp           *float64 `json:"ramp,omitempty"`       // degrees
	RampLength     *float64 `json:"rampLength,omitempty"` // centimetres
}

// Decode parses one update. Unknown fields are ignored.
//
// The id is decoded on its own first: a record without a usable id is
// malformed and Decode returns a nil Update. Every other field is decoded
// separately, so a field of the wrong type is left nil and reported as a
// *maze.FieldError wrapping ErrFieldType while the rest of the update is
// still returned. Integer fields accept integral floats such as 112.0.
func Decode(data []byte) (*Update, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	idRaw, ok := raw["id"]
	if !ok || isNull(idRaw) {
		return nil, ErrMissingID
	}
	id, err := decodeInt(idRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: id %s", ErrMalformed, idRaw)
	}
	u := &Update{ID: &id}

	var errs []error
	intField := func(key string, f maze.Field, dst **int) {
		v, ok := raw[key]
		if !ok || isNull(v) {
			return
		}
		n, err := decodeInt(v)
		if err != nil || n != int64(int(n)) {
			errs = append(errs, &maze.FieldError{Field: f, Value: string(v), Err: ErrFieldType})
			return
		}
		i := int(n)
		*dst = &i
	}
	floatField := func(key string, f maze.Field, dst **float64) {
		v, ok := raw[key]
		if !ok || isNull(v) {
			return
		}
		var x float64
		if err := json.Unmarshal(v, &x); err != nil {
			errs = append(errs, &maze.FieldError{Field: f, Value: string(v), Err: ErrFieldType})
			return
		}
		*dst = &x
	}

	intField("direction", maze.FieldDirection, &u.Direction)
	intField("positionUpdate", maze.FieldPositionUpdate, &u.PositionUpdate)
	intField("floor", maze.FieldFloor, &u.Floor)
	intField("walls", maze.FieldWalls, &u.Walls)
	intField("victim", maze.FieldVictim, &u.Victim)
	floatField("ramp", maze.FieldRamp, &u.Ramp)
	floatField("rampLength", maze.FieldRamp, &u.RampLength)

	return u, errors.Join(errs...)
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

// decodeInt decodes a JSON number with no fractional part.
func decodeInt(v json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(v, &n); err == nil {
		return n, nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

// Encode returns the JSON form of the update.
func (u *Update) Encode() ([]byte, error) {
	if u.ID == nil {
		return nil, ErrMissingID
	}
	return json.Marshal(u)
}

// Seq returns the update's sequence id.
func (u *Update) Seq() int64 {
	if u.ID == nil {
		return -1
	}
	return *u.ID
}

// HasRamp reports whether the update moves the robot onto a new level.
func (u *Update) HasRamp() bool {
	return u.Ramp != nil
}

// Observation returns the map content of the update.
func (u *Update) Observation() maze.Observation {
	return maze.Observation{
		Direction:      u.Direction,
		PositionUpdate: u.PositionUpdate,
		Floor:          u.Floor,
		Walls:          u.Walls,
		Victim:         u.Victim,
		Ramp:           u.Ramp,
		RampLength:     u.RampLength,
	}
}

// Announce tells the robot which port to stream updates to.
type Announce struct {
	ReceivingPort int `json:"recievingPort"` // key spelled as the robot firmware expects
}

// Encode returns the JSON form of the announcement.
func (a *Announce) Encode() []byte {
	b, _ := json.Marshal(a)
	return b
}
