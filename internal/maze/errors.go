package maze

import (
	"errors"
	"fmt"
)

// Map building errors.
var (
	ErrInvalidHeading        = errors.New("invalid heading: expected 0..3")
	ErrInvalidPositionUpdate = errors.New("invalid position update: expected 0 or 1")
	ErrInvalidFloorCode      = errors.New("invalid floor code")
	ErrInvalidWallMask       = errors.New("invalid wall mask: expected 0..15")
	ErrInvalidVictimCode     = errors.New("invalid victim code")
	ErrInvalidRamp           = errors.New("invalid ramp")
	ErrInvalidRadius         = errors.New("invalid merging radius")
	ErrUnimplemented         = errors.New("operation not implemented")
	ErrUnknownSegment        = errors.New("unknown segment")
	ErrOutOfBounds           = errors.New("coordinate out of bounds")
	ErrInvalidSnapshot       = errors.New("invalid snapshot")
)

// Field names an optional field of an update.
type Field string

// Update fields, in application order.
const (
	FieldDirection      Field = "direction"
	FieldPositionUpdate Field = "positionUpdate"
	FieldFloor          Field = "floor"
	FieldWalls          Field = "walls"
	FieldVictim         Field = "victim"
	FieldRamp           Field = "ramp"
)

// FieldError reports a rejected field of an update. Err is one of the
// sentinel errors above.
type FieldError struct {
	Field Field
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
