// Package units provides the length and angle conversions used by map geometry.
//
// Lengths are stored internally in metres; the robot reports centimetres and
// the renderer works in metres.
package units

import "math"

// Length is a distance stored in metres.
type Length float64

// Millimeters returns a Length of v millimetres.
func Millimeters(v float64) Length { return Length(v / 1000) }

// Centimeters returns a Length of v centimetres.
func Centimeters(v float64) Length { return Length(v / 100) }

// Meters returns a Length of v metres.
func Meters(v float64) Length { return Length(v) }

// Kilometers returns a Length of v kilometres.
func Kilometers(v float64) Length { return Length(v * 1000) }

// Millimeters returns the length in millimetres.
func (l Length) Millimeters() float64 { return float64(l) * 1000 }

// Centimeters returns the length in centimetres.
func (l Length) Centimeters() float64 { return float64(l) * 100 }

// Meters returns the length in metres.
func (l Length) Meters() float64 { return float64(l) }

// Kilometers returns the length in kilometres.
func (l Length) Kilometers() float64 { return float64(l) / 1000 }

// Degrees is an angle in degrees.
type Degrees float64

// Radians converts the angle to radians.
func (d Degrees) Radians() Radians {
	return Radians(float64(d) * math.Pi / 180)
}

// Normalize wraps the angle into [0, 360).
func (d Degrees) Normalize() Degrees {
	v := math.Mod(float64(d), 360)
	if v < 0 {
		v += 360
	}
	return Degrees(v)
}

// Radians is an angle in radians.
type Radians float64

// Degrees converts the angle to degrees.
func (r Radians) Degrees() Degrees {
	return Degrees(float64(r) * 180 / math.Pi)
}

// Sin returns the sine of the angle.
func (r Radians) Sin() float64 { return math.Sin(float64(r)) }

// Cos returns the cosine of the angle.
func (r Radians) Cos() float64 { return math.Cos(float64(r)) }
