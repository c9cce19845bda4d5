package units

import (
	"math"
	"testing"
)

func TestLengthConversions(t *testing.T) {
	tests := []struct {
		name   string
		length Length
		mm     float64
		cm     float64
		m      float64
		km     float64
	}{
		{"30 cm tile", Centimeters(30), 300, 30, 0.3, 0.0003},
		{"2 mm", Millimeters(2), 2, 0.2, 0.002, 0.000002},
		{"1.5 m", Meters(1.5), 1500, 150, 1.5, 0.0015},
		{"2 km", Kilometers(2), 2e6, 2e5, 2000, 2},
		{"zero", Centimeters(0), 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := []struct {
				unit      string
				got, want float64
			}{
				{"mm", tt.length.Millimeters(), tt.mm},
				{"cm", tt.length.Centimeters(), tt.cm},
				{"m", tt.length.Meters(), tt.m},
				{"km", tt.length.Kilometers(), tt.km},
			}
			for _, c := range checks {
				if math.Abs(c.got-c.want) > 1e-9 {
					t.Errorf("%s = %v, want %v", c.unit, c.got, c.want)
				}
			}
		})
	}
}

func TestDegreesToRadians(t *testing.T) {
	tests := []struct {
		deg  Degrees
		want Radians
	}{
		{0, 0},
		{90, math.Pi / 2},
		{180, math.Pi},
		{-90, -math.Pi / 2},
		{30, math.Pi / 6},
	}

	for _, tt := range tests {
		got := tt.deg.Radians()
		if math.Abs(float64(got-tt.want)) > 1e-12 {
			t.Errorf("Degrees(%v).Radians() = %v, want %v", tt.deg, got, tt.want)
		}
		if back := got.Degrees(); math.Abs(float64(back-tt.deg)) > 1e-9 {
			t.Errorf("round trip of %v gave %v", tt.deg, back)
		}
	}
}

func TestDegreesNormalize(t *testing.T) {
	tests := []struct {
		in, want Degrees
	}{
		{0, 0},
		{360, 0},
		{450, 90},
		{-90, 270},
		{180, 180},
	}

	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Degrees(%v).Normalize() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRadiansTrig(t *testing.T) {
	r := Degrees(30).Radians()
	if math.Abs(r.Sin()-0.5) > 1e-12 {
		t.Errorf("sin(30°) = %v, want 0.5", r.Sin())
	}
	if math.Abs(r.Cos()-math.Sqrt(3)/2) > 1e-12 {
		t.Errorf("cos(30°) = %v, want %v", r.Cos(), math.Sqrt(3)/2)
	}
}
