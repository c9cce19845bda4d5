package math

import (
	"testing"
)

func TestVec3Add(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}
	got := a.Add(b)
	want := Vec3{5, 7, 9}
	if got != want {
		t.Errorf("Vec3.Add() = %v, want %v", got, want)
	}
}

func TestVec3Length(t *testing.T) {
	v := Vec3{3, 0, 4}
	got := v.Length()
	want := 5.0
	if got != want {
		t.Errorf("Vec3.Length() = %v, want %v", got, want)
	}
}

func TestVec3Distance(t *testing.T) {
	a := Vec3{1, 1, 1}
	b := Vec3{1, 4, 5}
	if got := a.Distance(b); got != 5 {
		t.Errorf("Vec3.Distance() = %v, want 5", got)
	}
}

func TestVec3XZ(t *testing.T) {
	got := Vec3{1, 2, 3}.XZ()
	want := Vec2{1, 3}
	if got != want {
		t.Errorf("Vec3.XZ() = %v, want %v", got, want)
	}
}

func TestVec3ApproxEqual(t *testing.T) {
	a := Vec3{0.1 + 0.2, 0, 0}
	b := Vec3{0.3, 0, 0}
	if !a.ApproxEqual(b, 1e-12) {
		t.Errorf("ApproxEqual(%v, %v) = false", a, b)
	}
	if a.ApproxEqual(Vec3{1, 0, 0}, 1e-12) {
		t.Error("ApproxEqual reported distant vectors as equal")
	}
}
