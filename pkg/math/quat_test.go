package math

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestQuatFromAxisAngle(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{Z: 2}, 0)
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("zero angle should give identity, got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}

	// Unnormalized axis still yields a unit quaternion.
	q = QuatFromAxisAngle(Vec3{X: 3, Y: 4}, 1)
	if l := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W; !near(l, 1) {
		t.Errorf("expected unit quaternion, squared length %v", l)
	}
}

func TestQuatRotate(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		want  Vec3
	}{
		{"quarter turn", math.Pi / 2, Vec3{Y: 1}},
		{"half turn", math.Pi, Vec3{X: -1}},
		{"three quarters", 3 * math.Pi / 2, Vec3{Y: -1}},
		{"full turn", 2 * math.Pi, Vec3{X: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatFromAxisAngle(Vec3{Z: 1}, float32(tt.angle))
			got := q.Rotate(Vec3{X: 1})
			if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) || !near(got.Z, tt.want.Z) {
				t.Errorf("rotating +X about Z: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuatConjugateUndoesRotation(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 1, Y: 1, Z: 1}, 0.7)
	v := Vec3{X: 0.3, Y: -2, Z: 5}
	got := q.Conjugate().Rotate(q.Rotate(v))
	if !near(got.X, v.X) || !near(got.Y, v.Y) || !near(got.Z, v.Z) {
		t.Errorf("conjugate should undo rotation: got %v, want %v", got, v)
	}
}
