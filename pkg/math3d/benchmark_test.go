package math3d

import (
	"testing"
)

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Translate(V3(1, 2, 3))
	m2 := RotateY(0.5)

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat4MulVec4(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5))
	v := V4(1, 2, 3, 1)

	for b.Loop() {
		_ = m.MulVec4(v)
	}
}

func BenchmarkMat3MulVec3(b *testing.B) {
	m := Mat3FromColumns(V3(1, 0, 0), V3(0, 0, -1), V3(0, 1, 0))
	v := V3(0.2, 0.3, 0.9)

	for b.Loop() {
		_ = m.MulVec3(v)
	}
}

func BenchmarkVec3Unit(b *testing.B) {
	v := V3(1, 2, 3)

	for b.Loop() {
		_ = v.Unit()
	}
}

func BenchmarkVec3Reflect(b *testing.B) {
	l := V3(0, 0.6, 0.8)
	n := V3(0, 0, 1)

	for b.Loop() {
		_ = l.Reflect(n)
	}
}

func BenchmarkMVP(b *testing.B) {
	view := LookAt(V3(0, 0, 10), Zero3(), Up())
	proj := Perspective(1.0, 1.333, 0.1, 100.0)
	model := RotateEuler(V3(0.1, 0.2, 0.3))

	for b.Loop() {
		_ = proj.Mul(view).Mul(model)
	}
}
