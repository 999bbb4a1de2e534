package state

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/san-kum/scarakin/internal/kin"
)

func TestLayoutDim(t *testing.T) {
	tests := []struct {
		layout Layout
		want   int
	}{
		{Layout{JointCount: 3, PointCount: 1, JointVelocities: true, PointVelocities: true}, 12},
		{Layout{JointCount: 3, PointCount: 1}, 6},
		{Layout{JointCount: 2, PointCount: 3, PointVelocities: true}, 20},
	}
	for _, tt := range tests {
		if got := tt.layout.Dim(); got != tt.want {
			t.Errorf("%+v: expected dim %d, got %d", tt.layout, tt.want, got)
		}
	}
}

func TestAssembleOrder(t *testing.T) {
	l := Layout{JointCount: 2, PointCount: 2, JointVelocities: true, PointVelocities: true}

	s, err := l.Assemble(
		[]float64{1, 2, 3, 4},
		[]r3.Vector{{X: 5, Y: 6, Z: 7}, {X: 8, Y: 9, Z: 10}},
		[]r3.Vector{{X: 11, Y: 12, Z: 13}, {X: 14, Y: 15, Z: 16}},
	)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if len(s) != l.Dim() {
		t.Fatalf("expected %d values, got %d", l.Dim(), len(s))
	}
	for i, v := range s {
		if v != float64(i+1) {
			t.Errorf("index %d: expected %d, got %f", i, i+1, v)
		}
	}

	joints, errs, vels, err := l.Split(s)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if len(joints) != 4 || errs[1].Z != 10 || vels[0].X != 11 {
		t.Errorf("split mismatch: %v %v %v", joints, errs, vels)
	}
}

func TestAssembleWithoutVelocities(t *testing.T) {
	l := Layout{JointCount: 3, PointCount: 1}

	s, err := l.Assemble([]float64{0.1, 0.2, 0.3}, []r3.Vector{{X: -1}}, nil)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if len(s) != 6 || s[3] != -1 {
		t.Errorf("unexpected state %v", s)
	}
}

func TestAssembleDimensionMismatch(t *testing.T) {
	l := Layout{JointCount: 2, PointCount: 1, JointVelocities: true, PointVelocities: true}
	one := []r3.Vector{{}}

	tests := []struct {
		name   string
		joints []float64
		errs   []r3.Vector
		vels   []r3.Vector
	}{
		{"joint state short", []float64{1, 2}, one, one},
		{"extra point error", []float64{1, 2, 3, 4}, []r3.Vector{{}, {}}, one},
		{"missing velocities", []float64{1, 2, 3, 4}, one, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Assemble(tt.joints, tt.errs, tt.vels)
			if !errors.Is(err, kin.ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}

	if _, _, _, err := l.Split(make([]float64, 3)); !errors.Is(err, kin.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch from split, got %v", err)
	}
}
