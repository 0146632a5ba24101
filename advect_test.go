package cyclone

import (
	"math"
	"testing"
)

func TestAdvectZeroVelocityIsIdentity(t *testing.T) {
	g := testGrid(t)
	field := g.NewField()
	for i := range field {
		field[i] = float64(i)
	}
	zero := g.NewField()

	for _, order := range []int{1, 3} {
		adv := NewAdvector(g, order, 30.0, false)
		out, err := adv.Advect(field, zero, zero, zero)
		if err != nil {
			t.Fatalf("order %d: Advect returned error: %v", order, err)
		}
		for i := range field {
			if math.Abs(out[i]-field[i]) > 1e-9 {
				t.Fatalf("order %d: Advect(zero velocity)[%d] = %v, want %v", order, i, out[i], field[i])
			}
		}
	}
}

func TestAdvectHorizontalWrapsPeriodically(t *testing.T) {
	g := testGrid(t)
	field := g.NewField()
	// A single spike at (0,0,*) should, advected with a velocity that
	// carries departure points exactly Nx cells in the -x direction (i.e.
	// a full period), reappear unchanged via periodic wrap.
	for k := 0; k < g.Nz; k++ {
		field[g.Index(0, 0, k)] = 1.0
	}
	u := g.NewField()
	dt := 30.0
	uVal := float64(g.Nx) * g.Dx / dt
	for i := range u {
		u[i] = uVal
	}
	v := g.NewField()
	w := g.NewField()

	adv := NewAdvector(g, 1, dt, false)
	out, err := adv.Advect(field, u, v, w)
	if err != nil {
		t.Fatalf("Advect: %v", err)
	}
	got := out[g.Index(0, 0, 0)]
	if math.Abs(got-1.0) > 1e-6 {
		t.Errorf("periodic wrap: got %v at (0,0,0), want 1.0", got)
	}
}

func TestAdvectVerticalClampsAtBoundaries(t *testing.T) {
	g := testGrid(t)
	field := g.NewField()
	for i := range field {
		field[i] = float64(i % 7)
	}
	u := g.NewField()
	v := g.NewField()
	w := g.NewField()
	// Large upward velocity: departure point should clamp to z=0, not wrap
	// to the top.
	for i := range w {
		w[i] = 1000.0
	}
	adv := NewAdvector(g, 1, 30.0, false)
	out, err := adv.Advect(field, u, v, w)
	if err != nil {
		t.Fatalf("Advect: %v", err)
	}
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				got := out[g.Index(i, j, k)]
				want := field[g.Index(i, j, 0)]
				if math.Abs(got-want) > 1e-12 {
					t.Fatalf("vertical clamp at (%d,%d,%d): got %v, want bottom-level value %v", i, j, k, got, want)
				}
			}
		}
	}
}

func TestMonotonicLimiterClipsOvershoot(t *testing.T) {
	g := testGrid(t)
	adv := NewAdvector(g, 3, 30.0, true)

	prev := make([]float64, 4)
	for i := range prev {
		prev[i] = float64(i) // range [0,3]
	}
	out := []float64{-5, 1, 2, 10}
	adv.applyMonotonicLimiter(out, prev)
	for _, v := range out {
		if v < 0 || v > 3 {
			t.Fatalf("monotonic limiter let value %v escape [0,3]", v)
		}
	}
}
