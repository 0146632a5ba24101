package cyclone

import (
	"math"
	"testing"
)

func TestZonalSSTMatchesAnchors(t *testing.T) {
	for lat, want := range sstClimatology {
		if got := zonalSST(float64(lat)); math.Abs(got-want) > 1e-9 {
			t.Errorf("zonalSST(%d) = %v, want %v", lat, got, want)
		}
	}
}

func TestZonalSSTInterpolatesBetweenAnchors(t *testing.T) {
	got := zonalSST(12.5)
	// Between 10 (28.5) and 15 (29.0): expect the midpoint.
	want := (28.5 + 29.0) / 2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("zonalSST(12.5) = %v, want %v", got, want)
	}
}

func TestZonalSSTClampsOutsideRange(t *testing.T) {
	if got := zonalSST(-5); got != sstClimatology[0] {
		t.Errorf("zonalSST(-5) = %v, want clamped to equator value %v", got, sstClimatology[0])
	}
	if got := zonalSST(80); got != sstClimatology[60] {
		t.Errorf("zonalSST(80) = %v, want clamped to 60N value %v", got, sstClimatology[60])
	}
}

func TestOceanHeatContentFormula(t *testing.T) {
	cases := []struct{ sst, want float64 }{
		{20.0, 20.0},  // below 26C: no warm-water bonus
		{26.0, 20.0},  // exactly at threshold
		{28.0, 120.0}, // 50*(28-26)+20 = 120
	}
	for _, c := range cases {
		if got := oceanHeatContent(c.sst); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("oceanHeatContent(%v) = %v, want %v", c.sst, got, c.want)
		}
	}
}

func TestBasinEnvironmentResamplesOnRecenter(t *testing.T) {
	b := NewBasinEnvironment(4, 4, 10, -50, 1, 1)
	sstBefore := b.SST(0, 0)

	b.Recenter(30, -50)
	sstAfter := b.SST(0, 0)

	if sstBefore == sstAfter {
		t.Error("expected SST to change after recentering to a different latitude band")
	}
}

func TestSetLandFractionOverwritesMask(t *testing.T) {
	b := NewBasinEnvironment(2, 2, 20, -60, 1, 1)
	mask := [][]float64{{0, 1}, {0.5, 0.25}}
	b.SetLandFraction(mask)
	if b.LandFraction(0, 1) != 1 {
		t.Errorf("LandFraction(0,1) = %v, want 1", b.LandFraction(0, 1))
	}
	if b.LandFraction(1, 0) != 0.5 {
		t.Errorf("LandFraction(1,0) = %v, want 0.5", b.LandFraction(1, 0))
	}
}
