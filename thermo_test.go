package cyclone

import (
	"math"
	"testing"
)

func TestCoriolisRotateConservesEnergy(t *testing.T) {
	u := []float64{5, -3, 0, 10}
	v := []float64{0, 4, 7, -2}

	before := make([]float64, len(u))
	for i := range u {
		before[i] = u[i]*u[i] + v[i]*v[i]
	}

	CoriolisRotate(u, v, 5e-5, 1800)

	for i := range u {
		after := u[i]*u[i] + v[i]*v[i]
		if math.Abs(after-before[i]) > 1e-9 {
			t.Errorf("kinetic energy not conserved at %d: before=%v after=%v", i, before[i], after)
		}
	}
}

func TestBuoyancySignMatchesThetaPrime(t *testing.T) {
	g := testGrid(t)
	cfg := DefaultConfig()
	cfg.FullyUnconstrained = true
	ref := NewReferenceState(g, cfg)
	backend := NewFFTBackend(g)
	spectral := NewSpectral(g, backend)
	thermo := NewThermoPipeline(cfg, g, ref, spectral, SelectMoistScheme(cfg))

	theta := g.NewField()
	theta[g.Index(0, 0, 0)] = 2.0
	theta[g.Index(1, 0, 0)] = -2.0

	b := thermo.Buoyancy(theta)
	if b[g.Index(0, 0, 0)] <= 0 {
		t.Error("positive theta' should produce positive buoyancy")
	}
	if b[g.Index(1, 0, 0)] >= 0 {
		t.Error("negative theta' should produce negative buoyancy")
	}
}

func TestBuoyancyCapLimitsMagnitude(t *testing.T) {
	g := testGrid(t)
	cfg := DefaultConfig()
	cfg.FullyUnconstrained = false
	cfg.BuoyancyCap = 1.0
	ref := NewReferenceState(g, cfg)
	backend := NewFFTBackend(g)
	spectral := NewSpectral(g, backend)
	thermo := NewThermoPipeline(cfg, g, ref, spectral, SelectMoistScheme(cfg))

	theta := g.NewField()
	theta[0] = 1000.0
	b := thermo.Buoyancy(theta)
	if b[0] > cfg.BuoyancyCap+1e-9 {
		t.Errorf("buoyancy %v exceeds cap %v", b[0], cfg.BuoyancyCap)
	}
}

func TestRemoveMeanZeroesDomainMean(t *testing.T) {
	field := []float64{1, 2, 3, 4, 5}
	RemoveMean(field)
	var sum float64
	for _, v := range field {
		sum += v
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("mean not removed: sum=%v", sum)
	}
}

func TestRadiativeCoolingIsZeroWhenDisabled(t *testing.T) {
	g := testGrid(t)
	cfg := DefaultConfig()
	cfg.RadiativeCooling = false
	ref := NewReferenceState(g, cfg)
	backend := NewFFTBackend(g)
	spectral := NewSpectral(g, backend)
	thermo := NewThermoPipeline(cfg, g, ref, spectral, SelectMoistScheme(cfg))

	theta := g.NewField()
	theta[0] = 5.0
	cooling := thermo.RadiativeCooling(theta)
	for _, v := range cooling {
		if v != 0 {
			t.Fatalf("expected no cooling when disabled, got %v", v)
		}
	}
}

func TestRadiativeCoolingOpposesSign(t *testing.T) {
	g := testGrid(t)
	cfg := DefaultConfig()
	cfg.RadiativeCooling = true
	cfg.DynamicCooling = false
	ref := NewReferenceState(g, cfg)
	backend := NewFFTBackend(g)
	spectral := NewSpectral(g, backend)
	thermo := NewThermoPipeline(cfg, g, ref, spectral, SelectMoistScheme(cfg))

	theta := g.NewField()
	theta[0] = 5.0
	cooling := thermo.RadiativeCooling(theta)
	if cooling[0] >= 0 {
		t.Errorf("radiative cooling should oppose positive theta': got %v", cooling[0])
	}
}

func TestInstantMoistAdjustCondensesSupersaturation(t *testing.T) {
	g := testGrid(t)
	cfg := DefaultConfig()
	ref := NewReferenceState(g, cfg)
	backend := NewFFTBackend(g)
	spectral := NewSpectral(g, backend)
	thermo := NewThermoPipeline(cfg, g, ref, spectral, SelectMoistScheme(cfg))

	theta := g.NewField()
	q := g.NewField()
	for i := range q {
		q[i] = 0.05 // far above saturation at a reference ~15C column
	}
	precip := thermo.MoistAdjust(theta, q, 30.0)

	for i := range theta {
		if theta[i] <= 0 {
			t.Fatalf("expected latent heating from condensation at %d, got theta'=%v", i, theta[i])
		}
		if precip[i] <= 0 {
			t.Fatalf("expected precipitation at %d, got %v", i, precip[i])
		}
	}
}
