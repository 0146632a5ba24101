package cyclone

import (
	"math"
	"testing"
)

func TestTropicalBlendFractionBounds(t *testing.T) {
	if f := tropicalBlendFraction(10); f != 1.0 {
		t.Errorf("tropicalBlendFraction(10) = %v, want 1.0", f)
	}
	if f := tropicalBlendFraction(40); f != 0.0 {
		t.Errorf("tropicalBlendFraction(40) = %v, want 0.0", f)
	}
	mid := tropicalBlendFraction(27.5)
	if mid <= 0 || mid >= 1 {
		t.Errorf("tropicalBlendFraction(27.5) = %v, want strictly between 0 and 1", mid)
	}
}

func TestDoughnutFilterExcludesInnerRadius(t *testing.T) {
	samples := []WindSample{
		{PressureHPa: 700, U: 1, V: 1, RadiusKm: 50},
		{PressureHPa: 700, U: 2, V: 2, RadiusKm: 500},
	}
	out := doughnutFilter(samples, 300)
	if len(out) != 1 || out[0].RadiusKm != 500 {
		t.Fatalf("doughnutFilter did not exclude the inner-radius sample: %v", out)
	}
}

func TestAnnularFilterKeepsOnlyBand(t *testing.T) {
	samples := []WindSample{
		{RadiusKm: 100},
		{RadiusKm: 300},
		{RadiusKm: 600},
	}
	out := annularFilter(samples, 150, 450)
	if len(out) != 1 || out[0].RadiusKm != 300 {
		t.Fatalf("annularFilter = %v, want only the 300km sample", out)
	}
}

func TestH3HysteresisActivatesAndDeactivates(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSteeringEngine(cfg, 20, -60)

	s.updateH3Hysteresis(90)
	if s.h3Active {
		t.Fatal("should not activate below 96kt")
	}
	s.updateH3Hysteresis(96)
	if !s.h3Active {
		t.Fatal("should activate at 96kt")
	}
	s.updateH3Hysteresis(85)
	if !s.h3Active {
		t.Fatal("should remain active within the hysteresis band (85kt)")
	}
	s.updateH3Hysteresis(80)
	if s.h3Active {
		t.Fatal("should deactivate below 83kt")
	}
}

func TestIntegratePositionMovesWithCachedSteering(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSteeringEngine(cfg, 15, -40)
	s.cachedU, s.cachedV = -7, 0

	startLon := s.Lon
	dt := 1800.0
	for i := 0; i < 10; i++ {
		s.IntegratePosition(dt)
	}
	if s.Lon >= startLon {
		t.Fatalf("westward steering should decrease longitude: start=%v end=%v", startLon, s.Lon)
	}
	expectedDLon := (-7 * dt * 10) / (111320.0 * math.Cos(15*math.Pi/180))
	gotDLon := s.Lon - startLon
	if math.Abs(gotDLon-expectedDLon) > 1e-6 {
		t.Errorf("dLon = %v, want %v", gotDLon, expectedDLon)
	}
}

func TestRefreshDLMEnforcesSteeringFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SteeringFloor = 3.0
	cfg.BetaDrift = false
	cfg.NoLongitudeScaling = true
	cfg.NoBasinDamping = true
	cfg.NoIntensityScaling = true
	s := NewSteeringEngine(cfg, 10, -40)

	tiny := []WindSample{{PressureHPa: 700, U: 0.01, V: 0.01, RadiusKm: 500}}
	s.RefreshDLM(tiny, 0, 0)
	u, v := s.SteeringVector()
	speed := math.Hypot(u, v)
	if speed < cfg.SteeringFloor-1e-6 {
		t.Errorf("steering speed %v below floor %v", speed, cfg.SteeringFloor)
	}
}
