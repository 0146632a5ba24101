package cyclone

import (
	"math"
	"testing"
)

func TestWisheRampIncreasesWithWindSpeed(t *testing.T) {
	cfg := DefaultConfig()
	sbl := NewSurfaceBoundaryLayer(cfg)

	low := sbl.wisheRamp(cfg.WisheWindMin - 1)
	mid := sbl.wisheRamp((cfg.WisheWindMin + cfg.WisheWindMax) / 2)
	high := sbl.wisheRamp(cfg.WisheWindMax + 5)

	if !(low <= mid && mid <= high) {
		t.Fatalf("wisheRamp not monotonic: low=%v mid=%v high=%v", low, mid, high)
	}
	if low != 1.0 {
		t.Errorf("wisheRamp below WisheWindMin = %v, want 1.0 (no boost)", low)
	}
	if high > cfg.WisheBoostMax+1e-9 {
		t.Errorf("wisheRamp exceeded configured max boost: %v > %v", high, cfg.WisheBoostMax)
	}
}

func TestBinaryFluxThrottleForcesBoostOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FluxThrottle = true
	cfg.FluxThrottleThreshold = 120.0 // K/min
	cfg.ProportionalThrottle = false
	sbl := NewSurfaceBoundaryLayer(cfg)

	// Boosted rate of 10 K/s -> 600 K/min, over threshold: throttle must
	// revert to the unboosted rate (6.0), not zero the flux.
	if got := sbl.throttle(10.0, 6.0, 0); got != 6.0 {
		t.Errorf("throttle above threshold = %v, want unboosted rate 6.0", got)
	}
	// Boosted rate of 0.01 K/s -> 0.6 K/min, well under threshold: passes
	// through unchanged.
	if got := sbl.throttle(0.01, 0.008, 0); got != 0.01 {
		t.Errorf("throttle below threshold = %v, want unchanged boosted rate", got)
	}
}

func TestProportionalThrottleTapers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FluxThrottle = false
	cfg.ProportionalThrottle = true
	cfg.FluxThrottleThreshold = 1e6 // large so the derivative gate never binds here
	cfg.ThetaPrimeSoftLimit = 10
	cfg.ThetaPrimeHardLimit = 20
	sbl := NewSurfaceBoundaryLayer(cfg)

	if got := sbl.throttle(10.0, 10.0, 5.0); got != 10.0 {
		t.Errorf("below soft limit should be unattenuated, got %v", got)
	}
	if got := sbl.throttle(10.0, 10.0, 20.0); got != 0 {
		t.Errorf("at hard limit should be fully cut, got %v", got)
	}
	mid := sbl.throttle(10.0, 10.0, 15.0)
	if mid <= 0 || mid >= 10.0 {
		t.Errorf("between soft/hard limits should taper, got %v", mid)
	}
}

func TestHighLatitudeDampingTapersToNearZero(t *testing.T) {
	if d := highLatitudeDamping(10); d != 1.0 {
		t.Errorf("highLatitudeDamping(10) = %v, want 1.0", d)
	}
	if d := highLatitudeDamping(30); d != 1.0 {
		t.Errorf("highLatitudeDamping(30) = %v, want 1.0 (ramp starts at 30)", d)
	}
	if d, want := highLatitudeDamping(50), math.Exp(-20.0/7.0); math.Abs(d-want) > 1e-12 {
		t.Errorf("highLatitudeDamping(50) = %v, want exp(-20/7) = %v", d, want)
	}
}

func TestSaturationSpecificHumidityIncreasesWithTemperature(t *testing.T) {
	low := saturationSpecificHumidity(10)
	high := saturationSpecificHumidity(30)
	if high <= low {
		t.Errorf("saturation specific humidity should increase with temperature: low=%v high=%v", low, high)
	}
}
