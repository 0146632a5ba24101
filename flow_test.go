package cyclone

import (
	"context"
	"io"
	"math"
	"testing"
)

// constantWindFetcher is a DataFetcher test double that always returns
// the same westward deep-layer wind sample and no land, modeling scenario
// 3 ("moving nest with pure westward steering") from the property tests.
type constantWindFetcher struct {
	u, v float64
}

func (f *constantWindFetcher) Fetch(ctx context.Context, lat, lon float64) (*EnvironmentSnapshot, error) {
	return &EnvironmentSnapshot{
		Winds: []WindSample{
			{PressureHPa: 850, U: f.u, V: f.v, RadiusKm: 500},
			{PressureHPa: 700, U: f.u, V: f.v, RadiusKm: 500},
			{PressureHPa: 500, U: f.u, V: f.v, RadiusKm: 500},
			{PressureHPa: 300, U: f.u, V: f.v, RadiusKm: 500},
		},
		LandFraction: zeroLandMask(8, 8),
	}, nil
}

func zeroLandMask(nx, ny int) [][]float64 {
	mask := make([][]float64, nx)
	for i := range mask {
		mask[i] = make([]float64, ny)
	}
	return mask
}

func newTestFlowCore(t *testing.T, fetcher DataFetcher) *FlowCore {
	t.Helper()
	g := testGrid(t)
	cfg := DefaultConfig()
	cfg.NoVelocityGovernor = true
	ref := NewReferenceState(g, cfg)
	backend := NewFFTBackend(g)
	spectral := NewSpectral(g, backend)
	advector := NewAdvector(g, cfg.AdvectionOrder, 30.0, cfg.MonotonicAdvection)
	thermo := NewThermoPipeline(cfg, g, ref, spectral, SelectMoistScheme(cfg))
	sbl := NewSurfaceBoundaryLayer(cfg)
	steering := NewSteeringEngine(cfg, 15, -40)
	basin := NewBasinEnvironment(g.Nx, g.Ny, 13, -42, 0.5, 0.5)

	return NewFlowCore(cfg, g, ref, backend, spectral, advector, thermo, sbl, steering, basin, fetcher, 30.0, 5e-5, io.Discard)
}

func TestQuiescentAtmosphereStaysQuiescent(t *testing.T) {
	f := newTestFlowCore(t, nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := f.Step(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	for i, v := range f.U {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("u[%d] is non-finite: %v", i, v)
		}
	}
	maxSpeed := 0.0
	for i := range f.U {
		speed := math.Hypot(f.U[i], f.V[i]) * f.grid.UChar
		if speed > maxSpeed {
			maxSpeed = speed
		}
	}
	if maxSpeed > 0.5 {
		t.Errorf("quiescent atmosphere developed max wind %v m/s, want near zero", maxSpeed)
	}
}

func TestWestwardSteeringMovesCenterWestward(t *testing.T) {
	f := newTestFlowCore(t, &constantWindFetcher{u: -7, v: 0})
	f.coarseCadence = 1
	ctx := context.Background()

	startLon := f.steering.Lon
	for i := 0; i < 60; i++ {
		if err := f.Step(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if f.steering.Lon >= startLon {
		t.Errorf("expected westward drift: start=%v end=%v", startLon, f.steering.Lon)
	}
}

func TestSanityCheckCatchesThetaBoundViolation(t *testing.T) {
	f := newTestFlowCore(t, nil)
	f.ThetaPrime[0] = f.cfg.ThetaPrimeMax + 100
	if err := f.sanityCheck(); err == nil {
		t.Fatal("expected ThetaBoundError for out-of-range theta'")
	}
}

func TestFetchErrorRevertsToCache(t *testing.T) {
	f := newTestFlowCore(t, &failingFetcher{})
	ctx := context.Background()
	f.coarseCadence = 1

	f.refreshSteering(ctx, 0)
	if f.pendingFetch != nil {
		<-f.pendingFetch.done // wait for the background fetch to finish
	}
	f.drainFetch()
	if !f.FetchReverted() {
		t.Error("expected FetchReverted to be true after a failing fetch")
	}
}

type failingFetcher struct{}

func (failingFetcher) Fetch(ctx context.Context, lat, lon float64) (*EnvironmentSnapshot, error) {
	return nil, &FetchError{Op: "test", Err: errTest}
}

var errTest = simpleErr("synthetic fetch failure")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
