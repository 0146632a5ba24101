package cyclone

import (
	"context"
	"fmt"
	"io"
	"math"

	"golang.org/x/sync/errgroup"
)

// fetchFuture is the single off-loop asynchronous operation the flow core
// runs: a DataFetcher round trip dispatched in the background and swapped
// in at the next safe point (a step boundary) rather than blocking the
// step loop.
type fetchFuture struct {
	done     chan struct{}
	snapshot *EnvironmentSnapshot
	err      error
}

// FlowCore orchestrates one full simulation step: the ordered pipeline of
// advection, diffusion, surface exchange, moist adjustment, buoyancy,
// Coriolis rotation, pressure projection, sponges, sinks, sanity checks,
// and steering/nest-recenter bookkeeping. The step order is contractual;
// reordering changes results materially.
type FlowCore struct {
	cfg      *Config
	grid     *Grid
	ref      *ReferenceState
	backend  NumericalBackend
	spectral *Spectral
	advector *Advector
	thermo   *ThermoPipeline
	sbl      *SurfaceBoundaryLayer
	steering *SteeringEngine
	basin    *BasinEnvironment
	fetcher  DataFetcher

	U, V, W, ThetaPrime, Q []float64
	distFromCenter         []float64 // meters, static in the moving nest's index space

	step      int
	dtSeconds float64
	coriolisF float64

	coarseCadence  int // steps between steering/fetch refreshes
	recenterRadius float64 // meters the storm may drift before a nest recenter fires

	pendingFetch     *fetchFuture
	lastSnapshot     *EnvironmentSnapshot
	fetchReverted    bool
	fetchRevertCount int
	lastRecenterLat  float64
	lastRecenterLon  float64

	log io.Writer
}

// NewFlowCore assembles a flow core from its already-constructed
// components and initial prognostic fields.
func NewFlowCore(cfg *Config, g *Grid, ref *ReferenceState, backend NumericalBackend, spectral *Spectral, advector *Advector, thermo *ThermoPipeline, sbl *SurfaceBoundaryLayer, steering *SteeringEngine, basin *BasinEnvironment, fetcher DataFetcher, dtSeconds, coriolisF float64, log io.Writer) *FlowCore {
	f := &FlowCore{
		cfg: cfg, grid: g, ref: ref, backend: backend, spectral: spectral,
		advector: advector, thermo: thermo, sbl: sbl, steering: steering,
		basin: basin, fetcher: fetcher,
		U:          g.NewField(),
		V:          g.NewField(),
		W:          g.NewField(),
		ThetaPrime: g.NewField(),
		Q:          g.NewField(),
		dtSeconds:  dtSeconds,
		coriolisF:  coriolisF,
		coarseCadence:  20,
		recenterRadius: g.LChar / 4,
		log:            log,
	}
	for i := range f.Q {
		f.Q[i] = cfg.BaseHumidity
	}
	f.distFromCenter = distanceFromCenterField(g)
	if log != nil {
		sbl.SetLogger(log)
	}
	return f
}

func distanceFromCenterField(g *Grid) []float64 {
	cx, cy := float64(g.Nx)/2, float64(g.Ny)/2
	out := make([]float64, g.Len())
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			dx := (float64(i) - cx) * g.DxPhys
			dy := (float64(j) - cy) * g.DyPhys
			d := math.Hypot(dx, dy)
			for k := 0; k < g.Nz; k++ {
				out[g.Index(i, j, k)] = d
			}
		}
	}
	return out
}

// Step advances the simulation by one timestep, running the full
// ordered pipeline and returning a fatal error (NaNError, ThetaBoundError,
// or a propagated InterpFailure) if one is detected.
func (f *FlowCore) Step(ctx context.Context) error {
	c := f.cfg
	dt := f.dtSeconds

	// 1. Advect u, v, w, theta', q.
	if err := f.advectAll(); err != nil {
		return err
	}

	// 2. Diffuse all five fields with nu_t * Laplacian(f) * dt.
	f.diffuseAll()

	// 3. Surface drag on (u,v) at the bottom level.
	f.surfaceDrag()

	// 4. Surface fluxes update q and produce dtheta'_surface.
	f.applySurfaceFluxes()

	// 5. Moist adjustment -> modifies q and theta'.
	f.thermo.MoistAdjust(f.ThetaPrime, f.Q, dt)

	// 6. Warm-rain cap and virga heating are applied inside MoistAdjust.

	// 7. Stratification tendency on theta'.
	strat := f.thermo.StratificationTendency(f.W)
	for i := range f.ThetaPrime {
		f.ThetaPrime[i] += strat[i] * dt
	}

	// 8. Buoyancy tendency on w.
	buoy := f.thermo.Buoyancy(f.ThetaPrime)
	for i := range f.W {
		f.W[i] += buoy[i] * dt
	}

	// 9. Coriolis rotation on (u,v).
	CoriolisRotate(f.U, f.V, f.coriolisF, dt)

	// 10. Pressure projection with steering injection in mean restoration.
	f.project()

	if !c.NoVelocityGovernor {
		GovernVelocity(f.U, f.V, f.W, c.MaxUpdraft/f.grid.UChar)
	}

	// 11. Horizontal sponge on u,v (and w, matching the edge mask).
	HorizontalSponge(f.U, f.V, f.W, f.grid, 4, dt, c.RelaxTau)

	// 12. Vertical sponge on w, theta', q, absorbing in the top 20% of the
	// domain.
	zeroTarget := func(int) float64 { return 0 }
	VerticalSponge(f.W, zeroTarget, f.grid, 0.20, dt, c.RelaxTau)
	VerticalSponge(f.ThetaPrime, zeroTarget, f.grid, 0.20, dt, c.RelaxTau)
	VerticalSponge(f.Q, f.ref.QRef, f.grid, 0.20, dt, c.RelaxTau)

	// 13. Far-field moisture relaxation (periodic).
	f.thermo.FarFieldMoistureRelax(f.Q, f.distFromCenter, dt)

	// 14. Optional theta' sinks (radiative, mean removal, environmental).
	rad := f.thermo.RadiativeCooling(f.ThetaPrime)
	for i := range f.ThetaPrime {
		f.ThetaPrime[i] += rad[i] * dt
	}
	if c.MeanRemoval {
		RemoveMean(f.ThetaPrime)
	}
	f.thermo.EnvironmentRelax(f.ThetaPrime, f.distFromCenter, dt)
	HighLatitudeThetaDamping(f.ThetaPrime, math.Abs(f.steering.Lat), dt, c.RelaxTau)

	// 15. Update diagnostic max wind (used by beta-drift hysteresis).
	maxWindKt := f.maxWindKt()

	// 16. Sanity check every 100 steps.
	if f.step%100 == 0 {
		if err := f.sanityCheck(); err != nil {
			return err
		}
	}

	// 17. Coarse steering cadence: refresh DLM + beta. Fine cadence: integrate
	// position every step.
	if f.step%f.coarseCadence == 0 {
		f.refreshSteering(ctx, maxWindKt)
	}
	f.steering.IntegratePosition(dt)

	// 18. Nest-recenter events.
	f.maybeRecenter(ctx)

	f.step++
	return nil
}

func (f *FlowCore) advectAll() error {
	fields := []*[]float64{&f.U, &f.V, &f.W, &f.ThetaPrime, &f.Q}
	for _, fp := range fields {
		next, err := f.advector.Advect(*fp, f.U, f.V, f.W)
		if err != nil {
			return err
		}
		*fp = next
	}
	return nil
}

func (f *FlowCore) diffuseAll() {
	nut := f.spectral.EddyViscosity(f.U, f.V, f.W, SmagorinskyConfig{Cs: 0.18, Delta: f.grid.Dx, Boost: f.cfg.ResolutionBoost})
	dt := f.dtSeconds
	diffuse := func(field []float64) {
		lap := f.spectral.Laplacian(field)
		for i := range field {
			field[i] += nut[i] * lap[i] * dt
		}
	}
	diffuse(f.U)
	diffuse(f.V)
	diffuse(f.W)
	diffuse(f.ThetaPrime)
	diffuse(f.Q)
}

// surfaceDrag applies a linear momentum sink to the bottom level only.
func (f *FlowCore) surfaceDrag() {
	const dragCoeff = 2e-3
	g := f.grid
	dt := f.dtSeconds
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			idx := g.Index(i, j, 0)
			f.U[idx] -= dragCoeff * f.U[idx] * dt
			f.V[idx] -= dragCoeff * f.V[idx] * dt
		}
	}
}

func (f *FlowCore) applySurfaceFluxes() {
	g := f.grid
	c := f.cfg
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			idx := g.Index(i, j, 0)
			windSpeed := math.Hypot(f.U[idx], f.V[idx]) * g.UChar
			sst := f.basin.SST(i%max(1, f.basin.Nx()), j%max(1, f.basin.Ny()))
			land := f.basin.LandFraction(i%max(1, f.basin.Nx()), j%max(1, f.basin.Ny()))
			absLat := math.Abs(f.steering.Lat)

			heatFlux, moistureFlux := f.sbl.SensibleAndLatentFlux(windSpeed, sst, f.ThetaPrime[idx], f.Q[idx], land, absLat)
			f.ThetaPrime[idx] += heatFlux * f.dtSeconds
			f.Q[idx] += moistureFlux * f.dtSeconds
			if f.Q[idx] < c.MoistureFloor {
				f.Q[idx] = c.MoistureFloor
			}
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (f *FlowCore) project() {
	g := f.grid
	steer := SteeringInjection{}
	if f.cfg.SteeringInjection {
		su, sv := f.steering.SteeringVector()
		steer = SteeringInjection{Enabled: true, MeanU: su / g.UChar, MeanV: sv / g.UChar}
	}
	u, v, w := f.spectral.Project(f.U, f.V, f.W, steer)
	f.U, f.V, f.W = u, v, w
}

func (f *FlowCore) maxWindKt() float64 {
	var maxSq float64
	for i := range f.U {
		sq := f.U[i]*f.U[i] + f.V[i]*f.V[i]
		if sq > maxSq {
			maxSq = sq
		}
	}
	speedMs := math.Sqrt(maxSq) * f.grid.UChar
	return speedMs * 1.94384
}

func (f *FlowCore) sanityCheck() error {
	check := func(name string, field []float64) error {
		for _, v := range field {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &NaNError{Field: name, Step: f.step}
			}
		}
		return nil
	}
	for name, field := range map[string][]float64{
		"u": f.U, "v": f.V, "w": f.W, "theta_prime": f.ThetaPrime, "q": f.Q,
	} {
		if err := check(name, field); err != nil {
			return err
		}
	}
	for _, th := range f.ThetaPrime {
		if th < f.cfg.ThetaPrimeMin || th > f.cfg.ThetaPrimeMax {
			return &ThetaBoundError{Value: th, Min: f.cfg.ThetaPrimeMin, Max: f.cfg.ThetaPrimeMax, Step: f.step}
		}
	}
	return nil
}

func (f *FlowCore) refreshSteering(ctx context.Context, maxWindKt float64) {
	f.drainFetch()
	if f.pendingFetch == nil {
		f.requestFetch(ctx)
	}

	samples := f.windSamplesFromSnapshot()
	landAtCenter := 0.0
	if f.basin != nil {
		landAtCenter = f.basin.LandFraction(f.basin.Nx()/2, f.basin.Ny()/2)
	}
	f.steering.RefreshDLM(samples, landAtCenter, maxWindKt)
}

func (f *FlowCore) windSamplesFromSnapshot() []WindSample {
	if f.lastSnapshot == nil {
		return nil
	}
	return f.lastSnapshot.Winds
}

func (f *FlowCore) requestFetch(ctx context.Context) {
	if f.fetcher == nil {
		return
	}
	fut := &fetchFuture{done: make(chan struct{})}
	f.pendingFetch = fut
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		snap, err := f.fetcher.Fetch(gctx, f.steering.Lat, f.steering.Lon)
		fut.snapshot, fut.err = snap, err
		close(fut.done)
		return err
	})
}

// drainFetch swaps in a completed fetch result at this safe point. On a
// FetchError it reverts to the last cached snapshot and records the
// reversion rather than propagating the error, matching spec.md's
// recoverable-fetch-failure contract.
func (f *FlowCore) drainFetch() {
	if f.pendingFetch == nil {
		return
	}
	select {
	case <-f.pendingFetch.done:
		fut := f.pendingFetch
		f.pendingFetch = nil
		if fut.err != nil {
			f.fetchReverted = true
			f.fetchRevertCount++
			if f.log != nil {
				fmt.Fprintf(f.log, "cyclone: fetch failed at step %d, reverting to cached environment: %v\n", f.step, fut.err)
			}
			return
		}
		f.fetchReverted = false
		f.lastSnapshot = fut.snapshot
		if fut.snapshot != nil {
			f.basin.SetLandFraction(fut.snapshot.LandFraction)
		}
	default:
	}
}

// maybeRecenter triggers a nest recenter (basin resample + fresh fetch
// request) once the storm has drifted more than recenterRadius from the
// last recenter point.
func (f *FlowCore) maybeRecenter(ctx context.Context) {
	dLat := f.steering.Lat - f.lastRecenterLat
	dLon := f.steering.Lon - f.lastRecenterLon
	const metersPerDegree = 111320.0
	driftM := math.Hypot(dLat*metersPerDegree, dLon*metersPerDegree*math.Cos(f.steering.Lat*math.Pi/180))
	if driftM < f.recenterRadius {
		return
	}
	f.lastRecenterLat, f.lastRecenterLon = f.steering.Lat, f.steering.Lon
	f.basin.Recenter(f.steering.Lat, f.steering.Lon)
	if f.pendingFetch == nil {
		f.requestFetch(ctx)
	}
}

// FetchReverted reports whether the most recent steering refresh reverted
// to a cached environment snapshot after a FetchError.
func (f *FlowCore) FetchReverted() bool { return f.fetchReverted }

// FetchRevertCount reports how many times a fetch failure has reverted
// the environment to its cached snapshot over the run's lifetime.
func (f *FlowCore) FetchRevertCount() int { return f.fetchRevertCount }

// CurrentStep returns the current step count.
func (f *FlowCore) CurrentStep() int { return f.step }
