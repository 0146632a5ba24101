package cyclone

import (
	"math"

	"github.com/tropicrad/cyclone/science/moistadjust"
)

// ThermoPipeline runs the potential-temperature-perturbation (theta') and
// moisture tendency chain each step: stratification advection, moist
// adjustment (instant or Betts-Miller), warm-rain capping with virga
// heating, buoyancy, Coriolis rotation via an energy-conserving Cayley
// transform, the optional sinks (radiative cooling, mean removal,
// environmental relaxation), high-latitude damping, cold-anomaly
// diffusion, sponges, and far-field moisture relaxation.
type ThermoPipeline struct {
	cfg      *Config
	grid     *Grid
	ref      *ReferenceState
	spectral *Spectral
	scheme   moistadjust.Scheme
}

// NewThermoPipeline wires the pipeline to a grid, reference state,
// spectral operator set, and the moist-adjustment scheme selected by
// Config.BettsMiller (callers construct the concrete instant/bettsmiller
// scheme and pass it in, keeping this package free of a direct
// dependency on either subpackage's constructor choice).
func NewThermoPipeline(cfg *Config, g *Grid, ref *ReferenceState, spectral *Spectral, scheme moistadjust.Scheme) *ThermoPipeline {
	return &ThermoPipeline{cfg: cfg, grid: g, ref: ref, spectral: spectral, scheme: scheme}
}

// StratificationTendency returns -w * dTheta0/dz, the rate at which
// vertical motion advects the background stratification into the
// perturbation field.
func (t *ThermoPipeline) StratificationTendency(w []float64) []float64 {
	g := t.grid
	out := make([]float64, len(w))
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)
				out[idx] = -w[idx] * t.ref.DTheta0Dz(k)
			}
		}
	}
	return out
}

// MoistAdjust runs the configured moist-adjustment scheme over every
// column cell, applying the warm-rain cap (excess condensate above
// WarmRainCap is converted to virga heating at the level below instead of
// surface precipitation) when Config.WarmRain is set. It mutates
// thetaPrime and q in place and returns the per-cell precipitation field.
func (t *ThermoPipeline) MoistAdjust(thetaPrime, q []float64, dtSeconds float64) []float64 {
	g := t.grid
	c := t.cfg
	precip := make([]float64, len(thetaPrime))

	taperWeight := 1.0
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)
				if c.BettsMiller {
					taperWeight = t.bettsMillerTaper(k)
				}
				out := t.scheme.Adjust(moistadjust.Input{
					ThetaPrime:  thetaPrime[idx],
					Q:           q[idx],
					PressureHPa: t.ref.Pressure(k),
					DtSeconds:   dtSeconds,
					ReferenceRH: c.BMReferenceRH,
					TaperWeight: taperWeight,
				})
				thetaPrime[idx] += out.DThetaPrime
				q[idx] += out.DQ
				if q[idx] < c.MoistureFloor {
					q[idx] = c.MoistureFloor
				}

				p := out.Precip
				if c.WarmRain && p > c.WarmRainCap {
					excess := p - c.WarmRainCap
					p = c.WarmRainCap
					if k > 0 {
						below := g.Index(i, j, k-1)
						virgaHeating := moistadjust.LatentHeatVaporization * excess / moistadjust.SpecificHeatDryAir * 0.5
						thetaPrime[below] += virgaHeating
					}
				}
				precip[idx] = p
			}
		}
	}
	return precip
}

// bettsMillerTaper returns the vertical taper weight for level k, ramping
// linearly from 0 at BMTaperStart to 1 at BMTaperFull (expressed as
// fractions of Nz), raised to BMTaperPower. MoistAdjust calls it only when
// Config.BettsMiller is set; the instant scheme gets a weight of 1 at
// every level.
func (t *ThermoPipeline) bettsMillerTaper(k int) float64 {
	c := t.cfg
	g := t.grid
	frac := float64(k) / float64(g.Nz-1)
	switch {
	case frac <= c.BMTaperStart:
		return 0
	case frac >= c.BMTaperFull:
		return 1
	default:
		span := c.BMTaperFull - c.BMTaperStart
		if span <= 0 {
			return 1
		}
		x := (frac - c.BMTaperStart) / span
		return math.Pow(x, c.BMTaperPower)
	}
}

// Buoyancy returns the buoyant acceleration g*thetaPrime/theta0(k) at
// every cell, the forcing term that feeds back into vertical velocity.
func (t *ThermoPipeline) Buoyancy(thetaPrime []float64) []float64 {
	g := t.grid
	out := make([]float64, len(thetaPrime))
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)
				b := gravity * thetaPrime[idx] / t.ref.Theta0(k)
				if !t.cfg.FullyUnconstrained && b > t.cfg.BuoyancyCap {
					b = t.cfg.BuoyancyCap
				} else if !t.cfg.FullyUnconstrained && b < -t.cfg.BuoyancyCap {
					b = -t.cfg.BuoyancyCap
				}
				out[idx] = b
			}
		}
	}
	return out
}

// CoriolisRotate rotates the horizontal velocity (u,v) by the Coriolis
// parameter f over dtSeconds using the Cayley transform, the implicit
// midpoint rule solved in closed form: it conserves kinetic energy
// exactly regardless of step size, unlike a forward-Euler update.
func CoriolisRotate(u, v []float64, f, dtSeconds float64) {
	a := f * dtSeconds / 2
	denom := 1 + a*a
	for i := range u {
		ui, vi := u[i], v[i]
		u[i] = (ui*(1-a*a) + 2*a*vi) / denom
		v[i] = (vi*(1-a*a) - 2*a*ui) / denom
	}
}

// RadiativeCooling returns a uniform cooling tendency, K/s, toward the
// reference profile. When Config.DynamicCooling is set, the cooling
// timescale shortens (cools faster) as the domain-mean theta' magnitude
// grows, floored at TauRadMin, approximating stronger outgoing longwave
// loss from a more disturbed column.
func (t *ThermoPipeline) RadiativeCooling(thetaPrime []float64) []float64 {
	c := t.cfg
	out := make([]float64, len(thetaPrime))
	if !c.RadiativeCooling {
		return out
	}
	tau := c.TauRad
	if c.DynamicCooling {
		meanAbs := meanAbsolute(thetaPrime)
		scaled := c.TauRad * (1 - meanAbs/c.ThetaScale)
		if scaled < c.TauRadMin {
			scaled = c.TauRadMin
		}
		tau = scaled
	}
	for i, th := range thetaPrime {
		out[i] = -th / tau
	}
	return out
}

func meanAbsolute(field []float64) float64 {
	var sum float64
	for _, v := range field {
		sum += math.Abs(v)
	}
	if len(field) == 0 {
		return 0
	}
	return sum / float64(len(field))
}

// RemoveMean subtracts the domain-mean perturbation from thetaPrime in
// place, used when Config.MeanRemoval keeps the simulation anchored to a
// fixed background rather than letting the whole domain slowly warm.
func RemoveMean(thetaPrime []float64) {
	var sum float64
	for _, v := range thetaPrime {
		sum += v
	}
	mean := sum / float64(len(thetaPrime))
	for i := range thetaPrime {
		thetaPrime[i] -= mean
	}
}

// EnvironmentRelax relaxes thetaPrime toward zero outside RelaxRadius
// (meters, in storm-relative radius supplied per cell by distFromCenter)
// over RelaxTau seconds, representing nudging toward an undisturbed
// environment far from the vortex.
func (t *ThermoPipeline) EnvironmentRelax(thetaPrime []float64, distFromCenter []float64, dtSeconds float64) {
	c := t.cfg
	if !c.EnvironmentRelax {
		return
	}
	relaxFrac := dtSeconds / c.RelaxTau
	if relaxFrac > 1 {
		relaxFrac = 1
	}
	for i, d := range distFromCenter {
		if d < c.RelaxRadius {
			continue
		}
		thetaPrime[i] -= thetaPrime[i] * relaxFrac
	}
}

// HighLatitudeThetaDamping damps and relaxes thetaPrime poleward of 30°,
// the thermodynamic-field analogue of SurfaceBoundaryLayer's flux
// damping: tropical cyclone thermodynamics have no physical basis once
// the column loses its warm-core support.
func HighLatitudeThetaDamping(thetaPrime []float64, absLat, dtSeconds, tau float64) {
	damp := highLatitudeDamping(absLat)
	if damp >= 1.0 {
		return
	}
	relax := dtSeconds / tau
	if relax > 1 {
		relax = 1
	}
	factor := damp + (1-damp)*(1-relax)
	for i := range thetaPrime {
		thetaPrime[i] *= factor
	}
}

// ColdAnomalyDiffusion applies extra Laplacian smoothing only where
// thetaPrime is negative, suppressing the small-scale cold pools that
// downdraft evaporative cooling tends to generate without a matching
// physical cold-pool dynamics package.
func (t *ThermoPipeline) ColdAnomalyDiffusion(thetaPrime []float64, coeff, dtSeconds float64) {
	if coeff <= 0 {
		return
	}
	lap := t.spectral.Laplacian(thetaPrime)
	for i, th := range thetaPrime {
		if th < 0 {
			thetaPrime[i] += coeff * lap[i] * dtSeconds
		}
	}
}

// VerticalSponge damps field toward target(k) in the top spongeDepth
// fraction of levels (by Nz), using the Klemp-Lilly cos^2 Rayleigh-damping
// mask (zero at the sponge base, rising to full strength at the model
// top) so upward-propagating waves are absorbed rather than reflected off
// the rigid lid. target is a per-level function so callers can relax a
// field toward a height-dependent profile (e.g. q toward q_ref(z)) rather
// than only a flat constant.
func VerticalSponge(field []float64, target func(k int) float64, g *Grid, spongeDepthFrac, dtSeconds, tau float64) {
	spongeStart := int(float64(g.Nz) * (1 - spongeDepthFrac))
	if spongeStart >= g.Nz {
		return
	}
	relax := dtSeconds / tau
	if relax > 1 {
		relax = 1
	}
	span := float64(g.Nz - 1 - spongeStart)
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := spongeStart; k < g.Nz; k++ {
				frac := 1.0
				if span > 0 {
					frac = float64(k-spongeStart) / span
				}
				mask := math.Cos(0.5 * math.Pi * (1 - frac))
				mask *= mask
				idx := g.Index(i, j, k)
				field[idx] -= (field[idx] - target(k)) * mask * relax
			}
		}
	}
}

// HorizontalSponge damps all three velocity components within
// spongeWidth cells of the horizontal domain edges, the lateral analogue
// of VerticalSponge for the triply periodic-but-nested domain boundary.
func HorizontalSponge(u, v, w []float64, g *Grid, spongeWidth int, dtSeconds, tau float64) {
	if spongeWidth <= 0 {
		return
	}
	relax := dtSeconds / tau
	if relax > 1 {
		relax = 1
	}
	edgeFactor := func(i, n int) float64 {
		d := i
		if n-1-i < d {
			d = n - 1 - i
		}
		if d >= spongeWidth {
			return 1.0
		}
		frac := float64(spongeWidth-d) / float64(spongeWidth)
		return 1 - frac*relax
	}
	for i := 0; i < g.Nx; i++ {
		fx := edgeFactor(i, g.Nx)
		for j := 0; j < g.Ny; j++ {
			fy := edgeFactor(j, g.Ny)
			f := math.Min(fx, fy)
			if f >= 1.0 {
				continue
			}
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)
				u[idx] *= f
				v[idx] *= f
				w[idx] *= f
			}
		}
	}
}

// FarFieldMoistureRelax relaxes specific humidity toward the reference
// profile q_ref(z) outside RelaxRadius, the moisture-field counterpart of
// EnvironmentRelax.
func (t *ThermoPipeline) FarFieldMoistureRelax(q []float64, distFromCenter []float64, dtSeconds float64) {
	c := t.cfg
	if !c.EnvironmentRelax {
		return
	}
	g := t.grid
	relaxFrac := dtSeconds / c.RelaxTau
	if relaxFrac > 1 {
		relaxFrac = 1
	}
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)
				if distFromCenter[idx] < c.RelaxRadius {
					continue
				}
				q[idx] -= (q[idx] - t.ref.QRef(k)) * relaxFrac
			}
		}
	}
}
