package cyclone

import "math"

const (
	gravity   = 9.80665 // m/s^2
	rSpecific = 287.05  // J/(kg K), dry air gas constant
	cp        = 1004.0  // J/(kg K), dry air specific heat at constant pressure
	p0Ref     = 1000.0  // hPa, reference surface pressure
	kappaDry  = rSpecific / cp
)

// ReferenceState is the hydrostatic, horizontally uniform background
// atmosphere the prognostic fields perturb around: background potential
// temperature θ₀(z), its vertical derivative, pressure, and the
// exponent relating potential temperature to actual temperature.
type ReferenceState struct {
	grid *Grid

	thetaSurface float64 // K
	gammaTheta   float64 // K/km
	scaleHeight  float64 // m

	theta0    []float64 // per level, K
	dTheta0Dz []float64 // per level, K/m
	pressure  []float64 // per level, hPa
	qRef      []float64 // per level, kg/kg background specific humidity
}

// NewReferenceState builds the level-wise background profile from a grid
// and the surface potential temperature / lapse rate / scale height
// configured for the run.
func NewReferenceState(g *Grid, cfg *Config) *ReferenceState {
	r := &ReferenceState{
		grid:         g,
		thetaSurface: cfg.ThetaSurface,
		gammaTheta:   cfg.GammaTheta,
		scaleHeight:  cfg.ScaleHeight,
		theta0:       make([]float64, g.Nz),
		dTheta0Dz:    make([]float64, g.Nz),
		pressure:     make([]float64, g.Nz),
		qRef:         make([]float64, g.Nz),
	}
	gammaPerM := cfg.GammaTheta / 1000.0
	for k := 0; k < g.Nz; k++ {
		z := float64(k) * g.DzPhys
		r.theta0[k] = r.thetaSurface + gammaPerM*z
		r.dTheta0Dz[k] = gammaPerM
		r.pressure[k] = p0Ref * math.Exp(-z/r.scaleHeight)
		r.qRef[k] = cfg.BaseHumidity * math.Exp(-z/cfg.HumidityScaleHeight)
	}
	return r
}

// Theta0 returns the background potential temperature at level k, K.
func (r *ReferenceState) Theta0(k int) float64 { return r.theta0[k] }

// DTheta0Dz returns the background potential temperature vertical
// gradient at level k, K/m. Constant for the linear profile used here.
func (r *ReferenceState) DTheta0Dz(k int) float64 { return r.dTheta0Dz[k] }

// Pressure returns the background (Exner-consistent) hydrostatic pressure
// at level k, hPa.
func (r *ReferenceState) Pressure(k int) float64 { return r.pressure[k] }

// QRef returns the background specific humidity profile q_ref(z) =
// BaseHumidity * exp(-z/HumidityScaleHeight) at level k, kg/kg. Sponges
// and far-field relaxation pull q toward this rather than a flat constant.
func (r *ReferenceState) QRef(k int) float64 { return r.qRef[k] }

// Exner returns the Exner function (P/P0)^kappa at level k, used to
// convert between potential and actual temperature.
func (r *ReferenceState) Exner(k int) float64 {
	return math.Pow(r.pressure[k]/p0Ref, kappaDry)
}

// Kappa is the dry-air R/cp exponent used throughout the thermodynamic
// pipeline.
func (r *ReferenceState) Kappa() float64 { return kappaDry }

// P0 is the reference surface pressure, hPa.
func (r *ReferenceState) P0() float64 { return p0Ref }

// Temperature converts a potential temperature perturbation thetaPrime at
// level k into an absolute temperature, K.
func (r *ReferenceState) Temperature(thetaPrime float64, k int) float64 {
	return (r.theta0[k] + thetaPrime) * r.Exner(k)
}
