// Package bettsmiller implements the Betts-Miller convective relaxation
// scheme: moisture and temperature relax toward a reference profile over
// a configurable timescale, rather than condensing instantaneously. It is
// the mutually exclusive alternative to instant-saturation adjustment.
package bettsmiller

import "github.com/tropicrad/cyclone/science/moistadjust"

// Scheme is the Betts-Miller relaxation adjustment, parameterized by the
// relaxation timescale TauSeconds.
type Scheme struct {
	TauSeconds float64
}

// New returns a Betts-Miller scheme relaxing toward saturation-consistency
// over tauSeconds.
func New(tauSeconds float64) *Scheme {
	return &Scheme{TauSeconds: tauSeconds}
}

// Adjust relaxes q toward ReferenceRH * qsat and theta' toward the
// latent-heat-consistent equilibrium over TauSeconds, tapered by
// in.TaperWeight (the caller's vertical/radial taper, e.g. BMTaperStart /
// BMTaperFull / BMTaperPower applied before calling Adjust).
func (s *Scheme) Adjust(in moistadjust.Input) moistadjust.Output {
	if s.TauSeconds <= 0 {
		return moistadjust.Output{}
	}

	tCelsius := in.ThetaPrime + 15.0
	qsatRef := moistadjust.SaturationSpecificHumidity(tCelsius, in.PressureHPa) * in.ReferenceRH

	excess := in.Q - qsatRef
	relaxFrac := in.DtSeconds / s.TauSeconds
	if relaxFrac > 1 {
		relaxFrac = 1
	}
	relaxFrac *= in.TaperWeight

	dQ := excess * relaxFrac
	if dQ <= 0 {
		// Sub-saturated relative to the reference: no convective response.
		return moistadjust.Output{}
	}

	dTheta := moistadjust.LatentHeatVaporization * dQ / moistadjust.SpecificHeatDryAir

	return moistadjust.Output{
		DThetaPrime: dTheta,
		DQ:          -dQ,
		Precip:      dQ,
	}
}
