// Package instant implements the instant-saturation moist-adjustment
// scheme: any specific humidity above the Magnus-formula saturation value
// condenses within the timestep, releasing latent heat into theta' and
// producing precipitation.
package instant

import "github.com/tropicrad/cyclone/science/moistadjust"

// Scheme is the instant-saturation adjustment. It holds no state: every
// call is a pure function of its Input.
type Scheme struct{}

// New returns an instant-saturation moist-adjustment scheme.
func New() *Scheme { return &Scheme{} }

// Adjust condenses any supersaturation immediately, converting it to
// warming (via latent heat release, expressed as a theta' increment of
// L_v*dq/c_p) and precipitation. The increment is the temperature
// response itself: it is not Exner-scaled to potential temperature and
// carries no precipitation-efficiency factor.
func (Scheme) Adjust(in moistadjust.Input) moistadjust.Output {
	tCelsius := in.ThetaPrime + 15.0 // coarse column-mean reference offset
	qsat := moistadjust.SaturationSpecificHumidity(tCelsius, in.PressureHPa)

	excess := in.Q - qsat
	if excess <= 0 {
		return moistadjust.Output{}
	}

	condensed := excess * in.TaperWeight
	dTheta := moistadjust.LatentHeatVaporization * condensed / moistadjust.SpecificHeatDryAir

	return moistadjust.Output{
		DThetaPrime: dTheta,
		DQ:          -condensed,
		Precip:      condensed,
	}
}
