package cyclone

import (
	"fmt"
	"io"
	"math"
)

// SurfaceBoundaryLayer computes bulk aerodynamic surface fluxes of heat
// and moisture into the lowest model level, including the WISHE
// (wind-induced surface heat exchange) intensity feedback, flux
// throttling near the configured theta' bounds, high-latitude damping,
// and land-sea blending via the basin's land fraction.
type SurfaceBoundaryLayer struct {
	cfg *Config

	log            io.Writer
	lastDampBucket int // index into dampLogThresholds already crossed, -1 = none
}

// NewSurfaceBoundaryLayer builds the SBL parameterization from a run
// configuration.
func NewSurfaceBoundaryLayer(cfg *Config) *SurfaceBoundaryLayer {
	return &SurfaceBoundaryLayer{cfg: cfg, lastDampBucket: -1}
}

// SetLogger attaches a diagnostic sink for high-latitude damping
// threshold crossings. A nil writer (the default) disables logging.
func (s *SurfaceBoundaryLayer) SetLogger(w io.Writer) { s.log = w }

var dampLogThresholds = []float64{0.9, 0.75, 0.5, 0.25, 0.1}

func (s *SurfaceBoundaryLayer) logDampCrossing(absLat, damp float64) {
	if s.log == nil {
		return
	}
	for i, th := range dampLogThresholds {
		if damp <= th && s.lastDampBucket < i {
			fmt.Fprintf(s.log, "cyclone: high-latitude flux damping crossed %.2f at |lat|=%.1f (damp=%.3f)\n", th, absLat, damp)
			s.lastDampBucket = i
		}
	}
}

const (
	bulkExchangeCoeff = 1.2e-3 // dimensionless bulk transfer coefficient Ck/Cd proxy
	airDensitySurface = 1.15   // kg/m^3
)

// SensibleAndLatentFlux returns the bulk sensible heat flux (K/s
// equivalent tendency scale) and moisture flux (kg/kg/s equivalent scale)
// at one surface column, given the 10 m wind speed, SST, surface air
// potential temperature perturbation, specific humidity, land fraction,
// and absolute latitude in degrees. The WISHE ramp depends only on wind
// speed, not ocean heat content.
func (s *SurfaceBoundaryLayer) SensibleAndLatentFlux(windSpeed, sstCelsius, thetaPrimeSurf, qSurf, landFraction, absLat float64) (heatFlux, moistureFlux float64) {
	c := s.cfg

	oceanQsat := saturationSpecificHumidity(sstCelsius)
	deltaTheta := sstCelsius + 273.15 - (c.ThetaSurface + thetaPrimeSurf)
	deltaQ := oceanQsat - qSurf

	// The WISHE boost applies to the theta' surface tendency only, not q.
	ckHeat := bulkExchangeCoeff
	if c.WisheBoost {
		ckHeat *= s.wisheRamp(windSpeed)
	}

	heatFluxBoosted := ckHeat * airDensitySurface * windSpeed * deltaTheta / c.FluxDepth
	heatFluxUnboosted := bulkExchangeCoeff * airDensitySurface * windSpeed * deltaTheta / c.FluxDepth
	moistureFlux = bulkExchangeCoeff * airDensitySurface * windSpeed * deltaQ / c.FluxDepth

	heatFlux = s.throttle(heatFluxBoosted, heatFluxUnboosted, thetaPrimeSurf)

	damp := highLatitudeDamping(absLat)
	s.logDampCrossing(absLat, damp)
	heatFlux *= damp
	moistureFlux *= damp

	oceanWeight := 1 - landFraction
	heatFlux *= oceanWeight
	moistureFlux *= oceanWeight

	return heatFlux, moistureFlux
}

// wisheRamp returns the multiplicative WISHE boost on the exchange
// coefficient: ramp = clip((w_s-w_min)/(w_max-w_min), 0, 1), boost =
// 1 + (boost_max-1)*ramp. No OHC dependence.
func (s *SurfaceBoundaryLayer) wisheRamp(windSpeed float64) float64 {
	c := s.cfg
	ramp := (windSpeed - c.WisheWindMin) / (c.WisheWindMax - c.WisheWindMin)
	if ramp < 0 {
		ramp = 0
	} else if ramp > 1 {
		ramp = 1
	}
	return 1.0 + (c.WisheBoostMax-1.0)*ramp
}

// throttle gates the WISHE-boosted heat flux two ways: a derivative gate
// on how fast theta' is being driven per minute, and an integral gate on
// how close theta' itself already sits to the configured bounds. Binary
// mode (FluxThrottle) forces the WISHE boost back off — reverting to the
// unboosted tendency — once the per-minute rate exceeds
// FluxThrottleThreshold, rather than zeroing the flux outright.
// Proportional mode (ProportionalThrottle) takes the tighter of a
// derivative factor (threshold/rate, clipped [0.1,1]) and an integral
// factor (the soft/hard theta' taper).
func (s *SurfaceBoundaryLayer) throttle(boosted, unboosted, thetaPrime float64) float64 {
	c := s.cfg
	heatFlux := boosted
	dThetaPerMin := math.Abs(boosted) * 60.0

	if c.FluxThrottle && dThetaPerMin > c.FluxThrottleThreshold {
		heatFlux = unboosted
	}

	if c.ProportionalThrottle {
		const small = 1e-9
		derivative := c.FluxThrottleThreshold / math.Max(dThetaPerMin, small)
		if derivative > 1 {
			derivative = 1
		} else if derivative < 0.1 {
			derivative = 0.1
		}

		abs := math.Abs(thetaPrime)
		var integral float64
		switch {
		case abs <= c.ThetaPrimeSoftLimit:
			integral = 1
		case abs >= c.ThetaPrimeHardLimit:
			integral = 0
		default:
			frac := (abs - c.ThetaPrimeSoftLimit) / (c.ThetaPrimeHardLimit - c.ThetaPrimeSoftLimit)
			integral = 1 - frac
		}

		effective := math.Min(derivative, integral)
		heatFlux *= effective
	}
	return heatFlux
}

// highLatitudeDamping returns a multiplicative factor that tapers surface
// fluxes starting at 30°: exp(-(|lat|-30)/7), a crude proxy for the loss
// of tropical thermodynamic support outside the deep tropics.
func highLatitudeDamping(absLat float64) float64 {
	const dampStart = 30.0
	if absLat <= dampStart {
		return 1.0
	}
	return math.Exp(-(absLat - dampStart) / 7.0)
}

// saturationSpecificHumidity approximates saturation specific humidity,
// kg/kg, over water at temperature tCelsius using the Magnus formula for
// saturation vapor pressure at 1000 hPa.
func saturationSpecificHumidity(tCelsius float64) float64 {
	esat := 6.112 * math.Exp(17.67*tCelsius/(tCelsius+243.5)) // hPa
	return 0.622 * esat / (1000.0 - 0.378*esat)
}
