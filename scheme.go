package cyclone

import (
	"github.com/tropicrad/cyclone/science/moistadjust"
	"github.com/tropicrad/cyclone/science/moistadjust/bettsmiller"
	"github.com/tropicrad/cyclone/science/moistadjust/instant"
)

// SelectMoistScheme picks the moist-adjustment scheme named by the
// config's mutually exclusive BettsMiller switch: Betts-Miller relaxation
// when set, instant-saturation condensation otherwise.
func SelectMoistScheme(cfg *Config) moistadjust.Scheme {
	if cfg.BettsMiller {
		return bettsmiller.New(cfg.TauBM)
	}
	return instant.New()
}
