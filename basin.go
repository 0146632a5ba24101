package cyclone

import (
	"sort"

	"github.com/ctessum/sparse"
)

// sstClimatology holds the zonal-mean Atlantic sea-surface-temperature
// anchor points (°N latitude -> SST, °C), sampled every 5° from the
// equator to 60°N.
var sstClimatology = map[int]float64{
	0:  27.0,
	5:  28.0,
	10: 28.5,
	15: 29.0,
	20: 28.5,
	25: 27.5,
	30: 26.0,
	35: 24.0,
	40: 21.0,
	45: 18.0,
	50: 15.0,
	55: 12.0,
	60: 10.0,
}

var sstLats = sortedKeys(sstClimatology)

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// zonalSST returns the linearly interpolated climatological SST, °C, for
// a latitude anywhere in [0, 60]; outside that range it clamps to the
// nearest anchor.
func zonalSST(lat float64) float64 {
	if lat <= float64(sstLats[0]) {
		return sstClimatology[sstLats[0]]
	}
	last := sstLats[len(sstLats)-1]
	if lat >= float64(last) {
		return sstClimatology[last]
	}
	for i := 0; i < len(sstLats)-1; i++ {
		lo, hi := sstLats[i], sstLats[i+1]
		if lat >= float64(lo) && lat <= float64(hi) {
			frac := (lat - float64(lo)) / float64(hi-lo)
			return sstClimatology[lo] + frac*(sstClimatology[hi]-sstClimatology[lo])
		}
	}
	return sstClimatology[last]
}

// oceanHeatContent derives the ocean heat content proxy from SST using
// "Five's Formula": OHC = max(0, 50*(SST-26)) + 20, the empirical
// relationship between SST and subsurface warm-water depth used to gate
// rapid intensification in the surface-flux parameterization.
func oceanHeatContent(sstCelsius float64) float64 {
	warm := 50.0 * (sstCelsius - 26.0)
	if warm < 0 {
		warm = 0
	}
	return warm + 20.0
}

// BasinEnvironment holds the large-scale, slowly varying ocean/land state
// the surface-flux parameterization and steering engine read each step:
// SST, ocean heat content, and land fraction, resampled onto the nest's
// current footprint whenever the nest recenters.
type BasinEnvironment struct {
	nx, ny int

	sst          *sparse.DenseArray
	ohc          *sparse.DenseArray
	landFraction *sparse.DenseArray

	lat0, lon0   float64 // footprint origin, degrees
	dLat, dLon   float64 // footprint cell spacing, degrees
}

// NewBasinEnvironment builds a basin state for a nest footprint of
// nx-by-ny cells centered geographically per the given origin and
// spacing, sampling the zonal climatology and deriving OHC immediately.
func NewBasinEnvironment(nx, ny int, lat0, lon0, dLat, dLon float64) *BasinEnvironment {
	b := &BasinEnvironment{
		nx: nx, ny: ny,
		sst:          sparse.ZerosDense(nx, ny),
		ohc:          sparse.ZerosDense(nx, ny),
		landFraction: sparse.ZerosDense(nx, ny),
		lat0:         lat0, lon0: lon0,
		dLat: dLat, dLon: dLon,
	}
	b.resampleClimatology()
	return b
}

func (b *BasinEnvironment) latAt(i int) float64 { return b.lat0 + float64(i)*b.dLat }

func (b *BasinEnvironment) resampleClimatology() {
	for i := 0; i < b.nx; i++ {
		sst := zonalSST(b.latAt(i))
		ohc := oceanHeatContent(sst)
		for j := 0; j < b.ny; j++ {
			b.sst.Set(sst, i, j)
			b.ohc.Set(ohc, i, j)
		}
	}
}

// Recenter shifts the footprint origin to a new storm-relative position
// and resamples the climatology. Land fraction is left untouched here:
// it is set explicitly from a DataFetcher snapshot via SetLandFraction,
// since climatology has no land model.
func (b *BasinEnvironment) Recenter(lat0, lon0 float64) {
	b.lat0, b.lon0 = lat0, lon0
	b.resampleClimatology()
}

// SetLandFraction installs a land-sea mask fetched from an external
// collaborator (DataFetcher), overwriting the current footprint's mask.
func (b *BasinEnvironment) SetLandFraction(mask [][]float64) {
	for i := 0; i < b.nx && i < len(mask); i++ {
		row := mask[i]
		for j := 0; j < b.ny && j < len(row); j++ {
			b.landFraction.Set(row[j], i, j)
		}
	}
}

// Nx returns the footprint's x extent in cells.
func (b *BasinEnvironment) Nx() int { return b.nx }

// Ny returns the footprint's y extent in cells.
func (b *BasinEnvironment) Ny() int { return b.ny }

// SST returns the sea-surface temperature, °C, at footprint cell (i,j).
func (b *BasinEnvironment) SST(i, j int) float64 { return b.sst.Get(i, j) }

// OHC returns the ocean heat content proxy at footprint cell (i,j).
func (b *BasinEnvironment) OHC(i, j int) float64 { return b.ohc.Get(i, j) }

// LandFraction returns the land fraction, 0 (open ocean) to 1 (land), at
// footprint cell (i,j).
func (b *BasinEnvironment) LandFraction(i, j int) float64 { return b.landFraction.Get(i, j) }
