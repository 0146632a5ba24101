package cyclone

import "github.com/tropicrad/cyclone/internal/fftutil"

// NumericalBackend is the capability a component needs to do spectral
// work: forward/inverse transforms and the wavenumber tables that go with
// them. It exists so Spectral depends on an explicit capability rather
// than a bound global array-module alias, and so a different transform
// implementation can be substituted in tests without touching callers.
type NumericalBackend interface {
	Forward(field []complex128)
	Inverse(field []complex128)
	Wavenumbers() (kx, ky, kz []float64)
}

// fftBackend is the default NumericalBackend, backed by internal/fftutil's
// separable 3D complex FFT.
type fftBackend struct {
	dims       fftutil.Dims
	kx, ky, kz []float64
}

// NewFFTBackend builds the default backend for a grid's dimensionless
// spacing.
func NewFFTBackend(g *Grid) NumericalBackend {
	dims := fftutil.Dims{Nx: g.Nx, Ny: g.Ny, Nz: g.Nz}
	return &fftBackend{
		dims: dims,
		kx:   fftutil.Freq(g.Nx, g.Dx),
		ky:   fftutil.Freq(g.Ny, g.Dy),
		kz:   fftutil.Freq(g.Nz, g.Dz),
	}
}

func (b *fftBackend) Forward(field []complex128) { fftutil.Forward3(field, b.dims) }
func (b *fftBackend) Inverse(field []complex128) { fftutil.Inverse3(field, b.dims) }

func (b *fftBackend) Wavenumbers() (kx, ky, kz []float64) { return b.kx, b.ky, b.kz }
