// Package fftutil wraps gonum's complex FFT into the separable
// three-dimensional transform the spectral operators need: forward and
// inverse transforms applied one axis at a time across a flattened
// row-major Nx*Ny*Nz buffer.
package fftutil

import "gonum.org/v1/gonum/dsp/fourier"

// Dims describes the shape of a row-major (x slowest, z fastest) 3D buffer.
type Dims struct {
	Nx, Ny, Nz int
}

func (d Dims) index(i, j, k int) int {
	return (i*d.Ny+j)*d.Nz + k
}

// Freq returns the angular wavenumbers (2π·fftfreq(n, d)) for an axis of
// length n with physical sample spacing d.
func Freq(n int, d float64) []float64 {
	k := make([]float64, n)
	for i := 0; i < n; i++ {
		f := i
		if i > (n-1)/2 {
			f = i - n
		}
		k[i] = 2 * 3.141592653589793 * float64(f) / (float64(n) * d)
	}
	return k
}

// Forward3 performs an in-place forward FFT of the complex field over all
// three axes (x, then y, then z).
func Forward3(field []complex128, d Dims) {
	transformAxis(field, d, 0, false)
	transformAxis(field, d, 1, false)
	transformAxis(field, d, 2, false)
}

// Inverse3 performs an in-place inverse FFT of the complex field over all
// three axes, including the 1/N normalization.
func Inverse3(field []complex128, d Dims) {
	transformAxis(field, d, 0, true)
	transformAxis(field, d, 1, true)
	transformAxis(field, d, 2, true)
	n := float64(d.Nx * d.Ny * d.Nz)
	for i := range field {
		field[i] /= complex(n, 0)
	}
}

// transformAxis runs a batch of 1D complex FFTs along the given axis
// (0=x, 1=y, 2=z), leaving the result unnormalized; normalization for a
// full inverse transform is applied once in Inverse3.
func transformAxis(field []complex128, d Dims, axis int, inverse bool) {
	var n int
	switch axis {
	case 0:
		n = d.Nx
	case 1:
		n = d.Ny
	default:
		n = d.Nz
	}
	fft := fourier.NewCmplxFFT(n)
	line := make([]complex128, n)

	switch axis {
	case 0:
		for j := 0; j < d.Ny; j++ {
			for k := 0; k < d.Nz; k++ {
				for i := 0; i < n; i++ {
					line[i] = field[d.index(i, j, k)]
				}
				runFFT(fft, line, inverse)
				for i := 0; i < n; i++ {
					field[d.index(i, j, k)] = line[i]
				}
			}
		}
	case 1:
		for i := 0; i < d.Nx; i++ {
			for k := 0; k < d.Nz; k++ {
				for j := 0; j < n; j++ {
					line[j] = field[d.index(i, j, k)]
				}
				runFFT(fft, line, inverse)
				for j := 0; j < n; j++ {
					field[d.index(i, j, k)] = line[j]
				}
			}
		}
	default:
		for i := 0; i < d.Nx; i++ {
			for j := 0; j < d.Ny; j++ {
				base := d.index(i, j, 0)
				copy(line, field[base:base+n])
				runFFT(fft, line, inverse)
				copy(field[base:base+n], line)
			}
		}
	}
}

func runFFT(fft *fourier.CmplxFFT, line []complex128, inverse bool) {
	if inverse {
		fft.Sequence(line, line)
	} else {
		fft.Coefficients(line, line)
	}
}

// Index exposes the row-major flat index for a (i,j,k) triple.
func (d Dims) Index(i, j, k int) int { return d.index(i, j, k) }

// Len returns the total element count Nx*Ny*Nz.
func (d Dims) Len() int { return d.Nx * d.Ny * d.Nz }
