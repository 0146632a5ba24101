package cyclone

import "math"

// Spectral provides the pseudo-spectral differential operators the flow
// core needs each step: gradients, the Laplacian, divergence, the
// pressure-projection that enforces incompressibility, a Smagorinsky
// subgrid eddy-viscosity estimate, and the velocity governor safety net.
// All transforms go through a NumericalBackend rather than calling an FFT
// library directly, so the backend can be swapped in tests.
type Spectral struct {
	grid    *Grid
	backend NumericalBackend

	kx, ky, kz []float64
	k2         []float64 // flattened kx^2+ky^2+kz^2, precomputed per cell
}

// NewSpectral builds the spectral operator set for a grid, precomputing
// the per-cell wavenumber-squared table used by the Laplacian and the
// pressure Poisson solve.
func NewSpectral(g *Grid, backend NumericalBackend) *Spectral {
	kx, ky, kz := backend.Wavenumbers()
	s := &Spectral{grid: g, backend: backend, kx: kx, ky: ky, kz: kz}
	s.k2 = make([]float64, g.Len())
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				s.k2[g.Index(i, j, k)] = kx[i]*kx[i] + ky[j]*ky[j] + kz[k]*kz[k]
			}
		}
	}
	return s
}

func (s *Spectral) toComplex(field []float64) []complex128 {
	buf := make([]complex128, len(field))
	for i, v := range field {
		buf[i] = complex(v, 0)
	}
	return buf
}

func (s *Spectral) forward(field []float64) []complex128 {
	buf := s.toComplex(field)
	s.backend.Forward(buf)
	return buf
}

func (s *Spectral) inverseReal(buf []complex128) []float64 {
	out := make([]complex128, len(buf))
	copy(out, buf)
	s.backend.Inverse(out)
	result := make([]float64, len(out))
	for i, v := range out {
		result[i] = real(v)
	}
	return result
}

// Gradient returns the spectral partial derivatives of field with respect
// to x, y, and z.
func (s *Spectral) Gradient(field []float64) (dx, dy, dz []float64) {
	hat := s.forward(field)
	g := s.grid
	dxHat := make([]complex128, len(hat))
	dyHat := make([]complex128, len(hat))
	dzHat := make([]complex128, len(hat))
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)
				v := hat[idx]
				dxHat[idx] = complex(0, s.kx[i]) * v
				dyHat[idx] = complex(0, s.ky[j]) * v
				dzHat[idx] = complex(0, s.kz[k]) * v
			}
		}
	}
	return s.inverseReal(dxHat), s.inverseReal(dyHat), s.inverseReal(dzHat)
}

// Laplacian returns the spectral Laplacian of field.
func (s *Spectral) Laplacian(field []float64) []float64 {
	hat := s.forward(field)
	lapHat := make([]complex128, len(hat))
	for i, v := range hat {
		lapHat[i] = complex(-s.k2[i], 0) * v
	}
	return s.inverseReal(lapHat)
}

// Divergence returns div(u,v,w) computed directly in spectral space.
func (s *Spectral) Divergence(u, v, w []float64) []float64 {
	uHat, vHat, wHat := s.forward(u), s.forward(v), s.forward(w)
	g := s.grid
	divHat := make([]complex128, len(uHat))
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)
				divHat[idx] = complex(0, s.kx[i])*uHat[idx] +
					complex(0, s.ky[j])*vHat[idx] +
					complex(0, s.kz[k])*wHat[idx]
			}
		}
	}
	return s.inverseReal(divHat)
}

// SteeringInjection carries the domain-mean horizontal velocity the flow
// core wants enforced after pressure projection, so the moving nest does
// not fight a self-induced mean flow every step (the "treadmill" fix).
// When Enabled is false, Project leaves the projected mean flow untouched.
type SteeringInjection struct {
	Enabled  bool
	MeanU    float64
	MeanV    float64
}

// Project enforces incompressibility on (u,v,w) via a pressure-Poisson
// projection in spectral space, gauge-fixing the undetermined k=0 mode to
// zero (PoissonDegeneracy), and optionally overwrites the resulting
// domain-mean horizontal flow with steer's target instead of whatever the
// projection happened to leave there.
func (s *Spectral) Project(u, v, w []float64, steer SteeringInjection) (pu, pv, pw []float64) {
	g := s.grid
	uHat, vHat, wHat := s.forward(u), s.forward(v), s.forward(w)

	divHat := make([]complex128, len(uHat))
	phiHat := make([]complex128, len(uHat))
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)
				divHat[idx] = complex(0, s.kx[i])*uHat[idx] +
					complex(0, s.ky[j])*vHat[idx] +
					complex(0, s.kz[k])*wHat[idx]
				if s.k2[idx] == 0 {
					// k=0 mode: the Poisson equation is degenerate here
					// (PoissonDegeneracy); the gauge is fixed by leaving
					// phi's mean at zero.
					phiHat[idx] = 0
					continue
				}
				phiHat[idx] = -divHat[idx] / complex(s.k2[idx], 0)
			}
		}
	}

	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)
				uHat[idx] -= complex(0, s.kx[i]) * phiHat[idx]
				vHat[idx] -= complex(0, s.ky[j]) * phiHat[idx]
				wHat[idx] -= complex(0, s.kz[k]) * phiHat[idx]
			}
		}
	}

	if steer.Enabled {
		zero := g.Index(0, 0, 0)
		uHat[zero] = complex(steer.MeanU*float64(g.Len()), 0)
		vHat[zero] = complex(steer.MeanV*float64(g.Len()), 0)
	}

	return s.inverseReal(uHat), s.inverseReal(vHat), s.inverseReal(wHat)
}

// SmagorinskyConfig bundles the subgrid closure's tunables.
type SmagorinskyConfig struct {
	Cs    float64 // Smagorinsky constant, typically ~0.17-0.2
	Delta float64 // filter scale, dimensionless grid length
	Boost float64 // multiplicative boost on the resulting viscosity
}

// EddyViscosity returns the Smagorinsky subgrid eddy viscosity field
// nu_t = Boost * (Cs*Delta)^2 * |S|, where |S| = sqrt(2 S_ij S_ij) is the
// resolved strain-rate magnitude.
func (s *Spectral) EddyViscosity(u, v, w []float64, sc SmagorinskyConfig) []float64 {
	dudx, dudy, dudz := s.Gradient(u)
	dvdx, dvdy, dvdz := s.Gradient(v)
	dwdx, dwdy, dwdz := s.Gradient(w)

	n := len(u)
	nut := make([]float64, n)
	coef := sc.Boost * math.Pow(sc.Cs*sc.Delta, 2)
	for idx := 0; idx < n; idx++ {
		s11 := dudx[idx]
		s22 := dvdy[idx]
		s33 := dwdz[idx]
		s12 := 0.5 * (dudy[idx] + dvdx[idx])
		s13 := 0.5 * (dudz[idx] + dwdx[idx])
		s23 := 0.5 * (dvdz[idx] + dwdy[idx])
		sMagSq := s11*s11 + s22*s22 + s33*s33 + 2*(s12*s12+s13*s13+s23*s23)
		nut[idx] = coef * math.Sqrt(2*sMagSq)
	}
	return nut
}

// GovernVelocity clamps each component of (u,v,w) to [-cap,+cap] in place
// and reports whether any cell was clamped. It is a safety net, not an
// energy-conserving operator, and spec.md leaves it optional; callers gate
// it on Config.NoVelocityGovernor.
func GovernVelocity(u, v, w []float64, cap float64) (clamped bool) {
	clampOne := func(f []float64) {
		for i, val := range f {
			if val > cap {
				f[i] = cap
				clamped = true
			} else if val < -cap {
				f[i] = -cap
				clamped = true
			}
		}
	}
	clampOne(u)
	clampOne(v)
	clampOne(w)
	return clamped
}
