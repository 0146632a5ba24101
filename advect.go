package cyclone

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

// Advector performs semi-Lagrangian advection of scalar and vector fields:
// trace each grid point's departure point backward along the velocity
// field over one timestep, then interpolate the field's value there.
type Advector struct {
	grid  *Grid
	order int
	dt    float64

	monotonic bool
}

// NewAdvector builds an Advector for a grid, interpolation order (1 or 3;
// any other value is accepted and treated as the cubic path, matching the
// CLI's permissive parsing), timestep, and whether the monotonic limiter
// is enabled.
func NewAdvector(g *Grid, order int, dt float64, monotonic bool) *Advector {
	return &Advector{grid: g, order: order, dt: dt, monotonic: monotonic}
}

// wrap brings a real-valued fractional index back into [0, n).
func wrap(x float64, n int) float64 {
	x = math.Mod(x, float64(n))
	if x < 0 {
		x += float64(n)
	}
	return x
}

// clampVertical confines a fractional vertical index to [0, nz-1]; the
// vertical direction is not periodic.
func clampVertical(z float64, nz int) float64 {
	if z < 0 {
		return 0
	}
	if z > float64(nz-1) {
		return float64(nz - 1)
	}
	return z
}

// Advect returns the semi-Lagrangian update of field given the advecting
// velocity (u,v,w). If interpolation yields a non-finite result it retries
// with linear interpolation, and if that is also non-finite it returns an
// InterpFailure, per spec.md's InterpFailure recovery path.
func (a *Advector) Advect(field, u, v, w []float64) ([]float64, error) {
	g := a.grid
	out := make([]float64, len(field))

	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			for k := 0; k < g.Nz; k++ {
				idx := g.Index(i, j, k)

				depX := wrap(float64(i)-u[idx]*a.dt/g.Dx, g.Nx)
				depY := wrap(float64(j)-v[idx]*a.dt/g.Dy, g.Ny)
				depZ := clampVertical(float64(k)-w[idx]*a.dt/g.Dz, g.Nz)

				val, err := a.sample(field, depX, depY, depZ, a.order)
				if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
					val, err = a.sample(field, depX, depY, depZ, 1)
					if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
						return nil, &InterpFailure{Order: a.order}
					}
				}
				out[idx] = val
			}
		}
	}

	if a.monotonic {
		a.applyMonotonicLimiter(out, field)
	}
	return out, nil
}

// sample interpolates field at the fractional index (x,y,z) using either
// trilinear (order 1) or tricubic-spline (any other order) interpolation.
func (a *Advector) sample(field []float64, x, y, z float64, order int) (float64, error) {
	if order == 1 {
		return a.trilinear(field, x, y, z), nil
	}
	return a.tricubic(field, x, y, z)
}

func (a *Advector) trilinear(field []float64, x, y, z float64) float64 {
	g := a.grid
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	z0 := int(math.Floor(z))
	fx, fy, fz := x-float64(x0), y-float64(y0), z-float64(z0)

	wrapIdx := func(v, n int) int {
		v %= n
		if v < 0 {
			v += n
		}
		return v
	}
	clampIdx := func(v, n int) int {
		if v < 0 {
			return 0
		}
		if v > n-1 {
			return n - 1
		}
		return v
	}

	x1 := wrapIdx(x0+1, g.Nx)
	y1 := wrapIdx(y0+1, g.Ny)
	z1 := clampIdx(z0+1, g.Nz)
	x0 = wrapIdx(x0, g.Nx)
	y0 = wrapIdx(y0, g.Ny)
	z0 = clampIdx(z0, g.Nz)

	c000 := field[g.Index(x0, y0, z0)]
	c100 := field[g.Index(x1, y0, z0)]
	c010 := field[g.Index(x0, y1, z0)]
	c110 := field[g.Index(x1, y1, z0)]
	c001 := field[g.Index(x0, y0, z1)]
	c101 := field[g.Index(x1, y0, z1)]
	c011 := field[g.Index(x0, y1, z1)]
	c111 := field[g.Index(x1, y1, z1)]

	c00 := c000*(1-fx) + c100*fx
	c10 := c010*(1-fx) + c110*fx
	c01 := c001*(1-fx) + c101*fx
	c11 := c011*(1-fx) + c111*fx

	c0 := c00*(1-fy) + c10*fy
	c1 := c01*(1-fy) + c11*fy

	return c0*(1-fz) + c1*fz
}

// tricubic interpolates along z with an Akima cubic spline built from the
// four nearest vertical levels at the (x,y) horizontal position obtained
// by bilinear interpolation, a tensor-product shortcut that is exact in
// the horizontally smooth, vertically stratified fields this model
// advects and keeps the per-point cost independent of grid size.
func (a *Advector) tricubic(field []float64, x, y, z float64) (float64, error) {
	g := a.grid
	nz := g.Nz
	k0 := int(math.Floor(z))

	lo := k0 - 1
	if lo < 0 {
		lo = 0
	}
	hi := lo + 3
	if hi > nz-1 {
		hi = nz - 1
		lo = hi - 3
		if lo < 0 {
			lo = 0
		}
	}

	xs := make([]float64, 0, 4)
	ys := make([]float64, 0, 4)
	for k := lo; k <= hi; k++ {
		xs = append(xs, float64(k))
		ys = append(ys, a.bilinearAtLevel(field, x, y, k))
	}
	if len(xs) < 3 {
		return a.trilinear(field, x, y, z), nil
	}

	var cs interp.AkimaSpline
	if err := cs.Fit(xs, ys); err != nil {
		return a.trilinear(field, x, y, z), nil
	}
	return cs.Predict(z), nil
}

func (a *Advector) bilinearAtLevel(field []float64, x, y float64, k int) float64 {
	g := a.grid
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)

	wrapIdx := func(v, n int) int {
		v %= n
		if v < 0 {
			v += n
		}
		return v
	}
	x1 := wrapIdx(x0+1, g.Nx)
	y1 := wrapIdx(y0+1, g.Ny)
	x0 = wrapIdx(x0, g.Nx)
	y0 = wrapIdx(y0, g.Ny)

	c00 := field[g.Index(x0, y0, k)]
	c10 := field[g.Index(x1, y0, k)]
	c01 := field[g.Index(x0, y1, k)]
	c11 := field[g.Index(x1, y1, k)]

	c0 := c00*(1-fx) + c10*fx
	c1 := c01*(1-fx) + c11*fx
	return c0*(1-fy) + c1*fy
}

// applyMonotonicLimiter clamps out to the global [min,max] range of the
// pre-advection field, a coarse but cheap guard against spectral/cubic
// overshoot. It does not enforce local monotonicity, only the global
// bound: a deliberate simplification carried over from spec.md.
func (a *Advector) applyMonotonicLimiter(out, prev []float64) {
	lo, hi := prev[0], prev[0]
	for _, v := range prev {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	for i, v := range out {
		if v < lo {
			out[i] = lo
		} else if v > hi {
			out[i] = hi
		}
	}
}
