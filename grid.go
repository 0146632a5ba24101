/*
Copyright © 2026 the cyclone authors.
This file is part of cyclone.

cyclone is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

// Package cyclone implements a three-dimensional, pseudo-spectral
// atmospheric flow solver for tropical cyclone lifecycles on a moving
// nested domain. It is a research engine, not an operational forecaster.
package cyclone

import "fmt"

// Grid holds the fixed geometric description of the triply periodic
// computational mesh: dimensions, characteristic scales, and the physical
// and dimensionless cell spacings derived from them.
type Grid struct {
	Nx, Ny, Nz int

	LChar float64 // characteristic length, m
	UChar float64 // characteristic velocity, m/s
	TChar float64 // derived: LChar / UChar, s

	DxPhys, DyPhys, DzPhys float64 // physical spacings, m
	Dx, Dy, Dz             float64 // dimensionless spacings
}

// NewGrid constructs a Grid from dimensions and characteristic scales,
// deriving TChar and the dimensionless spacings from the physical ones.
func NewGrid(nx, ny, nz int, lChar, uChar, dxPhys, dyPhys, dzPhys float64) (*Grid, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("cyclone: grid dimensions must be positive, got (%d,%d,%d)", nx, ny, nz)}
	}
	if lChar <= 0 || uChar <= 0 || dxPhys <= 0 || dyPhys <= 0 || dzPhys <= 0 {
		return nil, &ConfigError{Msg: "cyclone: grid scales and spacings must be positive and finite"}
	}
	return &Grid{
		Nx: nx, Ny: ny, Nz: nz,
		LChar: lChar, UChar: uChar, TChar: lChar / uChar,
		DxPhys: dxPhys, DyPhys: dyPhys, DzPhys: dzPhys,
		Dx: dxPhys / lChar, Dy: dyPhys / lChar, Dz: dzPhys / lChar,
	}, nil
}

// Len returns the total number of grid cells, Nx*Ny*Nz.
func (g *Grid) Len() int { return g.Nx * g.Ny * g.Nz }

// Index returns the flat row-major index of cell (i,j,k).
func (g *Grid) Index(i, j, k int) int { return (i*g.Ny+j)*g.Nz + k }

// NewField allocates a flat, zeroed dimensionless/physical field over the
// grid (u, v, w, θ′, q are all stored this way).
func (g *Grid) NewField() []float64 { return make([]float64, g.Len()) }

// Config is the single typed configuration structure built once at startup
// and passed by reference to every component that needs it, per the
// reimplementation guidance against loose getattr-style option bags. Field
// groups mirror the CLI surface.
type Config struct {
	// grid
	Nx, Ny, Nz      int
	ResolutionBoost float64
	AdvectionOrder  int
	MonotonicAdvection bool

	// reference
	ThetaSurface float64 // K
	GammaTheta   float64 // K/km
	ScaleHeight  float64 // m
	BaseHumidity float64 // kg/kg, surface value of q_ref(z)
	HumidityScaleHeight float64 // m, q_ref(z) = BaseHumidity * exp(-z/HumidityScaleHeight)

	// thermodynamics
	MoistFloor        float64
	UpdraftOnlyMoist  bool
	CoreRHInit        float64
	ThetaPrimeMin     float64
	ThetaPrimeMax     float64
	BettsMiller       bool
	TauBM             float64
	BMReferenceRH     float64
	BMTaperStart      float64
	BMTaperFull       float64
	BMTaperPower      float64
	FluxDepth         float64
	PrecipEfficiency  float64
	WarmRain          bool
	WarmRainCap       float64

	// buoyancy governors
	NoFluxGovernor      bool
	NoThermoGovernor    bool
	NoVelocityGovernor  bool
	FullyUnconstrained  bool
	BuoyancyCap         float64
	MaxUpdraft          float64

	// WISHE
	WisheBoost    bool
	WisheBoostMax float64
	WisheWindMin  float64
	WisheWindMax  float64

	// flux throttle
	FluxThrottle          bool
	FluxThrottleThreshold float64
	ProportionalThrottle  bool
	ThetaPrimeSoftLimit   float64
	ThetaPrimeHardLimit   float64
	MoistureFloor         float64

	// sinks
	RadiativeCooling bool
	TauRad           float64
	DynamicCooling   bool
	TauRadMin        float64
	ThetaScale       float64
	MeanRemoval      bool
	EnvironmentRelax bool
	RelaxRadius      float64
	RelaxTau         float64

	// steering
	PurePhysics          bool
	SteeringInjection    bool
	AnnularSteering      bool
	AnnularInnerKm       float64
	AnnularOuterKm       float64
	DLMScale             float64
	DLMInnerRadius       float64
	SteeringMultiplier   float64
	BetaDrift            bool
	BetaDriftSpeed       float64
	BetaDriftLatScale    float64
	SteeringFloor        float64
	SteerRef             float64
	NoBasinDamping       bool
	NoConfidenceWeighting bool
	NoLongitudeScaling   bool
	NoIntensityScaling   bool
	NoH3Boost            bool

	// simulation
	Storm        string
	Year         int
	Frames       int
	PlotInterval int
}

// DefaultConfig returns a Config with the documented defaults for every
// optional field, matching spec.md §6's enumerated CLI options.
func DefaultConfig() *Config {
	return &Config{
		Nx: 64, Ny: 64, Nz: 32,
		ResolutionBoost: 1.0,
		AdvectionOrder:  3,
		MonotonicAdvection: true,

		ThetaSurface: 300.0,
		GammaTheta:   3.5,
		ScaleHeight:  8000.0,
		BaseHumidity: 0.018,
		HumidityScaleHeight: 2500.0,

		MoistFloor:       0.4,
		UpdraftOnlyMoist: false,
		CoreRHInit:       0.95,
		ThetaPrimeMin:    -40,
		ThetaPrimeMax:    40,
		BettsMiller:      false,
		TauBM:            3600 * 2,
		BMReferenceRH:    0.80,
		BMTaperStart:     0,
		BMTaperFull:      1.0,
		BMTaperPower:     1.0,
		FluxDepth:        1000.0,
		PrecipEfficiency: 0.25,
		WarmRain:         true,
		WarmRainCap:      1.0,

		NoFluxGovernor:     false,
		NoThermoGovernor:   false,
		NoVelocityGovernor: true,
		FullyUnconstrained: false,
		BuoyancyCap:        2.0,
		MaxUpdraft:         30.0,

		WisheBoost:    true,
		WisheBoostMax: 1.5,
		WisheWindMin:  5.0,
		WisheWindMax:  20.0,

		FluxThrottle:          false,
		FluxThrottleThreshold: 2.0,
		ProportionalThrottle:  true,
		ThetaPrimeSoftLimit:   20,
		ThetaPrimeHardLimit:   35,
		MoistureFloor:         1e-6,

		RadiativeCooling: true,
		TauRad:           86400,
		DynamicCooling:   true,
		TauRadMin:        3600,
		ThetaScale:       10,
		MeanRemoval:      false,
		EnvironmentRelax: true,
		RelaxRadius:      800_000,
		RelaxTau:         43200,

		PurePhysics:        false,
		SteeringInjection:  true,
		AnnularSteering:    false,
		AnnularInnerKm:     150,
		AnnularOuterKm:     450,
		DLMScale:           1.0,
		DLMInnerRadius:     300_000,
		SteeringMultiplier: 1.0,
		BetaDrift:          true,
		BetaDriftSpeed:     1.8,
		BetaDriftLatScale:  0.02,
		SteeringFloor:      3.0,
		SteerRef:           5.0,

		Storm:        "",
		Year:         0,
		Frames:       10000,
		PlotInterval: 100,
	}
}

// Validate checks the configuration for internal consistency, returning a
// ConfigError describing the first problem found. It must be called, and
// pass, before any simulation step runs.
func (c *Config) Validate() error {
	for _, check := range []func(*Config) error{
		checkGridDims,
		checkReferenceProfile,
		checkThetaBounds,
		checkAdvectionOrder,
		checkMoistScheme,
		checkWishe,
		checkThrottle,
	} {
		if err := check(c); err != nil {
			return err
		}
	}
	return nil
}

func checkGridDims(c *Config) error {
	if c.Nx <= 0 || c.Ny <= 0 || c.Nz <= 0 {
		return &ConfigError{Msg: "cyclone: nx, ny, nz must all be positive"}
	}
	if c.ResolutionBoost <= 0 {
		return &ConfigError{Msg: "cyclone: resolution_boost must be positive"}
	}
	return nil
}

func checkReferenceProfile(c *Config) error {
	if c.ScaleHeight <= 0 {
		return &ConfigError{Msg: "cyclone: scale_height must be positive"}
	}
	if c.BaseHumidity < 0 {
		return &ConfigError{Msg: "cyclone: base_humidity must be non-negative"}
	}
	if c.HumidityScaleHeight <= 0 {
		return &ConfigError{Msg: "cyclone: humidity_scale_height must be positive"}
	}
	return nil
}

func checkThetaBounds(c *Config) error {
	if c.ThetaPrimeMin >= c.ThetaPrimeMax {
		return &ConfigError{Msg: "cyclone: theta_prime_min must be less than theta_prime_max"}
	}
	return nil
}

func checkAdvectionOrder(c *Config) error {
	if c.AdvectionOrder != 1 && c.AdvectionOrder != 2 && c.AdvectionOrder != 3 {
		return &ConfigError{Msg: "cyclone: advection_order must be 1, 2, or 3"}
	}
	return nil
}

func checkMoistScheme(c *Config) error {
	if c.BettsMiller && c.TauBM <= 0 {
		return &ConfigError{Msg: "cyclone: tau_bm must be positive when betts_miller is enabled"}
	}
	return nil
}

func checkWishe(c *Config) error {
	if c.WisheBoost && c.WisheWindMax <= c.WisheWindMin {
		return &ConfigError{Msg: "cyclone: wishe_wind_max must exceed wishe_wind_min"}
	}
	return nil
}

func checkThrottle(c *Config) error {
	if c.ProportionalThrottle && c.ThetaPrimeSoftLimit >= c.ThetaPrimeHardLimit {
		return &ConfigError{Msg: "cyclone: theta_prime_soft_limit must be less than theta_prime_hard_limit"}
	}
	return nil
}
