/*
Copyright © 2026 the cyclone authors.
This file is part of cyclone.

cyclone is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.
*/

package main

import (
	"context"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tropicrad/cyclone"
)

// Cfg bundles the viper-bound flag state the root and run commands share,
// the same embedding pattern used to thread one configuration object
// through an entire cobra command tree.
type Cfg struct {
	*viper.Viper

	Root, runCmd *cobra.Command
}

var options = []struct {
	name, usage string
	defaultVal  interface{}
}{
	{"ConfigFile", "path to a TOML configuration file", ""},
	{"Storm", "storm identifier for the manifest", ""},
	{"Year", "storm season year for the manifest", 0},
	{"Frames", "number of simulation steps to run", 10000},
	{"LatStart", "initial storm center latitude, degrees", 15.0},
	{"LonStart", "initial storm center longitude, degrees", -40.0},
	{"OutputManifest", "path to write the run manifest TOML", "manifest.toml"},
	{"LogLevel", "logrus level: debug, info, warn, error", "info"},
}

// InitializeConfig builds the cobra command tree and binds every option's
// flag to viper, the same pattern as the teacher's InitializeConfig.
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}

	cfg.Root = &cobra.Command{
		Use:   "stormcore",
		Short: "A pseudo-spectral tropical cyclone flow solver.",
		Long: `stormcore runs a moving-nest, pseudo-spectral atmospheric flow simulation
of a tropical cyclone lifecycle. Configuration can be supplied via a TOML
file (--ConfigFile) or command-line flags; flags take precedence.`,
		DisableAutoGenTag: true,
	}

	cfg.runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a simulation to completion.",
		Long:  "run executes the configured number of simulation steps and writes a run manifest.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cfg)
		},
		DisableAutoGenTag: true,
	}

	flags := pflag.NewFlagSet("stormcore", pflag.ExitOnError)
	for _, o := range options {
		switch v := o.defaultVal.(type) {
		case string:
			flags.String(o.name, v, o.usage)
		case int:
			flags.Int(o.name, v, o.usage)
		case float64:
			flags.Float64(o.name, v, o.usage)
		default:
			panic(fmt.Sprintf("stormcore: unhandled default type for %s", o.name))
		}
		if err := cfg.BindPFlag(o.name, flags.Lookup(o.name)); err != nil {
			panic(err)
		}
	}
	cfg.Root.PersistentFlags().AddFlagSet(flags)
	cfg.Root.AddCommand(cfg.runCmd)

	return cfg
}

// runSimulation builds the full component graph from Cfg, runs the
// configured number of steps, and writes the run manifest.
func runSimulation(cfg *Cfg) error {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.GetString("LogLevel")); err == nil {
		log.SetLevel(lvl)
	}

	simCfg := cyclone.DefaultConfig()
	if path := cfg.GetString("ConfigFile"); path != "" {
		loaded, err := cyclone.LoadConfig(path)
		if err != nil {
			log.WithError(err).Error("failed to load config file")
			return err
		}
		simCfg = loaded
	}
	simCfg.Storm = cfg.GetString("Storm")
	simCfg.Year = cfg.GetInt("Year")
	simCfg.Frames = cfg.GetInt("Frames")

	if err := simCfg.Validate(); err != nil {
		log.WithError(err).Error("invalid configuration")
		return err
	}

	log.Infof("starting run: storm=%s year=%d frames=%d", simCfg.Storm, simCfg.Year, simCfg.Frames)

	grid, err := cyclone.NewGrid(simCfg.Nx, simCfg.Ny, simCfg.Nz, 1_000_000, 30, 5000, 5000, 500)
	if err != nil {
		return err
	}
	ref := cyclone.NewReferenceState(grid, simCfg)
	backend := cyclone.NewFFTBackend(grid)
	spectral := cyclone.NewSpectral(grid, backend)
	advector := cyclone.NewAdvector(grid, simCfg.AdvectionOrder, 30.0, simCfg.MonotonicAdvection)

	scheme := cyclone.SelectMoistScheme(simCfg)
	thermo := cyclone.NewThermoPipeline(simCfg, grid, ref, spectral, scheme)
	sbl := cyclone.NewSurfaceBoundaryLayer(simCfg)

	latStart := cfg.GetFloat64("LatStart")
	lonStart := cfg.GetFloat64("LonStart")
	steering := cyclone.NewSteeringEngine(simCfg, latStart, lonStart)
	basin := cyclone.NewBasinEnvironment(grid.Nx, grid.Ny, latStart-2, lonStart-2, 4.0/float64(grid.Nx), 4.0/float64(grid.Ny))

	flow := cyclone.NewFlowCore(simCfg, grid, ref, backend, spectral, advector, thermo, sbl, steering, basin, nil, 30.0, 5e-5, log.Writer())

	ctx := context.Background()
	for i := 0; i < simCfg.Frames; i++ {
		if err := flow.Step(ctx); err != nil {
			log.WithError(err).Errorf("simulation halted at step %d", flow.CurrentStep())
			return err
		}
		if simCfg.PlotInterval > 0 && i%simCfg.PlotInterval == 0 {
			log.Infof("step %d: lat=%.2f lon=%.2f", flow.CurrentStep(), steering.Lat, steering.Lon)
		}
	}

	manifest := &cyclone.Manifest{
		Storm:        simCfg.Storm,
		Year:         simCfg.Year,
		Steps:        flow.CurrentStep(),
		FinalLat:     steering.Lat,
		FinalLon:     steering.Lon,
		FetchReverts: flow.FetchRevertCount(),
		Config:       *simCfg,
	}
	if err := cyclone.WriteManifest(cfg.GetString("OutputManifest"), manifest); err != nil {
		log.WithError(err).Error("failed to write manifest")
		return err
	}
	log.Infof("run complete: %d steps, final position (%.2f, %.2f)", flow.CurrentStep(), steering.Lat, steering.Lon)
	return nil
}
