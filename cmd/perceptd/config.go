package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/perceptlab/cortex/budget"
	"github.com/perceptlab/cortex/cortex"
)

// #region config-types

type fileConfig struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`

	Maturation maturationSection `toml:"maturation"`
	Budget     budgetSection     `toml:"budget"`
}

type maturationSection struct {
	MaxPasses          int     `toml:"max_passes"`
	MinPasses          int     `toml:"min_passes"`
	ConvergenceEpsilon float64 `toml:"convergence_epsilon"`
	EnableProtoAgency  bool    `toml:"enable_proto_agency"`
}

type budgetSection struct {
	MaxPasses     int    `toml:"max_passes"`
	MaxDuration   string `toml:"max_duration"`
	MaxWorkingSet int    `toml:"max_working_set_bytes"`
}

type runConfig struct {
	DBPath   string
	LogLevel string
	Config   cortex.MaturationConfig
	Budget   budget.Budget
}

// #endregion config-types

// #region config-loader

func defaultRunConfig() runConfig {
	return runConfig{
		LogLevel: "info",
		Config:   cortex.DefaultMaturation(),
		Budget:   budget.Default(),
	}
}

// loadRunConfig overlays a TOML file onto the defaults. Only keys present
// in the file override anything.
func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("db_path") {
		cfg.DBPath = raw.DBPath
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = raw.LogLevel
	}

	if meta.IsDefined("maturation", "max_passes") {
		cfg.Config.MaxPasses = raw.Maturation.MaxPasses
	}
	if meta.IsDefined("maturation", "min_passes") {
		cfg.Config.MinPasses = raw.Maturation.MinPasses
	}
	if meta.IsDefined("maturation", "convergence_epsilon") {
		cfg.Config.ConvergenceEpsilon = raw.Maturation.ConvergenceEpsilon
	}
	if meta.IsDefined("maturation", "enable_proto_agency") {
		cfg.Config.EnableProtoAgency = raw.Maturation.EnableProtoAgency
	}

	if meta.IsDefined("budget", "max_passes") {
		cfg.Budget.MaxPasses = raw.Budget.MaxPasses
	}
	if meta.IsDefined("budget", "max_duration") {
		d, err := time.ParseDuration(raw.Budget.MaxDuration)
		if err != nil {
			return runConfig{}, fmt.Errorf("parse budget.max_duration: %w", err)
		}
		cfg.Budget.MaxDuration = d
	}
	if meta.IsDefined("budget", "max_working_set_bytes") {
		cfg.Budget.MaxWorkingSet = raw.Budget.MaxWorkingSet
	}

	if cfg.Config.MaxPasses <= 0 {
		return runConfig{}, fmt.Errorf("maturation.max_passes must be positive")
	}
	if cfg.Config.ConvergenceEpsilon < 0 {
		return runConfig{}, fmt.Errorf("maturation.convergence_epsilon must not be negative")
	}

	return cfg, nil
}

// #endregion config-loader
