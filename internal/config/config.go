// Package config loads the alignment parameters file.
//
// Parameters live in a small YAML document so runs are reproducible without
// long flag lists. Every field has a default matching the engine's tuned
// values; an absent file or absent field keeps the default.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params holds the tunable parameters for a run.
type Params struct {
	// Scoring for sequence-to-graph alignment.
	Match    int `yaml:"match"`
	Mismatch int `yaml:"mismatch"`
	Gap      int `yaml:"gap"`

	// BandWidth is the half-width of the banded alignment diagonal.
	// Used only when banded alignment is requested.
	BandWidth int `yaml:"band_width"`

	// MemoryBudget is the total memory, in bytes, the sizer may plan
	// batches against. It is sampled once per run: batch configurations
	// are a point-in-time approximation, so the fraction below leaves
	// headroom for fluctuation.
	MemoryBudget int64   `yaml:"memory_budget"`
	MemFraction  float64 `yaml:"mem_fraction"`

	// MaxSeqsPerGroup caps the number of sequences a single group may
	// contribute to one alignment.
	MaxSeqsPerGroup int `yaml:"max_seqs_per_group"`
}

// Default returns the parameter set used when no file is given.
// Scoring defaults match the reference consensus settings: reward 8,
// mismatch -6, gap -8.
func Default() Params {
	return Params{
		Match:           8,
		Mismatch:        -6,
		Gap:             -8,
		BandWidth:       256,
		MemoryBudget:    8 << 30,
		MemFraction:     0.9,
		MaxSeqsPerGroup: 500,
	}
}

// Load reads a YAML parameters file and overlays it on the defaults.
// Unknown fields are rejected so typos fail loudly.
func Load(path string) (Params, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("parse params file %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("params file %s: %w", path, err)
	}
	return p, nil
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.Match <= 0 {
		return fmt.Errorf("match score must be positive, got %d", p.Match)
	}
	if p.Mismatch > 0 {
		return fmt.Errorf("mismatch score must be <= 0, got %d", p.Mismatch)
	}
	if p.Gap > 0 {
		return fmt.Errorf("gap score must be <= 0, got %d", p.Gap)
	}
	if p.BandWidth < 1 {
		return fmt.Errorf("band_width must be >= 1, got %d", p.BandWidth)
	}
	if p.MemoryBudget < 1 {
		return fmt.Errorf("memory_budget must be >= 1, got %d", p.MemoryBudget)
	}
	if p.MemFraction <= 0 || p.MemFraction > 1 {
		return fmt.Errorf("mem_fraction must be in (0, 1], got %g", p.MemFraction)
	}
	if p.MaxSeqsPerGroup < 1 {
		return fmt.Errorf("max_seqs_per_group must be >= 1, got %d", p.MaxSeqsPerGroup)
	}
	return nil
}

// Budget returns the effective planning budget in bytes.
func (p Params) Budget() int64 {
	return int64(float64(p.MemoryBudget) * p.MemFraction)
}
