// Package sample draws simulated conversion outcomes for a variant.
package sample

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gkobilansky/ab-sim/internal/stats"
)

// NewSource returns a random source for Simulate. A zero seed yields a
// non-deterministic source; any other seed makes runs reproducible.
func NewSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = randomSeed()
	}
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

func randomSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Simulate draws n Bernoulli(p) outcomes.
func Simulate(n int, p float64, src rand.Source) (stats.Sample, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: sample size must be at least 1, got %d", stats.ErrInvalidInput, n)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, fmt.Errorf("%w: conversion probability must be in [0, 1], got %v", stats.ErrInvalidInput, p)
	}

	dist := distuv.Bernoulli{P: p, Src: src}
	s := make(stats.Sample, n)
	for i := range s {
		s[i] = int(dist.Rand())
	}
	return s, nil
}

// Params describes a simulated A/B test.
type Params struct {
	NA   int     `json:"n_a" yaml:"n_a"`
	PA   float64 `json:"p_a" yaml:"p_a"`
	NB   int     `json:"n_b" yaml:"n_b"`
	PB   float64 `json:"p_b" yaml:"p_b"`
	Seed uint64  `json:"seed,omitempty" yaml:"seed"`
}

// Pair simulates both groups from a single source, A first.
func Pair(p Params) (a, b stats.Sample, err error) {
	src := NewSource(p.Seed)

	a, err = Simulate(p.NA, p.PA, src)
	if err != nil {
		return nil, nil, fmt.Errorf("group A: %w", err)
	}
	b, err = Simulate(p.NB, p.PB, src)
	if err != nil {
		return nil, nil, fmt.Errorf("group B: %w", err)
	}
	return a, b, nil
}
