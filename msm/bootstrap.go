// IPWE: Inverse Probability Weighted Estimation Library
// Copyright (c) 2023 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/ipwe/blob/master/LICENSE.txt>.

package msm

import (
	"context"
	"fmt"
	"sort"

	"github.com/exascience/pargo/parallel"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/stat"
)

// BootstrapState tracks where a bootstrap run is in its lifecycle.
type BootstrapState int

const (
	BootstrapIdle BootstrapState = iota
	BootstrapResampling
	BootstrapRefitting
	BootstrapAccumulating
	BootstrapSummarizing
	BootstrapDone
)

func (s BootstrapState) String() string {
	switch s {
	case BootstrapIdle:
		return "idle"
	case BootstrapResampling:
		return "resampling"
	case BootstrapRefitting:
		return "refitting"
	case BootstrapAccumulating:
		return "accumulating"
	case BootstrapSummarizing:
		return "summarizing"
	case BootstrapDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// advance moves the engine to the next lifecycle state. Transitions only run
// forward; anything else is a programming error.
func (b *BootstrapEngine) advance(to BootstrapState) {
	if to != b.state+1 {
		panic(fmt.Sprintf("bootstrap: invalid state transition %s -> %s", b.state, to))
	}
	b.state = to
}

// BootstrapSummary is the aggregated outcome of one bootstrap run: the point
// estimate from the original (non-resampled) fit and the percentile-method
// interval from the replicate distribution.
type BootstrapSummary struct {
	Estimate float64
	CILow    float64
	CIHigh   float64
	NSuccess int //replicates whose refit succeeded
	NSkipped int //replicates skipped because their refit failed
}

// BootstrapEngine reruns an MSMEstimator on subject resamples. Each replicate
// index derives its own generator from the run seed, so runs are reproducible
// for a fixed seed and replicate count and independent of scheduling order.
type BootstrapEngine struct {
	Replicates int
	Seed       int64
	MinSuccess int
	state      BootstrapState
}

// NewBootstrapEngine builds an engine from the configured resampling
// parameters.
func NewBootstrapEngine(cfg BootstrapConfig) *BootstrapEngine {
	return &BootstrapEngine{
		Replicates: cfg.Replicates,
		Seed:       cfg.Seed,
		MinSuccess: cfg.MinSuccess,
		state:      BootstrapIdle,
	}
}

// State returns the engine's lifecycle state.
func (b *BootstrapEngine) State() BootstrapState {
	return b.state
}

// replicateRNG returns the deterministic generator of replicate index rep.
func (b *BootstrapEngine) replicateRNG(rep int) *fastrand.RNG {
	seed := uint32(b.Seed)*2654435761 + uint32(rep+1)*40503
	if seed == 0 {
		seed = 1
	}
	var rng fastrand.RNG
	rng.Seed(seed)
	return &rng
}

// Run performs the full bootstrap: the original fit for the point estimate,
// R resampled refits, and the percentile summary. A replicate whose fit fails
// is recorded as skipped; a failure of the original fit fails the run. Fewer
// successful replicates than the configured minimum is a
// BootstrapInsufficientReplicatesError — a CI from too few draws is worse
// than none. Cancellation is observed between replicates and abandons the
// run.
func (b *BootstrapEngine) Run(ctx context.Context, est *MSMEstimator) (*BootstrapSummary, error) {
	b.state = BootstrapIdle
	point, err := est.Estimate(est.IdentityRows())
	if err != nil {
		return nil, err
	}
	b.advance(BootstrapResampling)
	n := est.NumSubjects()
	estimates := make([]float64, b.Replicates) //write-once slot per replicate
	skipped := make([]bool, b.Replicates)
	b.advance(BootstrapRefitting)
	parallel.Range(0, b.Replicates, 0, func(low, high int) {
		rows := make([]int, n)
		for rep := low; rep < high; rep++ {
			if ctx.Err() != nil {
				skipped[rep] = true
				continue
			}
			rng := b.replicateRNG(rep)
			for i := 0; i < n; i++ {
				rows[i] = int(rng.Uint32n(uint32(n)))
			}
			e, err := est.Estimate(rows)
			if err != nil {
				skipped[rep] = true
				continue
			}
			estimates[rep] = e
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.advance(BootstrapAccumulating)
	successes := []float64{}
	nSkipped := 0
	for rep := 0; rep < b.Replicates; rep++ {
		if skipped[rep] {
			nSkipped++
			continue
		}
		successes = append(successes, estimates[rep])
	}
	b.advance(BootstrapSummarizing)
	if len(successes) < b.MinSuccess {
		return nil, &BootstrapInsufficientReplicatesError{
			Succeeded: len(successes),
			Skipped:   nSkipped,
			Required:  b.MinSuccess,
		}
	}
	// sort before taking quantiles so the summary is deterministic regardless
	// of replicate completion order
	sort.Float64s(successes)
	summary := &BootstrapSummary{
		Estimate: point,
		CILow:    stat.Quantile(0.025, stat.Empirical, successes, nil),
		CIHigh:   stat.Quantile(0.975, stat.Empirical, successes, nil),
		NSuccess: len(successes),
		NSkipped: nSkipped,
	}
	b.advance(BootstrapDone)
	return summary, nil
}
