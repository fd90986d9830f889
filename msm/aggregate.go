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
	"errors"
	"fmt"

	"github.com/exascience/pargo/parallel"
)

// ResultRow is one line of the tidy output table: the estimated counterfactual
// contrast of one exposure definition on one outcome, with its bootstrap
// interval and tallies. Failed combinations carry their error as diagnostic
// metadata instead of aborting the rest of the run. Rows are immutable once
// produced.
type ResultRow struct {
	Exposure          string
	Outcome           string
	Estimate          float64
	CILow             float64
	CIHigh            float64
	NBootstrapSuccess int
	NBootstrapSkipped int
	Err               error //nil on success
}

// combination is one (exposure, outcome) unit of work of the cross product.
type combination struct {
	exp *ExposureDefinition
	out *OutcomeDefinition
}

// RunAnalysis estimates every exposure × outcome combination of the
// configuration: fresh indicators, weights, estimator, and bootstrap per
// combination, fanned out over a parallel range with one write-once result
// slot per combination. Cancellation is observed between units of work and
// leaves completed rows intact; a DataIntegrityError anywhere is fatal for
// the whole run.
func RunAnalysis(ctx context.Context, tab *Table, cfg *AnalysisConfig) ([]*ResultRow, error) {
	if err := cfg.Validate(tab); err != nil {
		return nil, err
	}
	combos := []combination{}
	for e := range cfg.Exposures {
		for o := range cfg.Outcomes {
			combos = append(combos, combination{exp: &cfg.Exposures[e], out: &cfg.Outcomes[o]})
		}
	}
	fmt.Println("Estimating ", len(combos), " exposure x outcome combinations with ",
		cfg.Bootstrap.Replicates, " bootstrap replicates each...")
	rows := make([]*ResultRow, len(combos))
	parallel.Range(0, len(combos), 0, func(low, high int) {
		for k := low; k < high; k++ {
			if ctx.Err() != nil {
				continue
			}
			rows[k] = runCombination(ctx, tab, cfg, combos[k])
		}
	})
	completed := []*ResultRow{}
	for _, row := range rows {
		if row != nil {
			completed = append(completed, row)
		}
	}
	if err := ctx.Err(); err != nil {
		return completed, err
	}
	for _, row := range completed {
		var integrity *DataIntegrityError
		if errors.As(row.Err, &integrity) {
			return completed, row.Err
		}
	}
	return completed, nil
}

// runCombination computes one (exposure, outcome) estimate end to end. Any
// error short of a data-integrity fault is recorded on the row.
func runCombination(ctx context.Context, tab *Table, cfg *AnalysisConfig, c combination) *ResultRow {
	row := &ResultRow{
		Exposure: c.exp.Name,
		Outcome:  c.out.Name,
		Estimate: Missing(),
		CILow:    Missing(),
		CIHigh:   Missing(),
	}
	fmt.Println("Estimating effect of ", c.exp.Name, " on ", c.out.Name, "...")
	summary, err := estimateCombination(ctx, tab, cfg, c)
	if err != nil {
		row.Err = err
		var insufficient *BootstrapInsufficientReplicatesError
		if errors.As(err, &insufficient) {
			row.NBootstrapSuccess = insufficient.Succeeded
			row.NBootstrapSkipped = insufficient.Skipped
		}
		return row
	}
	row.Estimate = summary.Estimate
	row.CILow = summary.CILow
	row.CIHigh = summary.CIHigh
	row.NBootstrapSuccess = summary.NSuccess
	row.NBootstrapSkipped = summary.NSkipped
	return row
}

// estimateCombination is the per-combination pipeline: indicators -> weights
// -> combined truncated weight -> weighted MSM -> bootstrap.
func estimateCombination(ctx context.Context, tab *Table, cfg *AnalysisConfig, c combination) (*BootstrapSummary, error) {
	baseInd, err := BuildWaveIndicators(tab, cfg, c.exp, nil)
	if err != nil {
		return nil, err
	}
	outInd, err := BuildWaveIndicators(tab, cfg, c.exp, c.out)
	if err != nil {
		return nil, err
	}
	tw, err := ComputeTreatmentWeights(tab, cfg, c.exp, baseInd)
	if err != nil {
		return nil, err
	}
	cw, err := ComputeCensoringWeights(tab, cfg, c.exp, c.out, outInd)
	if err != nil {
		return nil, err
	}
	ws, err := CombineWeights(cw, tw, cfg.Truncation)
	if err != nil {
		return nil, err
	}
	est, err := NewMSMEstimator(tab, c.exp, c.out, ws)
	if err != nil {
		return nil, err
	}
	return NewBootstrapEngine(cfg.Bootstrap).Run(ctx, est)
}
