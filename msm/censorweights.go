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

import "ipwe/utils"

// CensoringWeights holds the cumulative inverse-probability-of-censoring
// components of one (exposure, outcome) combination: the probability of
// remaining uncensored through the final wave under the numerator
// (history-only) and denominator (history + confounders) models. Subjects
// censored at any wave carry the missing marker and never re-enter.
type CensoringWeights struct {
	Outcome string    //short code of the outcome these weights are keyed by
	Num     []float64 //cumulative numerator probability, missing once censored
	Den     []float64 //cumulative denominator probability, missing once censored
}

// ComputeCensoringWeights chains the per-wave censoring models into
// cumulative probabilities. The indicators must have been built for the same
// outcome definition: eligibility at the final wave depends on which outcome
// is being modeled, which is why censoring weights exist per outcome.
//
// At wave w the numerator model regresses the "still observed at w" indicator
// on the binarized exposure history through wave w-1; the denominator model
// adds baseline confounders and follow-up confounders through wave w-1. The
// wave-w confounders themselves are constituents of the censoring event (they
// are exactly what a censored subject is missing), so they cannot appear on
// the right-hand side of wave w's model.
func ComputeCensoringWeights(tab *Table, cfg *AnalysisConfig, exp *ExposureDefinition, out *OutcomeDefinition, ind *WaveIndicators) (*CensoringWeights, error) {
	n := tab.NumRows()
	bins, err := binarizedExposures(tab, exp)
	if err != nil {
		return nil, err
	}
	cum := &CensoringWeights{
		Outcome: out.Code,
		Num:     make([]float64, n),
		Den:     make([]float64, n),
	}
	for i := 0; i < n; i++ {
		cum.Num[i] = 1
		cum.Den[i] = 1
	}
	for w := 1; w <= ind.K; w++ {
		atRisk := ind.AtRisk(w)
		dropouts := 0
		for i := 0; i < n; i++ {
			if atRisk[i] && ind.Uncens[w-1][i] == 0 {
				dropouts++
			}
		}
		if dropouts == 0 {
			// nobody drops out at this wave: remaining uncensored is certain and
			// there is no model to fit
			continue
		}
		history := bins[:utils.MinInt(w, exp.NumWaves())]
		confs, err := confounderColumns(tab, cfg.ConfoundersThrough(w-1))
		if err != nil {
			return nil, err
		}
		model := &WaveModel{
			Family: "censoring",
			Wave:   w,
			Target: ind.Uncens[w-1],
			AtRisk: atRisk,
			Num:    history,
			Den:    append(append([][]float64{}, history...), confs...),
		}
		pNum, pDen, err := FitWaveModel(model)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if !model.AtRisk[i] || ind.Uncens[w-1][i] != 1 {
				continue //accrual stops at censoring; uncontributing waves multiply by 1
			}
			cum.Num[i] *= pNum[i]
			cum.Den[i] *= pDen[i]
		}
	}
	// subjects censored at any wave have no defined cumulative probability
	for i := 0; i < n; i++ {
		if !ind.Completed(i) {
			cum.Num[i] = Missing()
			cum.Den[i] = Missing()
		}
	}
	return cum, nil
}
