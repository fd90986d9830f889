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

// TreatmentWeights holds the cumulative inverse-probability-of-treatment
// components: the probability of the subject's observed exposure sequence
// under the numerator (own history only) and denominator (history +
// confounders accrued up to each wave) models. Unlike censoring weights these
// do not depend on the outcome, so one set serves all outcomes of a
// combination's exposure.
type TreatmentWeights struct {
	Num []float64 //cumulative numerator probability of the observed sequence
	Den []float64 //cumulative denominator probability of the observed sequence
}

// ComputeTreatmentWeights chains the per-wave treatment models over the waves
// at which the exposure is measured. The indicators must be the outcome-free
// variant. At wave j the target is the binarized exposure; the numerator
// regresses it on exposure history through wave j-1 (intercept only at wave
// 0) and the denominator adds baseline confounders plus follow-up confounders
// through wave j — the confounder set grows monotonically with the wave. The
// cumulative probability of the observed sequence multiplies the fitted
// probability when the observed exposure is high and its complement when low.
func ComputeTreatmentWeights(tab *Table, cfg *AnalysisConfig, exp *ExposureDefinition, ind *WaveIndicators) (*TreatmentWeights, error) {
	n := tab.NumRows()
	bins, err := binarizedExposures(tab, exp)
	if err != nil {
		return nil, err
	}
	tw := &TreatmentWeights{
		Num: make([]float64, n),
		Den: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		tw.Num[i] = 1
		tw.Den[i] = 1
	}
	lastWave := exp.NumWaves() - 1
	for j := 0; j <= lastWave; j++ {
		confs, err := confounderColumns(tab, cfg.ConfoundersThrough(j))
		if err != nil {
			return nil, err
		}
		history := bins[:j]
		model := &WaveModel{
			Family: "treatment",
			Wave:   j,
			Target: bins[j],
			AtRisk: ind.ObservedThrough(j),
			Num:    history,
			Den:    append(append([][]float64{}, history...), confs...),
		}
		pNum, pDen, err := FitWaveModel(model)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if !model.AtRisk[i] {
				continue
			}
			if bins[j][i] == 1 {
				tw.Num[i] *= pNum[i]
				tw.Den[i] *= pDen[i]
			} else {
				tw.Num[i] *= 1 - pNum[i]
				tw.Den[i] *= 1 - pDen[i]
			}
		}
	}
	// the observed-sequence probability is undefined for subjects censored
	// before the last exposure wave
	observedAll := ind.ObservedThrough(lastWave)
	for i := 0; i < n; i++ {
		if !observedAll[i] {
			tw.Num[i] = Missing()
			tw.Den[i] = Missing()
		}
	}
	return tw, nil
}
