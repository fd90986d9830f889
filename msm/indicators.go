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

// WaveIndicators holds the derived censoring status of every subject at every
// follow-up wave. Censoring is monotone: once a subject drops out at wave w it
// never re-enters, so the full status is captured by the first censored wave.
type WaveIndicators struct {
	K int //number of follow-up waves
	// CensorWave[i] encodes subject i's follow-up:
	//   0    never entered (incomplete baseline covariates or wave-0 exposure)
	//   1..K first wave at which the subject is censored
	//   K+1  observed through every wave
	CensorWave []int
	// Uncens[w-1][i] for w = 1..K: 1 if subject i is still observed at wave w,
	// 0 if censored at wave w, missing if no longer at risk (censored earlier).
	Uncens [][]float64
}

// AtRisk returns for wave w (1..K) which subjects enter that wave's censoring
// model: entered at baseline and uncensored through wave w-1.
func (ind *WaveIndicators) AtRisk(w int) []bool {
	atRisk := make([]bool, len(ind.CensorWave))
	for i, cw := range ind.CensorWave {
		atRisk[i] = cw >= w
	}
	return atRisk
}

// ObservedThrough returns which subjects are fully observed through wave w
// (w = 0 means entered at baseline).
func (ind *WaveIndicators) ObservedThrough(w int) []bool {
	obs := make([]bool, len(ind.CensorWave))
	for i, cw := range ind.CensorWave {
		obs[i] = cw >= w+1
	}
	return obs
}

// Completed reports whether subject i stayed uncensored through every wave.
func (ind *WaveIndicators) Completed(i int) bool {
	return ind.CensorWave[i] == ind.K+1
}

// BuildWaveIndicators derives the per-wave censoring indicators for one
// exposure definition and one outcome definition. A subject counts as
// observed at wave w when all wave-w confounders and the wave-w exposure (for
// waves at which the exposure is measured) are present; at the final wave the
// outcome itself must be present as well. Pass a nil outcome for the
// outcome-free variant used by the treatment weights, whose eligibility does
// not depend on outcome availability.
func BuildWaveIndicators(tab *Table, cfg *AnalysisConfig, exp *ExposureDefinition, out *OutcomeDefinition) (*WaveIndicators, error) {
	n := tab.NumRows()
	k := cfg.NumWaves()
	ind := &WaveIndicators{
		K:          k,
		CensorWave: make([]int, n),
		Uncens:     make([][]float64, k),
	}
	// per-wave required columns
	required := make([][][]float64, k)
	for w := 1; w <= k; w++ {
		cols := []string{}
		cols = append(cols, cfg.WaveConfounders[w-1]...)
		if w < exp.NumWaves() {
			cols = append(cols, exp.Column(w))
		}
		if w == k && out != nil {
			cols = append(cols, out.Column)
		}
		for _, name := range cols {
			col, err := tab.Column(name)
			if err != nil {
				return nil, err
			}
			required[w-1] = append(required[w-1], col)
		}
	}
	// baseline entry requirement: complete baseline confounders + wave-0 exposure
	entryCols := [][]float64{}
	for _, name := range cfg.Baseline {
		col, err := tab.Column(name)
		if err != nil {
			return nil, err
		}
		entryCols = append(entryCols, col)
	}
	exp0, err := tab.Column(exp.Column(0))
	if err != nil {
		return nil, err
	}
	entryCols = append(entryCols, exp0)
	for w := 0; w < k; w++ {
		ind.Uncens[w] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		entered := true
		for _, col := range entryCols {
			if IsMissing(col[i]) {
				entered = false
				break
			}
		}
		if !entered {
			ind.CensorWave[i] = 0
			for w := 0; w < k; w++ {
				ind.Uncens[w][i] = Missing()
			}
			continue
		}
		censorAt := k + 1
		for w := 1; w <= k; w++ {
			if censorAt <= k {
				// already censored earlier, not at risk
				ind.Uncens[w-1][i] = Missing()
				continue
			}
			observed := true
			for _, col := range required[w-1] {
				if IsMissing(col[i]) {
					observed = false
					break
				}
			}
			if observed {
				ind.Uncens[w-1][i] = 1
			} else {
				ind.Uncens[w-1][i] = 0
				censorAt = w
			}
		}
		ind.CensorWave[i] = censorAt
	}
	return ind, nil
}
