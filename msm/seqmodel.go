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
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Sequential probability models. The shape of the problem is the same at
// every wave for both weight families: fit a binary regression of a target
// indicator on a numerator predictor set (history only) and on a denominator
// predictor set (history plus confounders accrued so far), restricted to the
// subjects still at risk, and score the fitted probabilities back onto the
// full table. Only the accumulated predictor sets differ per wave, so a
// single declarative WaveModel drives a generic fitting loop.

// WaveModel is one entry of the wave-model schedule: the target indicator and
// the numerator/denominator predictor columns of a single wave.
type WaveModel struct {
	Family string      //"censoring" or "treatment", used in error reports
	Wave   int         //wave index within the family
	Target []float64   //1/0 event indicator, read only where AtRisk
	AtRisk []bool      //which subjects enter this wave's models
	Num    [][]float64 //numerator predictor columns (history only)
	Den    [][]float64 //denominator predictor columns (history + confounders)
}

// FitWaveModel fits the numerator and denominator models of one wave and
// returns the predicted event probabilities for every row of the table.
// Subjects not at risk receive the missing marker; those placeholders must
// never enter a downstream product. Fitting failures surface as ModelFitError.
func FitWaveModel(m *WaveModel) (num, den []float64, err error) {
	num, err = fitSequential(m, m.Num, "numerator")
	if err != nil {
		return nil, nil, err
	}
	den, err = fitSequential(m, m.Den, "denominator")
	if err != nil {
		return nil, nil, err
	}
	return num, den, nil
}

// fitSequential fits one binary model over the at-risk rows and scatters the
// fitted probabilities back into a full-length vector.
func fitSequential(m *WaveModel, preds [][]float64, variant string) ([]float64, error) {
	rows := []int{}
	for i, r := range m.AtRisk {
		if r {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, &ModelFitError{Model: m.Family + " " + variant, Wave: m.Wave, Reason: "no subjects at risk"}
	}
	p := len(preds) + 1
	X := mat.NewDense(len(rows), p, nil)
	y := make([]float64, len(rows))
	for k, i := range rows {
		X.Set(k, 0, 1) //intercept
		for j, col := range preds {
			if IsMissing(col[i]) {
				return nil, &DataIntegrityError{
					Reason: fmt.Sprintf("%s %s model at wave %d: predictor %d missing for at-risk subject %d",
						m.Family, variant, m.Wave, j, i)}
			}
			X.Set(k, j+1, col[i])
		}
		if IsMissing(m.Target[i]) {
			return nil, &DataIntegrityError{
				Reason: fmt.Sprintf("%s %s model at wave %d: target missing for at-risk subject %d",
					m.Family, variant, m.Wave, i)}
		}
		y[k] = m.Target[i]
	}
	beta, err := logisticFit(X, y)
	if err != nil {
		return nil, &ModelFitError{Model: m.Family + " " + variant, Wave: m.Wave, Reason: err.Error()}
	}
	fitted := logisticPredict(beta, X)
	probs := make([]float64, len(m.AtRisk))
	for i := range probs {
		probs[i] = Missing()
	}
	for k, i := range rows {
		probs[i] = fitted[k]
	}
	return probs, nil
}

// binarizedExposures returns the high/low indicator of an exposure at every
// wave at which it is measured, aligned to the table rows.
func binarizedExposures(tab *Table, exp *ExposureDefinition) ([][]float64, error) {
	bins := make([][]float64, exp.NumWaves())
	for w := 0; w < exp.NumWaves(); w++ {
		raw, err := tab.Column(exp.Column(w))
		if err != nil {
			return nil, err
		}
		bin := make([]float64, len(raw))
		for i, x := range raw {
			bin[i] = exp.Binarize(x)
		}
		bins[w] = bin
	}
	return bins, nil
}

// confounderColumns resolves a confounder column-name list against the table.
func confounderColumns(tab *Table, names []string) ([][]float64, error) {
	cols := make([][]float64, 0, len(names))
	for _, name := range names {
		col, err := tab.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}
