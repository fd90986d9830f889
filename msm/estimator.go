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
	"gonum.org/v1/gonum/stat"
)

// MSMEstimator fits the weighted marginal structural outcome model of one
// (exposure, outcome) combination: outcome regressed on the k-level
// categorical exposure of every wave (one dummy per non-reference category),
// weighted by the truncated stabilized weight. No confounders enter this
// model — confounding is controlled by the weights. The estimator is
// constructed once per combination and then refit many times on bootstrap
// index vectors.
type MSMEstimator struct {
	ExposureName string
	OutcomeName  string
	Levels       int         //number of exposure categories k
	Categories   [][]float64 //per wave, per subject: 0-based category, missing when unobserved
	Outcome      []float64
	Weights      []float64 //truncated stabilized weights, missing = excluded
}

// NewMSMEstimator assembles the estimator inputs from the table and a
// combination's weight set.
func NewMSMEstimator(tab *Table, exp *ExposureDefinition, out *OutcomeDefinition, ws *WeightSet) (*MSMEstimator, error) {
	outcome, err := tab.Column(out.Column)
	if err != nil {
		return nil, err
	}
	cats := make([][]float64, exp.NumWaves())
	for w := 0; w < exp.NumWaves(); w++ {
		raw, err := tab.Column(exp.Column(w))
		if err != nil {
			return nil, err
		}
		cat := make([]float64, len(raw))
		for i, x := range raw {
			cat[i] = exp.Categorize(x)
		}
		cats[w] = cat
	}
	return &MSMEstimator{
		ExposureName: exp.Name,
		OutcomeName:  out.Name,
		Levels:       exp.Levels(),
		Categories:   cats,
		Outcome:      outcome,
		Weights:      ws.Truncated,
	}, nil
}

// NumSubjects returns the size of the subject roster the estimator resamples
// from.
func (m *MSMEstimator) NumSubjects() int {
	return len(m.Outcome)
}

// IdentityRows returns the index vector of the original, non-resampled fit.
func (m *MSMEstimator) IdentityRows() []int {
	rows := make([]int, m.NumSubjects())
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// Estimate fits the weighted outcome regression on the given subject index
// vector (identity for the original fit, a resample with replacement for a
// bootstrap replicate) and returns the counterfactual contrast: the mean
// predicted outcome with the exposure set to its highest category at every
// wave minus the mean with it set to the lowest. Degenerate fits — no usable
// rows, an exposure category without weighted support, a rank-deficient
// weighted design — fail with a descriptive ModelFitError.
func (m *MSMEstimator) Estimate(rows []int) (float64, error) {
	waves := len(m.Categories)
	dummies := m.Levels - 1
	usable := []int{}
	for _, i := range rows {
		if IsMissing(m.Weights[i]) || IsMissing(m.Outcome[i]) {
			continue
		}
		ok := true
		for w := 0; w < waves; w++ {
			if IsMissing(m.Categories[w][i]) {
				ok = false
				break
			}
		}
		if ok {
			usable = append(usable, i)
		}
	}
	if len(usable) == 0 {
		return 0, &ModelFitError{Model: "MSM outcome", Wave: -1,
			Reason: fmt.Sprintf("no subject with a defined weight, outcome, and exposure for %s/%s", m.ExposureName, m.OutcomeName)}
	}
	// every category needs weighted support at every wave, otherwise the
	// counterfactual arms are extrapolation from nothing
	for w := 0; w < waves; w++ {
		support := make([]float64, m.Levels)
		for _, i := range usable {
			support[int(m.Categories[w][i])] += m.Weights[i]
		}
		for lvl, s := range support {
			if s <= 0 {
				return 0, &ModelFitError{Model: "MSM outcome", Wave: -1,
					Reason: fmt.Sprintf("exposure category %d has zero weighted support at wave %d", lvl, w)}
			}
		}
	}
	p := 1 + waves*dummies
	X := mat.NewDense(len(usable), p, nil)
	y := make([]float64, len(usable))
	weights := make([]float64, len(usable))
	for k, i := range usable {
		X.Set(k, 0, 1)
		for w := 0; w < waves; w++ {
			lvl := int(m.Categories[w][i])
			if lvl > 0 {
				X.Set(k, 1+w*dummies+(lvl-1), 1)
			}
		}
		y[k] = m.Outcome[i]
		weights[k] = m.Weights[i]
	}
	beta, err := weightedLeastSquares(X, y, weights)
	if err != nil {
		return 0, &ModelFitError{Model: "MSM outcome", Wave: -1, Reason: err.Error()}
	}
	// score the fitted model on two synthetic datasets: exposure uniformly at
	// the highest category and uniformly at the lowest, at every wave
	high := m.syntheticDesign(len(usable), m.Levels-1)
	low := m.syntheticDesign(len(usable), 0)
	contrast := stat.Mean(linearPredict(beta, high), nil) - stat.Mean(linearPredict(beta, low), nil)
	return contrast, nil
}

// syntheticDesign builds a counterfactual design matrix with every subject at
// the same exposure level at every wave.
func (m *MSMEstimator) syntheticDesign(n, level int) *mat.Dense {
	waves := len(m.Categories)
	dummies := m.Levels - 1
	X := mat.NewDense(n, 1+waves*dummies, nil)
	for k := 0; k < n; k++ {
		X.Set(k, 0, 1)
		if level > 0 {
			for w := 0; w < waves; w++ {
				X.Set(k, 1+w*dummies+(level-1), 1)
			}
		}
	}
	return X
}
