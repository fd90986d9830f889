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
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WeightSet is the per-subject stabilized weight of one (exposure, outcome)
// combination, before and after truncation. It is always materialized fresh
// per combination, never mutated in place.
type WeightSet struct {
	Outcome      string
	Stabilized   []float64 //numerator/denominator ratio, missing when any component is missing
	Truncated    []float64 //stabilized weight clamped to the truncation interval
	Lower, Upper float64   //truncation bounds actually applied
}

// CombineWeights multiplies the censoring and treatment components into one
// stabilized weight per subject, then truncates at the configured
// percentiles. A subject with any undefined component gets a missing weight —
// excluded from the outcome's model, not weighted to zero.
func CombineWeights(cw *CensoringWeights, tw *TreatmentWeights, trunc TruncationConfig) (*WeightSet, error) {
	n := len(cw.Num)
	sw := make([]float64, n)
	for i := 0; i < n; i++ {
		if IsMissing(cw.Num[i]) || IsMissing(cw.Den[i]) || IsMissing(tw.Num[i]) || IsMissing(tw.Den[i]) {
			sw[i] = Missing()
			continue
		}
		sw[i] = (cw.Num[i] * tw.Num[i]) / (cw.Den[i] * tw.Den[i])
	}
	truncated, lower, upper, err := TruncateWeights(cw.Outcome, sw, trunc)
	if err != nil {
		return nil, err
	}
	return &WeightSet{
		Outcome:    cw.Outcome,
		Stabilized: sw,
		Truncated:  truncated,
		Lower:      lower,
		Upper:      upper,
	}, nil
}

// TruncateWeights clamps weights to the configured percentile interval of the
// non-missing, strictly positive weights. Missing weights stay missing. The
// bounds are recomputed per outcome because weight distributions differ
// across outcomes; the operation is idempotent for fixed percentiles. Zero
// valid weights is a loud WeightDegeneracyError, never a silent empty result.
func TruncateWeights(outcome string, weights []float64, trunc TruncationConfig) ([]float64, float64, float64, error) {
	valid := []float64{}
	for _, w := range weights {
		if !IsMissing(w) && w > 0 {
			valid = append(valid, w)
		}
	}
	if len(valid) == 0 {
		return nil, 0, 0, &WeightDegeneracyError{Outcome: outcome,
			Reason: "no positive non-missing stabilized weights to truncate"}
	}
	sort.Float64s(valid)
	lower := stat.Quantile(trunc.Lower/100.0, stat.Empirical, valid, nil)
	upper := stat.Quantile(trunc.Upper/100.0, stat.Empirical, valid, nil)
	truncated := make([]float64, len(weights))
	for i, w := range weights {
		switch {
		case IsMissing(w):
			truncated[i] = w
		case w < lower:
			truncated[i] = lower
		case w > upper:
			truncated[i] = upper
		default:
			truncated[i] = w
		}
	}
	return truncated, lower, upper, nil
}
