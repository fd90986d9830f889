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

import "fmt"

// DataIntegrityError reports input that cannot be analyzed: a required column
// is missing from the analysis table, or a cell holds a value that is neither
// numeric nor the recognized not-observed marker. It is fatal for the whole
// run; no estimate can be produced from a broken table.
type DataIntegrityError struct {
	Column string //offending column, empty when the problem is not column-specific
	Reason string
}

func (e *DataIntegrityError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("data integrity: %s", e.Reason)
	}
	return fmt.Sprintf("data integrity: column %q: %s", e.Column, e.Reason)
}

// ModelFitError reports that a component regression could not be fit: a
// zero-variance target, a singular or rank-deficient system, failure to
// converge, or divergence consistent with perfect separation.
type ModelFitError struct {
	Model  string //which model failed, e.g. "censoring denominator" or "MSM outcome"
	Wave   int    //wave of the sequential model, -1 for the outcome model
	Reason string
}

func (e *ModelFitError) Error() string {
	if e.Wave < 0 {
		return fmt.Sprintf("model fit: %s model: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("model fit: %s model at wave %d: %s", e.Model, e.Wave, e.Reason)
}

// WeightDegeneracyError reports that no usable stabilized weight remains for
// an outcome, so neither truncation bounds nor a weighted fit are defined.
type WeightDegeneracyError struct {
	Outcome string
	Reason  string
}

func (e *WeightDegeneracyError) Error() string {
	return fmt.Sprintf("weight degeneracy for outcome %q: %s", e.Outcome, e.Reason)
}

// BootstrapInsufficientReplicatesError reports that too many bootstrap
// replicates were skipped to trust a percentile interval.
type BootstrapInsufficientReplicatesError struct {
	Succeeded int
	Skipped   int
	Required  int
}

func (e *BootstrapInsufficientReplicatesError) Error() string {
	return fmt.Sprintf("bootstrap: only %d of %d replicates succeeded (%d skipped), need at least %d for a confidence interval",
		e.Succeeded, e.Succeeded+e.Skipped, e.Skipped, e.Required)
}
