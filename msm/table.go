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
	"math"
	"sort"
)

// Missing is the in-memory marker for a value that was not observed. The
// cohort pipeline upstream writes "NA" or an empty cell; the parser maps both
// onto NaN so that missingness can never be confused with zero.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether a table value is the not-observed marker.
func IsMissing(x float64) bool {
	return math.IsNaN(x)
}

// Table is the rectangular analysis table the engine computes on: one row per
// subject, one column per variable per wave. It is loaded once and read-only
// through the pipeline; bootstrap replicates read it through index vectors
// instead of copying rows.
type Table struct {
	Subjects []string       //subject IDs, one per row, in input order
	names    []string       //column names in input order
	index    map[string]int //column name -> position in columns
	columns  [][]float64    //column-major data, NaN = not observed
}

// NewTable builds a table from a subject ID vector and named columns. All
// columns must have exactly one value per subject.
func NewTable(subjects []string, names []string, columns [][]float64) (*Table, error) {
	if len(names) != len(columns) {
		return nil, &DataIntegrityError{Reason: fmt.Sprintf("%d column names for %d columns", len(names), len(columns))}
	}
	index := map[string]int{}
	for i, name := range names {
		if _, ok := index[name]; ok {
			return nil, &DataIntegrityError{Column: name, Reason: "duplicate column"}
		}
		if len(columns[i]) != len(subjects) {
			return nil, &DataIntegrityError{Column: name,
				Reason: fmt.Sprintf("%d values for %d subjects", len(columns[i]), len(subjects))}
		}
		index[name] = i
	}
	return &Table{Subjects: subjects, names: names, index: index, columns: columns}, nil
}

// NumRows returns the number of subjects in the table.
func (t *Table) NumRows() int {
	return len(t.Subjects)
}

// HasColumn reports whether a column with the given name is present.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the values of a named column. The returned slice is the
// table's backing storage and must be treated as read-only.
func (t *Table) Column(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &DataIntegrityError{Column: name, Reason: "not present in analysis table"}
	}
	return t.columns[i], nil
}

// ColumnNames returns the column names in input order.
func (t *Table) ColumnNames() []string {
	return t.names
}

// ExposureDefinition names the per-wave exposure columns of one exposure
// variant (different buffer sizes or measurement proxies are separate
// definitions) together with its categorical transforms: a binary high/low
// split for the sequential weighting models and a k-level categorization for
// the final outcome model.
type ExposureDefinition struct {
	Name         string    `mapstructure:"name"`
	Prefix       string    `mapstructure:"prefix"`        //column prefix shared by all waves of this exposure
	WaveSuffixes []string  `mapstructure:"wave_suffixes"` //per-wave column suffixes, wave 0 first
	HighCutoff   float64   `mapstructure:"high_cutoff"`   //values >= cutoff count as "high" in the weight models
	Cutpoints    []float64 `mapstructure:"cutpoints"`     //ascending cutpoints for the k-level outcome categorization
}

// NumWaves returns the number of waves at which this exposure is measured.
func (e *ExposureDefinition) NumWaves() int {
	return len(e.WaveSuffixes)
}

// Column returns the table column holding the raw exposure value at wave w.
func (e *ExposureDefinition) Column(w int) string {
	return e.Prefix + e.WaveSuffixes[w]
}

// Levels returns the number of categories of the k-level transform.
func (e *ExposureDefinition) Levels() int {
	return len(e.Cutpoints) + 1
}

// Binarize maps a raw exposure value onto the high/low indicator used by the
// weighting models. Missing stays missing.
func (e *ExposureDefinition) Binarize(x float64) float64 {
	if IsMissing(x) {
		return x
	}
	if x >= e.HighCutoff {
		return 1
	}
	return 0
}

// Categorize maps a raw exposure value onto its 0-based category level used
// by the outcome model. Missing stays missing.
func (e *ExposureDefinition) Categorize(x float64) float64 {
	if IsMissing(x) {
		return x
	}
	lvl := 0
	for _, c := range e.Cutpoints {
		if x >= c {
			lvl++
		}
	}
	return float64(lvl)
}

// OutcomeDefinition names one outcome column. The short code keys the
// outcome-specific censoring weights: a subject missing this outcome is
// censored for this outcome's model even when otherwise fully observed.
type OutcomeDefinition struct {
	Name   string `mapstructure:"name"`
	Column string `mapstructure:"column"`
	Code   string `mapstructure:"code"`
}

// BootstrapConfig holds the resampling parameters of one analysis run.
type BootstrapConfig struct {
	Replicates int   `mapstructure:"replicates"`  //number of bootstrap replicates R
	Seed       int64 `mapstructure:"seed"`        //base seed; replicate b derives its own generator from seed and b
	MinSuccess int   `mapstructure:"min_success"` //minimum successful replicates before a CI is trusted
}

// TruncationConfig holds the weight truncation percentiles (default 1/99).
type TruncationConfig struct {
	Lower float64 `mapstructure:"lower"`
	Upper float64 `mapstructure:"upper"`
}

// AnalysisConfig is the explicit schema of one analysis: which columns belong
// to which wave and role, which exposure and outcome definitions to cross,
// and the bootstrap and truncation parameters. It is built at configuration
// time and validated against the loaded table, so the engine itself never
// discovers columns by naming convention.
type AnalysisConfig struct {
	IDColumn        string               `mapstructure:"id_column"`
	Baseline        []string             `mapstructure:"baseline"`         //baseline (wave 0) confounder columns
	WaveConfounders [][]string           `mapstructure:"wave_confounders"` //confounder columns measured at follow-up waves 1..K
	Exposures       []ExposureDefinition `mapstructure:"exposures"`
	Outcomes        []OutcomeDefinition  `mapstructure:"outcomes"`
	Bootstrap       BootstrapConfig      `mapstructure:"bootstrap"`
	Truncation      TruncationConfig     `mapstructure:"truncation"`
}

// NumWaves returns the number of follow-up waves K. Censoring is modeled at
// waves 1..K; the outcome is required at wave K.
func (c *AnalysisConfig) NumWaves() int {
	return len(c.WaveConfounders)
}

// ConfoundersThrough collects baseline plus follow-up confounders of waves
// 1..w in schedule order. w = 0 selects the baseline set only.
func (c *AnalysisConfig) ConfoundersThrough(w int) []string {
	cols := []string{}
	cols = append(cols, c.Baseline...)
	for j := 1; j <= w && j <= len(c.WaveConfounders); j++ {
		cols = append(cols, c.WaveConfounders[j-1]...)
	}
	return cols
}

// Validate checks the configuration against a loaded table. Any missing
// column or inconsistent parameter is a DataIntegrityError: the run cannot
// proceed without valid input.
func (c *AnalysisConfig) Validate(tab *Table) error {
	if len(c.Exposures) == 0 {
		return &DataIntegrityError{Reason: "no exposure definitions configured"}
	}
	if len(c.Outcomes) == 0 {
		return &DataIntegrityError{Reason: "no outcome definitions configured"}
	}
	if c.NumWaves() == 0 {
		return &DataIntegrityError{Reason: "no follow-up waves configured"}
	}
	for _, col := range c.ConfoundersThrough(c.NumWaves()) {
		if !tab.HasColumn(col) {
			return &DataIntegrityError{Column: col, Reason: "confounder column not present in analysis table"}
		}
	}
	for _, exp := range c.Exposures {
		if exp.NumWaves() == 0 {
			return &DataIntegrityError{Reason: fmt.Sprintf("exposure %q has no wave suffixes", exp.Name)}
		}
		if exp.NumWaves() > c.NumWaves()+1 {
			return &DataIntegrityError{Reason: fmt.Sprintf("exposure %q is measured at %d waves but only %d follow-up waves are configured",
				exp.Name, exp.NumWaves(), c.NumWaves())}
		}
		if len(exp.Cutpoints) == 0 {
			return &DataIntegrityError{Reason: fmt.Sprintf("exposure %q has no cutpoints for the outcome model", exp.Name)}
		}
		if !sort.Float64sAreSorted(exp.Cutpoints) {
			return &DataIntegrityError{Reason: fmt.Sprintf("exposure %q cutpoints are not ascending", exp.Name)}
		}
		for w := 0; w < exp.NumWaves(); w++ {
			if !tab.HasColumn(exp.Column(w)) {
				return &DataIntegrityError{Column: exp.Column(w),
					Reason: fmt.Sprintf("exposure column of %q at wave %d not present in analysis table", exp.Name, w)}
			}
		}
	}
	for _, out := range c.Outcomes {
		if !tab.HasColumn(out.Column) {
			return &DataIntegrityError{Column: out.Column,
				Reason: fmt.Sprintf("outcome column of %q not present in analysis table", out.Name)}
		}
	}
	if c.Bootstrap.Replicates <= 0 {
		return &DataIntegrityError{Reason: "bootstrap replicate count must be positive"}
	}
	if c.Bootstrap.MinSuccess <= 0 || c.Bootstrap.MinSuccess > c.Bootstrap.Replicates {
		return &DataIntegrityError{Reason: fmt.Sprintf("bootstrap minimum success count %d must lie in 1..%d",
			c.Bootstrap.MinSuccess, c.Bootstrap.Replicates)}
	}
	if c.Truncation.Lower < 0 || c.Truncation.Upper > 100 || c.Truncation.Lower >= c.Truncation.Upper {
		return &DataIntegrityError{Reason: fmt.Sprintf("truncation percentiles [%g, %g] must satisfy 0 <= lower < upper <= 100",
			c.Truncation.Lower, c.Truncation.Upper)}
	}
	return nil
}
