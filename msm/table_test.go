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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableRejectsRaggedInput(t *testing.T) {
	_, err := NewTable([]string{"s0", "s1"}, []string{"x"}, [][]float64{{1}})
	require.Error(t, err)
	_, err = NewTable([]string{"s0"}, []string{"x", "x"}, [][]float64{{1}, {2}})
	require.Error(t, err)
	_, err = NewTable([]string{"s0"}, []string{"x", "y"}, [][]float64{{1}})
	require.Error(t, err)
}

func TestTableColumnLookup(t *testing.T) {
	tab := mustTable(t, []string{"s0", "s1"}, []string{"x", "y"},
		[][]float64{{1, 2}, {3, Missing()}})
	assert.Equal(t, 2, tab.NumRows())
	assert.True(t, tab.HasColumn("y"))
	assert.False(t, tab.HasColumn("z"))
	col, err := tab.Column("y")
	require.NoError(t, err)
	assert.Equal(t, 3.0, col[0])
	assert.True(t, IsMissing(col[1]))
	_, err = tab.Column("z")
	require.Error(t, err)
	assert.Equal(t, []string{"x", "y"}, tab.ColumnNames())
}

func TestExposureDefinitionTransforms(t *testing.T) {
	exp := &ExposureDefinition{Name: "pm", Prefix: "pm", WaveSuffixes: []string{"_w0", "_w1"},
		HighCutoff: 10, Cutpoints: []float64{5, 10, 15}}
	assert.Equal(t, 2, exp.NumWaves())
	assert.Equal(t, "pm_w1", exp.Column(1))
	assert.Equal(t, 4, exp.Levels())
	tests := []struct {
		value    float64
		high     float64
		category float64
	}{
		{2, 0, 0},
		{5, 0, 1},
		{9.9, 0, 1},
		{10, 1, 2},
		{15, 1, 3},
		{100, 1, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.high, exp.Binarize(tt.value), "binarize %g", tt.value)
		assert.Equal(t, tt.category, exp.Categorize(tt.value), "categorize %g", tt.value)
	}
	assert.True(t, IsMissing(exp.Binarize(Missing())))
	assert.True(t, IsMissing(exp.Categorize(Missing())))
}

func TestConfoundersThrough(t *testing.T) {
	cfg := &AnalysisConfig{
		Baseline:        []string{"age", "sex"},
		WaveConfounders: [][]string{{"bmi1"}, {"bmi2", "smoke2"}},
	}
	assert.Equal(t, 2, cfg.NumWaves())
	assert.Equal(t, []string{"age", "sex"}, cfg.ConfoundersThrough(0))
	assert.Equal(t, []string{"age", "sex", "bmi1"}, cfg.ConfoundersThrough(1))
	assert.Equal(t, []string{"age", "sex", "bmi1", "bmi2", "smoke2"}, cfg.ConfoundersThrough(2))
}

func validConfig() *AnalysisConfig {
	return &AnalysisConfig{
		IDColumn:        "sid",
		Baseline:        []string{"z"},
		WaveConfounders: [][]string{{"z1"}},
		Exposures: []ExposureDefinition{
			{Name: "pm", Prefix: "a", WaveSuffixes: []string{"0"}, HighCutoff: 5, Cutpoints: []float64{5}},
		},
		Outcomes:   []OutcomeDefinition{{Name: "y", Column: "y", Code: "y"}},
		Bootstrap:  BootstrapConfig{Replicates: 100, Seed: 1, MinSuccess: 50},
		Truncation: TruncationConfig{Lower: 1, Upper: 99},
	}
}

func validConfigTable(t *testing.T) *Table {
	return mustTable(t, []string{"s0"}, []string{"z", "a0", "z1", "y"},
		[][]float64{{0}, {2}, {1}, {3}})
}

func TestAnalysisConfigValidate(t *testing.T) {
	tab := validConfigTable(t)
	require.NoError(t, validConfig().Validate(tab))

	tests := []struct {
		name   string
		mutate func(cfg *AnalysisConfig)
	}{
		{"no exposures", func(cfg *AnalysisConfig) { cfg.Exposures = nil }},
		{"no outcomes", func(cfg *AnalysisConfig) { cfg.Outcomes = nil }},
		{"no waves", func(cfg *AnalysisConfig) { cfg.WaveConfounders = nil }},
		{"missing confounder column", func(cfg *AnalysisConfig) { cfg.Baseline = []string{"nope"} }},
		{"missing exposure column", func(cfg *AnalysisConfig) { cfg.Exposures[0].Prefix = "b" }},
		{"exposure without waves", func(cfg *AnalysisConfig) { cfg.Exposures[0].WaveSuffixes = nil }},
		{"exposure beyond follow-up", func(cfg *AnalysisConfig) {
			cfg.Exposures[0].WaveSuffixes = []string{"0", "0", "0"}
		}},
		{"no cutpoints", func(cfg *AnalysisConfig) { cfg.Exposures[0].Cutpoints = nil }},
		{"unsorted cutpoints", func(cfg *AnalysisConfig) { cfg.Exposures[0].Cutpoints = []float64{10, 5} }},
		{"missing outcome column", func(cfg *AnalysisConfig) { cfg.Outcomes[0].Column = "nope" }},
		{"non-positive replicates", func(cfg *AnalysisConfig) { cfg.Bootstrap.Replicates = 0 }},
		{"min success out of range", func(cfg *AnalysisConfig) { cfg.Bootstrap.MinSuccess = 101 }},
		{"inverted truncation", func(cfg *AnalysisConfig) { cfg.Truncation = TruncationConfig{Lower: 99, Upper: 1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate(tab)
			require.Error(t, err)
			assert.IsType(t, &DataIntegrityError{}, err)
		})
	}
}
