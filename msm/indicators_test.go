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

func mustTable(t *testing.T, subjects []string, names []string, columns [][]float64) *Table {
	t.Helper()
	tab, err := NewTable(subjects, names, columns)
	require.NoError(t, err)
	return tab
}

// indicatorFixture builds a 5-subject, 2-wave table exercising every censoring
// pattern:
//
//	s0 fully observed
//	s1 incomplete baseline (never enters)
//	s2 missing the wave-1 confounder (censored at wave 1)
//	s3 missing only the outcome (censored at wave 2 for the outcome variant,
//	   complete for the outcome-free variant)
//	s4 missing the wave-1 exposure (censored at wave 1)
func indicatorFixture(t *testing.T) (*Table, *AnalysisConfig, *ExposureDefinition, *OutcomeDefinition) {
	t.Helper()
	na := Missing()
	tab := mustTable(t,
		[]string{"s0", "s1", "s2", "s3", "s4"},
		[]string{"z", "a0", "a1", "z1", "z2", "y"},
		[][]float64{
			{1, na, 0, 1, 0},  //z
			{2, 8, 8, 2, 8},   //a0
			{8, 2, 2, 8, na},  //a1
			{0, 1, na, 1, 0},  //z1
			{1, 0, na, 0, na}, //z2
			{3, 4, na, na, na}, //y
		})
	cfg := &AnalysisConfig{
		Baseline:        []string{"z"},
		WaveConfounders: [][]string{{"z1"}, {"z2"}},
	}
	exp := &ExposureDefinition{Name: "pm", Prefix: "a", WaveSuffixes: []string{"0", "1"},
		HighCutoff: 5, Cutpoints: []float64{5}}
	out := &OutcomeDefinition{Name: "y", Column: "y", Code: "y"}
	return tab, cfg, exp, out
}

func TestBuildWaveIndicatorsCensorWave(t *testing.T) {
	tab, cfg, exp, out := indicatorFixture(t)
	ind, err := BuildWaveIndicators(tab, cfg, exp, out)
	require.NoError(t, err)
	assert.Equal(t, 2, ind.K)
	assert.Equal(t, []int{3, 0, 1, 2, 1}, ind.CensorWave)
	assert.True(t, ind.Completed(0))
	assert.False(t, ind.Completed(3))
}

func TestBuildWaveIndicatorsOutcomeFreeVariant(t *testing.T) {
	tab, cfg, exp, _ := indicatorFixture(t)
	ind, err := BuildWaveIndicators(tab, cfg, exp, nil)
	require.NoError(t, err)
	// without the outcome requirement s3 is complete; the missing outcome must
	// not censor subjects for the treatment weights
	assert.Equal(t, []int{3, 0, 1, 3, 1}, ind.CensorWave)
	assert.True(t, ind.Completed(3))
}

func TestWaveIndicatorsRiskSets(t *testing.T) {
	tab, cfg, exp, out := indicatorFixture(t)
	ind, err := BuildWaveIndicators(tab, cfg, exp, out)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, true, true}, ind.AtRisk(1))
	assert.Equal(t, []bool{true, false, false, true, false}, ind.AtRisk(2))
	assert.Equal(t, []bool{true, false, true, true, true}, ind.ObservedThrough(0))
	assert.Equal(t, []bool{true, false, false, true, false}, ind.ObservedThrough(1))
}

func TestWaveIndicatorsUncensoredTargets(t *testing.T) {
	tab, cfg, exp, out := indicatorFixture(t)
	ind, err := BuildWaveIndicators(tab, cfg, exp, out)
	require.NoError(t, err)
	// wave 1: s0 and s3 stay, s2 and s4 drop out, s1 never entered
	assert.Equal(t, 1.0, ind.Uncens[0][0])
	assert.True(t, IsMissing(ind.Uncens[0][1]))
	assert.Equal(t, 0.0, ind.Uncens[0][2])
	assert.Equal(t, 1.0, ind.Uncens[0][3])
	assert.Equal(t, 0.0, ind.Uncens[0][4])
	// wave 2: only s0 and s3 are at risk; s3 drops out for this outcome
	assert.Equal(t, 1.0, ind.Uncens[1][0])
	assert.True(t, IsMissing(ind.Uncens[1][2]))
	assert.Equal(t, 0.0, ind.Uncens[1][3])
	assert.True(t, IsMissing(ind.Uncens[1][4]))
}

func TestBuildWaveIndicatorsMissingColumn(t *testing.T) {
	tab, cfg, exp, out := indicatorFixture(t)
	cfg.WaveConfounders = [][]string{{"z1"}, {"nonexistent"}}
	_, err := BuildWaveIndicators(tab, cfg, exp, out)
	require.Error(t, err)
	assert.IsType(t, &DataIntegrityError{}, err)
}
