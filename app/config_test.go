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

package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleConfig = `id_column: sid
baseline: [age, sex]
wave_confounders:
  - [bmi_w1]
  - [bmi_w2, smoke_w2]
exposures:
  - name: pm25_100m
    prefix: pm25_100m
    wave_suffixes: [_w0, _w1]
    high_cutoff: 10
    cutpoints: [5, 10]
outcomes:
  - name: fev1
    column: fev1_w2
    code: fe
bootstrap:
  replicates: 200
  seed: 9
truncation:
  lower: 2
  upper: 98
`

func TestLoadAnalysisConfig(t *testing.T) {
	file := writeTempFile(t, "analysis.yaml", exampleConfig)
	cfg, err := LoadAnalysisConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "sid", cfg.IDColumn)
	assert.Equal(t, []string{"age", "sex"}, cfg.Baseline)
	assert.Equal(t, [][]string{{"bmi_w1"}, {"bmi_w2", "smoke_w2"}}, cfg.WaveConfounders)
	assert.Equal(t, 2, cfg.NumWaves())

	require.Len(t, cfg.Exposures, 1)
	exp := cfg.Exposures[0]
	assert.Equal(t, "pm25_100m", exp.Name)
	assert.Equal(t, "pm25_100m_w1", exp.Column(1))
	assert.Equal(t, 10.0, exp.HighCutoff)
	assert.Equal(t, 3, exp.Levels())

	require.Len(t, cfg.Outcomes, 1)
	assert.Equal(t, "fev1_w2", cfg.Outcomes[0].Column)
	assert.Equal(t, "fe", cfg.Outcomes[0].Code)

	assert.Equal(t, 200, cfg.Bootstrap.Replicates)
	assert.Equal(t, int64(9), cfg.Bootstrap.Seed)
	// min_success defaults to half the replicates when not configured
	assert.Equal(t, 100, cfg.Bootstrap.MinSuccess)
	assert.Equal(t, 2.0, cfg.Truncation.Lower)
	assert.Equal(t, 98.0, cfg.Truncation.Upper)
}

func TestLoadAnalysisConfigDefaults(t *testing.T) {
	file := writeTempFile(t, "analysis.yaml", "baseline: [age]\n")
	cfg, err := LoadAnalysisConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "subject_id", cfg.IDColumn)
	assert.Equal(t, 500, cfg.Bootstrap.Replicates)
	assert.Equal(t, int64(1), cfg.Bootstrap.Seed)
	assert.Equal(t, 250, cfg.Bootstrap.MinSuccess)
	assert.Equal(t, 1.0, cfg.Truncation.Lower)
	assert.Equal(t, 99.0, cfg.Truncation.Upper)
}

func TestLoadAnalysisConfigExplicitMinSuccess(t *testing.T) {
	file := writeTempFile(t, "analysis.yaml",
		"bootstrap:\n  replicates: 100\n  min_success: 90\n")
	cfg, err := LoadAnalysisConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Bootstrap.MinSuccess)
}

func TestLoadAnalysisConfigMissingFile(t *testing.T) {
	_, err := LoadAnalysisConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadAnalysisConfigMalformed(t *testing.T) {
	file := writeTempFile(t, "analysis.yaml", "baseline: [unclosed\n")
	_, err := LoadAnalysisConfig(file)
	require.Error(t, err)
}
