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
	"fmt"

	"github.com/spf13/viper"

	"ipwe/msm"
)

//The analysis configuration enumerates the explicit schema of one run: the
//exposure definitions (name, column prefix, per-wave suffixes, categorical
//transforms), the outcome definitions (name, column, short code), the
//baseline and per-wave confounder column sets, and the bootstrap and
//truncation parameters. An example YAML configuration:
//
//  id_column: subject_id
//  baseline: [age, sex, bmi_w0]
//  wave_confounders:
//    - [bmi_w1, smoke_w1]
//    - [bmi_w2, smoke_w2]
//    - [bmi_w3, smoke_w3]
//  exposures:
//    - name: pm25_100m
//      prefix: pm25_100m
//      wave_suffixes: [_w0, _w1, _w2]
//      high_cutoff: 10.0
//      cutpoints: [5.0, 10.0, 15.0]
//  outcomes:
//    - name: fev1
//      column: fev1_w3
//      code: fe
//  bootstrap:
//    replicates: 500
//    seed: 42
//    min_success: 250
//  truncation:
//    lower: 1
//    upper: 99

const (
	defaultIDColumn   = "subject_id"
	defaultReplicates = 500
	defaultSeed       = 1
	defaultTruncLower = 1.0
	defaultTruncUpper = 99.0
)

// LoadAnalysisConfig reads the YAML analysis configuration. Structural
// validation against the loaded table happens separately in
// AnalysisConfig.Validate; this only decodes the file and fills defaults.
func LoadAnalysisConfig(file string) (*msm.AnalysisConfig, error) {
	fmt.Println("Loading analysis configuration from file: ", file)
	v := viper.New()
	v.SetConfigFile(file)
	v.SetDefault("id_column", defaultIDColumn)
	v.SetDefault("bootstrap.replicates", defaultReplicates)
	v.SetDefault("bootstrap.seed", defaultSeed)
	v.SetDefault("truncation.lower", defaultTruncLower)
	v.SetDefault("truncation.upper", defaultTruncUpper)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read analysis configuration %s: %w", file, err)
	}
	cfg := &msm.AnalysisConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("cannot decode analysis configuration %s: %w", file, err)
	}
	if cfg.Bootstrap.MinSuccess == 0 {
		// default: trust a CI only when at least half the replicates succeed
		cfg.Bootstrap.MinSuccess = cfg.Bootstrap.Replicates / 2
	}
	return cfg, nil
}
