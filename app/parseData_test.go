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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipwe/msm"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseCohortData(t *testing.T) {
	file := writeTempFile(t, "cohort.csv",
		"sid,age,pm25_w0,fev1_w1\n"+
			"p1,54,12.5,NA\n"+
			"p2,61,,2.8\n")
	tab, err := ParseCohortData(file, "sid")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, tab.Subjects)
	assert.Equal(t, []string{"age", "pm25_w0", "fev1_w1"}, tab.ColumnNames())
	pm, err := tab.Column("pm25_w0")
	require.NoError(t, err)
	assert.Equal(t, 12.5, pm[0])
	assert.True(t, msm.IsMissing(pm[1]))
	fev, err := tab.Column("fev1_w1")
	require.NoError(t, err)
	assert.True(t, msm.IsMissing(fev[0]))
	assert.Equal(t, 2.8, fev[1])
}

func TestParseCohortDataTrimsWhitespace(t *testing.T) {
	file := writeTempFile(t, "cohort.csv",
		"sid, age \n"+
			" p1 , 54 \n")
	tab, err := ParseCohortData(file, "sid")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, tab.Subjects)
	age, err := tab.Column("age")
	require.NoError(t, err)
	assert.Equal(t, 54.0, age[0])
}

func TestParseCohortDataMissingIDColumn(t *testing.T) {
	file := writeTempFile(t, "cohort.csv", "age,bmi\n54,22\n")
	_, err := ParseCohortData(file, "sid")
	require.Error(t, err)
	assert.IsType(t, &msm.DataIntegrityError{}, err)
}

func TestParseCohortDataRejectsNonNumericCell(t *testing.T) {
	file := writeTempFile(t, "cohort.csv", "sid,age\np1,unknown\n")
	_, err := ParseCohortData(file, "sid")
	require.Error(t, err)
	var integrity *msm.DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "age", integrity.Column)
}

func TestParseCohortDataMissingFile(t *testing.T) {
	_, err := ParseCohortData(filepath.Join(t.TempDir(), "nope.csv"), "sid")
	require.Error(t, err)
}
