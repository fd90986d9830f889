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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ipwe/msm"
)

//The ipwe engine consumes a single cleaned, rectangular cohort table produced
//by the external cohort-construction pipeline: one row per subject, one named
//column per variable per wave. The table must contain the subject ID column
//named by the analysis configuration; every other column is numeric with "NA"
//or an empty cell as the not-observed marker.

// ParseCohortData parses the cohort CSV file into the analysis table. A
// missing ID column or a cell that is neither numeric nor the not-observed
// marker is a DataIntegrityError: the run cannot proceed from a broken table.
func ParseCohortData(file, idColumn string) (*msm.Table, error) {
	fmt.Println("Parsing cohort data from file: ", file)
	csvFile, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := csvFile.Close(); err != nil {
			panic(err)
		}
	}()
	reader := csv.NewReader(csvFile)
	header, err := reader.Read()
	if err != nil {
		return nil, &msm.DataIntegrityError{Reason: fmt.Sprintf("cannot read header of %s: %v", file, err)}
	}
	idIndex := -1
	names := []string{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if name == idColumn {
			idIndex = i
			continue
		}
		names = append(names, name)
	}
	if idIndex == -1 {
		return nil, &msm.DataIntegrityError{Column: idColumn, Reason: "subject ID column not present in header"}
	}
	subjects := []string{}
	columns := make([][]float64, len(names))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &msm.DataIntegrityError{Reason: fmt.Sprintf("malformed record in %s: %v", file, err)}
		}
		col := 0
		for i, cell := range record {
			if i == idIndex {
				subjects = append(subjects, strings.TrimSpace(cell))
				continue
			}
			value, err := parseCell(cell)
			if err != nil {
				return nil, &msm.DataIntegrityError{Column: header[i],
					Reason: fmt.Sprintf("row %d: %v", len(subjects), err)}
			}
			columns[col] = append(columns[col], value)
			col++
		}
	}
	tab, err := msm.NewTable(subjects, names, columns)
	if err != nil {
		return nil, err
	}
	fmt.Println("Parsed ", tab.NumRows(), " subjects with ", len(names), " variables.")
	return tab, nil
}

// parseCell maps one CSV cell onto a table value: "NA" and the empty cell are
// the not-observed marker, everything else must parse as a float.
func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "NA" {
		return msm.Missing(), nil
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is neither numeric nor the NA marker", cell)
	}
	return value, nil
}
