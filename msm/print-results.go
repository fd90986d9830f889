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
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Rendering of the aggregated result table.

var resultHeader = []string{"exposure", "outcome", "point_estimate", "ci_low", "ci_high",
	"n_bootstrap_success", "n_bootstrap_skipped", "error"}

func formatEstimate(x float64) string {
	if IsMissing(x) {
		return "NA"
	}
	return strconv.FormatFloat(x, 'g', 6, 64)
}

func resultRecord(row *ResultRow) []string {
	errMsg := ""
	if row.Err != nil {
		errMsg = row.Err.Error()
	}
	return []string{
		row.Exposure,
		row.Outcome,
		formatEstimate(row.Estimate),
		formatEstimate(row.CILow),
		formatEstimate(row.CIHigh),
		strconv.Itoa(row.NBootstrapSuccess),
		strconv.Itoa(row.NBootstrapSkipped),
		errMsg,
	}
}

// PrintResults renders the result rows as a table on standard output.
func PrintResults(rows []*ResultRow) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header(resultHeader)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	data := [][]string{}
	for _, row := range rows {
		data = append(data, resultRecord(row))
	}
	if err := table.Bulk(data); err != nil {
		fmt.Fprintln(os.Stderr, "Error rendering result table: ", err)
		return
	}
	if err := table.Render(); err != nil {
		fmt.Fprintln(os.Stderr, "Error rendering result table: ", err)
	}
}

// WriteResultsCSV writes the tidy result table to a CSV file for downstream
// reporting.
func WriteResultsCSV(rows []*ResultRow, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := file.Close(); err != nil {
			panic(err)
		}
	}()
	w := csv.NewWriter(file)
	if err := w.Write(resultHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(resultRecord(row)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
