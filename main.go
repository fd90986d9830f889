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

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"ipwe/app"
	"ipwe/msm"
)

/*
Ipwe estimates the causal effect of a time-varying exposure on an outcome in a
longitudinal cohort with loss to follow-up. It fits a marginal structural
model on data reweighted by stabilized inverse probability of censoring and
treatment weights and reports percentile-method bootstrap confidence
intervals for the high-versus-low counterfactual contrast of every configured
exposure x outcome combination.

Usage:
	ipwe cohortFile configFile outputPath [flags]

Example:
	ipwe cohort.csv analysis.yaml ./results/ --name buffer100 --replicates 1000 --seed 42

The flags are:

--name string
	Sets the name of the run. This name is used to generate names for output files.
--replicates nr
	Overrides the configured number of bootstrap replicates. Hundreds of
	replicates are needed for a trustworthy percentile interval.
--seed nr
	Overrides the configured bootstrap seed. Runs are reproducible for a fixed
	seed and replicate count.
--nrOfThreads nr
	The number of threads ipwe uses.
*/

const (
	programVersion = 0.1
	programName    = "ipwe"
)

func programMessage() string {
	return fmt.Sprint(programName, " version ", programVersion, " compiled with ", runtime.Version())
}

const ipweHelp = "\nipwe parameters:\n" +
	"ipwe cohortFile configFile outputPath\n" +
	"[--name string]\n" +
	"[--replicates nr]\n" +
	"[--seed nr]\n" +
	"[--nrOfThreads nr]\n"

func parseFlags(flags flag.FlagSet, requiredArgs int, help string) {
	if len(os.Args) < requiredArgs {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	flags.SetOutput(io.Discard)
	if err := flags.Parse(os.Args[requiredArgs:]); err != nil {
		x := 0
		if err != flag.ErrHelp {
			fmt.Fprint(os.Stderr, err)
		}
		fmt.Fprint(os.Stderr, help)
		os.Exit(x)
	}
	if flags.NArg() > 0 {
		fmt.Fprint(os.Stderr, "Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

func getFileName(s, help string) string {
	switch s {
	case "-h", "--h", "-help", "--help":
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	return s
}

func main() {
	var (
		// required parameters
		cohortFile string //The cleaned cohort table (one row per subject, one column per variable per wave)
		configFile string //The yaml analysis configuration
		outputPath string //The path where output files are written
		// optional flags
		name        string
		replicates  int
		seed        int64
		nrOfThreads int
	)
	var flags flag.FlagSet
	// options for the ipwe command
	flags.StringVar(&name, "name", "exp1", "The name of the run. This is used to generate the "+
		"names of the output files.")
	flags.IntVar(&replicates, "replicates", 0, "Overrides the configured number of bootstrap "+
		"replicates.")
	flags.Int64Var(&seed, "seed", 0, "Overrides the configured bootstrap seed.")
	flags.IntVar(&nrOfThreads, "nrOfThreads", 0, "The number of threads ipwe uses.")
	// parse optional arguments
	parseFlags(flags, 4, ipweHelp)
	// parse required arguments
	cohortFile = getFileName(os.Args[1], ipweHelp)
	configFile = getFileName(os.Args[2], ipweHelp)
	outputPath, _ = filepath.Abs(getFileName(os.Args[3], ipweHelp))
	outputPath = outputPath + string(filepath.Separator)
	fmt.Println("Output path: ", outputPath)
	// create output directory
	err := os.MkdirAll(filepath.Dir(outputPath), 0700)
	if err != nil {
		panic(err)
	}
	// build an output command line
	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " ", cohortFile, " ", configFile, " ", outputPath)
	fmt.Fprint(&command, " --name ", name)
	if replicates > 0 {
		fmt.Fprint(&command, " --replicates ", replicates)
	}
	if seed != 0 {
		fmt.Fprint(&command, " --seed ", seed)
	}
	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
		fmt.Fprint(&command, " --nrOfThreads ", nrOfThreads)
	}
	// start execution
	log.Println(programMessage())
	log.Println("Executing command:\n", command.String())
	//1. Load the analysis configuration and the cohort table
	cfg, err := app.LoadAnalysisConfig(configFile)
	if err != nil {
		log.Fatal(err)
	}
	if replicates > 0 {
		cfg.Bootstrap.Replicates = replicates
		cfg.Bootstrap.MinSuccess = replicates / 2
	}
	if seed != 0 {
		cfg.Bootstrap.Seed = seed
	}
	tab, err := app.ParseCohortData(cohortFile, cfg.IDColumn)
	if err != nil {
		log.Fatal(err)
	}
	//2. Estimate all exposure x outcome combinations
	rows, err := msm.RunAnalysis(context.Background(), tab, cfg)
	if err != nil {
		log.Fatal(err)
	}
	//3. Print the result table and write it to file
	msm.PrintResults(rows)
	resultFile := fmt.Sprintf("%s%s.results.csv", outputPath, name)
	if err := msm.WriteResultsCSV(rows, resultFile); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Wrote results to: ", resultFile)
}
