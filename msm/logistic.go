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

	"gonum.org/v1/gonum/mat"
)

// Binary and weighted linear regression on dense gonum matrices. These are
// the only two model families the engine needs: logistic fits for the
// sequential censoring/treatment probability models and weighted least
// squares for the MSM outcome regression.

const (
	irlsMaxIter = 50
	irlsTol     = 1e-9
	// IRLS working weights are floored so the working response stays finite
	// when fitted probabilities saturate.
	irlsWeightFloor = 1e-10
	// A fitted log-odds coefficient beyond this bound means the likelihood is
	// still climbing towards infinity: perfect separation.
	separationBound = 30.0
	// Relative tolerance on the R diagonal of the QR factorization below
	// which a column is treated as linearly dependent.
	rankTol = 1e-10
)

func sigmoid(eta float64) float64 {
	return 1.0 / (1.0 + math.Exp(-eta))
}

// qrSolve solves X beta = y through a QR factorization and reports a
// rank-deficient system as an error instead of returning a degenerate
// solution.
func qrSolve(X *mat.Dense, y []float64) ([]float64, error) {
	n, p := X.Dims()
	if n < p {
		return nil, fmt.Errorf("system is underdetermined: %d rows for %d coefficients", n, p)
	}
	var qr mat.QR
	qr.Factorize(X)
	var r mat.Dense
	qr.RTo(&r)
	maxDiag := 0.0
	for j := 0; j < p; j++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(j, j)))
	}
	if maxDiag == 0 {
		return nil, fmt.Errorf("design matrix is identically zero")
	}
	for j := 0; j < p; j++ {
		if math.Abs(r.At(j, j)) < rankTol*maxDiag {
			return nil, fmt.Errorf("design matrix is rank deficient at column %d", j)
		}
	}
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, mat.NewDense(n, 1, y)); err != nil {
		return nil, fmt.Errorf("singular system: %v", err)
	}
	beta := make([]float64, p)
	for j := 0; j < p; j++ {
		beta[j] = sol.At(j, 0)
	}
	return beta, nil
}

// logisticFit fits P(y=1|x) = 1/(1+exp(-x·beta)) by iteratively reweighted
// least squares. X must carry the intercept as its first column and y must be
// strictly 0/1. Zero-variance targets, rank-deficient designs, divergence
// consistent with perfect separation, and non-convergence are all surfaced as
// errors; the caller wraps them into a named ModelFitError.
func logisticFit(X *mat.Dense, y []float64) ([]float64, error) {
	n, p := X.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("%d responses for %d rows", len(y), n)
	}
	ones := 0
	for _, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("target is not binary: %g", v)
		}
		if v == 1 {
			ones++
		}
	}
	if ones == 0 || ones == n {
		return nil, fmt.Errorf("target has zero variance (%d of %d events)", ones, n)
	}
	beta := make([]float64, p)
	eta := make([]float64, n)
	scaledX := mat.NewDense(n, p, nil)
	scaledZ := make([]float64, n)
	for iter := 0; iter < irlsMaxIter; iter++ {
		// working response and weights at the current linear predictor
		for i := 0; i < n; i++ {
			e := 0.0
			for j := 0; j < p; j++ {
				e += X.At(i, j) * beta[j]
			}
			eta[i] = e
			mu := sigmoid(e)
			w := math.Max(mu*(1.0-mu), irlsWeightFloor)
			z := e + (y[i]-mu)/w
			sw := math.Sqrt(w)
			for j := 0; j < p; j++ {
				scaledX.Set(i, j, sw*X.At(i, j))
			}
			scaledZ[i] = sw * z
		}
		next, err := qrSolve(scaledX, scaledZ)
		if err != nil {
			return nil, err
		}
		delta := 0.0
		for j := 0; j < p; j++ {
			delta = math.Max(delta, math.Abs(next[j]-beta[j]))
		}
		beta = next
		for j := 0; j < p; j++ {
			if math.Abs(beta[j]) > separationBound {
				return nil, fmt.Errorf("coefficient %d diverged to %g: perfect separation suspected", j, beta[j])
			}
		}
		if delta < irlsTol {
			return beta, nil
		}
	}
	return nil, fmt.Errorf("IRLS did not converge in %d iterations", irlsMaxIter)
}

// logisticPredict scores fitted coefficients on a design matrix and returns
// the predicted event probabilities.
func logisticPredict(beta []float64, X *mat.Dense) []float64 {
	n, p := X.Dims()
	probs := make([]float64, n)
	for i := 0; i < n; i++ {
		e := 0.0
		for j := 0; j < p; j++ {
			e += X.At(i, j) * beta[j]
		}
		probs[i] = sigmoid(e)
	}
	return probs
}

// weightedLeastSquares solves min_beta sum_i w_i (y_i - x_i·beta)^2. Weights
// must be non-negative; rows with zero weight carry no information but keep
// the row count stable. A rank-deficient weighted design is an error.
func weightedLeastSquares(X *mat.Dense, y, w []float64) ([]float64, error) {
	n, p := X.Dims()
	if len(y) != n || len(w) != n {
		return nil, fmt.Errorf("%d responses and %d weights for %d rows", len(y), len(w), n)
	}
	scaledX := mat.NewDense(n, p, nil)
	scaledY := make([]float64, n)
	for i := 0; i < n; i++ {
		if w[i] < 0 || IsMissing(w[i]) {
			return nil, fmt.Errorf("invalid observation weight %g at row %d", w[i], i)
		}
		sw := math.Sqrt(w[i])
		for j := 0; j < p; j++ {
			scaledX.Set(i, j, sw*X.At(i, j))
		}
		scaledY[i] = sw * y[i]
	}
	return qrSolve(scaledX, scaledY)
}

// linearPredict scores fitted linear coefficients on a design matrix.
func linearPredict(beta []float64, X *mat.Dense) []float64 {
	n, p := X.Dims()
	pred := make([]float64, n)
	for i := 0; i < n; i++ {
		v := 0.0
		for j := 0; j < p; j++ {
			v += X.At(i, j) * beta[j]
		}
		pred[i] = v
	}
	return pred
}
