// Package nnls solves non-negative least-squares problems of the form
//
//	min_{H ≥ 0} ‖V − W·H‖_F
//
// for a fixed non-negative W, using projected gradients with a
// back-tracking line search. The method follows:
//
// Chih-Jen Lin (2007) 'Projected Gradient Methods for Non-negative
// Matrix Factorization.' Neural Computation 19:2756.
//
// The factorization model uses it to project new data columns onto an
// already learned basis; it is not a training path of the multiplicative
// updates themselves.
package nnls

import (
	"gonum.org/v1/gonum/mat"
)

// Config determines the behaviour of a Solve call.
type Config struct {
	// Tolerance is the stopping tolerance on the projected gradient norm.
	Tolerance float64

	// MaxOuter and MaxInner are the iteration limits of the outer
	// projected-gradient loop and the inner line search.
	MaxOuter, MaxInner int
}

// DefaultConfig returns limits that behave well for the modest problem
// sizes the factorization feeds into Solve.
func DefaultConfig() Config {
	return Config{Tolerance: 1e-4, MaxOuter: 200, MaxInner: 20}
}

func posFilt(_, _ int, v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

// Solve returns a non-negative H approximately minimizing ‖V − W·H‖_F
// starting from the non-negative initial solution Ho. ok reports whether
// the line search made sufficient progress at least once.
//
// V is r×c, W is r×k and Ho is k×c. Ho is not modified.
func Solve(V, W, Ho *mat.Dense, cfg Config) (H *mat.Dense, ok bool) {
	if cfg.MaxOuter <= 0 {
		cfg.MaxOuter = DefaultConfig().MaxOuter
	}
	if cfg.MaxInner <= 0 {
		cfg.MaxInner = DefaultConfig().MaxInner
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultConfig().Tolerance
	}

	H = mat.DenseCopyOf(Ho)

	var WtV, WtW mat.Dense
	WtV.Mul(W.T(), V)
	WtW.Mul(W.T(), W)

	alpha, beta := 1.0, 0.1

	// Projected gradient: zero the components that cannot decrease the
	// objective without violating non-negativity.
	decFilt := func(r, c int, v float64) float64 {
		// decFilt is applied to G, so v = G.At(r, c).
		if v < 0 || H.At(r, c) > 0 {
			return v
		}
		return 0
	}

	G := new(mat.Dense)
	for i := 0; i < cfg.MaxOuter; i++ {
		G.Mul(&WtW, H)
		G.Sub(G, &WtV)
		G.Apply(decFilt, G)

		if mat.Norm(G, 2) < cfg.Tolerance {
			break
		}

		var (
			reduce bool
			Hp     *mat.Dense
			d, dQ  mat.Dense
		)
		for j := 0; j < cfg.MaxInner; j++ {
			var Hn mat.Dense
			Hn.Scale(alpha, G)
			Hn.Sub(H, &Hn)
			Hn.Apply(posFilt, &Hn)

			d.Sub(&Hn, H)
			dQ.Mul(&WtW, &d)
			dQ.MulElem(&dQ, &d)
			d.MulElem(G, &d)

			sufficient := 0.99*mat.Sum(&d)+0.5*mat.Sum(&dQ) < 0

			if j == 0 {
				reduce = !sufficient
				Hp = H
			}
			if reduce {
				if sufficient {
					H = &Hn
					ok = true
					break
				}
				alpha *= beta
			} else {
				if !sufficient || mat.Equal(Hp, &Hn) {
					H = Hp
					break
				}
				alpha /= beta
				Hp = &Hn
			}
		}
	}

	return H, ok
}
