// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcsr

import "github.com/cpmech/gosl/la"

// sorSweepForward performs one forward block-SOR sweep in place on y,
// against a matrix whose diagonal blocks already hold their inverse
// (set by FactorDiag). Off-diagonal blocks participate with their most
// recently updated neighbour value, matching a standard Gauss-Seidel-style
// in-place update.
func (m *Matrix) sorSweepForward(x, y []float64, omega float64) {
	b := m.Bsize
	r := make([]float64, b)
	upd := make([]float64, b)
	for i := 0; i < m.Nrows; i++ {
		copy(r, x[i*b:(i+1)*b])
		for k := m.Rowp[i]; k < m.Rowp[i+1]; k++ {
			col := m.Cols[k]
			if col == i {
				continue
			}
			la.MatVecMulAdd(r, -1, m.block(k), y[col*b:(col+1)*b])
		}
		la.MatVecMul(upd, omega, m.block(m.Diag[i]), r)
		yi := y[i*b : (i+1)*b]
		for j := 0; j < b; j++ {
			yi[j] = (1-omega)*yi[j] + upd[j]
		}
	}
}

// sorSweepBackward is sorSweepForward run from the last row to the first,
// the second half of a symmetric SOR sweep.
func (m *Matrix) sorSweepBackward(x, y []float64, omega float64) {
	b := m.Bsize
	r := make([]float64, b)
	upd := make([]float64, b)
	for i := m.Nrows - 1; i >= 0; i-- {
		copy(r, x[i*b:(i+1)*b])
		for k := m.Rowp[i]; k < m.Rowp[i+1]; k++ {
			col := m.Cols[k]
			if col == i {
				continue
			}
			la.MatVecMulAdd(r, -1, m.block(k), y[col*b:(col+1)*b])
		}
		la.MatVecMul(upd, omega, m.block(m.Diag[i]), r)
		yi := y[i*b : (i+1)*b]
		for j := 0; j < b; j++ {
			yi[j] = (1-omega)*yi[j] + upd[j]
		}
	}
}

// ApplySOR runs iters forward block-SOR sweeps over y := y0 + correction,
// starting from whatever y already holds (the caller zeroes y first for a
// zero initial guess, matching PSOR::applyFactor's zero_guess branch).
func (m *Matrix) ApplySOR(x, y []float64, omega float64, iters int) {
	for it := 0; it < iters; it++ {
		m.sorSweepForward(x, y, omega)
	}
}

// ApplySSOR runs iters symmetric block-SOR sweeps (forward then backward)
// over y.
func (m *Matrix) ApplySSOR(x, y []float64, omega float64, iters int) {
	for it := 0; it < iters; it++ {
		m.sorSweepForward(x, y, omega)
		m.sorSweepBackward(x, y, omega)
	}
}
