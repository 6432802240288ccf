// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcsr

import "github.com/cpmech/gosl/la"

// Mult computes y := A*x. x must have length Bsize*Ncols, y length Bsize*Nrows.
func (m *Matrix) Mult(x, y []float64) {
	b := m.Bsize
	for i := 0; i < m.Nrows; i++ {
		yi := y[i*b : (i+1)*b]
		for j := range yi {
			yi[j] = 0
		}
		for k := m.Rowp[i]; k < m.Rowp[i+1]; k++ {
			col := m.Cols[k]
			xk := x[col*b : (col+1)*b]
			la.MatVecMulAdd(yi, 1, m.block(k), xk)
		}
	}
}

// MultAdd computes z := A*x + y. z may alias y.
func (m *Matrix) MultAdd(x, y, z []float64) {
	b := m.Bsize
	for i := 0; i < m.Nrows; i++ {
		zi := z[i*b : (i+1)*b]
		yi := y[i*b : (i+1)*b]
		copy(zi, yi)
		for k := m.Rowp[i]; k < m.Rowp[i+1]; k++ {
			col := m.Cols[k]
			xk := x[col*b : (col+1)*b]
			la.MatVecMulAdd(zi, 1, m.block(k), xk)
		}
	}
}
