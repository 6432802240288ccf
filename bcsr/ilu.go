// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcsr

import (
	"fmt"
	"sort"

	"github.com/cpmech/gosl/la"

	"github.com/camader/tacs/report"
)

// FillPattern builds the sparsity pattern a level-k incomplete block
// factorization of the block rows (rowp, cols) would need: it starts from
// the given pattern at level 0 and adds the block positions produced by
// block-graph level-of-fill propagation, stopping at levFill. Each entry
// (i,k) strictly below the diagonal of row i, taken in increasing k and
// including entries created as fill earlier in the same row, pulls the
// upper entries (k,c), c > k, of the earlier row k into row i at level
// lev(i,k)+lev(k,c)+1. This is the scalar level-of-fill recurrence applied
// at block granularity, used to size bcsr.New's pattern before numeric
// Factor runs.
func FillPattern(nrows int, rowp, cols []int, levFill int) (newRowp, newCols []int) {
	levels := make([]map[int]int, nrows)
	for i := 0; i < nrows; i++ {
		levels[i] = make(map[int]int, rowp[i+1]-rowp[i])
		for k := rowp[i]; k < rowp[i+1]; k++ {
			levels[i][cols[k]] = 0
		}
	}
	for i := 0; i < nrows; i++ {
		var below []int
		for c, lvl := range levels[i] {
			if c < i && lvl <= levFill {
				below = append(below, c)
			}
		}
		sort.Ints(below)
		for idx := 0; idx < len(below); idx++ {
			k := below[idx]
			lik := levels[i][k]
			for c, lkc := range levels[k] {
				if c <= k {
					continue
				}
				lvl := lik + lkc + 1
				if lvl > levFill {
					continue
				}
				cur, ok := levels[i][c]
				if !ok && c < i {
					// New lower fill is eliminated later in this same row.
					j := sort.SearchInts(below, c)
					below = append(below, 0)
					copy(below[j+1:], below[j:])
					below[j] = c
				}
				if !ok || lvl < cur {
					levels[i][c] = lvl
				}
			}
		}
	}
	newRowp = make([]int, nrows+1)
	for i := 0; i < nrows; i++ {
		newRowp[i+1] = newRowp[i] + len(levels[i])
	}
	newCols = make([]int, newRowp[nrows])
	for i := 0; i < nrows; i++ {
		var row []int
		for c := range levels[i] {
			row = append(row, c)
		}
		sort.Ints(row)
		copy(newCols[newRowp[i]:newRowp[i+1]], row)
	}
	return newRowp, newCols
}

// Factor overwrites m in place with its block ILU factorization: L stored
// with an implicit unit diagonal (never written), U stored with its raw
// off-diagonal blocks and its diagonal blocks replaced by their inverse, so
// that ApplyFactor never performs a dense solve, only multiplies — the same
// convention TACS's BCSRMatFactor/BCSRMatApplyLower2/BCSRMatApplyUpper2
// kernels rely on. m's sparsity fixes which blocks the factorization may
// fill (see FillPattern): an update that lands on a position outside it is
// dropped, which is what makes the factorization incomplete when levFill is
// smaller than the fill full elimination would need.
func (m *Matrix) Factor() error {
	if m.Nrows != m.Ncols {
		return fmt.Errorf("bcsr: Factor requires a square matrix: %w", report.ErrConfiguration)
	}
	b := m.Bsize
	lik := la.MatAlloc(b, b)
	upd := la.MatAlloc(b, b)
	for i := 0; i < m.Nrows; i++ {
		if m.Diag[i] < 0 {
			return fmt.Errorf("bcsr: Factor: row %d has no diagonal block: %w", i, report.ErrConfiguration)
		}
		for kp := m.Rowp[i]; kp < m.Diag[i]; kp++ {
			k := m.Cols[kp]
			// L_ik = A_ik * U_kk^{-1}; U_kk^{-1} is already stored at
			// m.block(m.Diag[k]) because k < i was factored earlier.
			la.MatMul(lik, 1, m.block(kp), m.block(m.Diag[k]))
			copyBlock(m.block(kp), lik)
			for jp := m.Diag[k] + 1; jp < m.Rowp[k+1]; jp++ {
				j := m.Cols[jp]
				ij := m.findCol(i, j)
				if ij < 0 {
					continue
				}
				la.MatMul(upd, -1, lik, m.block(jp))
				addBlock(m.block(ij), upd)
			}
		}
		dinv := la.MatAlloc(b, b)
		if _, err := la.MatInv(dinv, m.block(m.Diag[i]), 1e-14); err != nil {
			return fmt.Errorf("bcsr: Factor: singular diagonal block at row %d: %v: %w", i, err, report.ErrConfiguration)
		}
		copyBlock(m.block(m.Diag[i]), dinv)
	}
	m.factored = true
	return nil
}

// FactorDiag inverts only the diagonal blocks, leaving off-diagonal blocks
// untouched. Used by RelaxationPreconditioner, which needs block-Jacobi/SOR
// sweeps against the unfactored matrix (mirrors PSOR's use of
// Aloc->factorDiag rather than a full ILU factor).
func (m *Matrix) FactorDiag() error {
	if m.Nrows != m.Ncols {
		return fmt.Errorf("bcsr: FactorDiag requires a square matrix: %w", report.ErrConfiguration)
	}
	b := m.Bsize
	for i := 0; i < m.Nrows; i++ {
		if m.Diag[i] < 0 {
			return fmt.Errorf("bcsr: FactorDiag: row %d has no diagonal block: %w", i, report.ErrConfiguration)
		}
		dinv := la.MatAlloc(b, b)
		if _, err := la.MatInv(dinv, m.block(m.Diag[i]), 1e-14); err != nil {
			return fmt.Errorf("bcsr: FactorDiag: singular diagonal block at row %d: %v: %w", i, err, report.ErrConfiguration)
		}
		copyBlock(m.block(m.Diag[i]), dinv)
	}
	return nil
}

// ApplyLower performs the forward solve y := L^{-1}x against a factored
// matrix's implicit-unit-diagonal lower triangle.
func (m *Matrix) ApplyLower(x, y []float64) {
	b := m.Bsize
	for i := 0; i < m.Nrows; i++ {
		yi := y[i*b : (i+1)*b]
		copy(yi, x[i*b:(i+1)*b])
		for k := m.Rowp[i]; k < m.Diag[i]; k++ {
			col := m.Cols[k]
			la.MatVecMulAdd(yi, -1, m.block(k), y[col*b:(col+1)*b])
		}
	}
}

// ApplyUpper performs the backward solve y := U^{-1}x against a factored
// matrix whose diagonal blocks already hold U_ii^{-1}.
func (m *Matrix) ApplyUpper(x, y []float64) {
	b := m.Bsize
	tmp := make([]float64, b)
	for i := m.Nrows - 1; i >= 0; i-- {
		copy(tmp, x[i*b:(i+1)*b])
		for k := m.Diag[i] + 1; k < m.Rowp[i+1]; k++ {
			col := m.Cols[k]
			la.MatVecMulAdd(tmp, -1, m.block(k), y[col*b:(col+1)*b])
		}
		la.MatVecMul(y[i*b:(i+1)*b], 1, m.block(m.Diag[i]), tmp)
	}
}

// ApplyFactor solves the full factored system y := (LU)^{-1}x via forward
// then backward substitution.
func (m *Matrix) ApplyFactor(x, y []float64) {
	scratch := make([]float64, len(y))
	m.ApplyLower(x, scratch)
	m.ApplyUpper(scratch, y)
}

// ApplyPartialLower performs the forward solve in place over rows
// [split, Nrows), treating block columns below split as contributing
// nothing. x is a short, zero-based view of only that row range — index 0
// holds row split, matching how GlobalSchurMat.mult (§4.4) and
// ApproximateSchurPreconditioner.ApplyFactor (§4.5) both already have a
// short interface-only slice in hand and pass it straight through, rather
// than a full-length vector offset by split. Mirrors
// BCSRMatApplyPartialLower2's column skip on cols[j] < var_offset, with
// the same relative-addressing convention its callers rely on.
func (m *Matrix) ApplyPartialLower(x []float64, split int) {
	b := m.Bsize
	for i := split; i < m.Nrows; i++ {
		xi := x[(i-split)*b : (i-split+1)*b]
		for k := m.Rowp[i]; k < m.Diag[i]; k++ {
			col := m.Cols[k]
			if col < split {
				continue
			}
			la.MatVecMulAdd(xi, -1, m.block(k), x[(col-split)*b:(col-split+1)*b])
		}
	}
}

// ApplyPartialUpper performs the backward solve in place over rows
// [split, Nrows), applying the stored inverse diagonal directly and
// skipping block columns below split. x uses the same short, zero-based
// view as ApplyPartialLower. Mirrors BCSRMatApplyPartialUpper2.
func (m *Matrix) ApplyPartialUpper(x []float64, split int) {
	b := m.Bsize
	tmp := make([]float64, b)
	for i := m.Nrows - 1; i >= split; i-- {
		copy(tmp, x[(i-split)*b:(i-split+1)*b])
		for k := m.Diag[i] + 1; k < m.Rowp[i+1]; k++ {
			col := m.Cols[k]
			if col < split {
				continue
			}
			la.MatVecMulAdd(tmp, -1, m.block(k), x[(col-split)*b:(col-split+1)*b])
		}
		la.MatVecMul(x[(i-split)*b:(i-split+1)*b], 1, m.block(m.Diag[i]), tmp)
	}
}

// ApplyFactorSchur performs the restricted backward solve in place over
// rows [0, split), treating x[split:] as already-resolved interface values
// and including every remaining column, interior or interface — mirroring
// BCSRMatApplyFactorSchur2. This is step 4 of the approximate Schur
// preconditioner (§4.5): it back-substitutes the interior block rows using
// both the interior values resolved earlier in this same pass and the
// interface values the inner solve has just produced.
func (m *Matrix) ApplyFactorSchur(x []float64, split int) {
	b := m.Bsize
	tmp := make([]float64, b)
	for i := split - 1; i >= 0; i-- {
		copy(tmp, x[i*b:(i+1)*b])
		for k := m.Diag[i] + 1; k < m.Rowp[i+1]; k++ {
			col := m.Cols[k]
			la.MatVecMulAdd(tmp, -1, m.block(k), x[col*b:(col+1)*b])
		}
		la.MatVecMul(x[i*b:(i+1)*b], 1, m.block(m.Diag[i]), tmp)
	}
}

func copyBlock(dst, src [][]float64) {
	for i := range dst {
		copy(dst[i], src[i])
	}
}

func addBlock(dst, src [][]float64) {
	for i := range dst {
		for j := range dst[i] {
			dst[i][j] += src[i][j]
		}
	}
}
