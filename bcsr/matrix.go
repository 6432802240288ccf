// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bcsr implements the LocalBlockMatrix contract: a block compressed
// sparse row matrix whose "scalars" are fixed b×b dense blocks. It stands in
// for the block-CSR kernel library the design treats as an external
// collaborator (mat-vec, ILU factorization, partial triangular solves,
// SOR sweeps), grounded on TACS's BCSRMat kernels (see
// BCSRMatMult2.c in the retrieval pack's original_source) and generalized
// from the block size 2 kernels there to an arbitrary fixed block size.
//
// Dense b×b block arithmetic is delegated to github.com/cpmech/gosl/la, the
// same package gofem's elements use for their local dense algebra.
package bcsr

import (
	"fmt"

	"github.com/cpmech/gosl/la"

	"github.com/camader/tacs/report"
)

// Matrix is a block-CSR matrix with block size Bsize. Row i owns the blocks
// at Vals[Rowp[i]:Rowp[i+1]], whose block-column indices are Cols[Rowp[i]:Rowp[i+1]]
// in strictly increasing order. For a square matrix, Diag[i] is the index
// into Cols/Vals of the block on the main diagonal of row i, or -1 if row i
// has no diagonal entry (never true once AddDiag or Factor has run on a
// structurally-complete matrix).
type Matrix struct {
	Bsize        int
	Nrows, Ncols int
	Rowp         []int
	Cols         []int
	Vals         [][]float64 // len(Vals) == Rowp[Nrows]; each block is Bsize*Bsize, row-major via la.MatAlloc
	Diag         []int       // len Nrows; -1 where absent

	factored bool
}

// New builds a Matrix over a fixed block sparsity pattern (rowp, cols),
// allocating zeroed Bsize×Bsize blocks for every declared nonzero. rowp and
// cols are consumed, not copied, and cols within each row must already be
// sorted ascending. Returns a *report.ErrConfiguration-wrapped error on any
// structural problem, per §7: such mismatches are detected at construction.
func New(bsize, nrows, ncols int, rowp, cols []int) (*Matrix, error) {
	if bsize <= 0 {
		return nil, fmt.Errorf("bcsr: block size must be positive, got %d: %w", bsize, report.ErrConfiguration)
	}
	if nrows < 0 || ncols < 0 {
		return nil, fmt.Errorf("bcsr: negative dimension (nrows=%d, ncols=%d): %w", nrows, ncols, report.ErrConfiguration)
	}
	if len(rowp) != nrows+1 {
		return nil, fmt.Errorf("bcsr: rowp length %d, want %d: %w", len(rowp), nrows+1, report.ErrConfiguration)
	}
	nnz := rowp[nrows]
	if len(cols) != nnz {
		return nil, fmt.Errorf("bcsr: cols length %d, want %d (rowp[nrows]): %w", len(cols), nnz, report.ErrConfiguration)
	}
	for i := 0; i < nrows; i++ {
		if rowp[i] > rowp[i+1] {
			return nil, fmt.Errorf("bcsr: rowp not monotonic at row %d: %w", i, report.ErrConfiguration)
		}
		prev := -1
		for k := rowp[i]; k < rowp[i+1]; k++ {
			c := cols[k]
			if c < 0 || c >= ncols {
				return nil, fmt.Errorf("bcsr: row %d column %d out of range [0,%d): %w", i, c, ncols, report.ErrConfiguration)
			}
			if c <= prev {
				return nil, fmt.Errorf("bcsr: row %d columns not strictly increasing: %w", i, report.ErrConfiguration)
			}
			prev = c
		}
	}
	m := &Matrix{
		Bsize: bsize,
		Nrows: nrows,
		Ncols: ncols,
		Rowp:  rowp,
		Cols:  cols,
		Vals:  make([][]float64, nnz),
		Diag:  make([]int, nrows),
	}
	for k := range m.Vals {
		m.Vals[k] = make([]float64, bsize*bsize)
	}
	for i := 0; i < nrows; i++ {
		m.Diag[i] = -1
		for k := rowp[i]; k < rowp[i+1]; k++ {
			if cols[k] == i {
				m.Diag[i] = k
				break
			}
		}
	}
	return m, nil
}

// RowDim returns the number of block rows.
func (m *Matrix) RowDim() int { return m.Nrows }

// ColDim returns the number of block columns.
func (m *Matrix) ColDim() int { return m.Ncols }

// BlockSize returns the fixed dense block size b.
func (m *Matrix) BlockSize() int { return m.Bsize }

// Arrays exposes the raw CSR arrays for introspection (used by the
// diagnostic non-zero pattern dump and by tests).
func (m *Matrix) Arrays() (rowp, cols []int, vals [][]float64) {
	return m.Rowp, m.Cols, m.Vals
}

// block returns the flat Bsize*Bsize slice at nonzero index k, reshaped as
// a [][]float64 view for la's dense-block routines. The view shares storage
// with m.Vals[k]; mutations through it are visible in m.Vals[k].
func (m *Matrix) block(k int) [][]float64 {
	return reshape(m.Vals[k], m.Bsize)
}

func reshape(flat []float64, b int) [][]float64 {
	v := make([][]float64, b)
	for i := 0; i < b; i++ {
		v[i] = flat[i*b : (i+1)*b]
	}
	return v
}

// findCol returns the nonzero index of column col within row i, or -1.
func (m *Matrix) findCol(i, col int) int {
	lo, hi := m.Rowp[i], m.Rowp[i+1]
	for lo < hi {
		mid := (lo + hi) / 2
		c := m.Cols[mid]
		switch {
		case c == col:
			return mid
		case c < col:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return -1
}

// sameSparsity reports whether m and other share block size, dimensions
// and column pattern (values may differ). It is the structural-identity
// check copyFrom/axpy/axpby rely on.
func (m *Matrix) sameSparsity(other *Matrix) bool {
	if m.Bsize != other.Bsize || m.Nrows != other.Nrows || m.Ncols != other.Ncols {
		return false
	}
	if len(m.Cols) != len(other.Cols) {
		return false
	}
	for i := range m.Rowp {
		if m.Rowp[i] != other.Rowp[i] {
			return false
		}
	}
	for i := range m.Cols {
		if m.Cols[i] != other.Cols[i] {
			return false
		}
	}
	return true
}

// Zero sets every stored block to zero.
func (m *Matrix) Zero() {
	for _, v := range m.Vals {
		for i := range v {
			v[i] = 0
		}
	}
	m.factored = false
}

// CopyValues copies the numeric values of other into m. Both matrices must
// share the same sparsity pattern (§4.1's structural-identity requirement).
func (m *Matrix) CopyValues(other *Matrix) error {
	if !m.sameSparsity(other) {
		return fmt.Errorf("bcsr: CopyValues sparsity mismatch: %w", report.ErrTypeMismatch)
	}
	for k := range m.Vals {
		copy(m.Vals[k], other.Vals[k])
	}
	m.factored = false
	return nil
}

// CopyValuesSubset copies other's values into m at the matching (row, col)
// positions, for use when m's sparsity is a superset of other's — as when
// an ILU(k) factor's pattern has been widened by FillPattern's fill-in
// beyond the matrix it was factored from. Positions present in m but not in
// other are left untouched (the caller is expected to have zeroed m first
// if that matters); a position present in other but absent from m is a
// structural error, since it means the fill pattern failed to account for
// one of other's own nonzeros.
func (m *Matrix) CopyValuesSubset(other *Matrix) error {
	if m.Bsize != other.Bsize || m.Nrows != other.Nrows || m.Ncols != other.Ncols {
		return fmt.Errorf("bcsr: CopyValuesSubset dimension mismatch: %w", report.ErrTypeMismatch)
	}
	for i := 0; i < other.Nrows; i++ {
		for k := other.Rowp[i]; k < other.Rowp[i+1]; k++ {
			col := other.Cols[k]
			dst := m.findCol(i, col)
			if dst < 0 {
				return fmt.Errorf("bcsr: CopyValuesSubset: row %d col %d present in source but not in destination pattern: %w", i, col, report.ErrTypeMismatch)
			}
			copy(m.Vals[dst], other.Vals[k])
		}
	}
	m.factored = false
	return nil
}

// Scale multiplies every stored value by alpha.
func (m *Matrix) Scale(alpha float64) {
	for _, v := range m.Vals {
		for i := range v {
			v[i] *= alpha
		}
	}
}

// Axpy computes m := m + alpha*other, in place.
func (m *Matrix) Axpy(alpha float64, other *Matrix) error {
	if !m.sameSparsity(other) {
		return fmt.Errorf("bcsr: Axpy sparsity mismatch: %w", report.ErrTypeMismatch)
	}
	for k := range m.Vals {
		ov := other.Vals[k]
		v := m.Vals[k]
		for i := range v {
			v[i] += alpha * ov[i]
		}
	}
	return nil
}

// Axpby computes m := alpha*other + beta*m, in place.
func (m *Matrix) Axpby(alpha, beta float64, other *Matrix) error {
	if !m.sameSparsity(other) {
		return fmt.Errorf("bcsr: Axpby sparsity mismatch: %w", report.ErrTypeMismatch)
	}
	for k := range m.Vals {
		ov := other.Vals[k]
		v := m.Vals[k]
		for i := range v {
			v[i] = alpha*ov[i] + beta*v[i]
		}
	}
	return nil
}

// AddDiag adds alpha*I to every diagonal block. Only meaningful for square
// matrices; rows with no diagonal entry are skipped (B has none, per §3).
func (m *Matrix) AddDiag(alpha float64) error {
	if m.Nrows != m.Ncols {
		return fmt.Errorf("bcsr: AddDiag requires a square matrix (%dx%d): %w", m.Nrows, m.Ncols, report.ErrConfiguration)
	}
	for i := 0; i < m.Nrows; i++ {
		d := m.Diag[i]
		if d < 0 {
			continue
		}
		blk := m.block(d)
		for j := 0; j < m.Bsize; j++ {
			blk[j][j] += alpha
		}
	}
	return nil
}

// ZeroRow zeros the within-block rows listed in vars across every nonzero
// block in block row `row`. If keepDiag is true and the block at (row,row)
// exists, the corresponding diagonal entries are set back to 1 (the
// identity substitution §4.1's ApplyBCs performs on A; B is zeroed with
// keepDiag=false since it has no diagonal to preserve).
func (m *Matrix) ZeroRow(row int, vars []int, keepDiag bool) error {
	if row < 0 || row >= m.Nrows {
		return fmt.Errorf("bcsr: ZeroRow row %d out of range [0,%d): %w", row, m.Nrows, report.ErrConfiguration)
	}
	for k := m.Rowp[row]; k < m.Rowp[row+1]; k++ {
		blk := m.block(k)
		isDiagBlock := m.Cols[k] == row
		for _, v := range vars {
			if v < 0 || v >= m.Bsize {
				continue
			}
			for j := 0; j < m.Bsize; j++ {
				blk[v][j] = 0
			}
			if keepDiag && isDiagBlock {
				blk[v][v] = 1
			}
		}
	}
	m.factored = false
	return nil
}
