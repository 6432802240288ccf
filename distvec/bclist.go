// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package distvec

import (
	"fmt"
	"sort"

	"github.com/camader/tacs/report"
)

// BC is a single Dirichlet boundary condition record: constrain within-block
// variable `Var` of global block row `GlobalRow` to `Value`. Mirrors the
// (global_row, local_var_mask, prescribed_values) tuple the boundary
// condition list carries; PMat::applyBCs only ever consumes the row/var
// pair, but Value travels with the rest of the record so an assembly layer
// built on top of this core can still read off what the row was
// constrained to.
type BC struct {
	GlobalRow int
	Var       int
	Value     float64
}

// BCList is a sorted-by-row collection of boundary conditions, grounded on
// the `bcs` array PMat::applyBCs iterates. Rows are global; each rank's
// DistributedMatrix.ApplyBCs call is expected to hold the same BCList and
// filter it down to its own range via VarsByRow.
type BCList struct {
	entries []BC
}

// NewBCList builds a BCList from scattered BC records, sorting by global
// row so DistributedMatrix.ApplyBCs can walk it once per row left to right.
func NewBCList(bcs []BC) *BCList {
	cp := append([]BC{}, bcs...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].GlobalRow < cp[j].GlobalRow })
	return &BCList{entries: cp}
}

// Len returns the number of boundary conditions.
func (l *BCList) Len() int { return len(l.entries) }

// VarsByRow restricts this list to the boundary conditions whose global row
// falls in rowMap's local range, translates each to a local row index, and
// groups the result by local row, returning a map from local row to the
// sorted, deduplicated set of within-block variables constrained there —
// the per-rank filter and translation §4.1's ApplyBCs is specified to
// perform ("for each BC whose global row lies in this rank's range").
func (l *BCList) VarsByRow(rowMap *RowMap) map[int][]int {
	lo, hi := rowMap.LocalRange()
	out := make(map[int][]int)
	for _, bc := range l.entries {
		if bc.GlobalRow < lo || bc.GlobalRow >= hi {
			continue
		}
		local := rowMap.LocalIndex(bc.GlobalRow)
		out[local] = append(out[local], bc.Var)
	}
	for row, vars := range out {
		out[row] = Dedup(vars)
	}
	return out
}

// Validate checks that every global row index is within [0, nrows) and
// every variable index is within [0, bsize), returning
// report.ErrConfiguration wrapped with the offending entry on the first
// violation.
func (l *BCList) Validate(nrows, bsize int) error {
	for _, bc := range l.entries {
		if bc.GlobalRow < 0 || bc.GlobalRow >= nrows {
			return fmt.Errorf("distvec: BC global row %d out of range [0,%d): %w", bc.GlobalRow, nrows, report.ErrConfiguration)
		}
		if bc.Var < 0 || bc.Var >= bsize {
			return fmt.Errorf("distvec: BC var %d out of range [0,%d): %w", bc.Var, bsize, report.ErrConfiguration)
		}
	}
	return nil
}
