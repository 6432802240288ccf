// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcsr

import "sort"

// Builder accumulates (row, col) block positions before the CSR arrays are
// fixed, then produces a Matrix with every accumulated position present as
// a zeroed block. Used by cmd/dlasdemo and the package tests to assemble a
// local matrix without precomputing rowp/cols by hand.
type Builder struct {
	bsize        int
	nrows, ncols int
	rows         []map[int]bool
}

// NewBuilder starts an empty bsize-block matrix of dimensions nrows×ncols.
func NewBuilder(bsize, nrows, ncols int) *Builder {
	rows := make([]map[int]bool, nrows)
	for i := range rows {
		rows[i] = make(map[int]bool)
	}
	return &Builder{bsize: bsize, nrows: nrows, ncols: ncols, rows: rows}
}

// Add declares that block (row, col) is nonzero.
func (b *Builder) Add(row, col int) {
	b.rows[row][col] = true
}

// Build materializes the accumulated pattern into a Matrix.
func (b *Builder) Build() (*Matrix, error) {
	rowp := make([]int, b.nrows+1)
	for i := 0; i < b.nrows; i++ {
		rowp[i+1] = rowp[i] + len(b.rows[i])
	}
	cols := make([]int, rowp[b.nrows])
	for i := 0; i < b.nrows; i++ {
		var row []int
		for c := range b.rows[i] {
			row = append(row, c)
		}
		sort.Ints(row)
		copy(cols[rowp[i]:rowp[i+1]], row)
	}
	return New(b.bsize, b.nrows, b.ncols, rowp, cols)
}
