// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package distvec

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/cpmech/gosl/utl"

	"github.com/camader/tacs/report"
)

// RowMap records, for a partitioned set of global block rows, which rank
// owns each contiguous range — TACSVarMap's role in PMat.c, generalized
// from "this process's contiguous range" to the full table every rank
// needs to resolve a remote row's owner during halo setup.
type RowMap struct {
	comm       Comm
	ownerRange []int // len Size()+1; rank r owns global rows [ownerRange[r], ownerRange[r+1])
	lastHit    atomic.Int32 // last rank OwnerRank resolved to; checked first on the next call
}

// NewRowMap builds the global ownership table from each rank's own block
// row count, using one AllReduceSum over a one-hot vector per rank — the
// only reduction primitive grounded in the retrieval pack
// (mpi.AllReduceSum, used by gofem/fem/s_implicit.go) — to obtain every
// rank's count without a dedicated all-gather call.
func NewRowMap(comm Comm, localNrows int) (*RowMap, error) {
	if localNrows < 0 {
		return nil, fmt.Errorf("distvec: NewRowMap negative local row count %d: %w", localNrows, report.ErrConfiguration)
	}
	size := comm.Size()
	mine := make([]float64, size)
	mine[comm.Rank()] = float64(localNrows)
	counts := make([]float64, size)
	comm.AllReduceSum(counts, mine)
	ownerRange := make([]int, size+1)
	for r := 0; r < size; r++ {
		ownerRange[r+1] = ownerRange[r] + int(counts[r])
	}
	return &RowMap{comm: comm, ownerRange: ownerRange}, nil
}

// Rank returns this map's own rank.
func (m *RowMap) Rank() int { return m.comm.Rank() }

// Size returns the number of ranks participating in this map.
func (m *RowMap) Size() int { return m.comm.Size() }

// LocalRange returns [lo, hi) of global row indices this rank owns.
func (m *RowMap) LocalRange() (lo, hi int) {
	r := m.comm.Rank()
	return m.ownerRange[r], m.ownerRange[r+1]
}

// GlobalRows returns the total number of block rows across every rank.
func (m *RowMap) GlobalRows() int { return m.ownerRange[len(m.ownerRange)-1] }

// OwnerRank resolves which rank owns global row r. Halo setup and BC
// translation both resolve runs of nearby rows one after another, so the
// rank that answered the previous call is checked first — the common case
// of repeated lookups into the same range is then O(1) — before falling
// back to a binary search over the ownership boundaries, the O(log P)
// lookup utl.SearchClosest-style helpers in gofem's dependency graph
// provide. sort.Search is used directly here since it reaches the
// identical result without needing a value already present in the slice
// to land on.
func (m *RowMap) OwnerRank(globalRow int) (int, error) {
	if globalRow < 0 || globalRow >= m.GlobalRows() {
		return -1, fmt.Errorf("distvec: OwnerRank: row %d out of range [0,%d): %w", globalRow, m.GlobalRows(), report.ErrConfiguration)
	}
	if last := int(m.lastHit.Load()); globalRow >= m.ownerRange[last] && globalRow < m.ownerRange[last+1] {
		return last, nil
	}
	r := sort.Search(len(m.ownerRange)-1, func(i int) bool { return m.ownerRange[i+1] > globalRow })
	m.lastHit.Store(int32(r))
	return r, nil
}

// LocalIndex converts a global row owned by this rank into a local row
// index. The caller is expected to have already checked ownership.
func (m *RowMap) LocalIndex(globalRow int) int {
	lo, _ := m.LocalRange()
	return globalRow - lo
}

// Dedup sorts and removes duplicate global row indices via gosl/utl's
// IntUnique, the same helper inp/msh.go uses to collapse duplicate vertex
// ids gathered from element connectivity into a unique face-vertex list.
func Dedup(rows []int) []int {
	out := utl.IntUnique(rows)
	sort.Ints(out)
	return out
}
