// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package distvec

import (
	"math"
	"sync"
	"testing"
)

func TestRowMapOwnership(t *testing.T) {
	comms := NewLoopbackComm(3)
	localCounts := []int{2, 3, 1}
	maps := make([]*RowMap, 3)
	var wg sync.WaitGroup
	for r := 0; r < 3; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			m, err := NewRowMap(comms[r], localCounts[r])
			if err != nil {
				t.Errorf("rank %d: NewRowMap: %v", r, err)
				return
			}
			maps[r] = m
		}(r)
	}
	wg.Wait()

	if maps[0].GlobalRows() != 6 {
		t.Fatalf("GlobalRows = %d, want 6", maps[0].GlobalRows())
	}
	lo, hi := maps[1].LocalRange()
	if lo != 2 || hi != 5 {
		t.Fatalf("rank 1 range = [%d,%d), want [2,5)", lo, hi)
	}
	owner, err := maps[0].OwnerRank(4)
	if err != nil || owner != 1 {
		t.Fatalf("OwnerRank(4) = %d, %v, want 1, nil", owner, err)
	}
	owner, err = maps[0].OwnerRank(5)
	if err != nil || owner != 2 {
		t.Fatalf("OwnerRank(5) = %d, %v, want 2, nil", owner, err)
	}
}

func TestBCListVarsByRow(t *testing.T) {
	l := NewBCList([]BC{
		{GlobalRow: 2, Var: 0, Value: 1},
		{GlobalRow: 0, Var: 1, Value: 2},
		{GlobalRow: 2, Var: 1, Value: 3},
		{GlobalRow: 2, Var: 0, Value: 1},
	})
	comms := NewLoopbackComm(1)
	rowmap, err := NewRowMap(comms[0], 3)
	if err != nil {
		t.Fatalf("NewRowMap: %v", err)
	}
	byRow := l.VarsByRow(rowmap)
	if len(byRow[2]) != 2 {
		t.Fatalf("row 2 vars = %v, want 2 unique entries", byRow[2])
	}
	if err := l.Validate(3, 2); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := l.Validate(2, 2); err == nil {
		t.Fatal("expected out-of-range row to fail Validate")
	}
}

// TestBCListVarsByRowFiltersByRank exercises the global-range filter
// directly: a two-rank RowMap should each see only the boundary conditions
// whose global row falls in their own owned range, translated to a local
// index.
func TestBCListVarsByRowFiltersByRank(t *testing.T) {
	l := NewBCList([]BC{
		{GlobalRow: 0, Var: 0, Value: 1},
		{GlobalRow: 3, Var: 1, Value: 2},
	})
	comms := NewLoopbackComm(2)
	rowmaps := make([]*RowMap, 2)
	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			m, err := NewRowMap(comms[r], 2)
			if err != nil {
				t.Errorf("rank %d: NewRowMap: %v", r, err)
				return
			}
			rowmaps[r] = m
		}(r)
	}
	wg.Wait()

	byRow0 := l.VarsByRow(rowmaps[0])
	if _, ok := byRow0[0]; !ok || len(byRow0) != 1 {
		t.Fatalf("rank 0 saw %v, want only local row 0", byRow0)
	}
	byRow1 := l.VarsByRow(rowmaps[1])
	if _, ok := byRow1[1]; !ok || len(byRow1) != 1 {
		t.Fatalf("rank 1 saw %v, want only local row 1 (global row 3 - lo 2)", byRow1)
	}
}

func TestHaloExchangeAcrossLoopbackRanks(t *testing.T) {
	// Two ranks, one block row each, bsize=1. Rank 0 owns global row 0,
	// rank 1 owns global row 1. Each rank's local B needs the other
	// rank's value.
	comms := NewLoopbackComm(2)
	rowmaps := make([]*RowMap, 2)
	halos := make([]*Halo, 2)
	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			rm, err := NewRowMap(comms[r], 1)
			if err != nil {
				t.Errorf("rank %d: NewRowMap: %v", r, err)
				return
			}
			rowmaps[r] = rm
			other := 1 - r
			h, err := NewHalo(comms[r], rm, []int{other}, 1)
			if err != nil {
				t.Errorf("rank %d: NewHalo: %v", r, err)
				return
			}
			halos[r] = h
		}(r)
	}
	wg.Wait()

	x := [][]float64{{10}, {20}}
	results := make([][]float64, 2)
	var wg2 sync.WaitGroup
	for r := 0; r < 2; r++ {
		wg2.Add(1)
		go func(r int) {
			defer wg2.Done()
			halos[r].Begin(x[r])
			ext, err := halos[r].End()
			if err != nil {
				t.Errorf("rank %d: End: %v", r, err)
				return
			}
			results[r] = ext
		}(r)
	}
	wg2.Wait()

	if math.Abs(results[0][0]-20) > 1e-12 {
		t.Fatalf("rank 0 halo = %v, want [20]", results[0])
	}
	if math.Abs(results[1][0]-10) > 1e-12 {
		t.Fatalf("rank 1 halo = %v, want [10]", results[1])
	}
}

func TestHaloDimAndPosition(t *testing.T) {
	comms := NewLoopbackComm(2)
	var h0 *Halo
	var wg sync.WaitGroup
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			rm, err := NewRowMap(comms[r], 1)
			if err != nil {
				t.Errorf("rank %d: %v", r, err)
				return
			}
			h, err := NewHalo(comms[r], rm, []int{1 - r}, 1)
			if err != nil {
				t.Errorf("rank %d: %v", r, err)
				return
			}
			if r == 0 {
				h0 = h
			}
		}(r)
	}
	wg.Wait()
	if h0.Dim() != 1 {
		t.Fatalf("Dim = %d, want 1", h0.Dim())
	}
	if h0.Position(1) != 0 {
		t.Fatalf("Position(1) = %d, want 0", h0.Position(1))
	}
	if h0.Position(0) != -1 {
		t.Fatalf("Position(0) = %d, want -1 (self-owned, not in halo)", h0.Position(0))
	}
}
