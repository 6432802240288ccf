// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcsr

import (
	"math"
	"testing"
)

// tridiag builds the classic 3x3 scalar tridiagonal test matrix
//   [ 4 -1  0]
//   [-1  4 -1]
//   [ 0 -1  4]
// whose rowp/cols/diag layout is reused by several tests below.
func tridiag(t *testing.T) *Matrix {
	t.Helper()
	rowp := []int{0, 2, 5, 7}
	cols := []int{0, 1, 0, 1, 2, 1, 2}
	m, err := New(1, 3, 3, rowp, cols)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	set := func(row, col int, v float64) {
		k := m.findCol(row, col)
		if k < 0 {
			t.Fatalf("no block at (%d,%d)", row, col)
		}
		m.Vals[k][0] = v
	}
	set(0, 0, 4)
	set(0, 1, -1)
	set(1, 0, -1)
	set(1, 1, 4)
	set(1, 2, -1)
	set(2, 1, -1)
	set(2, 2, 4)
	return m
}

func TestMult(t *testing.T) {
	m := tridiag(t)
	x := []float64{1, 1, 1}
	y := make([]float64, 3)
	m.Mult(x, y)
	want := []float64{3, 2, 3}
	for i := range want {
		if math.Abs(y[i]-want[i]) > 1e-12 {
			t.Fatalf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestMultAdd(t *testing.T) {
	m := tridiag(t)
	x := []float64{1, 1, 1}
	y := []float64{10, 20, 30}
	z := make([]float64, 3)
	m.MultAdd(x, y, z)
	want := []float64{13, 22, 33}
	for i := range want {
		if math.Abs(z[i]-want[i]) > 1e-12 {
			t.Fatalf("z[%d] = %v, want %v", i, z[i], want[i])
		}
	}
}

func TestFactorApplyFactorSolvesExactly(t *testing.T) {
	m := tridiag(t)
	if err := m.Factor(); err != nil {
		t.Fatalf("Factor: %v", err)
	}
	b := []float64{3, 2, 3}
	y := make([]float64, 3)
	m.ApplyFactor(b, y)
	want := []float64{1, 1, 1}
	for i := range want {
		if math.Abs(y[i]-want[i]) > 1e-10 {
			t.Fatalf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestFactorResidualAgainstUnfactoredCopy(t *testing.T) {
	orig := tridiag(t)
	fact, err := New(1, 3, 3, append([]int{}, orig.Rowp...), append([]int{}, orig.Cols...))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := fact.CopyValues(orig); err != nil {
		t.Fatalf("CopyValues: %v", err)
	}
	if err := fact.Factor(); err != nil {
		t.Fatalf("Factor: %v", err)
	}
	b := []float64{1, 2, 3}
	y := make([]float64, 3)
	fact.ApplyFactor(b, y)
	r := make([]float64, 3)
	orig.Mult(y, r)
	for i := range r {
		if math.Abs(r[i]-b[i]) > 1e-9 {
			t.Fatalf("residual[%d] = %v, want ~0 (r=%v b=%v)", i, r[i]-b[i], r, b)
		}
	}
}

func TestApplySORConvergesToExactSolution(t *testing.T) {
	orig := tridiag(t)
	jac, err := New(1, 3, 3, append([]int{}, orig.Rowp...), append([]int{}, orig.Cols...))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := jac.CopyValues(orig); err != nil {
		t.Fatalf("CopyValues: %v", err)
	}
	if err := jac.FactorDiag(); err != nil {
		t.Fatalf("FactorDiag: %v", err)
	}
	b := []float64{3, 2, 3}
	y := make([]float64, 3)
	jac.ApplySOR(b, y, 1.0, 50)
	want := []float64{1, 1, 1}
	for i := range want {
		if math.Abs(y[i]-want[i]) > 1e-9 {
			t.Fatalf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestApplySSORConvergesToExactSolution(t *testing.T) {
	orig := tridiag(t)
	jac, err := New(1, 3, 3, append([]int{}, orig.Rowp...), append([]int{}, orig.Cols...))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := jac.CopyValues(orig); err != nil {
		t.Fatalf("CopyValues: %v", err)
	}
	if err := jac.FactorDiag(); err != nil {
		t.Fatalf("FactorDiag: %v", err)
	}
	b := []float64{3, 2, 3}
	y := make([]float64, 3)
	jac.ApplySSOR(b, y, 1.0, 25)
	want := []float64{1, 1, 1}
	for i := range want {
		if math.Abs(y[i]-want[i]) > 1e-9 {
			t.Fatalf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestBlockMultMatchesScalarOnIdentityBlocks(t *testing.T) {
	rowp := []int{0, 2, 5, 7}
	cols := []int{0, 1, 0, 1, 2, 1, 2}
	m, err := New(2, 3, 3, rowp, cols)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	setScaledIdentity := func(row, col int, v float64) {
		k := m.findCol(row, col)
		if k < 0 {
			t.Fatalf("no block at (%d,%d)", row, col)
		}
		m.Vals[k][0] = v
		m.Vals[k][3] = v
	}
	setScaledIdentity(0, 0, 4)
	setScaledIdentity(0, 1, -1)
	setScaledIdentity(1, 0, -1)
	setScaledIdentity(1, 1, 4)
	setScaledIdentity(1, 2, -1)
	setScaledIdentity(2, 1, -1)
	setScaledIdentity(2, 2, 4)

	x := []float64{1, 1, 1, 1, 1, 1}
	y := make([]float64, 6)
	m.Mult(x, y)
	want := []float64{3, 3, 2, 2, 3, 3}
	for i := range want {
		if math.Abs(y[i]-want[i]) > 1e-12 {
			t.Fatalf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
}

func TestZeroRowKeepDiag(t *testing.T) {
	m := tridiag(t)
	if err := m.ZeroRow(1, []int{0}, true); err != nil {
		t.Fatalf("ZeroRow: %v", err)
	}
	x := []float64{1, 1, 1}
	y := make([]float64, 3)
	m.Mult(x, y)
	if math.Abs(y[1]-1) > 1e-12 {
		t.Fatalf("y[1] = %v, want 1 (identity row)", y[1])
	}
}

func TestAddDiagAndAxpy(t *testing.T) {
	m := tridiag(t)
	if err := m.AddDiag(1); err != nil {
		t.Fatalf("AddDiag: %v", err)
	}
	x := []float64{1, 1, 1}
	y := make([]float64, 3)
	m.Mult(x, y)
	want := []float64{4, 3, 4}
	for i := range want {
		if math.Abs(y[i]-want[i]) > 1e-12 {
			t.Fatalf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}
	other := tridiag(t)
	if err := m.Axpy(-1, other); err != nil {
		t.Fatalf("Axpy: %v", err)
	}
	m.Mult(x, y)
	want2 := []float64{1, 1, 1}
	for i := range want2 {
		if math.Abs(y[i]-want2[i]) > 1e-12 {
			t.Fatalf("after Axpy, y[%d] = %v, want %v", i, y[i], want2[i])
		}
	}
}

// TestCopyValuesSubsetIntoWidenedPattern checks that CopyValuesSubset can
// copy a narrower matrix's values into a wider one built with extra fill-in
// positions FillPattern would add, leaving those extra positions at
// whatever the destination already held, and that it rejects a position
// the source has but the destination lacks.
func TestCopyValuesSubsetIntoWidenedPattern(t *testing.T) {
	src, err := New(1, 3, 3, []int{0, 1, 2, 3}, []int{0, 1, 2})
	if err != nil {
		t.Fatalf("New src: %v", err)
	}
	src.Vals[0][0] = 1
	src.Vals[1][0] = 2
	src.Vals[2][0] = 3

	wide, err := New(1, 3, 3, []int{0, 2, 4, 6}, []int{0, 1, 0, 1, 0, 2})
	if err != nil {
		t.Fatalf("New wide: %v", err)
	}
	wide.Vals[1][0] = -99 // (0,1): present in wide, absent from src — must survive untouched

	if err := wide.CopyValuesSubset(src); err != nil {
		t.Fatalf("CopyValuesSubset: %v", err)
	}
	if wide.Vals[0][0] != 1 || wide.Vals[3][0] != 2 || wide.Vals[5][0] != 3 {
		t.Fatalf("diagonal values not copied: %v", wide.Vals)
	}
	if wide.Vals[1][0] != -99 {
		t.Fatalf("position absent from src was overwritten: got %v, want -99", wide.Vals[1][0])
	}

	dst, err := New(1, 3, 3, []int{0, 2, 3, 4}, []int{0, 1, 1, 2}) // row 0 lacks col 2
	if err != nil {
		t.Fatalf("New dst: %v", err)
	}
	needsMissing, err := New(1, 3, 3, []int{0, 2, 3, 4}, []int{0, 2, 1, 2}) // row 0 has col 2
	if err != nil {
		t.Fatalf("New needsMissing: %v", err)
	}
	if err := dst.CopyValuesSubset(needsMissing); err == nil {
		t.Fatal("expected CopyValuesSubset to reject a source position missing from the destination pattern")
	}
}

func TestApplyPartialLowerUpperAgainstShortSlice(t *testing.T) {
	// Factor the tridiagonal system, then verify the restricted solve over
	// rows [split, n) on a short, zero-based slice agrees with the tail of
	// the full ApplyLower/ApplyUpper solve. ApplyPartialLower/Upper skip
	// column contributions below split rather than including them, which
	// only equals the full solve's tail when x below split is zero — the
	// condition under which GlobalSchurMat.mult and
	// ApproximateSchurPreconditioner.ApplyFactor actually call them.
	orig := tridiag(t)
	fact, err := New(1, 3, 3, append([]int{}, orig.Rowp...), append([]int{}, orig.Cols...))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := fact.CopyValues(orig); err != nil {
		t.Fatalf("CopyValues: %v", err)
	}
	if err := fact.Factor(); err != nil {
		t.Fatalf("Factor: %v", err)
	}
	split := 1
	full := []float64{0, 2, 3}
	lower := make([]float64, 3)
	fact.ApplyLower(full, lower)
	upper := make([]float64, 3)
	fact.ApplyUpper(lower, upper)

	short := append([]float64{}, full[split:]...)
	fact.ApplyPartialLower(short, split)
	fact.ApplyPartialUpper(short, split)

	for i := split; i < 3; i++ {
		if math.Abs(short[i-split]-upper[i]) > 1e-9 {
			t.Fatalf("partial[%d] = %v, want %v", i, short[i-split], upper[i])
		}
	}
}

func TestNewRejectsMismatchedPattern(t *testing.T) {
	if _, err := New(2, 2, 2, []int{0, 1}, []int{0, 0}); err == nil {
		t.Fatal("expected error for malformed rowp")
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(1, 3, 3)
	b.Add(0, 0)
	b.Add(0, 1)
	b.Add(1, 0)
	b.Add(1, 1)
	b.Add(1, 2)
	b.Add(2, 1)
	b.Add(2, 2)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.RowDim() != 3 || m.ColDim() != 3 {
		t.Fatalf("unexpected dims %d x %d", m.RowDim(), m.ColDim())
	}
	if m.Diag[1] < 0 {
		t.Fatalf("expected row 1 to have a diagonal block")
	}
}

func TestFillPatternAddsNoSpuriousFillForTridiagonal(t *testing.T) {
	rowp := []int{0, 2, 5, 7}
	cols := []int{0, 1, 0, 1, 2, 1, 2}
	newRowp, newCols := FillPattern(3, rowp, cols, 0)
	if len(newCols) != len(cols) {
		t.Fatalf("tridiagonal ILU(0) should need no fill, got %d entries, want %d", len(newCols), len(cols))
	}
	for i := range newRowp {
		if newRowp[i] != rowp[i] {
			t.Fatalf("rowp[%d] = %d, want %d", i, newRowp[i], rowp[i])
		}
	}
}
