// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"github.com/camader/tacs/bcsr"
	"github.com/camader/tacs/distvec"
	"github.com/camader/tacs/dmat"
	"github.com/camader/tacs/report"
)

// SchurOperator is the implicit, block-Jacobi-preconditioned approximate
// global Schur complement matrix GlobalSchurMat describes: applying it to
// an interface-only vector x computes
//
//	y := x + U_s^{-1} L_s^{-1} (Bext * x_ext)
//
// where x_ext is x gathered across every rank's interface unknowns through
// the same Halo the enclosing DistributedMatrix already uses, and
// U_s^{-1}L_s^{-1} is the restriction of apc's ILU(k) factor to rows
// [varOffset, N). It exposes MatVec with the exact signature
// github.com/vladimir-ch/iterative's MatrixOps wants, so the inner solve in
// ApproximateSchurPreconditioner can hand it straight to iterative.LinearSolve.
type SchurOperator struct {
	mat       *dmat.DistributedMatrix
	apc       *bcsr.Matrix
	varOffset int // mat.InteriorDim(), in block units
	reporter  report.Reporter

	full []float64 // scratch, length N*bsize: x embedded at the interface offset
}

// NewSchurOperator wraps mat's interface coupling and apc's ILU(k) factor
// (shared with the enclosing ApproximateSchurPreconditioner) as a Schur
// complement operator of dimension Nc*bsize.
func NewSchurOperator(mat *dmat.DistributedMatrix, apc *bcsr.Matrix, reporter report.Reporter) *SchurOperator {
	reporter = report.OrNop(reporter)
	n, _ := mat.Sizes()
	return &SchurOperator{
		mat:       mat,
		apc:       apc,
		varOffset: mat.InteriorDim(),
		reporter:  reporter,
		full:      make([]float64, n),
	}
}

// Dim returns the operator's dimension, Nc*bsize.
func (s *SchurOperator) Dim() int {
	return s.mat.InterfaceDim() * s.mat.BlockSize()
}

// MatVec computes dst := x + U_s^{-1}L_s^{-1}(Bext*x_ext), matching
// GlobalSchurMat::mult. x is embedded into a zeroed full-length scratch
// vector at the interface offset before the halo exchange, since the Halo's
// send/recv schedule was built against the enclosing matrix's full local
// row numbering, not an interface-only one.
func (s *SchurOperator) MatVec(dst, x []float64) {
	for i := range s.full {
		s.full[i] = 0
	}
	distvec.Embed(s.full, x, s.varOffset*s.mat.BlockSize())

	s.mat.Halo.Begin(s.full)
	xExt, err := s.mat.Halo.End()
	if err != nil {
		s.reporter.Fatalf("precond: SchurOperator.MatVec: halo exchange failed: %v", err)
		copy(dst, x)
		return
	}

	s.mat.Bext.Mult(xExt, dst)
	s.apc.ApplyPartialLower(dst, s.varOffset)
	s.apc.ApplyPartialUpper(dst, s.varOffset)
	distvec.AddScaled(dst, 1, x)
}
