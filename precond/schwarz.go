// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"github.com/camader/tacs/bcsr"
	"github.com/camader/tacs/dmat"
	"github.com/camader/tacs/report"
)

// LocalILUPreconditioner factors Aloc's diagonal block with no inter-rank
// communication at all, restating AdditiveSchwarz. Each rank's block ILU(k)
// factor only ever sees its own local rows, so the preconditioner it
// applies is exact block-Jacobi in the Schwarz sense: global convergence
// comes entirely from the outer Krylov iteration driving this.
type LocalILUPreconditioner struct {
	aloc  *bcsr.Matrix // reference to the distributed matrix's diagonal block
	apc   *bcsr.Matrix // the ILU(k) factor, a separate matrix over the same rows
	alpha float64
	reporter report.Reporter
}

// NewLocalILU builds a LocalILUPreconditioner over mat's diagonal block,
// widening its sparsity to accommodate levFill levels of block fill-in
// before any numeric factorization runs.
func NewLocalILU(mat *dmat.DistributedMatrix, levFill int, reporter report.Reporter) (*LocalILUPreconditioner, error) {
	reporter = report.OrNop(reporter)
	aloc := mat.Aloc
	rowp, cols, _ := aloc.Arrays()
	newRowp, newCols := bcsr.FillPattern(aloc.RowDim(), rowp, cols, levFill)
	apc, err := bcsr.New(aloc.BlockSize(), aloc.RowDim(), aloc.ColDim(), newRowp, newCols)
	if err != nil {
		return nil, err
	}
	return &LocalILUPreconditioner{aloc: aloc, apc: apc, reporter: reporter}, nil
}

// SetDiagShift adds alpha*I to the preconditioner matrix's diagonal before
// each factorization, matching AdditiveSchwarz::setDiagShift — useful when
// the unshifted diagonal block is too close to singular to factor safely.
func (p *LocalILUPreconditioner) SetDiagShift(alpha float64) {
	p.alpha = alpha
}

// Factor rebuilds the ILU(k) factorization from the current values of
// Aloc, matching AdditiveSchwarz::factor. apc's pattern is widened by
// levFill over aloc's own, so the numeric copy goes through
// CopyValuesSubset rather than CopyValues: the fill-in blocks FillPattern
// added have no counterpart in aloc to copy from, and must be re-zeroed
// before every fresh factorization picks up whatever fill the previous
// factor's Factor() left behind.
func (p *LocalILUPreconditioner) Factor() error {
	p.apc.Zero()
	if err := p.apc.CopyValuesSubset(p.aloc); err != nil {
		return err
	}
	if p.alpha != 0 {
		if err := p.apc.AddDiag(p.alpha); err != nil {
			return err
		}
	}
	return p.apc.Factor()
}

// ApplyFactor computes y := U^{-1}L^{-1}x against the local factor,
// matching AdditiveSchwarz::applyFactor.
func (p *LocalILUPreconditioner) ApplyFactor(x, y []float64) {
	p.apc.ApplyFactor(x, y)
}
