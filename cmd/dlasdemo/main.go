// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// dlasdemo assembles a small distributed block-sparse chain matrix — one
// rank's rows coupled to the next rank's first row — across however many
// MPI processes it is launched with, applies one of the three
// preconditioners in precond/ to it, and reports the residual. It exists
// to exercise the whole distributed core end-to-end, the same role
// gofem's own main.go plays for a full finite-element analysis.
package main

import (
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/camader/tacs/bcsr"
	"github.com/camader/tacs/distvec"
	"github.com/camader/tacs/dmat"
	"github.com/camader/tacs/precond"
	"github.com/camader/tacs/report"
)

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			if mpi.Rank() == 0 {
				chk.Verbose = true
				for i := 8; i > 3; i-- {
					chk.CallerInfo(i)
				}
				io.PfRed("ERROR: %v\n", err)
			}
		}
		mpi.Stop(false)
	}()
	mpi.Start(false)

	// read input parameters
	nrows := io.ArgToInt(0, 6)
	method := io.ArgToString(1, "schur")
	levFill := io.ArgToInt(2, 1)
	verbose := io.ArgToBool(3, true)
	dumpPattern := io.ArgToBool(4, false)

	if mpi.Rank() == 0 && verbose {
		io.PfWhite("\ndlasdemo -- distributed block-sparse linear algebra core\n\n")
		io.Pf("\n%v\n", io.ArgsTable(
			"local rows per rank", "nrows", nrows,
			"preconditioner", "method", method,
			"ILU fill level", "levFill", levFill,
			"show messages", "verbose", verbose,
			"dump nonzero pattern", "dumpPattern", dumpPattern,
		))
	}

	if err := run(nrows, method, levFill, verbose, dumpPattern); err != nil {
		chk.Panic("run failed:\n%v", err)
	}
}

// run builds the chain system, applies the requested preconditioner once,
// and reports the residual norm — a single ApplyFactor call is enough to
// demonstrate the wiring, since SPEC_FULL.md's solver-loop integration is
// the caller's responsibility, not this core's.
func run(nrows int, method string, levFill int, verbose, dumpPattern bool) error {
	comm := distvec.NewMPIComm()
	rank, size := comm.Rank(), comm.Size()
	reporter := report.NewConsole(rank)

	rowmap, err := distvec.NewRowMap(comm, nrows)
	if err != nil {
		return err
	}
	lo, hi := rowmap.LocalRange()

	aloc := chainAloc(nrows)
	nc := 0
	var needed []int
	if rank < size-1 {
		nc = 1
		needed = []int{hi}
	}
	halo, err := distvec.NewHalo(comm, rowmap, needed, 1)
	if err != nil {
		return err
	}
	bext := bcsr.NewBuilder(1, nc, halo.Dim())
	if nc == 1 {
		bext.Add(0, 0)
	}
	bextMat, err := bext.Build()
	if err != nil {
		return err
	}
	if nc == 1 {
		_, _, vals := bextMat.Arrays()
		vals[0][0] = -1
	}

	m, err := dmat.New(aloc, bextMat, rowmap, halo, nil, nc, reporter)
	if err != nil {
		return err
	}

	if dumpPattern {
		if err := m.DumpNzPattern(os.Stdout); err != nil {
			return err
		}
	}

	x := make([]float64, nrows)
	for i := range x {
		x[i] = 1
	}
	y := make([]float64, nrows)

	switch method {
	case "relax":
		p, err := precond.NewRelaxation(m, true, 1.0, 30, true, reporter)
		if err != nil {
			return err
		}
		if err := p.Factor(); err != nil {
			return err
		}
		if err := p.ApplyFactor(x, y); err != nil {
			return err
		}
	case "schwarz":
		p, err := precond.NewLocalILU(m, levFill, reporter)
		if err != nil {
			return err
		}
		if err := p.Factor(); err != nil {
			return err
		}
		p.ApplyFactor(x, y)
	case "schur":
		p, err := precond.NewApproximateSchur(m, levFill, 20, 1e-8, reporter)
		if err != nil {
			return err
		}
		if err := p.Factor(); err != nil {
			return err
		}
		if err := p.ApplyFactor(x, y); err != nil {
			return err
		}
	default:
		return chk.Err("unknown preconditioner method %q (want relax, schwarz or schur)", method)
	}

	r := make([]float64, nrows)
	if err := m.Mult(y, r); err != nil {
		return err
	}
	distvec.AddScaled(r, -1, x)
	reporter.Infof("rows [%d,%d), Nc=%d: residual norm = %v", lo, hi, nc, distvec.Norm2(r))
	return nil
}

// chainAloc builds the n-row local diagonal block of the demo's chain
// matrix: a diagonally dominant tridiagonal system within the rank, with
// whatever cross-rank coupling the last row needs carried separately
// through Bext rather than here.
func chainAloc(n int) *bcsr.Matrix {
	b := bcsr.NewBuilder(1, n, n)
	for i := 0; i < n; i++ {
		b.Add(i, i)
		if i > 0 {
			b.Add(i, i-1)
		}
		if i < n-1 {
			b.Add(i, i+1)
		}
	}
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	rowp, cols, vals := m.Arrays()
	for i := 0; i < n; i++ {
		for k := rowp[i]; k < rowp[i+1]; k++ {
			if cols[k] == i {
				vals[k][0] = 4
			} else {
				vals[k][0] = -1
			}
		}
	}
	return m
}
