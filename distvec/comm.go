// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package distvec provides the distributed bookkeeping the core needs
// around a bcsr.Matrix: which global rows a rank owns (RowMap), which rows
// carry a Dirichlet boundary condition (BCList), and the halo exchange that
// gathers remote interface values into a rank's extended vector (Halo).
// Grounded on TACS's TACSVarMap/TACSBVecDistribute machinery in
// original_source/src/bpmat/PMat.c and on gofem/fem/domain.go's owner-range
// bookkeeping for a mesh partition.
package distvec

import "github.com/cpmech/gosl/mpi"

// Comm is the narrow slice of a communicator the distributed vector layer
// needs: rank/size introspection, a reduction for building owner ranges,
// and a blocking point-to-point pair for the halo exchange. Depending on
// this interface instead of calling package-level gosl/mpi functions
// directly lets tests run many simulated ranks in one process via
// NewLoopbackComm, without linking against a real MPI runtime.
type Comm interface {
	Rank() int
	Size() int
	AllReduceSum(dest, src []float64)
	Send(vals []float64, toRank int)
	Recv(vals []float64, fromRank int)
}

// mpiComm adapts the package-level github.com/cpmech/gosl/mpi functions
// (the same ones gofem/fem/fem.go and main.go call) to the Comm interface.
type mpiComm struct{}

// NewMPIComm returns a Comm backed by the process's real MPI runtime, as
// started by mpi.Start in cmd/dlasdemo's bootstrap.
func NewMPIComm() Comm { return mpiComm{} }

func (mpiComm) Rank() int { return mpi.Rank() }
func (mpiComm) Size() int { return mpi.Size() }

func (mpiComm) AllReduceSum(dest, src []float64) { mpi.AllReduceSum(dest, src) }

func (mpiComm) Send(vals []float64, toRank int) { mpi.Send(vals, toRank) }

func (mpiComm) Recv(vals []float64, fromRank int) { mpi.Recv(vals, fromRank) }
