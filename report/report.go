// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report carries diagnostics out of the distributed linear-algebra
// core without relying on global mutable state. Every constructor in dmat
// and precond accepts a Reporter; passing nil installs a no-op reporter.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cpmech/gosl/io"
)

// Sentinel error kinds from §7 of the design. Call sites wrap these with
// fmt.Errorf("...: %w", ErrConfiguration) to attach context.
var (
	// ErrConfiguration marks a fatal construction-time mismatch: non-square
	// A, dimension mismatch between A, B, the Halo and the row map, or
	// mismatched block sizes.
	ErrConfiguration = errors.New("dlas: configuration error")

	// ErrTypeMismatch marks a vector or matrix of unexpected dynamic kind
	// passed into an operation; the call becomes a no-op.
	ErrTypeMismatch = errors.New("dlas: type mismatch")

	// ErrCommunication marks a failed MPI call. Fatal.
	ErrCommunication = errors.New("dlas: communication failure")
)

// Reporter routes diagnostics to wherever the embedding application wants
// them. The core never reads or writes a global logger; every component
// that can fail non-fatally takes one of these at construction.
type Reporter interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// nopReporter discards everything. Used when a nil Reporter is supplied.
type nopReporter struct{}

func (nopReporter) Infof(string, ...interface{})  {}
func (nopReporter) Warnf(string, ...interface{})  {}
func (nopReporter) Errorf(string, ...interface{}) {}
func (nopReporter) Fatalf(string, ...interface{}) {}

// Nop returns the shared no-op Reporter.
func Nop() Reporter { return nopReporter{} }

// OrNop returns r, or the shared no-op Reporter if r is nil. Components
// call this once in their constructor so every other method can assume a
// non-nil reporter.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return nopReporter{}
	}
	return r
}

// console reports through gosl/io's colour-coded Pf family, matching the
// console output gofem's own solver produces.
type console struct {
	rank int
}

// NewConsole returns a Reporter that prints to the process's standard
// streams via gosl/io, prefixed with the given MPI rank so multi-rank runs
// can be told apart (mirrors gofem's "[%d]" rank-prefixed diagnostics).
func NewConsole(rank int) Reporter {
	return console{rank: rank}
}

func (c console) Infof(format string, args ...interface{}) {
	io.Pf("[%d] "+format, prepend(c.rank, args)...)
}

func (c console) Warnf(format string, args ...interface{}) {
	io.PfYel("[%d] WARNING: "+format, prepend(c.rank, args)...)
}

func (c console) Errorf(format string, args ...interface{}) {
	io.PfRed("[%d] ERROR: "+format, prepend(c.rank, args)...)
}

// Fatalf prints the message and then panics with it, so the failure stops
// the caller (cmd/dlasdemo's deferred recover reports it before mpi.Stop).
func (c console) Fatalf(format string, args ...interface{}) {
	io.PfRed("[%d] FATAL: "+format, prepend(c.rank, args)...)
	panic(fmt.Sprintf("[%d] FATAL: "+format, prepend(c.rank, args)...))
}

func prepend(rank int, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, rank)
	out = append(out, args...)
	return out
}

// Entry is one recorded diagnostic message.
type Entry struct {
	Level   string
	Message string
}

// Recorder is a Reporter that keeps every message in memory, for tests
// that want to assert on what the core reported instead of parsing stdout.
type Recorder struct {
	Entries []Entry
}

// NewRecorder returns a fresh in-memory Reporter.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Infof(format string, args ...interface{}) {
	r.Entries = append(r.Entries, Entry{"info", fmt.Sprintf(format, args...)})
}

func (r *Recorder) Warnf(format string, args ...interface{}) {
	r.Entries = append(r.Entries, Entry{"warn", fmt.Sprintf(format, args...)})
}

func (r *Recorder) Errorf(format string, args ...interface{}) {
	r.Entries = append(r.Entries, Entry{"error", fmt.Sprintf(format, args...)})
}

func (r *Recorder) Fatalf(format string, args ...interface{}) {
	r.Entries = append(r.Entries, Entry{"fatal", fmt.Sprintf(format, args...)})
}

// Has reports whether any recorded entry of the given level contains substr.
func (r *Recorder) Has(level, substr string) bool {
	for _, e := range r.Entries {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
