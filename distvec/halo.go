// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package distvec

import (
	"fmt"
	"sort"

	"github.com/camader/tacs/report"
)

// Halo gathers the remote interface values a rank's local B block needs
// into a contiguous extended buffer (x_ext in PMat.c), and scatters this
// rank's own values to whichever other ranks need them. The row lists each
// direction needs are fixed by the matrix's sparsity and are computed once,
// at construction; only the numeric values travel on every Begin/End call.
type Halo struct {
	comm  Comm
	bsize int

	// remote[i] is the i-th (sorted, deduplicated) remote global row this
	// rank's local computation needs; x_ext[i] holds that row's value.
	remote   []int
	position map[int]int // global row -> index into remote

	// recvFrom[p] is the subsequence of remote owned by rank p, in the same
	// relative order as remote.
	recvFrom map[int][]int
	// sendTo[p] is the local row indices (this rank's own numbering) that
	// rank p has requested from us, established by the same handshake.
	sendTo map[int][]int

	pending chan struct{} // non-nil between Begin and End
	xExt    []float64
	err     error
}

// NewHalo runs the one-time handshake that builds a Halo's communication
// schedule: every rank learns, for each remote global row it needs, which
// rank owns it, and tells that owner so the owner learns what to send back
// on every future exchange. Grounded on PMat.c's ext_dist
// (TACSBVecDistribute), generalized here into an explicit schedule because
// the retrieval pack does not carry TACS's own index-set/distribute
// machinery to transliterate directly.
func NewHalo(comm Comm, rowmap *RowMap, neededGlobalRows []int, bsize int) (*Halo, error) {
	if bsize <= 0 {
		return nil, fmt.Errorf("distvec: NewHalo: block size must be positive: %w", report.ErrConfiguration)
	}
	me := comm.Rank()
	size := comm.Size()
	lo, hi := rowmap.LocalRange()

	needed := Dedup(neededGlobalRows)
	var remote []int
	for _, g := range needed {
		if g < lo || g >= hi {
			remote = append(remote, g)
		}
	}
	sort.Ints(remote)

	byOwner := make(map[int][]int)
	for _, g := range remote {
		r, err := rowmap.OwnerRank(g)
		if err != nil {
			return nil, err
		}
		byOwner[r] = append(byOwner[r], g)
	}

	sendTo := make(map[int][]int)
	recvFrom := make(map[int][]int)
	for p := 0; p < size; p++ {
		if p == me {
			continue
		}
		mine := byOwner[p]
		var theirs []int
		var err error
		if me < p {
			if err = sendRowList(comm, p, mine); err != nil {
				return nil, err
			}
			theirs, err = recvRowList(comm, p)
		} else {
			theirs, err = recvRowList(comm, p)
			if err == nil {
				err = sendRowList(comm, p, mine)
			}
		}
		if err != nil {
			return nil, err
		}
		if len(mine) > 0 {
			recvFrom[p] = mine
		}
		if len(theirs) > 0 {
			local := make([]int, len(theirs))
			for i, g := range theirs {
				local[i] = g - lo
			}
			sendTo[p] = local
		}
	}

	position := make(map[int]int, len(remote))
	for i, g := range remote {
		position[g] = i
	}

	return &Halo{
		comm:     comm,
		bsize:    bsize,
		remote:   remote,
		position: position,
		recvFrom: recvFrom,
		sendTo:   sendTo,
	}, nil
}

// Dim returns the number of remote block rows gathered by this halo.
func (h *Halo) Dim() int { return len(h.remote) }

// Position returns the index into the extended buffer holding the value
// for remote global row g, or -1 if g is not part of this halo.
func (h *Halo) Position(globalRow int) int {
	if p, ok := h.position[globalRow]; ok {
		return p
	}
	return -1
}

// Indices returns the sorted remote global rows this halo gathers, in the
// same order as the extended buffer End returns.
func (h *Halo) Indices() []int { return h.remote }

// Begin starts the exchange: every rank sends the rows other ranks have
// requested from its own local vector x and, concurrently, waits to
// receive the rows it requested of others. x must not be mutated until End
// returns. The exchange runs on a background goroutine so a caller can
// overlap it with local computation (e.g. the interior block of an
// Mult call) before calling End — a non-blocking begin/end pair built over
// gosl/mpi's blocking Send/Recv, since the retrieval pack does not expose a
// native non-blocking point-to-point API to build this on top of directly
// (see the non-blocking halo Open Question in DESIGN.md).
func (h *Halo) Begin(x []float64) {
	h.pending = make(chan struct{})
	h.xExt = make([]float64, len(h.remote)*h.bsize)
	h.err = nil
	go h.exchange(x)
}

func (h *Halo) exchange(x []float64) {
	defer close(h.pending)
	b := h.bsize
	peers := make([]int, 0, len(h.sendTo)+len(h.recvFrom))
	seen := map[int]bool{}
	for p := range h.sendTo {
		if !seen[p] {
			seen[p] = true
			peers = append(peers, p)
		}
	}
	for p := range h.recvFrom {
		if !seen[p] {
			seen[p] = true
			peers = append(peers, p)
		}
	}
	sort.Ints(peers)
	me := h.comm.Rank()
	for _, p := range peers {
		sendRows := h.sendTo[p]
		sendBuf := make([]float64, len(sendRows)*b)
		for i, lr := range sendRows {
			copy(sendBuf[i*b:(i+1)*b], x[lr*b:(lr+1)*b])
		}
		recvRows := h.recvFrom[p]
		recvBuf := make([]float64, len(recvRows)*b)
		if me < p {
			h.comm.Send(sendBuf, p)
			h.comm.Recv(recvBuf, p)
		} else {
			h.comm.Recv(recvBuf, p)
			h.comm.Send(sendBuf, p)
		}
		for i, g := range recvRows {
			pos := h.position[g]
			copy(h.xExt[pos*b:(pos+1)*b], recvBuf[i*b:(i+1)*b])
		}
	}
}

// End blocks until the exchange started by Begin completes and returns the
// extended buffer, ordered to match Indices.
func (h *Halo) End() ([]float64, error) {
	if h.pending == nil {
		return nil, fmt.Errorf("distvec: Halo.End called without a matching Begin: %w", report.ErrConfiguration)
	}
	<-h.pending
	h.pending = nil
	return h.xExt, h.err
}

// sendRowList/recvRowList implement a tiny length-prefixed protocol over
// Comm's fixed-size Send/Recv so the one-time handshake can exchange
// variable-length row lists. Global row ids are encoded as float64, exact
// for any row count a reference implementation like this one will see.
func sendRowList(comm Comm, to int, rows []int) error {
	comm.Send([]float64{float64(len(rows))}, to)
	if len(rows) == 0 {
		return nil
	}
	buf := make([]float64, len(rows))
	for i, r := range rows {
		buf[i] = float64(r)
	}
	comm.Send(buf, to)
	return nil
}

func recvRowList(comm Comm, from int) ([]int, error) {
	n := make([]float64, 1)
	comm.Recv(n, from)
	count := int(n[0])
	if count == 0 {
		return nil, nil
	}
	buf := make([]float64, count)
	comm.Recv(buf, from)
	rows := make([]int, count)
	for i, v := range buf {
		rows[i] = int(v)
	}
	return rows, nil
}
