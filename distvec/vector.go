// Copyright 2024 The dlas Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package distvec

import "github.com/gonum/floats"

// Embed copies a local block-row-ordered vector's interface tail into the
// position a Halo's extended buffer expects a self-owned row to occupy
// when a caller wants to treat "my own interface rows" uniformly with
// "remote interface rows" (the v_embedded convention used by
// SchurOperator). dst and src must be disjoint.
func Embed(dst, src []float64, dstOffset int) {
	copy(dst[dstOffset:dstOffset+len(src)], src)
}

// Norm2 returns the Euclidean norm of v via gonum/floats (cmd/dlasdemo uses
// it for its residual norm).
func Norm2(v []float64) float64 {
	return floats.Norm(v, 2)
}

// AddScaled computes dst += alpha*src in place, via gonum/floats.
func AddScaled(dst []float64, alpha float64, src []float64) {
	floats.AddScaled(dst, alpha, src)
}

// Dot returns the inner product of a and b via gonum/floats.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}
