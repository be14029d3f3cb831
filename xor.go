package xmsscore

import "github.com/templexxx/xorsimd"

// xorBytes writes a^b into dest. It is called on the hot path of F (once
// per chain step) and RAND_HASH (twice per tree node), so it is backed by
// the SIMD-dispatching xorsimd implementation rather than a hand-rolled
// byte loop.
func xorBytes(dest, a, b []byte) {
	xorsimd.Bytes(dest, a, b)
}
