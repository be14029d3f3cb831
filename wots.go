package xmsscore

import "crypto/subtle"

// wotsExpandSeedInto derives the full len*n-byte WOTS+ private key from a
// single n-byte compact seed: chain i's starting value is
// PRF(seed, toByte(i, 32)). This is the derivation test vectors bind; any
// re-implementation must keep it bit-exact to stay interoperable.
func (ctx *Context) wotsExpandSeedInto(pad *scratchPad, seed, dest []byte) Error {
	var i uint32
	for i = 0; i < ctx.wotsLen; i++ {
		chainSeed, err := ctx.prfUint64(pad, uint64(i), seed)
		if err != nil {
			return err
		}
		copy(dest[i*ctx.p.N:(i+1)*ctx.p.N], chainSeed)
	}
	return nil
}

func (ctx *Context) wotsExpandSeed(pad *scratchPad, seed []byte) ([]byte, Error) {
	dest := make([]byte, ctx.p.N*ctx.wotsLen)
	if err := ctx.wotsExpandSeedInto(pad, seed, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// toBaseW converts input into len(output) base-w digits, most significant
// digit of each byte first. Only works when logW divides 8, which holds for
// w ∈ {4, 16, 256}.
func (ctx *Context) toBaseW(input []byte, output []uint8) {
	var in, out uint32
	var total uint8
	var bits uint8

	for consumed := 0; consumed < len(output); consumed++ {
		if bits == 0 {
			total = input[in]
			in++
			bits = 8
		}
		bits -= ctx.wotsLogW
		output[out] = uint8(uint16(total>>bits) & (ctx.p.WotsW - 1))
		out++
	}
}

// wotsChainLengths converts a message into the len = len1+len2 chain
// positions of RFC 8391: the len1 base-w digits of msg itself,
// followed by the len2 base-w digits of the left-aligned checksum.
func (ctx *Context) wotsChainLengths(msg []byte) []uint8 {
	ret := make([]uint8, ctx.wotsLen)

	ctx.toBaseW(msg, ret[:ctx.wotsLen1])

	var csum uint32
	for i := 0; i < int(ctx.wotsLen1); i++ {
		csum += uint32(ctx.p.WotsW) - 1 - uint32(ret[i])
	}
	csum <<= (8 - ((ctx.wotsLen2 * uint32(ctx.wotsLogW)) % 8)) % 8

	ctx.toBaseW(
		encodeUint64(uint64(csum), int((ctx.wotsLen2*uint32(ctx.wotsLogW)+7)/8)),
		ret[ctx.wotsLen1:])
	return ret
}

// wotsGenChainInto implements RFC 8391's chaining function
// chain(in, start, steps, pubSeed, ADRS): walk F start..start+steps-1
// times, writing the result into dest.
// steps=0 leaves dest equal to in.
func (ctx *Context) wotsGenChainInto(pad *scratchPad, in []byte, start, steps uint16,
	ph precomputedHashes, addr address, dest []byte) Error {
	if start > ctx.p.WotsW-1 || uint32(start)+uint32(steps) > uint32(ctx.p.WotsW-1) {
		return newArgumentError("chain: start=%d, steps=%d out of range for w=%d",
			start, steps, ctx.p.WotsW)
	}
	copy(dest, in)
	var i uint16
	for i = start; i < start+steps && i < ctx.p.WotsW; i++ {
		addr.setHash(uint32(i))
		if err := ctx.fInto(pad, dest, ph.pubSeed, addr, dest); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *Context) wotsGenChain(pad *scratchPad, in []byte, start, steps uint16,
	ph precomputedHashes, addr address) ([]byte, Error) {
	dest := make([]byte, ctx.p.N)
	if err := ctx.wotsGenChainInto(pad, in, start, steps, ph, addr, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// wotsPkGen generates a WOTS+ public key from the compact private seed.
func (ctx *Context) wotsPkGen(pad *scratchPad, ph precomputedHashes, addr address) ([]byte, Error) {
	dest := make([]byte, ctx.p.N*ctx.wotsLen)
	if err := ctx.wotsPkGenInto(pad, ph, addr, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// wotsPkGenInto writes the WOTS+ public key derived from the compact
// private seed into dest, which must be wotsLen*n bytes.
func (ctx *Context) wotsPkGenInto(pad *scratchPad, ph precomputedHashes, addr address, dest []byte) Error {
	if err := ctx.wotsExpandSeedInto(pad, ph.skSeed, dest); err != nil {
		return err
	}
	var i uint32
	for i = 0; i < ctx.wotsLen; i++ {
		addr.setChain(i)
		chainOut := dest[ctx.p.N*i : ctx.p.N*(i+1)]
		if err := ctx.wotsGenChainInto(pad, chainOut, 0, ctx.p.WotsW-1, ph, addr, chainOut); err != nil {
			return err
		}
	}
	return nil
}

// wotsSignInto creates a WOTS+ signature of an n-byte message into dest,
// which must be wotsLen*n bytes.
func (ctx *Context) wotsSignInto(pad *scratchPad, msg []byte, ph precomputedHashes,
	addr address, dest []byte) Error {
	if uint32(len(msg)) != ctx.p.N {
		return newArgumentError("wotsSign: message must be %d bytes, got %d", ctx.p.N, len(msg))
	}
	lengths := ctx.wotsChainLengths(msg)
	if err := ctx.wotsExpandSeedInto(pad, ph.skSeed, dest); err != nil {
		return err
	}
	var i uint32
	for i = 0; i < ctx.wotsLen; i++ {
		addr.setChain(i)
		chainOut := dest[ctx.p.N*i : ctx.p.N*(i+1)]
		if err := ctx.wotsGenChainInto(pad, chainOut, 0, uint16(lengths[i]), ph, addr, chainOut); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *Context) wotsSign(pad *scratchPad, msg []byte, ph precomputedHashes, addr address) ([]byte, Error) {
	dest := make([]byte, ctx.p.N*ctx.wotsLen)
	if err := ctx.wotsSignInto(pad, msg, ph, addr, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// wotsPkFromSigInto recovers the WOTS+ public key implied by a signature of
// msg: each chain is walked from its signed position up to w-1.
func (ctx *Context) wotsPkFromSigInto(pad *scratchPad, sig, msg []byte,
	ph precomputedHashes, addr address, dest []byte) Error {
	if uint32(len(msg)) != ctx.p.N {
		return newArgumentError("wotsPkFromSig: message must be %d bytes, got %d", ctx.p.N, len(msg))
	}
	if uint32(len(sig)) != ctx.p.N*ctx.wotsLen {
		return newArgumentError("wotsPkFromSig: signature must be %d bytes, got %d",
			ctx.p.N*ctx.wotsLen, len(sig))
	}
	lengths := ctx.wotsChainLengths(msg)
	var i uint32
	for i = 0; i < ctx.wotsLen; i++ {
		addr.setChain(i)
		in := sig[ctx.p.N*i : ctx.p.N*(i+1)]
		out := dest[ctx.p.N*i : ctx.p.N*(i+1)]
		steps := ctx.p.WotsW - 1 - uint16(lengths[i])
		if err := ctx.wotsGenChainInto(pad, in, uint16(lengths[i]), steps, ph, addr, out); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *Context) wotsPkFromSig(pad *scratchPad, sig, msg []byte,
	ph precomputedHashes, addr address) ([]byte, Error) {
	dest := make([]byte, ctx.p.N*ctx.wotsLen)
	if err := ctx.wotsPkFromSigInto(pad, sig, msg, ph, addr, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// wotsVerify checks that sig is a valid WOTS+ signature of msg under pk, in
// constant time over the full len*n bytes.
func (ctx *Context) wotsVerify(pad *scratchPad, pk, sig, msg []byte,
	ph precomputedHashes, addr address) (bool, Error) {
	if uint32(len(pk)) != ctx.p.N*ctx.wotsLen {
		return false, newArgumentError("wotsVerify: public key must be %d bytes, got %d",
			ctx.p.N*ctx.wotsLen, len(pk))
	}
	candidate, err := ctx.wotsPkFromSig(pad, sig, msg, ph, addr)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(candidate, pk) == 1, nil
}
