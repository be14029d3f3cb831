package xmsscore

import "io"

// Domain separation prefixes for the keyed hash constructions of RFC 8391
// §5.1, written with toByte(domain, n) ahead of the key and message.
const (
	hashPaddingF       = 0
	hashPaddingH       = 1
	hashPaddingHashMsg = 2
	hashPaddingPRF     = 3
)

// Hash is one absorb/finalize round of the caller-supplied digest. Instances
// are not thread-safe and are used exactly once: repeated Absorb calls
// followed by exactly one Finalize.
type Hash interface {
	// Absorb appends data to the instance's input. May be called any
	// number of times before Finalize.
	Absorb(data []byte) error
	// Finalize writes the digest to dest, which must have length
	// DigestLength(). Calling Finalize a second time is a misuse error.
	Finalize(dest []byte) error
}

// HashFactory produces fresh Hash instances, all producing digests of
// DigestLength() bytes. A HashFactory is stateless and safe to share.
type HashFactory interface {
	DigestLength() uint32
	NewInstance() Hash
}

// functionTemplate computes Hash( toByte(domain, n) || key || msg ) using a
// fresh instance from hf, writing the n-byte digest into dest.
func functionTemplate(hf HashFactory, domain uint32, key, msg, dest []byte, primitive string) Error {
	n := hf.DigestLength()
	if uint32(len(dest)) != n {
		return newArgumentError("%s: destination must be %d bytes, got %d",
			primitive, n, len(dest))
	}
	inst := hf.NewInstance()
	if err := inst.Absorb(encodeUint64(uint64(domain), int(n))); err != nil {
		return newHashError(primitive, err)
	}
	if err := inst.Absorb(key); err != nil {
		return newHashError(primitive, err)
	}
	if err := inst.Absorb(msg); err != nil {
		return newHashError(primitive, err)
	}
	if err := inst.Finalize(dest); err != nil {
		return newHashError(primitive, err)
	}
	return nil
}

// scratchPad bundles the buffers reused across the chain/ltree/RAND_HASH hot
// path: the PRF-derived keys, bitmasks and XOR results of F and RAND_HASH go
// into these buffers instead of being allocated per call (other
// intermediates, such as node outputs and encoded addresses, are still
// allocated). One scratchPad belongs to a single goroutine; the parallel
// tree builder hands each worker its own.
type scratchPad struct {
	n          uint32
	wotsLen    uint32
	wotsPubKey []byte // wotsLen*n scratch for a WOTS+ public key / signature
	key        []byte // n bytes: PRF-derived key for F / RAND_HASH
	bm0        []byte // n bytes: first PRF-derived bitmask
	bm1        []byte // n bytes: second PRF-derived bitmask (RAND_HASH only)
	xored      []byte // n bytes: XOR result fed into F
	randMsg    []byte // 2n bytes: XOR result fed into H by RAND_HASH
}

func (ctx *Context) newScratchPad() *scratchPad {
	n := ctx.p.N
	return &scratchPad{
		n:          n,
		wotsLen:    ctx.wotsLen,
		wotsPubKey: make([]byte, n*ctx.wotsLen),
		key:        make([]byte, n),
		bm0:        make([]byte, n),
		bm1:        make([]byte, n),
		xored:      make([]byte, n),
		randMsg:    make([]byte, 2*n),
	}
}

func (pad *scratchPad) wotsBuf() []byte {
	return pad.wotsPubKey
}

// precomputedHashes bundles the seeds that stay constant across many calls
// of F/PRF/H within a single WOTS+ chain or treeHash walk, so callers need
// not thread pubSeed/skSeed through every helper by hand.
type precomputedHashes struct {
	pubSeed []byte
	skSeed  []byte
}

func (ctx *Context) precomputeHashes(pubSeed, skSeed []byte) precomputedHashes {
	return precomputedHashes{pubSeed: pubSeed, skSeed: skSeed}
}

// fInto computes F(key=PRF(pubSeed, ADRS), in) into dest.
func (ctx *Context) fInto(pad *scratchPad, in, pubSeed []byte, addr address, dest []byte) Error {
	addr.setKeyAndMask(0)
	if err := ctx.prfAddrInto(pad, addr, pubSeed, pad.key); err != nil {
		return err
	}
	addr.setKeyAndMask(1)
	if err := ctx.prfAddrInto(pad, addr, pubSeed, pad.bm0); err != nil {
		return err
	}
	xorBytes(pad.xored, in, pad.bm0)
	return functionTemplate(ctx.p.Hash, hashPaddingF, pad.key, pad.xored, dest, "F")
}

func (ctx *Context) f(pad *scratchPad, in, pubSeed []byte, addr address) ([]byte, Error) {
	dest := make([]byte, ctx.p.N)
	if err := ctx.fInto(pad, in, pubSeed, addr, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// randHashInto implements RFC 8391's RAND_HASH(left, right, pubSeed, ADRS),
// writing the result into dest.
func (ctx *Context) randHashInto(pad *scratchPad, left, right, pubSeed []byte, addr address, dest []byte) Error {
	n := ctx.p.N
	addr.setKeyAndMask(0)
	if err := ctx.prfAddrInto(pad, addr, pubSeed, pad.key); err != nil {
		return err
	}
	addr.setKeyAndMask(1)
	if err := ctx.prfAddrInto(pad, addr, pubSeed, pad.bm0); err != nil {
		return err
	}
	addr.setKeyAndMask(2)
	if err := ctx.prfAddrInto(pad, addr, pubSeed, pad.bm1); err != nil {
		return err
	}
	xorBytes(pad.randMsg[:n], left, pad.bm0)
	xorBytes(pad.randMsg[n:], right, pad.bm1)
	return functionTemplate(ctx.p.Hash, hashPaddingH, pad.key, pad.randMsg, dest, "H")
}

func (ctx *Context) randHash(pad *scratchPad, left, right, pubSeed []byte, addr address) ([]byte, Error) {
	dest := make([]byte, ctx.p.N)
	if err := ctx.randHashInto(pad, left, right, pubSeed, addr, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// prfAddrInto computes PRF(key, ADRS) into dest.
func (ctx *Context) prfAddrInto(pad *scratchPad, addr address, key, dest []byte) Error {
	return functionTemplate(ctx.p.Hash, hashPaddingPRF, key, addr.toBytes(), dest, "PRF")
}

func (ctx *Context) prfAddr(pad *scratchPad, addr address, key []byte) ([]byte, Error) {
	dest := make([]byte, ctx.p.N)
	if err := ctx.prfAddrInto(pad, addr, key, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// prfUint64 computes PRF(key, toByte(i, 32)). Used both to derive the
// per-chain expansion of a compact WOTS+ seed and to derive the randomized
// value r = PRF(skPrf, toByte(idx, 32)) in XMSS_sign.
func (ctx *Context) prfUint64(pad *scratchPad, i uint64, key []byte) ([]byte, Error) {
	dest := make([]byte, ctx.p.N)
	if err := functionTemplate(ctx.p.Hash, hashPaddingPRF, key, encodeUint64(i, 32), dest, "PRF"); err != nil {
		return nil, err
	}
	return dest, nil
}

// hashMessage computes H_msg(r || root || toByte(idx, n), msg), streaming
// msg through the hash instance rather than requiring it to be buffered in
// full first.
func (ctx *Context) hashMessage(pad *scratchPad, msg io.Reader, r, root []byte, idx uint64) ([]byte, Error) {
	n := ctx.p.N
	key := make([]byte, 2*n+n)
	copy(key, r)
	copy(key[n:], root)
	encodeUint64Into(idx, key[2*n:])

	inst := ctx.p.Hash.NewInstance()
	if err := inst.Absorb(encodeUint64(hashPaddingHashMsg, int(n))); err != nil {
		return nil, newHashError("H_msg", err)
	}
	if err := inst.Absorb(key); err != nil {
		return nil, newHashError("H_msg", err)
	}
	buf := make([]byte, 4096)
	for {
		read, err := msg.Read(buf)
		if read > 0 {
			if err2 := inst.Absorb(buf[:read]); err2 != nil {
				return nil, newHashError("H_msg", err2)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapErrorf(err, "reading message")
		}
	}
	dest := make([]byte, n)
	if err := inst.Finalize(dest); err != nil {
		return nil, newHashError("H_msg", err)
	}
	return dest, nil
}
