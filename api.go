// Package xmsscore implements WOTS+ and single-tree XMSS as specified by
// RFC 8391: the extended Merkle signature scheme restricted to a single
// layer (no XMSS^MT). The hash primitive used for every keyed construction
// is supplied by the caller through a HashFactory rather than hardcoded, so
// the core never imports a concrete digest implementation itself.
package xmsscore

import (
	"crypto/rand"
	"io"
)

// Context is an immutable, concurrency-safe handle on one XMSS instance:
// its Params plus every size derived from them. All core operations hang
// off Context so a caller can hold several instances (e.g. different tree
// heights) side by side safely.
type Context struct {
	p Params

	wotsLogW     uint8
	wotsLen1     uint32
	wotsLen2     uint32
	wotsLen      uint32
	wotsSigBytes uint32
	treeHeight   uint32
	indexBytes   uint32

	oid  uint32
	name string

	// Threads bounds how many goroutines the parallel tree builder may
	// use. Zero or one means build the tree sequentially.
	Threads int
}

// NewContext validates p and derives every size used by the core. p.Hash
// must be set and must produce digests of exactly p.N bytes.
func NewContext(p Params) (*Context, Error) {
	if p.Hash == nil {
		return nil, newArgumentError("NewContext: Params.Hash must be set")
	}
	if p.Hash.DigestLength() != p.N {
		return nil, newArgumentError("NewContext: Params.N=%d does not match Hash.DigestLength()=%d",
			p.N, p.Hash.DigestLength())
	}
	if p.N == 0 || (p.N&(p.N-1)) != 0 {
		return nil, newArgumentError("NewContext: N=%d must be a power of two", p.N)
	}
	if p.FullHeight == 0 {
		return nil, newArgumentError("NewContext: FullHeight must be greater than zero")
	}
	if p.FullHeight >= 32 {
		return nil, newArgumentError("NewContext: FullHeight=%d is too large to index with a uint32", p.FullHeight)
	}
	if p.D != 1 {
		return nil, newArgumentError("NewContext: D must be 1 (XMSS^MT is not supported); got %d", p.D)
	}
	if p.WotsW != 4 && p.WotsW != 16 {
		return nil, newArgumentError("NewContext: WotsW must be 4 or 16; got %d", p.WotsW)
	}
	if p.WotsW == 4 && !p.AllowUntestedW4 {
		return nil, newArgumentError("NewContext: WotsW=4 requires AllowUntestedW4 (no independently verified test vectors)")
	}

	ctx := &Context{p: p, treeHeight: p.FullHeight}
	ctx.wotsLogW = p.WotsLogW()
	ctx.wotsLen1 = p.WotsLen1()
	ctx.wotsLen2 = p.WotsLen2()
	ctx.wotsLen = p.WotsLen()
	ctx.wotsSigBytes = p.WotsSignatureSize()
	ctx.indexBytes = 4
	ctx.oid = lookupOid(p)
	ctx.name = lookupName(p)
	return ctx, nil
}

// NewContextFromName looks up a named registry entry and attaches hf as its
// hash primitive.
func NewContextFromName(name string, hf HashFactory) (*Context, Error) {
	p := ParamsFromName(name)
	if p == nil {
		return nil, newArgumentError("NewContextFromName: unknown name %q", name)
	}
	p.Hash = hf
	return NewContext(*p)
}

// NewContextFromOid looks up a named registry entry by oid and attaches hf
// as its hash primitive.
func NewContextFromOid(oid uint32, hf HashFactory) (*Context, Error) {
	p := ParamsFromOid(oid)
	if p == nil {
		return nil, newArgumentError("NewContextFromOid: unknown oid %d", oid)
	}
	p.Hash = hf
	return NewContext(*p)
}

func (ctx *Context) Params() Params { return ctx.p }
func (ctx *Context) Name() string   { return ctx.name }
func (ctx *Context) Oid() uint32    { return ctx.oid }

// wotspCount returns 2^h, the number of leaves (and thus distinct OTS keys)
// in the tree.
func (ctx *Context) wotspCount() uint32 {
	return uint32(1) << ctx.treeHeight
}

// SignatureSize returns the size in bytes of a signature produced by ctx.
func (ctx *Context) SignatureSize() uint32 {
	return ctx.indexBytes + ctx.p.N + ctx.wotsSigBytes + ctx.treeHeight*ctx.p.N
}

// buildSeedTable derives the compact per-leaf WOTS+ seed table from a
// master secret seed: one PRF call per leaf.
func (ctx *Context) buildSeedTable(pad *scratchPad, masterSkSeed []byte) []byte {
	n := ctx.p.N
	table := make([]byte, ctx.wotspCount()*n)
	seedFn := ctx.masterSeedFunc(masterSkSeed)
	var i uint32
	for i = 0; i < ctx.wotspCount(); i++ {
		var otsAddr address
		otsAddr.setType(AddrTypeOTS)
		otsAddr.setOTS(i)
		seed, err := seedFn(pad, otsAddr)
		if err != nil {
			// seedFn only fails on a misbehaving Hash; buildSeedTable has
			// no Error-returning signature because every caller already
			// validated ctx against the same Hash used here.
			panic(err)
		}
		copy(table[i*n:(i+1)*n], seed)
	}
	return table
}

// GenerateKeyPair deterministically derives a private/public key pair from
// caller-supplied secret material: skSeed and skPrf (each ctx.p.N bytes,
// used only transiently here; the private key retains the derived compact
// seed table, not skSeed itself) and pubSeed (ctx.p.N bytes, retained
// as-is).
func (ctx *Context) GenerateKeyPair(skSeed, skPrf, pubSeed []byte) (*XMSSPrivateKey, *XMSSPublicKey, Error) {
	n := ctx.p.N
	if uint32(len(skSeed)) != n || uint32(len(skPrf)) != n || uint32(len(pubSeed)) != n {
		return nil, nil, newArgumentError("GenerateKeyPair: skSeed, skPrf and pubSeed must each be %d bytes", n)
	}

	pad := ctx.newScratchPad()
	seeds := ctx.buildSeedTable(pad, skSeed)

	subtreeAddr := rootSubTreeAddr()
	ph := precomputedHashes{pubSeed: pubSeed}
	root, err := ctx.fullTreeHash(ctx.tableSeedFunc(seeds), ph, subtreeAddr, nil)
	if err != nil {
		return nil, nil, err
	}

	sk := &XMSSPrivateKey{
		ctx:     ctx,
		NextIdx: 0,
		Seeds:   seeds,
		SkPrf:   append([]byte(nil), skPrf...),
		Root:    root,
		PubSeed: append([]byte(nil), pubSeed...),
	}
	pk := sk.PublicKey()
	return sk, pk, nil
}

// GenerateKeyPairRandom draws fresh secret material from rand (typically
// crypto/rand.Reader) and calls GenerateKeyPair.
func (ctx *Context) GenerateKeyPairRandom(rnd io.Reader) (*XMSSPrivateKey, *XMSSPublicKey, Error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	n := ctx.p.N
	buf := make([]byte, 3*n)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return nil, nil, wrapErrorf(err, "GenerateKeyPairRandom: reading random seed material")
	}
	return ctx.GenerateKeyPair(buf[:n], buf[n:2*n], buf[2*n:])
}

// BuildTreeCache computes and returns the full flat Merkle tree for sk, so
// later signatures can read their authentication path in O(h) instead of
// recomputing it with treeHash.
func (ctx *Context) BuildTreeCache(sk *XMSSPrivateKey) (*XMSSTree, Error) {
	flat := newMerkleTree(ctx.treeHeight, ctx.p.N)
	subtreeAddr := rootSubTreeAddr()
	ph := precomputedHashes{pubSeed: sk.PubSeed}
	if _, err := ctx.fullTreeHash(ctx.tableSeedFunc(sk.Seeds), ph, subtreeAddr, flat); err != nil {
		return nil, err
	}
	return &XMSSTree{ctx: ctx, tree: flat}, nil
}

// fullTreeHash computes the root of the whole tree, dispatching to the
// parallel builder when ctx.Threads allows more than one worker.
func (ctx *Context) fullTreeHash(seedFn leafSeedFunc, ph precomputedHashes,
	subtreeAddr address, flat *merkleTree) ([]byte, Error) {
	if ctx.Threads > 1 {
		return ctx.parallelTreeHash(seedFn, ph, subtreeAddr, flat)
	}
	pad := ctx.newScratchPad()
	return ctx.treeHash(pad, seedFn, ph, 0, ctx.treeHeight, subtreeAddr, flat)
}

// Sign signs msg with sk's next unused leaf and returns the signature along
// with a new private key whose NextIdx has advanced past that leaf. sk
// itself is left unmodified; discarding the returned key instead of
// persisting it risks reusing a leaf, which breaks XMSS's security
// entirely.
func (ctx *Context) Sign(sk *XMSSPrivateKey, msg []byte, cache *XMSSTree) (*XMSSSignature, *XMSSPrivateKey, Error) {
	if sk.NextIdx >= ctx.wotspCount() {
		return nil, nil, newArgumentError("Sign: private key exhausted (nextIdx=%d, wotspCount=%d)",
			sk.NextIdx, ctx.wotspCount())
	}
	pad := ctx.newScratchPad()
	var flat *merkleTree
	if cache != nil {
		flat = cache.tree
	}
	sig, err := ctx.xmssSign(pad, msg, ctx.tableSeedFunc(sk.Seeds), sk.SkPrf, sk.Root, sk.PubSeed, sk.NextIdx, flat)
	if err != nil {
		return nil, nil, err
	}
	next, err := sk.incrementIdx()
	if err != nil {
		return nil, nil, err
	}
	return sig, next, nil
}

// Verify reports whether sig is a valid signature of msg under pk.
func (ctx *Context) Verify(pk *XMSSPublicKey, msg []byte, sig *XMSSSignature) (bool, Error) {
	pad := ctx.newScratchPad()
	return ctx.xmssVerify(pad, msg, sig, pk)
}

// Sign is a package-level convenience wrapping ctx.Sign.
func Sign(ctx *Context, sk *XMSSPrivateKey, msg []byte, cache *XMSSTree) (*XMSSSignature, *XMSSPrivateKey, Error) {
	return ctx.Sign(sk, msg, cache)
}

// Verify is a package-level convenience wrapping ctx.Verify.
func Verify(ctx *Context, pk *XMSSPublicKey, msg []byte, sig *XMSSSignature) (bool, Error) {
	return ctx.Verify(pk, msg, sig)
}

// GenerateKeyPair is a package-level convenience wrapping
// ctx.GenerateKeyPairRandom.
func GenerateKeyPair(ctx *Context, rnd io.Reader) (*XMSSPrivateKey, *XMSSPublicKey, Error) {
	return ctx.GenerateKeyPairRandom(rnd)
}
