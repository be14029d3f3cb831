package xmsscore

import (
	"bytes"
	"crypto/subtle"
)

// computeAuth re-derives the h-sibling authentication path for leaf idx by
// running treeHash on each sibling subtree.
func (ctx *Context) computeAuth(pad *scratchPad, seedFn leafSeedFunc, ph precomputedHashes,
	idx uint32, subtreeAddr address) ([]byte, Error) {
	n := ctx.p.N
	auth := make([]byte, ctx.treeHeight*n)
	var j uint32
	for j = 0; j < ctx.treeHeight; j++ {
		k := (idx >> j) ^ 1
		sibling, err := ctx.treeHash(pad, seedFn, ph, k<<j, j, subtreeAddr, nil)
		if err != nil {
			return nil, err
		}
		copy(auth[j*n:(j+1)*n], sibling)
	}
	return auth, nil
}

// readAuth reads the same h-sibling authentication path out of a
// precomputed flat tree cache in O(h) instead of recomputing it.
func (ctx *Context) readAuth(idx uint32, flat *merkleTree) []byte {
	n := ctx.p.N
	auth := make([]byte, ctx.treeHeight*n)
	var j uint32
	for j = 0; j < ctx.treeHeight; j++ {
		k := (idx >> j) ^ 1
		copy(auth[j*n:(j+1)*n], flat.Node(j, k))
	}
	return auth
}

// treeSig produces the (wotsSig, auth) pair of RFC 8391's treeSig for leaf idx.
// If flat is non-nil the authentication path is read from the cache;
// otherwise it is recomputed by treeHash.
func (ctx *Context) treeSig(pad *scratchPad, msgPrime []byte, seedFn leafSeedFunc, ph precomputedHashes,
	idx uint32, subtreeAddr address, flat *merkleTree) (wotsSig, auth []byte, err Error) {
	if flat != nil {
		auth = ctx.readAuth(idx, flat)
	} else {
		auth, err = ctx.computeAuth(pad, seedFn, ph, idx, subtreeAddr)
		if err != nil {
			return nil, nil, err
		}
	}

	var otsAddr address
	otsAddr.setSubTreeFrom(subtreeAddr)
	otsAddr.setType(AddrTypeOTS)
	otsAddr.setOTS(idx)

	leafSeed, err := seedFn(pad, otsAddr)
	if err != nil {
		return nil, nil, err
	}
	leafPh := precomputedHashes{pubSeed: ph.pubSeed, skSeed: leafSeed}
	wotsSig, err = ctx.wotsSign(pad, msgPrime, leafPh, otsAddr)
	if err != nil {
		return nil, nil, err
	}
	return wotsSig, auth, nil
}

// rootFromSig recomputes the candidate root implied by a WOTS+ signature
// and authentication path at leaf idx (RFC 8391's XMSS_rootFromSig).
func (ctx *Context) rootFromSig(pad *scratchPad, msgPrime []byte, idx uint32,
	wotsSig, auth, pubSeed []byte, subtreeAddr address) ([]byte, Error) {
	n := ctx.p.N
	if uint32(len(auth)) != ctx.treeHeight*n {
		return nil, newArgumentError("rootFromSig: auth path must be %d bytes, got %d",
			ctx.treeHeight*n, len(auth))
	}

	var otsAddr, lTreeAddr, nodeAddr address
	otsAddr.setSubTreeFrom(subtreeAddr)
	otsAddr.setType(AddrTypeOTS)
	otsAddr.setOTS(idx)
	ph := precomputedHashes{pubSeed: pubSeed}
	pkOts, err := ctx.wotsPkFromSig(pad, wotsSig, msgPrime, ph, otsAddr)
	if err != nil {
		return nil, err
	}

	lTreeAddr.setSubTreeFrom(subtreeAddr)
	lTreeAddr.setType(AddrTypeLTree)
	lTreeAddr.setLTree(idx)
	node, err := ctx.ltree(pad, pkOts, ph, lTreeAddr)
	if err != nil {
		return nil, err
	}

	nodeAddr.setSubTreeFrom(subtreeAddr)
	nodeAddr.setType(AddrTypeHashTree)
	treeIndex := idx
	nodeAddr.setTreeIndex(treeIndex)

	var k uint32
	for k = 0; k < ctx.treeHeight; k++ {
		nodeAddr.setTreeHeight(k)
		sibling := auth[k*n : (k+1)*n]
		var next []byte
		if (idx>>k)&1 == 0 {
			treeIndex >>= 1
			nodeAddr.setTreeIndex(treeIndex)
			next, err = ctx.randHash(pad, node, sibling, pubSeed, nodeAddr)
		} else {
			treeIndex = (treeIndex - 1) >> 1
			nodeAddr.setTreeIndex(treeIndex)
			next, err = ctx.randHash(pad, sibling, node, pubSeed, nodeAddr)
		}
		if err != nil {
			return nil, err
		}
		node = next
	}
	return node, nil
}

// xmssSign implements RFC 8391's XMSS_sign: idx is the private key's nextIdx,
// already validated by the caller as < 2^h. The caller is responsible for
// advancing nextIdx (via incrementIdx) before releasing the returned
// signature to anyone else.
func (ctx *Context) xmssSign(pad *scratchPad, msg []byte, seedFn leafSeedFunc, skPrf, root, pubSeed []byte,
	idx uint32, flat *merkleTree) (*XMSSSignature, Error) {
	r, err := ctx.prfUint64(pad, uint64(idx), skPrf)
	if err != nil {
		return nil, err
	}
	msgPrime, err := ctx.hashMessageBytes(pad, msg, r, root, uint64(idx))
	if err != nil {
		return nil, err
	}

	subtreeAddr := rootSubTreeAddr()
	ph := precomputedHashes{pubSeed: pubSeed}
	wotsSig, auth, err := ctx.treeSig(pad, msgPrime, seedFn, ph, idx, subtreeAddr, flat)
	if err != nil {
		return nil, err
	}

	return &XMSSSignature{ctx: ctx, Idx: idx, R: r, WotsSig: wotsSig, AuthPath: auth}, nil
}

// xmssVerify implements RFC 8391's XMSS_verify.
func (ctx *Context) xmssVerify(pad *scratchPad, msg []byte, sig *XMSSSignature, pk *XMSSPublicKey) (bool, Error) {
	if sig.Idx >= ctx.wotspCount() {
		return false, newArgumentError("xmssVerify: idx=%d out of range for h=%d", sig.Idx, ctx.treeHeight)
	}
	if uint32(len(sig.WotsSig)) != ctx.wotsSigBytes ||
		uint32(len(sig.AuthPath)) != ctx.treeHeight*ctx.p.N ||
		uint32(len(sig.R)) != ctx.p.N {
		return false, newArgumentError("xmssVerify: malformed signature")
	}

	msgPrime, err := ctx.hashMessageBytes(pad, msg, sig.R, pk.Root, uint64(sig.Idx))
	if err != nil {
		return false, err
	}

	subtreeAddr := rootSubTreeAddr()
	candidate, err := ctx.rootFromSig(pad, msgPrime, sig.Idx, sig.WotsSig, sig.AuthPath, pk.PubSeed, subtreeAddr)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(candidate, pk.Root) == 1, nil
}

func (ctx *Context) hashMessageBytes(pad *scratchPad, msg, r, root []byte, idx uint64) ([]byte, Error) {
	return ctx.hashMessage(pad, bytes.NewReader(msg), r, root, idx)
}
