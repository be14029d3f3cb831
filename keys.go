package xmsscore

import "github.com/cespare/xxhash"

// XMSSPublicKey is the root and public seed of one XMSS instance. Its wire
// format is 4 + 2n bytes: a big-endian oid, the n-byte root, and the n-byte
// public seed.
type XMSSPublicKey struct {
	ctx     *Context
	Root    []byte
	PubSeed []byte
}

func (pk *XMSSPublicKey) Serialize() []byte {
	n := pk.ctx.p.N
	buf := make([]byte, 4+2*n)
	encodeUint64Into(uint64(pk.ctx.oid), buf[:4])
	copy(buf[4:4+n], pk.Root)
	copy(buf[4+n:4+2*n], pk.PubSeed)
	return buf
}

// DeserializeXMSSPublicKey parses a public key serialized by Serialize. oid
// must be a registered instance, since N and FullHeight are not otherwise
// recoverable from the bytes alone.
func DeserializeXMSSPublicKey(buf []byte, hashFactories map[uint32]HashFactory) (*XMSSPublicKey, Error) {
	if len(buf) < 4 {
		return nil, newArgumentError("public key too short: %d bytes", len(buf))
	}
	oid := uint32(decodeUint64(buf[:4]))
	params := ParamsFromOid(oid)
	if params == nil {
		return nil, newArgumentError("public key: unknown oid %d", oid)
	}
	hf, ok := hashFactories[oid]
	if !ok {
		return nil, newArgumentError("public key: no hash factory supplied for oid %d", oid)
	}
	params.Hash = hf
	ctx, err := NewContext(*params)
	if err != nil {
		return nil, err
	}
	n := ctx.p.N
	if uint32(len(buf)) != 4+2*n {
		return nil, newArgumentError("public key must be %d bytes, got %d", 4+2*n, len(buf))
	}
	return &XMSSPublicKey{
		ctx:     ctx,
		Root:    append([]byte(nil), buf[4:4+n]...),
		PubSeed: append([]byte(nil), buf[4+n:4+2*n]...),
	}, nil
}

// XMSSSignature is one XMSS signature: a leaf index, a message randomizer,
// a WOTS+ signature and an authentication path. Wire format is
// 4 + n + len*n + h*n bytes.
type XMSSSignature struct {
	ctx      *Context
	Idx      uint32
	R        []byte
	WotsSig  []byte
	AuthPath []byte
}

func (sig *XMSSSignature) Serialize() []byte {
	n := sig.ctx.p.N
	buf := make([]byte, sig.ctx.SignatureSize())
	encodeUint64Into(uint64(sig.Idx), buf[:4])
	off := uint32(4)
	copy(buf[off:off+n], sig.R)
	off += n
	copy(buf[off:off+sig.ctx.wotsSigBytes], sig.WotsSig)
	off += sig.ctx.wotsSigBytes
	copy(buf[off:], sig.AuthPath)
	return buf
}

func (ctx *Context) DeserializeSignature(buf []byte) (*XMSSSignature, Error) {
	if uint32(len(buf)) != ctx.SignatureSize() {
		return nil, newArgumentError("signature must be %d bytes, got %d", ctx.SignatureSize(), len(buf))
	}
	n := ctx.p.N
	idx := uint32(decodeUint64(buf[:4]))
	off := uint32(4)
	r := append([]byte(nil), buf[off:off+n]...)
	off += n
	wotsSig := append([]byte(nil), buf[off:off+ctx.wotsSigBytes]...)
	off += ctx.wotsSigBytes
	auth := append([]byte(nil), buf[off:]...)
	return &XMSSSignature{ctx: ctx, Idx: idx, R: r, WotsSig: wotsSig, AuthPath: auth}, nil
}

// XMSSPrivateKey holds the compact per-leaf WOTS+ seed table rather than the
// master secret seed it was derived from: signing and authentication-path
// recomputation only ever need to look a leaf's seed up by index, and
// keeping the table (not the master seed) on the wire keeps a fixed
// private-key layout and lets a key be used without remembering how it was
// generated.
type XMSSPrivateKey struct {
	ctx     *Context
	NextIdx uint32
	Seeds   []byte // 2^h * n bytes, one compact WOTS+ seed per leaf
	SkPrf   []byte
	Root    []byte
	PubSeed []byte
}

func (sk *XMSSPrivateKey) Serialize() []byte {
	n := sk.ctx.p.N
	buf := make([]byte, 4+uint32(len(sk.Seeds))+3*n)
	encodeUint64Into(uint64(sk.NextIdx), buf[:4])
	off := uint32(4)
	copy(buf[off:off+uint32(len(sk.Seeds))], sk.Seeds)
	off += uint32(len(sk.Seeds))
	copy(buf[off:off+n], sk.SkPrf)
	off += n
	copy(buf[off:off+n], sk.Root)
	off += n
	copy(buf[off:off+n], sk.PubSeed)
	return buf
}

func (ctx *Context) DeserializePrivateKey(buf []byte) (*XMSSPrivateKey, Error) {
	n := ctx.p.N
	seedsLen := ctx.wotspCount() * n
	want := 4 + seedsLen + 3*n
	if uint32(len(buf)) != want {
		return nil, newArgumentError("private key must be %d bytes, got %d", want, len(buf))
	}
	nextIdx := uint32(decodeUint64(buf[:4]))
	off := uint32(4)
	seeds := append([]byte(nil), buf[off:off+seedsLen]...)
	off += seedsLen
	skPrf := append([]byte(nil), buf[off:off+n]...)
	off += n
	root := append([]byte(nil), buf[off:off+n]...)
	off += n
	pubSeed := append([]byte(nil), buf[off:off+n]...)
	return &XMSSPrivateKey{ctx: ctx, NextIdx: nextIdx, Seeds: seeds, SkPrf: skPrf, Root: root, PubSeed: pubSeed}, nil
}

// incrementIdx returns a new private key with NextIdx advanced by one,
// leaving sk itself unchanged. It refuses to advance past 2^h: every leaf
// must be used at most once.
func (sk *XMSSPrivateKey) incrementIdx() (*XMSSPrivateKey, Error) {
	if sk.NextIdx+1 > sk.ctx.wotspCount() {
		return nil, newArgumentError("private key exhausted: nextIdx=%d, wotspCount=%d",
			sk.NextIdx, sk.ctx.wotspCount())
	}
	next := *sk
	next.NextIdx = sk.NextIdx + 1
	return &next, nil
}

func (sk *XMSSPrivateKey) PublicKey() *XMSSPublicKey {
	return &XMSSPublicKey{ctx: sk.ctx, Root: sk.Root, PubSeed: sk.PubSeed}
}

// XMSSTree is a cached flat Merkle tree together with a fast
// non-cryptographic integrity digest so a large cache file can be rejected
// quickly if corrupted, without paying for a full tree recomputation first.
// Wire format is h and n as big-endian uint32s, the flat tree bytes, and
// an 8-byte xxhash digest of those bytes.
type XMSSTree struct {
	ctx  *Context
	tree *merkleTree
}

func (xt *XMSSTree) Serialize() []byte {
	n := xt.tree.n
	h := xt.tree.rootHeight
	body := make([]byte, 8+uint32(len(xt.tree.flat)))
	encodeUint64Into(uint64(h), body[:4])
	encodeUint64Into(uint64(n), body[4:8])
	copy(body[8:], xt.tree.flat)

	digest := xxhash.Sum64(body)
	out := make([]byte, len(body)+8)
	copy(out, body)
	encodeUint64Into(digest, out[len(body):])
	return out
}

func DeserializeXMSSTree(ctx *Context, buf []byte) (*XMSSTree, Error) {
	if len(buf) < 16 {
		return nil, newArgumentError("tree cache too short: %d bytes", len(buf))
	}
	body, digestBytes := buf[:len(buf)-8], buf[len(buf)-8:]
	want := decodeUint64(digestBytes)
	got := xxhash.Sum64(body)
	if want != got {
		return nil, newArgumentError("tree cache failed integrity check")
	}

	h := uint32(decodeUint64(body[:4]))
	n := uint32(decodeUint64(body[4:8]))
	if n != ctx.p.N || h != ctx.treeHeight {
		return nil, newArgumentError("tree cache parameters (h=%d,n=%d) do not match context (h=%d,n=%d)",
			h, n, ctx.treeHeight, ctx.p.N)
	}
	flat := append([]byte(nil), body[8:]...)
	return &XMSSTree{ctx: ctx, tree: &merkleTree{n: n, rootHeight: h, s: 0, flat: flat}}, nil
}

func (xt *XMSSTree) Root() []byte {
	return xt.tree.Root()
}
