package xmsscore

import (
	"bytes"
	"testing"
)

func testApiContext(t *testing.T, h uint32) *Context {
	ctx, err := NewContext(Params{Func: SHA2, Hash: testHashFactory(), N: 32, FullHeight: h, D: 1, WotsW: 16})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx
}

func testSeeds(n uint32) (skSeed, skPrf, pubSeed []byte) {
	skSeed = make([]byte, n)
	skPrf = make([]byte, n)
	pubSeed = make([]byte, n)
	for i := range skSeed {
		skSeed[i] = byte(i)
		skPrf[i] = byte(2 * i)
		pubSeed[i] = byte(3 * i)
	}
	return
}

// TestSignAllLeavesThenExhausted signs with every leaf of a small (h=4)
// tree, verifies each signature, and checks the (2^h+1)th sign attempt is
// refused.
func TestSignAllLeavesThenExhausted(t *testing.T) {
	ctx := testApiContext(t, 4)
	skSeed, skPrf, pubSeed := testSeeds(ctx.p.N)

	sk, pk, err := ctx.GenerateKeyPair(skSeed, skPrf, pubSeed)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	for i := uint32(0); i < ctx.wotspCount(); i++ {
		msg := encodeUint64(uint64(i), int(ctx.p.N))
		sig, next, err := ctx.Sign(sk, msg, nil)
		if err != nil {
			t.Fatalf("Sign(%d): %v", i, err)
		}
		if sig.Idx != i {
			t.Fatalf("Sign(%d): signature used leaf %d", i, sig.Idx)
		}
		ok, err := ctx.Verify(pk, msg, sig)
		if err != nil {
			t.Fatalf("Verify(%d): %v", i, err)
		}
		if !ok {
			t.Fatalf("Verify(%d): genuine signature did not verify", i)
		}
		sk = next
	}

	if sk.NextIdx != ctx.wotspCount() {
		t.Fatalf("NextIdx=%d after signing every leaf, want %d", sk.NextIdx, ctx.wotspCount())
	}
	if _, _, err := ctx.Sign(sk, make([]byte, ctx.p.N), nil); err == nil {
		t.Fatalf("Sign on an exhausted key should have been refused")
	}
}

// TestVerifyRejectsWrongMessageAndTamperedAuth: verifying a different
// message fails, and so does flipping a single bit of the authentication
// path or of the WOTS+ signature.
func TestVerifyRejectsWrongMessageAndTamperedAuth(t *testing.T) {
	ctx := testApiContext(t, 4)
	skSeed, skPrf, pubSeed := testSeeds(ctx.p.N)
	sk, pk, err := ctx.GenerateKeyPair(skSeed, skPrf, pubSeed)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	msg := make([]byte, ctx.p.N)
	sig, _, err := ctx.Sign(sk, msg, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	ok, err := ctx.Verify(pk, msg, sig)
	if err != nil || !ok {
		t.Fatalf("Verify of genuine signature failed: ok=%v err=%v", ok, err)
	}

	wrongMsg := make([]byte, ctx.p.N)
	wrongMsg[0] = 1
	ok, err = ctx.Verify(pk, wrongMsg, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("Verify accepted a signature of a different message")
	}

	tampered := *sig
	tampered.AuthPath = append([]byte(nil), sig.AuthPath...)
	tampered.AuthPath[7] ^= 0x01
	ok, err = ctx.Verify(pk, msg, &tampered)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("Verify accepted a signature with a tampered authentication path")
	}

	tamperedSig := *sig
	tamperedSig.WotsSig = append([]byte(nil), sig.WotsSig...)
	tamperedSig.WotsSig[0] ^= 0x01
	ok, err = ctx.Verify(pk, msg, &tamperedSig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("Verify accepted a signature with a tampered WOTS+ signature")
	}
}

// TestTreeCacheEquivalence checks sequential and parallel tree builds at
// h=6 produce byte-identical flat trees and roots, and that signatures
// produced from the cache verify.
func TestTreeCacheEquivalence(t *testing.T) {
	ctx := testApiContext(t, 6)
	skSeed, skPrf, pubSeed := testSeeds(ctx.p.N)
	sk, pk, err := ctx.GenerateKeyPair(skSeed, skPrf, pubSeed)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	seqTree, err := ctx.BuildTreeCache(sk)
	if err != nil {
		t.Fatalf("BuildTreeCache (sequential): %v", err)
	}
	if !bytes.Equal(seqTree.Root(), pk.Root) {
		t.Fatalf("sequentially cached tree root does not match the public key root")
	}

	for _, parallelism := range []int{2, 3, 4, 8} {
		ctx.Threads = parallelism
		parTree, err := ctx.BuildTreeCache(sk)
		if err != nil {
			t.Fatalf("BuildTreeCache (parallelism=%d): %v", parallelism, err)
		}
		if !bytes.Equal(parTree.tree.flat, seqTree.tree.flat) {
			t.Fatalf("parallelism=%d: flat tree differs from the sequential build", parallelism)
		}
		if !bytes.Equal(parTree.Root(), seqTree.Root()) {
			t.Fatalf("parallelism=%d: root differs from the sequential build", parallelism)
		}
	}
	ctx.Threads = 0

	msg := make([]byte, ctx.p.N)
	sig, _, err := ctx.Sign(sk, msg, seqTree)
	if err != nil {
		t.Fatalf("Sign with cache: %v", err)
	}
	ok, err := ctx.Verify(pk, msg, sig)
	if err != nil || !ok {
		t.Fatalf("Verify of cache-assisted signature failed: ok=%v err=%v", ok, err)
	}
}

// TestStoreAndNoStoreRootsAgree: at h=8, the root computed without
// storing any nodes equals the root read out of a cached build of the same
// inputs.
func TestStoreAndNoStoreRootsAgree(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping h=8 tree builds in short mode")
	}
	ctx := testApiContext(t, 8)
	skSeed, skPrf, pubSeed := testSeeds(ctx.p.N)
	sk, pk, err := ctx.GenerateKeyPair(skSeed, skPrf, pubSeed)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	tree, err := ctx.BuildTreeCache(sk)
	if err != nil {
		t.Fatalf("BuildTreeCache: %v", err)
	}
	if !bytes.Equal(tree.Root(), pk.Root) {
		t.Fatalf("root read from the cached tree differs from the root computed without storing")
	}
}

// TestReadAuthMatchesComputeAuth: every leaf's authentication path read
// from a cached tree matches the path recomputed from scratch.
func TestReadAuthMatchesComputeAuth(t *testing.T) {
	ctx := testApiContext(t, 4)
	skSeed, skPrf, pubSeed := testSeeds(ctx.p.N)
	sk, _, err := ctx.GenerateKeyPair(skSeed, skPrf, pubSeed)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	tree, err := ctx.BuildTreeCache(sk)
	if err != nil {
		t.Fatalf("BuildTreeCache: %v", err)
	}

	pad := ctx.newScratchPad()
	ph := precomputedHashes{pubSeed: sk.PubSeed}
	seedFn := ctx.tableSeedFunc(sk.Seeds)
	var subtreeAddr address

	for idx := uint32(0); idx < ctx.wotspCount(); idx++ {
		fromCache := ctx.readAuth(idx, tree.tree)
		computed, err := ctx.computeAuth(pad, seedFn, ph, idx, subtreeAddr)
		if err != nil {
			t.Fatalf("computeAuth(%d): %v", idx, err)
		}
		if !bytes.Equal(fromCache, computed) {
			t.Fatalf("readAuth(%d) does not match computeAuth(%d)", idx, idx)
		}
	}
}

// TestPublicKeySerializationRoundTripByOid exercises DeserializeXMSSPublicKey,
// which recovers Params from the registry by oid: the context must be one
// of the named registry entries, unlike the other
// serialization round trips below which keep an explicit Context around.
func TestPublicKeySerializationRoundTripByOid(t *testing.T) {
	ctx := testApiContext(t, 10)
	if ctx.oid == 0 {
		t.Fatalf("test context must resolve to a registered oid")
	}
	skSeed, skPrf, pubSeed := testSeeds(ctx.p.N)
	_, pk, err := ctx.GenerateKeyPair(skSeed, skPrf, pubSeed)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	pkBytes := pk.Serialize()
	pk2, err := DeserializeXMSSPublicKey(pkBytes, map[uint32]HashFactory{ctx.oid: ctx.p.Hash})
	if err != nil {
		t.Fatalf("DeserializeXMSSPublicKey: %v", err)
	}
	if !bytes.Equal(pk2.Serialize(), pkBytes) {
		t.Fatalf("public key did not round-trip through Serialize/Deserialize")
	}
}

// TestKeySignatureSerializationRoundTrip checks the private key and
// signature wire formats round-trip byte-exactly.
func TestKeySignatureSerializationRoundTrip(t *testing.T) {
	ctx := testApiContext(t, 4)
	skSeed, skPrf, pubSeed := testSeeds(ctx.p.N)
	sk, pk, err := ctx.GenerateKeyPair(skSeed, skPrf, pubSeed)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	skBytes := sk.Serialize()
	sk2, err := ctx.DeserializePrivateKey(skBytes)
	if err != nil {
		t.Fatalf("DeserializePrivateKey: %v", err)
	}
	if !bytes.Equal(sk2.Serialize(), skBytes) {
		t.Fatalf("private key did not round-trip through Serialize/Deserialize")
	}

	msg := make([]byte, ctx.p.N)
	sig, _, err := ctx.Sign(sk, msg, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sigBytes := sig.Serialize()
	sig2, err := ctx.DeserializeSignature(sigBytes)
	if err != nil {
		t.Fatalf("DeserializeSignature: %v", err)
	}
	if !bytes.Equal(sig2.Serialize(), sigBytes) {
		t.Fatalf("signature did not round-trip through Serialize/Deserialize")
	}
	ok, err := ctx.Verify(pk, msg, sig2)
	if err != nil || !ok {
		t.Fatalf("Verify of a deserialized signature failed: ok=%v err=%v", ok, err)
	}
}

// TestTreeSerializationRoundTrip exercises the tree-cache wire format and
// its xxhash integrity check.
func TestTreeSerializationRoundTrip(t *testing.T) {
	ctx := testApiContext(t, 4)
	skSeed, skPrf, pubSeed := testSeeds(ctx.p.N)
	sk, _, err := ctx.GenerateKeyPair(skSeed, skPrf, pubSeed)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	tree, err := ctx.BuildTreeCache(sk)
	if err != nil {
		t.Fatalf("BuildTreeCache: %v", err)
	}

	buf := tree.Serialize()
	tree2, err := DeserializeXMSSTree(ctx, buf)
	if err != nil {
		t.Fatalf("DeserializeXMSSTree: %v", err)
	}
	if !bytes.Equal(tree2.Root(), tree.Root()) {
		t.Fatalf("deserialized tree has a different root")
	}

	buf[20] ^= 0x01
	if _, err := DeserializeXMSSTree(ctx, buf); err == nil {
		t.Fatalf("DeserializeXMSSTree accepted a corrupted buffer")
	}
}

// TestMinimalTree exercises the two-leaf h=1 boundary: both leaves sign and
// verify, and the third sign attempt is refused.
func TestMinimalTree(t *testing.T) {
	ctx := testApiContext(t, 1)
	skSeed, skPrf, pubSeed := testSeeds(ctx.p.N)
	sk, pk, err := ctx.GenerateKeyPair(skSeed, skPrf, pubSeed)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	for i := 0; i < 2; i++ {
		msg := encodeUint64(uint64(i), int(ctx.p.N))
		sig, next, err := ctx.Sign(sk, msg, nil)
		if err != nil {
			t.Fatalf("Sign(%d): %v", i, err)
		}
		ok, err := ctx.Verify(pk, msg, sig)
		if err != nil || !ok {
			t.Fatalf("Verify(%d) failed: ok=%v err=%v", i, ok, err)
		}
		sk = next
	}
	if _, _, err := ctx.Sign(sk, make([]byte, ctx.p.N), nil); err == nil {
		t.Fatalf("a two-leaf key must refuse a third signature")
	}
}

func TestGenerateKeyPairRandomProducesUsableKey(t *testing.T) {
	ctx := testApiContext(t, 2)
	sk, pk, err := ctx.GenerateKeyPairRandom(nil)
	if err != nil {
		t.Fatalf("GenerateKeyPairRandom: %v", err)
	}
	msg := make([]byte, ctx.p.N)
	sig, _, err := ctx.Sign(sk, msg, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := ctx.Verify(pk, msg, sig)
	if err != nil || !ok {
		t.Fatalf("Verify failed: ok=%v err=%v", ok, err)
	}
}
