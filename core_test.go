package xmsscore

import "testing"

func TestMerkleTree(t *testing.T) {
	var th uint32 = 3
	var h, i uint32
	mt := newMerkleTree(th, 2)
	for h = 0; h < th; h++ {
		for i = 0; i < 1<<(th-h); i++ {
			mt.Node(h, i)[0] = byte(h)
			mt.Node(h, i)[1] = byte(i)
		}
	}
	for h = 0; h < th; h++ {
		for i = 0; i < 1<<(th-h); i++ {
			if mt.Node(h, i)[0] != byte(h) || mt.Node(h, i)[1] != byte(i) {
				t.Errorf("Node(%d,%d) has wrong value", h, i)
			}
		}
	}
}

func TestLTreeDeterministic(t *testing.T) {
	ctx := testContext(t, 10, 16)
	pk := make([]byte, ctx.p.N*ctx.wotsLen)
	pubSeed := make([]byte, ctx.p.N)
	for i := range pk {
		pk[i] = byte(i)
	}
	addr := testAddr()
	ph := ctx.precomputeHashes(pubSeed, nil)

	a, err := ctx.ltree(ctx.newScratchPad(), pk, ph, addr)
	if err != nil {
		t.Fatalf("ltree: %v", err)
	}
	b, err := ctx.ltree(ctx.newScratchPad(), pk, ph, addr)
	if err != nil {
		t.Fatalf("ltree: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("ltree is not deterministic")
	}
}

func TestGenLeafMatchesTreeHashLeaf(t *testing.T) {
	ctx := testContext(t, 3, 16)
	skSeed := make([]byte, ctx.p.N)
	pubSeed := make([]byte, ctx.p.N)
	for i := range skSeed {
		skSeed[i] = byte(i)
		pubSeed[i] = byte(2 * i)
	}
	pad := ctx.newScratchPad()
	ph := precomputedHashes{pubSeed: pubSeed}
	seedFn := ctx.masterSeedFunc(skSeed)

	var subtreeAddr address
	flat := newMerkleTree(ctx.treeHeight, ctx.p.N)
	root, err := ctx.treeHash(pad, seedFn, ph, 0, ctx.treeHeight, subtreeAddr, flat)
	if err != nil {
		t.Fatalf("treeHash: %v", err)
	}
	if string(root) != string(flat.Root()) {
		t.Fatalf("treeHash's returned root does not match the cached tree's root")
	}

	var otsAddr, lTreeAddr address
	otsAddr.setType(AddrTypeOTS)
	otsAddr.setOTS(2)
	lTreeAddr.setType(AddrTypeLTree)
	lTreeAddr.setLTree(2)
	leaf, err := ctx.genLeaf(pad, seedFn, ph, lTreeAddr, otsAddr)
	if err != nil {
		t.Fatalf("genLeaf: %v", err)
	}
	if string(leaf) != string(flat.Node(0, 2)) {
		t.Fatalf("genLeaf(2) does not match the cached tree's leaf 2")
	}
}

func TestTreeHashRejectsMisalignedStart(t *testing.T) {
	ctx := testContext(t, 4, 16)
	skSeed := make([]byte, ctx.p.N)
	pubSeed := make([]byte, ctx.p.N)
	ph := precomputedHashes{pubSeed: pubSeed}
	var subtreeAddr address
	_, err := ctx.treeHash(ctx.newScratchPad(), ctx.masterSeedFunc(skSeed), ph, 1, 2, subtreeAddr, nil)
	if err == nil {
		t.Fatalf("expected an error for s=1, t=2 (s must be a multiple of 2^t)")
	}
}

func TestTreeHashMatchesParallel(t *testing.T) {
	ctx := testContext(t, 4, 16)
	skSeed := make([]byte, ctx.p.N)
	pubSeed := make([]byte, ctx.p.N)
	for i := range skSeed {
		skSeed[i] = byte(i)
	}
	ph := precomputedHashes{pubSeed: pubSeed}
	var subtreeAddr address

	seq, err := ctx.treeHash(ctx.newScratchPad(), ctx.masterSeedFunc(skSeed), ph, 0, ctx.treeHeight, subtreeAddr, nil)
	if err != nil {
		t.Fatalf("treeHash: %v", err)
	}

	ctx.Threads = 4
	par, err := ctx.parallelTreeHash(ctx.masterSeedFunc(skSeed), ph, subtreeAddr, nil)
	if err != nil {
		t.Fatalf("parallelTreeHash: %v", err)
	}
	if string(seq) != string(par) {
		t.Fatalf("parallel tree hash produced a different root than the sequential one")
	}
}

func benchmarkTreeHash(ctx *Context, b *testing.B) {
	skSeed := make([]byte, ctx.p.N)
	pubSeed := make([]byte, ctx.p.N)
	ph := precomputedHashes{pubSeed: pubSeed}
	var subtreeAddr address
	pad := ctx.newScratchPad()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx.treeHash(pad, ctx.masterSeedFunc(skSeed), ph, 0, ctx.treeHeight, subtreeAddr, nil)
	}
}

func BenchmarkTreeHash10(b *testing.B) {
	ctx, _ := NewContext(Params{Func: SHA2, Hash: testHashFactory(), N: 32, FullHeight: 10, D: 1, WotsW: 16})
	benchmarkTreeHash(ctx, b)
}
