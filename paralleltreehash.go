package xmsscore

import (
	"sync"

	multierror "github.com/hashicorp/go-multierror"
)

// parallelTreeHash computes the same root as calling treeHash over the
// whole tree (s=0, t=ctx.treeHeight), but spreads the 2^h leaves across
// ctx.Threads goroutines: the tree is partitioned into equal-height
// subtrees, each built independently (and, if flat is non-nil, written into
// the shared cache) by one worker, then the resulting subtree roots are
// merged bottom-up. The shared flat cache is only
// ever touched inside treeHash's own writes, which this function never
// calls concurrently on overlapping ranges, so no lock is needed beyond the
// one guarding subRoots/errs below.
func (ctx *Context) parallelTreeHash(seedFn leafSeedFunc, ph precomputedHashes,
	subtreeAddr address, flat *merkleTree) ([]byte, Error) {

	if ctx.Threads < 2 {
		log.Logf("parallelTreeHash: Threads=%d, falling back to sequential treeHash", ctx.Threads)
		pad := ctx.newScratchPad()
		return ctx.treeHash(pad, seedFn, ph, 0, ctx.treeHeight, subtreeAddr, flat)
	}

	p := batchHeight(ctx.treeHeight, ctx.Threads)
	taskCount := uint32(1) << (ctx.treeHeight - p)

	subRoots := make([][]byte, taskCount)

	jobs := make(chan uint32, taskCount)
	var i uint32
	for i = 0; i < taskCount; i++ {
		jobs <- i << p
	}
	close(jobs)

	var mu sync.Mutex
	var wg sync.WaitGroup
	var errs *multierror.Error

	threads := ctx.Threads
	if threads > int(taskCount) {
		threads = int(taskCount)
	}
	wg.Add(threads)
	for w := 0; w < threads; w++ {
		go func() {
			defer wg.Done()
			pad := ctx.newScratchPad()
			for s := range jobs {
				root, err := ctx.treeHash(pad, seedFn, ph, s, p, subtreeAddr, flat)
				mu.Lock()
				if err != nil {
					errs = multierror.Append(errs, err)
				} else {
					subRoots[s>>p] = root
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		return nil, wrapErrorf(err, "parallel tree hash")
	}

	return ctx.mergeSubRoots(subRoots, p, ph, subtreeAddr, flat)
}

// mergeSubRoots combines the taskCount subtree roots (each of height p) into
// the single root of the full tree, sequentially: this part does at most
// taskCount-1 hash calls, dwarfed by the work already done building the
// subtrees, so it is not itself parallelized.
func (ctx *Context) mergeSubRoots(subRoots [][]byte, p uint32, ph precomputedHashes,
	subtreeAddr address, flat *merkleTree) ([]byte, Error) {
	pad := ctx.newScratchPad()
	level := subRoots
	height := p
	for uint32(len(level)) > 1 {
		next := make([][]byte, len(level)/2)
		var nodeAddr address
		nodeAddr.setSubTreeFrom(subtreeAddr)
		nodeAddr.setType(AddrTypeHashTree)
		nodeAddr.setTreeHeight(height)
		for j := range next {
			nodeAddr.setTreeIndex(uint32(j))
			node, err := ctx.randHash(pad, level[2*j], level[2*j+1], ph.pubSeed, nodeAddr)
			if err != nil {
				return nil, err
			}
			next[j] = node
			if flat != nil {
				copy(flat.Node(height+1, uint32(j)), node)
			}
		}
		level = next
		height++
	}
	return level[0], nil
}

// batchHeight picks p, the height of each worker's subtree: the largest
// p in [1, h) with 2^p * threads < 2^h, so there are strictly more than
// `threads` independent batches to spread across the pool. Falls back to
// p=1 when no such height exists (small trees, or thread counts close to
// 2^h).
func batchHeight(h uint32, threads int) uint32 {
	var p uint32 = 1
	var cand uint32
	for cand = 1; cand < h; cand++ {
		if (uint64(1)<<cand)*uint64(threads) < uint64(1)<<h {
			p = cand
		}
	}
	return p
}
