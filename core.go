package xmsscore

// merkleTree is a dense flat-array cache of one Merkle subtree of height
// rootHeight whose leftmost leaf has absolute index s. Node(height,
// absIndex) gives O(1) access to any node: level 0 (the 2^rootHeight
// leaves) first, then level 1, ..., the root last.
type merkleTree struct {
	n          uint32
	rootHeight uint32
	s          uint32
	flat       []byte
}

func newMerkleTree(rootHeight, n uint32) *merkleTree {
	return newMerkleTreeAt(rootHeight, n, 0)
}

func newMerkleTreeAt(rootHeight, n, s uint32) *merkleTree {
	size := ((uint64(1)<<(rootHeight+1) - 1) * uint64(n))
	return &merkleTree{n: n, rootHeight: rootHeight, s: s, flat: make([]byte, size)}
}

// flatTreeIndex returns the byte offset of node (height, absIndex) within a
// flat buffer for the subtree rooted at rootHeight whose leftmost leaf is s.
func flatTreeIndex(height, absIndex, s, rootHeight, n uint32) uint32 {
	localIndex := absIndex - (s >> height)
	var base uint32
	for i := uint32(0); i < height; i++ {
		base += 1 << (rootHeight - i)
	}
	return (base + localIndex) * n
}

func (mt *merkleTree) Node(height, absIndex uint32) []byte {
	off := flatTreeIndex(height, absIndex, mt.s, mt.rootHeight, mt.n)
	return mt.flat[off : off+mt.n]
}

func (mt *merkleTree) Root() []byte {
	return mt.Node(mt.rootHeight, mt.s>>mt.rootHeight)
}

// getWotsSeedInto derives the per-leaf compact WOTS+ seed from the master
// secret seed and an OTS address: PRF(skSeed, ADRS). This is the step that
// turns one master seed into the 2^h-entry compact private key table of
// run once per leaf at key-creation time.
func (ctx *Context) getWotsSeedInto(pad *scratchPad, skSeed []byte, addr address, dest []byte) Error {
	return ctx.prfAddrInto(pad, addr, skSeed, dest)
}

func (ctx *Context) getWotsSeed(pad *scratchPad, ph precomputedHashes, addr address) ([]byte, Error) {
	dest := make([]byte, ctx.p.N)
	if err := ctx.getWotsSeedInto(pad, ph.skSeed, addr, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// leafSeedFunc supplies the compact per-leaf WOTS+ seed for the leaf named
// by otsAddr (type already set to AddrTypeOTS, OTS word already set). There
// are two implementations: one derives it from the master secret seed with
// PRF, used once per leaf while building the compact private seed table at
// key-generation time; the other reads it straight out of that table, used
// every time a leaf is touched afterwards, since the private key's wire
// format retains only the table and not the master seed that produced it.
type leafSeedFunc func(pad *scratchPad, otsAddr address) ([]byte, Error)

// masterSeedFunc derives leaf seeds from a master secret seed via PRF. Used
// only while populating a freshly generated private key's seed table.
func (ctx *Context) masterSeedFunc(masterSkSeed []byte) leafSeedFunc {
	return func(pad *scratchPad, otsAddr address) ([]byte, Error) {
		return ctx.getWotsSeed(pad, precomputedHashes{skSeed: masterSkSeed}, otsAddr)
	}
}

// tableSeedFunc reads leaf seeds out of a precomputed compact seed table
// (2^h entries of n bytes, indexed by OTS leaf index). This is how signing
// and authentication-path recomputation access leaf seeds, since the master
// seed they were derived from is not part of the stored private key.
func (ctx *Context) tableSeedFunc(table []byte) leafSeedFunc {
	n := ctx.p.N
	return func(pad *scratchPad, otsAddr address) ([]byte, Error) {
		idx := otsAddr.ots()
		return table[idx*n : (idx+1)*n], nil
	}
}

// ltreeInto compresses a wotsLen-element WOTS+ public key into a single
// n-byte leaf via repeated RAND_HASH (RFC 8391, L-trees). pk is consumed but not
// mutated; the leaf is written to dest.
func (ctx *Context) ltreeInto(pad *scratchPad, pk []byte, ph precomputedHashes, addr address, dest []byte) Error {
	n := ctx.p.N
	buf := make([]byte, len(pk))
	copy(buf, pk)
	lenp := ctx.wotsLen
	addr.setTreeHeight(0)
	tmp := make([]byte, n)
	for lenp > 1 {
		var i uint32
		for i = 0; i < lenp/2; i++ {
			addr.setTreeIndex(i)
			left := buf[2*i*n : (2*i+1)*n]
			right := buf[(2*i+1)*n : (2*i+2)*n]
			if err := ctx.randHashInto(pad, left, right, ph.pubSeed, addr, tmp); err != nil {
				return err
			}
			copy(buf[i*n:(i+1)*n], tmp)
		}
		if lenp%2 == 1 {
			copy(buf[(lenp/2)*n:(lenp/2+1)*n], buf[(lenp-1)*n:lenp*n])
		}
		lenp = (lenp + 1) / 2
		addr.setTreeHeight(addr[5] + 1)
	}
	copy(dest, buf[:n])
	return nil
}

func (ctx *Context) ltree(pad *scratchPad, pk []byte, ph precomputedHashes, addr address) ([]byte, Error) {
	dest := make([]byte, ctx.p.N)
	if err := ctx.ltreeInto(pad, pk, ph, addr, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// genLeaf derives the tree leaf for OTS address otsAddr: expand its compact
// seed into a WOTS+ key pair, generate the public key and compress it with
// an L-tree.
func (ctx *Context) genLeaf(pad *scratchPad, seedFn leafSeedFunc, ph precomputedHashes,
	lTreeAddr, otsAddr address) ([]byte, Error) {
	leafSeed, err := seedFn(pad, otsAddr)
	if err != nil {
		return nil, err
	}
	pk := pad.wotsBuf()
	leafPh := precomputedHashes{pubSeed: ph.pubSeed, skSeed: leafSeed}
	if err := ctx.wotsPkGenInto(pad, leafPh, otsAddr, pk); err != nil {
		return nil, err
	}
	return ctx.ltree(pad, pk, ph, lTreeAddr)
}

// stackNode is one element of the LIFO stack treeHash maintains while
// sweeping a subtree's leaves left to right.
type stackNode struct {
	value  []byte
	height uint32
}

// treeHash builds the root of the subtree of height t whose leftmost leaf
// has absolute index s (RFC 8391's treeHash). If flat is non-nil, every
// node computed (leaves and internal) is also written into it at its
// canonical offset.
func (ctx *Context) treeHash(pad *scratchPad, seedFn leafSeedFunc, ph precomputedHashes,
	s, t uint32, subtreeAddr address, flat *merkleTree) ([]byte, Error) {
	if t > 0 && s%(1<<t) != 0 {
		return nil, newArgumentError("treeHash: s=%d is not a multiple of 2^t=%d", s, uint64(1)<<t)
	}

	stack := make([]stackNode, 0, t+1)
	var i uint32
	for i = 0; i < (uint32(1) << t); i++ {
		leafIndex := s + i

		var otsAddr, lTreeAddr address
		otsAddr.setSubTreeFrom(subtreeAddr)
		otsAddr.setType(AddrTypeOTS)
		otsAddr.setOTS(leafIndex)
		lTreeAddr.setSubTreeFrom(subtreeAddr)
		lTreeAddr.setType(AddrTypeLTree)
		lTreeAddr.setLTree(leafIndex)

		leaf, err := ctx.genLeaf(pad, seedFn, ph, lTreeAddr, otsAddr)
		if err != nil {
			return nil, err
		}

		var hashTreeAddr address
		hashTreeAddr.setSubTreeFrom(subtreeAddr)
		hashTreeAddr.setType(AddrTypeHashTree)
		hashTreeAddr.setTreeHeight(0)
		hashTreeAddr.setTreeIndex(leafIndex)

		if flat != nil {
			copy(flat.Node(0, leafIndex), leaf)
		}

		node := stackNode{value: leaf, height: 0}

		for len(stack) > 0 && stack[len(stack)-1].height == node.height {
			lower := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			parentIndex := (hashTreeAddr.treeIndex() - 1) >> 1
			hashTreeAddr.setTreeIndex(parentIndex)
			parent := make([]byte, ctx.p.N)
			if err := ctx.randHashInto(pad, lower.value, node.value, ph.pubSeed, hashTreeAddr, parent); err != nil {
				return nil, err
			}
			node = stackNode{value: parent, height: lower.height + 1}
			hashTreeAddr.setTreeHeight(node.height)

			if flat != nil {
				copy(flat.Node(node.height, parentIndex), parent)
			}
		}

		stack = append(stack, node)
	}

	if len(stack) != 1 {
		return nil, newInvariantError("treeHash: stack has %d elements, expected 1", len(stack))
	}
	return stack[0].value, nil
}
