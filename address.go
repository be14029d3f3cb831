package xmsscore

// Type tags for the three ADRS variants.
const (
	AddrTypeOTS      = 0
	AddrTypeLTree    = 1
	AddrTypeHashTree = 2
)

// address is the 32-byte typed structure from RFC 8391 §2.5 that makes every
// keyed hash call domain-unique by its position in the tree: eight
// big-endian 32-bit words. Words 0 (layer), 1-2 (64-bit tree address),
// 3 (type) and 7 (keyAndMask) are shared by all variants; words 4-6 are
// reinterpreted depending on the current type (see setType).
type address [8]uint32

func (addr *address) setLayer(layer uint32) {
	addr[0] = layer
}

// setTree writes the full 64-bit tree address across words 1 and 2. Single
// tree XMSS never sets the high word to anything but zero, but the field
// stays 64 bits wide so the wire format does not need to change if a
// multi-tree mode is added later.
func (addr *address) setTree(tree uint64) {
	addr[1] = uint32(tree >> 32)
	addr[2] = uint32(tree)
}

// setType rewrites the type word and zeroes the variant-specific words and
// keyAndMask. Skipping this zeroing would leak address bits from whatever
// variant was previously stored into this slot's PRF inputs, silently
// producing non-RFC hashes.
func (addr *address) setType(typ uint32) {
	addr[3] = typ
	addr[4] = 0
	addr[5] = 0
	addr[6] = 0
	addr[7] = 0
}

func (addr *address) setKeyAndMask(keyAndMask uint32) {
	addr[7] = keyAndMask
}

// setSubTreeFrom copies the layer and tree-address words from other,
// leaving the type and variant-specific words untouched.
func (addr *address) setSubTreeFrom(other address) {
	addr[0] = other[0]
	addr[1] = other[1]
	addr[2] = other[2]
}

// rootSubTreeAddr returns the address of the one tree this library signs
// with: layer 0, tree address 0.
func rootSubTreeAddr() (addr address) {
	addr.setLayer(0)
	addr.setTree(0)
	return
}

// setOTS sets the OTS address word. Meaningful only when the type word is
// AddrTypeOTS; the type is not checked.
func (addr *address) setOTS(ots uint32) {
	addr[4] = ots
}

// setChain sets the chain address word. Meaningful only when the type word
// is AddrTypeOTS; the type is not checked.
func (addr *address) setChain(chain uint32) {
	addr[5] = chain
}

// setHash sets the hash address word. Meaningful only when the type word is
// AddrTypeOTS; the type is not checked.
func (addr *address) setHash(hash uint32) {
	addr[6] = hash
}

// setLTree sets the L-tree address word. Meaningful only when the type word
// is AddrTypeLTree; the type is not checked.
func (addr *address) setLTree(ltree uint32) {
	addr[4] = ltree
}

// setTreeHeight sets the tree-height word, shared by the LTree and
// HashTree variants.
func (addr *address) setTreeHeight(treeHeight uint32) {
	addr[5] = treeHeight
}

// setTreeIndex sets the tree-index word, shared by the LTree and HashTree
// variants.
func (addr *address) setTreeIndex(treeIndex uint32) {
	addr[6] = treeIndex
}

func (addr *address) treeIndex() uint32 {
	return addr[6]
}

// ots returns the OTS address word set by setOTS.
func (addr *address) ots() uint32 {
	return addr[4]
}

// toBytes returns the 32-byte big-endian wire encoding of addr.
func (addr *address) toBytes() []byte {
	buf := make([]byte, 32)
	addr.writeInto(buf)
	return buf
}

func (addr *address) writeInto(buf []byte) {
	for i := 0; i < 8; i++ {
		encodeUint64Into(uint64(addr[i]), buf[i*4:(i+1)*4])
	}
}
