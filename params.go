//go:generate enumer -type HashFunc

package xmsscore

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// HashFunc names which concrete digest a named XMSS instance expects. The
// core itself never picks a concrete digest: callers supply a matching
// HashFactory (see the hashimpl subpackage) and NewContext checks it
// against N.
type HashFunc uint8

const (
	SHA2 HashFunc = iota
	SHAKE
	SHAKE256
)

// Params are the immutable parameters of an XMSS instance (RFC 8391's
// single-tree XMSS only; D is kept at 1 and rejected otherwise, so the
// registry below stays a strict subset of the wider XMSS^MT tables other
// implementations carry).
type Params struct {
	Func HashFunc // descriptive tag used for Name()/Oid lookup
	Hash HashFactory

	N          uint32 // digest length in bytes; must be a power of two
	FullHeight uint32 // tree height h > 0
	D          uint32 // must be 1 (XMSS^MT is a Non-goal)
	WotsW      uint16 // Winternitz parameter, 4 or 16

	// AllowUntestedW4 must be set to construct a Context with WotsW=4.
	// w=4 is declared by RFC 8391 but has
	// no independently verified test vectors in this implementation.
	AllowUntestedW4 bool
}

func (p Params) String() string {
	wString := ""
	if p.WotsW != 16 {
		wString = fmt.Sprintf("_w%d", p.WotsW)
	}
	return fmt.Sprintf("XMSS-%s_%d_%d%s", p.Func, p.FullHeight, p.N*8, wString)
}

// regEntry is one row of the named-algorithm registry.
type regEntry struct {
	name string
	oid  uint32
	hash HashFunc
	n    uint32
	h    uint32
	w    uint16
}

// registry lists the RFC 8391 and NIST SP 800-208 single-tree XMSS
// instances. Oids 1-6 are RFC 8391's fixed table (SHA-256 at h=10/16/20,
// SHA-512 at h=10/16/20); the remaining entries extend it with the SHAKE
// variants of NIST SP 800-208.
var registry = []regEntry{
	{"XMSS-SHA2_10_256", 1, SHA2, 32, 10, 16},
	{"XMSS-SHA2_16_256", 2, SHA2, 32, 16, 16},
	{"XMSS-SHA2_20_256", 3, SHA2, 32, 20, 16},
	{"XMSS-SHA2_10_512", 4, SHA2, 64, 10, 16},
	{"XMSS-SHA2_16_512", 5, SHA2, 64, 16, 16},
	{"XMSS-SHA2_20_512", 6, SHA2, 64, 20, 16},
	{"XMSS-SHAKE_10_256", 7, SHAKE, 32, 10, 16},
	{"XMSS-SHAKE_16_256", 8, SHAKE, 32, 16, 16},
	{"XMSS-SHAKE_20_256", 9, SHAKE, 32, 20, 16},
	{"XMSS-SHAKE_10_512", 10, SHAKE, 64, 10, 16},
	{"XMSS-SHAKE_16_512", 11, SHAKE, 64, 16, 16},
	{"XMSS-SHAKE_20_512", 12, SHAKE, 64, 20, 16},
	{"XMSS-SHAKE256_10_256", 13, SHAKE256, 32, 10, 16},
	{"XMSS-SHAKE256_16_256", 14, SHAKE256, 32, 16, 16},
	{"XMSS-SHAKE256_20_256", 15, SHAKE256, 32, 20, 16},
}

var registryNameLut map[string]regEntry
var registryOidLut map[uint32]regEntry

func init() {
	registryNameLut = make(map[string]regEntry, len(registry))
	registryOidLut = make(map[uint32]regEntry, len(registry))
	for _, e := range registry {
		registryNameLut[e.name] = e
		registryOidLut[e.oid] = e
	}
}

// lookupOid returns the oid of params if it (Func, N, FullHeight, WotsW)
// matches a named registry entry, and 0 (non-interoperable, but permitted)
// otherwise.
func lookupOid(p Params) uint32 {
	for _, e := range registry {
		if e.hash == p.Func && e.n == p.N && e.h == p.FullHeight && e.w == p.WotsW {
			return e.oid
		}
	}
	return 0
}

func lookupName(p Params) string {
	for _, e := range registry {
		if e.hash == p.Func && e.n == p.N && e.h == p.FullHeight && e.w == p.WotsW {
			return e.name
		}
	}
	return ""
}

// ParamsFromOid returns the parameters named by oid (without a HashFactory
// attached; the caller must still supply one matching N before calling
// NewContext), or nil if oid is not in the registry.
func ParamsFromOid(oid uint32) *Params {
	e, ok := registryOidLut[oid]
	if !ok {
		return nil
	}
	return &Params{Func: e.hash, N: e.n, FullHeight: e.h, D: 1, WotsW: e.w}
}

// ParamsFromName is the name-keyed counterpart of ParamsFromOid.
func ParamsFromName(name string) *Params {
	e, ok := registryNameLut[name]
	if !ok {
		return nil
	}
	return &Params{Func: e.hash, N: e.n, FullHeight: e.h, D: 1, WotsW: e.w}
}

// ParamsFromName2 returns the parameters for name, falling back to parsing
// the algorithm-name grammar (XMSS-<hash>_<height>_<bits>[_w<w>]) when name
// is not one of the registered instances. The returned parameters may
// describe a non-interoperable (oid 0) instance.
func ParamsFromName2(name string) (*Params, Error) {
	if ret := ParamsFromName(name); ret != nil {
		return ret, nil
	}
	return parseParamsFromName(name)
}

func parseParamsFromName(name string) (*Params, Error) {
	var ret Params

	bits := strings.SplitN(name, "-", 2)
	if len(bits) != 2 {
		return nil, errorf("missing separator between alg and params")
	}
	if bits[0] != "XMSS" {
		return nil, errorf("no such algorithm: %s", bits[0])
	}

	bits = strings.Split(bits[1], "_")
	switch bits[0] {
	case "SHA2":
		ret.Func = SHA2
	case "SHAKE":
		ret.Func = SHAKE
	case "SHAKE256":
		ret.Func = SHAKE256
	default:
		return nil, errorf("no such hash function: %s", bits[0])
	}

	if len(bits) < 3 || len(bits) > 4 {
		return nil, errorf("expected three or four parameters, not %d", len(bits))
	}
	if strings.Contains(bits[1], "/") {
		return nil, errorf("can't have D parameter for XMSS")
	}
	ret.D = 1

	fh, err := strconv.Atoi(bits[1])
	if err != nil {
		return nil, wrapErrorf(err, "can't parse FullHeight")
	}
	if fh <= 0 || fh >= 1<<32 {
		return nil, errorf("FullHeight out of bounds")
	}
	ret.FullHeight = uint32(fh)

	n, err := strconv.Atoi(bits[2])
	if err != nil {
		return nil, wrapErrorf(err, "can't parse N")
	}
	if n < 0 || n > 1<<32 {
		return nil, errorf("N out of bounds")
	}
	ret.N = uint32(n) / 8

	ret.WotsW = 16
	if len(bits) == 4 {
		if len(bits[3]) < 2 || bits[3][0] != 'w' {
			return nil, errorf("expected 'w[...]' for fourth parameter")
		}
		w, err := strconv.Atoi(bits[3][1:])
		if err != nil {
			return nil, wrapErrorf(err, "can't parse WotsW parameter")
		}
		if w < 0 || w >= 1<<16 {
			return nil, errorf("WotsW out of bounds")
		}
		ret.WotsW = uint16(w)
	}

	return &ret, nil
}

// MarshalBinary encodes the parameters into a compressed 4-byte form:
//
//	8-bit magic (0xea)
//	4-bit reserved      always zero
//	4-bit compr-n       contains (n/8)-1 for the parameter n
//	2-bit hash          the hash function
//	2-bit w             0 for WotsW=4, 1 for WotsW=16
//	6-bit full-height   the full height parameter
//	6-bit d             always 1 here
//
// The attached HashFactory and the AllowUntestedW4 gate are not part of the
// encoding; a decoded Params must be completed with a HashFactory before
// NewContext will accept it.
func (p *Params) MarshalBinary() ([]byte, error) {
	ret := make([]byte, 4)
	err := p.WriteInto(ret)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// WriteInto writes parameters into buf as encoded by MarshalBinary().
func (p *Params) WriteInto(buf []byte) error {
	var val uint32
	var wCode uint32
	if p.N%8 != 0 {
		return errorf("N is not divisible by 8")
	}
	if p.N > 128 {
		return errorf("N is too large")
	}
	if p.Func > 2 {
		return errorf("Func is too large")
	}
	if p.FullHeight > 63 {
		return errorf("FullHeight is too large")
	}
	if p.D > 63 {
		return errorf("D is too large")
	}
	switch p.WotsW {
	case 4:
		wCode = 0
	case 16:
		wCode = 1
	default:
		return errorf("only WotsW=4,16 are supported")
	}
	val |= 0xea << 24 // magic
	val |= ((p.N / 8) - 1) << 16
	val |= uint32(p.Func) << 14
	val |= wCode << 12
	val |= p.FullHeight << 6
	val |= p.D
	binary.BigEndian.PutUint32(buf, val)
	return nil
}

// UnmarshalBinary decodes parameters as encoded by MarshalBinary().
func (p *Params) UnmarshalBinary(buf []byte) error {
	if len(buf) != 4 {
		return errorf("must be 4 bytes long (instead of %d)", len(buf))
	}
	val := binary.BigEndian.Uint32(buf)
	magic := val >> 24
	if magic != 0xea {
		return errorf("these are not compressed parameters (magic is wrong)")
	}
	comprN := (val >> 16) & ((1 << 4) - 1)
	wCode := (val >> 12) & ((1 << 2) - 1)
	switch wCode {
	case 0:
		p.WotsW = 4
	case 1:
		p.WotsW = 16
	default:
		return errorf("unsupported W-code in compressed parameters")
	}
	p.N = (comprN + 1) * 8
	p.Func = HashFunc((val >> 14) & ((1 << 2) - 1))
	p.FullHeight = (val >> 6) & ((1 << 6) - 1)
	p.D = val & ((1 << 6) - 1)
	return nil
}

// ListNames lists every named instance in the registry.
func ListNames() []string {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.name
	}
	return names
}

// WotsLogW returns the base-2 logarithm of the Winternitz parameter.
func (p *Params) WotsLogW() uint8 {
	switch p.WotsW {
	case 4:
		return 2
	case 16:
		return 4
	default:
		panic("only WotsW=4,16 are supported")
	}
}

// WotsLen1 returns the number of WOTS+ chains carrying the message digits.
func (p *Params) WotsLen1() uint32 {
	return 8 * p.N / uint32(p.WotsLogW())
}

// WotsLen2 returns the number of WOTS+ checksum chains.
func (p *Params) WotsLen2() uint32 {
	switch p.WotsW {
	case 4:
		return 5
	case 16:
		return 3
	default:
		panic("only WotsW=4,16 are supported")
	}
}

// WotsLen returns the total number of WOTS+ chains.
func (p *Params) WotsLen() uint32 {
	return p.WotsLen1() + p.WotsLen2()
}

// WotsSignatureSize returns the size in bytes of a WOTS+ signature.
func (p *Params) WotsSignatureSize() uint32 {
	return p.WotsLen() * p.N
}

// Equal reports whether two Params describe the same algorithm, ignoring
// the attached HashFactory (which is not comparable).
func (p Params) Equal(other Params) bool {
	p.Hash = nil
	other.Hash = nil
	return reflect.DeepEqual(p, other)
}
