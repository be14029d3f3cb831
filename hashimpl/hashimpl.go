// Package hashimpl supplies concrete HashFactory implementations for
// github.com/xmsscore/xmsscore. The core package only ever talks to the
// Hash/HashFactory interfaces; it never imports this package, so a caller
// who wants a different digest (or a hardware-backed one) can supply their
// own implementation of the same two methods without touching the core.
package hashimpl

import (
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/xmsscore/xmsscore"
)

var (
	errFinalized = errors.New("hashimpl: instance already finalized")
	errShortDest = errors.New("hashimpl: destination shorter than the digest length")
)

// stdHash adapts the standard library's hash.Hash (write-then-sum) to the
// core's Absorb/Finalize (absorb-then-finalize-into) shape. Absorbing after
// Finalize, finalizing twice, or finalizing into a short destination are
// misuse and fail with a distinct error.
type stdHash struct {
	h         hash.Hash
	n         uint32
	finalized bool
}

func (s *stdHash) Absorb(data []byte) error {
	if s.finalized {
		return errFinalized
	}
	_, err := s.h.Write(data)
	return err
}

func (s *stdHash) Finalize(dest []byte) error {
	if s.finalized {
		return errFinalized
	}
	if uint32(len(dest)) < s.n {
		return errShortDest
	}
	s.finalized = true
	sum := s.h.Sum(nil)
	copy(dest, sum[:s.n])
	return nil
}

type stdFactory struct {
	n    uint32
	newH func() hash.Hash
}

func (f *stdFactory) DigestLength() uint32       { return f.n }
func (f *stdFactory) NewInstance() xmsscore.Hash { return &stdHash{h: f.newH(), n: f.n} }

// NewSHA256 returns a HashFactory producing 32-byte SHA-256 digests, for
// the XMSS-SHA2_*_256 named instances.
func NewSHA256() *stdFactory {
	return &stdFactory{n: 32, newH: sha256.New}
}

// NewSHA512 returns a HashFactory producing 64-byte SHA-512 digests, for
// the XMSS-SHA2_*_512 named instances.
func NewSHA512() *stdFactory {
	return &stdFactory{n: 64, newH: sha512.New}
}

// shakeHash adapts sha3's ShakeHash (which supports arbitrary-length
// squeezing) to a fixed digest length n, with the same misuse errors as
// stdHash.
type shakeHash struct {
	sh        sha3.ShakeHash
	n         uint32
	finalized bool
}

func (s *shakeHash) Absorb(data []byte) error {
	if s.finalized {
		return errFinalized
	}
	_, err := s.sh.Write(data)
	return err
}

func (s *shakeHash) Finalize(dest []byte) error {
	if s.finalized {
		return errFinalized
	}
	if uint32(len(dest)) < s.n {
		return errShortDest
	}
	s.finalized = true
	_, err := s.sh.Read(dest[:s.n])
	return err
}

type shakeFactory struct {
	n     uint32
	newSh func() sha3.ShakeHash
}

func (f *shakeFactory) DigestLength() uint32       { return f.n }
func (f *shakeFactory) NewInstance() xmsscore.Hash { return &shakeHash{sh: f.newSh(), n: f.n} }

// NewSHAKE128 returns a HashFactory squeezing n bytes out of SHAKE128, for
// the XMSS-SHAKE_*_256 named instances (n = 32).
func NewSHAKE128(n uint32) *shakeFactory {
	return &shakeFactory{n: n, newSh: sha3.NewShake128}
}

// NewSHAKE256 returns a HashFactory squeezing n bytes out of SHAKE256, for
// the XMSS-SHAKE_*_512 (n = 64) and XMSS-SHAKE256_*_256 (n = 32) named
// instances.
func NewSHAKE256(n uint32) *shakeFactory {
	return &shakeFactory{n: n, newSh: sha3.NewShake256}
}

// blake2bFactory produces n-byte BLAKE2b digests. Not named by any registry
// entry; useful for a custom, non-interoperable instance that still wants a
// well-reviewed digest.
type blake2bFactory struct {
	n uint32
}

func (f *blake2bFactory) DigestLength() uint32 { return f.n }
func (f *blake2bFactory) NewInstance() xmsscore.Hash {
	h, err := blake2b.New(int(f.n), nil)
	if err != nil {
		// Unreachable: NewBLAKE2b below rejects any n outside [1,64]
		// before a blake2bFactory can be constructed.
		panic(err)
	}
	return &stdHash{h: h, n: f.n}
}

var errInvalidBlake2bLength = errors.New("hashimpl: BLAKE2b digest length must be in [1,64]")

// NewBLAKE2b returns a HashFactory producing n-byte BLAKE2b digests
// (1 <= n <= 64).
func NewBLAKE2b(n uint32) (*blake2bFactory, error) {
	if n == 0 || n > 64 {
		return nil, errInvalidBlake2bLength
	}
	return &blake2bFactory{n: n}, nil
}
