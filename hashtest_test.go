package xmsscore

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/sha3"
)

// fakeHash is a toy Merkle-Damgard-style Hash over SHA-256 used only by
// this package's own tests: Absorb appends to an internal buffer, Finalize
// hashes it once. It exists so the core's test files don't need to import
// hashimpl (which lives in its own subpackage to keep the core free of
// concrete digest imports).
type fakeHash struct {
	n   uint32
	buf []byte
}

func (h *fakeHash) Absorb(data []byte) error {
	h.buf = append(h.buf, data...)
	return nil
}

func (h *fakeHash) Finalize(dest []byte) error {
	sum := sha256.Sum256(h.buf)
	copy(dest, sum[:h.n])
	return nil
}

type fakeHashFactory struct {
	n uint32
}

func (f fakeHashFactory) DigestLength() uint32 { return f.n }
func (f fakeHashFactory) NewInstance() Hash    { return &fakeHash{n: f.n} }

func testHashFactory() HashFactory { return fakeHashFactory{n: 32} }

// stdHash/stdHashFactory and shakeHash/shakeHashFactory reproduce the actual
// SHA-2/SHAKE constructions (as opposed to fakeHash above) so that known-
// answer tests pinned against real digests can live in this package without
// importing hashimpl, which would import this package back and create an
// import cycle for the internal test binary.
type stdHash struct {
	h hash.Hash
	n uint32
}

func (s *stdHash) Absorb(data []byte) error {
	_, err := s.h.Write(data)
	return err
}

func (s *stdHash) Finalize(dest []byte) error {
	sum := s.h.Sum(nil)
	copy(dest, sum[:s.n])
	return nil
}

type stdHashFactory struct {
	n    uint32
	newH func() hash.Hash
}

func (f stdHashFactory) DigestLength() uint32 { return f.n }
func (f stdHashFactory) NewInstance() Hash    { return &stdHash{h: f.newH(), n: f.n} }

func realSHA256() HashFactory { return stdHashFactory{n: 32, newH: sha256.New} }
func realSHA512() HashFactory { return stdHashFactory{n: 64, newH: sha512.New} }

type shakeHash struct {
	sh sha3.ShakeHash
	n  uint32
}

func (s *shakeHash) Absorb(data []byte) error {
	_, err := s.sh.Write(data)
	return err
}

func (s *shakeHash) Finalize(dest []byte) error {
	_, err := s.sh.Read(dest[:s.n])
	return err
}

type shakeHashFactory struct {
	n     uint32
	newSh func() sha3.ShakeHash
}

func (f shakeHashFactory) DigestLength() uint32 { return f.n }
func (f shakeHashFactory) NewInstance() Hash    { return &shakeHash{sh: f.newSh(), n: f.n} }

func realSHAKE128(n uint32) HashFactory { return shakeHashFactory{n: n, newSh: sha3.NewShake128} }
func realSHAKE256(n uint32) HashFactory { return shakeHashFactory{n: n, newSh: sha3.NewShake256} }
