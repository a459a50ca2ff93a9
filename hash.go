package stfl

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/templexxx/xor"
	"golang.org/x/crypto/sha3"
)

const (
	hashPaddingF    = 0
	hashPaddingH    = 1
	hashPaddingHash = 2
	hashPaddingPRF  = 3
)

func (s *Scheme) hash(in []byte) []byte {
	if s.p.Func == SHA2 {
		if s.p.N == 32 {
			ret := sha256.Sum256(in)
			return ret[:]
		}
		ret := sha512.Sum512(in)
		return ret[:]
	}
	ret := make([]byte, s.p.N)
	if s.p.N == 32 {
		sha3.ShakeSum128(ret, in)
	} else {
		sha3.ShakeSum256(ret, in)
	}
	return ret
}

// Compute PRF(key, in).
// in must be 32 bytes and key must be N bytes.
func (s *Scheme) prf(in, key []byte) []byte {
	buf := make([]byte, 2*s.p.N+32)
	copy(buf, encodeUint64(hashPaddingPRF, int(s.p.N)))
	copy(buf[s.p.N:], key)
	copy(buf[s.p.N*2:], in)
	return s.hash(buf)
}

// Compute PRF(key, seqNo), used for the digest randomizer and for
// expanding WOTS+ seeds.
func (s *Scheme) prfUint64(x uint64, key []byte) []byte {
	return s.prf(encodeUint64(x, 32), key)
}

// Compute PRF(key, addr), used to derive keys and bitmasks.
func (s *Scheme) prfAddr(addr address, key []byte) []byte {
	return s.prf(addr.toBytes(), key)
}

// Compute the randomized message hash.
func (s *Scheme) hashMessage(msg, drv, root []byte, seqNo uint64) []byte {
	buf := make([]byte, 4*int(s.p.N)+len(msg))
	copy(buf, encodeUint64(hashPaddingHash, int(s.p.N)))
	copy(buf[s.p.N:], drv)
	copy(buf[s.p.N*2:], root)
	copy(buf[s.p.N*3:], encodeUint64(seqNo, int(s.p.N)))
	copy(buf[s.p.N*4:], msg)
	return s.hash(buf)
}

// Compute the hash f used in the WOTS+ chains
func (s *Scheme) f(in, pubSeed []byte, addr address) []byte {
	buf := make([]byte, 3*int(s.p.N))
	copy(buf, encodeUint64(hashPaddingF, int(s.p.N)))
	addr.setKeyAndMask(0)
	copy(buf[s.p.N:], s.prfAddr(addr, pubSeed))
	addr.setKeyAndMask(1)
	bitmask := s.prfAddr(addr, pubSeed)
	xor.BytesSameLen(buf[2*s.p.N:], in, bitmask)
	return s.hash(buf)
}

// Compute RAND_HASH used to hash up the various trees
func (s *Scheme) h(left, right, pubSeed []byte, addr address) []byte {
	buf := make([]byte, 4*int(s.p.N))
	copy(buf, encodeUint64(hashPaddingH, int(s.p.N)))
	addr.setKeyAndMask(0)
	copy(buf[s.p.N:], s.prfAddr(addr, pubSeed))
	addr.setKeyAndMask(1)
	leftBitmask := s.prfAddr(addr, pubSeed)
	addr.setKeyAndMask(2)
	rightBitmask := s.prfAddr(addr, pubSeed)
	xor.BytesSameLen(buf[2*s.p.N:3*s.p.N], left, leftBitmask)
	xor.BytesSameLen(buf[3*s.p.N:], right, rightBitmask)
	return s.hash(buf)
}
