// Go implementation of the stateful-key management layer for the XMSS[MT]
// post-quantum hash-based signature scheme described in RFC 8391.
//
// A hash-based secret key carries a monotonically advancing index into a
// bounded space of one-time keys; signing with the same index twice breaks
// the scheme.  This package owns the custody of that index: capacity
// accounting, sub-key derivation into disjoint ranges, serialization of the
// key state and the per-parameter-set Scheme through which every operation
// is dispatched.
package stfl

import (
	"crypto/rand"
	"fmt"
	"reflect"
)

// Per-parameter-set algorithm descriptor.
// Create one using NewSchemeFromName, NewSchemeFromOid or NewScheme.
// A Scheme is immutable after construction and may be shared freely.
type Scheme struct {
	// Number of worker goroutines ("threads") to use for expensive
	// operations.  Will guess an appropriate number if set to 0.
	Threads int

	p            Params // parameters
	wotsLogW     uint8  // logarithm of the Winternitz parameter
	wotsLen1     uint32 // WOTS+ chains for message
	wotsLen2     uint32 // WOTS+ chains for checksum
	wotsLen      uint32 // total number of WOTS+ chains
	wotsSigBytes uint32 // length of WOTS+ signature
	treeHeight   uint32 // height of a subtree
	indexBytes   uint32 // size of an encoded index in a signature
	ctrBytes     uint32 // size of an index counter in a serialized key
	sigBytes     uint32 // size of signature
	pkBytes      uint32 // size of public key
	skBytes      uint32 // size of serialized secret key

	mt   bool    // true for XMSSMT; false for XMSS
	oid  uint32  // OID of this configuration, if it has any
	name *string // name of algorithm

	eng Engine // the one-time-signature engine
}

// Sequence number of signatures.
// (Corresponds with leaf indices in the implementation.)
type SignatureSeqNo uint64

// Return a new scheme for the given XMSS[MT] oid (and nil if it's unknown).
func NewSchemeFromOid(mt bool, oid uint32) *Scheme {
	var lut map[uint32]regEntry
	if mt {
		lut = registryOidMTLut
	} else {
		lut = registryOidLut
	}
	entry, ok := lut[oid]
	if !ok {
		return nil
	}
	s, _ := NewScheme(entry.params)
	s.oid = oid
	s.mt = mt
	s.name = &entry.name
	return s
}

// Return a new scheme for the given XMSS[MT] algorithm name (and nil if the
// algorithm name is unknown).
func NewSchemeFromName(name string) *Scheme {
	entry, ok := registryNameLut[name]
	if !ok {
		return nil
	}
	s, _ := NewScheme(entry.params)
	s.name = &name
	s.oid = entry.oid
	s.mt = entry.mt
	return s
}

// Creates a new scheme for the given parameters.
func NewScheme(params Params) (s *Scheme, err error) {
	s = new(Scheme)
	s.p = params
	s.mt = (s.p.D > 1)
	s.eng = xmssEngine{}

	if params.N != 32 && params.N != 64 {
		return nil, fmt.Errorf("Only N=32,64 are supported")
	}

	if params.D == 0 || params.FullHeight%params.D != 0 {
		return nil, fmt.Errorf("D does not divide FullHeight")
	}

	if params.FullHeight > 63 {
		return nil, fmt.Errorf("FullHeight is too large")
	}

	s.treeHeight = params.FullHeight / params.D

	if params.WotsW != 16 {
		return nil, fmt.Errorf("Only WotsW=16 is supported at the moment")
	}

	if s.mt {
		s.indexBytes = (params.FullHeight + 7) / 8
	} else {
		s.indexBytes = 4
	}

	// The capacity counter must hold the ceiling 2^FullHeight itself,
	// which is one bit wider than any index.
	s.ctrBytes = params.FullHeight/8 + 1

	s.wotsLogW = params.WotsLogW()
	s.wotsLen1 = params.WotsLen1()
	s.wotsLen2 = params.WotsLen2()
	s.wotsLen = params.WotsLen()
	s.wotsSigBytes = params.WotsSignatureSize()
	s.sigBytes = (s.indexBytes + params.N +
		params.D*s.wotsSigBytes + params.FullHeight*params.N)
	s.pkBytes = 4 + 2*params.N
	s.skBytes = 4 + 1 + 3*s.ctrBytes + 4*params.N

	return
}

// Returns the name of the XMSS[MT] instance and an empty string if it has
// no name.
func (s *Scheme) Name() string {
	if s.name == nil {
		for _, entry := range registry {
			if reflect.DeepEqual(entry.params, s.p) {
				name2 := entry.name
				s.name = &name2
			}
		}
	}
	if s.name != nil {
		return *s.name
	}
	return ""
}

// Returns the Oid of the XMSS[MT] instance and 0 if it has no Oid.
func (s *Scheme) Oid() uint32 {
	return s.oid
}

// Returns whether this is an XMSSMT instance (as opposed to XMSS)
func (s *Scheme) MT() bool {
	return s.mt
}

// Get parameters of the XMSS[MT] instance
func (s *Scheme) Params() Params {
	return s.p
}

// Returns the size of signatures of this XMSS[MT] instance
func (s *Scheme) SignatureSize() uint32 {
	return s.sigBytes
}

// Returns the size of serialized public keys of this XMSS[MT] instance
func (s *Scheme) PublicKeySize() uint32 {
	return s.pkBytes
}

// Returns the size of serialized secret keys of this XMSS[MT] instance
func (s *Scheme) SecretKeySize() uint32 {
	return s.skBytes
}

// Generates an XMSS[MT] public/private keypair from fresh random seeds.
// The secret key starts at index 0 with the full 2^FullHeight capacity.
// NOTE Do not forget to Release() the returned SecretKey
func (s *Scheme) GenerateKeyPair() (*SecretKey, *PublicKey, Error) {
	return s.GenerateKeyPairWithMaximum(s.p.MaxSeqNo())
}

// Generates a keypair whose secret key may issue at most max signatures.
// The capacity can later be raised again, up to 2^FullHeight, with
// SecretKey.ModifyMaximum.
func (s *Scheme) GenerateKeyPairWithMaximum(max uint64) (
	*SecretKey, *PublicKey, Error) {
	pubSeed := make([]byte, s.p.N)
	skSeed := make([]byte, s.p.N)
	skPrf := make([]byte, s.p.N)
	defer zeroBytes(skSeed)
	defer zeroBytes(skPrf)
	_, err := rand.Read(pubSeed)
	if err != nil {
		return nil, nil, wrapErrorf(KindEngine, err, "crypto.rand.Read()")
	}
	_, err = rand.Read(skSeed)
	if err != nil {
		return nil, nil, wrapErrorf(KindEngine, err, "crypto.rand.Read()")
	}
	_, err = rand.Read(skPrf)
	if err != nil {
		return nil, nil, wrapErrorf(KindEngine, err, "crypto.rand.Read()")
	}
	return s.deriveKeyPair(pubSeed, skSeed, skPrf, max)
}

// Derives an XMSS[MT] public/private keypair from the given seeds.
// pubSeed, skSeed and skPrf should be secret random N-length byte slices.
func (s *Scheme) DeriveKeyPair(pubSeed, skSeed, skPrf []byte) (
	*SecretKey, *PublicKey, Error) {
	return s.deriveKeyPair(pubSeed, skSeed, skPrf, s.p.MaxSeqNo())
}

func (s *Scheme) deriveKeyPair(pubSeed, skSeed, skPrf []byte, max uint64) (
	*SecretKey, *PublicKey, Error) {
	if len(pubSeed) != int(s.p.N) || len(skSeed) != int(s.p.N) ||
		len(skPrf) != int(s.p.N) {
		return nil, nil, errorf(KindInvalidKey,
			"skPrf, skSeed and pubSeed should have length %d", s.p.N)
	}
	if max == 0 || max > s.p.MaxSeqNo() {
		return nil, nil, errorf(KindInsufficientCapacity,
			"maximum must be in [1,%d] (got %d)", s.p.MaxSeqNo(), max)
	}

	root, err := s.eng.KeyPair(s, skSeed, skPrf, pubSeed)
	if err != nil {
		return nil, nil, wrapErrorf(KindEngine, err, "engine keypair")
	}

	sk := SecretKey{
		sch:      s,
		capSeqNo: SignatureSeqNo(max),
		pubSeed:  cloneBytes(pubSeed),
		skSeed:   cloneBytes(skSeed),
		skPrf:    cloneBytes(skPrf),
		root:     root,
	}

	pk := PublicKey{
		sch:     s,
		pubSeed: cloneBytes(pubSeed),
		root:    cloneBytes(root),
	}

	log.Logf("%s keypair derived; capacity %d", s.Name(), max)
	return &sk, &pk, nil
}

// Signs the given message, advancing the secret key's index.
//
// The in-memory index is advanced atomically with signature production;
// persisting the new state before disclosing the signature is the caller's
// responsibility (see FileContainer).
func (s *Scheme) Sign(sk *SecretKey, msg []byte) (*Signature, Error) {
	if err := s.checkKey(sk); err != nil {
		return nil, err
	}

	sk.mux.Lock()
	defer sk.mux.Unlock()

	if sk.released {
		return nil, errorf(KindUseAfterRelease,
			"secret key has been released")
	}
	if sk.seqNo >= sk.capSeqNo {
		return nil, errorf(KindCapacityExhausted,
			"no unused one-time keys left (capacity %d)", sk.capSeqNo)
	}

	sig, err := s.eng.Sign(s, uint64(sk.seqNo), sk.skSeed, sk.skPrf,
		sk.pubSeed, sk.root, msg)
	if err != nil {
		return nil, wrapErrorf(KindEngine, err, "engine sign")
	}

	sk.seqNo++
	return sig, nil
}

// Check whether sig is a valid signature of pk for the given message.
//
// A malformed input is an error; a signature that simply does not verify
// is a false result without an error.
func (s *Scheme) Verify(pk *PublicKey, sig *Signature, msg []byte) (
	bool, Error) {
	if pk == nil || sig == nil {
		return false, errorf(KindVerification, "missing input")
	}
	if pk.sch != s || sig.sch != s {
		return false, errorf(KindVerification,
			"public key or signature does not belong to this scheme")
	}
	if uint32(len(pk.root)) != s.p.N || uint32(len(sig.drv)) != s.p.N ||
		uint32(len(sig.sigs)) != s.p.D {
		return false, errorf(KindVerification, "malformed input")
	}
	return s.eng.Verify(s, pk, sig, msg), nil
}

// Returns the number of unused one-time keys left in the secret key.
func (s *Scheme) SigsRemaining(sk *SecretKey) (uint64, Error) {
	if err := s.checkKey(sk); err != nil {
		return 0, err
	}
	sk.mux.Lock()
	defer sk.mux.Unlock()
	if sk.released {
		return 0, errorf(KindUseAfterRelease, "secret key has been released")
	}
	return uint64(sk.capSeqNo - sk.seqNo), nil
}

// Returns the total number of one-time keys in the secret key's own range:
// 2^FullHeight for a full master key and the reserved amount for a sub-key.
func (s *Scheme) SigsTotal(sk *SecretKey) (uint64, Error) {
	if err := s.checkKey(sk); err != nil {
		return 0, err
	}
	sk.mux.Lock()
	defer sk.mux.Unlock()
	if sk.released {
		return 0, errorf(KindUseAfterRelease, "secret key has been released")
	}
	return uint64(sk.capSeqNo - sk.baseSeqNo), nil
}

func (s *Scheme) checkKey(sk *SecretKey) Error {
	if sk == nil {
		return errorf(KindInvalidKey, "secret key is nil")
	}
	if sk.sch != s {
		return errorf(KindInvalidKey,
			"secret key does not belong to this scheme")
	}
	return nil
}

func cloneBytes(in []byte) []byte {
	ret := make([]byte, len(in))
	copy(ret, in)
	return ret
}
