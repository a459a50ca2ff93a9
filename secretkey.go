package stfl

import (
	"sync"
)

// Flags stored in the serialized secret key.
const (
	skFlagSubKey = 1 << 0
)

// XMSS[MT] secret key.
//
// The key owns its index accounting: seqNo is the next unused one-time key
// and only Sign and DeriveSubKey ever advance it; no operation moves it
// backwards.  A key is exhausted once seqNo reaches capSeqNo and released
// once its secret material has been zeroed; both are terminal for signing.
type SecretKey struct {
	sch *Scheme // scheme, which contains the algorithm parameters

	// Serializes Sign and DeriveSubKey.  Two concurrent derivations must
	// not observe the same seqNo, or they would reserve overlapping
	// ranges.
	mux sync.Mutex

	seqNo     SignatureSeqNo // next unused one-time key
	capSeqNo  SignatureSeqNo // exclusive upper bound this key may reach
	baseSeqNo SignatureSeqNo // seqNo at creation; start of this key's range

	skSeed  []byte // secret seed for the WOTS+ keypairs
	skPrf   []byte // secret key for the message digest randomizer
	pubSeed []byte
	root    []byte // root node

	sub      bool // whether this key was carved out of a master
	released bool // whether the secret material has been zeroed
}

// XMSS[MT] public key
type PublicKey struct {
	sch     *Scheme // scheme which contains the algorithm parameters
	pubSeed []byte
	root    []byte // root node
}

// Returns the scheme of this secret key.
func (sk *SecretKey) Scheme() *Scheme {
	return sk.sch
}

// Returns the index of the next unused one-time key.
func (sk *SecretKey) SeqNo() SignatureSeqNo {
	sk.mux.Lock()
	defer sk.mux.Unlock()
	return sk.seqNo
}

// Returns the exclusive upper bound on the indices this key may use.
func (sk *SecretKey) Capacity() SignatureSeqNo {
	sk.mux.Lock()
	defer sk.mux.Unlock()
	return sk.capSeqNo
}

// Returns whether this key is a sub-key carved out of a master key.
func (sk *SecretKey) SubKey() bool {
	return sk.sub
}

// Returns whether the key has any unused one-time keys left.
func (sk *SecretKey) Exhausted() bool {
	sk.mux.Lock()
	defer sk.mux.Unlock()
	return sk.seqNo >= sk.capSeqNo
}

// Zeroes the secret material.  Any further operation on the key fails.
// Release is idempotent: releasing an already-released key is a no-op.
func (sk *SecretKey) Release() {
	sk.mux.Lock()
	defer sk.mux.Unlock()
	if sk.released {
		return
	}
	zeroBytes(sk.skSeed)
	zeroBytes(sk.skPrf)
	zeroBytes(sk.pubSeed)
	zeroBytes(sk.root)
	sk.released = true
}

// Serializes the full key state:
//
//	[oid (4)][flags (1)][seqNo][capacity][base][skSeed][skPrf][pubSeed][root]
//
// where the three counters are fixed-width big-endian, one byte wider than
// the parameter set's index so that the capacity ceiling 2^FullHeight
// itself fits.  The capacity and base fields widen the classical
// [oid][index][seeds][root] layout so that a sub-key's reduced range
// survives a round trip.
func (sk *SecretKey) MarshalBinary() ([]byte, error) {
	sk.mux.Lock()
	defer sk.mux.Unlock()
	if sk.released {
		return nil, errorf(KindUseAfterRelease,
			"secret key has been released")
	}

	s := sk.sch
	ret := make([]byte, s.skBytes)
	encodeUint64Into(uint64(s.oid), ret[:4])
	if sk.sub {
		ret[4] |= skFlagSubKey
	}
	buf := ret[5:]
	encodeUint64Into(uint64(sk.seqNo), buf[:s.ctrBytes])
	encodeUint64Into(uint64(sk.capSeqNo), buf[s.ctrBytes:2*s.ctrBytes])
	encodeUint64Into(uint64(sk.baseSeqNo), buf[2*s.ctrBytes:3*s.ctrBytes])
	buf = buf[3*s.ctrBytes:]
	copy(buf, sk.skSeed)
	copy(buf[s.p.N:], sk.skPrf)
	copy(buf[2*s.p.N:], sk.pubSeed)
	copy(buf[3*s.p.N:], sk.root)
	return ret, nil
}

// Reconstructs a secret key serialized by MarshalBinary.  The embedded
// index and capacity are preserved exactly.
func (s *Scheme) ParseSecretKey(data []byte) (*SecretKey, Error) {
	if uint32(len(data)) != s.skBytes {
		return nil, errorf(KindMalformedKey,
			"secret key must be %d bytes (instead of %d)",
			s.skBytes, len(data))
	}
	if uint32(decodeUint64(data[:4])) != s.oid {
		return nil, errorf(KindInvalidKey,
			"secret key oid %d does not match scheme oid %d",
			decodeUint64(data[:4]), s.oid)
	}
	flags := data[4]
	if flags&^skFlagSubKey != 0 {
		return nil, errorf(KindMalformedKey,
			"unknown secret key flags %#x", flags)
	}

	buf := data[5:]
	seqNo := decodeUint64(buf[:s.ctrBytes])
	capSeqNo := decodeUint64(buf[s.ctrBytes : 2*s.ctrBytes])
	baseSeqNo := decodeUint64(buf[2*s.ctrBytes : 3*s.ctrBytes])
	if capSeqNo > s.p.MaxSeqNo() || seqNo > capSeqNo || baseSeqNo > seqNo {
		return nil, errorf(KindMalformedKey,
			"index counters out of order: base=%d index=%d capacity=%d",
			baseSeqNo, seqNo, capSeqNo)
	}

	sk := &SecretKey{
		sch:       s,
		seqNo:     SignatureSeqNo(seqNo),
		capSeqNo:  SignatureSeqNo(capSeqNo),
		baseSeqNo: SignatureSeqNo(baseSeqNo),
		sub:       flags&skFlagSubKey != 0,
	}
	buf = buf[3*s.ctrBytes:]
	sk.skSeed = cloneBytes(buf[:s.p.N])
	sk.skPrf = cloneBytes(buf[s.p.N : 2*s.p.N])
	sk.pubSeed = cloneBytes(buf[2*s.p.N : 3*s.p.N])
	sk.root = cloneBytes(buf[3*s.p.N : 4*s.p.N])
	return sk, nil
}

// Returns the public key matching this secret key.
func (sk *SecretKey) PublicKey() (*PublicKey, Error) {
	sk.mux.Lock()
	defer sk.mux.Unlock()
	if sk.released {
		return nil, errorf(KindUseAfterRelease,
			"secret key has been released")
	}
	return &PublicKey{
		sch:     sk.sch,
		pubSeed: cloneBytes(sk.pubSeed),
		root:    cloneBytes(sk.root),
	}, nil
}

// Returns the scheme of this public key.
func (pk *PublicKey) Scheme() *Scheme {
	return pk.sch
}

// Serializes the public key as [oid (4)][root][pubSeed].
// Will never return an error.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	ret := make([]byte, pk.sch.pkBytes)
	encodeUint64Into(uint64(pk.sch.oid), ret[:4])
	copy(ret[4:], pk.root)
	copy(ret[4+pk.sch.p.N:], pk.pubSeed)
	return ret, nil
}

// Parses a public key serialized by MarshalBinary.
func (s *Scheme) ParsePublicKey(data []byte) (*PublicKey, Error) {
	if uint32(len(data)) != s.pkBytes {
		return nil, errorf(KindMalformedKey,
			"public key must be %d bytes (instead of %d)",
			s.pkBytes, len(data))
	}
	if uint32(decodeUint64(data[:4])) != s.oid {
		return nil, errorf(KindInvalidKey,
			"public key oid %d does not match scheme oid %d",
			decodeUint64(data[:4]), s.oid)
	}
	return &PublicKey{
		sch:     s,
		root:    cloneBytes(data[4 : 4+s.p.N]),
		pubSeed: cloneBytes(data[4+s.p.N:]),
	}, nil
}
