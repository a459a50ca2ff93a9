package stfl

// Represents a XMSS[MT] signature
type Signature struct {
	sch   *Scheme        // scheme which contains the algorithm parameters
	seqNo SignatureSeqNo // index of the one-time key this signature used
	drv   []byte         // digest randomized value (R)

	// The signature consists of several barebones XMSS signatures.
	// sigs[0] signs the message hash, sigs[1] signs the root of the
	// subtree for sigs[0], ..., sigs[d-1] signs the root of the subtree
	// for sigs[d-2].
	sigs []layerSig
}

// Represents a signature made by a subtree.  This is basically
// an XMSS signature without all the decorations.
type layerSig struct {
	wotsSig  []byte
	authPath []byte
}

// Returns the index of the one-time key this signature was made with.
func (sig *Signature) SeqNo() SignatureSeqNo {
	return sig.seqNo
}

// Returns the scheme of this signature.
func (sig *Signature) Scheme() *Scheme {
	return sig.sch
}

// Returns representation of the signature as accepted by the reference
// implementation (without the message).  Will never return an error.
func (sig *Signature) MarshalBinary() ([]byte, error) {
	ret := make([]byte, sig.sch.sigBytes)
	encodeUint64Into(uint64(sig.seqNo), ret[:sig.sch.indexBytes])
	copy(ret[sig.sch.indexBytes:], sig.drv)
	stOff := sig.sch.indexBytes + sig.sch.p.N
	stLen := sig.sch.wotsSigBytes + sig.sch.p.N*sig.sch.treeHeight
	for i, stSig := range sig.sigs {
		copy(ret[stOff+uint32(i)*stLen:], stSig.wotsSig)
		copy(ret[stOff+uint32(i)*stLen+sig.sch.wotsSigBytes:], stSig.authPath)
	}
	return ret, nil
}

// Parses a signature in the reference layout.
func (s *Scheme) ParseSignature(data []byte) (*Signature, Error) {
	if uint32(len(data)) != s.sigBytes {
		return nil, errorf(KindMalformedKey,
			"signature must be %d bytes (instead of %d)",
			s.sigBytes, len(data))
	}

	seqNo := decodeUint64(data[:s.indexBytes])
	if seqNo >= s.p.MaxSeqNo() {
		return nil, errorf(KindMalformedKey,
			"signature index %d is out of range", seqNo)
	}

	sig := &Signature{
		sch:   s,
		seqNo: SignatureSeqNo(seqNo),
		drv:   make([]byte, s.p.N),
		sigs:  make([]layerSig, s.p.D),
	}
	copy(sig.drv, data[s.indexBytes:])

	stOff := s.indexBytes + s.p.N
	stLen := s.wotsSigBytes + s.p.N*s.treeHeight
	var i uint32
	for i = 0; i < s.p.D; i++ {
		sig.sigs[i] = layerSig{
			wotsSig:  make([]byte, s.wotsSigBytes),
			authPath: make([]byte, s.p.N*s.treeHeight),
		}
		copy(sig.sigs[i].wotsSig, data[stOff+i*stLen:])
		copy(sig.sigs[i].authPath, data[stOff+i*stLen+s.wotsSigBytes:])
	}

	return sig, nil
}
