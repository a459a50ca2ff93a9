package stfl

// Expands seed to a WOTS+ secret key
func (s *Scheme) wotsExpandSeed(in []byte) []byte {
	ret := make([]byte, s.p.N*s.wotsLen)
	var i uint32
	for i = 0; i < s.wotsLen; i++ {
		copy(ret[i*s.p.N:], s.prfUint64(uint64(i), in))
	}
	return ret
}

// Converts a message into positions on the WOTS+ chains, which
// are called "chain lengths".
func (s *Scheme) wotsChainLengths(msg []byte) []uint8 {
	ret := make([]uint8, s.wotsLen)

	// compute the chain lengths for the message itself
	s.toBaseW(msg, ret[:s.wotsLen1])

	// compute the checksum
	var csum uint32 = 0
	for i := 0; i < int(s.wotsLen1); i++ {
		csum += uint32(s.p.WotsW) - 1 - uint32(ret[i])
	}
	csum = csum << (8 - ((s.wotsLen2 * uint32(s.wotsLogW)) % 8))

	// put checksum in buffer
	s.toBaseW(
		encodeUint64(
			uint64(csum),
			int((s.wotsLen2*uint32(s.wotsLogW)+7)/8)),
		ret[s.wotsLen1:])
	return ret
}

// Converts the given array of bytes into base w for the WOTS+ one-time
// signature scheme.  Only works if logW divides into 8.
func (s *Scheme) toBaseW(input []byte, output []uint8) {
	var in uint32 = 0
	var out uint32 = 0
	var total uint8
	var bits uint8

	for consumed := 0; consumed < len(output); consumed++ {
		if bits == 0 {
			total = input[in]
			in++
			bits = 8
		}
		bits -= s.wotsLogW
		output[out] = uint8(uint16(total>>bits) & (s.p.WotsW - 1))
		out++
	}
}

// Compute the (start + steps)th value in the WOTS+ chain, given
// the start'th value in the chain.
func (s *Scheme) wotsGenChainInto(in []byte, start, steps uint16,
	pubSeed []byte, addr address, out []byte) {
	copy(out, in)
	var i uint16
	for i = start; i < (start+steps) && (i < s.p.WotsW); i++ {
		addr.setHash(uint32(i))
		copy(out, s.f(out, pubSeed, addr))
	}
}

// Generate a WOTS+ public key from a secret key seed.
func (s *Scheme) wotsPkGen(seed, pubSeed []byte, addr address) []byte {
	buf := s.wotsExpandSeed(seed)
	var i uint32
	for i = 0; i < s.wotsLen; i++ {
		addr.setChain(uint32(i))
		s.wotsGenChainInto(buf[s.p.N*i:s.p.N*(i+1)],
			0, s.p.WotsW-1, pubSeed, addr,
			buf[s.p.N*i:s.p.N*(i+1)])
	}
	return buf
}

// Create a WOTS+ signature of an n-byte message
func (s *Scheme) wotsSign(msg, seed, pubSeed []byte, addr address) []byte {
	lengths := s.wotsChainLengths(msg)
	buf := s.wotsExpandSeed(seed)
	var i uint32
	for i = 0; i < s.wotsLen; i++ {
		addr.setChain(uint32(i))
		s.wotsGenChainInto(buf[s.p.N*i:s.p.N*(i+1)],
			0, uint16(lengths[i]), pubSeed, addr,
			buf[s.p.N*i:s.p.N*(i+1)])
	}
	return buf
}

// Returns the public key from a message and its WOTS+ signature.
func (s *Scheme) wotsPkFromSig(sig, msg, pubSeed []byte, addr address) []byte {
	lengths := s.wotsChainLengths(msg)
	buf := make([]byte, s.p.N*s.wotsLen)
	var i uint32
	for i = 0; i < s.wotsLen; i++ {
		addr.setChain(uint32(i))
		s.wotsGenChainInto(sig[s.p.N*i:s.p.N*(i+1)],
			uint16(lengths[i]), s.p.WotsW-1-uint16(lengths[i]),
			pubSeed, addr,
			buf[s.p.N*i:s.p.N*(i+1)])
	}
	return buf
}
