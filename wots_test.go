package stfl

import (
	"bytes"
	"testing"
)

func TestWotsSignThenRecover(t *testing.T) {
	s := smallScheme(t)

	seed := make([]byte, s.p.N)
	pubSeed := make([]byte, s.p.N)
	msg := make([]byte, s.p.N)
	for i := 0; i < int(s.p.N); i++ {
		seed[i] = byte(i)
		pubSeed[i] = byte(7 * i)
		msg[i] = byte(3 * i)
	}

	var addr address
	addr.setType(addrTypeOTS)
	addr.setOTS(5)

	pk := s.wotsPkGen(seed, pubSeed, addr)
	sig := s.wotsSign(msg, seed, pubSeed, addr)
	pk2 := s.wotsPkFromSig(sig, msg, pubSeed, addr)
	if !bytes.Equal(pk, pk2) {
		t.Fatal("public key recovered from signature does not match")
	}

	msg[0] ^= 1
	pk3 := s.wotsPkFromSig(sig, msg, pubSeed, addr)
	if bytes.Equal(pk, pk3) {
		t.Fatal("corrupted message recovered the correct public key")
	}
}

func TestGenSubTreeParallel(t *testing.T) {
	skSeed := make([]byte, 32)
	pubSeed := make([]byte, 32)
	for i := 0; i < 32; i++ {
		skSeed[i] = byte(i)
		pubSeed[i] = byte(11 * i)
	}

	seq := smallScheme(t)
	seq.Threads = 1
	par := smallScheme(t)
	par.Threads = 4

	var addr address
	addr.setLayer(1)
	mt1 := seq.genSubTree(skSeed, pubSeed, addr)
	mt2 := par.genSubTree(skSeed, pubSeed, addr)
	if !bytes.Equal(mt1.buf, mt2.buf) {
		t.Fatal("parallel subtree generation diverges from sequential")
	}
}
