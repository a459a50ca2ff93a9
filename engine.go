package stfl

import (
	"crypto/subtle"
)

// An Engine computes the actual one-time signatures and Merkle trees.
// The key state machine in this package treats it as an opaque
// collaborator: it never inspects an engine's output beyond passing it
// around, and the engine never touches index accounting.
//
// All schemes use the built-in XMSS[MT] engine.  The interface exists so
// that the state machine can be exercised against a stub in tests.
type Engine interface {
	// Computes the Merkle root for the given seed material.
	KeyPair(s *Scheme, skSeed, skPrf, pubSeed []byte) (root []byte, err error)

	// Produces a signature bound to the given one-time key index.
	Sign(s *Scheme, seqNo uint64, skSeed, skPrf, pubSeed, root,
		msg []byte) (*Signature, error)

	// Checks the signature against the public key.  Inputs are
	// structurally validated by the caller.
	Verify(s *Scheme, pk *PublicKey, sig *Signature, msg []byte) bool
}

// The XMSS[MT] engine as described in RFC 8391.  Subtrees along the index
// path are regenerated on every call; there is no cache.
type xmssEngine struct{}

// Position of the subtree path for the given index at the given layer.
func (s *Scheme) subTreeAt(seqNo uint64, layer uint32) (tree uint64, leaf uint32) {
	tree = seqNo >> (s.treeHeight * (layer + 1))
	leaf = uint32((seqNo >> (s.treeHeight * layer)) & ((1 << s.treeHeight) - 1))
	return
}

func (e xmssEngine) KeyPair(s *Scheme, skSeed, skPrf, pubSeed []byte) (
	[]byte, error) {
	var addr address
	addr.setLayer(s.p.D - 1)
	mt := s.genSubTree(skSeed, pubSeed, addr)
	root := make([]byte, s.p.N)
	copy(root, mt.Root())
	return root, nil
}

func (e xmssEngine) Sign(s *Scheme, seqNo uint64, skSeed, skPrf, pubSeed,
	root, msg []byte) (*Signature, error) {
	drv := s.prfUint64(seqNo, skPrf)
	sig := &Signature{
		sch:   s,
		seqNo: SignatureSeqNo(seqNo),
		drv:   drv,
		sigs:  make([]layerSig, s.p.D),
	}

	// sigs[0] signs the message hash; each sigs[i] above it signs the
	// root of the subtree under it.
	cur := s.hashMessage(msg, drv, root, seqNo)
	var layer uint32
	for layer = 0; layer < s.p.D; layer++ {
		tree, leaf := s.subTreeAt(seqNo, layer)

		var addr address
		addr.setLayer(layer)
		addr.setTree(tree)
		mt := s.genSubTree(skSeed, pubSeed, addr)

		otsAddr := addr
		otsAddr.setType(addrTypeOTS)
		otsAddr.setOTS(leaf)
		wotsSeed := s.getWotsSeed(skSeed, otsAddr)

		sig.sigs[layer] = layerSig{
			wotsSig:  s.wotsSign(cur, wotsSeed, pubSeed, otsAddr),
			authPath: mt.AuthPath(leaf),
		}
		cur = mt.Root()
	}

	return sig, nil
}

func (e xmssEngine) Verify(s *Scheme, pk *PublicKey, sig *Signature,
	msg []byte) bool {
	cur := s.hashMessage(msg, sig.drv, pk.root, uint64(sig.seqNo))

	var layer uint32
	for layer = 0; layer < s.p.D; layer++ {
		tree, leaf := s.subTreeAt(uint64(sig.seqNo), layer)

		var subAddr, otsAddr, lTreeAddr, nodeAddr address
		subAddr.setLayer(layer)
		subAddr.setTree(tree)
		otsAddr.setSubTreeFrom(subAddr)
		otsAddr.setType(addrTypeOTS)
		otsAddr.setOTS(leaf)
		lTreeAddr.setSubTreeFrom(subAddr)
		lTreeAddr.setType(addrTypeLTree)
		lTreeAddr.setLTree(leaf)
		nodeAddr.setSubTreeFrom(subAddr)
		nodeAddr.setType(addrTypeHashTree)

		rxSig := sig.sigs[layer]
		wotsPk := s.wotsPkFromSig(rxSig.wotsSig, cur, pk.pubSeed, otsAddr)
		curHash := s.lTree(wotsPk, pk.pubSeed, lTreeAddr)

		// use the authentication path to hash up the merkle tree
		offset := leaf
		var height uint32
		for height = 1; height <= s.treeHeight; height++ {
			var left, right []byte
			nodeAddr.setTreeHeight(height - 1)
			nodeAddr.setTreeIndex(offset >> 1)
			sibling := rxSig.authPath[(height-1)*s.p.N : height*s.p.N]

			if offset&1 == 0 {
				// we're on the left, so the sibling hash from the
				// auth path is on the right
				left = curHash
				right = sibling
			} else {
				left = sibling
				right = curHash
			}

			curHash = s.h(left, right, pk.pubSeed, nodeAddr)
			offset >>= 1
		}

		cur = curHash
	}

	return subtle.ConstantTimeCompare(cur, pk.root) == 1
}
