package stfl

import (
	"runtime"
	"sync"
)

// Represents a height t merkle tree of n-byte strings T[i,j] as
//
//                    T[t-1,0]
//                 /
//               (...)        (...)
//            /           \            \
//         T[1,0]        T[1,1]  ...  T[1,2^(t-2)-1]
//        /     \       /      \          \
//     T[0,0] T[0,1] T[0,2]  T[0,3]  ...  T[0,2^(t-1)-1]
//
// as an (2^t-1)*n byte array.
type merkleTree struct {
	height uint32
	n      uint32
	buf    []byte
}

// Allocates memory for a merkle tree of n-byte strings of the given height.
func newMerkleTree(height, n uint32) merkleTree {
	return merkleTree{
		height: height,
		n:      n,
		buf:    make([]byte, ((1<<height)-1)*n),
	}
}

// Returns a slice to the given node.
func (mt *merkleTree) Node(height, index uint32) []byte {
	ptr := mt.n * ((1 << mt.height) - (1 << (mt.height - height)) + index)
	return mt.buf[ptr : ptr+mt.n]
}

// Returns the root of the tree.
func (mt *merkleTree) Root() []byte {
	return mt.Node(mt.height-1, 0)
}

// Returns the authentication path for the given leaf.
func (mt *merkleTree) AuthPath(leaf uint32) []byte {
	ret := make([]byte, (mt.height-1)*mt.n)
	node := leaf
	var height uint32
	for height = 0; height < mt.height-1; height++ {
		copy(ret[height*mt.n:], mt.Node(height, node^1))
		node >>= 1
	}
	return ret
}

// Compute a subtree by expanding the secret seed into WOTS+ keypairs
// and then hashing up.
func (s *Scheme) genSubTree(skSeed, pubSeed []byte, addr address) merkleTree {
	mt := newMerkleTree(s.treeHeight+1, s.p.N)

	var otsAddr, lTreeAddr, nodeAddr address
	otsAddr.setSubTreeFrom(addr)
	otsAddr.setType(addrTypeOTS)
	lTreeAddr.setSubTreeFrom(addr)
	lTreeAddr.setType(addrTypeLTree)
	nodeAddr.setSubTreeFrom(addr)
	nodeAddr.setType(addrTypeHashTree)

	// First, compute the leafs.  This is by far the most expensive part,
	// so it is fanned out over worker goroutines.
	var idx uint32
	threads := s.Threads
	if threads == 0 {
		threads = runtime.NumCPU()
	}

	if threads == 1 {
		for idx = 0; idx < (1 << s.treeHeight); idx++ {
			lTreeAddr.setLTree(idx)
			otsAddr.setOTS(idx)
			copy(mt.Node(0, idx),
				s.genLeaf(skSeed, pubSeed, lTreeAddr, otsAddr))
		}
	} else {
		wg := &sync.WaitGroup{}
		mux := &sync.Mutex{}
		var perBatch uint32 = 32
		wg.Add(threads)
		for i := 0; i < threads; i++ {
			go func(lTreeAddr, otsAddr address) {
				defer wg.Done()
				var ourIdx uint32
				for {
					mux.Lock()
					ourIdx = idx
					idx += perBatch
					mux.Unlock()
					if ourIdx >= 1<<s.treeHeight {
						break
					}
					ourEnd := ourIdx + perBatch
					if ourEnd > 1<<s.treeHeight {
						ourEnd = 1 << s.treeHeight
					}
					for ; ourIdx < ourEnd; ourIdx++ {
						lTreeAddr.setLTree(ourIdx)
						otsAddr.setOTS(ourIdx)
						copy(mt.Node(0, ourIdx),
							s.genLeaf(skSeed, pubSeed, lTreeAddr, otsAddr))
					}
				}
			}(lTreeAddr, otsAddr)
		}
		wg.Wait()
	}

	// Next, compute the internal nodes and root
	var height uint32
	for height = 1; height <= s.treeHeight; height++ {
		nodeAddr.setTreeHeight(height - 1)
		for idx = 0; idx < (1 << (s.treeHeight - height)); idx++ {
			nodeAddr.setTreeIndex(idx)
			copy(mt.Node(height, idx),
				s.h(mt.Node(height-1, 2*idx),
					mt.Node(height-1, 2*idx+1),
					pubSeed, nodeAddr))
		}
	}

	return mt
}

// Computes the leaf node associated to a WOTS+ public key.
// Note that the WOTS+ public key is destroyed.
func (s *Scheme) lTree(wotsPk, pubSeed []byte, addr address) []byte {
	var height uint32 = 0
	var l uint32 = s.wotsLen
	for l > 1 {
		addr.setTreeHeight(height)
		parentNodes := l >> 1
		var i uint32
		for i = 0; i < parentNodes; i++ {
			addr.setTreeIndex(i)
			copy(wotsPk[i*s.p.N:(i+1)*s.p.N],
				s.h(wotsPk[2*i*s.p.N:(2*i+1)*s.p.N],
					wotsPk[(2*i+1)*s.p.N:(2*i+2)*s.p.N],
					pubSeed, addr))
		}
		if l&1 == 1 {
			copy(wotsPk[(l>>1)*s.p.N:((l>>1)+1)*s.p.N],
				wotsPk[(l-1)*s.p.N:l*s.p.N])
			l = (l >> 1) + 1
		} else {
			l = l >> 1
		}
		height++
	}
	ret := make([]byte, s.p.N)
	copy(ret, wotsPk[:s.p.N])
	return ret
}

// Generate the leaf at the given address by first computing the
// WOTS+ key pair and then using lTree.
func (s *Scheme) genLeaf(skSeed, pubSeed []byte, lTreeAddr, otsAddr address) []byte {
	seed := s.getWotsSeed(skSeed, otsAddr)
	pk := s.wotsPkGen(seed, pubSeed, otsAddr)
	return s.lTree(pk, pubSeed, lTreeAddr)
}

// Derive the seed for the WOTS+ key pair at the given address
// from the secret key seed
func (s *Scheme) getWotsSeed(skSeed []byte, addr address) []byte {
	addr.setChain(0)
	addr.setHash(0)
	addr.setKeyAndMask(0)
	return s.prfAddr(addr, skSeed)
}
