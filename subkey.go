package stfl

// Carves a sub-key of n one-time keys out of the master's remaining range.
//
// The sub-key receives the range [master.seqNo, master.seqNo+n) and the
// master's index is advanced past it before this call returns, so the
// ranges of the master and of every sub-key ever derived from it are
// pairwise disjoint.  After derivation the sub-key is fully independent:
// it shares no state with the master and may be handed to another signer.
//
// On failure the master is left completely unchanged.
func (sk *SecretKey) DeriveSubKey(n uint64) (*SecretKey, Error) {
	sk.mux.Lock()
	defer sk.mux.Unlock()

	if sk.released {
		return nil, errorf(KindUseAfterRelease,
			"secret key has been released")
	}
	if n == 0 {
		return nil, errorf(KindInsufficientCapacity,
			"cannot reserve an empty range")
	}
	if uint64(sk.capSeqNo-sk.seqNo) < n {
		return nil, errorf(KindInsufficientCapacity,
			"%d signatures requested, but only %d remain",
			n, sk.capSeqNo-sk.seqNo)
	}

	start := sk.seqNo
	sub := &SecretKey{
		sch:       sk.sch,
		seqNo:     start,
		capSeqNo:  start + SignatureSeqNo(n),
		baseSeqNo: start,
		skSeed:    cloneBytes(sk.skSeed),
		skPrf:     cloneBytes(sk.skPrf),
		pubSeed:   cloneBytes(sk.pubSeed),
		root:      cloneBytes(sk.root),
		sub:       true,
	}

	// The reserved range becomes permanently unavailable to the master.
	sk.seqNo = start + SignatureSeqNo(n)

	log.Logf("derived sub-key for range [%d,%d)", start, sk.seqNo)
	return sub, nil
}

// Raises the key's capacity up to the parameter set's 2^FullHeight ceiling.
//
// This is a privileged operation: lowering and re-raising a capacity could
// re-expose already-used indices, so the capacity may only ever move up,
// and never on a sub-key (its range was fixed at derivation to keep it
// disjoint from its siblings).
func (sk *SecretKey) ModifyMaximum(newMax uint64) Error {
	sk.mux.Lock()
	defer sk.mux.Unlock()

	if sk.released {
		return errorf(KindUseAfterRelease, "secret key has been released")
	}
	if sk.sub {
		return errorf(KindInvalidKey,
			"the capacity of a sub-key is fixed at derivation")
	}
	if newMax > sk.sch.p.MaxSeqNo() {
		return errorf(KindInsufficientCapacity,
			"maximum %d exceeds the %d one-time keys of this parameter set",
			newMax, sk.sch.p.MaxSeqNo())
	}
	if newMax < uint64(sk.capSeqNo) {
		return errorf(KindInvalidKey,
			"capacity may only be raised (current %d, requested %d)",
			sk.capSeqNo, newMax)
	}

	sk.capSeqNo = SignatureSeqNo(newMax)
	return nil
}
