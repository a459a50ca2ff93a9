package stfl

import (
	"math/rand"
	"testing"
)

// The reference walk over a 16-signature key: carve 5, fail to carve 20,
// carve the remaining 11, then everything is spoken for.
func TestDeriveSubKeyScenario(t *testing.T) {
	s := tinyScheme(t)
	master, _ := testKeyPair(s, t)
	defer master.Release()

	subA, err := master.DeriveSubKey(5)
	if err != nil {
		t.Fatalf("DeriveSubKey(5): %v", err)
	}
	defer subA.Release()
	if subA.SeqNo() != 0 || subA.Capacity() != 5 {
		t.Fatalf("sub-key A has range [%d,%d)", subA.SeqNo(), subA.Capacity())
	}
	if !subA.SubKey() {
		t.Fatal("sub-key A should know it is a sub-key")
	}
	if master.SeqNo() != 5 {
		t.Fatalf("master index should be 5, not %d", master.SeqNo())
	}

	// Only 11 remain; the master must be left untouched by the failure.
	before, mErr := master.MarshalBinary()
	if mErr != nil {
		t.Fatalf("MarshalBinary(): %v", mErr)
	}
	if _, err = master.DeriveSubKey(20); err == nil {
		t.Fatal("DeriveSubKey(20) should fail")
	} else if err.Kind() != KindInsufficientCapacity {
		t.Fatalf("wrong error kind %v", err.Kind())
	}
	after, mErr := master.MarshalBinary()
	if mErr != nil {
		t.Fatalf("MarshalBinary(): %v", mErr)
	}
	if string(before) != string(after) {
		t.Fatal("failed derivation changed the master")
	}

	subC, err := master.DeriveSubKey(11)
	if err != nil {
		t.Fatalf("DeriveSubKey(11): %v", err)
	}
	defer subC.Release()
	if subC.SeqNo() != 5 || subC.Capacity() != 16 {
		t.Fatalf("sub-key C has range [%d,%d)", subC.SeqNo(), subC.Capacity())
	}
	total, _ := s.SigsTotal(subC)
	if total != 11 {
		t.Fatalf("sub-key C should have 11 own signatures, not %d", total)
	}

	if _, err = master.DeriveSubKey(1); err == nil {
		t.Fatal("exhausted master should not derive")
	} else if err.Kind() != KindInsufficientCapacity {
		t.Fatalf("wrong error kind %v", err.Kind())
	}
	if _, err := s.Sign(master, []byte("msg")); err == nil {
		t.Fatal("exhausted master should not sign")
	} else if err.Kind() != KindCapacityExhausted {
		t.Fatalf("wrong error kind %v", err.Kind())
	}
}

// Derive sub-keys of random sizes until the master runs dry and check that
// the carved ranges tile the master's original range without overlap.
func TestDeriveSubKeyDisjointness(t *testing.T) {
	rng := rand.New(rand.NewSource(37))

	s, err := NewScheme(Params{SHA2, 32, 10, 1, 16})
	if err != nil {
		t.Fatalf("NewScheme(): %v", err)
	}
	s.eng = &stubEngine{}
	master, _ := testKeyPair(s, t)
	defer master.Release()

	fullRange := uint64(master.Capacity())
	var next uint64
	for {
		rem, aErr := s.SigsRemaining(master)
		if aErr != nil {
			t.Fatalf("SigsRemaining(): %v", aErr)
		}
		if rem == 0 {
			break
		}
		n := uint64(rng.Int63n(100)) + 1
		sub, dErr := master.DeriveSubKey(n)
		if n > rem {
			if dErr == nil || dErr.Kind() != KindInsufficientCapacity {
				t.Fatalf("oversized reservation misbehaved: %v", dErr)
			}
			n = rem // drain the tail instead
			sub, dErr = master.DeriveSubKey(n)
		}
		if dErr != nil {
			t.Fatalf("DeriveSubKey(%d): %v", n, dErr)
		}

		// Each sub-key must start exactly where the previous one
		// ended; together with the capacity bound that makes all
		// ranges pairwise disjoint and gap-free.
		if uint64(sub.SeqNo()) != next {
			t.Fatalf("sub-key starts at %d, expected %d", sub.SeqNo(), next)
		}
		if uint64(sub.Capacity()) != next+n {
			t.Fatalf("sub-key ends at %d, expected %d",
				sub.Capacity(), next+n)
		}
		next += n
		sub.Release()
	}

	if next != fullRange {
		t.Fatalf("carved ranges cover [0,%d), expected [0,%d)",
			next, fullRange)
	}
}

// A sub-key signs with the indices of its reserved range and its
// signatures check out against the master's public key.
func TestSubKeySignatures(t *testing.T) {
	s := smallScheme(t)
	master, pk := testKeyPair(s, t)
	defer master.Release()
	msg := []byte("test message")

	sub, err := master.DeriveSubKey(2)
	if err != nil {
		t.Fatalf("DeriveSubKey(): %v", err)
	}
	defer sub.Release()

	// Master signs past the carved range.
	sig, err := s.Sign(master, msg)
	if err != nil {
		t.Fatalf("Sign(): %v", err)
	}
	if sig.SeqNo() != 2 {
		t.Fatalf("master signed with index %d inside the carved range",
			sig.SeqNo())
	}

	// Sub-key signs inside it.
	subSig, err := s.Sign(sub, msg)
	if err != nil {
		t.Fatalf("Sign(): %v", err)
	}
	if subSig.SeqNo() != 0 {
		t.Fatalf("sub-key signed with index %d", subSig.SeqNo())
	}

	for _, sg := range []*Signature{sig, subSig} {
		sigOk, vErr := s.Verify(pk, sg, msg)
		if vErr != nil {
			t.Fatalf("Verify(): %v", vErr)
		}
		if !sigOk {
			t.Fatalf("signature with index %d does not verify", sg.SeqNo())
		}
	}

	// Exhausting the sub-key does not touch the master.
	if _, err = s.Sign(sub, msg); err != nil {
		t.Fatalf("Sign(): %v", err)
	}
	if _, err = s.Sign(sub, msg); err == nil {
		t.Fatal("exhausted sub-key should not sign")
	} else if err.Kind() != KindCapacityExhausted {
		t.Fatalf("wrong error kind %v", err.Kind())
	}
	if master.SeqNo() != 3 {
		t.Fatalf("master index moved to %d", master.SeqNo())
	}
}

func TestModifyMaximum(t *testing.T) {
	s := tinyScheme(t)
	sk, _, err := s.GenerateKeyPairWithMaximum(4)
	if err != nil {
		t.Fatalf("GenerateKeyPairWithMaximum(): %v", err)
	}
	defer sk.Release()

	// lowering is forbidden, raising past the ceiling is forbidden
	if err := sk.ModifyMaximum(2); err == nil {
		t.Fatal("lowering the capacity should fail")
	} else if err.Kind() != KindInvalidKey {
		t.Fatalf("wrong error kind %v", err.Kind())
	}
	if err := sk.ModifyMaximum(17); err == nil {
		t.Fatal("raising past the ceiling should fail")
	} else if err.Kind() != KindInsufficientCapacity {
		t.Fatalf("wrong error kind %v", err.Kind())
	}

	if err := sk.ModifyMaximum(10); err != nil {
		t.Fatalf("ModifyMaximum(10): %v", err)
	}
	rem, _ := s.SigsRemaining(sk)
	if rem != 10 {
		t.Fatalf("expected 10 remaining, got %d", rem)
	}
	total, _ := s.SigsTotal(sk)
	if total != 10 {
		t.Fatalf("expected 10 total, got %d", total)
	}

	// a sub-key's capacity is frozen
	sub, dErr := sk.DeriveSubKey(3)
	if dErr != nil {
		t.Fatalf("DeriveSubKey(): %v", dErr)
	}
	defer sub.Release()
	if err := sub.ModifyMaximum(16); err == nil {
		t.Fatal("raising a sub-key's capacity should fail")
	} else if err.Kind() != KindInvalidKey {
		t.Fatalf("wrong error kind %v", err.Kind())
	}
}
