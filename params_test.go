package stfl

import (
	"testing"
)

func TestRegistryLookups(t *testing.T) {
	for _, name := range ListNames() {
		params := ParamsFromName(name)
		if params == nil {
			t.Fatalf("ParamsFromName(%s) failed", name)
		}
		s := NewSchemeFromName(name)
		if s == nil {
			t.Fatalf("NewSchemeFromName(%s) failed", name)
		}
		if s.Name() != name {
			t.Fatalf("scheme for %s reports name %s", name, s.Name())
		}
		s2 := NewSchemeFromOid(s.MT(), s.Oid())
		if s2 == nil || s2.Name() != name {
			t.Fatalf("oid lookup for %s failed", name)
		}
	}
}

func TestSchemeSizes(t *testing.T) {
	s := NewSchemeFromName("XMSSMT-SHA2_20/2_256")
	if s == nil {
		t.Fatal("NewSchemeFromName failed")
	}
	// 20-bit index: 3-byte counters (21 bits rounded up), three of them,
	// plus oid and flags.
	if s.SecretKeySize() != 4+1+3*3+4*32 {
		t.Fatalf("wrong secret key size %d", s.SecretKeySize())
	}
	if s.PublicKeySize() != 4+2*32 {
		t.Fatalf("wrong public key size %d", s.PublicKeySize())
	}
	// index + R + 2 WOTS+ signatures + full height auth path
	if s.SignatureSize() != 3+32+2*67*32+20*32 {
		t.Fatalf("wrong signature size %d", s.SignatureSize())
	}
	if s.Params().MaxSeqNo() != 1<<20 {
		t.Fatalf("wrong capacity ceiling %d", s.Params().MaxSeqNo())
	}

	// 40-bit index: 5-byte signature index, but 6-byte counters so the
	// ceiling 2^40 itself fits.
	s40 := NewSchemeFromName("XMSSMT-SHA2_40/2_256")
	if s40 == nil {
		t.Fatal("NewSchemeFromName failed")
	}
	if s40.SecretKeySize() != 4+1+3*6+4*32 {
		t.Fatalf("wrong secret key size %d", s40.SecretKeySize())
	}
	if s40.Params().MaxSeqNo() != 1<<40 {
		t.Fatalf("wrong capacity ceiling %d", s40.Params().MaxSeqNo())
	}
}

func TestNewSchemeRejectsBadParams(t *testing.T) {
	if _, err := NewScheme(Params{SHA2, 24, 10, 1, 16}); err == nil {
		t.Fatal("N=24 should be rejected")
	}
	if _, err := NewScheme(Params{SHA2, 32, 10, 3, 16}); err == nil {
		t.Fatal("D not dividing FullHeight should be rejected")
	}
	if _, err := NewScheme(Params{SHA2, 32, 10, 0, 16}); err == nil {
		t.Fatal("D=0 should be rejected")
	}
	if _, err := NewScheme(Params{SHA2, 32, 10, 1, 4}); err == nil {
		t.Fatal("WotsW=4 should be rejected")
	}
	if _, err := NewScheme(Params{SHA2, 32, 64, 1, 16}); err == nil {
		t.Fatal("FullHeight=64 should be rejected")
	}
}
