package common

import (
	"encoding/hex"
	"testing"
)

func TestMakeRandHexString(t *testing.T) {
	const n = 32
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}

	s2, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == s2 {
		t.Fatalf("two random strings are identical")
	}
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
	WipeByteArray(nil)
}

func TestLockedOutError_Is(t *testing.T) {
	err := &LockedOutError{}
	if !err.Is(ErrorLockedOut) {
		t.Fatalf("LockedOutError must match ErrorLockedOut")
	}
	if err.Is(ErrorNotFound) {
		t.Fatalf("LockedOutError must not match ErrorNotFound")
	}
}
