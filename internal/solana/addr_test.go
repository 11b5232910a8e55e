package solana

import "testing"

const (
	// System program: a valid 32-byte base58 address, on-curve.
	systemProgram = "11111111111111111111111111111111"
	// The wrapped SOL mint address.
	wsolMint = "So11111111111111111111111111111111111111112"
)

func TestIsValidAddress(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{systemProgram, true},
		{wsolMint, true},
		{"", false},
		{"notbase58!!!", false},
		{"abc", false}, // decodes to fewer than 32 bytes
	}

	for _, c := range cases {
		if got := IsValidAddress(c.in); got != c.want {
			t.Errorf("IsValidAddress(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsValidSignature(t *testing.T) {
	// 64 bytes of zeros base58-encodes to 64 '1' characters.
	sig64 := ""
	for i := 0; i < 64; i++ {
		sig64 += "1"
	}

	if !IsValidSignature(sig64) {
		t.Error("64-byte signature rejected")
	}
	if IsValidSignature(systemProgram) {
		t.Error("32-byte value accepted as signature")
	}
	if IsValidSignature("???") {
		t.Error("non-base58 value accepted as signature")
	}
}

func TestIsOnCurve(t *testing.T) {
	// The all-zeros key is a valid curve point encoding.
	if !IsOnCurve(systemProgram) {
		t.Error("system program address should decode as a curve point")
	}
	if IsOnCurve("notbase58!!!") {
		t.Error("invalid input reported on-curve")
	}
	if IsOnCurve("abc") {
		t.Error("short input reported on-curve")
	}
}
