package pubkey

import (
	"errors"
	"testing"
)

const (
	walletAddr = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	usdcMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	// Encodes y=2, which has no x on the curve.
	offCurveAddr = "8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh"
)

func TestDecode(t *testing.T) {
	key, err := Decode(walletAddr)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := Encode(key); got != walletAddr {
		t.Errorf("Encode(Decode()) = %s, want %s", got, walletAddr)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"bad alphabet", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl"},
		{"too short", "abc"},
		{"too long", walletAddr + walletAddr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.addr)
			if !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("Decode(%q) error = %v, want ErrInvalidAddress", tt.addr, err)
			}
		})
	}
}

func TestIsOnCurve(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"wallet", walletAddr, true},
		{"mint", usdcMint, true},
		{"system program", "11111111111111111111111111111111", true},
		{"off curve", offCurveAddr, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsOnCurve(tt.addr)
			if err != nil {
				t.Fatalf("IsOnCurve failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsOnCurve(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestIsOnCurve_InvalidAddress(t *testing.T) {
	if _, err := IsOnCurve("not-an-address"); err == nil {
		t.Error("expected error for invalid address")
	}
}
