package convertor

import (
	"errors"
	"math/big"
	"testing"
)

func TestConvertForwardAppliesRate(t *testing.T) {
	got, err := ConvertForward(big.NewInt(100), 10, 9)
	if err != nil {
		t.Fatalf("convert forward: %v", err)
	}
	if got.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("expected 90, got %s", got)
	}
}

func TestConvertForwardTruncates(t *testing.T) {
	got, err := ConvertForward(big.NewInt(7), 2, 1)
	if err != nil {
		t.Fatalf("convert forward: %v", err)
	}
	if got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("expected 3, got %s", got)
	}
}

func TestConvertReverseSwapsRates(t *testing.T) {
	got, err := ConvertReverse(big.NewInt(90), 10, 9)
	if err != nil {
		t.Fatalf("convert reverse: %v", err)
	}
	if got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100, got %s", got)
	}
}

func TestRoundTripNeverMintsValue(t *testing.T) {
	// Converting forward and back may lose value to truncation but must never
	// come back with more than went in.
	amounts := []int64{1, 7, 99, 100, 12345, 999999937}
	for _, raw := range amounts {
		amount := big.NewInt(raw)
		forward, err := ConvertForward(amount, 10, 9)
		if err != nil {
			t.Fatalf("forward %d: %v", raw, err)
		}
		back, err := ConvertReverse(forward, 10, 9)
		if err != nil {
			t.Fatalf("reverse %d: %v", raw, err)
		}
		if back.Cmp(amount) > 0 {
			t.Fatalf("round trip of %d produced %s", raw, back)
		}
	}
}

func TestConvertRejectsZeroRates(t *testing.T) {
	if _, err := ConvertForward(big.NewInt(1), 0, 1); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	if _, err := ConvertForward(big.NewInt(1), 1, 0); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}

func TestConvertRejectsBadAmounts(t *testing.T) {
	cases := []*big.Int{
		nil,
		big.NewInt(-1),
		new(big.Int).Add(maxUint128, big.NewInt(1)),
	}
	for _, amount := range cases {
		if _, err := ConvertForward(amount, 1, 1); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %v: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestConvertOverflowNarrowing(t *testing.T) {
	// A full 128-bit amount survives the 256-bit multiplication but the result
	// no longer fits back into 128 bits.
	if _, err := ConvertForward(maxUint128, 1, 2); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
	// The same amount at parity passes through untouched.
	got, err := ConvertForward(maxUint128, 3, 3)
	if err != nil {
		t.Fatalf("parity conversion: %v", err)
	}
	if got.Cmp(maxUint128) != 0 {
		t.Fatalf("expected max amount unchanged, got %s", got)
	}
}

func TestCheckAmountBounds(t *testing.T) {
	if err := checkAmount(big.NewInt(0)); err != nil {
		t.Fatalf("zero must be a valid amount: %v", err)
	}
	if err := checkAmount(maxUint128); err != nil {
		t.Fatalf("max amount must be valid: %v", err)
	}
	if err := checkAmount(nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("nil amount: expected ErrInvalidAmount, got %v", err)
	}
}
