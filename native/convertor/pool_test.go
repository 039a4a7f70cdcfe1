package convertor

import (
	"errors"
	"math/big"
	"testing"
)

func newTestPool(t *testing.T, reversible bool, inRate, outRate uint32) *ConversionPool {
	t.Helper()
	pool, err := NewConversionPool("alice.test", "usdc.test", "usdt.test", reversible, inRate, outRate, big.NewInt(0))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return pool
}

func TestNewConversionPoolValidation(t *testing.T) {
	if _, err := NewConversionPool("alice.test", "usdc.test", "usdc.test", false, 1, 1, big.NewInt(0)); !errors.Is(err, ErrSameToken) {
		t.Fatalf("expected ErrSameToken, got %v", err)
	}
	if _, err := NewConversionPool("alice.test", "usdc.test", "usdt.test", false, 0, 1, big.NewInt(0)); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	if _, err := NewConversionPool("alice.test", " ", "usdt.test", false, 1, 1, big.NewInt(0)); err == nil {
		t.Fatal("expected error for blank token")
	}
}

func TestConvertForwardMovesBothBalances(t *testing.T) {
	pool := newTestPool(t, false, 10, 9)
	if err := pool.AddLiquidity("usdt.test", big.NewInt(1000)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	token, amount, err := pool.Convert("usdc.test", big.NewInt(100))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if token != "usdt.test" {
		t.Fatalf("expected usdt.test released, got %s", token)
	}
	if amount.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("expected 90 released, got %s", amount)
	}
	if pool.InTokenBalance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("in balance: expected 100, got %s", pool.InTokenBalance)
	}
	if pool.OutTokenBalance.Cmp(big.NewInt(910)) != 0 {
		t.Fatalf("out balance: expected 910, got %s", pool.OutTokenBalance)
	}
}

func TestConvertReverseRequiresReversiblePool(t *testing.T) {
	pool := newTestPool(t, false, 1, 1)
	if err := pool.AddLiquidity("usdc.test", big.NewInt(100)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if _, _, err := pool.Convert("usdt.test", big.NewInt(10)); !errors.Is(err, ErrDirectionNotAllowed) {
		t.Fatalf("expected ErrDirectionNotAllowed, got %v", err)
	}

	reversible := newTestPool(t, true, 1, 1)
	if err := reversible.AddLiquidity("usdc.test", big.NewInt(100)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	token, amount, err := reversible.Convert("usdt.test", big.NewInt(10))
	if err != nil {
		t.Fatalf("reverse convert: %v", err)
	}
	if token != "usdc.test" || amount.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected 10 usdc.test, got %s %s", amount, token)
	}
}

func TestConvertRejectsForeignToken(t *testing.T) {
	pool := newTestPool(t, true, 1, 1)
	if _, _, err := pool.Convert("dai.test", big.NewInt(1)); !errors.Is(err, ErrIllegalToken) {
		t.Fatalf("expected ErrIllegalToken, got %v", err)
	}
}

func TestConvertInsufficientBalanceLeavesPoolUntouched(t *testing.T) {
	pool := newTestPool(t, false, 1, 1)
	if err := pool.AddLiquidity("usdt.test", big.NewInt(5)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	_, _, err := pool.Convert("usdc.test", big.NewInt(10))
	if !errors.Is(err, ErrInsufficientPoolBalance) {
		t.Fatalf("expected ErrInsufficientPoolBalance, got %v", err)
	}
	if pool.InTokenBalance.Sign() != 0 {
		t.Fatalf("in balance mutated on failed convert: %s", pool.InTokenBalance)
	}
	if pool.OutTokenBalance.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("out balance mutated on failed convert: %s", pool.OutTokenBalance)
	}
}

func TestAddLiquidityEitherSide(t *testing.T) {
	pool := newTestPool(t, false, 1, 1)
	if err := pool.AddLiquidity("usdc.test", big.NewInt(3)); err != nil {
		t.Fatalf("add in side: %v", err)
	}
	if err := pool.AddLiquidity("usdt.test", big.NewInt(4)); err != nil {
		t.Fatalf("add out side: %v", err)
	}
	if err := pool.AddLiquidity("dai.test", big.NewInt(1)); !errors.Is(err, ErrIllegalToken) {
		t.Fatalf("expected ErrIllegalToken, got %v", err)
	}
	if pool.InTokenBalance.Cmp(big.NewInt(3)) != 0 || pool.OutTokenBalance.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("unexpected balances %s/%s", pool.InTokenBalance, pool.OutTokenBalance)
	}
}

func TestWithdrawNilDrainsSide(t *testing.T) {
	pool := newTestPool(t, false, 1, 1)
	if err := pool.AddLiquidity("usdc.test", big.NewInt(42)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	released, err := pool.Withdraw("usdc.test", nil)
	if err != nil {
		t.Fatalf("withdraw all: %v", err)
	}
	if released.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("expected 42 released, got %s", released)
	}
	if pool.InTokenBalance.Sign() != 0 {
		t.Fatalf("balance not drained: %s", pool.InTokenBalance)
	}
}

func TestWithdrawPartialAndOverdraw(t *testing.T) {
	pool := newTestPool(t, false, 1, 1)
	if err := pool.AddLiquidity("usdt.test", big.NewInt(10)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	released, err := pool.Withdraw("usdt.test", big.NewInt(4))
	if err != nil {
		t.Fatalf("partial withdraw: %v", err)
	}
	if released.Cmp(big.NewInt(4)) != 0 || pool.OutTokenBalance.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("unexpected state after withdraw: released=%s balance=%s", released, pool.OutTokenBalance)
	}
	if _, err := pool.Withdraw("usdt.test", big.NewInt(7)); !errors.Is(err, ErrInsufficientPoolBalance) {
		t.Fatalf("expected ErrInsufficientPoolBalance, got %v", err)
	}
}

func TestEnsureDeletable(t *testing.T) {
	pool := newTestPool(t, false, 1, 1)
	if err := pool.EnsureDeletable(); err != nil {
		t.Fatalf("empty pool must be deletable: %v", err)
	}
	if err := pool.AddLiquidity("usdc.test", big.NewInt(1)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if err := pool.EnsureDeletable(); !errors.Is(err, ErrPoolNotEmpty) {
		t.Fatalf("expected ErrPoolNotEmpty, got %v", err)
	}
}

func TestBalanceOverflowChecked(t *testing.T) {
	pool := newTestPool(t, false, 1, 1)
	if err := pool.AddLiquidity("usdc.test", maxUint128); err != nil {
		t.Fatalf("seed max balance: %v", err)
	}
	if err := pool.AddLiquidity("usdc.test", big.NewInt(1)); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	pool := newTestPool(t, true, 2, 3)
	if err := pool.AddLiquidity("usdc.test", big.NewInt(100)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	clone := pool.Clone()
	clone.InTokenBalance.Add(clone.InTokenBalance, big.NewInt(50))
	if pool.InTokenBalance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("clone mutation leaked into original: %s", pool.InTokenBalance)
	}
}
