package convertor

import (
	"errors"
	"math/big"
	"testing"
)

func newTestLedger(t *testing.T) *AccountLedger {
	t.Helper()
	ledger := NewAccountLedger(newMockStorage())
	// Flat pricing keeps the arithmetic in the assertions readable.
	ledger.SetQuotaParams(QuotaParams{ByteCost: big.NewInt(1), BaseBytes: 100, EntryBytes: 50})
	return ledger
}

func TestRequiredQuotaScalesWithEntries(t *testing.T) {
	ledger := newTestLedger(t)
	account := NewAccount()
	if got := ledger.RequiredQuota(account); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("empty account: expected 100, got %s", got)
	}
	if err := account.DepositToken("usdc.test", big.NewInt(1)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := account.DepositToken("usdt.test", big.NewInt(1)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := ledger.RequiredQuota(account); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("two entries: expected 200, got %s", got)
	}
}

func TestDebtAndAvailable(t *testing.T) {
	ledger := newTestLedger(t)
	account := NewAccount()
	account.QuotaBalance = big.NewInt(130)

	if got := ledger.Debt(account); got.Sign() != 0 {
		t.Fatalf("covered account: expected zero debt, got %s", got)
	}
	if got := ledger.Available(account); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected 30 available, got %s", got)
	}

	if err := account.DepositToken("usdc.test", big.NewInt(1)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := ledger.Debt(account); got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("expected 20 debt, got %s", got)
	}
	if got := ledger.Available(account); got.Sign() != 0 {
		t.Fatalf("indebted account: expected zero available, got %s", got)
	}
}

func TestSaveRefusesQuotaDebt(t *testing.T) {
	ledger := newTestLedger(t)
	account := NewAccount()
	account.QuotaBalance = big.NewInt(99)
	err := ledger.Save("alice.test", account, true)
	if !errors.Is(err, ErrQuotaDebt) {
		t.Fatalf("expected ErrQuotaDebt, got %v", err)
	}
	if _, ok, err := ledger.Get("alice.test"); err != nil || ok {
		t.Fatalf("refused save must not persist: ok=%v err=%v", ok, err)
	}

	account.QuotaBalance = big.NewInt(100)
	if err := ledger.Save("alice.test", account, true); err != nil {
		t.Fatalf("covered save: %v", err)
	}
}

func TestDepositTokenSkipsQuotaCheck(t *testing.T) {
	ledger := newTestLedger(t)
	// Compensation credits must land even on an unfunded account.
	if err := ledger.DepositToken("alice.test", "usdc.test", big.NewInt(25)); err != nil {
		t.Fatalf("deposit token: %v", err)
	}
	account, ok, err := ledger.Get("alice.test")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if account.Tokens["usdc.test"].Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("unexpected custodial balance: %s", account.Tokens["usdc.test"])
	}
	if debt := ledger.Debt(account); debt.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("expected 150 debt, got %s", debt)
	}
}

func TestApplyAbortsOnClosureError(t *testing.T) {
	ledger := newTestLedger(t)
	account := NewAccount()
	account.QuotaBalance = big.NewInt(100)
	if err := ledger.Save("alice.test", account, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	boom := errors.New("boom")
	err := ledger.Apply("alice.test", true, func(a *Account) error {
		a.QuotaBalance = big.NewInt(0)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected closure error, got %v", err)
	}
	reloaded, _, err := ledger.Get("alice.test")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.QuotaBalance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("aborted apply leaked a write: %s", reloaded.QuotaBalance)
	}
}

func TestApplyMissingAccount(t *testing.T) {
	ledger := newTestLedger(t)
	err := ledger.Apply("ghost.test", false, func(*Account) error { return nil })
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestUnregisterRules(t *testing.T) {
	ledger := newTestLedger(t)

	if _, err := ledger.Unregister("ghost.test"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	account := NewAccount()
	account.QuotaBalance = big.NewInt(150)
	if err := account.DepositToken("usdc.test", big.NewInt(5)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := ledger.Save("alice.test", account, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := ledger.Unregister("alice.test"); !errors.Is(err, ErrAccountNotEmpty) {
		t.Fatalf("expected ErrAccountNotEmpty, got %v", err)
	}

	err := ledger.Apply("alice.test", false, func(a *Account) error {
		if _, err := a.WithdrawAllToken("usdc.test"); err != nil {
			return err
		}
		a.incInflight()
		return nil
	})
	if err != nil {
		t.Fatalf("prepare inflight state: %v", err)
	}
	if _, err := ledger.Unregister("alice.test"); !errors.Is(err, ErrTransferInFlight) {
		t.Fatalf("expected ErrTransferInFlight, got %v", err)
	}

	if err := ledger.Apply("alice.test", false, func(a *Account) error { return a.decInflight() }); err != nil {
		t.Fatalf("release lease: %v", err)
	}
	refund, err := ledger.Unregister("alice.test")
	if err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if refund.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("expected 150 refunded, got %s", refund)
	}
	if _, ok, err := ledger.Get("alice.test"); err != nil || ok {
		t.Fatalf("record must be gone: ok=%v err=%v", ok, err)
	}
}

func TestWithdrawAllTokenSemantics(t *testing.T) {
	account := NewAccount()
	if _, err := account.WithdrawAllToken("usdc.test"); !errors.Is(err, ErrNoTokenBalance) {
		t.Fatalf("expected ErrNoTokenBalance, got %v", err)
	}
	if err := account.DepositToken("usdc.test", big.NewInt(9)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	got, err := account.WithdrawAllToken("usdc.test")
	if err != nil {
		t.Fatalf("withdraw all: %v", err)
	}
	if got.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("expected 9, got %s", got)
	}
	// The entry is removed, so a second withdraw fails identically.
	if _, err := account.WithdrawAllToken("usdc.test"); !errors.Is(err, ErrNoTokenBalance) {
		t.Fatalf("expected ErrNoTokenBalance after drain, got %v", err)
	}
}

func TestAccountRoundTripThroughStorage(t *testing.T) {
	ledger := newTestLedger(t)
	account := NewAccount()
	account.QuotaBalance = big.NewInt(500)
	if err := account.DepositToken("usdc.test", big.NewInt(11)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := account.DepositToken("dai.test", big.NewInt(22)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	account.incInflight()
	if err := ledger.Save("alice.test", account, true); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, ok, err := ledger.Get("alice.test")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if loaded.QuotaBalance.Cmp(big.NewInt(500)) != 0 || loaded.InflightTransfers != 1 {
		t.Fatalf("scalar fields lost: %+v", loaded)
	}
	if loaded.Tokens["usdc.test"].Cmp(big.NewInt(11)) != 0 || loaded.Tokens["dai.test"].Cmp(big.NewInt(22)) != 0 {
		t.Fatalf("token map lost: %+v", loaded.Tokens)
	}
}
