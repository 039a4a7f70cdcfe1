package convertor

import (
	"errors"
	"math/big"
	"testing"
)

func newTestRegistry(t *testing.T) *PoolRegistry {
	t.Helper()
	return NewPoolRegistry(newMockStorage())
}

func mustCreatePool(t *testing.T, r *PoolRegistry, creator, in, out string) PoolID {
	t.Helper()
	pool, err := NewConversionPool(creator, in, out, false, 1, 1, big.NewInt(0))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	id, err := r.Create(pool)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	return id
}

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	r := newTestRegistry(t)
	first := mustCreatePool(t, r, "alice.test", "usdc.test", "usdt.test")
	second := mustCreatePool(t, r, "alice.test", "usdc.test", "dai.test")
	if first != 1 || second != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", first, second)
	}
}

func TestDeletedIDIsNeverReused(t *testing.T) {
	r := newTestRegistry(t)
	first := mustCreatePool(t, r, "alice.test", "usdc.test", "usdt.test")
	if err := r.Delete(first); err != nil {
		t.Fatalf("delete: %v", err)
	}
	next := mustCreatePool(t, r, "alice.test", "usdc.test", "usdt.test")
	if next != 2 {
		t.Fatalf("expected id 2 after deleting id 1, got %d", next)
	}
	if _, ok, err := r.Get(first); err != nil || ok {
		t.Fatalf("deleted pool still resolvable: ok=%v err=%v", ok, err)
	}
}

func TestDeleteRequiresEmptyPool(t *testing.T) {
	r := newTestRegistry(t)
	id := mustCreatePool(t, r, "alice.test", "usdc.test", "usdt.test")
	pool, ok, err := r.Get(id)
	if err != nil || !ok {
		t.Fatalf("get pool: ok=%v err=%v", ok, err)
	}
	if err := pool.AddLiquidity("usdc.test", big.NewInt(5)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if err := r.Replace(id, pool); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := r.Delete(id); !errors.Is(err, ErrPoolNotEmpty) {
		t.Fatalf("expected ErrPoolNotEmpty, got %v", err)
	}
}

func TestReplaceMissingPoolFails(t *testing.T) {
	r := newTestRegistry(t)
	pool, err := NewConversionPool("alice.test", "usdc.test", "usdt.test", false, 1, 1, big.NewInt(0))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	if err := r.Replace(99, pool); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestRoundTripPreservesPoolFields(t *testing.T) {
	r := newTestRegistry(t)
	pool, err := NewConversionPool("alice.test", "usdc.test", "usdt.test", true, 10, 9, big.NewInt(77))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	if err := pool.AddLiquidity("usdt.test", big.NewInt(500)); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	id, err := r.Create(pool)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loaded, ok, err := r.Get(id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if loaded.Creator != "alice.test" || loaded.InToken != "usdc.test" || loaded.OutToken != "usdt.test" {
		t.Fatalf("identity fields lost: %+v", loaded)
	}
	if !loaded.Reversible || loaded.InTokenRate != 10 || loaded.OutTokenRate != 9 {
		t.Fatalf("rate fields lost: %+v", loaded)
	}
	if loaded.OutTokenBalance.Cmp(big.NewInt(500)) != 0 || loaded.DepositAmount.Cmp(big.NewInt(77)) != 0 {
		t.Fatalf("amount fields lost: %+v", loaded)
	}
}

func TestListPagination(t *testing.T) {
	r := newTestRegistry(t)
	for i := 0; i < 5; i++ {
		mustCreatePool(t, r, "alice.test", "usdc.test", "usdt.test")
	}
	page, err := r.List(1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != 2 || page[1].ID != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}
	tail, err := r.List(4, 10)
	if err != nil {
		t.Fatalf("list tail: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != 5 {
		t.Fatalf("unexpected tail: %+v", tail)
	}
	empty, err := r.List(9, 2)
	if err != nil {
		t.Fatalf("list beyond end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d entries", len(empty))
	}
}

func TestByCreatorAndByPair(t *testing.T) {
	r := newTestRegistry(t)
	mustCreatePool(t, r, "alice.test", "usdc.test", "usdt.test")
	mustCreatePool(t, r, "bob.test", "usdc.test", "usdt.test")
	mustCreatePool(t, r, "alice.test", "dai.test", "usdt.test")

	mine, err := r.ByCreator("alice.test")
	if err != nil {
		t.Fatalf("by creator: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 pools for alice.test, got %d", len(mine))
	}

	pair, err := r.ByPair("usdt.test", "usdc.test")
	if err != nil {
		t.Fatalf("by pair: %v", err)
	}
	if len(pair) != 2 {
		t.Fatalf("expected 2 usdc/usdt pools, got %d", len(pair))
	}

	count, err := r.Len()
	if err != nil || count != 3 {
		t.Fatalf("len: expected 3, got %d (err=%v)", count, err)
	}
}
