package convertor

import (
	"fmt"
)

// PoolRegistry is an ordered keyed collection of conversion pools. Identifiers
// are assigned from a persisted monotonic counter and never reused, so a
// deleted pool's id stays dead forever.
type PoolRegistry struct {
	store Storage
}

// NewPoolRegistry constructs a registry bound to the provided storage backend.
func NewPoolRegistry(store Storage) *PoolRegistry {
	return &PoolRegistry{store: store}
}

// Create assigns the next unused identifier, persists the pool and records it
// in the enumeration index.
func (r *PoolRegistry) Create(pool *ConversionPool) (PoolID, error) {
	if r == nil || r.store == nil {
		return 0, fmt.Errorf("convertor: pool registry not initialised")
	}
	if pool == nil {
		return 0, fmt.Errorf("convertor: pool must not be nil")
	}
	var next uint64
	if _, err := r.store.KVGet(poolNextIDKey, &next); err != nil {
		return 0, err
	}
	id := PoolID(next + 1)
	if err := r.store.KVPut(poolNextIDKey, uint64(id)); err != nil {
		return 0, err
	}
	pool.ID = id
	if err := r.store.KVPut(poolKey(id), toStoredPool(pool)); err != nil {
		return 0, err
	}
	index, err := r.loadIndex()
	if err != nil {
		return 0, err
	}
	index = append(index, uint64(id))
	if err := r.store.KVPut(poolIndexKey, index); err != nil {
		return 0, err
	}
	return id, nil
}

// Get retrieves a pool by identifier.
func (r *PoolRegistry) Get(id PoolID) (*ConversionPool, bool, error) {
	if r == nil || r.store == nil {
		return nil, false, fmt.Errorf("convertor: pool registry not initialised")
	}
	var env poolEnvelope
	ok, err := r.store.KVGet(poolKey(id), &env)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	pool, err := upgradePool(&env)
	if err != nil {
		return nil, false, err
	}
	return pool, true, nil
}

// Replace persists the supplied pool under an existing identifier.
func (r *PoolRegistry) Replace(id PoolID, pool *ConversionPool) error {
	ok, err := r.store.KVGet(poolKey(id), nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	pool.ID = id
	return r.store.KVPut(poolKey(id), toStoredPool(pool))
}

// Delete removes an empty pool from the registry. The identifier is retired,
// not recycled.
func (r *PoolRegistry) Delete(id PoolID) error {
	pool, ok, err := r.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	if err := pool.EnsureDeletable(); err != nil {
		return err
	}
	if err := r.store.KVDelete(poolKey(id)); err != nil {
		return err
	}
	index, err := r.loadIndex()
	if err != nil {
		return err
	}
	filtered := index[:0]
	for _, entry := range index {
		if entry != uint64(id) {
			filtered = append(filtered, entry)
		}
	}
	return r.store.KVPut(poolIndexKey, filtered)
}

// List returns up to limit pools starting at the given index position, in
// creation order. A non-positive limit returns the remainder.
func (r *PoolRegistry) List(from, limit int) ([]*ConversionPool, error) {
	index, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	if from < 0 {
		from = 0
	}
	if from >= len(index) {
		return []*ConversionPool{}, nil
	}
	end := len(index)
	if limit > 0 && from+limit < end {
		end = from + limit
	}
	pools := make([]*ConversionPool, 0, end-from)
	for _, id := range index[from:end] {
		pool, ok, err := r.Get(PoolID(id))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// ByCreator returns every pool owned by the supplied participant.
func (r *PoolRegistry) ByCreator(creator string) ([]*ConversionPool, error) {
	return r.filter(func(pool *ConversionPool) bool {
		return pool.Creator == creator
	})
}

// ByPair returns every pool exchanging the supplied asset pair, regardless of
// direction.
func (r *PoolRegistry) ByPair(tokenA, tokenB string) ([]*ConversionPool, error) {
	return r.filter(func(pool *ConversionPool) bool {
		if pool.InToken == tokenA && pool.OutToken == tokenB {
			return true
		}
		return pool.InToken == tokenB && pool.OutToken == tokenA
	})
}

// Len reports the number of live pools.
func (r *PoolRegistry) Len() (int, error) {
	index, err := r.loadIndex()
	if err != nil {
		return 0, err
	}
	return len(index), nil
}

func (r *PoolRegistry) filter(keep func(*ConversionPool) bool) ([]*ConversionPool, error) {
	index, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	pools := make([]*ConversionPool, 0)
	for _, id := range index {
		pool, ok, err := r.Get(PoolID(id))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if keep(pool) {
			pools = append(pools, pool)
		}
	}
	return pools, nil
}

func (r *PoolRegistry) loadIndex() ([]uint64, error) {
	var index []uint64
	if _, err := r.store.KVGet(poolIndexKey, &index); err != nil {
		return nil, err
	}
	return index, nil
}
