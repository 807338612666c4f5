// Package mempool maintains the pool of transactions a miner has heard
// about but not yet mined into a block.
package mempool

import (
	"sync"

	"github.com/ridgelinelabs/forkchain/foundation/blockchain/transaction"
)

// Mempool is a hash-keyed set of pending transactions. There is no
// fee/tip field on a Transaction, so there is nothing to rank on: Copy
// returns every pending transaction minus whatever the caller excludes.
type Mempool struct {
	mu   sync.RWMutex
	pool map[string]transaction.Transaction
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]transaction.Transaction),
	}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the pool, keyed by its hash.
func (mp *Mempool) Upsert(tx transaction.Transaction) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool[hash] = tx

	return nil
}

// Delete removes a transaction from the pool.
func (mp *Mempool) Delete(tx transaction.Transaction) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, hash)

	return nil
}

// Has reports whether a transaction with the given hash is pending.
func (mp *Mempool) Has(hash string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, ok := mp.pool[hash]
	return ok
}

// Copy returns every pending transaction whose hash is not present in
// excluded; a nil map excludes nothing. The miner calls it with nil and
// applies an adversary's exclusion set afterwards through
// Hooks.TxPoolFilter.
func (mp *Mempool) Copy(excluded map[string]struct{}) []transaction.Transaction {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]transaction.Transaction, 0, len(mp.pool))
	for hash, tx := range mp.pool {
		if _, skip := excluded[hash]; skip {
			continue
		}
		cpy = append(cpy, tx)
	}

	return cpy
}
