// Package regioncache is the concurrency-control core of a second-level
// entity cache: named regions over a pluggable byte store, the access
// strategies that keep them consistent with concurrent database
// transactions, and read-through/write-through helpers tying both to a
// txn.Transaction.
//
// Components:
//   - Provider: byte store with TTL (e.g. Ristretto, BigCache, Redis).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - GenStore: generation counter per region. EvictAll bumps it and
//     entries written under an older generation read as a miss.
//   - AccessStrategy[V]: read-only, nonstrict-read-write, read-write (soft
//     locks) or transactional.
//
// Keys:
//
//	region:<ns>:<region>:<key>
//
// Read-write pattern:
//
//	tx, _ := txn.Begin(ctx, db, factory)
//	v, ok, err := regioncache.Load(ctx, users, tx, "7", txn.Read, loadUser)
//	err = regioncache.Update(ctx, users, tx, "7", v2, txn.V(2), txn.V(1), writeUser)
//	err = tx.Commit(ctx) // caches v2 unless another writer overlapped
//
// A key that is being written holds a SoftLock instead of a value. Reads
// miss and loads may not cache it until the writer completes, or until the
// lock outlives the region's lock timeout. When the last writer releases the
// lock the key is evicted.
package regioncache
