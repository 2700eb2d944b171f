// Package locking acquires a txn.LockMode on a single row of the backing
// database.
//
// Each Strategy is built for one entity table and a minimum lock mode:
//
//	Optimistic                 version check queued before commit
//	OptimisticForceIncrement   version bump queued before commit
//	PessimisticForceIncrement  version bump now
//	Select                     SELECT ... [FOR SHARE|FOR UPDATE] now
//	Update                     UPDATE ... SET version = version now
//
// A lost race surfaces as *StaleObjectStateError. Lock waits that time out
// surface as *LockTimeoutError and deadlocks as *PessimisticLockError; any
// other driver failure is wrapped in *SQLError.
package locking
