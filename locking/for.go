package locking

import "github.com/unkn0wn-root/regioncache/txn"

// For returns the strategy the dialect uses to lock l at mode.
func For(l Lockable, mode txn.LockMode, d Dialect, opts Options) (Strategy, error) {
	if d == nil {
		d = MySQL
	}
	switch mode {
	case txn.PessimisticForceIncrement:
		return NewPessimisticForceIncrement(l, mode, d, opts)
	case txn.PessimisticWrite:
		if d.SupportsLockingSelect() {
			return NewPessimisticWriteSelect(l, mode, d, opts)
		}
		return NewPessimisticWriteUpdate(l, mode, d, opts)
	case txn.PessimisticRead:
		if d.SupportsLockingSelect() {
			return NewPessimisticReadSelect(l, mode, d, opts)
		}
		return NewPessimisticReadUpdate(l, mode, d, opts)
	case txn.OptimisticForceIncrement:
		return NewOptimisticForceIncrement(l, mode, d, opts)
	case txn.Optimistic:
		return NewOptimistic(l, mode, d, opts)
	case txn.Write, txn.UpgradeNowait:
		if d.SupportsLockingSelect() {
			return NewSelect(l, mode, d, opts)
		}
		return NewUpdate(l, mode, d, opts)
	case txn.Read:
		return NewSelect(l, mode, d, opts)
	}
	return nil, &UnsupportedLockModeError{Strategy: "any", Mode: mode, Min: txn.Read}
}
