package txn

import (
	"fmt"
	"strings"
)

// LockMode is the strength of a lock requested on a row.
//
// Modes are totally ordered from weakest to strongest in declaration order.
// A locking strategy built for a mode refuses any mode weaker than its
// minimum, and loads at a mode stronger than Read skip the second-level cache.
type LockMode uint8

const (
	// None takes no lock. Reads may come from the cache.
	None LockMode = iota
	// Read asserts the row is current as of the read, via a versioned select.
	Read
	// Write is held implicitly by any row the transaction inserts or updates.
	Write
	// UpgradeNowait is a pessimistic upgrade that fails instead of waiting.
	UpgradeNowait
	// Optimistic verifies the version just before commit.
	Optimistic
	// OptimisticForceIncrement bumps the version at commit even if nothing
	// else about the row changed.
	OptimisticForceIncrement
	// PessimisticRead takes a shared database lock immediately.
	PessimisticRead
	// PessimisticWrite takes an exclusive database lock immediately.
	PessimisticWrite
	// PessimisticForceIncrement takes an exclusive lock and bumps the version
	// immediately.
	PessimisticForceIncrement
)

// Upgrade is the minimum mode an update-based lock accepts.
const Upgrade = Write

var lockModeNames = [...]string{
	None:                      "NONE",
	Read:                      "READ",
	Write:                     "WRITE",
	UpgradeNowait:             "UPGRADE_NOWAIT",
	Optimistic:                "OPTIMISTIC",
	OptimisticForceIncrement:  "OPTIMISTIC_FORCE_INCREMENT",
	PessimisticRead:           "PESSIMISTIC_READ",
	PessimisticWrite:          "PESSIMISTIC_WRITE",
	PessimisticForceIncrement: "PESSIMISTIC_FORCE_INCREMENT",
}

func (m LockMode) String() string {
	if int(m) < len(lockModeNames) {
		return lockModeNames[m]
	}
	return fmt.Sprintf("LockMode(%d)", uint8(m))
}

// GreaterThan reports whether m is strictly stronger than o.
func (m LockMode) GreaterThan(o LockMode) bool { return m > o }

// LessThan reports whether m is strictly weaker than o.
func (m LockMode) LessThan(o LockMode) bool { return m < o }

// BypassesCache reports whether a load at this mode must go to the database.
func (m LockMode) BypassesCache() bool { return m > Read }

// ParseLockMode parses the names produced by String, case-insensitively.
func ParseLockMode(s string) (LockMode, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if u == "UPGRADE" {
		return Upgrade, nil
	}
	for i, n := range lockModeNames {
		if n == u {
			return LockMode(i), nil
		}
	}
	return None, fmt.Errorf("txn: unknown lock mode %q", s)
}
