package regioncache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// An entry was deleted by the region on read.
	// reason ∈ {"corrupt", "stale_epoch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// PutFromLoad declined to cache a loaded value.
	// reason ∈ {"locked", "not_writeable", "minimal_put", "region_locked", "fenced", "store_rejected"}
	PutFromLoadRejected(region, key, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string, isLock bool)

	// Generation store errors (snapshot or bump).
	EpochError(region string, err error)

	// UnlockItem or AfterUpdate found a different lock, or none; the key was
	// fenced off for one lock timeout.
	LockExpired(region, key string)

	// An advisory operation failed and the region was evicted instead.
	Fallback(region, op string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)                    {}
func (NopHooks) PutFromLoadRejected(string, string, string) {}
func (NopHooks) ProviderSetRejected(string, bool)           {}
func (NopHooks) EpochError(string, error)                   {}
func (NopHooks) LockExpired(string, string)                 {}
func (NopHooks) Fallback(string, string, error)             {}
