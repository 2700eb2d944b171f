package regioncache

import (
	"fmt"
	"strings"
	"time"

	gen "github.com/unkn0wn-root/regioncache/genstore"
	pr "github.com/unkn0wn-root/regioncache/provider"
	"github.com/unkn0wn-root/regioncache/timestamp"
)

// AccessType selects how a region's reads and writes interact with
// in-flight transactions.
type AccessType uint8

const (
	// AccessDefault resolves to ReadOnly for immutable data and ReadWrite otherwise.
	AccessDefault AccessType = iota
	// ReadOnly caches data that is never updated.
	ReadOnly
	// NonstrictReadWrite evicts on write and tolerates a short stale window.
	NonstrictReadWrite
	// ReadWrite uses soft locks so that no transaction ever reads a value
	// that may have been overwritten by a concurrent writer.
	ReadWrite
	// Transactional defers isolation to a transactional cache provider.
	Transactional
)

var accessTypeNames = [...]string{
	AccessDefault:      "default",
	ReadOnly:           "read-only",
	NonstrictReadWrite: "nonstrict-read-write",
	ReadWrite:          "read-write",
	Transactional:      "transactional",
}

func (t AccessType) String() string {
	if int(t) < len(accessTypeNames) {
		return accessTypeNames[t]
	}
	return fmt.Sprintf("AccessType(%d)", uint8(t))
}

// ParseAccessType accepts the names produced by String.
func ParseAccessType(s string) (AccessType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range accessTypeNames {
		if n == s {
			return AccessType(i), nil
		}
	}
	return AccessDefault, fmt.Errorf("%w: %q", ErrUnknownAccessType, s)
}

// DataDescription describes the data a region caches.
type DataDescription struct {
	Mutable    bool
	Versioned  bool
	AccessType AccessType // AccessDefault => derived from Mutable
}

func (d DataDescription) resolve() AccessType {
	if d.AccessType != AccessDefault {
		return d.AccessType
	}
	if d.Mutable {
		return ReadWrite
	}
	return ReadOnly
}

// Options tune the region factory.
// Only Provider is required; others have sensible defaults.
type Options struct {
	// Required
	Provider pr.Provider

	// Namespace is prepended to region names in storage keys, e.g. "app:prod".
	Namespace   string
	GenStore    gen.GenStore      // nil => LocalGenStore (in-process)
	Timestamper *timestamp.Source // nil => new wall-clock source
	Logger      Logger            // if nil, NopLogger is used
	Hooks       Hooks             // if nil, NopHooks is used
	// LockTimeout bounds how long a soft lock protects a key when its holder
	// never unlocks it. It must exceed the longest commit latency of a writer.
	LockTimeout time.Duration // 0 => 60s
	DefaultTTL  time.Duration // 0 => no expiry
	Stripes     int           // per-region lock stripes; 0 => 256
	MinimalPuts bool          // skip putFromLoad when the key is already cached
	Disabled    bool          // default false (enabled)
}

const defaultLockTimeout = 60 * time.Second

// New returns a region factory.
func New(opts Options) (*Factory, error) {
	return newFactory(opts)
}
