package regioncache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	gen "github.com/unkn0wn-root/regioncache/genstore"
	"github.com/unkn0wn-root/regioncache/internal/stripe"
	pr "github.com/unkn0wn-root/regioncache/provider"
	"github.com/unkn0wn-root/regioncache/timestamp"
)

// Factory builds and owns the regions of one cache provider.
// The persistence engine asks it for regions by name and never sees the
// storage implementation.
type Factory struct {
	ns          string
	provider    pr.Provider
	gens        gen.GenStore
	clock       *timestamp.Source
	log         Logger
	hooks       Hooks
	lockTimeout time.Duration
	ttl         time.Duration
	stripes     int
	minimalPuts bool
	enabled     bool

	mu      sync.Mutex
	regions map[string]*Region
	closed  bool
}

func newFactory(opts Options) (*Factory, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("regioncache: provider is required")
	}
	if opts.LockTimeout < 0 {
		return nil, fmt.Errorf("regioncache: negative lock timeout %v", opts.LockTimeout)
	}

	f := &Factory{
		ns:          opts.Namespace,
		provider:    opts.Provider,
		ttl:         opts.DefaultTTL,
		minimalPuts: opts.MinimalPuts,
		enabled:     !opts.Disabled,
		regions:     make(map[string]*Region),
	}

	// defaults
	f.log = coalesce[Logger](opts.Logger, NopLogger{})
	f.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	f.lockTimeout = coalesce(opts.LockTimeout, defaultLockTimeout)
	f.stripes = coalesce(opts.Stripes, stripe.DefaultCount)
	if opts.Timestamper != nil {
		f.clock = opts.Timestamper
	} else {
		f.clock = timestamp.New(nil)
	}
	if opts.GenStore != nil {
		f.gens = opts.GenStore
	} else {
		f.gens = gen.NewLocalGenStore()
	}
	return f, nil
}

// NextTimestamp returns a fresh timestamp, e.g. to stamp a transaction start.
func (f *Factory) NextTimestamp() int64 { return f.clock.Next() }

// Next makes the factory usable as a txn.Clock.
func (f *Factory) Next() int64 { return f.clock.Next() }

// BuildRegion returns the region called name, creating it on first use.
// Asking for an existing region with a different description is an error.
func (f *Factory) BuildRegion(name string, desc DataDescription) (*Region, error) {
	if name == "" {
		return nil, fmt.Errorf("regioncache: region name is required")
	}
	at := desc.resolve()
	if at > Transactional {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccessType, uint8(at))
	}
	desc.AccessType = at

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, fmt.Errorf("regioncache: factory closed")
	}
	if r, ok := f.regions[name]; ok {
		if r.desc != desc {
			return nil, fmt.Errorf("regioncache: region %q already built as %+v", name, r.desc)
		}
		return r, nil
	}

	if at == ReadOnly && desc.Mutable {
		f.log.Warn("read-only cache configured for mutable data", Fields{"region": name})
	}

	prefix := "region:" + name + ":"
	if f.ns != "" {
		prefix = "region:" + f.ns + ":" + name + ":"
	}
	r := &Region{
		name:     name,
		prefix:   prefix,
		desc:     desc,
		provider: f.provider,
		gens:     f.gens,
		clock:    f.clock,
		timeout:  timestamp.FromDuration(f.lockTimeout),
		ttl:      f.ttl,
		lockTTL:  f.lockTTL(),
		log:      f.log,
		hooks:    f.hooks,
		stripes:  stripe.New(f.stripes),
		enabled:  f.enabled,

		minimalPuts: f.minimalPuts,
	}
	r.locks.source = uuid.New()
	f.regions[name] = r
	f.log.Info("region built", Fields{"region": name, "access": at.String(), "versioned": desc.Versioned})
	return r, nil
}

// lockTTL is the provider expiry of soft locks. A held lock must not expire
// before its timeout, whatever the value TTL, so with expiring values locks
// get twice the lock timeout. That also covers the fence installed when a
// lock expires, which lasts one more timeout.
func (f *Factory) lockTTL() time.Duration {
	if f.ttl <= 0 {
		return 0
	}
	return max(f.ttl, 2*f.lockTimeout)
}

// Region returns a previously built region.
func (f *Factory) Region(name string) (*Region, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regions[name]
	return r, ok
}

// Regions returns the names of all built regions, sorted.
func (f *Factory) Regions() []string {
	f.mu.Lock()
	names := make([]string, 0, len(f.regions))
	for n := range f.regions {
		names = append(names, n)
	}
	f.mu.Unlock()
	sort.Strings(names)
	return names
}

// MinimalPuts reports the configured minimal-put policy.
func (f *Factory) MinimalPuts() bool { return f.minimalPuts }

// EvictAll evicts every region. All regions are attempted; failures are combined.
func (f *Factory) EvictAll(ctx context.Context) error {
	f.mu.Lock()
	regions := make([]*Region, 0, len(f.regions))
	for _, r := range f.regions {
		regions = append(regions, r)
	}
	f.mu.Unlock()

	var err error
	for _, r := range regions {
		err = multierr.Append(err, r.EvictAll(ctx))
	}
	return err
}

var errClosed = errors.New("regioncache: factory already closed")

// Close releases the generation store and the provider.
func (f *Factory) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errClosed
	}
	f.closed = true
	f.mu.Unlock()

	return multierr.Combine(
		f.gens.Close(ctx),
		f.provider.Close(ctx),
	)
}
