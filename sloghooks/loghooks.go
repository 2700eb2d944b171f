// Package sloghooks reports regioncache hook events to a *slog.Logger.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/regioncache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	RejectEvery   uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	rejectCtr   atomic.Uint64
}

var _ regioncache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("regioncache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) PutFromLoadRejected(region, key, reason string) {
	if h.l == nil || !sample(h.opts.RejectEvery, &h.rejectCtr) {
		return
	}
	h.l.Debug("regioncache.put_from_load_rejected",
		"region", region,
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string, isLock bool) {
	if h.l == nil {
		return
	}
	h.l.Warn("regioncache.provider_set_rejected",
		"key", h.redact(storageKey),
		"is_lock", isLock)
}

func (h *Hooks) EpochError(region string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("regioncache.epoch_error",
		"region", region,
		"err", err)
}

func (h *Hooks) LockExpired(region, key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("regioncache.lock_expired",
		"region", region,
		"key", h.redact(key))
}

func (h *Hooks) Fallback(region, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("regioncache.fallback_evict_all",
		"region", region,
		"op", op,
		"err", err)
}
