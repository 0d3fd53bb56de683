package recache

import (
	"sync/atomic"
)

// LogHooksOptions tune LogHooks.
type LogHooksOptions struct {
	// Sampling to avoid floods; 0/1 = log all.
	ExpiredEvery uint64
}

// LogHooks forwards hook events to a Logger. Expired-on-read events can be
// sampled since they fire once per lazily-evicted entry.
type LogHooks struct {
	l    Logger
	opts LogHooksOptions

	expiredCtr atomic.Uint64
}

var _ Hooks = (*LogHooks)(nil)

func NewLogHooks(l Logger, opts LogHooksOptions) *LogHooks {
	return &LogHooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *LogHooks) ExpiredOnRead(key string) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("recache.expired_on_read", Fields{"key": key})
}

func (h *LogHooks) SweepRemoved(n int) {
	if h.l == nil {
		return
	}
	h.l.Debug("recache.sweep_removed", Fields{"count": n})
}

func (h *LogHooks) BackendError(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("recache.backend_error", Fields{"op": op, "err": err})
}
