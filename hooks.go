package recache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths.
type Hooks interface {
	// An expired entry was encountered by Get and lazily removed.
	ExpiredOnRead(key string)

	// A cleanup pass (manual or background) removed n expired entries.
	SweepRemoved(n int)

	// A backend operation failed. op ∈ {"put", "fetch", "remove", "scan", "hits"}.
	BackendError(op string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) ExpiredOnRead(string)       {}
func (NopHooks) SweepRemoved(int)           {}
func (NopHooks) BackendError(string, error) {}
