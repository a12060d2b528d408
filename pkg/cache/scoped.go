package cache

// ScopedKeyer wraps a Keyer with a prefix, so that several front ends can
// share one backend without sharing entries.
//
//	cliKeyer := NewScopedKeyer(NewDefaultKeyer(), "cli:")
//	apiKeyer := NewScopedKeyer(NewDefaultKeyer(), "api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ParamsKey generates a prefixed params key.
func (k *ScopedKeyer) ParamsKey(opts ParamsKeyOpts) string {
	return k.prefix + k.inner.ParamsKey(opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(paramsKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(paramsKey, opts)
}
