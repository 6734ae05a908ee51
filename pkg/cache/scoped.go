package cache

// ScopedKeyer prefixes every key of an inner Keyer, for example to keep the
// entries of different API clients or experiments apart:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "exp:aging-sweep:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a prefixing keyer. A nil inner uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) RunKey(opts any) string {
	return k.prefix + k.inner.RunKey(opts)
}

func (k *ScopedKeyer) NetworkKey(source string, opts NetworkKeyOpts) string {
	return k.prefix + k.inner.NetworkKey(source, opts)
}

func (k *ScopedKeyer) ArtifactKey(runHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(runHash, opts)
}
