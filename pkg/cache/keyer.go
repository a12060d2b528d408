package cache

import "fmt"

// Keyer derives cache keys.
type Keyer interface {
	// ParamsKey identifies the holes sampled for one image size, transform
	// configuration and seed.
	ParamsKey(opts ParamsKeyOpts) string

	// ArtifactKey identifies an encoded output produced from an input image
	// with the params stored under paramsKey.
	ArtifactKey(paramsKey string, opts ArtifactKeyOpts) string
}

// ParamsKeyOpts are the inputs that fully determine a sampled hole set.
type ParamsKeyOpts struct {
	Height     int
	Width      int
	ConfigHash string
	Seed       uint64
}

// ArtifactKeyOpts identify an encoded output.
type ArtifactKeyOpts struct {
	InputHash string // hash of the input image bytes
	Target    string // image|mask
	Format    string // png, jpg, ...
}

// DefaultKeyer produces keys of the form "params:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ParamsKey implements [Keyer].
func (DefaultKeyer) ParamsKey(opts ParamsKeyOpts) string {
	return hashKey("params", opts.Height, opts.Width, opts.ConfigHash, fmt.Sprint(opts.Seed))
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(paramsKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", paramsKey, opts.InputHash, opts.Target, opts.Format)
}
