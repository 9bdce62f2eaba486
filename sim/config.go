package sim

// Tunable defaults for a run.
const (
	DefaultBatchFraction   = 0.02 // batch size as a fraction of the rat count
	DefaultBaseILF         = 1.75 // ideal load factor used when ILFs are not static
	DefaultBinaryThreshold = 4    // degree above which selection uses binary search
	DefaultSeed            = 618  // global seed when none is given

	// MaxElements bounds nnode+nedge (and nrat) so header sizes are allocatable.
	MaxElements = 1 << 30
)

// Config groups the tunable parameters of the weight model and population.
type Config struct {
	BatchFraction   float64 // fraction of rats moved per batch (default 0.02)
	BaseILF         float64 // ideal load factor applied to every node unless StaticILF
	StaticILF       bool    // true = use per-node ILFs from the graph file
	BinaryThreshold int     // linear scan at or below this degree, binary search above
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		BatchFraction:   DefaultBatchFraction,
		BaseILF:         DefaultBaseILF,
		StaticILF:       false,
		BinaryThreshold: DefaultBinaryThreshold,
	}
}

// withDefaults fills zero-valued fields so a partially populated Config is usable.
func (c Config) withDefaults() Config {
	if c.BatchFraction <= 0 {
		c.BatchFraction = DefaultBatchFraction
	}
	if c.BaseILF <= 0 {
		c.BaseILF = DefaultBaseILF
	}
	if c.BinaryThreshold <= 0 {
		c.BinaryThreshold = DefaultBinaryThreshold
	}
	return c
}
