// File path: internal/schema/config.go
package schema

// Config tunes inference. Zero values fall back to the shipped defaults via
// applyDefaults, so a partially filled Config is safe to pass.
type Config struct {
	// SampleSize caps how many documents one analysis draws.
	SampleSize int
	// MaxDepth bounds dotted-path recursion into embedded documents.
	MaxDepth int
	// TypePrecedence breaks majority-vote ties; earlier entries win. The
	// default prefers the most expressive classification.
	TypePrecedence []FieldType
	// Detector tunes relationship detection.
	Detector DetectorConfig
}

// DetectorConfig tunes the relationship heuristics. Thresholds and weights
// are configuration rather than constants because the historical values are
// calibration points, not derivations.
type DetectorConfig struct {
	// ReferenceThreshold is the overlap ratio at or above which a probed
	// name-pattern link keeps the reference kind.
	ReferenceThreshold float64
	// CorrelationThreshold is the minimum overlap ratio for an inconclusive
	// name match to survive as a correlation.
	CorrelationThreshold float64
	// NameWeight and OverlapWeight blend the two confidence signals.
	NameWeight    float64
	OverlapWeight float64
	// ProbeSampleSize is how many non-null source values one probe may draw;
	// ProbeCheckSize is how many of those are checked against the target.
	ProbeSampleSize int
	ProbeCheckSize  int
}

// DefaultConfig returns the shipped inference settings.
func DefaultConfig() Config {
	return Config{
		SampleSize: 100,
		MaxDepth:   3,
		TypePrecedence: []FieldType{
			TypeObject, TypeArray, TypeDate, TypeString,
			TypeFloat, TypeInteger, TypeBoolean, TypeNull,
		},
		Detector: DefaultDetectorConfig(),
	}
}

// DefaultDetectorConfig returns the shipped detection thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ReferenceThreshold:   0.8,
		CorrelationThreshold: 0.5,
		NameWeight:           0.6,
		OverlapWeight:        0.4,
		ProbeSampleSize:      50,
		ProbeCheckSize:       20,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.SampleSize <= 0 {
		c.SampleSize = def.SampleSize
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if len(c.TypePrecedence) == 0 {
		c.TypePrecedence = def.TypePrecedence
	}
	c.Detector.applyDefaults()
}

func (c *DetectorConfig) applyDefaults() {
	def := DefaultDetectorConfig()
	if c.ReferenceThreshold <= 0 {
		c.ReferenceThreshold = def.ReferenceThreshold
	}
	if c.CorrelationThreshold <= 0 {
		c.CorrelationThreshold = def.CorrelationThreshold
	}
	if c.NameWeight <= 0 {
		c.NameWeight = def.NameWeight
	}
	if c.OverlapWeight <= 0 {
		c.OverlapWeight = def.OverlapWeight
	}
	if c.ProbeSampleSize <= 0 {
		c.ProbeSampleSize = def.ProbeSampleSize
	}
	if c.ProbeCheckSize <= 0 {
		c.ProbeCheckSize = def.ProbeCheckSize
	}
}
