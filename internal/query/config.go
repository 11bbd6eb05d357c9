// File path: internal/query/config.go

package query

// Config bounds the validation and execution stages of the pipeline.
type Config struct {
	// MaxPipelineStages caps aggregation pipelines, including pipelines
	// nested inside $lookup stages.
	MaxPipelineStages int
	// MaxQueryDepth caps how deeply a query body may nest.
	MaxQueryDepth int
	// ResultLimit caps how many documents an execution may return.
	ResultLimit int
}

func DefaultConfig() Config {
	return Config{
		MaxPipelineStages: 8,
		MaxQueryDepth:     10,
		ResultLimit:       100,
	}
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.MaxPipelineStages <= 0 {
		c.MaxPipelineStages = defaults.MaxPipelineStages
	}
	if c.MaxQueryDepth <= 0 {
		c.MaxQueryDepth = defaults.MaxQueryDepth
	}
	if c.ResultLimit <= 0 {
		c.ResultLimit = defaults.ResultLimit
	}
}
