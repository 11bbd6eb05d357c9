// File path: internal/api/types.go
package api

type generateSchemaRequest struct {
	Collections         []string `json:"collections"`
	SampleSize          int      `json:"sample_size"`
	DetectRelationships *bool    `json:"detect_relationships"`
	MergeStrategy       string   `json:"merge_strategy"`
}

type convertRequest struct {
	Text string `json:"text"`
}

type executeRequest struct {
	Collection string         `json:"collection"`
	Query      map[string]any `json:"query"`
	QueryType  string         `json:"query_type"`
}
