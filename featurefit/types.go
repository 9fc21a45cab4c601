package featurefit

// Feature represents one feature-norm entry together with every concept that
// annotators produced it for. Instances are built incrementally while the
// catalog is scanned and are treated as immutable afterwards.
type Feature struct {
	Name     string
	Concepts map[string]struct{}
	WBLabel  string
	WBMaj    string
	WBMin    string
	BRLabel  string
	Disting  string
}

// HasConcept reports whether the concept was annotated with this feature.
func (f *Feature) HasConcept(concept string) bool {
	_, ok := f.Concepts[concept]
	return ok
}

// FeatureScore is the fit metric for a single feature. Valid is false when
// the feature had no usable positive concepts and was skipped by the
// estimator rather than fitted.
type FeatureScore struct {
	Name     string  `json:"name"`
	Concepts int     `json:"concepts"`
	Score    float64 `json:"score"`
	Valid    bool    `json:"valid"`
}

// SiblingCluster is one group of concepts obtained by cutting the
// hierarchical cluster tree at a fixed distance threshold. Mean and Variance
// summarize the per-concept fit scores inside the group.
type SiblingCluster struct {
	Concepts []string
	Mean     float64
	Variance float64
}

// GroupSummary holds the aggregate statistics for one report group.
type GroupSummary struct {
	Name         string
	Count        int
	MeanScore    float64
	Min          float64
	Median       float64
	Max          float64
	MeanConcepts float64
}
