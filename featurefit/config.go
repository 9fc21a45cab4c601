package featurefit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Pivot identifies the embedding corpus that concept representations are
// drawn from. The resulting feature-fit metric measures how well that
// corpus encodes the catalog features.
type Pivot string

const (
	// PivotMcRae uses vectors distilled from the feature norms themselves.
	PivotMcRae Pivot = "mcrae"
	// PivotWikigiga uses GloVe vectors trained on Wikipedia+Gigaword.
	PivotWikigiga Pivot = "wikigiga"
	// PivotCommonCrawl uses GloVe vectors trained on Common Crawl.
	PivotCommonCrawl Pivot = "cc"
	// PivotONNX computes concept vectors with a local ONNX sentence encoder
	// instead of scanning a pretrained text corpus.
	PivotONNX Pivot = "onnx"
)

const defaultConfigFile = "config.json"

// EncoderConfig wraps the settings for the ONNX encoder used by PivotONNX.
type EncoderConfig struct {
	OrtDLL        string `json:"ortDll"`
	ModelPath     string `json:"modelPath"`
	TokenizerPath string `json:"tokenizerPath"`
	MaxSeqLen     int    `json:"maxSeqLen"`
}

// Config aggregates runtime settings persisted to config.json. All input,
// cache, report and graph paths are derived from Pivot and DataDir so that
// switching the pivot source never requires touching individual paths.
type Config struct {
	Pivot   Pivot  `json:"pivot"`
	DataDir string `json:"dataDir"`

	// FeaturesPath points at the tab-separated feature-norm catalog.
	FeaturesPath string `json:"featuresPath"`
	// RawEmbeddings optionally overrides the pivot-derived raw vector file.
	RawEmbeddings string `json:"rawEmbeddings,omitempty"`
	// DomainFile optionally replaces the clustered domains with a curated
	// concept→domain table for the figures.
	DomainFile string `json:"domainFile,omitempty"`

	Workers        int   `json:"workers"`
	SampleFeatures int   `json:"sampleFeatures"`
	ConceptSamples int   `json:"conceptSamples"`
	MinPositives   int   `json:"minPositives"`
	Seed           int64 `json:"seed,omitempty"`

	ClusterThreshold float64 `json:"clusterThreshold"`
	ClusterWeight    float64 `json:"clusterWeight"`

	Encoder EncoderConfig `json:"encoder"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Pivot == "" {
		c.Pivot = PivotCommonCrawl
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.FeaturesPath == "" {
		c.FeaturesPath = filepath.Join(c.DataDir, "mcrae", "CONCS_FEATS_concstats_brm.txt")
	}
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.SampleFeatures <= 0 {
		c.SampleFeatures = 10
	}
	if c.ConceptSamples <= 0 {
		c.ConceptSamples = 5
	}
	if c.MinPositives <= 0 {
		c.MinPositives = 5
	}
	if c.ClusterThreshold == 0 {
		c.ClusterThreshold = 62
	}
	if c.ClusterWeight == 0 {
		c.ClusterWeight = 100
	}
	if c.Encoder.MaxSeqLen == 0 {
		c.Encoder.MaxSeqLen = 512
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Pivot {
	case PivotMcRae, PivotWikigiga, PivotCommonCrawl:
	case PivotONNX:
		if c.Encoder.ModelPath == "" || c.Encoder.TokenizerPath == "" {
			return errors.New("pivot onnx requires encoder.modelPath and encoder.tokenizerPath")
		}
	default:
		return fmt.Errorf("unknown pivot source %q", c.Pivot)
	}
	return nil
}

// RawEmbeddingsPath returns the raw vector source scanned on a cache miss.
// PivotONNX has no raw source; its vectors are computed.
func (c Config) RawEmbeddingsPath() string {
	if c.RawEmbeddings != "" {
		return c.RawEmbeddings
	}
	switch c.Pivot {
	case PivotMcRae:
		return filepath.Join(c.DataDir, "all", "mcrae_vectors.txt")
	case PivotWikigiga:
		return filepath.Join(c.DataDir, "glove", "glove.6B.300d.txt")
	case PivotCommonCrawl:
		return filepath.Join(c.DataDir, "glove", "glove.840B.300d.txt")
	default:
		return ""
	}
}

// VocabPath returns the cached-vocabulary file shared by every pivot source.
func (c Config) VocabPath() string {
	return filepath.Join(c.DataDir, "all", "vocab.txt")
}

// EmbeddingCachePath returns the binary matrix cache keyed by pivot identity.
func (c Config) EmbeddingCachePath() string {
	return filepath.Join(c.DataDir, "all", fmt.Sprintf("embeddings.%s.bin", c.Pivot))
}

// ReportPath returns the formatted score-report destination.
func (c Config) ReportPath() string {
	return filepath.Join(c.DataDir, "all", "feature_fit", fmt.Sprintf("mcrae_%s.txt", c.Pivot))
}

// GraphDir returns the directory that rendered plot images are written to.
func (c Config) GraphDir() string {
	return filepath.Join(c.DataDir, "all", "feature_fit", string(c.Pivot))
}

// Pearson1Name identifies the first external correlation measure. When the
// pivot is the norms themselves the comparison falls back to wikigiga.
func (c Config) Pearson1Name() string {
	if c.Pivot == PivotMcRae {
		return "mcrae_wikigiga"
	}
	return fmt.Sprintf("mcrae_%s", c.Pivot)
}

// Pearson2Name identifies the second external correlation measure.
func (c Config) Pearson2Name() string {
	return fmt.Sprintf("%s_wordnetres", c.Pivot)
}

// Pearson1Path returns the file holding the first correlation table.
func (c Config) Pearson1Path() string {
	return filepath.Join(c.DataDir, "all", "pearson_corr", fmt.Sprintf("corr_%s.txt", c.Pearson1Name()))
}

// Pearson2Path returns the file holding the second correlation table.
func (c Config) Pearson2Path() string {
	return filepath.Join(c.DataDir, "all", "pearson_corr", fmt.Sprintf("corr_%s.txt", c.Pearson2Name()))
}

// LoadConfig loads configuration from the given path or the default
// config.json. A missing file yields the defaults rather than an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
