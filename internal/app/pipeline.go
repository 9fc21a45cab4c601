// Package app wires the feature-fit stages into one run: catalog loading,
// embedding preparation, classifier scoring, report writing, concept
// clustering and figure rendering.
package app

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lucy3/Graphs-Embeddings/emb"
	"github.com/lucy3/Graphs-Embeddings/featurefit"
	"github.com/lucy3/Graphs-Embeddings/internal/plots"
)

// Pipeline runs the full analysis for one pivot configuration. Out receives
// the cluster listing; it defaults to stdout.
type Pipeline struct {
	cfg featurefit.Config
	log *zap.Logger
	Out io.Writer
}

func New(cfg featurefit.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, log: logger, Out: os.Stdout}
}

// Run executes every stage and writes the report, cluster listing and
// figures to the paths derived from the configuration.
func (p *Pipeline) Run(ctx context.Context) error {
	cfg := p.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	features, concepts, err := featurefit.LoadCatalog(cfg.FeaturesPath, p.log)
	if err != nil {
		return fmt.Errorf("load feature catalog: %w", err)
	}
	p.log.Info("catalog loaded",
		zap.Int("features", len(features)),
		zap.Int("concepts", len(concepts)))

	var enc featurefit.ConceptEncoder
	if cfg.Pivot == featurefit.PivotONNX {
		encoder := &emb.Encoder{}
		if err := encoder.Init(emb.Config{
			OrtDLL:        cfg.Encoder.OrtDLL,
			ModelPath:     cfg.Encoder.ModelPath,
			TokenizerPath: cfg.Encoder.TokenizerPath,
			MaxSeqLen:     cfg.Encoder.MaxSeqLen,
		}); err != nil {
			return fmt.Errorf("init encoder: %w", err)
		}
		defer encoder.Close()
		enc = encoder
	}

	vocab, embeddings, err := featurefit.LoadEmbeddings(cfg, concepts, enc, p.log)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}

	est := featurefit.NewEstimator(cfg, p.log)
	scored, err := est.AnalyzeFeatures(ctx, features, vocab, embeddings)
	if err != nil {
		return fmt.Errorf("analyze features: %w", err)
	}
	scored = validSortedByScore(scored)
	p.log.Info("features scored", zap.Int("valid", len(scored)))

	pearson1, err := featurefit.LoadPearson(cfg.Pearson1Path())
	if err != nil {
		return fmt.Errorf("load %s correlations: %w", cfg.Pearson1Name(), err)
	}
	pearson2, err := featurefit.LoadPearson(cfg.Pearson2Path())
	if err != nil {
		return fmt.Errorf("load %s correlations: %w", cfg.Pearson2Name(), err)
	}

	if err := p.writeReport(cfg, features, scored, vocab, pearson1, pearson2); err != nil {
		return err
	}

	conceptScores := featurefit.ConceptScores(features, scored, vocab)
	clusterer := &featurefit.Clusterer{
		Threshold: cfg.ClusterThreshold,
		Weight:    cfg.ClusterWeight,
	}
	clusters := clusterer.Cluster(vocab, embeddings, conceptScores)
	if err := featurefit.WriteClusterReport(p.Out, clusters); err != nil {
		return fmt.Errorf("write cluster listing: %w", err)
	}
	domains := featurefit.DomainsFromClusters(clusters)
	p.log.Info("concepts clustered", zap.Int("clusters", len(clusters)))
	if cfg.DomainFile != "" {
		domains, err = featurefit.LoadDomainFile(cfg.DomainFile)
		if err != nil {
			return fmt.Errorf("load domain file: %w", err)
		}
	} else if len(domains) == 0 {
		domains = featurefit.DomainConcepts(featurefit.DefaultDomainEntries())
	}

	return p.renderFigures(cfg, features, scored, vocab, domains, pearson1, pearson2)
}

// writeReport writes the per-feature rows, group tables and the correlation
// statistics table to the report path.
func (p *Pipeline) writeReport(cfg featurefit.Config, features map[string]*featurefit.Feature, scored []featurefit.FeatureScore, vocab []string, pearson1, pearson2 map[string]float64) error {
	if err := os.MkdirAll(filepath.Dir(cfg.ReportPath()), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	out, err := os.Create(cfg.ReportPath())
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer out.Close()

	// WriteReport also returns the per-BR-label medians, an alternative
	// weighting table for the clustering distance. The composite metric
	// weights per-concept means instead, so the table goes unused here.
	if _, err := featurefit.WriteReport(out, features, scored); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := featurefit.WriteFeaturePearsonStats(out, features, vocab, pearson1, pearson2, minFigureConcepts); err != nil {
		return fmt.Errorf("write correlation stats: %w", err)
	}
	p.log.Info("report written", zap.String("path", cfg.ReportPath()))
	return nil
}

// validSortedByScore keeps scores with a defined value, ordered ascending.
func validSortedByScore(scored []featurefit.FeatureScore) []featurefit.FeatureScore {
	kept := scored[:0:0]
	for _, fs := range scored {
		if fs.Valid {
			kept = append(kept, fs)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score == kept[j].Score {
			return kept[i].Name < kept[j].Name
		}
		return kept[i].Score < kept[j].Score
	})
	return kept
}

// renderFigures builds the figure inputs and hands them to the renderer.
func (p *Pipeline) renderFigures(cfg featurefit.Config, features map[string]*featurefit.Feature, scored []featurefit.FeatureScore, vocab []string, domains map[string][]string, pearson1, pearson2 map[string]float64) error {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	renderer, err := plots.NewRenderer(cfg.GraphDir(), rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	conceptPts, conceptFits, err := conceptPoints(features, scored, vocab, domains, pearson1, pearson2)
	if err != nil {
		return err
	}
	if err := renderer.UnifiedConceptGraphs(cfg.Pearson1Name(), cfg.Pearson2Name(), conceptPts); err != nil {
		return fmt.Errorf("render concept graphs: %w", err)
	}

	domainPts := domainPoints(features, scored, domains, pearson1, pearson2)
	if err := renderer.UnifiedDomainGraphs(cfg.Pearson1Name(), cfg.Pearson2Name(), domainPts); err != nil {
		return fmt.Errorf("render domain graphs: %w", err)
	}

	names, groups, avgVar := domainScoreGroups(conceptFits, domains)
	p.log.Info("domain score spread", zap.Float64("average_variance", avgVar))
	if err := renderer.DomainSwarm(string(cfg.Pivot), names, groups); err != nil {
		return fmt.Errorf("render domain swarm: %w", err)
	}
	p.log.Info("figures written", zap.String("dir", cfg.GraphDir()))
	return nil
}
