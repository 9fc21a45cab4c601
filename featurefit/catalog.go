package featurefit

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// catalogSkipConcept marks the one known-bad catalog row that is dropped on
// sight, matching the published norms errata.
const catalogSkipConcept = "dunebuggy"

// LoadCatalog parses the tab-separated feature-norm catalog and returns the
// feature table plus the set of all annotated concepts. Each row contributes
// one (concept, feature) pair; a feature's metadata columns are taken from
// the first row it appears on. Malformed rows fail the load.
func LoadCatalog(path string, logger *zap.Logger) (map[string]*Feature, map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	features := make(map[string]*Feature)
	concepts := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 11 {
			return nil, nil, fmt.Errorf("catalog line %d: expected at least 11 columns, got %d", lineNo, len(fields))
		}
		conceptName := NormalizeToken(fields[0])
		featureName := NormalizeToken(fields[1])
		if conceptName == "Concept" || conceptName == catalogSkipConcept {
			// Header row / row we are going to ignore.
			continue
		}
		feat, ok := features[featureName]
		if !ok {
			feat = &Feature{
				Name:     featureName,
				Concepts: make(map[string]struct{}),
				WBLabel:  fields[2],
				WBMaj:    fields[3],
				WBMin:    fields[4],
				BRLabel:  fields[5],
				Disting:  fields[10],
			}
			features[featureName] = feat
		}
		feat.Concepts[conceptName] = struct{}{}
		concepts[conceptName] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan catalog: %w", err)
	}

	logConceptHistogram(features, logger)
	return features, concepts, nil
}

// logConceptHistogram reports how many features have a particular number of
// associated concepts, a cheap sanity check on the parsed catalog.
func logConceptHistogram(features map[string]*Feature, logger *zap.Logger) {
	if logger == nil {
		return
	}
	histogram := make(map[int]int)
	for _, feat := range features {
		histogram[len(feat.Concepts)]++
	}
	sizes := make([]int, 0, len(histogram))
	for size := range histogram {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	for _, size := range sizes {
		logger.Info("features by concept count",
			zap.Int("concepts", size),
			zap.Int("features", histogram[size]))
	}
}
