package featurefit

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ConceptScores averages the fit scores of every feature a concept carries.
// Concepts whose features were all skipped are absent from the result.
func ConceptScores(features map[string]*Feature, scored []FeatureScore, vocab []string) map[string]float64 {
	valid := make(map[string]float64, len(scored))
	for _, fs := range scored {
		if fs.Valid {
			valid[fs.Name] = fs.Score
		}
	}
	inVocab := make(map[string]struct{}, len(vocab))
	for _, c := range vocab {
		inVocab[c] = struct{}{}
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for name, feat := range features {
		score, ok := valid[name]
		if !ok {
			continue
		}
		for concept := range feat.Concepts {
			if _, ok := inVocab[concept]; !ok {
				continue
			}
			sums[concept] += score
			counts[concept]++
		}
	}
	out := make(map[string]float64, len(sums))
	for concept, sum := range sums {
		out[concept] = sum / float64(counts[concept])
	}
	return out
}

// Clusterer groups concepts by average-linkage hierarchical clustering over a
// composite distance: cosine distance between embeddings plus a heavily
// weighted squared difference of the concepts' mean fit scores. The scalar
// term is dropped when either side has no defined score.
type Clusterer struct {
	// Threshold is the dendrogram cut distance; merging stops once the
	// closest pair of clusters is further apart than this.
	Threshold float64
	// Weight scales the squared fit-score difference.
	Weight float64
}

// Cluster partitions the vocabulary into sibling clusters. Every concept
// appears in exactly one cluster and clusters are returned sorted ascending
// by internal score variance.
func (cl *Clusterer) Cluster(vocab []string, embeddings *mat.Dense, conceptScores map[string]float64) []SiblingCluster {
	n := len(vocab)
	if n == 0 {
		return nil
	}

	scores := make([]float64, n)
	for i, concept := range vocab {
		if s, ok := conceptScores[concept]; ok {
			scores[i] = s
		} else {
			scores[i] = math.NaN()
		}
	}

	// Pairwise composite distances.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := cosineDistance(embeddings.RawRowView(i), embeddings.RawRowView(j))
			if !math.IsNaN(scores[i]) && !math.IsNaN(scores[j]) {
				diff := scores[i] - scores[j]
				d += cl.Weight * diff * diff
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	// Average-linkage agglomeration, cut at Threshold.
	members := make([][]int, n)
	active := make([]bool, n)
	for i := 0; i < n; i++ {
		members[i] = []int{i}
		active[i] = true
	}
	for {
		best := math.Inf(1)
		bi, bj := -1, -1
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if dist[i][j] < best {
					best = dist[i][j]
					bi, bj = i, j
				}
			}
		}
		if bi < 0 || best > cl.Threshold {
			break
		}
		si := float64(len(members[bi]))
		sj := float64(len(members[bj]))
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			avg := (si*dist[bi][k] + sj*dist[bj][k]) / (si + sj)
			dist[bi][k] = avg
			dist[k][bi] = avg
		}
		members[bi] = append(members[bi], members[bj]...)
		active[bj] = false
	}

	var clusters []SiblingCluster
	for i := 0; i < n; i++ {
		if !active[i] {
			continue
		}
		concepts := make([]string, 0, len(members[i]))
		var defined []float64
		for _, idx := range members[i] {
			concepts = append(concepts, vocab[idx])
			if !math.IsNaN(scores[idx]) {
				defined = append(defined, scores[idx])
			}
		}
		sort.Strings(concepts)
		sc := SiblingCluster{Concepts: concepts}
		if len(defined) > 0 {
			sc.Mean = stat.Mean(defined, nil)
			sc.Variance = popVariance(defined)
		}
		clusters = append(clusters, sc)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Variance == clusters[j].Variance {
			return clusters[i].Concepts[0] < clusters[j].Concepts[0]
		}
		return clusters[i].Variance < clusters[j].Variance
	})
	return clusters
}

// WriteClusterReport writes one line per sibling cluster: mean, variance and
// the member concepts.
func WriteClusterReport(w io.Writer, clusters []SiblingCluster) error {
	for _, c := range clusters {
		if _, err := fmt.Fprintf(w, "%5f\t%5f\t%s\n", c.Mean, c.Variance, strings.Join(c.Concepts, " ")); err != nil {
			return fmt.Errorf("write cluster row: %w", err)
		}
	}
	return nil
}

// DomainsFromClusters numbers the sibling clusters so they can stand in for
// curated domains downstream.
func DomainsFromClusters(clusters []SiblingCluster) map[string][]string {
	domains := make(map[string][]string, len(clusters))
	for i, c := range clusters {
		if len(c.Concepts) == 0 {
			continue
		}
		domains[fmt.Sprintf("%d", i)] = c.Concepts
	}
	return domains
}

// cosineDistance is 1 minus the cosine similarity; zero vectors are treated
// as maximally distant from everything.
func cosineDistance(a, b []float64) float64 {
	dot := floats.Dot(a, b)
	na := floats.Dot(a, a)
	nb := floats.Dot(b, b)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
