package featurefit

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// ConceptEncoder computes a vector for a single concept term. It is only
// consulted for PivotONNX, where no raw vector file exists.
type ConceptEncoder interface {
	Encode(text string) ([]float32, error)
}

// LoadEmbeddings returns the concept vocabulary and matching embedding matrix
// for every catalog concept available in the pivot source, sorted by concept
// name for determinism. A previously built cache is loaded directly when both
// the matrix and vocabulary files exist; their sizes must agree. Otherwise
// the raw source is scanned (or encoded, for PivotONNX) and both files are
// persisted so later runs skip the expensive scan.
func LoadEmbeddings(cfg Config, concepts map[string]struct{}, enc ConceptEncoder, logger *zap.Logger) ([]string, *mat.Dense, error) {
	cachePath := cfg.EmbeddingCachePath()
	vocabPath := cfg.VocabPath()

	if fileExists(cachePath) {
		embeddings, err := readMatrix(cachePath)
		if err != nil {
			return nil, nil, err
		}
		vocab, err := readVocab(vocabPath)
		if err != nil {
			return nil, nil, err
		}
		rows, _ := embeddings.Dims()
		if rows != len(vocab) {
			return nil, nil, fmt.Errorf("embedding cache mismatch: %d rows vs %d vocabulary entries", rows, len(vocab))
		}
		if logger != nil {
			logger.Info("loaded embedding cache",
				zap.String("path", cachePath),
				zap.Int("concepts", rows))
		}
		return vocab, embeddings, nil
	}

	var (
		vocab      []string
		embeddings *mat.Dense
		err        error
	)
	if cfg.Pivot == PivotONNX {
		vocab, embeddings, err = encodeEmbeddings(concepts, enc)
	} else {
		vocab, embeddings, err = scanEmbeddings(cfg.RawEmbeddingsPath(), concepts)
	}
	if err != nil {
		return nil, nil, err
	}
	if logger != nil {
		rows, cols := embeddings.Dims()
		logger.Info("built embedding table",
			zap.String("pivot", string(cfg.Pivot)),
			zap.Int("concepts", rows),
			zap.Int("dim", cols))
	}

	if err := writeMatrix(cachePath, embeddings); err != nil {
		return nil, nil, err
	}
	if err := writeVocab(vocabPath, vocab); err != nil {
		return nil, nil, err
	}
	return vocab, embeddings, nil
}

// scanEmbeddings reads a GloVe-style text file line by line, keeping only
// vectors whose leading token is one of the target concepts.
func scanEmbeddings(path string, concepts map[string]struct{}) ([]string, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open raw embeddings: %w", err)
	}
	defer f.Close()

	type entry struct {
		word string
		vec  []float64
	}
	var entries []entry
	dim := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		word := fields[0]
		if _, ok := concepts[word]; !ok {
			continue
		}
		vec := make([]float64, len(fields)-1)
		for i, raw := range fields[1:] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("parse vector for %q: %w", word, err)
			}
			vec[i] = v
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return nil, nil, fmt.Errorf("vector width for %q is %d, expected %d", word, len(vec), dim)
		}
		entries = append(entries, entry{word: word, vec: vec})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan raw embeddings: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("no target concepts found in %s", path)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].word < entries[j].word })

	vocab := make([]string, len(entries))
	embeddings := mat.NewDense(len(entries), dim, nil)
	for i, e := range entries {
		vocab[i] = e.word
		embeddings.SetRow(i, e.vec)
	}
	return vocab, embeddings, nil
}

// encodeEmbeddings computes a vector per concept with the injected encoder.
func encodeEmbeddings(concepts map[string]struct{}, enc ConceptEncoder) ([]string, *mat.Dense, error) {
	if enc == nil {
		return nil, nil, errors.New("pivot onnx requires an encoder")
	}
	vocab := make([]string, 0, len(concepts))
	for c := range concepts {
		vocab = append(vocab, c)
	}
	sort.Strings(vocab)

	var embeddings *mat.Dense
	for i, word := range vocab {
		vec32, err := enc.Encode(word)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %q: %w", word, err)
		}
		if embeddings == nil {
			embeddings = mat.NewDense(len(vocab), len(vec32), nil)
		}
		_, cols := embeddings.Dims()
		if len(vec32) != cols {
			return nil, nil, fmt.Errorf("vector width for %q is %d, expected %d", word, len(vec32), cols)
		}
		row := make([]float64, len(vec32))
		for j, v := range vec32 {
			row[j] = float64(v)
		}
		embeddings.SetRow(i, row)
	}
	return vocab, embeddings, nil
}

// Binary matrix codec: little-endian uint32 row and column counts followed by
// the row-major float64 payload.

func readMatrix(path string) (*mat.Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("embedding cache broken: %s", path)
	}
	rows := int(binary.LittleEndian.Uint32(data[:4]))
	cols := int(binary.LittleEndian.Uint32(data[4:8]))
	need := rows * cols * 8
	if len(data) != 8+need {
		return nil, fmt.Errorf("embedding cache truncated: %s", path)
	}
	values := make([]float64, rows*cols)
	if err := binary.Read(bytes.NewReader(data[8:]), binary.LittleEndian, values); err != nil {
		return nil, fmt.Errorf("decode embedding cache: %w", err)
	}
	return mat.NewDense(rows, cols, values), nil
}

func writeMatrix(path string, m *mat.Dense) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	rows, cols := m.Dims()
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, uint32(rows))
	_ = binary.Write(buf, binary.LittleEndian, uint32(cols))
	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		values = append(values, m.RawRowView(i)...)
	}
	if err := binary.Write(buf, binary.LittleEndian, values); err != nil {
		return fmt.Errorf("encode embedding cache: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write embedding cache: %w", err)
	}
	return os.Rename(tmp, path)
}

func readVocab(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	var vocab []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		vocab = append(vocab, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}
	return vocab, nil
}

func writeVocab(path string, vocab []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create vocab dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(vocab, "\n")), 0o644); err != nil {
		return fmt.Errorf("write vocab: %w", err)
	}
	return os.Rename(tmp, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
