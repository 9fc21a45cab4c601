package featurefit

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DomainEntry assigns one concept to one curated domain. A concept may appear
// under several domains.
type DomainEntry struct {
	Domain  string
	Concept string
}

// DefaultDomainEntries returns a small built-in curated partition used when
// no domain file is supplied and clustering is disabled. It covers the most
// common norm categories with representative members.
func DefaultDomainEntries() []DomainEntry {
	return []DomainEntry{
		{Domain: "bird", Concept: "robin"},
		{Domain: "bird", Concept: "sparrow"},
		{Domain: "bird", Concept: "eagle"},
		{Domain: "bird", Concept: "penguin"},
		{Domain: "mammal", Concept: "dog"},
		{Domain: "mammal", Concept: "cat"},
		{Domain: "mammal", Concept: "horse"},
		{Domain: "mammal", Concept: "lion"},
		{Domain: "fruit", Concept: "apple"},
		{Domain: "fruit", Concept: "banana"},
		{Domain: "fruit", Concept: "grape"},
		{Domain: "vegetable", Concept: "carrot"},
		{Domain: "vegetable", Concept: "potato"},
		{Domain: "vegetable", Concept: "lettuce"},
		{Domain: "tool", Concept: "hammer"},
		{Domain: "tool", Concept: "screwdriver"},
		{Domain: "tool", Concept: "wrench"},
		{Domain: "vehicle", Concept: "car"},
		{Domain: "vehicle", Concept: "truck"},
		{Domain: "vehicle", Concept: "airplane"},
		{Domain: "clothing", Concept: "shirt"},
		{Domain: "clothing", Concept: "jacket"},
		{Domain: "furniture", Concept: "chair"},
		{Domain: "furniture", Concept: "table"},
		{Domain: "instrument", Concept: "guitar"},
		{Domain: "instrument", Concept: "piano"},
		{Domain: "weapon", Concept: "sword"},
		{Domain: "weapon", Concept: "rifle"},
	}
}

// DomainConcepts folds entries into a domain→concepts table.
func DomainConcepts(entries []DomainEntry) map[string][]string {
	out := make(map[string][]string)
	for _, e := range entries {
		out[e.Domain] = append(out[e.Domain], e.Concept)
	}
	return out
}

// ConceptDomains inverts a domain→concepts table into a concept→domains
// lookup used by the swarm plot grouping.
func ConceptDomains(domains map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for domain, concepts := range domains {
		for _, c := range concepts {
			out[c] = append(out[c], domain)
		}
	}
	return out
}

// LoadDomainFile reads a curated concept→domain table: one tab-separated
// (concept, domain) pair per line, no header.
func LoadDomainFile(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domain file: %w", err)
	}
	defer f.Close()

	domains := make(map[string][]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("domain file line %d: expected concept<TAB>domain", lineNo)
		}
		concept := NormalizeToken(fields[0])
		domain := NormalizeToken(fields[1])
		domains[domain] = append(domains[domain], concept)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan domain file: %w", err)
	}
	return domains, nil
}
