package product

import (
	"sort"
	"strings"
)

// Terms splits free text into lower-cased search terms.
func Terms(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Relevance counts the terms that prefix some word of name.
func Relevance(name string, terms []string) int {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == ',' || r == '.' || r == '/'
	})
	score := 0
	for _, t := range terms {
		for _, w := range words {
			if strings.HasPrefix(w, t) {
				score++
				break
			}
		}
	}
	return score
}

// Rank orders candidates by relevance to terms, then by name, dropping non-matches
// and keeping at most limit results (limit <= 0 keeps all).
func Rank(candidates []*Product, terms []string, limit int) []*Product {
	type scored struct {
		p     *Product
		score int
	}
	hits := make([]scored, 0, len(candidates))
	for _, p := range candidates {
		if s := Relevance(p.Name, terms); s > 0 {
			hits = append(hits, scored{p: p, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return strings.ToLower(hits[i].p.Name) < strings.ToLower(hits[j].p.Name)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*Product, len(hits))
	for i, h := range hits {
		out[i] = h.p
	}
	return out
}
