// Package fuzzy ranks candidate names by similarity for "did you mean" suggestions.
// Used by rotini/errors.go when a token cannot be matched.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/xrash/smetrics"
)

// Matcher ranks candidates by Jaro-Winkler similarity, breaking ties with the
// normalized Levenshtein similarity and then the edit distance.
type Matcher struct {
	boostThreshold float64
	prefixSize     int
	minScore       float64
	params         *levenshtein.Params
}

// NewMatcher creates a matcher that keeps every candidate with a nonzero score
func NewMatcher() *Matcher {
	return &Matcher{
		boostThreshold: 0.7,
		prefixSize:     4,
		params:         levenshtein.NewParams(),
	}
}

// MinScore sets the lowest score (exclusive) a candidate needs to be reported
func (m *Matcher) MinScore(score float64) *Matcher {
	m.minScore = score
	return m
}

// Match represents a fuzzy match result
type Match struct {
	Value    string
	Distance int
	Score    float64 // 0.0 to 1.0, higher is better
}

// FindBest returns the closest candidate, or "" when nothing is similar
func (m *Matcher) FindBest(input string, candidates []string) string {
	matches := m.FindMatches(input, candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Value
}

// FindMatches returns candidates with a score above the minimum, best first.
// Comparison is case-insensitive, exact matches and duplicates are skipped.
func (m *Matcher) FindMatches(input string, candidates []string) []Match {
	input = strings.ToLower(input)
	if input == "" {
		return nil
	}

	seen := make(map[string]struct{}, len(candidates))
	var matches []Match

	for _, candidate := range candidates {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		candidateLower := strings.ToLower(candidate)
		if candidateLower == "" || candidateLower == input {
			continue
		}

		score := smetrics.JaroWinkler(input, candidateLower, m.boostThreshold, m.prefixSize)
		if score <= m.minScore {
			continue
		}

		matches = append(matches, Match{
			Value:    candidate,
			Distance: levenshtein.Distance(input, candidateLower, m.params),
			Score:    score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Value < matches[j].Value
	})

	return matches
}

// Similarity returns the normalized edit-distance similarity of a and b
func (m *Matcher) Similarity(a, b string) float64 {
	return levenshtein.Similarity(strings.ToLower(a), strings.ToLower(b), m.params)
}

// Rank returns the matching candidate values, best first
func Rank(input string, candidates []string) []string {
	matches := NewMatcher().FindMatches(input, candidates)
	ranked := make([]string, 0, len(matches))
	for _, match := range matches {
		ranked = append(ranked, match.Value)
	}
	return ranked
}

// FindSuggestions returns at most maxSuggestions ranked candidates
func FindSuggestions(input string, candidates []string, maxSuggestions int) []string {
	ranked := Rank(input, candidates)
	if maxSuggestions >= 0 && len(ranked) > maxSuggestions {
		ranked = ranked[:maxSuggestions]
	}
	return ranked
}
