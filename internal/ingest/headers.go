// Package ingest reads source snapshot files into raw records and merge
// candidates. Column headers are matched leniently since every export names
// them slightly differently.
package ingest

import (
	"strings"

	"github.com/sepa-leadgen/internal/normalize"
)

// Header match thresholds for the fuzzy pass.
const (
	DefaultHeaderThreshold = 80.0
	LooseHeaderThreshold   = 75.0
)

// Column describes one canonical field and the header names it may carry.
type Column struct {
	Name     string
	Variants []string
	Required bool
}

// HeaderMap maps canonical column names to positions in a CSV row.
type HeaderMap map[string]int

// MapHeaders resolves columns against actual headers. Exact
// case-insensitive matches are assigned first for every column, then the
// remaining columns take the most similar unused header scoring at least
// threshold. A header is never assigned twice.
func MapHeaders(columns []Column, actual []string, threshold float64) HeaderMap {
	m := make(HeaderMap, len(columns))
	used := make(map[int]bool, len(actual))

	for _, col := range columns {
	exact:
		for _, v := range col.Variants {
			for i, h := range actual {
				if !used[i] && strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(v)) {
					m[col.Name] = i
					used[i] = true
					break exact
				}
			}
		}
	}

	for _, col := range columns {
		if _, ok := m[col.Name]; ok {
			continue
		}
		for _, v := range col.Variants {
			if i := bestHeader(v, actual, threshold); i >= 0 && !used[i] {
				m[col.Name] = i
				used[i] = true
				break
			}
		}
	}
	return m
}

// bestHeader returns the most similar header to target, or -1 when none
// reaches threshold. Earlier headers win ties.
func bestHeader(target string, actual []string, threshold float64) int {
	best, bestScore := -1, 0.0
	for i, h := range actual {
		if s := normalize.Similarity(strings.TrimSpace(target), strings.TrimSpace(h)); s > bestScore {
			best, bestScore = i, s
		}
	}
	if bestScore >= threshold {
		return best
	}
	return -1
}

// Missing lists required columns the map could not resolve.
func (m HeaderMap) Missing(columns []Column) []string {
	var out []string
	for _, col := range columns {
		if _, ok := m[col.Name]; col.Required && !ok {
			out = append(out, col.Name)
		}
	}
	return out
}

// Get returns the trimmed value for a canonical column, or "".
func (m HeaderMap) Get(row []string, name string) string {
	i, ok := m[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
