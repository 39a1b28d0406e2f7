package internal

import (
	"path/filepath"
	"sort"
)

// ContextSummary describes what the worker currently holds in context.
type ContextSummary struct {
	Features      []string `json:"features"`
	AutoFeatures  []string `json:"auto_features"`
	TotalTokens   int      `json:"total_tokens"`
	MaximumTokens int      `json:"maximum_tokens"`
	TotalCost     float64  `json:"total_cost"`
}

// Paths returns features and auto features as one list.
func (s ContextSummary) Paths() []string {
	paths := make([]string, 0, len(s.Features)+len(s.AutoFeatures))
	paths = append(paths, s.Features...)
	paths = append(paths, s.AutoFeatures...)
	return paths
}

// FolderSet computes every proper ancestor directory of every path, walking
// each path up with Dir until it reaches a fixpoint (the filesystem root).
// The result is sorted for stable output; consumers treat it as a set.
func FolderSet(paths []string) []string {
	seen := make(map[string]bool)
	for _, path := range paths {
		dir := filepath.Dir(path)
		for {
			seen[dir] = true
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	folders := make([]string, 0, len(seen))
	for dir := range seen {
		folders = append(folders, dir)
	}
	sort.Strings(folders)
	return folders
}
