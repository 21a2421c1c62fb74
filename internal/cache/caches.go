package cache

import (
	"repolens/internal/cache/memory"
	"repolens/internal/github"
	"repolens/internal/types"
)

// Caches groups the process-wide result caches, one per value type.
type Caches struct {
	Analyses *memory.TTLCache[*types.AnalysisResult]
	History  *memory.TTLCache[[]types.HistoryRecord]
	Repos    *memory.TTLCache[[]github.Repository]
	Samples  *memory.TTLCache[[]types.CodeSample]
}

func NewCaches() *Caches {
	return &Caches{
		Analyses: memory.NewTTLCache[*types.AnalysisResult](),
		History:  memory.NewTTLCache[[]types.HistoryRecord](),
		Repos:    memory.NewTTLCache[[]github.Repository](),
		Samples:  memory.NewTTLCache[[]types.CodeSample](),
	}
}
