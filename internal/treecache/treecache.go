// Package treecache is the process-wide, per-(root_tree_id, team_id)
// unified-graph cache (spec §4.3). Grounded on the teacher's
// internal/server/registry.go PipelineRegistry: a single mutex-guarded
// map with Register/Get/Invalidate, generalized from pipeline-by-run-id
// to graph-by-(tree,team).
package treecache

import (
	"sync"

	"github.com/virtualpytest/core/internal/coreerrors"
	"github.com/virtualpytest/core/internal/graph"
)

type key struct {
	rootTreeID string
	teamID     string
}

// Cache is a read-mostly map of unified graphs, one writer at a time per
// key, concurrent readers allowed on fully built entries (spec §4.3).
type Cache struct {
	mu      sync.RWMutex
	entries map[key]*graph.Graph
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: map[key]*graph.Graph{}}
}

// Put installs (or replaces) the unified graph for (rootTreeID, teamID).
func (c *Cache) Put(rootTreeID, teamID string, g *graph.Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[key]*graph.Graph{}
	}
	c.entries[key{rootTreeID, teamID}] = g
}

// Get returns the cached graph, or a *coreerrors.UnifiedCacheMiss if
// absent. Pathfinding must call Get, never rebuild silently (spec §4.3).
func (c *Cache) Get(rootTreeID, teamID string) (*graph.Graph, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.entries[key{rootTreeID, teamID}]
	if !ok {
		return nil, &coreerrors.UnifiedCacheMiss{RootTreeID: rootTreeID, TeamID: teamID}
	}
	return g, nil
}

// Invalidate removes the cached graph for (rootTreeID, teamID), e.g. on
// tree reload or an administrative flush (spec §4.3).
func (c *Cache) Invalidate(rootTreeID, teamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key{rootTreeID, teamID})
}

// Flush clears every cached entry.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[key]*graph.Graph{}
}
