// Package vector provides the approximate k-nearest-neighbor index over
// snippet description embeddings. The index lives in memory and is rebuilt
// from the datastore at startup; the datastore remains the source of truth.
package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// Config tunes the HNSW graph.
type Config struct {
	Dimensions int
	M          int // graph connectivity
	EfSearch   int // search beam width
}

// Hit is a single k-NN result: a snippet id and a cosine similarity score in
// [0,1], higher is closer.
type Hit struct {
	SnippetID int64
	Score     float32
}

// Index is a thread-safe HNSW index keyed by snippet id.
//
// Deletes are lazy: coder/hnsw misbehaves when the last node of a graph is
// removed, so removed ids are orphaned in the graph and filtered out of
// search results. Upserts orphan the old node the same way.
type Index struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config Config

	keyByID map[int64]uint64 // snippet id -> live graph key
	idByKey map[uint64]int64 // live graph key -> snippet id
	nextKey uint64
}

// New creates an empty index. Zero config fields get defaults.
func New(cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vector: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &Index{
		graph:   graph,
		config:  cfg,
		keyByID: make(map[int64]uint64),
		idByKey: make(map[uint64]int64),
	}, nil
}

// Upsert inserts or replaces the vector for a snippet id.
func (ix *Index) Upsert(snippetID int64, vec []float32) error {
	if len(vec) != ix.config.Dimensions {
		return fmt.Errorf("vector: dimension mismatch: want %d, got %d", ix.config.Dimensions, len(vec))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if oldKey, ok := ix.keyByID[snippetID]; ok {
		delete(ix.idByKey, oldKey) // orphan the old node
		delete(ix.keyByID, snippetID)
	}

	key := ix.nextKey
	ix.nextKey++

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	ix.graph.Add(hnsw.MakeNode(key, normalized))
	ix.keyByID[snippetID] = key
	ix.idByKey[key] = snippetID
	return nil
}

// Delete removes a snippet's vector. Removing an absent id is a no-op.
func (ix *Index) Delete(snippetID int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if key, ok := ix.keyByID[snippetID]; ok {
		delete(ix.idByKey, key)
		delete(ix.keyByID, snippetID)
	}
}

// Contains reports whether the id has a live vector.
func (ix *Index) Contains(snippetID int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.keyByID[snippetID]
	return ok
}

// Count returns the number of live vectors.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.keyByID)
}

// Search returns up to k nearest snippets by cosine similarity, ordered by
// descending score with ties broken by ascending snippet id so identical
// queries always yield identical orderings.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.config.Dimensions {
		return nil, fmt.Errorf("vector: dimension mismatch: want %d, got %d", ix.config.Dimensions, len(query))
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.keyByID) == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	// Oversample by the orphan count so lazy-deleted nodes cannot crowd out
	// live ones.
	orphans := ix.graph.Len() - len(ix.keyByID)
	nodes := ix.graph.Search(normalized, k+orphans)

	hits := make([]Hit, 0, k)
	for _, node := range nodes {
		id, live := ix.idByKey[node.Key]
		if !live {
			continue
		}
		distance := ix.graph.Distance(normalized, node.Value)
		hits = append(hits, Hit{
			SnippetID: id,
			Score:     1.0 - distance/2.0, // cosine distance 0..2 -> score 1..0
		})
		if len(hits) == k {
			break
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].SnippetID < hits[j].SnippetID
	})
	return hits, nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
