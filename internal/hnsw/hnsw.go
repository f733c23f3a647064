package hnsw

import (
	"container/heap"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// node is one vector's entry in the graph: its id, vector, generated level,
// and per-layer neighbor lists (index 0..Level).
type node struct {
	id        uint64
	vector    []float32
	level     int
	neighbors [][]uint64
}

// Result is a single search hit.
type Result struct {
	ID       uint64
	Distance float64
}

// Index is the multi-layer proximity graph of spec §4.7. It holds a single
// many-reader/single-writer lock (spec §5): reads (Search) run concurrently,
// Insert/Remove are serialised, and the entry-point/max-level scalars are
// updated only under the write lock.
type Index struct {
	cfg Config
	rng *rand.Rand

	mu         sync.RWMutex
	nodes      map[uint64]*node
	entryPoint uint64
	hasEntry   bool
	currentMax int
}

// New constructs an empty index.
func New(cfg Config) *Index {
	cfg = cfg.WithDefaults()
	seed := cfg.Seed
	return &Index{
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		nodes: make(map[uint64]*node),
	}
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

func (idx *Index) genLevel() int {
	level := 0
	for idx.rng.Float64() < idx.cfg.ML && level < idx.cfg.MaxLevel {
		level++
	}
	return level
}

func (idx *Index) distance(a, b []float32) (float64, error) {
	return Distance(idx.cfg.Metric, a, b)
}

// Insert adds id -> vector to the index, building bidirectional edges per
// spec §4.7's construction algorithm.
func (idx *Index) Insert(id uint64, vector []float32) error {
	if len(vector) != idx.cfg.Dimension {
		return qerrors.Wrap("hnsw.Insert", fmt.Errorf("%w: expected dimension %d, got %d", qerrors.ErrValidation, idx.cfg.Dimension, len(vector)))
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	level := idx.genLevel()
	n := &node{id: id, vector: vector, level: level, neighbors: make([][]uint64, level+1)}
	idx.nodes[id] = n

	if !idx.hasEntry {
		idx.entryPoint = id
		idx.hasEntry = true
		idx.currentMax = level
		return nil
	}

	probe := idx.entryPoint
	for lc := idx.currentMax; lc > level; lc-- {
		res, err := idx.layerSearch(probe, vector, 1, lc)
		if err != nil {
			return err
		}
		if len(res) > 0 {
			probe = res[0].id
		}
	}

	top := level
	if idx.currentMax < top {
		top = idx.currentMax
	}
	for lc := top; lc >= 0; lc-- {
		candidates, err := idx.layerSearch(probe, vector, idx.cfg.EfConstruction, lc)
		if err != nil {
			return err
		}
		mk := idx.cfg.MForLevel(lc)
		neighbors := candidates
		if len(neighbors) > mk {
			neighbors = neighbors[:mk]
		}
		ids := make([]uint64, len(neighbors))
		for i, c := range neighbors {
			ids[i] = c.id
		}
		n.neighbors[lc] = ids

		for _, c := range neighbors {
			nb := idx.nodes[c.id]
			if nb == nil || lc >= len(nb.neighbors) {
				continue
			}
			nb.neighbors[lc] = append(nb.neighbors[lc], id)
			if len(nb.neighbors[lc]) > mk {
				if err := idx.pruneNeighbors(nb, lc, mk); err != nil {
					return err
				}
			}
		}
		if len(candidates) > 0 {
			probe = candidates[0].id
		}
	}

	if level > idx.currentMax {
		idx.entryPoint = id
		idx.currentMax = level
	}
	return nil
}

// pruneNeighbors trims nb's neighbor list at layer lc to its mk closest
// current neighbors.
func (idx *Index) pruneNeighbors(nb *node, lc, mk int) error {
	type scored struct {
		id   uint64
		dist float64
	}
	scored_ := make([]scored, 0, len(nb.neighbors[lc]))
	for _, nid := range nb.neighbors[lc] {
		other := idx.nodes[nid]
		if other == nil {
			continue
		}
		d, err := idx.distance(nb.vector, other.vector)
		if err != nil {
			return err
		}
		scored_ = append(scored_, scored{nid, d})
	}
	sort.Slice(scored_, func(i, j int) bool { return scored_[i].dist < scored_[j].dist })
	if len(scored_) > mk {
		scored_ = scored_[:mk]
	}
	out := make([]uint64, len(scored_))
	for i, s := range scored_ {
		out[i] = s.id
	}
	nb.neighbors[lc] = out
	return nil
}

// layerSearch implements spec §4.7's candidate/result heap search at a
// single layer, returning up to ef results sorted by ascending distance.
func (idx *Index) layerSearch(entryID uint64, query []float32, ef, level int) ([]item, error) {
	entry := idx.nodes[entryID]
	if entry == nil {
		return nil, nil
	}
	entryDist, err := idx.distance(query, entry.vector)
	if err != nil {
		return nil, err
	}

	visited := map[uint64]bool{entryID: true}
	candidates := minHeap{{dist: entryDist, id: entryID}}
	results := maxHeap{{dist: entryDist, id: entryID}}
	heap.Init(&candidates)
	heap.Init(&results)

	for candidates.Len() > 0 {
		c := heap.Pop(&candidates).(item)
		if results.Len() >= ef && c.dist > results[0].dist {
			break
		}
		n := idx.nodes[c.id]
		if n == nil || level >= len(n.neighbors) {
			continue
		}
		for _, nbID := range n.neighbors[level] {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true
			nb := idx.nodes[nbID]
			if nb == nil {
				continue
			}
			d, err := idx.distance(query, nb.vector)
			if err != nil {
				return nil, err
			}
			if results.Len() < ef || d < results[0].dist {
				heap.Push(&candidates, item{dist: d, id: nbID})
				heap.Push(&results, item{dist: d, id: nbID})
				if results.Len() > ef {
					heap.Pop(&results)
				}
			}
		}
	}

	out := append([]item(nil), results...)
	sort.Slice(out, func(i, j int) bool { return out[i].dist < out[j].dist })
	return out, nil
}

// Search greedy-descends from the top layer with ef=1, then runs a
// layer-0 search with ef=efSearch, returning the top k results.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != idx.cfg.Dimension {
		return nil, qerrors.Wrap("hnsw.Search", fmt.Errorf("%w: expected dimension %d, got %d", qerrors.ErrValidation, idx.cfg.Dimension, len(query)))
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.hasEntry {
		return nil, nil
	}
	probe := idx.entryPoint
	for lc := idx.currentMax; lc >= 1; lc-- {
		res, err := idx.layerSearch(probe, query, 1, lc)
		if err != nil {
			return nil, err
		}
		if len(res) > 0 {
			probe = res[0].id
		}
	}
	res, err := idx.layerSearch(probe, query, idx.cfg.EfSearch, 0)
	if err != nil {
		return nil, err
	}
	if len(res) > k {
		res = res[:k]
	}
	out := make([]Result, len(res))
	for i, r := range res {
		out[i] = Result{ID: r.id, Distance: r.dist}
	}
	return out, nil
}

// Remove drops id from the index and from every neighbor list that
// referenced it. If id was the entry point, the node with the highest
// remaining level becomes the new entry point (or none, if the index is
// now empty).
func (idx *Index) Remove(id uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.nodes[id]; !ok {
		return nil
	}
	delete(idx.nodes, id)
	for _, n := range idx.nodes {
		for lc := range n.neighbors {
			n.neighbors[lc] = removeID(n.neighbors[lc], id)
		}
	}

	if idx.entryPoint != id {
		return nil
	}
	var bestID uint64
	bestLevel := -1
	found := false
	for nid, n := range idx.nodes {
		if n.level > bestLevel {
			bestLevel = n.level
			bestID = nid
			found = true
		}
	}
	if !found {
		idx.hasEntry = false
		idx.entryPoint = 0
		idx.currentMax = 0
		return nil
	}
	idx.entryPoint = bestID
	idx.currentMax = bestLevel
	return nil
}

func removeID(ids []uint64, target uint64) []uint64 {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
