// Package graph implements the graph catalogue and per-graph operations of
// spec §4.4 (component D): a Database owning a storage engine and a
// name->Graph map, and a Graph owning constraint checking, traversal, and
// index-maintained mutation on top of internal/storage.
package graph

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/storage"
)

const graphsMetaKey = "graphs"

// Database owns the storage engine and the catalogue of named graphs. The
// catalogue is a many-reader/single-writer structure (spec §5): the lock
// guards only the in-memory map, never the storage I/O that persists it.
type Database struct {
	engine *storage.Engine

	mu     sync.RWMutex
	graphs map[string]*Graph
}

// Open loads the graph catalogue from the engine's meta key, recreating a
// Graph handle for each catalogued name.
func Open(engine *storage.Engine) (*Database, error) {
	db := &Database{engine: engine, graphs: make(map[string]*Graph)}
	raw, found, err := engine.GetMeta(graphsMetaKey)
	if err != nil {
		return nil, qerrors.Wrap("graph.Open", err)
	}
	if !found {
		return db, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, qerrors.Wrap("graph.Open", fmt.Errorf("%w: %v", qerrors.ErrCorruption, err))
	}
	for _, name := range names {
		g, err := openGraph(name, engine)
		if err != nil {
			return nil, err
		}
		db.graphs[name] = g
	}
	return db, nil
}

// ListGraphs returns the catalogued graph names.
func (d *Database) ListGraphs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.graphs))
	for name := range d.graphs {
		names = append(names, name)
	}
	return names
}

// GetGraph returns the handle for name, or nil if uncatalogued.
func (d *Database) GetGraph(name string) *Graph {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.graphs[name]
}

// CreateGraph catalogues a new graph named name and persists the updated
// name list. Collects the next-state list under the lock, releases it, then
// performs the metadata write, per spec §5's "never hold the lock during
// I/O" discipline.
func (d *Database) CreateGraph(name string) (*Graph, error) {
	d.mu.Lock()
	if _, exists := d.graphs[name]; exists {
		d.mu.Unlock()
		return nil, qerrors.Wrap("graph.CreateGraph", fmt.Errorf("%w: graph %q already exists", qerrors.ErrValidation, name))
	}
	g, err := openGraph(name, d.engine)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.graphs[name] = g
	names := d.namesLocked()
	d.mu.Unlock()

	if err := d.persistNames(names); err != nil {
		d.mu.Lock()
		delete(d.graphs, name)
		d.mu.Unlock()
		return nil, err
	}
	return g, nil
}

// DeleteGraph removes name from the catalogue and persists the updated
// list. Keys already written under the graph's id remain in storage until
// Sweep is called for that id (spec §9 open question).
func (d *Database) DeleteGraph(name string) error {
	d.mu.Lock()
	if _, exists := d.graphs[name]; !exists {
		d.mu.Unlock()
		return qerrors.Wrap("graph.DeleteGraph", fmt.Errorf("%w: graph %q", qerrors.ErrGraphNotFound, name))
	}
	delete(d.graphs, name)
	names := d.namesLocked()
	d.mu.Unlock()

	return d.persistNames(names)
}

// Sweep deletes every key left behind under graphID by a prior DeleteGraph.
// Not invoked automatically (spec §9 open question: orphaned keys persist
// until a later compaction pass); operators call it explicitly as a
// maintenance pass.
func (d *Database) Sweep(graphID uint64) error {
	return qerrors.Wrap("graph.Sweep", d.engine.SweepGraph(graphID))
}

func (d *Database) namesLocked() []string {
	names := make([]string, 0, len(d.graphs))
	for name := range d.graphs {
		names = append(names, name)
	}
	return names
}

func (d *Database) persistNames(names []string) error {
	raw, err := json.Marshal(names)
	if err != nil {
		return qerrors.Wrap("graph.persistNames", err)
	}
	if err := d.engine.PutMeta(graphsMetaKey, raw); err != nil {
		return qerrors.Wrap("graph.persistNames", err)
	}
	return nil
}
