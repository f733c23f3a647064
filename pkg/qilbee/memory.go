package qilbee

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/qilbeedb/qilbeedb/internal/consolidation"
	"github.com/qilbeedb/qilbeedb/internal/graph"
	"github.com/qilbeedb/qilbeedb/internal/memory"
	"github.com/qilbeedb/qilbeedb/internal/memstore"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// Memory returns the in-process AgentMemory for agentID on graphName,
// creating and loading it from the durable memstore on first access.
func (db *DB) Memory(graphName, agentID string) (*memory.AgentMemory, error) {
	g := db.graphs.GetGraph(graphName)
	if g == nil {
		return nil, qerrors.Wrap("qilbee.Memory", qerrors.ErrGraphNotFound)
	}

	key := "memory:" + graphName + "/" + agentID
	db.mu.RLock()
	mem := db.memories[graphName+"/"+agentID]
	db.mu.RUnlock()
	if mem != nil {
		return mem, nil
	}

	// singleflight collapses concurrent first-touch loads for the same
	// agent onto one memstore scan instead of a thundering herd of them.
	v, err, _ := db.loadGroup.Do(key, func() (any, error) {
		mapKey := graphName + "/" + agentID
		db.mu.RLock()
		if existing := db.memories[mapKey]; existing != nil {
			db.mu.RUnlock()
			return existing, nil
		}
		db.mu.RUnlock()

		store := db.memstoreFor(g)
		loaded := memory.NewAgentMemory(agentID, db.cfg.Memory.MaxEpisodes)
		episodes, err := store.GetAll(agentID)
		if err != nil {
			return nil, qerrors.Wrap("qilbee.Memory", err)
		}
		for _, ep := range episodes {
			if err := loaded.Insert(ep); err != nil {
				return nil, qerrors.Wrap("qilbee.Memory", err)
			}
		}

		db.mu.Lock()
		if existing := db.memories[mapKey]; existing != nil {
			db.mu.Unlock()
			return existing, nil
		}
		db.memories[mapKey] = loaded
		db.mu.Unlock()
		db.metrics.AgentMemoriesActive.Add(context.Background(), 1)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*memory.AgentMemory), nil
}

// memstoreFor returns (creating if necessary) the durable episode store for
// g's graph id.
func (db *DB) memstoreFor(g *graph.Graph) *memstore.Store {
	db.mu.Lock()
	defer db.mu.Unlock()
	store := db.memstores[g.ID()]
	if store == nil {
		store = memstore.Open(db.engine, g.ID(), 0)
		db.memstores[g.ID()] = store
	}
	return store
}

// Remember inserts ep both into the in-process AgentMemory and the durable
// memstore backing graphName, keeping them consistent (spec §4.8).
func (db *DB) Remember(graphName string, ep *memory.Episode) error {
	g := db.graphs.GetGraph(graphName)
	if g == nil {
		return qerrors.Wrap("qilbee.Remember", qerrors.ErrGraphNotFound)
	}
	if ep.ID == ([16]byte{}) {
		id, err := uuid.NewRandom()
		if err != nil {
			return qerrors.Wrap("qilbee.Remember", err)
		}
		ep.ID = id
	}

	mem, err := db.Memory(graphName, ep.AgentID)
	if err != nil {
		return err
	}
	if err := mem.Insert(ep); err != nil {
		return qerrors.Wrap("qilbee.Remember", err)
	}
	if err := db.memstoreFor(g).Put(ep); err != nil {
		return qerrors.Wrap("qilbee.Remember", err)
	}
	return nil
}

// Consolidate runs the consolidation service's default strategy over
// agentID's memory on graphName. Returns an error wrapping
// qerrors.ErrConfiguration if no LLM collaborator was wired at Open.
func (db *DB) Consolidate(ctx context.Context, graphName, agentID string) (*consolidation.Result, error) {
	if db.consoler == nil {
		return nil, qerrors.Wrap("qilbee.Consolidate", qerrors.ErrConfiguration)
	}
	mem, err := db.Memory(graphName, agentID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := db.consoler.Consolidate(ctx, mem)
	if err != nil {
		return nil, qerrors.Wrap("qilbee.Consolidate", err)
	}
	db.metrics.RecordConsolidation(ctx, result.Strategy.String(), time.Since(start).Seconds(), result.EpisodesProcessed)

	if g := db.graphs.GetGraph(graphName); g != nil && result.EpisodesProcessed > 0 {
		store := db.memstoreFor(g)
		for _, ep := range mem.Recent(result.EpisodesProcessed) {
			if err := store.Put(ep); err != nil {
				return nil, qerrors.Wrap("qilbee.Consolidate", err)
			}
		}
	}
	return result, nil
}

// ConsolidateAll runs Consolidate for every agentID concurrently, bounded by
// maxConcurrent, and returns each agent's result in input order. The first
// error cancels the remaining work and is returned; results for agents that
// had already finished are discarded along with it (spec §4.6's batch
// consolidation, fanned out across agents rather than within one batch).
func (db *DB) ConsolidateAll(ctx context.Context, graphName string, agentIDs []string, maxConcurrent int) ([]*consolidation.Result, error) {
	results := make([]*consolidation.Result, len(agentIDs))
	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrent > 0 {
		g.SetLimit(maxConcurrent)
	}
	for i, agentID := range agentIDs {
		i, agentID := i, agentID
		g.Go(func() error {
			result, err := db.Consolidate(gctx, graphName, agentID)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
