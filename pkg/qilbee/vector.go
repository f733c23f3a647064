package qilbee

import (
	"context"
	"time"

	"github.com/qilbeedb/qilbeedb/internal/hnsw"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

const hnswMetaPrefix = "hnsw:"

// CreateVectorIndex builds a new named HNSW index on graphName with the
// given dimension, applying the instance's configured M/EfConstruction/
// EfSearch/Metric defaults (spec §4.7).
func (db *DB) CreateVectorIndex(graphName, name string, dimension int) (*hnsw.Index, error) {
	g := db.graphs.GetGraph(graphName)
	if g == nil {
		return nil, qerrors.Wrap("qilbee.CreateVectorIndex", qerrors.ErrGraphNotFound)
	}

	key := graphName + "/" + name
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exists := db.vectors[key]; exists {
		return nil, qerrors.Wrap("qilbee.CreateVectorIndex", qerrors.ErrIndexAlreadyExists)
	}

	idx := hnsw.New(hnsw.Config{
		Dimension:      dimension,
		M:              db.cfg.HNSW.M,
		EfConstruction: db.cfg.HNSW.EfConstruction,
		EfSearch:       db.cfg.HNSW.EfSearch,
		MaxLevel:       db.cfg.HNSW.MaxLevel,
		ML:             db.cfg.HNSW.ML,
		Metric:         metricFromString(db.cfg.HNSW.Metric),
	})
	db.vectors[key] = idx
	return idx, nil
}

// VectorIndex returns the named index on graphName, loading it from durable
// storage on first access if it was persisted by a prior PersistVectorIndex.
func (db *DB) VectorIndex(graphName, name string) (*hnsw.Index, error) {
	g := db.graphs.GetGraph(graphName)
	if g == nil {
		return nil, qerrors.Wrap("qilbee.VectorIndex", qerrors.ErrGraphNotFound)
	}

	key := graphName + "/" + name
	db.mu.RLock()
	idx := db.vectors[key]
	db.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}

	data, ok, err := db.engine.GetGraphMeta(g.ID(), hnswMetaPrefix+name)
	if err != nil {
		return nil, qerrors.Wrap("qilbee.VectorIndex", err)
	}
	if !ok {
		return nil, qerrors.Wrap("qilbee.VectorIndex", qerrors.ErrIndexNotFound)
	}
	idx, err = hnsw.Deserialize(data)
	if err != nil {
		return nil, qerrors.Wrap("qilbee.VectorIndex", err)
	}

	db.mu.Lock()
	if existing := db.vectors[key]; existing != nil {
		db.mu.Unlock()
		return existing, nil
	}
	db.vectors[key] = idx
	db.mu.Unlock()
	return idx, nil
}

// InsertVector adds id -> vector to the named index.
func (db *DB) InsertVector(graphName, name string, id uint64, vector []float32) error {
	idx, err := db.VectorIndex(graphName, name)
	if err != nil {
		if idx, err = db.CreateVectorIndex(graphName, name, len(vector)); err != nil {
			return err
		}
	}
	if err := idx.Insert(id, vector); err != nil {
		return qerrors.Wrap("qilbee.InsertVector", err)
	}
	db.metrics.HNSWIndexSize.Add(context.Background(), 1)
	return nil
}

// SearchVectors runs a k-nearest-neighbor search against the named index.
func (db *DB) SearchVectors(graphName, name string, query []float32, k int) ([]hnsw.Result, error) {
	idx, err := db.VectorIndex(graphName, name)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := idx.Search(query, k)
	db.metrics.HNSWSearchDuration.Record(context.Background(), time.Since(start).Seconds())
	if err != nil {
		return nil, qerrors.Wrap("qilbee.SearchVectors", err)
	}
	return res, nil
}

// PersistVectorIndex serializes the named index and durably stores it as
// graph metadata, so it survives a Close/Open cycle (spec §4.7's
// serialization format).
func (db *DB) PersistVectorIndex(graphName, name string) error {
	g := db.graphs.GetGraph(graphName)
	if g == nil {
		return qerrors.Wrap("qilbee.PersistVectorIndex", qerrors.ErrGraphNotFound)
	}
	idx, err := db.VectorIndex(graphName, name)
	if err != nil {
		return err
	}
	data, err := idx.Serialize()
	if err != nil {
		return qerrors.Wrap("qilbee.PersistVectorIndex", err)
	}
	return qerrors.Wrap("qilbee.PersistVectorIndex", db.engine.PutGraphMeta(g.ID(), hnswMetaPrefix+name, data))
}

func metricFromString(s string) hnsw.Metric {
	switch s {
	case "dot":
		return hnsw.MetricDot
	case "euclidean":
		return hnsw.MetricEuclidean
	default:
		return hnsw.MetricCosine
	}
}
