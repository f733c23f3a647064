package qilbee

import (
	"context"
	"strconv"
	"time"

	"github.com/qilbeedb/qilbeedb/internal/graph"
	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/query/executor"
	"github.com/qilbeedb/qilbeedb/internal/query/parser"
	"github.com/qilbeedb/qilbeedb/internal/query/planner"
	"github.com/qilbeedb/qilbeedb/internal/txn"
)

// CreateGraph catalogues a new named graph.
func (db *DB) CreateGraph(name string) (*graph.Graph, error) {
	start := time.Now()
	g, err := db.graphs.CreateGraph(name)
	if err != nil {
		return nil, err
	}
	db.metrics.RecordGraphOp(context.Background(), strconv.FormatUint(g.ID(), 10), "create_graph", time.Since(start).Seconds())
	db.metrics.OpenGraphs.Add(context.Background(), 1)
	return g, nil
}

// Graph returns the handle for name, or nil if uncatalogued.
func (db *DB) Graph(name string) *graph.Graph {
	return db.graphs.GetGraph(name)
}

// ListGraphs returns every catalogued graph name.
func (db *DB) ListGraphs() []string {
	return db.graphs.ListGraphs()
}

// DeleteGraph removes name from the catalogue.
func (db *DB) DeleteGraph(name string) error {
	err := db.graphs.DeleteGraph(name)
	if err == nil {
		db.metrics.OpenGraphs.Add(context.Background(), -1)
	}
	return err
}

// Begin starts a new transaction against the named graph (spec §4.3,
// component C). The caller is responsible for Commit or Rollback.
func (db *DB) Begin(graphName string) (*txn.Transaction, error) {
	g := db.graphs.GetGraph(graphName)
	if g == nil {
		return nil, qerrors.Wrap("qilbee.Begin", qerrors.ErrGraphNotFound)
	}
	id := db.txnSeq.Add(1)
	return txn.New(id, g.ID(), db.engine), nil
}

// catalog adapts a *graph.Graph to planner.Catalog, mirroring the shape the
// query executor's own tests use.
type catalog struct{ g *graph.Graph }

func (c catalog) HasIndex(label, property string) bool  { return c.g.Schema().HasIndex(label, property) }
func (c catalog) CountByLabel(label string) (int, error) { return c.g.CountByLabel(label) }
func (c catalog) CountAll() (int, error)                 { return c.g.CountAll() }

// Query parses, plans, and executes src against the named graph (spec §4.5,
// components I/J/K).
func (db *DB) Query(graphName, src string, params map[string]property.Value) (*executor.Result, error) {
	g := db.graphs.GetGraph(graphName)
	if g == nil {
		return nil, qerrors.Wrap("qilbee.Query", qerrors.ErrGraphNotFound)
	}

	start := time.Now()
	stmt, err := parser.Parse(src)
	if err != nil {
		db.metrics.RecordQuery(context.Background(), time.Since(start).Seconds(), "parse")
		return nil, qerrors.Wrap("qilbee.Query", err)
	}
	op, err := planner.Plan(stmt, catalog{g: g})
	if err != nil {
		db.metrics.RecordQuery(context.Background(), time.Since(start).Seconds(), "plan")
		return nil, qerrors.Wrap("qilbee.Query", err)
	}
	result, err := executor.Execute(op, g, params)
	if err != nil {
		db.metrics.RecordQuery(context.Background(), time.Since(start).Seconds(), "execute")
		return nil, qerrors.Wrap("qilbee.Query", err)
	}
	db.metrics.RecordQuery(context.Background(), time.Since(start).Seconds(), "")
	return result, nil
}
