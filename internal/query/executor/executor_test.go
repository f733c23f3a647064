package executor

import (
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/graph"
	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/query/parser"
	"github.com/qilbeedb/qilbeedb/internal/query/planner"
	"github.com/qilbeedb/qilbeedb/internal/storage"
)

// catalog adapts a *graph.Graph to planner.Catalog.
type catalog struct{ g *graph.Graph }

func (c catalog) HasIndex(label, property string) bool { return c.g.Schema().HasIndex(label, property) }
func (c catalog) CountByLabel(label string) (int, error) { return c.g.CountByLabel(label) }
func (c catalog) CountAll() (int, error)                 { return c.g.CountAll() }

func newTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	e, err := storage.Open(storage.Options{InMemory: true, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	db, err := graph.Open(e)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	g, err := db.CreateGraph("social")
	if err != nil {
		t.Fatalf("create graph: %v", err)
	}
	return g
}

func planAndRun(t *testing.T, g *graph.Graph, query string, params map[string]property.Value) *Result {
	t.Helper()
	stmt, err := parser.Parse(query)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	op, err := planner.Plan(stmt, catalog{g: g})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	res, err := Execute(op, g, params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return res
}

// TestScenarioS10ParsePlanExecute mirrors the spec's worked example: parse,
// plan, and execute a filtered, limited, projected query.
func TestScenarioS10ParsePlanExecute(t *testing.T) {
	g := newTestGraph(t)
	for _, tc := range []struct {
		name string
		age  int64
	}{
		{"Alice", 30}, {"Bob", 20}, {"Carol", 40}, {"Dave", 26},
	} {
		if _, err := g.CreateNode([]string{"Person"}, map[string]property.Value{
			"name": property.String(tc.name),
			"age":  property.Int(tc.age),
		}); err != nil {
			t.Fatalf("create %s: %v", tc.name, err)
		}
	}

	res := planAndRun(t, g, "MATCH (p:Person) WHERE p.age > $a RETURN p.name LIMIT 2",
		map[string]property.Value{"a": property.Int(25)})

	if len(res.Columns) != 1 || res.Columns[0] != "p.name" {
		t.Fatalf("unexpected columns: %v", res.Columns)
	}
	if len(res.Rows) > 2 {
		t.Fatalf("expected at most 2 rows, got %d", len(res.Rows))
	}
	for _, row := range res.Rows {
		if row.Cells[0].Value.Kind != property.KindString {
			t.Fatalf("expected string column, got %+v", row.Cells[0])
		}
	}
	if res.Stats.NodesScanned != 4 {
		t.Fatalf("expected 4 nodes scanned, got %d", res.Stats.NodesScanned)
	}
}

func TestExecuteFiltersOutAgeBelowThreshold(t *testing.T) {
	g := newTestGraph(t)
	young, err := g.CreateNode([]string{"Person"}, map[string]property.Value{"name": property.String("Young"), "age": property.Int(10)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	old, err := g.CreateNode([]string{"Person"}, map[string]property.Value{"name": property.String("Old"), "age": property.Int(90)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = young
	_ = old

	res := planAndRun(t, g, "MATCH (p:Person) WHERE p.age > $a RETURN p.name",
		map[string]property.Value{"a": property.Int(25)})

	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}
	if res.Rows[0].Cells[0].Value.Str != "Old" {
		t.Fatalf("expected Old, got %+v", res.Rows[0].Cells[0])
	}
}

func TestExecuteUsesIndexSeekWhenIndexed(t *testing.T) {
	g := newTestGraph(t)
	if err := g.Schema().AddIndex("Person", "email"); err != nil {
		t.Fatalf("add index: %v", err)
	}
	if _, err := g.CreateNode([]string{"Person"}, map[string]property.Value{
		"name": property.String("Alice"), "email": property.String("alice@example.com"),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := g.CreateNode([]string{"Person"}, map[string]property.Value{
		"name": property.String("Bob"), "email": property.String("bob@example.com"),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	res := planAndRun(t, g, "MATCH (p:Person {email: 'alice@example.com'}) RETURN p.name", nil)

	if len(res.Rows) != 1 || res.Rows[0].Cells[0].Value.Str != "Alice" {
		t.Fatalf("expected Alice only, got %+v", res.Rows)
	}
	if res.Stats.IndexHits != 1 {
		t.Fatalf("expected 1 index hit, got %d", res.Stats.IndexHits)
	}
}

func TestExecuteOrderByDescending(t *testing.T) {
	g := newTestGraph(t)
	for _, n := range []string{"Bob", "Alice", "Carol"} {
		if _, err := g.CreateNode([]string{"Person"}, map[string]property.Value{"name": property.String(n)}); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}

	res := planAndRun(t, g, "MATCH (p:Person) RETURN p.name ORDER BY p.name DESC", nil)

	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(res.Rows))
	}
	got := []string{res.Rows[0].Cells[0].Value.Str, res.Rows[1].Cells[0].Value.Str, res.Rows[2].Cells[0].Value.Str}
	want := []string{"Carol", "Bob", "Alice"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: %v", got)
		}
	}
}

func TestExecuteReturnsWholeNode(t *testing.T) {
	g := newTestGraph(t)
	n, err := g.CreateNode([]string{"Person"}, map[string]property.Value{"name": property.String("Alice")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res := planAndRun(t, g, "MATCH (p:Person) RETURN p", nil)

	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}
	cell := res.Rows[0].Cells[0]
	if !cell.IsNode() || cell.Node.ID != n.ID {
		t.Fatalf("expected bound node %d, got %+v", n.ID, cell)
	}
}
