package planner

import (
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/query/ast"
	"github.com/qilbeedb/qilbeedb/internal/query/parser"
)

type fakeCatalog struct {
	indexed map[string]bool
	counts  map[string]int
	total   int
}

func (c *fakeCatalog) HasIndex(label, property string) bool { return c.indexed[label+":"+property] }
func (c *fakeCatalog) CountByLabel(label string) (int, error) {
	return c.counts[label], nil
}
func (c *fakeCatalog) CountAll() (int, error) { return c.total, nil }

func TestPlanScenarioS10ShapeIsLimitProjectFilterNodeScan(t *testing.T) {
	stmt, err := parser.Parse("MATCH (p:Person) WHERE p.age > $a RETURN p.name LIMIT 2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cat := &fakeCatalog{counts: map[string]int{"Person": 10}}

	op, err := Plan(stmt, cat)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	lim, ok := op.(*Limit)
	if !ok {
		t.Fatalf("expected root Limit, got %T", op)
	}
	if lim.Count != 2 {
		t.Fatalf("expected limit 2, got %d", lim.Count)
	}
	proj, ok := lim.Input.(*Project)
	if !ok {
		t.Fatalf("expected Project under Limit, got %T", lim.Input)
	}
	filt, ok := proj.Input.(*Filter)
	if !ok {
		t.Fatalf("expected Filter under Project, got %T", proj.Input)
	}
	scan, ok := filt.Input.(*NodeScan)
	if !ok {
		t.Fatalf("expected NodeScan under Filter, got %T", filt.Input)
	}
	if scan.Label != "Person" {
		t.Fatalf("expected NodeScan(Person), got label %q", scan.Label)
	}
	if scan.EstimatedRows() != 10 {
		t.Fatalf("expected 10 estimated rows from the label count, got %v", scan.EstimatedRows())
	}
	if lim.EstimatedRows() > 2 {
		t.Fatalf("expected limit to cap estimated rows at 2, got %v", lim.EstimatedRows())
	}
}

func TestPlanUsesIndexSeekForIndexedPatternProperty(t *testing.T) {
	stmt, err := parser.Parse("MATCH (p:Person {email: 'a@example.com'}) RETURN p")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cat := &fakeCatalog{indexed: map[string]bool{"Person:email": true}, counts: map[string]int{"Person": 1000}}

	op, err := Plan(stmt, cat)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	proj := op.(*Project)
	seek, ok := proj.Input.(*IndexSeek)
	if !ok {
		t.Fatalf("expected IndexSeek, got %T", proj.Input)
	}
	if seek.Label != "Person" || seek.Property != "email" {
		t.Fatalf("unexpected seek target: %+v", seek)
	}
	if seek.EstimatedCost() >= float64(cat.counts["Person"]) {
		t.Fatalf("expected index seek cost far below a full scan, got %v", seek.EstimatedCost())
	}
}

func TestPlanWithoutLabelScansEverything(t *testing.T) {
	stmt, err := parser.Parse("MATCH (n) RETURN n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cat := &fakeCatalog{total: 42}

	op, err := Plan(stmt, cat)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	scan := op.(*Project).Input.(*NodeScan)
	if scan.Label != "" {
		t.Fatalf("expected unlabelled scan, got label %q", scan.Label)
	}
	if scan.EstimatedRows() != 42 {
		t.Fatalf("expected total node count 42, got %v", scan.EstimatedRows())
	}
}

func TestPlanRejectsStatementWithoutMatch(t *testing.T) {
	_, err := Plan(&ast.Statement{}, &fakeCatalog{})
	if err == nil {
		t.Fatalf("expected error for a statement with no MATCH clause")
	}
}

func TestOrderByDoublesCost(t *testing.T) {
	stmt, err := parser.Parse("MATCH (p:Person) RETURN p.name ORDER BY p.name")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cat := &fakeCatalog{counts: map[string]int{"Person": 5}}
	op, err := Plan(stmt, cat)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	ob, ok := op.(*OrderBy)
	if !ok {
		t.Fatalf("expected root OrderBy, got %T", op)
	}
	if ob.EstimatedCost() != ob.Input.EstimatedCost()*2 {
		t.Fatalf("expected OrderBy cost to be 2x its input, got %v vs %v", ob.EstimatedCost(), ob.Input.EstimatedCost())
	}
}
