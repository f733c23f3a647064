package parser

import (
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/query/ast"
)

func TestParseSimpleLookupBuildsEquivalentStatement(t *testing.T) {
	stmt := ParseSimpleLookup("Person", "name", property.String("Alice"))

	if stmt.Match == nil || stmt.Match.Pattern.Label != "Person" {
		t.Fatalf("expected label Person, got %+v", stmt.Match)
	}
	variable := stmt.Match.Pattern.Variable
	if variable == "" {
		t.Fatalf("expected a bound variable")
	}

	be, ok := stmt.Where.(ast.BinaryExpr)
	if !ok || be.Op != ast.OpEqual {
		t.Fatalf("expected top-level equality, got %+v", stmt.Where)
	}
	pa, ok := be.Left.(ast.PropertyAccess)
	if !ok || pa.Entity != variable || pa.Property != "name" {
		t.Fatalf("expected %s.name on the left, got %+v", variable, be.Left)
	}
	lit, ok := be.Right.(ast.Literal)
	if !ok || lit.Value.Str != "Alice" {
		t.Fatalf("expected literal Alice on the right, got %+v", be.Right)
	}

	if stmt.Return == nil || len(stmt.Return.Items) != 1 {
		t.Fatalf("expected a single return item, got %+v", stmt.Return)
	}
	retVar, ok := stmt.Return.Items[0].Expr.(ast.Variable)
	if !ok || retVar.Name != variable {
		t.Fatalf("expected return of bound variable, got %+v", stmt.Return.Items[0].Expr)
	}
}

func TestParseSimpleLookupWithIntValue(t *testing.T) {
	stmt := ParseSimpleLookup("Person", "age", property.Int(30))

	be := stmt.Where.(ast.BinaryExpr)
	lit := be.Right.(ast.Literal)
	if lit.Value.Kind != property.KindInt || lit.Value.Int != 30 {
		t.Fatalf("expected int literal 30, got %+v", lit.Value)
	}
}
