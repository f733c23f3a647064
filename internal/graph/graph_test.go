package graph

import (
	"errors"
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/storage"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	e, err := storage.Open(storage.Options{InMemory: true, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	db, err := Open(e)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

func TestCreateGraphPersistsCatalogue(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.CreateGraph("social"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if g := db.GetGraph("social"); g == nil {
		t.Fatalf("expected graph to be retrievable")
	}
	names := db.ListGraphs()
	if len(names) != 1 || names[0] != "social" {
		t.Fatalf("unexpected catalogue: %v", names)
	}
}

func TestCreateNodeAndRelationshipTraversal(t *testing.T) {
	db := newTestDB(t)
	g, err := db.CreateGraph("social")
	if err != nil {
		t.Fatalf("create graph: %v", err)
	}
	alice, err := g.CreateNode([]string{"Person"}, map[string]property.Value{"name": property.String("Alice")})
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := g.CreateNode([]string{"Person"}, map[string]property.Value{"name": property.String("Bob")})
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if _, err := g.CreateRelationship("KNOWS", alice.ID, bob.ID, nil); err != nil {
		t.Fatalf("create rel: %v", err)
	}
	neighbors, err := g.GetNeighbors(alice.ID, Outgoing)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].ID != bob.ID {
		t.Fatalf("expected bob as alice's only outgoing neighbor, got %+v", neighbors)
	}
}

func TestDeleteNodeRejectsWhenAdjacencyExists(t *testing.T) {
	db := newTestDB(t)
	g, _ := db.CreateGraph("social")
	alice, _ := g.CreateNode([]string{"Person"}, nil)
	bob, _ := g.CreateNode([]string{"Person"}, nil)
	if _, err := g.CreateRelationship("KNOWS", alice.ID, bob.ID, nil); err != nil {
		t.Fatalf("create rel: %v", err)
	}
	if err := g.DeleteNode(alice.ID); err == nil {
		t.Fatalf("expected delete to be rejected while adjacency exists")
	}
	out, in, err := g.DetachDeleteNode(alice.ID)
	if err != nil {
		t.Fatalf("detach delete: %v", err)
	}
	if out != 1 || in != 0 {
		t.Fatalf("expected 1 outgoing 0 incoming, got %d %d", out, in)
	}
}

func TestUniqueConstraintRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	g, _ := db.CreateGraph("social")
	if err := g.Schema().AddIndex("Person", "email"); err != nil {
		t.Fatalf("add index: %v", err)
	}
	if err := g.Schema().AddConstraint(Constraint{Kind: ConstraintUnique, Label: "Person", Properties: []string{"email"}}); err != nil {
		t.Fatalf("add constraint: %v", err)
	}
	props := map[string]property.Value{"email": property.String("a@example.com")}
	if _, err := g.CreateNode([]string{"Person"}, props); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := g.CreateNode([]string{"Person"}, props)
	if err == nil {
		t.Fatalf("expected unique violation on duplicate email")
	}
	var uv *qerrors.UniqueViolation
	if !errors.As(err, &uv) {
		t.Fatalf("expected UniqueViolation, got %v", err)
	}
}

func TestExistsConstraintRejectsMissingProperty(t *testing.T) {
	db := newTestDB(t)
	g, _ := db.CreateGraph("social")
	if err := g.Schema().AddConstraint(Constraint{Kind: ConstraintExists, Label: "Person", Properties: []string{"name"}}); err != nil {
		t.Fatalf("add constraint: %v", err)
	}
	if _, err := g.CreateNode([]string{"Person"}, nil); err == nil {
		t.Fatalf("expected exists violation on missing name")
	}
}
