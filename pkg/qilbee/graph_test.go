package qilbee

import (
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/property"
)

func TestCreateListDeleteGraph(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.CreateGraph("alpha"); err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	if got := db.ListGraphs(); len(got) != 1 || got[0] != "alpha" {
		t.Fatalf("expected [alpha], got %v", got)
	}
	if db.Graph("alpha") == nil {
		t.Fatal("expected Graph(alpha) to resolve")
	}
	if err := db.DeleteGraph("alpha"); err != nil {
		t.Fatalf("DeleteGraph: %v", err)
	}
	if db.Graph("alpha") != nil {
		t.Fatal("expected Graph(alpha) to be gone after delete")
	}
}

func TestBeginRejectsUnknownGraph(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Begin("nope"); err == nil {
		t.Fatal("expected an error beginning a transaction on an uncatalogued graph")
	}
}

func TestBeginAssignsIncreasingIDs(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateGraph("g"); err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	tx1, err := db.Begin("g")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	tx2, err := db.Begin("g")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if tx1.ID() == tx2.ID() {
		t.Fatalf("expected distinct transaction ids, got %d twice", tx1.ID())
	}
}

func TestQueryMatchesCreatedNode(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateGraph("g"); err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	g := db.Graph("g")
	if _, err := g.CreateNode([]string{"Probe"}, map[string]property.Value{
		"name": property.String("rex"),
	}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	result, err := db.Query("g", `MATCH (n:Probe) WHERE n.name = $name RETURN n.name`,
		map[string]property.Value{"name": property.String("rex")})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result == nil || len(result.Rows) != 1 {
		t.Fatalf("expected exactly one row, got %+v", result)
	}
}

func TestQueryRejectsUnknownGraph(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Query("nope", "MATCH (n) RETURN n", nil); err == nil {
		t.Fatal("expected an error querying an uncatalogued graph")
	}
}

func TestQueryPropagatesParseError(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateGraph("g"); err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	if _, err := db.Query("g", "NOT A QUERY", nil); err == nil {
		t.Fatal("expected a parse error for malformed query text")
	}
}
