package graph

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/qilbeedb/qilbeedb/internal/keycodec"
	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/storage"
)

// NewExternalNodeID derives a node/relationship id from an externally
// assigned UUID rather than the per-graph counter. Not used on the hot
// path (spec §3.1); provided for callers importing data that already
// carries stable external identifiers.
func NewExternalNodeID(id uuid.UUID) uint64 {
	b := [16]byte(id)
	return xxh3.Hash(b[:])
}

const (
	metaNextNodeID = "next_node_id"
	metaNextRelID  = "next_relationship_id"
)

// Direction selects which adjacency set a traversal reads from.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Graph owns one graph's id generation, schema, and mutation/traversal
// operations over the shared storage engine (spec §4.4).
type Graph struct {
	name    string
	graphID uint64
	engine  *storage.Engine
	schema  *Schema

	nextNodeID atomic.Uint64
	nextRelID  atomic.Uint64
}

// Name returns the graph's catalogue name.
func (g *Graph) Name() string { return g.name }

// ID returns xxh3_64(name), the graph's storage-layer identifier.
func (g *Graph) ID() uint64 { return g.graphID }

// Schema returns the graph's in-memory index/constraint catalogue.
func (g *Graph) Schema() *Schema { return g.schema }

func openGraph(name string, engine *storage.Engine) (*Graph, error) {
	graphID := keycodec.GraphID(name)
	g := &Graph{name: name, graphID: graphID, engine: engine}

	if raw, found, err := engine.GetGraphMeta(graphID, metaNextNodeID); err != nil {
		return nil, qerrors.Wrap("graph.openGraph", err)
	} else if found && len(raw) == 8 {
		g.nextNodeID.Store(binary.BigEndian.Uint64(raw))
	}
	if raw, found, err := engine.GetGraphMeta(graphID, metaNextRelID); err != nil {
		return nil, qerrors.Wrap("graph.openGraph", err)
	} else if found && len(raw) == 8 {
		g.nextRelID.Store(binary.BigEndian.Uint64(raw))
	}

	schema, err := loadSchema(engine, graphID)
	if err != nil {
		return nil, err
	}
	g.schema = schema
	return g, nil
}

// NextNodeID allocates the next node id. Sequential-consistency ordering;
// allocations never block and never repeat within a process lifetime.
func (g *Graph) NextNodeID() uint64 { return g.nextNodeID.Add(1) }

// NextRelationshipID allocates the next relationship id.
func (g *Graph) NextRelationshipID() uint64 { return g.nextRelID.Add(1) }

// Checkpoint persists the current id-generator watermarks so a restart
// recovers without reissuing ids (spec §9 "Global state").
func (g *Graph) Checkpoint() error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], g.nextNodeID.Load())
	if err := g.engine.PutGraphMeta(g.graphID, metaNextNodeID, buf[:]); err != nil {
		return qerrors.Wrap("graph.Checkpoint", err)
	}
	binary.BigEndian.PutUint64(buf[:], g.nextRelID.Load())
	if err := g.engine.PutGraphMeta(g.graphID, metaNextRelID, buf[:]); err != nil {
		return qerrors.Wrap("graph.Checkpoint", err)
	}
	return nil
}

// CreateNode allocates an id, checks constraints for every label, writes the
// node and its label/property index entries, and returns it.
func (g *Graph) CreateNode(labels []string, props map[string]property.Value) (*storage.Node, error) {
	if err := g.checkConstraintsFor(labels, props, nil); err != nil {
		return nil, err
	}
	n := &storage.Node{ID: g.NextNodeID(), Labels: labels, Properties: props}
	if err := g.putNodeWithIndexes(n, nil); err != nil {
		return nil, err
	}
	return n, nil
}

// GetNode resolves a node by id.
func (g *Graph) GetNode(nodeID uint64) (*storage.Node, error) {
	return g.engine.GetNode(g.graphID, nodeID)
}

// UpdateNode re-reads the old record, checks constraints for the new
// property set (excluding the node's own id from unique checks), writes the
// new record, and diffs stale label/property index entries away so the
// index reflects only the new record (spec §4.4 "Index maintenance").
func (g *Graph) UpdateNode(nodeID uint64, labels []string, props map[string]property.Value) (*storage.Node, error) {
	old, err := g.engine.GetNode(g.graphID, nodeID)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, qerrors.Wrap("graph.UpdateNode", qerrors.ErrNodeNotFound)
	}
	if err := g.checkConstraintsFor(labels, props, &nodeID); err != nil {
		return nil, err
	}
	n := &storage.Node{ID: nodeID, Labels: labels, Properties: props}
	if err := g.putNodeWithIndexes(n, old); err != nil {
		return nil, err
	}
	return n, nil
}

func (g *Graph) putNodeWithIndexes(n *storage.Node, old *storage.Node) error {
	if err := g.engine.PutNode(g.graphID, n); err != nil {
		return err
	}
	indexed := g.schema.IndexedProperties(n.Labels)
	if old != nil {
		oldIndexed := g.schema.IndexedProperties(old.Labels)
		for key := range oldIndexed {
			oldVal, hadOld := old.Properties[key.Property]
			if !hadOld {
				continue
			}
			newVal, hasNew := n.Properties[key.Property]
			if hasNew && newVal.Equal(oldVal) && n.HasLabel(key.Label) {
				continue
			}
			if err := g.engine.DeletePropertyIndexEntry(g.graphID, key.Label, key.Property, oldVal, n.ID); err != nil {
				return err
			}
		}
	}
	for key := range indexed {
		val, ok := n.Properties[key.Property]
		if !ok || !n.HasLabel(key.Label) {
			continue
		}
		if err := g.engine.PutPropertyIndexEntry(g.graphID, key.Label, key.Property, val, n.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteNode removes a node, refusing if any adjacency entry exists: the
// error reports outgoing/incoming counts so callers can decide whether to
// call DetachDeleteNode instead.
func (g *Graph) DeleteNode(nodeID uint64) error {
	out, err := g.engine.GetOutgoingRelationships(g.graphID, nodeID)
	if err != nil {
		return err
	}
	in, err := g.engine.GetIncomingRelationships(g.graphID, nodeID)
	if err != nil {
		return err
	}
	if len(out) > 0 || len(in) > 0 {
		return qerrors.Wrap("graph.DeleteNode", &qerrors.InvalidOperation{
			Reason: fmt.Sprintf("node %d has %d outgoing and %d incoming relationships", nodeID, len(out), len(in)),
		})
	}
	n, err := g.engine.GetNode(g.graphID, nodeID)
	if err != nil {
		return err
	}
	if n != nil {
		if err := g.removePropertyIndexEntries(n); err != nil {
			return err
		}
	}
	return g.engine.DeleteNode(g.graphID, nodeID)
}

// DetachDeleteNode removes the node's property-index entries, then delegates
// to the storage engine's single-batch cascade, which enumerates both
// adjacency sets and deletes the node with every touching relationship
// (spec §9's required atomic upgrade). The property-index removals are
// separate writes made before that batch.
func (g *Graph) DetachDeleteNode(nodeID uint64) (outgoing, incoming int, err error) {
	n, err := g.engine.GetNode(g.graphID, nodeID)
	if err != nil {
		return 0, 0, err
	}
	if n != nil {
		if err := g.removePropertyIndexEntries(n); err != nil {
			return 0, 0, err
		}
	}
	return g.engine.DetachDeleteNode(g.graphID, nodeID)
}

func (g *Graph) removePropertyIndexEntries(n *storage.Node) error {
	for key := range g.schema.IndexedProperties(n.Labels) {
		val, ok := n.Properties[key.Property]
		if !ok {
			continue
		}
		if err := g.engine.DeletePropertyIndexEntry(g.graphID, key.Label, key.Property, val, n.ID); err != nil {
			return err
		}
	}
	return nil
}

// CreateRelationship validates both endpoints exist, then writes the
// relationship plus adjacency entries atomically.
func (g *Graph) CreateRelationship(relType string, source, target uint64, props map[string]property.Value) (*storage.Relationship, error) {
	src, err := g.engine.GetNode(g.graphID, source)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, qerrors.Wrap("graph.CreateRelationship", fmt.Errorf("%w: source node %d", qerrors.ErrNodeNotFound, source))
	}
	tgt, err := g.engine.GetNode(g.graphID, target)
	if err != nil {
		return nil, err
	}
	if tgt == nil {
		return nil, qerrors.Wrap("graph.CreateRelationship", fmt.Errorf("%w: target node %d", qerrors.ErrNodeNotFound, target))
	}
	r := &storage.Relationship{ID: g.NextRelationshipID(), Type: relType, Source: source, Target: target, Properties: props}
	if err := g.engine.PutRelationship(g.graphID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetRelationship resolves a relationship by id.
func (g *Graph) GetRelationship(relID uint64) (*storage.Relationship, error) {
	return g.engine.GetRelationship(g.graphID, relID)
}

// DeleteRelationship removes a relationship and both its adjacency entries.
func (g *Graph) DeleteRelationship(relID uint64) error {
	return g.engine.DeleteRelationship(g.graphID, relID)
}

// GetRelationships reads adjacency-out, adjacency-in, or both, for nodeID.
func (g *Graph) GetRelationships(nodeID uint64, dir Direction) ([]*storage.Relationship, error) {
	switch dir {
	case Outgoing:
		return g.engine.GetOutgoingRelationships(g.graphID, nodeID)
	case Incoming:
		return g.engine.GetIncomingRelationships(g.graphID, nodeID)
	default:
		out, err := g.engine.GetOutgoingRelationships(g.graphID, nodeID)
		if err != nil {
			return nil, err
		}
		in, err := g.engine.GetIncomingRelationships(g.graphID, nodeID)
		if err != nil {
			return nil, err
		}
		return append(out, in...), nil
	}
}

// GetRelationshipsByType narrows GetRelationships to a single type.
func (g *Graph) GetRelationshipsByType(nodeID uint64, dir Direction, relType string) ([]*storage.Relationship, error) {
	switch dir {
	case Outgoing:
		return g.engine.GetOutgoingRelationshipsByType(g.graphID, nodeID, relType)
	case Incoming:
		return g.engine.GetIncomingRelationshipsByType(g.graphID, nodeID, relType)
	default:
		out, err := g.engine.GetOutgoingRelationshipsByType(g.graphID, nodeID, relType)
		if err != nil {
			return nil, err
		}
		in, err := g.engine.GetIncomingRelationshipsByType(g.graphID, nodeID, relType)
		if err != nil {
			return nil, err
		}
		return append(out, in...), nil
	}
}

// AllNodes lists every node in the graph (query planner's NodeScan with no
// label, spec §4.5).
func (g *Graph) AllNodes() ([]*storage.Node, error) {
	return g.engine.GetAllNodes(g.graphID)
}

// NodesByLabel lists every node carrying label (query planner's labelled
// NodeScan).
func (g *Graph) NodesByLabel(label string) ([]*storage.Node, error) {
	return g.engine.GetNodesByLabel(g.graphID, label)
}

// NodesByProperty resolves the property index for an equality lookup (query
// planner's IndexSeek).
func (g *Graph) NodesByProperty(label, propName string, value property.Value) ([]*storage.Node, error) {
	return g.engine.GetNodesByProperty(g.graphID, label, propName, value)
}

// NodesByPropertyRange resolves the property index for a bounded range scan
// (query planner's IndexScan).
func (g *Graph) NodesByPropertyRange(label, propName string, min, max *property.Value) ([]*storage.Node, error) {
	return g.engine.GetNodesByPropertyRange(g.graphID, label, propName, min, max)
}

// CountByLabel estimates a label's node count for the query planner's cost
// model, without resolving any node record.
func (g *Graph) CountByLabel(label string) (int, error) {
	return g.engine.CountNodesByLabel(g.graphID, label)
}

// CountAll estimates the graph's total node count for the query planner's
// cost model.
func (g *Graph) CountAll() (int, error) {
	return g.engine.CountAllNodes(g.graphID)
}

// GetNeighbors follows adjacency in dir and resolves the opposite endpoint
// of each edge.
func (g *Graph) GetNeighbors(nodeID uint64, dir Direction) ([]*storage.Node, error) {
	rels, err := g.GetRelationships(nodeID, dir)
	if err != nil {
		return nil, err
	}
	out := make([]*storage.Node, 0, len(rels))
	for _, r := range rels {
		other := r.Target
		if r.Target == nodeID {
			other = r.Source
		}
		n, err := g.engine.GetNode(g.graphID, other)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}
