package graph

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/storage"
)

const (
	schemaKindIndex      = "index"
	schemaKindConstraint = "constraint"
)

// ConstraintKind names the three constraint flavours spec §4.4 describes.
type ConstraintKind string

const (
	ConstraintUnique   ConstraintKind = "unique"
	ConstraintExists   ConstraintKind = "exists"
	ConstraintNodeKey  ConstraintKind = "node_key"
)

// Constraint binds a kind to a label and the property (or properties, for
// node_key) it governs.
type Constraint struct {
	Kind       ConstraintKind `json:"kind"`
	Label      string         `json:"label"`
	Properties []string       `json:"properties"`
}

func (c Constraint) name() string {
	return fmt.Sprintf("%s:%s:%v", c.Kind, c.Label, c.Properties)
}

// IndexKey identifies a declared property index by (label, property).
type IndexKey struct {
	Label    string
	Property string
}

func (k IndexKey) name() string { return k.Label + ":" + k.Property }

// Schema is a graph's in-memory index/constraint catalogue, backed by the
// storage engine's schema family for durability across restarts. It follows
// the same many-reader/single-writer discipline as the graph catalogue
// (spec §5): mutation collects the new state, persists it, then swaps it in.
type Schema struct {
	engine  *storage.Engine
	graphID uint64

	mu          sync.RWMutex
	indexes     map[IndexKey]bool
	constraints []Constraint
}

func loadSchema(engine *storage.Engine, graphID uint64) (*Schema, error) {
	s := &Schema{engine: engine, graphID: graphID, indexes: make(map[IndexKey]bool)}
	err := engine.ScanSchema(graphID, func(kind, name string, value []byte) error {
		switch kind {
		case schemaKindIndex:
			var k IndexKey
			if err := json.Unmarshal(value, &k); err != nil {
				return qerrors.Wrap("graph.loadSchema", fmt.Errorf("%w: %v", qerrors.ErrCorruption, err))
			}
			s.indexes[k] = true
		case schemaKindConstraint:
			var c Constraint
			if err := json.Unmarshal(value, &c); err != nil {
				return qerrors.Wrap("graph.loadSchema", fmt.Errorf("%w: %v", qerrors.ErrCorruption, err))
			}
			s.constraints = append(s.constraints, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// AddIndex declares (label, property) as indexed: future node creates and
// updates will maintain property-index entries for it.
func (s *Schema) AddIndex(label, property string) error {
	k := IndexKey{Label: label, Property: property}
	raw, err := json.Marshal(k)
	if err != nil {
		return qerrors.Wrap("graph.AddIndex", err)
	}
	if err := s.engine.PutSchemaEntry(s.graphID, schemaKindIndex, k.name(), raw); err != nil {
		return err
	}
	s.mu.Lock()
	s.indexes[k] = true
	s.mu.Unlock()
	return nil
}

// RemoveIndex un-declares (label, property). Existing index entries are not
// swept; they simply stop being maintained going forward.
func (s *Schema) RemoveIndex(label, property string) error {
	k := IndexKey{Label: label, Property: property}
	if err := s.engine.DeleteSchemaEntry(s.graphID, schemaKindIndex, k.name()); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.indexes, k)
	s.mu.Unlock()
	return nil
}

// HasIndex reports whether (label, property) is declared indexed.
func (s *Schema) HasIndex(label, property string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexes[IndexKey{Label: label, Property: property}]
}

// IndexedProperties returns the set of (label, property) index keys
// applicable to a node carrying the given labels.
func (s *Schema) IndexedProperties(labels []string) map[IndexKey]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[IndexKey]struct{})
	labelSet := make(map[string]bool, len(labels))
	for _, l := range labels {
		labelSet[l] = true
	}
	for k := range s.indexes {
		if labelSet[k.Label] {
			out[k] = struct{}{}
		}
	}
	return out
}

// AddConstraint declares a new constraint.
func (s *Schema) AddConstraint(c Constraint) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return qerrors.Wrap("graph.AddConstraint", err)
	}
	if err := s.engine.PutSchemaEntry(s.graphID, schemaKindConstraint, c.name(), raw); err != nil {
		return err
	}
	s.mu.Lock()
	s.constraints = append(s.constraints, c)
	s.mu.Unlock()
	return nil
}

// Constraints returns a snapshot of the declared constraints.
func (s *Schema) Constraints() []Constraint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Constraint(nil), s.constraints...)
}

// checkConstraintsFor enumerates every constraint whose label is among labels
// and validates props against it. excludeID, when non-nil, is the node's
// own id (so updates don't trip a unique constraint against themselves).
func (g *Graph) checkConstraintsFor(labels []string, props map[string]property.Value, excludeID *uint64) error {
	labelSet := make(map[string]bool, len(labels))
	for _, l := range labels {
		labelSet[l] = true
	}
	for _, c := range g.schema.Constraints() {
		if !labelSet[c.Label] {
			continue
		}
		switch c.Kind {
		case ConstraintExists:
			if _, ok := props[c.Properties[0]]; !ok {
				return qerrors.Wrap("graph.CheckConstraints", &qerrors.ExistsViolation{Label: c.Label, Property: c.Properties[0]})
			}
		case ConstraintUnique:
			prop := c.Properties[0]
			val, ok := props[prop]
			if !ok {
				continue
			}
			matches, err := g.engine.GetNodesByProperty(g.graphID, c.Label, prop, val)
			if err != nil {
				return err
			}
			for _, m := range matches {
				if excludeID == nil || m.ID != *excludeID {
					return qerrors.Wrap("graph.CheckConstraints", &qerrors.UniqueViolation{Label: c.Label, Property: prop})
				}
			}
		case ConstraintNodeKey:
			for _, prop := range c.Properties {
				if _, ok := props[prop]; !ok {
					return qerrors.Wrap("graph.CheckConstraints", &qerrors.NodeKeyViolation{Label: c.Label, Properties: c.Properties})
				}
			}
		}
	}
	return nil
}
