package storage

import (
	"encoding/json"
	"fmt"

	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// wireNode/wireRelationship are the JSON-serializable shapes written to the
// node/relationship families. Using encoding/json matches the teacher's
// pervasive use of the standard library's JSON package for all persistence
// (pkg/memory/postgres/*.go) rather than a binary codec.
type wireNode struct {
	ID                uint64                     `json:"id"`
	Labels            []string                   `json:"labels"`
	Properties        map[string]property.Value  `json:"properties"`
	EventTimeMs       int64                      `json:"event_time_ms"`
	TransactionTimeMs int64                      `json:"transaction_time_ms"`
}

type wireRelationship struct {
	ID                uint64                    `json:"id"`
	Type              string                    `json:"type"`
	Source            uint64                    `json:"source"`
	Target            uint64                    `json:"target"`
	Properties        map[string]property.Value `json:"properties"`
	EventTimeMs       int64                     `json:"event_time_ms"`
	TransactionTimeMs int64                     `json:"transaction_time_ms"`
}

func encodeNode(n *Node) ([]byte, error) {
	w := wireNode{
		ID: n.ID, Labels: n.Labels, Properties: n.Properties,
		EventTimeMs: n.EventTimeMs, TransactionTimeMs: n.TransactionTimeMs,
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%w: encode node: %v", qerrors.ErrSerialization, err)
	}
	return data, nil
}

func decodeNode(data []byte) (*Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode node: %v", qerrors.ErrCorruption, err)
	}
	return &Node{
		ID: w.ID, Labels: w.Labels, Properties: w.Properties,
		EventTimeMs: w.EventTimeMs, TransactionTimeMs: w.TransactionTimeMs,
	}, nil
}

func encodeRelationship(r *Relationship) ([]byte, error) {
	w := wireRelationship{
		ID: r.ID, Type: r.Type, Source: r.Source, Target: r.Target,
		Properties: r.Properties, EventTimeMs: r.EventTimeMs, TransactionTimeMs: r.TransactionTimeMs,
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%w: encode relationship: %v", qerrors.ErrSerialization, err)
	}
	return data, nil
}

func decodeRelationship(data []byte) (*Relationship, error) {
	var w wireRelationship
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode relationship: %v", qerrors.ErrCorruption, err)
	}
	return &Relationship{
		ID: w.ID, Type: w.Type, Source: w.Source, Target: w.Target,
		Properties: w.Properties, EventTimeMs: w.EventTimeMs, TransactionTimeMs: w.TransactionTimeMs,
	}, nil
}
