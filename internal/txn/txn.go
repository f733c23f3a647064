// Package txn implements the graph-scoped transaction model of spec §4.3
// (component C): a staged operation log plus read-through node/relationship
// caches, committed as a single atomic batch against internal/storage.
package txn

import (
	"fmt"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/storage"
)

// State is the lifecycle of a Transaction.
type State int

const (
	StateActive State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// nodeSlot is the node-cache's Option<Entity>: Present false with a nil
// Value means "no cached answer yet"; Present true with a nil Value means a
// pending delete.
type nodeSlot struct {
	present bool
	value   *storage.Node
}

type relSlot struct {
	present bool
	value   *storage.Relationship
}

// Transaction stages writes against a single graph and exposes read-your-writes
// via two caches, committing them as one atomic engine batch.
type Transaction struct {
	id      uint64
	graphID uint64
	engine  *storage.Engine
	state   State

	ops      []storage.BatchOp
	nodes    map[uint64]nodeSlot
	rels     map[uint64]relSlot
}

// New starts an active transaction with the given monotonic id, bound to
// graphID, backed by engine.
func New(id, graphID uint64, engine *storage.Engine) *Transaction {
	return &Transaction{
		id:      id,
		graphID: graphID,
		engine:  engine,
		state:   StateActive,
		nodes:   make(map[uint64]nodeSlot),
		rels:    make(map[uint64]relSlot),
	}
}

// ID returns the transaction's monotonic id.
func (t *Transaction) ID() uint64 { return t.id }

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State { return t.state }

func (t *Transaction) requireActive(op string) error {
	if t.state != StateActive {
		return qerrors.Wrap("txn."+op, fmt.Errorf("%w: transaction is %s", qerrors.ErrAborted, t.state))
	}
	return nil
}

// PutNode stages a node write. Visible to subsequent GetNode calls on this
// transaction immediately; nothing reaches the engine until Commit.
func (t *Transaction) PutNode(n *storage.Node) error {
	if err := t.requireActive("PutNode"); err != nil {
		return err
	}
	t.ops = append(t.ops, storage.BatchOp{Kind: storage.OpPutNode, Node: n})
	t.nodes[n.ID] = nodeSlot{present: true, value: n}
	return nil
}

// DeleteNode stages a node deletion, recording a pending-delete marker in
// the cache so GetNode returns nil without touching the engine.
func (t *Transaction) DeleteNode(nodeID uint64) error {
	if err := t.requireActive("DeleteNode"); err != nil {
		return err
	}
	t.ops = append(t.ops, storage.BatchOp{Kind: storage.OpDeleteNode, NodeID: nodeID})
	t.nodes[nodeID] = nodeSlot{present: true, value: nil}
	return nil
}

// GetNode consults the cache first (so it sees this transaction's own
// pending writes and deletes), then falls through to the engine and
// memoises the answer.
func (t *Transaction) GetNode(nodeID uint64) (*storage.Node, error) {
	if slot, ok := t.nodes[nodeID]; ok {
		return slot.value, nil
	}
	n, err := t.engine.GetNode(t.graphID, nodeID)
	if err != nil {
		return nil, err
	}
	t.nodes[nodeID] = nodeSlot{present: true, value: n}
	return n, nil
}

// PutRelationship stages a relationship write.
func (t *Transaction) PutRelationship(r *storage.Relationship) error {
	if err := t.requireActive("PutRelationship"); err != nil {
		return err
	}
	t.ops = append(t.ops, storage.BatchOp{Kind: storage.OpPutRelationship, Relationship: r})
	t.rels[r.ID] = relSlot{present: true, value: r}
	return nil
}

// DeleteRelationship stages a relationship deletion.
func (t *Transaction) DeleteRelationship(relID uint64) error {
	if err := t.requireActive("DeleteRelationship"); err != nil {
		return err
	}
	t.ops = append(t.ops, storage.BatchOp{Kind: storage.OpDeleteRelationship, RelID: relID})
	t.rels[relID] = relSlot{present: true, value: nil}
	return nil
}

// GetRelationship consults the cache, then the engine, memoising the result.
func (t *Transaction) GetRelationship(relID uint64) (*storage.Relationship, error) {
	if slot, ok := t.rels[relID]; ok {
		return slot.value, nil
	}
	r, err := t.engine.GetRelationship(t.graphID, relID)
	if err != nil {
		return nil, err
	}
	t.rels[relID] = relSlot{present: true, value: r}
	return r, nil
}

// Commit assembles every staged operation into a single atomic engine batch
// and submits it. This is the upgraded behaviour spec §9 requires: either
// every staged operation lands, or (on failure) none of them do — unlike the
// historical "replay in order, leave a partial prefix on failure" default.
// A transaction that fails to commit ends in rolled-back state and must not
// be reused.
func (t *Transaction) Commit() error {
	if err := t.requireActive("Commit"); err != nil {
		return err
	}
	if len(t.ops) == 0 {
		t.state = StateCommitted
		return nil
	}
	if err := t.engine.ApplyBatch(t.graphID, t.ops); err != nil {
		t.state = StateRolledBack
		t.ops = nil
		t.nodes = make(map[uint64]nodeSlot)
		t.rels = make(map[uint64]relSlot)
		return qerrors.Wrap("txn.Commit", err)
	}
	t.state = StateCommitted
	return nil
}

// Rollback discards every staged operation and cached answer. The
// transaction becomes rolled-back and must not be reused.
func (t *Transaction) Rollback() error {
	if t.state != StateActive {
		return nil
	}
	t.ops = nil
	t.nodes = make(map[uint64]nodeSlot)
	t.rels = make(map[uint64]relSlot)
	t.state = StateRolledBack
	return nil
}
