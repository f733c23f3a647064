package storage

import "github.com/dgraph-io/badger/v4"

// OpKind tags a staged operation in a batch assembled by internal/txn's
// Commit. It mirrors the four staged-operation kinds spec §4.3 names.
type OpKind int

const (
	OpPutNode OpKind = iota
	OpDeleteNode
	OpPutRelationship
	OpDeleteRelationship
)

// BatchOp is one staged write, carrying only the fields its kind needs.
type BatchOp struct {
	Kind         OpKind
	Node         *Node
	NodeID       uint64
	Relationship *Relationship
	RelID        uint64
}

// ApplyBatch commits every op in ops as a single atomic transaction, in
// order. This is the primitive the transaction layer's upgraded Commit (spec
// §9: "assemble one engine batch spanning every staged operation") is built
// on: either the whole staged log lands, or none of it does.
func (e *Engine) ApplyBatch(graphID uint64, ops []BatchOp) error {
	return e.runAtomic(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case OpPutNode:
				err = putNodeTxn(txn, graphID, op.Node)
			case OpDeleteNode:
				err = deleteNodeTxn(txn, graphID, op.NodeID)
			case OpPutRelationship:
				err = putRelationshipTxn(txn, graphID, op.Relationship)
			case OpDeleteRelationship:
				err = deleteRelationshipTxn(txn, graphID, op.RelID)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
