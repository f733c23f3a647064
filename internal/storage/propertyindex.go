package storage

import (
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"

	"github.com/qilbeedb/qilbeedb/internal/keycodec"
	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// PutPropertyIndexEntry installs an index entry for (label, propName,
// value) -> entityID in its own atomic write. The graph layer calls it
// separately from the node's primary-record write; tests call it directly.
func (e *Engine) PutPropertyIndexEntry(graphID uint64, label, propName string, value property.Value, entityID uint64) error {
	key := keycodec.PropertyIndexKey(graphID, label, propName, property.Hash(value), entityID)
	return e.runAtomic(func(txn *badger.Txn) error {
		if err := txn.Set(key, property.CanonicalEncode(value)); err != nil {
			return &storageIOErr{err: err}
		}
		return nil
	})
}

// DeletePropertyIndexEntry removes a single index entry.
func (e *Engine) DeletePropertyIndexEntry(graphID uint64, label, propName string, value property.Value, entityID uint64) error {
	key := keycodec.PropertyIndexKey(graphID, label, propName, property.Hash(value), entityID)
	return e.runAtomic(func(txn *badger.Txn) error {
		if err := txn.Delete(key); err != nil {
			return &storageIOErr{err: err}
		}
		return nil
	})
}

// GetNodesByProperty resolves nodes where (label, propName) == value: hash
// match followed by resolve-and-compare to eliminate hash collisions (spec
// §4.1/§4.2).
func (e *Engine) GetNodesByProperty(graphID uint64, label, propName string, value property.Value) ([]*Node, error) {
	prefix := keycodec.PropertyIndexHashPrefix(graphID, label, propName, property.Hash(value))
	var ids []uint64
	err := e.scanPrefix(prefix, true, func(key, val []byte) error {
		stored, decErr := decodeCanonical(val)
		if decErr != nil {
			return decErr
		}
		if !stored.Equal(value) {
			return nil // hash collision; not a real match
		}
		id, err := keycodec.DecodeEntityIDSuffix(key)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.GetNodesByProperty", err)
	}
	return e.resolveNodeIDs(graphID, ids)
}

// GetNodesWithProperty returns every node that has any value set for
// (label, propName), via a prefix scan with duplicate entity ids collapsed.
func (e *Engine) GetNodesWithProperty(graphID uint64, label, propName string) ([]*Node, error) {
	prefix := keycodec.PropertyIndexPrefix(graphID, label, propName)
	seen := map[uint64]bool{}
	var ids []uint64
	err := e.scanPrefix(prefix, false, func(key, _ []byte) error {
		id, err := keycodec.DecodeEntityIDSuffix(key)
		if err != nil {
			return err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.GetNodesWithProperty", err)
	}
	return e.resolveNodeIDs(graphID, ids)
}

// GetNodesByPropertyRange returns nodes where min <= value <= max (bounds
// optional; nil means unbounded on that side), by scanning every entry under
// (label, propName) and comparing the decoded canonical values.
// Heterogeneous-type ranges are rejected explicitly
// (spec §9 open question: "implementers should reject mixed-type ranges").
func (e *Engine) GetNodesByPropertyRange(graphID uint64, label, propName string, min, max *property.Value) ([]*Node, error) {
	if min != nil && max != nil && min.Kind != max.Kind {
		return nil, qerrors.Wrap("storage.GetNodesByPropertyRange",
			fmt.Errorf("%w: range bounds have different kinds (%s vs %s)", qerrors.ErrValidation, min.Kind, max.Kind))
	}
	prefix := keycodec.PropertyIndexPrefix(graphID, label, propName)

	// valueHash does not preserve the value's natural order, so a range scan
	// must walk every entry under (label, propName) and filter by comparing
	// the decoded canonical value, rather than seeking within the hash-keyed
	// key space.
	var ids []uint64
	err := e.scanPrefix(prefix, true, func(key, val []byte) error {
		stored, decErr := decodeCanonical(val)
		if decErr != nil {
			return decErr
		}
		if min != nil && stored.Kind != min.Kind {
			return nil
		}
		if max != nil && stored.Kind != max.Kind {
			return nil
		}
		if min != nil && property.Compare(stored, *min) < 0 {
			return nil
		}
		if max != nil && property.Compare(stored, *max) > 0 {
			return nil
		}
		id, err := keycodec.DecodeEntityIDSuffix(key)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.GetNodesByPropertyRange", err)
	}
	return e.resolveNodeIDs(graphID, ids)
}

func (e *Engine) resolveNodeIDs(graphID uint64, ids []uint64) ([]*Node, error) {
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		n, err := e.GetNode(graphID, id)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// decodeCanonical parses a property-index value payload (the canonical
// encoding of the indexed value) back into a property.Value for comparison.
// It mirrors property.CanonicalEncode's layout directly rather than going
// through JSON, since index entries store the canonical form, not the wire
// form.
func decodeCanonical(data []byte) (property.Value, error) {
	v, _, err := decodeCanonicalAt(data)
	return v, err
}

func decodeCanonicalAt(data []byte) (property.Value, int, error) {
	if len(data) == 0 {
		return property.Value{}, 0, fmt.Errorf("%w: empty canonical payload", qerrors.ErrCorruption)
	}
	kind := property.Kind(data[0])
	pos := 1
	readU32 := func() (uint32, error) {
		if pos+4 > len(data) {
			return 0, fmt.Errorf("%w: truncated u32", qerrors.ErrCorruption)
		}
		v := uint32(data[pos])<<24 | uint32(data[pos+1])<<16 | uint32(data[pos+2])<<8 | uint32(data[pos+3])
		pos += 4
		return v, nil
	}
	readU64 := func() (uint64, error) {
		if pos+8 > len(data) {
			return 0, fmt.Errorf("%w: truncated u64", qerrors.ErrCorruption)
		}
		var v uint64
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(data[pos+i])
		}
		pos += 8
		return v, nil
	}
	switch kind {
	case property.KindNull:
		return property.Null(), pos, nil
	case property.KindBool:
		if pos+1 > len(data) {
			return property.Value{}, 0, fmt.Errorf("%w: truncated bool", qerrors.ErrCorruption)
		}
		b := data[pos] != 0
		pos++
		return property.Bool(b), pos, nil
	case property.KindInt:
		u, err := readU64()
		if err != nil {
			return property.Value{}, 0, err
		}
		return property.Int(int64(u)), pos, nil
	case property.KindFloat:
		u, err := readU64()
		if err != nil {
			return property.Value{}, 0, err
		}
		return property.Float(bitsToFloat(u)), pos, nil
	case property.KindString:
		n, err := readU32()
		if err != nil {
			return property.Value{}, 0, err
		}
		if pos+int(n) > len(data) {
			return property.Value{}, 0, fmt.Errorf("%w: truncated string", qerrors.ErrCorruption)
		}
		s := string(data[pos : pos+int(n)])
		pos += int(n)
		return property.String(s), pos, nil
	case property.KindDate:
		u, err := readU64()
		if err != nil {
			return property.Value{}, 0, err
		}
		return property.Date(int64(u)), pos, nil
	case property.KindTimeOfDay:
		u, err := readU64()
		if err != nil {
			return property.Value{}, 0, err
		}
		return property.TimeOfDay(int64(u)), pos, nil
	case property.KindDateTime:
		u, err := readU64()
		if err != nil {
			return property.Value{}, 0, err
		}
		return property.DateTime(int64(u)), pos, nil
	case property.KindDuration:
		u, err := readU64()
		if err != nil {
			return property.Value{}, 0, err
		}
		return property.Duration(int64(u)), pos, nil
	default:
		// Bytes, list, map, and points are never indexed/range-scanned in
		// practice; the property layer still encodes them canonically for
		// hashing, but range comparison over them is not defined.
		return property.Value{Kind: kind}, pos, nil
	}
}

func bitsToFloat(u uint64) float64 {
	return math.Float64frombits(u)
}
