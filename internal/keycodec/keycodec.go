// Package keycodec builds and decodes the bit-exact binary keys described in
// spec §4.1. Every key starts with a one-byte family prefix followed by
// typed, length-packed fields: u8 raw, u64/i64 big-endian, and strings
// prefixed by a 2-byte big-endian length. Big-endian encoding is chosen so
// lexicographic byte order matches numeric order, which is what prefix scans
// rely on.
package keycodec

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Family is the one-byte prefix identifying a key's column family.
type Family byte

const (
	FamilyNode         Family = 0x01
	FamilyRelationship Family = 0x02
	FamilyLabelIndex   Family = 0x03
	FamilyAdjacencyOut Family = 0x04
	FamilyAdjacencyIn  Family = 0x05
	FamilyPropertyIndex Family = 0x06
	FamilySchema       Family = 0x07
	FamilyMeta         Family = 0x08
	FamilyEpisode      Family = 0x10
	FamilyEpisodeIndex Family = 0x11
)

// GraphID deterministically derives a graph's 64-bit identifier from its
// name using XXH3 (spec §3.1). Collisions between distinct graph names are a
// configuration error the caller must avoid by choosing distinct names.
func GraphID(name string) uint64 {
	return xxh3.HashString(name)
}

// Builder accumulates typed fields into a key buffer.
type Builder struct {
	buf []byte
}

// NewBuilder starts a key with the given family prefix.
func NewBuilder(f Family) *Builder {
	b := &Builder{buf: make([]byte, 0, 32)}
	b.buf = append(b.buf, byte(f))
	return b
}

func (b *Builder) U8(v uint8) *Builder {
	b.buf = append(b.buf, v)
	return b
}

func (b *Builder) U64(v uint64) *Builder {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return b
}

func (b *Builder) I64(v int64) *Builder {
	return b.U64(uint64(v))
}

func (b *Builder) Raw(p []byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

func (b *Builder) Str(s string) *Builder {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(len(s)))
	b.buf = append(b.buf, tmp[:]...)
	b.buf = append(b.buf, s...)
	return b
}

// Bytes returns the accumulated key. The Builder must not be reused after
// calling Bytes.
func (b *Builder) Bytes() []byte { return b.buf }

// Reader decodes typed fields from a key buffer in the order they were
// written.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps a raw key for decoding, skipping the leading family byte
// (callers typically check it before constructing a Reader).
func NewReader(key []byte) *Reader {
	return &Reader{buf: key, pos: 1}
}

func (r *Reader) Family() Family {
	if len(r.buf) == 0 {
		return 0
	}
	return Family(r.buf[0])
}

func (r *Reader) U8() (uint8, error) {
	if r.pos+1 > len(r.buf) {
		return 0, fmt.Errorf("keycodec: u8 out of range at %d", r.pos)
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) U64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, fmt.Errorf("keycodec: u64 out of range at %d", r.pos)
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

func (r *Reader) Raw(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("keycodec: raw(%d) out of range at %d", n, r.pos)
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *Reader) Str() (string, error) {
	if r.pos+2 > len(r.buf) {
		return "", fmt.Errorf("keycodec: str length out of range at %d", r.pos)
	}
	n := int(binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2]))
	r.pos += 2
	b, err := r.Raw(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Remaining reports whether the reader has unconsumed bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// --- Convenience constructors for each family's key composition ---

func NodeKey(graphID, nodeID uint64) []byte {
	return NewBuilder(FamilyNode).U64(graphID).U64(nodeID).Bytes()
}

func NodePrefix(graphID uint64) []byte {
	return NewBuilder(FamilyNode).U64(graphID).Bytes()
}

func RelationshipKey(graphID, relID uint64) []byte {
	return NewBuilder(FamilyRelationship).U64(graphID).U64(relID).Bytes()
}

func RelationshipPrefix(graphID uint64) []byte {
	return NewBuilder(FamilyRelationship).U64(graphID).Bytes()
}

func LabelIndexKey(graphID uint64, label string, nodeID uint64) []byte {
	return NewBuilder(FamilyLabelIndex).U64(graphID).Str(label).U64(nodeID).Bytes()
}

func LabelIndexPrefix(graphID uint64, label string) []byte {
	return NewBuilder(FamilyLabelIndex).U64(graphID).Str(label).Bytes()
}

func LabelIndexGraphPrefix(graphID uint64) []byte {
	return NewBuilder(FamilyLabelIndex).U64(graphID).Bytes()
}

func AdjacencyOutGraphPrefix(graphID uint64) []byte {
	return NewBuilder(FamilyAdjacencyOut).U64(graphID).Bytes()
}

func AdjacencyInGraphPrefix(graphID uint64) []byte {
	return NewBuilder(FamilyAdjacencyIn).U64(graphID).Bytes()
}

func PropertyIndexGraphPrefix(graphID uint64) []byte {
	return NewBuilder(FamilyPropertyIndex).U64(graphID).Bytes()
}

func AdjacencyOutKey(graphID, sourceID uint64, relType string, relID uint64) []byte {
	return NewBuilder(FamilyAdjacencyOut).U64(graphID).U64(sourceID).Str(relType).U64(relID).Bytes()
}

func AdjacencyOutNodePrefix(graphID, sourceID uint64) []byte {
	return NewBuilder(FamilyAdjacencyOut).U64(graphID).U64(sourceID).Bytes()
}

func AdjacencyOutTypePrefix(graphID, sourceID uint64, relType string) []byte {
	return NewBuilder(FamilyAdjacencyOut).U64(graphID).U64(sourceID).Str(relType).Bytes()
}

func AdjacencyInKey(graphID, targetID uint64, relType string, relID uint64) []byte {
	return NewBuilder(FamilyAdjacencyIn).U64(graphID).U64(targetID).Str(relType).U64(relID).Bytes()
}

func AdjacencyInNodePrefix(graphID, targetID uint64) []byte {
	return NewBuilder(FamilyAdjacencyIn).U64(graphID).U64(targetID).Bytes()
}

func AdjacencyInTypePrefix(graphID, targetID uint64, relType string) []byte {
	return NewBuilder(FamilyAdjacencyIn).U64(graphID).U64(targetID).Str(relType).Bytes()
}

func PropertyIndexKey(graphID uint64, label, propName string, valueHash, entityID uint64) []byte {
	return NewBuilder(FamilyPropertyIndex).U64(graphID).Str(label).Str(propName).U64(valueHash).U64(entityID).Bytes()
}

func PropertyIndexHashPrefix(graphID uint64, label, propName string, valueHash uint64) []byte {
	return NewBuilder(FamilyPropertyIndex).U64(graphID).Str(label).Str(propName).U64(valueHash).Bytes()
}

func PropertyIndexPrefix(graphID uint64, label, propName string) []byte {
	return NewBuilder(FamilyPropertyIndex).U64(graphID).Str(label).Str(propName).Bytes()
}

func SchemaKey(graphID uint64, kind, name string) []byte {
	return NewBuilder(FamilySchema).U64(graphID).Str(kind).Str(name).Bytes()
}

func SchemaGraphPrefix(graphID uint64) []byte {
	return NewBuilder(FamilySchema).U64(graphID).Bytes()
}

// MetaKey builds a plain (database-wide) meta key.
func MetaKey(key string) []byte {
	return NewBuilder(FamilyMeta).Str(key).Bytes()
}

// GraphMetaKey builds a per-graph meta key.
func GraphMetaKey(graphID uint64, key string) []byte {
	return NewBuilder(FamilyMeta).U64(graphID).Str(key).Bytes()
}

func EpisodeKey(graphID uint64, agentID string, eventTimeMs int64, episodeID [16]byte) []byte {
	return NewBuilder(FamilyEpisode).U64(graphID).Str(agentID).I64(eventTimeMs).Raw(episodeID[:]).Bytes()
}

func EpisodeAgentPrefix(graphID uint64, agentID string) []byte {
	return NewBuilder(FamilyEpisode).U64(graphID).Str(agentID).Bytes()
}

func EpisodeGraphPrefix(graphID uint64) []byte {
	return NewBuilder(FamilyEpisode).U64(graphID).Bytes()
}

// EpisodeIndexKey builds the secondary episodeId -> (agentId, eventTimeMs)
// lookup entry that lets GetEpisodeByID find an episode's primary key
// without knowing its agent or event-time up front.
func EpisodeIndexKey(graphID uint64, episodeID [16]byte) []byte {
	return NewBuilder(FamilyEpisodeIndex).U64(graphID).Raw(episodeID[:]).Bytes()
}

func EpisodeIndexGraphPrefix(graphID uint64) []byte {
	return NewBuilder(FamilyEpisodeIndex).U64(graphID).Bytes()
}

// DecodeEntityIDSuffix reads the trailing u64 entity id off an index key,
// used by the two-level lookup pattern (index key -> entity id -> primary
// record) described in spec §4.2.
func DecodeEntityIDSuffix(key []byte) (uint64, error) {
	if len(key) < 8 {
		return 0, fmt.Errorf("keycodec: key too short for entity id suffix")
	}
	return binary.BigEndian.Uint64(key[len(key)-8:]), nil
}
