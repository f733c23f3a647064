package hnsw

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// magic identifies the serialized format; "QHNSW1\x00\x00" padded to 8 bytes.
var magic = [8]byte{'Q', 'H', 'N', 'S', 'W', '1', 0, 0}

// Serialize dumps the entire index (config, nodes, entry point, current max
// level) as a single byte buffer, grounded in the header/entries layout
// convention other vector-index formats in the ecosystem use.
func (idx *Index) Serialize() ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU32(&buf, uint32(idx.cfg.Dimension))
	writeU32(&buf, uint32(idx.cfg.M))
	writeU32(&buf, uint32(idx.cfg.EfConstruction))
	writeU32(&buf, uint32(idx.cfg.EfSearch))
	writeU32(&buf, uint32(idx.cfg.MaxLevel))
	writeU64(&buf, math.Float64bits(idx.cfg.ML))
	writeU32(&buf, uint32(idx.cfg.Metric))
	writeU64(&buf, idx.cfg.Seed)

	if idx.hasEntry {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	writeU64(&buf, idx.entryPoint)
	writeU32(&buf, uint32(idx.currentMax))
	writeU32(&buf, uint32(len(idx.nodes)))

	for id, n := range idx.nodes {
		writeU64(&buf, id)
		writeU32(&buf, uint32(n.level))
		for _, v := range n.vector {
			writeU32(&buf, math.Float32bits(v))
		}
		for lc := 0; lc <= n.level; lc++ {
			neighbors := n.neighbors[lc]
			writeU32(&buf, uint32(len(neighbors)))
			for _, nb := range neighbors {
				writeU64(&buf, nb)
			}
		}
	}
	return buf.Bytes(), nil
}

// Deserialize reconstructs an index behaviourally equivalent to the one
// Serialize dumped.
func Deserialize(data []byte) (*Index, error) {
	r := bytes.NewReader(data)
	var gotMagic [8]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil || gotMagic != magic {
		return nil, qerrors.Wrap("hnsw.Deserialize", fmt.Errorf("%w: bad magic", qerrors.ErrCorruption))
	}

	cfg := Config{}
	dim, err := readU32(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	cfg.Dimension = int(dim)
	m, err := readU32(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	cfg.M = int(m)
	efc, err := readU32(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	cfg.EfConstruction = int(efc)
	efs, err := readU32(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	cfg.EfSearch = int(efs)
	maxLevel, err := readU32(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	cfg.MaxLevel = int(maxLevel)
	mlBits, err := readU64(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	cfg.ML = math.Float64frombits(mlBits)
	metric, err := readU32(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	cfg.Metric = Metric(metric)
	seed, err := readU64(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	cfg.Seed = seed

	idx := New(cfg)

	hasEntryByte, err := r.ReadByte()
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	idx.hasEntry = hasEntryByte != 0
	entryPoint, err := readU64(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	idx.entryPoint = entryPoint
	currentMax, err := readU32(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}
	idx.currentMax = int(currentMax)
	nodeCount, err := readU32(r)
	if err != nil {
		return nil, wrapCorrupt(err)
	}

	for i := uint32(0); i < nodeCount; i++ {
		id, err := readU64(r)
		if err != nil {
			return nil, wrapCorrupt(err)
		}
		level, err := readU32(r)
		if err != nil {
			return nil, wrapCorrupt(err)
		}
		n := &node{id: id, level: int(level), vector: make([]float32, cfg.Dimension), neighbors: make([][]uint64, int(level)+1)}
		for j := range n.vector {
			bits, err := readU32(r)
			if err != nil {
				return nil, wrapCorrupt(err)
			}
			n.vector[j] = math.Float32frombits(bits)
		}
		for lc := 0; lc <= int(level); lc++ {
			count, err := readU32(r)
			if err != nil {
				return nil, wrapCorrupt(err)
			}
			neighbors := make([]uint64, count)
			for k := range neighbors {
				nb, err := readU64(r)
				if err != nil {
					return nil, wrapCorrupt(err)
				}
				neighbors[k] = nb
			}
			n.neighbors[lc] = neighbors
		}
		idx.nodes[id] = n
	}
	return idx, nil
}

func wrapCorrupt(err error) error {
	return qerrors.Wrap("hnsw.Deserialize", fmt.Errorf("%w: %v", qerrors.ErrCorruption, err))
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}
