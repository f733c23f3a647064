// Package property implements the tagged-union property value type shared by
// nodes, relationships, and episodes (spec §3.2): null, boolean, integer,
// float, string, list, map, bytes, date, time-of-day, datetime, duration, and
// 2D/3D points. Equality is structural; ordering follows the natural order
// within a kind and compares unequal kinds as equal (stable, undefined).
package property

import (
	"bytes"
	"fmt"
	"math"
	"sort"
)

func float64bits(f float64) uint64 { return math.Float64bits(f) }

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
	KindBytes
	KindDate
	KindTimeOfDay
	KindDateTime
	KindDuration
	KindPoint2D
	KindPoint3D
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTimeOfDay:
		return "time_of_day"
	case KindDateTime:
		return "datetime"
	case KindDuration:
		return "duration"
	case KindPoint2D:
		return "point2d"
	case KindPoint3D:
		return "point3d"
	default:
		return "unknown"
	}
}

// Point2D is a 2-D point with a spatial reference identifier.
type Point2D struct {
	X, Y float64
	SRID int32
}

// Point3D is a 3-D point with a spatial reference identifier.
type Point3D struct {
	X, Y, Z float64
	SRID    int32
}

// Value is the tagged union described by spec §3.2. Exactly one field is
// meaningful for a given Kind; the rest are zero.
type Value struct {
	Kind Kind

	Bool    bool
	Int     int64
	Float   float64
	Str     string
	List    []Value
	Map     map[string]Value
	Bytes   []byte
	Date    int64 // days since epoch
	Time    int64 // ns since midnight
	DateTMs int64 // ms since Unix epoch
	Dur     int64 // ns
	Pt2     Point2D
	Pt3     Point3D
}

func Null() Value                   { return Value{Kind: KindNull} }
func Bool(b bool) Value             { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value             { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value         { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value         { return Value{Kind: KindString, Str: s} }
func List(vs []Value) Value         { return Value{Kind: KindList, List: vs} }
func Map(m map[string]Value) Value  { return Value{Kind: KindMap, Map: m} }
func Bytes(b []byte) Value          { return Value{Kind: KindBytes, Bytes: b} }
func Date(daysSinceEpoch int64) Value { return Value{Kind: KindDate, Date: daysSinceEpoch} }
func TimeOfDay(nsSinceMidnight int64) Value {
	return Value{Kind: KindTimeOfDay, Time: nsSinceMidnight}
}
func DateTime(msSinceEpoch int64) Value { return Value{Kind: KindDateTime, DateTMs: msSinceEpoch} }
func Duration(ns int64) Value           { return Value{Kind: KindDuration, Dur: ns} }
func Point2DValue(x, y float64, srid int32) Value {
	return Value{Kind: KindPoint2D, Pt2: Point2D{X: x, Y: y, SRID: srid}}
}
func Point3DValue(x, y, z float64, srid int32) Value {
	return Value{Kind: KindPoint3D, Pt3: Point3D{X: x, Y: y, Z: z, SRID: srid}}
}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal implements structural equality.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindString:
		return v.Str == o.Str
	case KindBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	case KindDate:
		return v.Date == o.Date
	case KindTimeOfDay:
		return v.Time == o.Time
	case KindDateTime:
		return v.DateTMs == o.DateTMs
	case KindDuration:
		return v.Dur == o.Dur
	case KindPoint2D:
		return v.Pt2 == o.Pt2
	case KindPoint3D:
		return v.Pt3 == o.Pt3
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, mv := range v.Map {
			ov, ok := o.Map[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two values. Cross-kind comparisons return 0 (equal), which
// is stable but semantically undefined, matching spec §3.2. Within a kind,
// integers/floats/strings/booleans use natural ordering; other kinds compare
// as equal since no ordering is specified for them.
func Compare(a, b Value) int {
	if a.Kind != b.Kind {
		return 0
	}
	switch a.Kind {
	case KindInt:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}
	case KindFloat:
		switch {
		case a.Float < b.Float:
			return -1
		case a.Float > b.Float:
			return 1
		default:
			return 0
		}
	case KindString:
		switch {
		case a.Str < b.Str:
			return -1
		case a.Str > b.Str:
			return 1
		default:
			return 0
		}
	case KindBool:
		if a.Bool == b.Bool {
			return 0
		}
		if !a.Bool && b.Bool {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// CanonicalEncode produces the canonical byte encoding used for property
// index hashing and range scans (spec §6): a one-byte kind tag followed by a
// kind-specific payload. Lists and maps recurse with a length prefix; map
// keys are sorted so the encoding is deterministic.
func CanonicalEncode(v Value) []byte {
	var buf bytes.Buffer
	encodeInto(&buf, v)
	return buf.Bytes()
}

func putU32(buf *bytes.Buffer, n uint32) {
	buf.WriteByte(byte(n >> 24))
	buf.WriteByte(byte(n >> 16))
	buf.WriteByte(byte(n >> 8))
	buf.WriteByte(byte(n))
}

func putU64(buf *bytes.Buffer, n uint64) {
	for i := 7; i >= 0; i-- {
		buf.WriteByte(byte(n >> (8 * i)))
	}
}

func putI64(buf *bytes.Buffer, n int64) { putU64(buf, uint64(n)) }

func encodeInto(buf *bytes.Buffer, v Value) {
	buf.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindNull:
	case KindBool:
		if v.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindInt:
		putI64(buf, v.Int)
	case KindFloat:
		putU64(buf, float64bits(v.Float))
	case KindString:
		putU32(buf, uint32(len(v.Str)))
		buf.WriteString(v.Str)
	case KindBytes:
		putU32(buf, uint32(len(v.Bytes)))
		buf.Write(v.Bytes)
	case KindDate:
		putI64(buf, v.Date)
	case KindTimeOfDay:
		putI64(buf, v.Time)
	case KindDateTime:
		putI64(buf, v.DateTMs)
	case KindDuration:
		putI64(buf, v.Dur)
	case KindPoint2D:
		putU64(buf, float64bits(v.Pt2.X))
		putU64(buf, float64bits(v.Pt2.Y))
		putU32(buf, uint32(v.Pt2.SRID))
	case KindPoint3D:
		putU64(buf, float64bits(v.Pt3.X))
		putU64(buf, float64bits(v.Pt3.Y))
		putU64(buf, float64bits(v.Pt3.Z))
		putU32(buf, uint32(v.Pt3.SRID))
	case KindList:
		putU32(buf, uint32(len(v.List)))
		for _, e := range v.List {
			encodeInto(buf, e)
		}
	case KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		putU32(buf, uint32(len(keys)))
		for _, k := range keys {
			putU32(buf, uint32(len(k)))
			buf.WriteString(k)
			encodeInto(buf, v.Map[k])
		}
	}
}

// TypeName returns a human-readable name for error messages.
func TypeName(v Value) string { return v.Kind.String() }

// String formats v for logging/debugging; it is not a parser-facing format.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	default:
		return fmt.Sprintf("%s(...)", v.Kind)
	}
}
