package property

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// jsonValue is the on-the-wire shape used to persist a Value: a kind tag plus
// exactly the field(s) relevant to that kind. Used for primary-record
// serialization in the storage engine (spec §6 round-trip requirement).
type jsonValue struct {
	K Kind              `json:"k"`
	B *bool             `json:"b,omitempty"`
	I *int64            `json:"i,omitempty"`
	F *float64          `json:"f,omitempty"`
	S *string           `json:"s,omitempty"`
	L []jsonValue       `json:"l,omitempty"`
	M map[string]jsonValue `json:"m,omitempty"`
	Bytes *string       `json:"by,omitempty"`
	Pt2X    *float64    `json:"x,omitempty"`
	Pt2Y    *float64    `json:"y,omitempty"`
	Pt2SRID *int32      `json:"srid,omitempty"`
	Pt3Z    *float64    `json:"z,omitempty"`
}

func toJSONValue(v Value) jsonValue {
	jv := jsonValue{K: v.Kind}
	switch v.Kind {
	case KindBool:
		jv.B = &v.Bool
	case KindInt:
		jv.I = &v.Int
	case KindFloat:
		jv.F = &v.Float
	case KindString:
		jv.S = &v.Str
	case KindBytes:
		s := base64.StdEncoding.EncodeToString(v.Bytes)
		jv.Bytes = &s
	case KindDate:
		jv.I = &v.Date
	case KindTimeOfDay:
		jv.I = &v.Time
	case KindDateTime:
		jv.I = &v.DateTMs
	case KindDuration:
		jv.I = &v.Dur
	case KindPoint2D:
		jv.Pt2X, jv.Pt2Y = &v.Pt2.X, &v.Pt2.Y
		srid := v.Pt2.SRID
		jv.Pt2SRID = &srid
	case KindPoint3D:
		jv.Pt2X, jv.Pt2Y, jv.Pt3Z = &v.Pt3.X, &v.Pt3.Y, &v.Pt3.Z
		srid := v.Pt3.SRID
		jv.Pt2SRID = &srid
	case KindList:
		jv.L = make([]jsonValue, len(v.List))
		for i, e := range v.List {
			jv.L[i] = toJSONValue(e)
		}
	case KindMap:
		jv.M = make(map[string]jsonValue, len(v.Map))
		for k, e := range v.Map {
			jv.M[k] = toJSONValue(e)
		}
	}
	return jv
}

func fromJSONValue(jv jsonValue) (Value, error) {
	switch jv.K {
	case KindNull:
		return Null(), nil
	case KindBool:
		if jv.B == nil {
			return Value{}, fmt.Errorf("property: missing bool payload")
		}
		return Bool(*jv.B), nil
	case KindInt:
		if jv.I == nil {
			return Value{}, fmt.Errorf("property: missing int payload")
		}
		return Int(*jv.I), nil
	case KindFloat:
		if jv.F == nil {
			return Value{}, fmt.Errorf("property: missing float payload")
		}
		return Float(*jv.F), nil
	case KindString:
		if jv.S == nil {
			return Value{}, fmt.Errorf("property: missing string payload")
		}
		return String(*jv.S), nil
	case KindBytes:
		if jv.Bytes == nil {
			return Value{}, fmt.Errorf("property: missing bytes payload")
		}
		b, err := base64.StdEncoding.DecodeString(*jv.Bytes)
		if err != nil {
			return Value{}, fmt.Errorf("property: decode bytes: %w", err)
		}
		return Bytes(b), nil
	case KindDate:
		return Date(derefI64(jv.I)), nil
	case KindTimeOfDay:
		return TimeOfDay(derefI64(jv.I)), nil
	case KindDateTime:
		return DateTime(derefI64(jv.I)), nil
	case KindDuration:
		return Duration(derefI64(jv.I)), nil
	case KindPoint2D:
		return Point2DValue(derefF64(jv.Pt2X), derefF64(jv.Pt2Y), derefI32(jv.Pt2SRID)), nil
	case KindPoint3D:
		return Point3DValue(derefF64(jv.Pt2X), derefF64(jv.Pt2Y), derefF64(jv.Pt3Z), derefI32(jv.Pt2SRID)), nil
	case KindList:
		vs := make([]Value, len(jv.L))
		for i, e := range jv.L {
			cv, err := fromJSONValue(e)
			if err != nil {
				return Value{}, err
			}
			vs[i] = cv
		}
		return List(vs), nil
	case KindMap:
		m := make(map[string]Value, len(jv.M))
		for k, e := range jv.M {
			cv, err := fromJSONValue(e)
			if err != nil {
				return Value{}, err
			}
			m[k] = cv
		}
		return Map(m), nil
	default:
		return Value{}, fmt.Errorf("property: unknown kind %d", jv.K)
	}
}

func derefI64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
func derefF64(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
func derefI32(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSONValue(v))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	nv, err := fromJSONValue(jv)
	if err != nil {
		return err
	}
	*v = nv
	return nil
}
