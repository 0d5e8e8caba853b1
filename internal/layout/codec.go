package layout

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

// ErrValue is returned when a field value cannot be converted to the field's kind.
var ErrValue = eris.New("layout: value does not fit field")

// Decode reads every field of s from src. Integers decode as int64 or uint64,
// floats as float64, handles as uint64, nested structs as map[string]any and
// arrays as []any.
func Decode(s *Struct, src []byte) (map[string]any, error) {
	if uintptr(len(src)) < s.Size {
		return nil, eris.Wrapf(ErrValue, "%s: buffer is %d bytes, need %d", s.Name, len(src), s.Size)
	}
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "_" {
			continue
		}
		if f.Count > 0 {
			items := make([]any, f.Count)
			for i := range items {
				items[i] = decodeOne(f, src[f.Offset+uintptr(i)*f.ElemSize():])
			}
			out[f.Name] = items
			continue
		}
		out[f.Name] = decodeOne(f, src[f.Offset:])
	}
	return out, nil
}

func decodeOne(f Field, b []byte) any {
	ne := binary.NativeEndian
	switch f.Kind {
	case Bool:
		return b[0] != 0
	case Int8:
		return int64(int8(b[0]))
	case Uint8:
		return uint64(b[0])
	case Int16:
		return int64(int16(ne.Uint16(b)))
	case Uint16:
		return uint64(ne.Uint16(b))
	case Int32:
		return int64(int32(ne.Uint32(b)))
	case Uint32:
		return uint64(ne.Uint32(b))
	case Int64:
		return int64(ne.Uint64(b))
	case Uint64:
		return ne.Uint64(b)
	case Float32:
		return float64(math.Float32frombits(ne.Uint32(b)))
	case Float64:
		return math.Float64frombits(ne.Uint64(b))
	case Handle:
		if PtrSize == 4 {
			return uint64(ne.Uint32(b))
		}
		return ne.Uint64(b)
	case Nested:
		m, _ := Decode(f.Elem, b)
		return m
	}
	return nil
}

// Encode writes the values in v into dst. Fields missing from v keep their
// current bytes, so Encode can apply partial updates.
func Encode(s *Struct, dst []byte, v map[string]any) error {
	if uintptr(len(dst)) < s.Size {
		return eris.Wrapf(ErrValue, "%s: buffer is %d bytes, need %d", s.Name, len(dst), s.Size)
	}
	for name := range v {
		if _, ok := s.Field(name); !ok {
			return eris.Wrapf(ErrValue, "%s has no field %q", s.Name, name)
		}
	}
	for _, f := range s.Fields {
		val, ok := v[f.Name]
		if !ok {
			continue
		}
		if f.Count > 0 {
			items, ok := val.([]any)
			if !ok {
				return eris.Wrapf(ErrValue, "%s.%s: want list, got %T", s.Name, f.Name, val)
			}
			if len(items) > f.Count {
				return eris.Wrapf(ErrValue, "%s.%s: %d items exceed length %d", s.Name, f.Name, len(items), f.Count)
			}
			for i, item := range items {
				if err := encodeOne(f, dst[f.Offset+uintptr(i)*f.ElemSize():], item); err != nil {
					return eris.Wrapf(err, "%s.%s[%d]", s.Name, f.Name, i)
				}
			}
			continue
		}
		if err := encodeOne(f, dst[f.Offset:], val); err != nil {
			return eris.Wrapf(err, "%s.%s", s.Name, f.Name)
		}
	}
	return nil
}

func encodeOne(f Field, b []byte, v any) error {
	ne := binary.NativeEndian
	switch f.Kind {
	case Bool:
		on, ok := v.(bool)
		if !ok {
			return eris.Wrapf(ErrValue, "want bool, got %T", v)
		}
		b[0] = 0
		if on {
			b[0] = 1
		}
		return nil
	case Float32:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		ne.PutUint32(b, math.Float32bits(float32(x)))
		return nil
	case Float64:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		ne.PutUint64(b, math.Float64bits(x))
		return nil
	case Nested:
		m, ok := v.(map[string]any)
		if !ok {
			return eris.Wrapf(ErrValue, "want map, got %T", v)
		}
		return Encode(f.Elem, b, m)
	}
	x, err := toUint(v)
	if err != nil {
		return err
	}
	switch f.Kind.Size() {
	case 1:
		b[0] = byte(x)
	case 2:
		ne.PutUint16(b, uint16(x))
	case 4:
		ne.PutUint32(b, uint32(x))
	case 8:
		ne.PutUint64(b, x)
	default:
		return eris.Wrapf(ErrInvalidKind, "%s", f.Kind)
	}
	return nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, eris.Wrapf(ErrValue, "%q is not a number", n)
		}
		return f, nil
	}
	return 0, eris.Wrapf(ErrValue, "want number, got %T", v)
}

// toUint returns the two's complement bit pattern of an integer value; the
// caller truncates it to the field width.
func toUint(v any) (uint64, error) {
	switch n := v.(type) {
	case int:
		return uint64(n), nil
	case int8:
		return uint64(n), nil
	case int16:
		return uint64(n), nil
	case int32:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case uintptr:
		return uint64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, eris.Wrapf(ErrValue, "%v is not an integer", n)
		}
		if n < 0 {
			return uint64(int64(n)), nil
		}
		return uint64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		if i, err := strconv.ParseInt(n, 0, 64); err == nil {
			return uint64(i), nil
		}
		u, err := strconv.ParseUint(n, 0, 64)
		if err != nil {
			return 0, eris.Wrapf(ErrValue, "%q is not an integer", n)
		}
		return u, nil
	}
	return 0, eris.Wrapf(ErrValue, "want integer, got %T", v)
}
