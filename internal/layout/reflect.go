package layout

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// FromType computes the layout of a Go value type. Only fixed-size,
// pointer-free kinds are accepted; a struct field of another struct type
// becomes a nested layout. Non-struct types become a single field named
// "Value". The result is checked against the compiler's own layout.
func FromType(t reflect.Type) (*Struct, error) {
	if t == nil {
		return nil, eris.Wrap(ErrInvalidKind, "nil type")
	}
	var (
		s   *Struct
		err error
	)
	if t.Kind() == reflect.Struct {
		s, err = fromStruct(t)
	} else {
		var spec FieldSpec
		spec, err = specFor(t)
		if err == nil {
			spec.Name = "Value"
			s, err = New(typeName(t), []FieldSpec{spec})
		}
	}
	if err != nil {
		return nil, err
	}
	if s.Size != t.Size() || s.Align != uintptr(t.Align()) {
		return nil, eris.Wrapf(ErrMismatch, "%s: computed (%d,%d) in-process (%d,%d)",
			t, s.Size, s.Align, t.Size(), t.Align())
	}
	return s, nil
}

func fromStruct(t reflect.Type) (*Struct, error) {
	specs := make([]FieldSpec, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		spec, err := specFor(f.Type)
		if err != nil {
			return nil, eris.Wrapf(err, "%s.%s", t, f.Name)
		}
		spec.Name = f.Name
		specs = append(specs, spec)
	}
	return New(typeName(t), specs)
}

func specFor(t reflect.Type) (FieldSpec, error) {
	switch t.Kind() {
	case reflect.Bool:
		return FieldSpec{Kind: Bool}, nil
	case reflect.Int8:
		return FieldSpec{Kind: Int8}, nil
	case reflect.Uint8:
		return FieldSpec{Kind: Uint8}, nil
	case reflect.Int16:
		return FieldSpec{Kind: Int16}, nil
	case reflect.Uint16:
		return FieldSpec{Kind: Uint16}, nil
	case reflect.Int32:
		return FieldSpec{Kind: Int32}, nil
	case reflect.Uint32:
		return FieldSpec{Kind: Uint32}, nil
	case reflect.Int64:
		return FieldSpec{Kind: Int64}, nil
	case reflect.Uint64:
		return FieldSpec{Kind: Uint64}, nil
	case reflect.Int:
		if t.Size() == 8 {
			return FieldSpec{Kind: Int64}, nil
		}
		return FieldSpec{Kind: Int32}, nil
	case reflect.Uint:
		if t.Size() == 8 {
			return FieldSpec{Kind: Uint64}, nil
		}
		return FieldSpec{Kind: Uint32}, nil
	case reflect.Uintptr:
		return FieldSpec{Kind: Handle}, nil
	case reflect.Float32:
		return FieldSpec{Kind: Float32}, nil
	case reflect.Float64:
		return FieldSpec{Kind: Float64}, nil
	case reflect.Array:
		elem, err := specFor(t.Elem())
		if err != nil {
			return FieldSpec{}, err
		}
		// [N][M]T is stored as N*M consecutive elements.
		n := t.Len()
		if elem.Count > 0 {
			n *= elem.Count
		}
		elem.Count = n
		if n == 0 {
			return FieldSpec{}, eris.Wrapf(ErrInvalidKind, "zero-length array %s", t)
		}
		return elem, nil
	case reflect.Struct:
		nested, err := fromStruct(t)
		if err != nil {
			return FieldSpec{}, err
		}
		return FieldSpec{Kind: Nested, Elem: nested}, nil
	}
	return FieldSpec{}, eris.Wrapf(ErrInvalidKind, "%s (%s)", t, t.Kind())
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
