// Package layout computes byte-exact size, alignment and field offsets for
// plain-data component descriptions, matching the C ABI the native engine uses
// to allocate component storage.
package layout

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/rotisserie/eris"
)

// PtrSize is the size of a native handle (pointer-sized) field.
const PtrSize = unsafe.Sizeof(uintptr(0))

// MaxAlign is the largest alignment the native engine guarantees for
// component columns.
const MaxAlign = unsafe.Alignof(uint64(0))

var (
	ErrInvalidKind = eris.New("layout: unsupported field kind")
	ErrInvalidSpec = eris.New("layout: invalid field description")
	ErrMismatch    = eris.New("layout: computed layout differs from in-process layout")
)

// Kind identifies the storage class of a field.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Handle
	Nested
)

var kindNames = [...]string{
	Invalid: "invalid",
	Bool:    "bool",
	Int8:    "i8",
	Uint8:   "u8",
	Int16:   "i16",
	Uint16:  "u16",
	Int32:   "i32",
	Uint32:  "u32",
	Int64:   "i64",
	Uint64:  "u64",
	Float32: "f32",
	Float64: "f64",
	Handle:  "handle",
	Nested:  "struct",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Size returns the byte size of a scalar kind. Nested and Invalid report 0.
func (k Kind) Size() uintptr {
	switch k {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	case Handle:
		return PtrSize
	}
	return 0
}

// Align returns the natural alignment of a scalar kind, capped at MaxAlign.
func (k Kind) Align() uintptr {
	return capAlign(k.Size())
}

// ParseKind resolves a scalar kind by its short name ("u32", "f64", "handle").
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "int8":
		n = "i8"
	case "uint8", "byte":
		n = "u8"
	case "int16":
		n = "i16"
	case "uint16":
		n = "u16"
	case "int32", "int":
		n = "i32"
	case "uint32", "uint":
		n = "u32"
	case "int64", "long":
		n = "i64"
	case "uint64", "ulong":
		n = "u64"
	case "float32", "float":
		n = "f32"
	case "float64", "double":
		n = "f64"
	case "ptr", "pointer", "uintptr":
		n = "handle"
	}
	for k, s := range kindNames {
		if s == n && Kind(k) != Invalid && Kind(k) != Nested {
			return Kind(k), nil
		}
	}
	return Invalid, eris.Wrapf(ErrInvalidKind, "%q", name)
}

// FieldSpec is a declared field before placement. Count > 0 declares a
// fixed-size array of Count elements; Elem is required for Nested fields.
type FieldSpec struct {
	Name  string
	Kind  Kind
	Count int
	Elem  *Struct
}

// Field is a placed field.
type Field struct {
	Name   string
	Kind   Kind
	Count  int
	Elem   *Struct
	Offset uintptr
}

// ElemSize is the size of one element of the field.
func (f Field) ElemSize() uintptr {
	if f.Kind == Nested {
		return f.Elem.Size
	}
	return f.Kind.Size()
}

// Size is the total byte size the field occupies, excluding padding.
func (f Field) Size() uintptr {
	if f.Count > 0 {
		return f.ElemSize() * uintptr(f.Count)
	}
	return f.ElemSize()
}

// Struct is a computed component layout. Size is always a multiple of Align.
type Struct struct {
	Name   string
	Fields []Field
	Size   uintptr
	Align  uintptr
}

// Field returns the placed field with the given name.
func (s *Struct) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Struct) String() string {
	return fmt.Sprintf("%s{size=%d align=%d fields=%d}", s.Name, s.Size, s.Align, len(s.Fields))
}

// New places fields in declaration order using C struct rules: each field is
// aligned to its own alignment, the struct alignment is the maximum field
// alignment and the size is rounded up to a multiple of it.
func New(name string, specs []FieldSpec) (*Struct, error) {
	if strings.TrimSpace(name) == "" {
		return nil, eris.Wrap(ErrInvalidSpec, "empty struct name")
	}
	s := &Struct{Name: name, Align: 1, Fields: make([]Field, 0, len(specs))}
	seen := make(map[string]struct{}, len(specs))
	var off uintptr
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, eris.Wrapf(ErrInvalidSpec, "%s: field %d has no name", name, i)
		}
		if spec.Name != "_" {
			if _, dup := seen[spec.Name]; dup {
				return nil, eris.Wrapf(ErrInvalidSpec, "%s: duplicate field %q", name, spec.Name)
			}
			seen[spec.Name] = struct{}{}
		}
		size, align, err := shape(spec)
		if err != nil {
			return nil, eris.Wrapf(err, "%s.%s", name, spec.Name)
		}
		off = alignUp(off, align)
		s.Fields = append(s.Fields, Field{
			Name:   spec.Name,
			Kind:   spec.Kind,
			Count:  spec.Count,
			Elem:   spec.Elem,
			Offset: off,
		})
		off += size
		if align > s.Align {
			s.Align = align
		}
	}
	s.Size = alignUp(off, s.Align)
	return s, nil
}

func shape(spec FieldSpec) (size, align uintptr, err error) {
	if spec.Count < 0 {
		return 0, 0, eris.Wrapf(ErrInvalidSpec, "negative array length %d", spec.Count)
	}
	switch spec.Kind {
	case Invalid:
		return 0, 0, ErrInvalidKind
	case Nested:
		if spec.Elem == nil {
			return 0, 0, eris.Wrap(ErrInvalidSpec, "struct field without element layout")
		}
		size, align = spec.Elem.Size, capAlign(spec.Elem.Align)
	default:
		size, align = spec.Kind.Size(), spec.Kind.Align()
		if size == 0 {
			return 0, 0, eris.Wrapf(ErrInvalidKind, "%s", spec.Kind)
		}
	}
	if spec.Count > 0 {
		size *= uintptr(spec.Count)
	}
	return size, align, nil
}

func capAlign(a uintptr) uintptr {
	if a == 0 {
		return 1
	}
	if a > MaxAlign {
		return MaxAlign
	}
	return a
}

func alignUp(n, a uintptr) uintptr {
	return (n + a - 1) &^ (a - 1)
}
