package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"

	"github.com/broken-bytes/Playground/internal/native"
)

type Usage = native.Usage

const (
	Read      = native.UsageRead
	Write     = native.UsageWrite
	ReadWrite = native.UsageReadWrite
)

type Operation = native.Operation

const (
	And = native.OpAnd
	Or  = native.OpOr
	Not = native.OpNot
)

// QueryItem is one declared term of a system query. The component is named
// either by Go type or, for declared components, by Name.
type QueryItem struct {
	Type      reflect.Type
	Name      string
	Usage     Usage
	Operation Operation
}

func Term[T any](usage Usage, op Operation) QueryItem {
	return QueryItem{Type: reflect.TypeFor[T](), Usage: usage, Operation: op}
}

func Reads[T any]() QueryItem       { return Term[T](Read, And) }
func Writes[T any]() QueryItem      { return Term[T](Write, And) }
func ReadsWrites[T any]() QueryItem { return Term[T](ReadWrite, And) }
func Without[T any]() QueryItem     { return Term[T](Read, Not) }
func Either[T any]() QueryItem      { return Term[T](Read, Or) }

// Named declares a term for a component registered by name.
func Named(name string, usage Usage, op Operation) QueryItem {
	return QueryItem{Name: name, Usage: usage, Operation: op}
}

// ParseUsage accepts "read", "write" and "readwrite".
func ParseUsage(s string) (Usage, error) {
	switch s {
	case "read", "in", "":
		return Read, nil
	case "write", "out":
		return Write, nil
	case "readwrite", "inout", "rw":
		return ReadWrite, nil
	}
	return 0, eris.Errorf("unknown usage %q", s)
}

// ParseOperation accepts "and", "or" and "not".
func ParseOperation(s string) (Operation, error) {
	switch s {
	case "and", "":
		return And, nil
	case "or":
		return Or, nil
	case "not":
		return Not, nil
	}
	return 0, eris.Errorf("unknown operation %q", s)
}

// BuildFilters converts items into native filters in declaration order,
// registering Go types on first use. The returned descriptors share the
// filters' slot order.
func (w *World) BuildFilters(items []QueryItem) ([]native.Filter, []*Descriptor, error) {
	filters := make([]native.Filter, len(items))
	descs := make([]*Descriptor, len(items))
	for i, item := range items {
		d, err := w.resolve(item)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "query slot %d", i)
		}
		filters[i] = native.Filter{ID: uint64(d.ID), Usage: item.Usage, Operation: item.Operation}
		descs[i] = d
	}
	return filters, descs, nil
}

func (w *World) resolve(item QueryItem) (*Descriptor, error) {
	if item.Type != nil {
		return w.registry.RegisterType(item.Type)
	}
	d, err := w.Descriptor(item.Name)
	if err == nil {
		return d, nil
	}
	if id, ok := w.tagID(item.Name); ok {
		return &Descriptor{ID: ComponentID(id), Name: normalizeName(item.Name), Align: 1}, nil
	}
	return nil, err
}
