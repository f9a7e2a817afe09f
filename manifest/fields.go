package manifest

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/oriumgames/cardinal"
	"github.com/oriumgames/cardinal/tree"
)

// Fields is the mutable component of record keys: a set of named values.
type Fields struct {
	values    map[string]any
	transient bool
}

// NewFields returns fields holding a deep copy of values.
func NewFields(values map[string]any, transient bool) *Fields {
	if values == nil {
		values = map[string]any{}
	}
	return &Fields{values: cloneMap(values), transient: transient}
}

// cloneMap copies m and the maps and slices nested in it.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneMap(v)
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Get returns the value of a field.
func (f *Fields) Get(name string) (any, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Set sets the value of a field.
func (f *Fields) Set(name string, v any) {
	f.values[name] = v
}

// Names returns the field names in lexical order.
func (f *Fields) Names() []string {
	return slices.Sorted(maps.Keys(f.values))
}

// WriteTree stores every field in t.
func (f *Fields) WriteTree(t *tree.Compound) error {
	if f.transient {
		return nil
	}
	for _, name := range f.Names() {
		if err := tree.Put(t, name, f.values[name]); err != nil {
			return err
		}
	}
	return nil
}

// ReadTree loads the fields stored in t. Fields missing from t keep their
// value.
func (f *Fields) ReadTree(t *tree.Compound) error {
	if f.transient {
		return nil
	}
	for _, name := range t.Keys() {
		v, err := tree.Get[any](t, name)
		if err != nil {
			return err
		}
		f.values[name] = v
	}
	return nil
}

// CopyFrom copies the fields of another instance.
func (f *Fields) CopyFrom(src cardinal.Component) error {
	other, ok := src.(*Fields)
	if !ok {
		return fmt.Errorf("copy fields from %T: %w", src, cardinal.ErrIncompatibleImpl)
	}
	f.values = cloneMap(other.values)
	return nil
}

var (
	_ cardinal.TreePersistent = (*Fields)(nil)
	_ cardinal.Copyable       = (*Fields)(nil)
)

// ErrNoRecord is returned by FieldsOf when a container has no record under an id.
var ErrNoRecord = errors.New("manifest: no such record")

// FieldsOf returns the record stored under id in c.
func FieldsOf(c *cardinal.Container, id string) (*Fields, error) {
	comp, ok := c.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, id)
	}
	f, ok := comp.(*Fields)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, id)
	}
	return f, nil
}

// Value returns the value immutable key id holds in c, as decoded from the
// manifest.
func Value(c *cardinal.Container, id string) (any, bool) {
	comp, ok := c.Lookup(id)
	if !ok {
		return nil, false
	}
	switch cell := comp.(type) {
	case *cardinal.Cell[int64]:
		return cell.Get(), true
	case *cardinal.Cell[float64]:
		return cell.Get(), true
	case *cardinal.Cell[string]:
		return cell.Get(), true
	case *cardinal.Cell[bool]:
		return cell.Get(), true
	}
	return nil, false
}
