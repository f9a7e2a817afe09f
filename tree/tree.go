// Package tree provides the compound tree owners persist their components in.
//
// A Compound is a map of named entries, each an attribute value. Values are
// converted with the DynamoDB attribute value codec, so a Compound maps one
// to one onto a DynamoDB item and nested compounds onto map attributes.
package tree

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	// ErrMissing is returned when a compound has no entry of the given name.
	ErrMissing = errors.New("tree: missing entry")

	// ErrNotCompound is returned when an entry is not a nested compound.
	ErrNotCompound = errors.New("tree: entry is not a compound")
)

// Compound is a set of named attribute values.
// The zero value is not usable; use NewCompound.
type Compound struct {
	entries map[string]types.AttributeValue
}

// NewCompound returns an empty compound.
func NewCompound() *Compound {
	return &Compound{entries: make(map[string]types.AttributeValue)}
}

// FromItem wraps a DynamoDB item. The map is used as is.
func FromItem(item map[string]types.AttributeValue) *Compound {
	if item == nil {
		item = make(map[string]types.AttributeValue)
	}
	return &Compound{entries: item}
}

// FromAttributeValue wraps a map attribute value.
func FromAttributeValue(av types.AttributeValue) (*Compound, error) {
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotCompound, av)
	}
	return FromItem(m.Value), nil
}

// Item returns the compound as a DynamoDB item.
func (c *Compound) Item() map[string]types.AttributeValue {
	return c.entries
}

// AttributeValue returns the compound as a map attribute value.
func (c *Compound) AttributeValue() types.AttributeValue {
	return &types.AttributeValueMemberM{Value: c.entries}
}

// Len returns the number of entries.
func (c *Compound) Len() int {
	return len(c.entries)
}

// Has reports whether the compound has an entry named name.
func (c *Compound) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// Keys returns the entry names in lexical order.
func (c *Compound) Keys() []string {
	return slices.Sorted(maps.Keys(c.entries))
}

// Remove deletes the entry named name.
func (c *Compound) Remove(name string) {
	delete(c.entries, name)
}

// Set stores a raw attribute value.
func (c *Compound) Set(name string, av types.AttributeValue) {
	c.entries[name] = av
}

// Raw returns the raw attribute value of an entry.
func (c *Compound) Raw(name string) (types.AttributeValue, bool) {
	av, ok := c.entries[name]
	return av, ok
}

// PutCompound stores sub as a nested compound.
func (c *Compound) PutCompound(name string, sub *Compound) {
	c.entries[name] = sub.AttributeValue()
}

// Compound returns the nested compound named name.
func (c *Compound) Compound(name string) (*Compound, bool) {
	av, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	sub, err := FromAttributeValue(av)
	if err != nil {
		return nil, false
	}
	return sub, true
}

// Clone returns a deep copy of the compound.
func (c *Compound) Clone() *Compound {
	return FromItem(cloneMap(c.entries))
}

func cloneMap(m map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: cloneMap(v.Value)}
	case *types.AttributeValueMemberL:
		l := make([]types.AttributeValue, len(v.Value))
		for i, e := range v.Value {
			l[i] = cloneValue(e)
		}
		return &types.AttributeValueMemberL{Value: l}
	case *types.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: slices.Clone(v.Value)}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: slices.Clone(v.Value)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: slices.Clone(v.Value)}
	default:
		// S, N, BOOL and NULL members hold only immutable values.
		return av
	}
}

// Put encodes v and stores it under name.
func Put[T any](c *Compound, name string, v T) error {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return fmt.Errorf("tree: encode %s: %w", name, err)
	}
	c.entries[name] = av
	return nil
}

// Get decodes the entry named name.
func Get[T any](c *Compound, name string) (T, error) {
	var out T
	av, ok := c.entries[name]
	if !ok {
		return out, fmt.Errorf("%w: %s", ErrMissing, name)
	}
	if err := attributevalue.Unmarshal(av, &out); err != nil {
		return out, fmt.Errorf("tree: decode %s: %w", name, err)
	}
	return out, nil
}

// GetOr decodes the entry named name, returning def when it is missing.
func GetOr[T any](c *Compound, name string, def T) (T, error) {
	v, err := Get[T](c, name)
	if errors.Is(err, ErrMissing) {
		return def, nil
	}
	return v, err
}
