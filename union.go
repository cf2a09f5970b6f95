package dynoitem

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UnionVariant binds a wire tag to the payload type of one union variant.
// Construct variants with VariantOf.
type UnionVariant struct {
	// Tag is the effective wire tag. Empty keeps the payload type name
	// verbatim.
	Tag string

	typ   reflect.Type // payload struct type, pointer stripped
	asPtr bool         // payload satisfies the union interface via pointer
}

// VariantOf declares a union variant whose payload is P, a struct type (or
// pointer to one). An empty tag uses P's type name verbatim as the wire tag.
// Each variant carries exactly one payload record; unit and multi-payload
// variants are not supported.
func VariantOf[P any](tag string) UnionVariant {
	t := reflect.TypeOf((*P)(nil)).Elem()
	asPtr := false
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		asPtr = true
	}
	if tag == "" && t.Kind() == reflect.Struct {
		tag = t.Name()
	}
	return UnionVariant{Tag: tag, typ: t, asPtr: asPtr}
}

// UnionSchema encodes and decodes an internally tagged union: the active
// variant's payload fields are merged with a single discriminant attribute
// holding the variant's wire tag. T is the interface all payloads satisfy.
type UnionSchema[T any] struct {
	tagField string
	byTag    map[string]UnionVariant
	byType   map[reflect.Type]UnionVariant
}

// NewUnionSchema derives a union schema with the given discriminant field
// name and variants. Duplicate wire tags, non-struct payloads, and payloads
// that do not satisfy T are rejected here as SchemaErrors, never at codec
// call time.
func NewUnionSchema[T any](tagField string, variants ...UnionVariant) (*UnionSchema[T], error) {
	iface := reflect.TypeOf((*T)(nil)).Elem()
	name := iface.String()
	if iface.Kind() != reflect.Interface {
		return nil, schemaErrorf(name, "", "union schemas require an interface type")
	}
	if tagField == "" {
		return nil, schemaErrorf(name, "", "tag field name must not be empty")
	}
	if len(variants) == 0 {
		return nil, schemaErrorf(name, "", "at least one variant is required")
	}

	u := &UnionSchema[T]{
		tagField: tagField,
		byTag:    make(map[string]UnionVariant, len(variants)),
		byType:   make(map[reflect.Type]UnionVariant, len(variants)),
	}

	for _, v := range variants {
		if v.typ == nil || v.typ.Kind() != reflect.Struct {
			return nil, schemaErrorf(name, v.Tag, "variant payloads must be struct types")
		}
		if _, err := schemaOf(v.typ); err != nil {
			return nil, err
		}
		switch {
		case v.typ.Implements(iface):
			// value payload satisfies the interface as declared
		case reflect.PointerTo(v.typ).Implements(iface):
			v.asPtr = true
		default:
			return nil, schemaErrorf(name, v.typ.Name(), "payload does not satisfy %s", name)
		}
		if dup, ok := u.byTag[v.Tag]; ok {
			return nil, schemaErrorf(name, v.typ.Name(), "wire tag %q already used by variant %s", v.Tag, dup.typ.Name())
		}
		u.byTag[v.Tag] = v
		u.byType[v.typ] = v
	}

	return u, nil
}

// TagField returns the discriminant attribute name.
func (u *UnionSchema[T]) TagField() string { return u.tagField }

// MarshalUnion encodes the active variant's payload and inserts the
// discriminant attribute alongside the payload's own fields.
func (u *UnionSchema[T]) MarshalUnion(v T) (Item, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("cannot marshal a nil union value")
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot marshal a nil union value")
		}
		rv = rv.Elem()
	}

	variant, ok := u.byType[rv.Type()]
	if !ok {
		return nil, fmt.Errorf("type %s is not a variant of this union", rv.Type())
	}

	s, err := schemaOf(variant.typ)
	if err != nil {
		return nil, err
	}
	item, err := s.marshal(rv)
	if err != nil {
		return nil, err
	}
	item[u.tagField] = &types.AttributeValueMemberS{Value: variant.Tag}
	return item, nil
}

// UnmarshalUnion reads and removes the discriminant attribute, selects the
// matching variant, and decodes the remaining attributes as its payload. A
// missing or non-string discriminant yields ErrInvalidType; an unknown wire
// tag yields ErrInvalidFormat. The input map is not modified.
func (u *UnionSchema[T]) UnmarshalUnion(item Item) (T, error) {
	var zero T

	remaining := make(Item, len(item))
	maps.Copy(remaining, item)

	av, ok := remaining[u.tagField]
	if !ok {
		return zero, ErrInvalidType
	}
	delete(remaining, u.tagField)

	tag, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return zero, ErrInvalidType
	}
	variant, ok := u.byTag[tag.Value]
	if !ok {
		return zero, ErrInvalidFormat
	}

	s, err := schemaOf(variant.typ)
	if err != nil {
		return zero, err
	}
	payload := reflect.New(variant.typ)
	if err := s.unmarshalFields(remaining, payload.Elem()); err != nil {
		return zero, err
	}

	if variant.asPtr {
		return payload.Interface().(T), nil
	}
	return payload.Elem().Interface().(T), nil
}
