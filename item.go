package dynoitem

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is an alias for the dynamodb attribute value map.
type Item = map[string]types.AttributeValue

// MarshalItem encodes a struct value into an attribute value map using the
// cached schema for its type. v may be a struct or a pointer to one.
func MarshalItem(v any) (Item, error) {
	rv, err := structValue(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	s, err := schemaOf(rv.Type())
	if err != nil {
		return nil, err
	}
	return s.marshal(rv)
}

// UnmarshalItem decodes an attribute value map into out, which must be a
// non-nil pointer to a struct. The input map is not modified; decoding works
// on a copy so that flatten fields can consume entries as they claim them.
func UnmarshalItem(item Item, out any) error {
	rv, err := settableStructValue(reflect.ValueOf(out))
	if err != nil {
		return err
	}
	s, err := schemaOf(rv.Type())
	if err != nil {
		return err
	}
	return s.unmarshal(item, rv)
}

// MarshalKey encodes only the key-designated attributes of v, equivalent to
// encoding the full record and filtering it down to the key wire names.
func MarshalKey(v any) (Item, error) {
	rv, err := structValue(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	s, err := schemaOf(rv.Type())
	if err != nil {
		return nil, err
	}
	proj, err := s.keyProjection()
	if err != nil {
		return nil, err
	}
	return proj.s.marshal(rv)
}

func structValue(rv reflect.Value) (reflect.Value, error) {
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("cannot marshal a nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("cannot marshal %s; expected a struct", rv.Kind())
	}
	return rv, nil
}

func settableStructValue(rv reflect.Value) (reflect.Value, error) {
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("cannot unmarshal into %s; expected a non-nil struct pointer", rv.Type())
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("cannot unmarshal into %s; expected a struct target", rv.Type())
	}
	return rv, nil
}

func (s *schema) marshal(rv reflect.Value) (Item, error) {
	item := make(Item, len(s.fields))
	if err := s.marshalFields(rv, item); err != nil {
		return nil, err
	}
	return item, nil
}

// marshalFields encodes rv's fields into sink in declaration order. Flatten
// fields merge their pairs directly into sink; when two flatten fields write
// the same key, the later declaration wins.
func (s *schema) marshalFields(rv reflect.Value, sink Item) error {
	for _, f := range s.fields {
		fv := rv.Field(f.index)

		switch {
		case f.itemMap:
			iter := fv.MapRange()
			for iter.Next() {
				sink[iter.Key().String()] = iter.Value().Interface().(types.AttributeValue)
			}

		case f.flatten:
			if err := f.nested.marshalFields(fv, sink); err != nil {
				return err
			}

		default:
			if f.skipIf != nil && f.skipIf(fv.Interface()) {
				continue
			}
			av, err := marshalAttribute(fv, f.opts)
			if err != nil {
				return err
			}
			sink[f.wireName] = av
		}
	}
	return nil
}

func (s *schema) unmarshal(item Item, rv reflect.Value) error {
	remaining := make(Item, len(item))
	maps.Copy(remaining, item)
	return s.unmarshalFields(remaining, rv)
}

// unmarshalFields decodes fields in declaration order, removing each claimed
// entry from remaining. Flatten fields decode against whatever is left at
// their position, so declaration order decides which flatten field claims a
// shared attribute; an item map flatten field collects the entire residue.
func (s *schema) unmarshalFields(remaining Item, rv reflect.Value) error {
	for _, f := range s.fields {
		fv := rv.Field(f.index)

		switch {
		case f.itemMap:
			residue := reflect.MakeMapWithSize(f.typ, len(remaining))
			for name, av := range remaining {
				residue.SetMapIndex(reflect.ValueOf(name).Convert(f.typ.Key()), reflect.ValueOf(av))
			}
			fv.Set(residue)
			clear(remaining)

		case f.flatten:
			if err := f.nested.unmarshalFields(remaining, fv); err != nil {
				return err
			}

		default:
			av, ok := remaining[f.wireName]
			delete(remaining, f.wireName)
			if !ok {
				if f.useDefault {
					fv.SetZero()
					continue
				}
				return MissingFieldError{Name: f.wireName}
			}
			if err := unmarshalAttribute(av, fv, f.opts); err != nil {
				return err
			}
		}
	}
	return nil
}
