package dynoitem

import (
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// KeyProjection is the reduced schema holding only the partition key and,
// when declared, the sort key of a record type. Wire names follow any rename
// directive on the source field; default, flatten, and skipif directives are
// not meaningful for key identity and are dropped. A projection is itself
// encodable and decodable, so lookup keys can be built and inspected without
// a full record.
type KeyProjection struct {
	s *schema
}

// KeyValues holds decoded key attribute values, typed per the source fields.
type KeyValues struct {
	Partition any
	Sort      any // nil when the schema declares no sort key
}

func (s *schema) keyProjection() (*KeyProjection, error) {
	if s.partition == nil {
		return nil, schemaErrorf(s.typeName(), "", "no partition_key field declared")
	}

	reduced := &schema{typ: s.typ, partition: keyField(s.partition), sort: nil}
	reduced.fields = []*field{reduced.partition}
	if s.sort != nil {
		reduced.sort = keyField(s.sort)
		reduced.fields = append(reduced.fields, reduced.sort)
	}
	return &KeyProjection{s: reduced}, nil
}

// keyField copies a schema field, keeping only the attributes relevant to
// key identity.
func keyField(f *field) *field {
	return &field{
		name:         f.name,
		wireName:     f.wireName,
		index:        f.index,
		typ:          f.typ,
		opts:         f.opts,
		partitionKey: f.partitionKey,
		sortKey:      f.sortKey,
	}
}

// PartitionName returns the wire name of the partition key attribute.
func (k *KeyProjection) PartitionName() string {
	return k.s.partition.wireName
}

// SortName returns the wire name of the sort key attribute, if one is
// declared.
func (k *KeyProjection) SortName() (string, bool) {
	if k.s.sort == nil {
		return "", false
	}
	return k.s.sort.wireName, true
}

// Key encodes the key attributes of v, which must be a value (or pointer to
// a value) of the projection's source record type.
func (k *KeyProjection) Key(v any) (Item, error) {
	rv, err := structValue(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	if rv.Type() != k.s.typ {
		return nil, fmt.Errorf("cannot project key from %s; projection derives from %s", rv.Type(), k.s.typ)
	}
	return k.s.marshal(rv)
}

// PartitionValue encodes a bare partition key value, honoring the source
// field's codec directives. Use the result in expression conditions so the
// condition value encodes the same way stored items do.
func (k *KeyProjection) PartitionValue(v any) (types.AttributeValue, error) {
	return marshalAttribute(reflect.ValueOf(v), k.s.partition.opts)
}

// SortValue encodes a bare sort key value, honoring the source field's codec
// directives.
func (k *KeyProjection) SortValue(v any) (types.AttributeValue, error) {
	if k.s.sort == nil {
		return nil, fmt.Errorf("schema %s declares no sort key", k.s.typeName())
	}
	return marshalAttribute(reflect.ValueOf(v), k.s.sort.opts)
}

// ItemOf builds a lookup key from bare values, without a full record. The
// sort value is required exactly when the source schema declares a sort key.
func (k *KeyProjection) ItemOf(partition any, sort ...any) (Item, error) {
	item := make(Item, 2)
	av, err := k.PartitionValue(partition)
	if err != nil {
		return nil, err
	}
	item[k.s.partition.wireName] = av

	if k.s.sort == nil {
		if len(sort) > 0 {
			return nil, fmt.Errorf("schema %s declares no sort key", k.s.typeName())
		}
		return item, nil
	}
	if len(sort) != 1 {
		return nil, fmt.Errorf("schema %s requires a sort key value", k.s.typeName())
	}
	av, err = k.SortValue(sort[0])
	if err != nil {
		return nil, err
	}
	item[k.s.sort.wireName] = av
	return item, nil
}

// Unmarshal decodes the key attributes out of item. Absent key attributes
// yield a MissingFieldError naming the effective wire name.
func (k *KeyProjection) Unmarshal(item Item) (KeyValues, error) {
	var values KeyValues

	pv := reflect.New(k.s.partition.typ).Elem()
	av, ok := item[k.s.partition.wireName]
	if !ok {
		return values, MissingFieldError{Name: k.s.partition.wireName}
	}
	if err := unmarshalAttribute(av, pv, k.s.partition.opts); err != nil {
		return values, err
	}
	values.Partition = pv.Interface()

	if k.s.sort == nil {
		return values, nil
	}
	sv := reflect.New(k.s.sort.typ).Elem()
	av, ok = item[k.s.sort.wireName]
	if !ok {
		return values, MissingFieldError{Name: k.s.sort.wireName}
	}
	if err := unmarshalAttribute(av, sv, k.s.sort.opts); err != nil {
		return values, err
	}
	values.Sort = sv.Interface()
	return values, nil
}

// PartitionAttributeType maps the partition key's Go type onto the dynamodb
// scalar attribute type, for table provisioning.
func (k *KeyProjection) PartitionAttributeType() types.ScalarAttributeType {
	return scalarAttributeType(k.s.partition)
}

// SortAttributeType maps the sort key's Go type onto the dynamodb scalar
// attribute type, when a sort key is declared.
func (k *KeyProjection) SortAttributeType() (types.ScalarAttributeType, bool) {
	if k.s.sort == nil {
		return "", false
	}
	return scalarAttributeType(k.s.sort), true
}

func scalarAttributeType(f *field) types.ScalarAttributeType {
	t := f.typ
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		if f.opts.unixtime {
			return types.ScalarAttributeTypeN
		}
		return types.ScalarAttributeTypeS
	case isNumericKind(t.Kind()):
		return types.ScalarAttributeTypeN
	case t == byteSliceType:
		return types.ScalarAttributeTypeB
	default:
		return types.ScalarAttributeTypeS
	}
}
