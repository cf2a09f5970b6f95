package dynoitem

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// Marshaler can convert itself into a dynamodb attribute value. Types
// implementing Marshaler take precedence over the reflection based encoding.
type Marshaler interface {
	MarshalAttribute() (types.AttributeValue, error)
}

// Unmarshaler can populate itself from a dynamodb attribute value.
type Unmarshaler interface {
	UnmarshalAttribute(types.AttributeValue) error
}

var (
	marshalerType      = reflect.TypeOf((*Marshaler)(nil)).Elem()
	unmarshalerType    = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
	timeType           = reflect.TypeOf((*time.Time)(nil)).Elem()
	uuidType           = reflect.TypeOf((*uuid.UUID)(nil)).Elem()
	byteSliceType      = reflect.TypeOf((*[]byte)(nil)).Elem()
	attributeValueType = reflect.TypeOf((*types.AttributeValue)(nil)).Elem()
)

// fieldOpts carries the codec directives that alter how a single value is
// converted, independent of its position in a schema.
type fieldOpts struct {
	set      bool // encode slices as SS/NS/BS instead of L
	unixtime bool // encode time.Time as N epoch seconds instead of S
}

func nullAttr() types.AttributeValue {
	return &types.AttributeValueMemberNULL{Value: true}
}

// marshalAttribute converts a single native value into its attribute value
// representation. Failures here indicate an unsupported Go type rather than
// bad data; data-dependent failures only occur on the unmarshal side.
func marshalAttribute(rv reflect.Value, opts fieldOpts) (types.AttributeValue, error) {
	if !rv.IsValid() {
		return nullAttr(), nil
	}

	switch rv.Type() {
	case attributeValueType:
		if rv.IsNil() {
			return nullAttr(), nil
		}
		return rv.Interface().(types.AttributeValue), nil
	case uuidType:
		return &types.AttributeValueMemberS{Value: rv.Interface().(uuid.UUID).String()}, nil
	case timeType:
		t := rv.Interface().(time.Time)
		if opts.unixtime {
			return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)}, nil
		}
		return &types.AttributeValueMemberS{Value: t.UTC().Format(time.RFC3339Nano)}, nil
	}

	if m, ok := asMarshaler(rv); ok {
		return m.MarshalAttribute()
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nullAttr(), nil
		}
		return marshalAttribute(rv.Elem(), opts)

	case reflect.Interface:
		if rv.IsNil() {
			return nullAttr(), nil
		}
		// Dynamic values are delegated to the SDK marshaler.
		return attributevalue.Marshal(rv.Interface())

	case reflect.String:
		return &types.AttributeValueMemberS{Value: rv.String()}, nil

	case reflect.Bool:
		return &types.AttributeValueMemberBOOL{Value: rv.Bool()}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(rv.Int(), 10)}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &types.AttributeValueMemberN{Value: strconv.FormatUint(rv.Uint(), 10)}, nil

	case reflect.Float32:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(rv.Float(), 'f', -1, 32)}, nil

	case reflect.Float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(rv.Float(), 'f', -1, 64)}, nil

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return &types.AttributeValueMemberB{Value: rv.Bytes()}, nil
		}
		if opts.set {
			return marshalSet(rv)
		}
		return marshalList(rv, opts)

	case reflect.Map:
		return marshalMapAttr(rv, opts)

	case reflect.Struct:
		s, err := schemaOf(rv.Type())
		if err != nil {
			return nil, err
		}
		item, err := s.marshal(rv)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: item}, nil
	}

	return nil, fmt.Errorf("cannot marshal %s into an attribute value", rv.Type())
}

func asMarshaler(rv reflect.Value) (Marshaler, bool) {
	if rv.Type().Implements(marshalerType) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, false
		}
		return rv.Interface().(Marshaler), true
	}
	if reflect.PointerTo(rv.Type()).Implements(marshalerType) {
		// Marshal through an addressable copy so pointer receivers work
		// regardless of how the value was obtained.
		pv := reflect.New(rv.Type())
		pv.Elem().Set(rv)
		return pv.Interface().(Marshaler), true
	}
	return nil, false
}

func marshalList(rv reflect.Value, opts fieldOpts) (types.AttributeValue, error) {
	elems := make([]types.AttributeValue, rv.Len())
	for i, n := 0, rv.Len(); i < n; i++ {
		av, err := marshalAttribute(rv.Index(i), fieldOpts{unixtime: opts.unixtime})
		if err != nil {
			return nil, err
		}
		elems[i] = av
	}
	return &types.AttributeValueMemberL{Value: elems}, nil
}

func marshalSet(rv reflect.Value) (types.AttributeValue, error) {
	elem := rv.Type().Elem()
	switch {
	case elem.Kind() == reflect.String:
		members := make([]string, rv.Len())
		for i, n := 0, rv.Len(); i < n; i++ {
			members[i] = rv.Index(i).String()
		}
		return &types.AttributeValueMemberSS{Value: members}, nil

	case isNumericKind(elem.Kind()):
		members := make([]string, rv.Len())
		for i, n := 0, rv.Len(); i < n; i++ {
			av, err := marshalAttribute(rv.Index(i), fieldOpts{})
			if err != nil {
				return nil, err
			}
			members[i] = av.(*types.AttributeValueMemberN).Value
		}
		return &types.AttributeValueMemberNS{Value: members}, nil

	case elem == byteSliceType:
		members := make([][]byte, rv.Len())
		for i, n := 0, rv.Len(); i < n; i++ {
			members[i] = rv.Index(i).Bytes()
		}
		return &types.AttributeValueMemberBS{Value: members}, nil
	}
	return nil, fmt.Errorf("cannot marshal %s as a set attribute", rv.Type())
}

func marshalMapAttr(rv reflect.Value, opts fieldOpts) (types.AttributeValue, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("cannot marshal map keyed by %s; map attributes require string keys", rv.Type().Key())
	}
	values := make(Item, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		av, err := marshalAttribute(iter.Value(), fieldOpts{unixtime: opts.unixtime})
		if err != nil {
			return nil, err
		}
		values[iter.Key().String()] = av
	}
	return &types.AttributeValueMemberM{Value: values}, nil
}

// unmarshalAttribute converts an attribute value into the settable value rv.
// The attribute member variant must match the variant implied by rv's type,
// otherwise ErrInvalidType is returned; member contents that fail to parse
// into the target type return ErrInvalidFormat.
func unmarshalAttribute(av types.AttributeValue, rv reflect.Value, opts fieldOpts) error {
	if rv.Kind() == reflect.Pointer {
		if _, ok := av.(*types.AttributeValueMemberNULL); ok {
			rv.SetZero()
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return unmarshalAttribute(av, rv.Elem(), opts)
	}

	switch rv.Type() {
	case attributeValueType:
		rv.Set(reflect.ValueOf(av))
		return nil
	case uuidType:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return ErrInvalidType
		}
		id, err := uuid.Parse(s.Value)
		if err != nil {
			return ErrInvalidFormat
		}
		rv.Set(reflect.ValueOf(id))
		return nil
	case timeType:
		return unmarshalTime(av, rv, opts)
	}

	if rv.CanAddr() && reflect.PointerTo(rv.Type()).Implements(unmarshalerType) {
		return rv.Addr().Interface().(Unmarshaler).UnmarshalAttribute(av)
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.NumMethod() == 0 {
			// Dynamic values are delegated to the SDK unmarshaler.
			return attributevalue.Unmarshal(av, rv.Addr().Interface())
		}
		return fmt.Errorf("cannot unmarshal into non-empty interface %s", rv.Type())

	case reflect.String:
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return ErrInvalidType
		}
		rv.SetString(s.Value)
		return nil

	case reflect.Bool:
		b, ok := av.(*types.AttributeValueMemberBOOL)
		if !ok {
			return ErrInvalidType
		}
		rv.SetBool(b.Value)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return ErrInvalidType
		}
		i, err := strconv.ParseInt(n.Value, 10, rv.Type().Bits())
		if err != nil {
			return ErrInvalidFormat
		}
		rv.SetInt(i)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return ErrInvalidType
		}
		u, err := strconv.ParseUint(n.Value, 10, rv.Type().Bits())
		if err != nil {
			return ErrInvalidFormat
		}
		rv.SetUint(u)
		return nil

	case reflect.Float32, reflect.Float64:
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return ErrInvalidType
		}
		f, err := strconv.ParseFloat(n.Value, rv.Type().Bits())
		if err != nil {
			return ErrInvalidFormat
		}
		rv.SetFloat(f)
		return nil

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b, ok := av.(*types.AttributeValueMemberB)
			if !ok {
				return ErrInvalidType
			}
			rv.SetBytes(b.Value)
			return nil
		}
		if opts.set {
			return unmarshalSet(av, rv)
		}
		l, ok := av.(*types.AttributeValueMemberL)
		if !ok {
			return ErrInvalidType
		}
		out := reflect.MakeSlice(rv.Type(), len(l.Value), len(l.Value))
		for i, elem := range l.Value {
			if err := unmarshalAttribute(elem, out.Index(i), fieldOpts{unixtime: opts.unixtime}); err != nil {
				return err
			}
		}
		rv.Set(out)
		return nil

	case reflect.Map:
		m, ok := av.(*types.AttributeValueMemberM)
		if !ok {
			return ErrInvalidType
		}
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("cannot unmarshal into map keyed by %s; map attributes require string keys", rv.Type().Key())
		}
		out := reflect.MakeMapWithSize(rv.Type(), len(m.Value))
		for k, elem := range m.Value {
			ev := reflect.New(rv.Type().Elem()).Elem()
			if err := unmarshalAttribute(elem, ev, fieldOpts{unixtime: opts.unixtime}); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()), ev)
		}
		rv.Set(out)
		return nil

	case reflect.Struct:
		m, ok := av.(*types.AttributeValueMemberM)
		if !ok {
			return ErrInvalidType
		}
		s, err := schemaOf(rv.Type())
		if err != nil {
			return err
		}
		return s.unmarshal(m.Value, rv)
	}

	return fmt.Errorf("cannot unmarshal an attribute value into %s", rv.Type())
}

func unmarshalTime(av types.AttributeValue, rv reflect.Value, opts fieldOpts) error {
	if opts.unixtime {
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return ErrInvalidType
		}
		secs, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return ErrInvalidFormat
		}
		rv.Set(reflect.ValueOf(time.Unix(secs, 0).UTC()))
		return nil
	}
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return ErrInvalidType
	}
	t, err := time.Parse(time.RFC3339Nano, s.Value)
	if err != nil {
		return ErrInvalidFormat
	}
	rv.Set(reflect.ValueOf(t))
	return nil
}

func unmarshalSet(av types.AttributeValue, rv reflect.Value) error {
	elem := rv.Type().Elem()
	switch {
	case elem.Kind() == reflect.String:
		ss, ok := av.(*types.AttributeValueMemberSS)
		if !ok {
			return ErrInvalidType
		}
		out := reflect.MakeSlice(rv.Type(), len(ss.Value), len(ss.Value))
		for i, member := range ss.Value {
			out.Index(i).SetString(member)
		}
		rv.Set(out)
		return nil

	case isNumericKind(elem.Kind()):
		ns, ok := av.(*types.AttributeValueMemberNS)
		if !ok {
			return ErrInvalidType
		}
		out := reflect.MakeSlice(rv.Type(), len(ns.Value), len(ns.Value))
		for i, member := range ns.Value {
			if err := unmarshalAttribute(&types.AttributeValueMemberN{Value: member}, out.Index(i), fieldOpts{}); err != nil {
				return err
			}
		}
		rv.Set(out)
		return nil

	case elem == byteSliceType:
		bs, ok := av.(*types.AttributeValueMemberBS)
		if !ok {
			return ErrInvalidType
		}
		out := reflect.MakeSlice(rv.Type(), len(bs.Value), len(bs.Value))
		for i, member := range bs.Value {
			out.Index(i).SetBytes(member)
		}
		rv.Set(out)
		return nil
	}
	return fmt.Errorf("cannot unmarshal a set attribute into %s", rv.Type())
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
