package dynoitem

import (
	"reflect"
	"strings"
	"sync"
)

// TagKey is the struct tag inspected when deriving a schema.
//
// The tag holds the effective wire name followed by directive options:
//
//	type Order struct {
//	    ID      string         `dynoitem:"id,partition_key"`
//	    Placed  time.Time      `dynoitem:"placed,sort_key,unixtime"`
//	    Coupon  string         `dynoitem:"coupon,default"`
//	    Note    string         `dynoitem:"note,skipif=empty"`
//	    Detail  OrderDetail    `dynoitem:",flatten"`
//	    Tags    []string       `dynoitem:"tags,set"`
//	}
//
// An empty name keeps the Go field name verbatim; a name of "-" excludes the
// field from the schema entirely.
const TagKey = "dynoitem"

// SkipPredicate reports whether a field value should be omitted from the
// encoded item. Predicates are referenced by name in skipif directives.
type SkipPredicate func(value any) bool

// Built-in skipif predicates available to every schema.
var builtinPredicates = map[string]SkipPredicate{
	"zero":  skipZero,
	"empty": skipEmpty,
}

func skipZero(value any) bool {
	rv := reflect.ValueOf(value)
	return !rv.IsValid() || rv.IsZero()
}

func skipEmpty(value any) bool {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return rv.IsZero()
}

// deriveOptions configures schema derivation.
type deriveOptions struct {
	predicates map[string]SkipPredicate
}

// SchemaOption customizes schema derivation.
type SchemaOption func(*deriveOptions)

// WithSkipPredicate registers a named predicate for use in skipif directives
// on the derived schema and any of its flattened sub-schemas.
func WithSkipPredicate(name string, fn SkipPredicate) SchemaOption {
	return func(o *deriveOptions) {
		o.predicates[name] = fn
	}
}

func newDeriveOptions(opts []SchemaOption) *deriveOptions {
	o := &deriveOptions{predicates: make(map[string]SkipPredicate)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *deriveOptions) predicate(name string) (SkipPredicate, bool) {
	if fn, ok := o.predicates[name]; ok {
		return fn, true
	}
	fn, ok := builtinPredicates[name]
	return fn, ok
}

// field is one entry of a derived schema, carrying the parsed directive set
// for a single struct field.
type field struct {
	name     string // Go field name
	wireName string // effective name after rename
	index    int
	typ      reflect.Type
	opts     fieldOpts

	partitionKey bool
	sortKey      bool
	useDefault   bool
	flatten      bool
	skipIf       SkipPredicate

	// nested is the derived schema of a flattened struct field.
	nested *schema
	// itemMap marks a flattened field that collects all remaining
	// attributes into a raw item map.
	itemMap bool
}

// schema is the immutable, derived mapping for one record type. Fields appear
// in declaration order; order is significant when multiple flatten fields
// claim attributes from the same item.
type schema struct {
	typ       reflect.Type
	fields    []*field
	partition *field
	sort      *field
}

func (s *schema) typeName() string { return s.typ.String() }

var schemaCache sync.Map // reflect.Type -> *schema

// schemaOf derives (or returns the cached) schema for a struct type using
// only the built-in skipif predicates. Schemas are derived once and are
// immutable and safe for concurrent use.
func schemaOf(t reflect.Type) (*schema, error) {
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*schema), nil
	}
	s, err := deriveSchema(t, newDeriveOptions(nil), make(map[reflect.Type]*schema))
	if err != nil {
		return nil, err
	}
	actual, _ := schemaCache.LoadOrStore(t, s)
	return actual.(*schema), nil
}

// deriveSchema walks t's fields and parses their directives, validating the
// schema as a whole. All schema validation happens here, never during
// marshal or unmarshal calls. The seen map breaks type cycles.
func deriveSchema(t reflect.Type, opts *deriveOptions, seen map[reflect.Type]*schema) (*schema, error) {
	if t.Kind() != reflect.Struct {
		return nil, schemaErrorf(t.String(), "", "schemas require a struct type")
	}
	if existing, ok := seen[t]; ok {
		return existing, nil
	}

	s := &schema{typ: t}
	seen[t] = s

	wireNames := make(map[string]string)
	for i, n := 0, t.NumField(); i < n; i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		f, err := parseField(t, sf, i, opts)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}

		if f.flatten {
			if err := resolveFlatten(t, f, opts, seen); err != nil {
				return nil, err
			}
		} else {
			if prev, ok := wireNames[f.wireName]; ok {
				return nil, schemaErrorf(t.String(), sf.Name, "wire name %q already used by field %s", f.wireName, prev)
			}
			wireNames[f.wireName] = sf.Name
			if err := validateFieldType(t, f, opts, seen); err != nil {
				return nil, err
			}
		}

		if f.partitionKey {
			if s.partition != nil {
				return nil, schemaErrorf(t.String(), sf.Name, "partition key already declared on field %s", s.partition.name)
			}
			s.partition = f
		}
		if f.sortKey {
			if s.sort != nil {
				return nil, schemaErrorf(t.String(), sf.Name, "sort key already declared on field %s", s.sort.name)
			}
			s.sort = f
		}

		s.fields = append(s.fields, f)
	}

	return s, nil
}

// Directive tokens that never take a value.
var bareDirectives = map[string]bool{
	"partition_key": true,
	"sort_key":      true,
	"default":       true,
	"flatten":       true,
	"set":           true,
	"unixtime":      true,
	"omitempty":     true,
}

func parseField(t reflect.Type, sf reflect.StructField, index int, opts *deriveOptions) (*field, error) {
	tag := sf.Tag.Get(TagKey)
	if tag == "-" {
		return nil, nil
	}

	f := &field{
		name:     sf.Name,
		wireName: sf.Name,
		index:    index,
		typ:      sf.Type,
	}

	name, rest, hasOptions := strings.Cut(tag, ",")
	renamed := name != ""
	if renamed {
		f.wireName = name
	}

	// Untagged embedded structs merge their fields into the parent,
	// matching the usual Go embedding expectation.
	if sf.Anonymous && tag == "" && sf.Type.Kind() == reflect.Struct {
		f.flatten = true
		return f, nil
	}

	if !hasOptions {
		return f, nil
	}

	for _, token := range strings.Split(rest, ",") {
		if token == "" {
			continue
		}
		key, value, hasValue := strings.Cut(token, "=")
		if bareDirectives[key] && hasValue {
			return nil, schemaErrorf(t.String(), sf.Name, "directive %q does not take a value", key)
		}
		switch key {
		case "partition_key":
			f.partitionKey = true
		case "sort_key":
			f.sortKey = true
		case "default":
			f.useDefault = true
		case "flatten":
			f.flatten = true
		case "set":
			f.opts.set = true
		case "unixtime":
			f.opts.unixtime = true
		case "omitempty":
			f.skipIf = skipZero
		case "skipif":
			if !hasValue || value == "" {
				return nil, schemaErrorf(t.String(), sf.Name, "skipif requires a predicate name")
			}
			fn, ok := opts.predicate(value)
			if !ok {
				return nil, schemaErrorf(t.String(), sf.Name, "unknown skipif predicate %q", value)
			}
			f.skipIf = fn
		default:
			return nil, schemaErrorf(t.String(), sf.Name, "unknown directive %q", key)
		}
	}

	if f.flatten {
		if renamed || f.partitionKey || f.sortKey || f.useDefault || f.skipIf != nil || f.opts.set || f.opts.unixtime {
			return nil, schemaErrorf(t.String(), sf.Name, "flatten cannot be combined with other directives")
		}
	}

	return f, nil
}

func resolveFlatten(t reflect.Type, f *field, opts *deriveOptions, seen map[reflect.Type]*schema) error {
	ft := f.typ
	if isItemMap(ft) {
		f.itemMap = true
		return nil
	}
	if ft.Kind() != reflect.Struct {
		return schemaErrorf(t.String(), f.name, "flatten requires a struct or item map field, got %s", ft)
	}
	nested, err := deriveSchema(ft, opts, seen)
	if err != nil {
		return err
	}
	f.nested = nested
	return nil
}

func isItemMap(t reflect.Type) bool {
	return t.Kind() == reflect.Map &&
		t.Key().Kind() == reflect.String &&
		t.Elem() == attributeValueType
}

// validateFieldType surfaces unsupported field types at derivation time so
// marshal calls only fail on data, not on declarations. Nested struct types
// are derived eagerly for the same reason.
func validateFieldType(t reflect.Type, f *field, opts *deriveOptions, seen map[reflect.Type]*schema) error {
	if f.opts.set {
		elem := f.typ
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Slice {
			return schemaErrorf(t.String(), f.name, "set requires a slice field, got %s", f.typ)
		}
		ek := elem.Elem()
		if ek.Kind() != reflect.String && !isNumericKind(ek.Kind()) && ek != byteSliceType {
			return schemaErrorf(t.String(), f.name, "set requires string, numeric, or []byte elements, got %s", ek)
		}
	}
	if f.opts.unixtime {
		elem := f.typ
		for elem.Kind() == reflect.Pointer || elem.Kind() == reflect.Slice {
			elem = elem.Elem()
		}
		if elem != timeType {
			return schemaErrorf(t.String(), f.name, "unixtime requires a time.Time field, got %s", f.typ)
		}
	}

	return validateNested(f.typ, opts, seen)
}

func validateNested(t reflect.Type, opts *deriveOptions, seen map[reflect.Type]*schema) error {
	switch t {
	case timeType, uuidType, attributeValueType:
		return nil
	}
	if t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType) {
		return nil
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice:
		return validateNested(t.Elem(), opts, seen)
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return schemaErrorf(t.String(), "", "map attributes require string keys")
		}
		return validateNested(t.Elem(), opts, seen)
	case reflect.Struct:
		// Marshal re-derives non-flatten struct fields through the shared
		// cache, where only builtin predicates resolve. Validate with the
		// same option set so invalid declarations fail here, not per call.
		if len(opts.predicates) > 0 {
			_, err := deriveSchema(t, newDeriveOptions(nil), make(map[reflect.Type]*schema))
			return err
		}
		_, err := deriveSchema(t, opts, seen)
		return err
	}
	return nil
}

// Schema is a typed, immutable mapping between T and dynamodb items. A
// Schema is derived once and is safe for concurrent use by any number of
// goroutines.
type Schema[T any] struct {
	s *schema
}

// NewSchema derives the schema for T, validating every directive on its
// fields. Invalid declarations are reported here as a SchemaError, never
// from the per-call marshal and unmarshal methods.
func NewSchema[T any](opts ...SchemaOption) (*Schema[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s, err := deriveSchema(t, newDeriveOptions(opts), make(map[reflect.Type]*schema))
	if err != nil {
		return nil, err
	}
	return &Schema[T]{s: s}, nil
}

// MarshalItem encodes v into an attribute value map.
func (s *Schema[T]) MarshalItem(v T) (Item, error) {
	rv, err := structValue(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return s.s.marshal(rv)
}

// UnmarshalItem decodes item into out. The input map is not modified.
func (s *Schema[T]) UnmarshalItem(item Item, out *T) error {
	rv, err := settableStructValue(reflect.ValueOf(out))
	if err != nil {
		return err
	}
	return s.s.unmarshal(item, rv)
}

// Key returns the primary key attributes of v, per the schema's
// partition_key and sort_key directives.
func (s *Schema[T]) Key(v T) (Item, error) {
	proj, err := s.KeyProjection()
	if err != nil {
		return nil, err
	}
	return proj.Key(v)
}

// KeyProjection derives the reduced schema containing only the key fields
// of T. It fails with a SchemaError if T declares no partition key.
func (s *Schema[T]) KeyProjection() (*KeyProjection, error) {
	return s.s.keyProjection()
}
