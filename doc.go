// Package dynoitem maps Go structs to DynamoDB items through declarative
// struct tags, on top of the AWS SDK for Go v2 DynamoDB client.
//
// Struct fields annotate with the dynoitem tag to control how they encode
// into attribute values. Schemas are derived once per type, validated at
// construction time, and cached.
//
// # Basic Usage
//
//	type User struct {
//	    ID    string   `dynoitem:"id,partition_key"`
//	    Email string   `dynoitem:"email,sort_key"`
//	    Tags  []string `dynoitem:"tags"`
//	    Score int      `dynoitem:"score,default"`
//	}
//
//	item, err := dynoitem.MarshalItem(user)
//
//	var decoded User
//	err = dynoitem.UnmarshalItem(item, &decoded)
//
// The typed API binds a schema to a single struct type up front, surfacing
// tag mistakes before any item is encoded:
//
//	users, err := dynoitem.NewSchema[User]()
//	item, err := users.MarshalItem(user)
//
// # Directives
//
// The first tag position renames the attribute; the rest are directives:
//   - partition_key, sort_key: mark the primary key fields
//   - default: absent attributes decode to the zero value instead of failing
//   - flatten: merge a nested struct's attributes into the parent item
//   - skipif=<name>: omit the attribute when a named predicate holds
//   - set: encode string, number, or binary slices as DynamoDB sets
//   - unixtime: encode time.Time as epoch seconds instead of RFC 3339
//
// # Keys and Requests
//
// A schema's key projection extracts just the primary key attributes, which
// the Table request builders use for get and delete inputs:
//
//	table := dynoitem.NewTable("users")
//	getInput, err := table.MarshalGet(user)
//	out, err := ddb.GetItem(ctx, getInput)
//
// # Tagged Unions
//
// UnionSchema encodes interface values as internally tagged items: the
// variant's payload attributes plus a string discriminant attribute.
//
//	events, err := dynoitem.NewUnionSchema[Event]("type",
//	    dynoitem.VariantOf[Created]("created"),
//	    dynoitem.VariantOf[Deleted]("deleted"),
//	)
//
// # Pagination
//
// QueryPager and ScanPager follow a request's last evaluated key across
// pages; MarshalCursor and UnmarshalCursor turn that key into an opaque
// string clients can hold between calls.
package dynoitem
