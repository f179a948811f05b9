// Package schema types the context values a script expects.
//
// A script declares the type of a context field with a `use` directive under
// the "schema" key:
//
//	% use schema.age int
//	% use schema.tags [string]
//	% use schema.user.vip bool
//
// Supported types are string, int, float (alias number), bool, any and
// slices of them written as [type]. Fields are optional: Validate only checks
// the fields a context actually carries, so placeholders keep falling back
// to their defaults.
//
// Schemas can also be built in code:
//
//	s := schema.Schema{
//	    "age":  schema.Int(),
//	    "tags": schema.Slice(schema.String()),
//	}
//	if err := schema.Validate(s, ctx); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        fmt.Println(e)
//	    }
//	}
//
// Parse converts the raw text a person typed into the declared type, which
// is how the interactive runner turns answers into typed context values.
package schema
