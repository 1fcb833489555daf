// Package schema validates variable values against their declared kind.
//
// Every variable of the store declares a kind (number, boolean, text, select,
// multi_select, date). The engine relies on that declaration to choose operator
// semantics, so values seeded from the project or overridden by the user are
// checked here first.
//
// Basic usage:
//
//	typ, err := schema.ForKind(domain.KindSelect, []string{"friend", "enemy"})
//	if err != nil {
//	    // unknown kind
//	}
//	if err := typ.Validate("friend"); err != nil {
//	    // value does not fit the kind
//	}
//
// Values are normalised before validation: integers become float64 and []any
// of strings become []string, matching what JSON and YAML decoders produce.
package schema
