package rowperm

import (
	"reflect"
)

// Subject is the identity the permission records are keyed by. Any user
// value exposing a stable string identifier satisfies it; the identity
// subsystem owns the rest of the user model.
type Subject interface {
	UserIdentifier() string
}

// Identifiable is the minimal contract a protected entity must satisfy:
// a stable instance identifier convertible to string.
type Identifiable interface {
	EntityID() string
}

// ClassNamer lets an entity supply its canonical type name explicitly.
// Wrapper or decorator types should implement it so permissions resolve
// against the underlying logical type rather than the wrapper.
type ClassNamer interface {
	EntityClass() string
}

// entityClassOf resolves the canonical type name of an entity. An explicit
// ClassNamer wins; otherwise the name is derived from the dynamic type with
// pointers unwrapped, yielding "pkg.Type".
func entityClassOf(entity any) string {
	if namer, ok := entity.(ClassNamer); ok {
		if name := namer.EntityClass(); name != "" {
			return name
		}
	}

	t := reflect.TypeOf(entity)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	// reflect renders named types as "pkg.Type" with the declared package
	// name, which stays stable across module renames and vendoring.
	return t.String()
}
