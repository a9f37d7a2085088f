package rowperm

import (
	"strings"

	"github.com/tourze/row-permission/models"
)

// Kind is one of the closed set of permission kinds a record can carry.
// The underlying strings are the external vocabulary accepted from callers
// and the column names used in generated filter subqueries.
type Kind string

const (
	KindView   Kind = models.PermissionView
	KindEdit   Kind = models.PermissionEdit
	KindUnlink Kind = models.PermissionUnlink
	KindDeny   Kind = models.PermissionDeny
)

// Kinds returns every recognised kind, deny included.
func Kinds() []Kind {
	return []Kind{KindView, KindEdit, KindUnlink, KindDeny}
}

// ActionKinds returns the kinds that grant an action. Deny is excluded: it
// forbids rather than grants.
func ActionKinds() []Kind {
	return []Kind{KindView, KindEdit, KindUnlink}
}

// ParseKind maps a free-form string onto the closed kind set.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindView:
		return KindView, true
	case KindEdit:
		return KindEdit, true
	case KindUnlink:
		return KindUnlink, true
	case KindDeny:
		return KindDeny, true
	default:
		return "", false
	}
}

// Recognised reports whether the kind belongs to the closed set.
func (k Kind) Recognised() bool {
	switch k {
	case KindView, KindEdit, KindUnlink, KindDeny:
		return true
	default:
		return false
	}
}

// Actionable reports whether the kind names a grantable action.
func (k Kind) Actionable() bool {
	switch k {
	case KindView, KindEdit, KindUnlink:
		return true
	default:
		return false
	}
}

// Column returns the database column holding this kind's flag. It only
// returns values from a fixed set so the name is safe to splice into SQL.
func (k Kind) Column() (string, bool) {
	switch k {
	case KindView:
		return models.PermissionView, true
	case KindEdit:
		return models.PermissionEdit, true
	case KindUnlink:
		return models.PermissionUnlink, true
	case KindDeny:
		return models.PermissionDeny, true
	default:
		return "", false
	}
}

func (k Kind) String() string {
	return string(k)
}
