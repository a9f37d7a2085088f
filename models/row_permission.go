package models

import (
	"fmt"

	"gorm.io/datatypes"
)

// Permission kind vocabulary shared with callers. The same strings double as
// column names in the generated filter subqueries.
const (
	PermissionView   = "view"
	PermissionEdit   = "edit"
	PermissionUnlink = "unlink"
	PermissionDeny   = "deny"
)

// RowPermission stores a per-(user, entity instance) grant. It supplements
// role-based access control with row-level security: each record gates
// view/edit/unlink access to one entity instance for one user, and the deny
// flag force-denies every action regardless of the positive flags.
//
// At most one record exists per (entity_class, entity_id, user_id) triple.
type RowPermission struct {
	BaseModel

	EntityClass string `gorm:"type:varchar(255);not null;index;uniqueIndex:idx_row_permission_uniq,priority:1" json:"entity_class"`
	EntityID    string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_row_permission_uniq,priority:2" json:"entity_id"`
	UserID      string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_row_permission_uniq,priority:3" json:"user_id"`

	Deny   bool `gorm:"not null;default:false" json:"deny"`
	View   bool `gorm:"not null;default:false" json:"view"`
	Edit   bool `gorm:"not null;default:false" json:"edit"`
	Unlink bool `gorm:"not null;default:false" json:"unlink"`

	// Valid soft-disables the record. A record with Valid=false behaves as
	// if it did not exist, for the deny check and the grant checks alike.
	Valid bool `gorm:"not null;default:false;index" json:"valid"`

	Remark    string         `gorm:"type:text" json:"remark,omitempty"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	GrantedBy *string        `gorm:"type:varchar(64);index" json:"granted_by,omitempty"`
}

// TableName overrides the default table name for GORM.
func (RowPermission) TableName() string {
	return "row_permissions"
}

// HasPermission reports whether this record allows the named action.
// Deny wins over everything, then an invalid record allows nothing, and only
// then is the individual flag consulted. Unknown kinds are never allowed.
func (p *RowPermission) HasPermission(kind string) bool {
	if p.Deny {
		return false
	}
	if !p.Valid {
		return false
	}

	switch kind {
	case PermissionView:
		return p.View
	case PermissionEdit:
		return p.Edit
	case PermissionUnlink:
		return p.Unlink
	default:
		return false
	}
}

func (p *RowPermission) String() string {
	user := p.UserID
	if user == "" {
		user = "anonymous"
	}
	return fmt.Sprintf("RowPermission[%s:%s:%s]", p.EntityClass, p.EntityID, user)
}
