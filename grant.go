package rowperm

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// GrantRequest describes a grant for one (user, entity) pair. Each flag is
// tri-state: nil leaves the stored flag untouched, while true/false set it
// explicitly. This is what lets "grant edit" coexist with an earlier
// "grant view" on the same record.
type GrantRequest struct {
	User   Subject
	Entity any

	View   *bool
	Edit   *bool
	Unlink *bool
	Deny   *bool

	Remark    *string
	GrantedBy *string
	Metadata  datatypes.JSON
}

// NewGrantRequest builds an empty request for the given user and entity.
func NewGrantRequest(user Subject, entity any) GrantRequest {
	return GrantRequest{User: user, Entity: entity}
}

// GrantFromFlags builds a request from the external flag vocabulary.
// Only the kinds present in the map are applied; unrecognised keys are
// ignored so free-form caller input cannot flip unrelated flags.
func GrantFromFlags(user Subject, entity any, flags map[Kind]bool) GrantRequest {
	request := NewGrantRequest(user, entity)

	for kind, value := range flags {
		v := value
		switch kind {
		case KindView:
			request.View = &v
		case KindEdit:
			request.Edit = &v
		case KindUnlink:
			request.Unlink = &v
		case KindDeny:
			request.Deny = &v
		}
	}

	return request
}

// WithRemark attaches a free-text annotation to the request.
func (r GrantRequest) WithRemark(remark string) GrantRequest {
	r.Remark = &remark
	return r
}

// WithGrantedBy records which subject issued the grant.
func (r GrantRequest) WithGrantedBy(granter Subject) GrantRequest {
	if granter != nil {
		id := granter.UserIdentifier()
		r.GrantedBy = &id
	}
	return r
}

// WithMetadata attaches structured context to the request, such as the
// workflow or ticket that produced the grant. Unmarshalable values leave the
// stored metadata untouched.
func (r GrantRequest) WithMetadata(metadata map[string]any) GrantRequest {
	if len(metadata) == 0 {
		return r
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return r
	}
	r.Metadata = datatypes.JSON(encoded)
	return r
}

// Bool is a convenience for building tri-state flags in literals.
func Bool(v bool) *bool {
	return &v
}
