package auth

import (
	"strconv"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
)

type requirementKind uint8

const (
	kindPublic requirementKind = iota + 1
	kindRoleIn
	kindSelfOrRole
)

// Requirement is a declarative access rule attached to a route.  Build
// one with Public, RoleIn or SelfOrRole; the zero value denies everyone.
type Requirement struct {
	kind  requirementKind
	roles []model.Role
	role  model.Role
	param string
}

// Public admits every authenticated identity with a known role.
func Public() Requirement { return Requirement{kind: kindPublic} }

// RoleIn admits identities holding one of roles.
func RoleIn(roles ...model.Role) Requirement {
	return Requirement{kind: kindRoleIn, roles: append([]model.Role(nil), roles...)}
}

// SelfOrRole admits identities holding role, or whose ID equals the
// numeric route parameter named param.
func SelfOrRole(role model.Role, param string) Requirement {
	return Requirement{kind: kindSelfOrRole, role: role, param: param}
}

// Param is the route parameter carrying the target id, "" when the
// requirement does not use one.
func (r Requirement) Param() string { return r.param }

// DenyReason explains a denied decision.
type DenyReason string

const (
	ReasonForbidden       DenyReason = "forbidden"
	ReasonMalformedTarget DenyReason = "malformed_target"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var allow = Decision{Allowed: true}

func deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// Err converts a denied decision into the matching access error and
// returns nil for an allowed one.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonMalformedTarget:
		return apperr.ErrMalformedTarget
	default:
		return apperr.ErrForbidden
	}
}

// Authorize decides whether id satisfies req.  target is the raw value of
// the route parameter named by req.Param().  It performs no I/O.
//
// An identity whose role is not one of the known roles is denied for
// every requirement, Public included.
func Authorize(id Identity, req Requirement, target string) Decision {
	switch id.Role {
	case model.RoleAdmin, model.RoleUser, model.RoleStoreOwner:
	default:
		return deny(ReasonForbidden)
	}

	switch req.kind {
	case kindPublic:
		return allow
	case kindRoleIn:
		for _, r := range req.roles {
			if r == id.Role {
				return allow
			}
		}
		return deny(ReasonForbidden)
	case kindSelfOrRole:
		if req.role.Valid() && id.Role == req.role {
			return allow
		}
		n, err := strconv.ParseUint(target, 10, 64)
		if err != nil {
			return deny(ReasonMalformedTarget)
		}
		if n == id.ID {
			return allow
		}
		return deny(ReasonForbidden)
	}
	return deny(ReasonForbidden)
}
