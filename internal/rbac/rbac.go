// Package rbac resolves role-based access decisions from two sources: role
// claims carried in a JWT (implicit access) and persisted role assignments
// (explicit access). A role applies to zero or more contexts, where a context
// is usually the primary identifier of some resource.
package rbac

import (
	"context"
	"strings"
)

// AllAccessContext grants access to every resource context.
const AllAccessContext = "*"

// FeatureRoleMapping maps a system-wide role name to the feature role names
// it confers. The mapping usually comes from project configuration:
//
//	feature_role_mapping:
//	  enterprise_admin: [coupon-management, data-api-access]
//	  enterprise_learner: []
//	  coupon-manager: [coupon-management]
type FeatureRoleMapping map[string][]string

// FeatureRoles maps a feature role name to the contexts for which it applies.
type FeatureRoles map[string][]string

// Assignment is one persisted grant of a role to a user. Contexts may be
// empty (role applies with no context restriction recorded), hold a single
// context, or hold several.
type Assignment struct {
	UserID   string
	Role     string
	Contexts []string
}

// AssignmentReader is the read side of assignment storage.
type AssignmentReader interface {
	// AssignmentsFor returns every assignment of roleName to userID.
	AssignmentsFor(ctx context.Context, userID, roleName string) ([]Assignment, error)
}

// AssignmentProvider yields the assignments that should be encoded into a
// user's role claims at token-issuance time. Register one provider per
// system-wide role source.
type AssignmentProvider interface {
	Assignments(ctx context.Context, userID string) ([]Assignment, error)
}

// RolesFromClaims expands raw role claim entries into feature roles. Each
// entry has the form "system-role" or "system-role:context"; the split uses
// the first colon only, because contexts may themselves contain colons.
// Entries naming unmapped system roles are ignored.
func RolesFromClaims(mapping FeatureRoleMapping, claims []string) FeatureRoles {
	features := FeatureRoles{}
	for _, entry := range claims {
		roleInClaim, contextInClaim, _ := strings.Cut(entry, ":")
		for _, feature := range mapping[roleInClaim] {
			features[feature] = append(features[feature], contextInClaim)
		}
	}
	return features
}

// HasImplicitAccess checks a user's access by mapping the role claims found
// in their JWT to feature roles. An empty requested resourceContext means any
// grant of the role suffices; otherwise the grant must name the requested
// context or the all-access context.
func HasImplicitAccess(mapping FeatureRoleMapping, claims []string, roleName, resourceContext string) bool {
	if len(claims) == 0 {
		return false
	}

	features := RolesFromClaims(mapping, claims)
	contexts, ok := features[roleName]
	if !ok {
		return false
	}
	if resourceContext == "" {
		return true
	}
	for _, c := range contexts {
		if c == resourceContext || c == AllAccessContext {
			return true
		}
	}
	return false
}

// HasExplicitAccess checks whether a role assignment grants userID the named
// role. An empty userID is treated as anonymous and never granted. The
// contexts of every matching assignment are pooled before evaluation, so
// multi-context assignments and the all-access context both work.
func HasExplicitAccess(ctx context.Context, store AssignmentReader, userID, roleName, resourceContext string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	assignments, err := store.AssignmentsFor(ctx, userID, roleName)
	if err != nil {
		return false, err
	}
	if len(assignments) == 0 {
		return false, nil
	}
	if resourceContext == "" {
		return true, nil
	}

	assigned := map[string]struct{}{}
	for _, a := range assignments {
		for _, c := range a.Contexts {
			assigned[c] = struct{}{}
		}
	}
	if _, ok := assigned[resourceContext]; ok {
		return true, nil
	}
	_, ok := assigned[AllAccessContext]
	return ok, nil
}

// RoleClaims builds the role claim entries for a user from the registered
// providers, in provider order. A contextless assignment contributes the bare
// role string; otherwise one "role:context" entry is emitted per context.
func RoleClaims(ctx context.Context, userID string, providers ...AssignmentProvider) ([]string, error) {
	var claims []string
	for _, provider := range providers {
		assignments, err := provider.Assignments(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, a := range assignments {
			if len(a.Contexts) == 0 {
				claims = append(claims, a.Role)
				continue
			}
			for _, c := range a.Contexts {
				claims = append(claims, a.Role+":"+c)
			}
		}
	}
	return claims, nil
}

// Authorizer bundles the two access sources so callers can ask a single
// question. Implicit access is consulted first because it needs no IO.
type Authorizer struct {
	Mapping FeatureRoleMapping
	Store   AssignmentReader
}

// HasAccess reports whether the user holds roleName for resourceContext via
// either their JWT claims or a persisted assignment.
func (a *Authorizer) HasAccess(ctx context.Context, claims []string, userID, roleName, resourceContext string) (bool, error) {
	if HasImplicitAccess(a.Mapping, claims, roleName, resourceContext) {
		return true, nil
	}
	if a.Store == nil {
		return false, nil
	}
	return HasExplicitAccess(ctx, a.Store, userID, roleName, resourceContext)
}
