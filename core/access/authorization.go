/*Package access provides utilities for access control

An Authorization is added to the request context by the JWT middleware and
retrieved with

	auth := access.AuthorizationFromContext(ctx)
*/
package access

import "context"

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

// the predefined context key
const (
	contextKeyAuthorization contextKey = "_authorization_"
)

// Authorization carries the identity and the roles of an authenticated caller
type Authorization struct {
	Identity string   `json:"identity"`
	Roles    []string `json:"roles"`
}

// HasRole returns true if the authorization contains the requested role;
// otherwise it returns false.
func (a *Authorization) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, hasRole := range a.Roles {
		if role == hasRole {
			return true
		}
	}
	return false
}

// HasAnyRole returns true if the authorization contains at least one of the roles.
// An empty list of roles is always satisfied.
func (a *Authorization) HasAnyRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}

// ContextWithAuthorization returns a new context with the given authorization
func ContextWithAuthorization(ctx context.Context, auth *Authorization) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, auth)
}

// AuthorizationFromContext retrieves an authorization from the context, or nil
func AuthorizationFromContext(ctx context.Context) *Authorization {
	auth, _ := ctx.Value(contextKeyAuthorization).(*Authorization)
	return auth
}
