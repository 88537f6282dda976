// Package auth carries the identity a query is compiled for. It does not
// authenticate anybody: callers put a User on the context and enhancers read
// its groups.
package auth

import (
	"context"
	"fmt"
	"slices"
)

// User is the requesting identity.
type User struct {
	ID     string
	Groups []string
}

// Anonymous is used when no user is supplied.
var Anonymous = User{ID: "anonymous"}

// IsAnonymous reports whether u carries no identity.
func (u User) IsAnonymous() bool {
	return u.ID == "" || u.ID == Anonymous.ID
}

// InGroup reports membership in any of groups.
func (u User) InGroup(groups ...string) bool {
	for _, g := range groups {
		if slices.Contains(u.Groups, g) {
			return true
		}
	}
	return false
}

// Key identifies u for caching compiled trees. Two users with the same id
// but different groups get different keys. The id and every group are
// quoted, so no id can pass for an id plus groups.
func (u User) Key() string {
	id := u.ID
	if u.IsAnonymous() {
		id = Anonymous.ID
	}
	groups := slices.Clone(u.Groups)
	slices.Sort(groups)
	return fmt.Sprintf("%q%q", id, slices.Compact(groups))
}

type ctxKey struct{}

// WithUser attaches u to ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the ambient user, or Anonymous.
func FromContext(ctx context.Context) User {
	if u, ok := ctx.Value(ctxKey{}).(User); ok {
		return u
	}
	return Anonymous
}
