package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	assert.Equal(t, Anonymous, FromContext(context.Background()))

	u := User{ID: "jdoe", Groups: []string{"cds-admins"}}
	ctx := WithUser(context.Background(), u)
	assert.Equal(t, u, FromContext(ctx))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Anonymous.Key(), User{}.Key())
	assert.NotEqual(t, User{ID: "jdoe"}.Key(), Anonymous.Key())

	// An id that spells out another user's id and groups stays distinct.
	staff := User{ID: "eve", Groups: []string{"staff"}}
	for _, id := range []string{"eve|staff", staff.Key(), `eve"["staff"]`} {
		assert.NotEqual(t, staff.Key(), User{ID: id}.Key(), id)
	}
	assert.NotEqual(t, User{ID: "a", Groups: []string{"b,c"}}.Key(), User{ID: "a", Groups: []string{"b", "c"}}.Key())

	a := User{ID: "jdoe", Groups: []string{"b", "a", "b"}}
	b := User{ID: "jdoe", Groups: []string{"a", "b"}}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), User{ID: "jdoe", Groups: []string{"a"}}.Key())

	// Key must not reorder the caller's slice.
	assert.Equal(t, []string{"b", "a", "b"}, a.Groups)
}

func TestInGroup(t *testing.T) {
	u := User{ID: "jdoe", Groups: []string{"theory", "cds-admins"}}
	assert.True(t, u.InGroup("cds-admins"))
	assert.True(t, u.InGroup("x", "theory"))
	assert.False(t, u.InGroup("x"))
	assert.False(t, Anonymous.InGroup("cds-admins"))
	assert.True(t, User{}.IsAnonymous())
}
