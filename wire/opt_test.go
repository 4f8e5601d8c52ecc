package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptStates(t *testing.T) {
	var absent Opt[string]
	assert.True(t, absent.IsAbsent())
	assert.False(t, absent.IsNull())
	_, ok := absent.Get()
	assert.False(t, ok)

	null := ExplicitNull[string]()
	assert.True(t, null.IsNull())
	assert.False(t, null.IsAbsent())

	some := Some("alice")
	v, ok := some.Get()
	require.True(t, ok)
	assert.Equal(t, "alice", v)
	assert.Equal(t, Present, some.State())

	assert.NotEqual(t, absent, null)
}

func TestOptOr(t *testing.T) {
	assert.Equal(t, "fallback", Opt[string]{}.Or("fallback"))
	assert.Equal(t, "fallback", ExplicitNull[string]().Or("fallback"))
	assert.Equal(t, "x", Some("x").Or("fallback"))
}

func TestOptUnmarshalStruct(t *testing.T) {
	type user struct {
		ID       int64       `json:"id"`
		Username Opt[string] `json:"username,omitzero"`
	}

	var omitted user
	require.NoError(t, json.Unmarshal([]byte(`{"id":1}`), &omitted))
	assert.True(t, omitted.Username.IsAbsent())

	var nulled user
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"username":null}`), &nulled))
	assert.True(t, nulled.Username.IsNull())

	var present user
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"username":"bob"}`), &present))
	name, ok := present.Username.Get()
	require.True(t, ok)
	assert.Equal(t, "bob", name)
}

func TestOptMarshalOmitzero(t *testing.T) {
	type user struct {
		ID       int64       `json:"id"`
		Username Opt[string] `json:"username,omitzero"`
	}

	raw, err := json.Marshal(user{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(raw))

	raw, err = json.Marshal(user{ID: 1, Username: ExplicitNull[string]()})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"username":null}`, string(raw))

	raw, err = json.Marshal(user{ID: 1, Username: Some("bob")})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"username":"bob"}`, string(raw))
}
