package credential

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapBackend struct {
	values map[string]string
	failOn string
}

func (m *mapBackend) Get(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapBackend) Set(key, value string) error {
	if m.failOn == "set" {
		return errors.New("quota exceeded")
	}
	m.values[key] = value
	return nil
}

func (m *mapBackend) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func TestSlot_PersistsUnderOwnKey(t *testing.T) {
	b := &mapBackend{values: map[string]string{}}
	s := NewSlot(b, "tessera_secure_token")

	require.NoError(t, s.Set("  ghp_abc  "))
	assert.Equal(t, "ghp_abc", s.Token())
	assert.Equal(t, map[string]string{"tessera_secure_token": "ghp_abc"}, b.values)

	reloaded := NewSlot(b, "tessera_secure_token")
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.Present())

	require.NoError(t, reloaded.Clear())
	assert.False(t, reloaded.Present())
	assert.Empty(t, b.values)
}

func TestSlot_LoadAbsentIsEmpty(t *testing.T) {
	s := NewSlot(&mapBackend{values: map[string]string{}}, "k")
	require.NoError(t, s.Load())
	assert.Equal(t, "", s.Token())
}

func TestSlot_SetKeepsMemoryValueWhenPersistFails(t *testing.T) {
	s := NewSlot(&mapBackend{values: map[string]string{}, failOn: "set"}, "k")
	assert.Error(t, s.Set("tok"))
	assert.Equal(t, "tok", s.Token())
}

func TestSlot_NilBackend(t *testing.T) {
	s := NewSlot(nil, "k")
	require.NoError(t, s.Load())
	require.NoError(t, s.Set("tok"))
	assert.Equal(t, "tok", s.Token())
}
