package keyring

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
)

func testKeys() []*APIKey {
	return []*APIKey{
		{ID: "k1", Key: "key-one", Secret: "s1", Passphrase: "p1"},
		{ID: "k2", Key: "key-two", Secret: "s2", Passphrase: "p2"},
		{ID: "k3", Key: "key-three", Secret: "s3", Passphrase: "p3"},
	}
}

func TestEmptyRing(t *testing.T) {
	ring := New(RotateRoundRobin)

	_, err := ring.Current()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestRoundRobinAdvancesOnUse(t *testing.T) {
	ring := New(RotateRoundRobin, testKeys()...)

	key, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k1", key.ID)

	ring.MarkUsed()
	key, err = ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k2", key.ID)
	assert.False(t, ring.keys[0].LastUsed.IsZero())

	ring.MarkUsed()
	ring.MarkUsed()
	key, err = ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k1", key.ID)
}

func TestRotateOnError(t *testing.T) {
	ring := New(RotateOnError, testKeys()...)

	ring.OnError(errors.New("boom"))
	key, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k2", key.ID)
	assert.Equal(t, 1, ring.keys[0].ErrorCount)
}

func TestRotateOnRateLimit(t *testing.T) {
	ring := New(RotateOnRateLimit, testKeys()...)

	ring.OnError(core.NewAPIError(http.StatusBadRequest, "bad request"))
	key, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k1", key.ID)

	ring.OnError(core.NewAPIError(http.StatusTooManyRequests, "rate limit exceeded"))
	key, err = ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k2", key.ID)
}

func TestDisabledKeysSkipped(t *testing.T) {
	ring := New(RotateRoundRobin, testKeys()...)

	ring.Disable("k1")
	key, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k2", key.ID)

	ring.Enable("k1")
	ring.Disable("k2")
	ring.Disable("k3")
	key, err = ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "k1", key.ID)
}

func TestAllKeysDisabled(t *testing.T) {
	ring := New(RotateRoundRobin, testKeys()...)
	ring.Disable("k1")
	ring.Disable("k2")
	ring.Disable("k3")

	_, err := ring.Current()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestAddRemove(t *testing.T) {
	ring := New(RotateRoundRobin, testKeys()...)
	require.Equal(t, 3, ring.Len())

	ring.Add(&APIKey{ID: "k4", Key: "key-four"})
	assert.Equal(t, 4, ring.Len())

	assert.True(t, ring.Remove("k4"))
	assert.False(t, ring.Remove("k4"))
	assert.Equal(t, 3, ring.Len())
}

func TestStringMasksKey(t *testing.T) {
	key := &APIKey{ID: "k1", Key: "abcdefghijklmnop"}
	s := key.String()

	assert.Contains(t, s, "abcd...mnop")
	assert.NotContains(t, s, "abcdefghijklmnop")
}
