package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSlice(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		v, err := StringSlice{"u1", "u2"}.Value()
		require.NoError(t, err)
		assert.Equal(t, "u1,u2", v)

		var s StringSlice
		require.NoError(t, s.Scan("u1,u2"))
		assert.Equal(t, StringSlice{"u1", "u2"}, s)
	})

	t.Run("empty set stores and loads as empty", func(t *testing.T) {
		v, err := StringSlice{}.Value()
		require.NoError(t, err)
		assert.Equal(t, "", v)

		var s StringSlice
		require.NoError(t, s.Scan(""))
		assert.Empty(t, s)

		require.NoError(t, s.Scan(nil))
		assert.Empty(t, s)
	})

	t.Run("elements with commas are refused", func(t *testing.T) {
		_, err := StringSlice{"a,b"}.Value()
		assert.Error(t, err)
	})

	t.Run("membership", func(t *testing.T) {
		s := StringSlice{"u1", "u2"}
		assert.True(t, s.Has("u1"))
		assert.False(t, s.Has("u3"))
	})
}
