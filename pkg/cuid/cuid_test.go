package cuid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateID_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := CreateID()
		require.Len(t, id, DefaultLength)
		require.True(t, IsValid(id), "invalid id %q", id)
	}
}

func TestCreateID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		id := CreateID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
}

func TestNew_Length(t *testing.T) {
	g, err := New(10)
	require.NoError(t, err)
	assert.Len(t, g.CreateID(), 10)

	_, err = New(1)
	assert.Error(t, err)
	_, err = New(33)
	assert.Error(t, err)
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"tz4a98xxat96iws9zmbrgj3a", true},
		{"a1", true},
		{"", false},
		{"a", false},
		{"1abc", false},
		{"Tz4a98xxat96iws9zmbrgj3a", false},
		{"tz4a98xx-t96iws9zmbrgj3a", false},
		{"abcdefghijklmnopqrstuvwxyz0123456", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, IsValid(tc.in), tc.in)
	}
}
