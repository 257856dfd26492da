package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupByID(t *testing.T) {
	sessions := testSessions()

	got := LookupByID(sessions, "sess_2")
	require.NotNil(t, got)
	assert.Equal(t, "https://docs.example/Guide", got.URL)

	assert.Nil(t, LookupByID(sessions, "missing"))
}

func TestLookupByIndex(t *testing.T) {
	sessions := testSessions()

	tests := []struct {
		index int
		want  string
	}{
		{1, "sess_1"},
		{4, "custom"},
		{0, ""},
		{5, ""},
		{-1, ""},
	}

	for _, tt := range tests {
		got := LookupByIndex(sessions, tt.index)
		if tt.want == "" {
			assert.Nil(t, got, "index %d", tt.index)
			continue
		}
		require.NotNil(t, got, "index %d", tt.index)
		assert.Equal(t, tt.want, got.ID)
	}
}

func TestLookup(t *testing.T) {
	sessions := testSessions()

	s, err := Lookup(sessions, "2")
	require.NoError(t, err)
	assert.Equal(t, "sess_2", s.ID)

	s, err = Lookup(sessions, " custom ")
	require.NoError(t, err)
	assert.Equal(t, "custom", s.ID)

	_, err = Lookup(sessions, "9")
	assert.ErrorContains(t, err, "out of range")

	_, err = Lookup(sessions, "sess_9")
	assert.ErrorContains(t, err, "not found")
}

func TestSearch(t *testing.T) {
	sessions := testSessions()

	assert.Len(t, Search(sessions, ""), 4)
	assert.Equal(t, []string{"sess_1", "custom"}, ids(Search(sessions, "GITHUB")))
	assert.Equal(t, []string{"sess_3"}, ids(Search(sessions, "sess_3")))
	assert.Empty(t, Search(sessions, "nothing"))
}

func TestUniqueHosts(t *testing.T) {
	assert.Equal(t, []string{"docs.example", "github.com", "login.example"}, UniqueHosts(testSessions()))
	assert.Empty(t, UniqueHosts(nil))
}
