package input

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
	"github.com/jmylchreest/bubbleshell/internal/dbus"
	"github.com/jmylchreest/bubbleshell/internal/model"
	"github.com/jmylchreest/bubbleshell/internal/store"
)

func TestStdinAdapter_Name(t *testing.T) {
	assert.Equal(t, "stdin", NewStdinAdapter().Name())
}

func TestStdinAdapter_ReadIDs(t *testing.T) {
	in := strings.Join([]string{
		"sess_01",
		"",
		"1 | 5 minutes ago | collapsed | https://a.example | sess_02",
		"  sess_01  ",
	}, "\n")

	ids, err := NewStdinAdapterWithReader(strings.NewReader(in)).ReadIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"sess_01", "sess_02"}, ids)
}

func TestStdinAdapter_ReadIDsCustomSeparator(t *testing.T) {
	in := "collapsed\thttps://a.example\tsess_03\n"

	ids, err := NewStdinAdapterWithReader(strings.NewReader(in)).WithSeparator("\t").ReadIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"sess_03"}, ids)
}

func TestStdinAdapter_ReadURLs(t *testing.T) {
	in := "https://a.example\n# comment\n\n\thttps://b.example\x07\n"

	urls, err := NewStdinAdapterWithReader(strings.NewReader(in)).ReadURLs()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, urls)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("boom")
}

func TestStdinAdapter_ReadError(t *testing.T) {
	_, err := NewStdinAdapterWithReader(failingReader{}).ReadIDs()
	require.Error(t, err)

	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "stdin", adapterErr.Source)
	assert.Contains(t, err.Error(), "boom")
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"  padded  ", "padded"},
		{"bell\x07here", "bell here"},
		{"tab\there", "tab\there"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeString(tt.input))
	}
}

func TestFileSource_List(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	id, err := model.NewSessionID()
	require.NoError(t, err)
	require.NoError(t, store.NewJSONPersistence(path, nil).SaveAll([]model.Record{
		{ID: id, URL: "https://a.example", Position: model.Point{X: 5, Y: 6}},
		{ID: "sess_b", URL: "https://b.example", DisplayIndex: 1},
	}))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	assert.Equal(t, "file", src.Name())
	assert.Equal(t, path, src.Path())

	sessions, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, id.String(), sessions[0].ID)
	assert.Equal(t, output.StateSaved, sessions[0].State)
	assert.Equal(t, 5, sessions[0].X)
	assert.False(t, sessions[0].CreatedAt.IsZero())
	assert.Equal(t, 1, sessions[1].DisplayIndex)
}

func TestFileSource_ListMissingFileIsEmpty(t *testing.T) {
	src, err := NewFileSource(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, err)

	sessions, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestFileSource_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	p := store.NewJSONPersistence(path, nil)
	require.NoError(t, p.SaveAll(nil))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	ticks, err := src.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, p.SaveAll([]model.Record{{ID: "sess_a", URL: "https://a.example"}}))

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("no change observed")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ticks:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFromInfo(t *testing.T) {
	id, err := model.NewSessionID()
	require.NoError(t, err)

	s := FromInfo(dbus.SessionInfo{
		ID:           id.String(),
		URL:          "https://a.example",
		State:        "expanded",
		X:            10,
		Y:            20,
		DisplayIndex: 1,
	})

	assert.Equal(t, id.String(), s.ID)
	assert.Equal(t, "expanded", s.State)
	assert.Equal(t, 10, s.X)
	assert.Equal(t, 20, s.Y)
	assert.Equal(t, 1, s.DisplayIndex)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestAdapterError(t *testing.T) {
	inner := errors.New("inner")
	err := &AdapterError{Source: "file", Message: "outer", Err: inner}
	assert.Equal(t, "outer: inner", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "bare", (&AdapterError{Message: "bare"}).Error())
}
