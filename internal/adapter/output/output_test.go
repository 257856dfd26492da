package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testOptions() FormatterOptions {
	opts := DefaultFormatterOptions()
	opts.now = func() time.Time { return fixedNow }
	return opts
}

func testSessions() []Session {
	return []Session{
		{
			ID:           "sess_01",
			URL:          "https://news.example/today",
			State:        "collapsed",
			X:            1800,
			Y:            40,
			DisplayIndex: 0,
			CreatedAt:    fixedNow.Add(-5 * time.Minute),
		},
		{
			ID:        "sess_02",
			URL:       "https://login.example",
			State:     "expanded",
			Popup:     true,
			CreatedAt: fixedNow.Add(-2 * time.Hour),
		},
	}
}

func TestFromRecord(t *testing.T) {
	id, err := model.NewSessionID()
	require.NoError(t, err)

	s := FromRecord(model.Record{
		ID:           id,
		URL:          "https://a.example",
		Position:     model.Point{X: 10, Y: 20},
		DisplayIndex: 1,
	})

	assert.Equal(t, id.String(), s.ID)
	assert.Equal(t, StateSaved, s.State)
	assert.Equal(t, 10, s.X)
	assert.Equal(t, 20, s.Y)
	assert.Equal(t, 1, s.DisplayIndex)
	assert.WithinDuration(t, time.Now(), s.CreatedAt, time.Minute)

	// Hand-edited ids carry no timestamp
	assert.True(t, FromRecord(model.Record{ID: "custom"}).CreatedAt.IsZero())
}

func TestDmenuFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(testOptions()).Format(&buf, testSessions()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "1 | 5 minutes ago | collapsed | https://news.example/today | sess_01", lines[0])
	assert.Equal(t, "2 | 2 hours ago | expanded | https://login.example | sess_02", lines[1])
}

func TestDmenuFormatter_NoIndexCustomSeparator(t *testing.T) {
	opts := testOptions()
	opts.ShowIndex = false
	opts.ShowAge = false
	opts.Separator = "\t"

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testSessions()[:1]))
	assert.Equal(t, "collapsed\thttps://news.example/today\tsess_01\n", buf.String())
}

func TestDmenuFormatter_Template(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{stateIcon .Session.State}} {{truncate .Session.URL 12}} [{{.Age}}]"

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testSessions()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "● https://n... [5 minutes ago]", lines[0])
	assert.Equal(t, "▣ https://l... [2 hours ago]", lines[1])
}

func TestParseDmenuSelection(t *testing.T) {
	tests := []struct {
		name string
		line string
		sep  string
		want string
	}{
		{"default separator", "1 | 5 minutes ago | collapsed | https://a.example | sess_01", "", "sess_01"},
		{"tab separator", "collapsed\thttps://a.example\tsess_02\n", "\t", "sess_02"},
		{"bare id", "sess_03", " | ", "sess_03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDmenuSelection(tt.line, tt.sep))
		})
	}
}

func TestPlainFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(testOptions()).Format(&buf, testSessions()))

	out := buf.String()
	assert.Contains(t, out, "[1] collapsed  https://news.example/today (5 minutes ago)")
	assert.Contains(t, out, "sess_01 at 1800,40 on display 0")
	assert.Contains(t, out, "[2] expanded   https://login.example (2 hours ago)")
	// Popups have no bubble position
	assert.NotContains(t, out, "sess_02 at")
}

func TestPlainFormatter_Template(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{.Index}}:{{.Session.ID}}"

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testSessions()))
	assert.Equal(t, "1:sess_01\n2:sess_02\n", buf.String())
}

func TestPlainFormatter_InvalidTemplateFallsBack(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{.Session.ID"

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testSessions()[:1]))
	assert.Contains(t, buf.String(), "https://news.example/today")
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(testOptions()).Format(&buf, testSessions()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "sess_01", decoded[0]["id"])
	assert.Equal(t, float64(1800), decoded[0]["x"])
	assert.NotContains(t, decoded[0], "popup")
	assert.Equal(t, true, decoded[1]["popup"])
}

func TestJSONFormatter_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(testOptions()).Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter(testOptions()).Format(&buf, testSessions()))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "https://news.example/today", decoded[0]["url"])
	assert.Equal(t, "expanded", decoded[1]["state"])
}

func TestIDsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testSessions()))
	assert.Equal(t, "sess_01\nsess_02\n", buf.String())
}

func TestNewFormatter(t *testing.T) {
	opts := testOptions()
	assert.IsType(t, &PlainFormatter{}, NewFormatter("plain", opts))
	assert.IsType(t, &JSONFormatter{}, NewFormatter("json", opts))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter("yaml", opts))
	assert.IsType(t, &DmenuFormatter{}, NewFormatter("dmenu", opts))
	assert.IsType(t, &IDsFormatter{}, NewFormatter("ids", opts))
	assert.IsType(t, &PlainFormatter{}, NewFormatter("unknown", opts))
}

func TestFormatField(t *testing.T) {
	s := testSessions()[0]
	assert.Equal(t, "sess_01", FormatField(&s, "id"))
	assert.Equal(t, "https://news.example/today", FormatField(&s, "URL"))
	assert.Equal(t, "collapsed", FormatField(&s, "state"))
	assert.Equal(t, "1800,40", FormatField(&s, "pos"))
	assert.Equal(t, "0", FormatField(&s, "display"))
	assert.Equal(t, s.URL, FormatField(&s, "bogus"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 0))
	assert.Equal(t, "hello", truncate("hello", 5))
	assert.Equal(t, "he...", truncate("hello world", 5))
	assert.Equal(t, "he", truncate("hello", 2))
}
