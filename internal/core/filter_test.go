package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func testSessions() []output.Session {
	return []output.Session{
		{ID: "sess_1", URL: "https://github.com/a", State: "collapsed", DisplayIndex: 0, X: 1800, Y: 40, CreatedAt: testNow.Add(-10 * time.Minute)},
		{ID: "sess_2", URL: "https://docs.example/Guide", State: "expanded", DisplayIndex: 1, X: 4300, Y: 40, CreatedAt: testNow.Add(-48 * time.Hour)},
		{ID: "sess_3", URL: "https://login.example", State: "expanded", Popup: true, CreatedAt: testNow.Add(-time.Minute)},
		{ID: "custom", URL: "https://github.com/b", State: "saved", DisplayIndex: 0, X: 1800, Y: 120},
	}
}

func ids(sessions []output.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	sessions := testSessions()

	assert.Len(t, Filter(sessions, FilterOptions{}), 4)
	assert.Equal(t, []string{"sess_2", "sess_3"}, ids(Filter(sessions, FilterOptions{State: "expanded"})))
	assert.Equal(t, []string{"sess_1", "sess_2"}, ids(Filter(sessions, FilterOptions{Limit: 2})))
}

func TestFilter_SinceSkipsUndated(t *testing.T) {
	recent := output.Session{ID: "new", CreatedAt: time.Now().Add(-time.Minute)}
	old := output.Session{ID: "old", CreatedAt: time.Now().Add(-72 * time.Hour)}
	undated := output.Session{ID: "undated"}

	got := Filter([]output.Session{recent, old, undated}, FilterOptions{Since: time.Hour})
	assert.Equal(t, []string{"new"}, ids(got))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"0", 0, false},
		{"", 0, false},
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"xd", 0, true},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"missing operator", "state"},
		{"unknown field", "colour=red"},
		{"bad display", "display=left"},
		{"bad regex", "url~=("},
		{"bad age", "age>soon"},
		{"leading operator", "=expanded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestFilterWithExpr(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"empty", "", []string{"sess_1", "sess_2", "sess_3", "custom"}},
		{"state equal", "state=expanded", []string{"sess_2", "sess_3"}},
		{"state not equal", "state!=expanded", []string{"sess_1", "custom"}},
		{"host", "host=github.com", []string{"sess_1", "custom"}},
		{"url contains is case-insensitive", "url~guide", []string{"sess_2"}},
		{"url regex", "url~=^https://github\\.com/b$", []string{"custom"}},
		{"display", "display>=1", []string{"sess_2"}},
		{"popup", "popup=true", []string{"sess_3"}},
		{"age older", "age>1d", []string{"sess_2"}},
		{"age newer skips undated", "age<1h", []string{"sess_1", "sess_3"}},
		{"combined", "host=github.com,state=collapsed", []string{"sess_1"}},
		{"field alias", "site=login.example", []string{"sess_3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			expr.now = func() time.Time { return testNow }

			assert.Equal(t, tt.want, ids(FilterWithExpr(testSessions(), expr)))
		})
	}
}

func TestHost(t *testing.T) {
	assert.Equal(t, "github.com", Host("https://github.com/a"))
	assert.Equal(t, "about:blank", Host("about:blank"))
	assert.Equal(t, "", Host(""))
}
