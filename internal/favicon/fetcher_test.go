package favicon

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A minimal valid PNG header is enough for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func servePNG(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(pngBytes)
}

func TestFetch_LinkRelIcon(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html><head><link rel="shortcut icon" href="/static/icon.png"></head></html>`))
		},
		"/static/icon.png": servePNG,
		"/favicon.ico": func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		},
	})

	f := New(Options{Timeout: time.Second})
	img, err := f.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, srv.URL+"/static/icon.png", img.SourceURL)
	assert.Equal(t, pngBytes, img.Data)
}

func TestFetch_FallsBackToFaviconICO(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html><head><title>no icon</title></head></html>`))
		},
		"/favicon.ico": servePNG,
	})

	img, err := New(Options{}).Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/favicon.ico", img.SourceURL)
}

func TestFetch_PageErrorStillTriesFaviconICO(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/broken": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"/favicon.ico": servePNG,
	})

	img, err := New(Options{}).Fetch(context.Background(), srv.URL+"/broken")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/favicon.ico", img.SourceURL)
}

func TestFetch_NotFound(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(`<html></html>`))
		},
	})

	_, err := New(Options{}).Fetch(context.Background(), srv.URL+"/")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_RejectsNonImageAndOversized(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<link rel="icon" href="/big.png"><link rel="icon" href="/page.html">`))
		},
		"/big.png": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(bytes.Repeat([]byte{1}, 2048))
		},
		"/page.html": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>not an icon</html>"))
		},
		"/favicon.ico": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
	})

	_, err := New(Options{MaxBytes: 1024}).Fetch(context.Background(), srv.URL+"/")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	f := New(Options{})
	for _, u := range []string{"about:blank", "file:///etc/hosts", "data:text/html,hi"} {
		_, err := f.Fetch(context.Background(), u)
		assert.ErrorIs(t, err, ErrUnsupportedURL, u)
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Fetch(ctx, srv.URL+"/")
	assert.Error(t, err)
}

func TestCandidates_Ordering(t *testing.T) {
	html := `<html><head>
		<base href="https://cdn.example/assets/">
		<link rel="apple-touch-icon" href="touch.png">
		<link rel="stylesheet" href="site.css">
		<link rel="icon" type="image/svg+xml" href="icon.svg">
		<link rel="ICON" href="data:image/png;base64,AAAA">
		<link rel="alternate icon" href="/favicon-32.png">
		<link rel="icon" href="icon.svg">
	</head></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	base, _ := url.Parse("https://www.example/page")
	assert.Equal(t, []string{
		"https://cdn.example/assets/icon.svg",
		"https://cdn.example/favicon-32.png",
		"https://cdn.example/assets/touch.png",
	}, Candidates(doc, base))
}

func TestImageType(t *testing.T) {
	ct, ok := imageType("image/svg+xml; charset=utf-8", []byte("<svg/>"))
	assert.True(t, ok)
	assert.Equal(t, "image/svg+xml", ct)

	ct, ok = imageType("application/octet-stream", pngBytes)
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)

	_, ok = imageType("text/html", []byte("<html></html>"))
	assert.False(t, ok)
}
