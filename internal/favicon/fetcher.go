// Package favicon resolves and downloads site icons for session bubbles.
package favicon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultMaxBytes  = 512 * 1024
	DefaultUserAgent = "bubbleshell/1.0"

	maxPageBytes   = 1 << 20
	maxConcurrency = 4
	maxRedirects   = 5
)

// Sentinel errors.
var (
	ErrUnsupportedURL = errors.New("url scheme has no favicon")
	ErrNotFound       = errors.New("no favicon found")
	ErrTooLarge       = errors.New("favicon exceeds size limit")
	ErrNotImage       = errors.New("response is not an image")
)

// Options configures a Fetcher.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Logger    *slog.Logger
}

// Fetcher discovers a page's icon from its <link rel="icon"> tags, falling back
// to /favicon.ico, and downloads the best candidate.
type Fetcher struct {
	client   *resty.Client
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("User-Agent", opts.UserAgent)

	return &Fetcher{
		client:   client,
		maxBytes: opts.MaxBytes,
		logger:   opts.Logger,
	}
}

// Fetch returns the icon for pageURL.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*model.Image, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", pageURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, ErrUnsupportedURL
	}

	candidates, err := f.discover(ctx, base)
	if err != nil {
		// The page itself failed; /favicon.ico may still exist
		f.logger.Debug("favicon discovery failed", "url", pageURL, "error", err)
	}
	candidates = appendUnique(candidates, base.ResolveReference(&url.URL{Path: "/favicon.ico"}).String())

	return f.probe(ctx, candidates)
}

// discover reads the page and returns icon URLs in preference order.
func (f *Fetcher) discover(ctx context.Context, base *url.URL) ([]string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5").
		Get(base.String())
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("fetch page: status %d", resp.StatusCode())
	}

	// Redirects change the base that relative hrefs resolve against
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		base = resp.RawResponse.Request.URL
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return Candidates(doc, base), nil
}

// Candidates extracts icon links from a parsed document, resolved against base.
// Explicit "icon" links come first, then apple-touch icons.
func Candidates(doc *goquery.Document, base *url.URL) []string {
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := base.Parse(href); err == nil {
			base = u
		}
	}

	var icons, touch []string
	doc.Find("link[rel][href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "data:") {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}

		for _, rel := range strings.Fields(strings.ToLower(s.AttrOr("rel", ""))) {
			switch rel {
			case "icon":
				icons = appendUnique(icons, resolved.String())
				return
			case "apple-touch-icon", "apple-touch-icon-precomposed":
				touch = appendUnique(touch, resolved.String())
				return
			}
		}
	})

	result := icons
	for _, u := range touch {
		result = appendUnique(result, u)
	}
	return result
}

// probe downloads all candidates concurrently and returns the most preferred success.
func (f *Fetcher) probe(ctx context.Context, candidates []string) (*model.Image, error) {
	results := make([]*model.Image, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, candidate := range candidates {
		g.Go(func() error {
			img, err := f.download(ctx, candidate)
			if err != nil {
				f.logger.Debug("favicon candidate rejected", "url", candidate, "error", err)
				return nil // other candidates may still succeed
			}
			results[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, img := range results {
		if img != nil {
			return img, nil
		}
	}
	return nil, ErrNotFound
}

func (f *Fetcher) download(ctx context.Context, iconURL string) (*model.Image, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "image/*").
		Get(iconURL)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNotImage
	}

	contentType, ok := imageType(resp.Header().Get("Content-Type"), data)
	if !ok {
		return nil, ErrNotImage
	}

	return &model.Image{
		Data:        data,
		ContentType: contentType,
		SourceURL:   iconURL,
	}, nil
}

// imageType decides the media type from the declared header and the content itself.
func imageType(declared string, data []byte) (string, bool) {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
		if strings.HasPrefix(mediaType, "image/") {
			return mediaType, true
		}
	}

	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, true
	}
	return "", false
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
