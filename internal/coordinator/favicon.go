package coordinator

import (
	"context"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

// startFaviconLocked begins a new fetch generation for id and cancels any
// fetch still in flight. The result is applied only if no newer generation
// started and the session still exists when it arrives.
func (c *Coordinator) startFaviconLocked(id model.SessionID) {
	if c.favicons == nil || !c.config.Favicon.Enabled {
		return
	}
	e, ok := c.reg.Get(id)
	if !ok {
		return
	}

	if e.CancelFavicon != nil {
		e.CancelFavicon()
	}
	e.Session.FaviconGeneration++
	generation := e.Session.FaviconGeneration
	pageURL := e.Session.URL

	ctx, cancel := context.WithTimeout(c.ctx, c.config.Favicon.Timeout.Duration())
	e.CancelFavicon = cancel

	fetcher := c.favicons
	go func() {
		defer cancel()

		img, err := fetcher.Fetch(ctx, pageURL)
		if err != nil {
			c.metrics.FaviconFetch("error")
			c.logger.Debug("favicon fetch failed", "session_id", id, "url", pageURL, "error", err)
			return
		}

		c.exec(func() {
			c.HandleFaviconFetched(id, generation, img)
		})
	}()
}

// HandleFaviconFetched applies a fetched favicon if it belongs to the session's
// current generation. Results for closed sessions or superseded generations are
// discarded.
func (c *Coordinator) HandleFaviconFetched(id model.SessionID, generation uint64, img *model.Image) {
	c.mu.Lock()
	defer c.dispatch()
	defer c.mu.Unlock()

	if c.closed || img == nil {
		return
	}
	e, ok := c.reg.Get(id)
	if !ok {
		c.metrics.StaleFavicon()
		c.metrics.FaviconFetch("stale")
		c.logger.Debug("favicon for closed session discarded", "session_id", id)
		return
	}
	if e.Session.FaviconGeneration != generation {
		c.metrics.StaleFavicon()
		c.metrics.FaviconFetch("stale")
		c.logger.Debug("stale favicon discarded",
			"session_id", id,
			"generation", generation,
			"current", e.Session.FaviconGeneration,
		)
		return
	}

	c.metrics.FaviconFetch("ok")
	c.applyFaviconLocked(id, img)
}

// handleHostFavicon applies a favicon the engine resolved itself. It starts and
// immediately completes a new generation, superseding any network fetch.
func (c *Coordinator) handleHostFavicon(id model.SessionID, img *model.Image) {
	c.mu.Lock()
	defer c.dispatch()
	defer c.mu.Unlock()

	if c.closed || img == nil {
		return
	}
	e, ok := c.reg.Get(id)
	if !ok {
		return
	}

	if e.CancelFavicon != nil {
		e.CancelFavicon()
		e.CancelFavicon = nil
	}
	e.Session.FaviconGeneration++
	c.metrics.FaviconFetch("host")
	c.applyFaviconLocked(id, img)
}

func (c *Coordinator) applyFaviconLocked(id model.SessionID, img *model.Image) {
	e, ok := c.reg.Get(id)
	if !ok {
		return
	}
	e.Session.Favicon = img.Clone()
	c.logger.Debug("favicon updated", "session_id", id, "source", img.SourceURL)
	c.emitLocked(Event{Kind: EventSessionFaviconUpdated, Session: e.Session.Clone(), Popup: e.Session.IsPopup()})
}
