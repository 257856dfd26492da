package coordinator

// AddObserver registers o to receive every subsequent event.
func (c *Coordinator) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Subscribe returns a channel that receives events.
// Delivery is non-blocking: when the buffer is full the event is dropped for
// that subscriber, so use an Observer where every event matters.
// The channel is closed on Shutdown or Unsubscribe.
func (c *Coordinator) Subscribe(buffer int) <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, buffer)
	if c.closed {
		close(ch)
		return ch
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (c *Coordinator) Unsubscribe(sub <-chan Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, ch := range c.subscribers {
		if ch == sub {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// emitLocked queues ev for delivery once the lock is released.
func (c *Coordinator) emitLocked(ev Event) {
	c.outbox = append(c.outbox, ev)
}

// dispatch delivers queued events in order. Must be called without the lock.
// Only one goroutine delivers at a time; others leave their events to it, which
// also makes observer re-entry safe.
func (c *Coordinator) dispatch() {
	c.mu.Lock()
	if c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true

	for len(c.outbox) > 0 {
		ev := c.outbox[0]
		c.outbox = c.outbox[1:]
		observers := append([]Observer(nil), c.observers...)
		subscribers := append([]chan Event(nil), c.subscribers...)
		c.mu.Unlock()

		for _, o := range observers {
			o.OnEvent(ev)
		}

		c.mu.Lock()
		// Re-check: a subscriber may have been closed while unlocked
		for _, ch := range subscribers {
			if !c.hasSubscriberLocked(ch) {
				continue
			}
			select {
			case ch <- ev:
			default:
				c.logger.Debug("subscriber channel full, event dropped", "event", ev.Kind.String())
			}
		}
	}

	c.outbox = nil
	c.dispatching = false
	c.mu.Unlock()
}

func (c *Coordinator) hasSubscriberLocked(ch chan Event) bool {
	for _, s := range c.subscribers {
		if s == ch {
			return true
		}
	}
	return false
}
