package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Client calls the control interface of a running daemon.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens a private session bus connection to the daemon.
func Connect() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{
		conn: conn,
		obj:  conn.Object(DBusBusName, DBusPath),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Running reports whether a daemon currently owns the bus name.
func (c *Client) Running(ctx context.Context) bool {
	var has bool
	err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, DBusBusName).Store(&has)
	return err == nil && has
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	return c.obj.CallWithContext(ctx, DBusInterface+"."+method, 0, args...)
}

// NewBubble creates a bubble for url and returns its id.
func (c *Client) NewBubble(ctx context.Context, url string) (string, error) {
	var id string
	if err := c.call(ctx, "NewBubble", url).Store(&id); err != nil {
		return "", mapError(err)
	}
	return id, nil
}

// Expand shows the panel for id.
func (c *Client) Expand(ctx context.Context, id string) error {
	return mapError(c.call(ctx, "Expand", id).Err)
}

// Collapse hides the panel for id.
func (c *Client) Collapse(ctx context.Context, id string) error {
	return mapError(c.call(ctx, "Collapse", id).Err)
}

// CommitCollapse finishes a collapse started by the presenter.
func (c *Client) CommitCollapse(ctx context.Context, id string) error {
	return mapError(c.call(ctx, "CommitCollapse", id).Err)
}

// CloseSession discards id.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	return mapError(c.call(ctx, "Close", id).Err)
}

// Move drops the bubble for id at x, y.
func (c *Client) Move(ctx context.Context, id string, x, y int) error {
	return mapError(c.call(ctx, "Move", id, int32(x), int32(y)).Err)
}

// ToggleAll toggles every session.
func (c *Client) ToggleAll(ctx context.Context) error {
	return mapError(c.call(ctx, "ToggleAll").Err)
}

// GetSession returns one session.
func (c *Client) GetSession(ctx context.Context, id string) (SessionInfo, error) {
	var info SessionInfo
	if err := c.call(ctx, "GetSession", id).Store(&info); err != nil {
		return SessionInfo{}, mapError(err)
	}
	return info, nil
}

// ListSessions returns every session in creation order.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var infos []SessionInfo
	if err := c.call(ctx, "ListSessions").Store(&infos); err != nil {
		return nil, mapError(err)
	}
	return infos, nil
}

// Signals subscribes to control-interface signals until ctx is done.
// The returned channel is closed when ctx is canceled.
func (c *Client) Signals(ctx context.Context) (<-chan Signal, error) {
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
	); err != nil {
		return nil, fmt.Errorf("failed to add signal match: %w", err)
	}

	raw := make(chan *dbus.Signal, 16)
	c.conn.Signal(raw)

	out := make(chan Signal, 16)
	go func() {
		defer close(out)
		defer c.conn.RemoveSignal(raw)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				parsed, ok := parseSignal(sig)
				if !ok {
					continue
				}
				select {
				case out <- parsed:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
