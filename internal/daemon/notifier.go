package daemon

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"
)

const (
	notificationsBusName   = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"
)

// NotificationLevel indicates the urgency/severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// Urgency returns the freedesktop urgency byte for the level.
func (l NotificationLevel) Urgency() byte {
	switch l {
	case NotificationLevelInfo:
		return 0
	case NotificationLevelError:
		return 2
	default:
		return 1
	}
}

// Icon returns the themed icon name for the level.
func (l NotificationLevel) Icon() string {
	switch l {
	case NotificationLevelInfo:
		return "dialog-information"
	case NotificationLevelError:
		return "dialog-error"
	default:
		return "dialog-warning"
	}
}

// Notification is one desktop notification about a daemon event.
type Notification struct {
	AppName       string
	AppIcon       string
	Summary       string
	Body          string
	Hints         map[string]godbus.Variant
	ExpireTimeout int32
}

// NotifyHandler delivers a notification.
type NotifyHandler func(n *Notification) error

// InternalNotifier reports bubbleshelld events as desktop notifications.
// The same key is not repeated within the minimum interval, so a failing disk
// does not flood the notification daemon.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	notifyHandler NotifyHandler

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	now            func() time.Time

	enabled bool
}

// NewInternalNotifier creates a new InternalNotifier.
func NewInternalNotifier(logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    30 * time.Second,
		now:            time.Now,
		enabled:        true,
	}
}

// SetNotifyHandler sets the function that delivers notifications.
func (n *InternalNotifier) SetNotifyHandler(handler NotifyHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifyHandler = handler
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notifications with the same key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless it is rate-limited.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return
	}
	handler := n.notifyHandler
	if handler == nil {
		n.mu.Unlock()
		n.logger.Debug("internal notification skipped: no handler", "summary", summary)
		return
	}

	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
		return
	}
	n.lastNotifyTime[key] = now
	n.mu.Unlock()

	notification := &Notification{
		AppName: "bubbleshell",
		AppIcon: level.Icon(),
		Summary: summary,
		Body:    body,
		Hints: map[string]godbus.Variant{
			"urgency":       godbus.MakeVariant(level.Urgency()),
			"transient":     godbus.MakeVariant(true),
			"desktop-entry": godbus.MakeVariant("bubbleshelld"),
		},
		ExpireTimeout: 5000,
	}

	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)
	if err := handler(notification); err != nil {
		n.logger.Debug("internal notification failed", "key", key, "error", err)
	}
}

// NotifyConfigReloaded reports a successful configuration reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"bubbleshelld configuration has been reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError reports a configuration file that failed validation.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyPersistenceError reports that the session file could not be written.
func (n *InternalNotifier) NotifyPersistenceError(err error) {
	n.Notify(
		"persist-error",
		"Sessions Not Saved",
		"Bubbles could not be saved: "+err.Error(),
		NotificationLevelError,
	)
}

// NotifyCorruptSessions reports that the session file was unreadable and moved aside.
func (n *InternalNotifier) NotifyCorruptSessions(path string) {
	n.Notify(
		"corrupt-sessions",
		"Saved Bubbles Unreadable",
		fmt.Sprintf("The session file %s was corrupted and has been moved aside.", path),
		NotificationLevelWarning,
	)
}

// DesktopNotifyHandler delivers notifications to the desktop notification daemon on conn.
func DesktopNotifyHandler(conn *godbus.Conn) NotifyHandler {
	obj := conn.Object(notificationsBusName, notificationsPath)
	return func(n *Notification) error {
		call := obj.Call(notificationsInterface+".Notify", 0,
			n.AppName,
			uint32(0),
			n.AppIcon,
			n.Summary,
			n.Body,
			[]string{},
			n.Hints,
			n.ExpireTimeout,
		)
		return call.Err
	}
}
