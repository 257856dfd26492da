// Package daemon provides the supporting services of bubbleshelld.
// It watches the daemon configuration for changes and reports internal
// events (reloads, persistence failures) as desktop notifications.
package daemon
