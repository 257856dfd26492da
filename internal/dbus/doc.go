// Package dbus exposes the bubbleshell daemon on the session bus.
// The daemon exports the io.github.jmylchreest.BubbleShell interface so that
// the CLI and TUI can create, expand, collapse, move and close sessions, and it
// mirrors every coordinator event as a D-Bus signal of the same name.
package dbus
