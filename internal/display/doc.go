// Package display renders bubbles and panels with GTK4 and layer-shell.
// It consumes coordinator events on the GTK main loop and turns pointer
// input back into coordinator intents.
package display
