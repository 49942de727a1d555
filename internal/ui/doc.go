// Package ui implements the interactive terminal player using bubbletea's Elm
// architecture.
//
// The TUI has three views:
//  1. [AuthView] : Sign in with email and password, or continue as guest
//  2. [LibraryView] : Browse the library with a mini player at the bottom
//  3. [PlayerView] : Full player with seek, volume and track analysis
//
// The [Model] implements bubbletea's standard Init/Update/View pattern,
// receiving messages via the Msg union type. Engine-side changes (library
// reconciliation, playback progress, notices) flow through a channel that the
// model drains with a recurring command, so backend work never blocks the
// render loop.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, space, q)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
