// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for smart playlist syncing:
//  1. [PlaylistListView] : Browse the registered smart playlists
//  2. [PreviewView] : Inspect the change set a pass would apply, without network calls
//  3. [ConfirmView] : Confirm the sync
//  4. [SyncView] : Monitor real-time progress updates
//  5. [ResultView] : Display the pass summary and any manual-action notices
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the sync engine, and the engine's
// notification stream is drained into the result view once the pass finishes.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
