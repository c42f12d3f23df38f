package ui

import (
	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/tasks"
)

// playlistsLoadedMsg carries the registered playlists into the list view.
type playlistsLoadedMsg struct {
	playlists []models.SmartPlaylist
}

// previewLoadedMsg carries the computed change set for a selected playlist.
type previewLoadedMsg struct {
	preview *tasks.PreviewResult
	err     error
}

// progressUpdateMsg forwards one engine progress event to the sync view.
type progressUpdateMsg tasks.ProgressUpdate

// syncCompleteMsg ends the sync view. events holds everything the engine
// reported during the pass, summary included.
type syncCompleteMsg struct {
	err    error
	events []tasks.Notification
}
