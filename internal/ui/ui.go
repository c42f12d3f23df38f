package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/machinemessiah/tagify-sub000/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	PreviewView
	ConfirmView
	SyncView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	view         ViewState
	engine       *tasks.Engine
	width        int
	height       int
	playlistList list.Model
	previewList  list.Model
	preview      *tasks.PreviewResult
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	events       []tasks.Notification
	syncErr      error
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model around a configured engine. Playlists
// load on Init; previews and syncs run against the engine's queue.
func NewModel(engine *tasks.Engine) *Model {
	playlists := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlists.Title = "Smart Playlists"

	preview := list.New(nil, list.NewDefaultDelegate(), 0, 0)

	return &Model{
		view:         PlaylistListView,
		engine:       engine,
		playlistList: playlists,
		previewList:  preview,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init loads the registered playlists.
func (m *Model) Init() tea.Cmd {
	return m.loadPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.previewList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsLoadedMsg:
		items := make([]list.Item, len(msg.playlists))
		for i, p := range msg.playlists {
			items[i] = playlistEntry{playlist: p}
		}
		return m, m.playlistList.SetItems(items)

	case previewLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, nil
		}
		m.preview = msg.preview
		m.previewList.Title = fmt.Sprintf("Preview of '%s'", msg.preview.Playlist.Name)
		cmd := m.previewList.SetItems(previewEntries(msg.preview))
		m.view = PreviewView
		return m, cmd

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.err = msg.err
		m.events = msg.events
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress esc to dismiss, q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case PreviewView:
		return m.renderPreview()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.err = nil
		return m, nil
	case "enter":
		selected := m.playlistList.SelectedItem()
		if selected != nil {
			if entry, ok := selected.(playlistEntry); ok {
				return m, m.loadPreview(entry.playlist.CollectionID)
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PlaylistListView
		return m, nil
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.previewList, cmd = m.previewList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = PreviewView
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = PlaylistListView
		m.preview = nil
		m.events = nil
		m.err = nil
		m.syncErr = nil
		return m, m.loadPlaylists()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case PreviewView:
		m.previewList, cmd = m.previewList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadPlaylists() tea.Cmd {
	return func() tea.Msg {
		return playlistsLoadedMsg{playlists: m.engine.Playlists()}
	}
}

func (m *Model) loadPreview(id string) tea.Cmd {
	return func() tea.Msg {
		preview, err := m.engine.Preview(id)
		return previewLoadedMsg{preview: preview, err: err}
	}
}

// startSync queues a reconciliation and streams its progress back into the
// update loop. The goroutine closes the progress channel when the pass
// finishes, which is what flips the view to the result screen.
func (m *Model) startSync() tea.Cmd {
	m.progress = tasks.ProgressUpdate{}
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		m.syncErr = m.engine.Reconcile(m.preview.Playlist.CollectionID, m.progressChan)
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan := m.progressChan
	return func() tea.Msg {
		if progressChan == nil {
			return syncCompleteMsg{err: m.syncErr, events: m.drainNotifications()}
		}

		update, ok := <-progressChan
		if !ok {
			return syncCompleteMsg{err: m.syncErr, events: m.drainNotifications()}
		}
		return progressUpdateMsg(update)
	}
}

// drainNotifications collects everything the engine reported during the
// pass. The channel is buffered and the operation has finished, so the
// relevant events are already queued.
func (m *Model) drainNotifications() []tasks.Notification {
	var events []tasks.Notification
	for {
		select {
		case n := <-m.engine.Notifications():
			events = append(events, n)
		default:
			return events
		}
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderPreview() string {
	syncKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "sync"),
	)
	helpKeys := []key.Binding{syncKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	criteria := styles.help.Render(criteriaSummary(m.preview.Playlist.Criteria))
	return fmt.Sprintf("%s\n%s\n\n%s", m.previewList.View(), criteria, helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sync '%s' now?", m.preview.Playlist.Name))

	var info string
	if m.preview.InSync() {
		info = "\nNothing to change. A pass would still verify the remote collection.\n"
	} else {
		info = fmt.Sprintf("\nAdditions: %d\nRemovals: %d\n", len(m.preview.ToAdd), len(m.preview.ToRemove))
	}
	if n := len(m.preview.LocalOnly); n > 0 {
		info += styles.warn.Render(fmt.Sprintf("%d matching items are local-only and stay manual\n", n))
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render(fmt.Sprintf("Syncing '%s'", m.preview.Playlist.Name))

	var phase string
	switch m.progress.Phase {
	case tasks.FetchRemote:
		phase = "Fetching remote members..."
	case tasks.Dedup:
		phase = fmt.Sprintf("Repairing duplicates (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Verify:
		phase = "Re-reading remote state..."
	case tasks.Evaluate:
		phase = "Evaluating criteria..."
	case tasks.Diff:
		phase = "Planning changes..."
	case tasks.RemoveMembers:
		phase = fmt.Sprintf("Removing members (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.AddMembers:
		phase = fmt.Sprintf("Adding members (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Commit:
		phase = "Recording results..."
	default:
		phase = "Working..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r for playlists, q to quit", m.err))
	}

	title := styles.ok.Render("✓ Sync complete")

	var b strings.Builder
	for _, event := range m.events {
		switch event.Kind {
		case tasks.NotifySyncSummary, tasks.NotifyAlreadyInSync:
			b.WriteString(fmt.Sprintf("\n%s", event.Message))
		case tasks.NotifyManualAction, tasks.NotifyDataLoss:
			b.WriteString(fmt.Sprintf("\n%s", styles.warn.Render(event.Message)))
		}
	}
	if b.Len() == 0 {
		b.WriteString("\nNo changes reported.")
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, b.String(), helpView)
}
