package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/podd/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PodcastListView ViewState = iota
	ConfirmView
	ResultView
)

// Manager is the subset of subscription management the picker needs.
type Manager interface {
	Subscriptions() ([]*models.Podcast, error)
	Remove(selector string) (*models.Podcast, error)
}

// Model represents the TUI application state.
type Model struct {
	view     ViewState
	manager  Manager
	width    int
	height   int
	list     list.Model
	loaded   bool
	podcasts []*models.Podcast
	selected *models.Podcast
	removed  *models.Podcast
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a removal picker backed by manager.
func NewModel(manager Manager) *Model {
	return &Model{
		view:    PodcastListView,
		manager: manager,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Removed returns the podcast removed during the session, or nil when the user quit without removing.
func (m *Model) Removed() *models.Podcast { return m.removed }

// Err returns the load or removal failure, if any.
func (m *Model) Err() error { return m.err }

// ViewState returns the active view.
func (m *Model) ViewState() ViewState { return m.view }

// Init initializes the TUI by loading subscriptions.
func (m *Model) Init() tea.Cmd {
	return m.loadPodcasts()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.loaded {
			m.list.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PodcastListView:
			return m.handleListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m, tea.Quit
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPodcastsLoaded:
		data := msg.data.(podcastsResult)
		if data.err != nil {
			m.err = data.err
			m.view = ResultView
			return m, nil
		}
		m.podcasts = data.podcasts
		m.list = list.New(podcastItems(data.podcasts), list.NewDefaultDelegate(), 0, 0)
		m.list.Title = "Subscriptions"
		m.list.SetSize(max(m.width-4, 0), max(m.height-8, 0))
		m.loaded = true
		return m, nil

	case MsgPodcastRemoved:
		data := msg.data.(removeResult)
		m.removed = data.podcast
		m.err = data.err
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PodcastListView:
		return m.renderList()
	case ConfirmView:
		return m.renderConfirm()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loaded && m.list.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if !m.loaded {
			return m, nil
		}
		if item, ok := m.list.SelectedItem().(podcastItem); ok {
			m.selected = item.podcast
			m.view = ConfirmView
		}
		return m, nil
	}
	return m.updateList(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		return m, m.removePodcast(m.selected)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.selected = nil
		m.view = PodcastListView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.loaded || m.view != PodcastListView {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) loadPodcasts() tea.Cmd {
	return func() tea.Msg {
		podcasts, err := m.manager.Subscriptions()
		return podcastsLoadedMsg(podcasts, err)
	}
}

func (m *Model) removePodcast(p *models.Podcast) tea.Cmd {
	url := p.URL
	return func() tea.Msg {
		removed, err := m.manager.Remove(url)
		return podcastRemovedMsg(removed, err)
	}
}

func (m *Model) renderList() string {
	if !m.loaded {
		return "Loading subscriptions..."
	}
	if len(m.podcasts) == 0 {
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render("No subscriptions."), m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.list.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Unsubscribe from '%s'?", m.selected.Name))
	info := fmt.Sprintf("\nFeed: %s\nDirectory: %s\n%s\n",
		m.selected.URL,
		m.selected.Directory,
		styles.help.Render("Downloaded files are kept; the episode history is deleted."),
	)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress any key to quit", m.err))
	}
	if m.removed == nil {
		return styles.warn.Render("Nothing removed\n\nPress any key to quit")
	}
	return fmt.Sprintf("%s\n\n%s",
		styles.ok.Render(fmt.Sprintf("✓ Removed %s", m.removed.Name)),
		styles.help.Render("Press any key to quit"),
	)
}
