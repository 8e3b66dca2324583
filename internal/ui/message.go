package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/podd/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPodcastsLoaded MsgKind = iota
	MsgPodcastRemoved
)

type podcastsResult struct {
	podcasts []*models.Podcast
	err      error
}

type removeResult struct {
	podcast *models.Podcast
	err     error
}

// podcastsLoadedMsg is the constructor for [MsgPodcastsLoaded]
func podcastsLoadedMsg(podcasts []*models.Podcast, err error) Msg {
	return Msg{kind: MsgPodcastsLoaded, data: podcastsResult{podcasts, err}}
}

// podcastRemovedMsg is the constructor for [MsgPodcastRemoved]
func podcastRemovedMsg(podcast *models.Podcast, err error) Msg {
	return Msg{kind: MsgPodcastRemoved, data: removeResult{podcast, err}}
}
