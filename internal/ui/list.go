package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/podd/internal/models"
)

var _ list.Item = podcastItem{}

// podcastItem wraps [models.Podcast] to implement [list.Item].
type podcastItem struct {
	index   int
	podcast *models.Podcast
}

func (i podcastItem) FilterValue() string { return i.podcast.Name }
func (i podcastItem) Title() string       { return fmt.Sprintf("%d. %s", i.index, i.podcast.Name) }
func (i podcastItem) Description() string {
	return fmt.Sprintf("%s • %s", i.podcast.URL, i.podcast.Directory)
}

func podcastItems(podcasts []*models.Podcast) []list.Item {
	items := make([]list.Item, len(podcasts))
	for i, p := range podcasts {
		items[i] = podcastItem{index: i + 1, podcast: p}
	}
	return items
}
