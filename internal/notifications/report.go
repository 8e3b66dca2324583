package notifications

import (
	"fmt"
	"time"
)

// Report summarizes the episodes downloaded during one refresh run, grouped by podcast.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Podcasts []PodcastReport
}

// PodcastReport lists the downloaded episodes of one podcast.
type PodcastReport struct {
	Name     string
	Episodes []EpisodeReport
}

// EpisodeReport describes one downloaded file.
type EpisodeReport struct {
	Title     string
	Published time.Time
	Path      string
}

// EpisodeCount returns the total number of downloaded episodes.
func (r Report) EpisodeCount() int {
	n := 0
	for _, p := range r.Podcasts {
		n += len(p.Episodes)
	}
	return n
}

// Empty reports whether nothing was downloaded.
func (r Report) Empty() bool {
	return r.EpisodeCount() == 0
}

// Subject is the one-line headline shared by all channels.
func (r Report) Subject() string {
	n := r.EpisodeCount()
	if n == 1 {
		return "podd: 1 new episode"
	}
	return fmt.Sprintf("podd: %d new episodes", n)
}

// Add appends an episode to the named podcast, keeping podcasts in first-seen order.
func (r *Report) Add(podcast string, ep EpisodeReport) {
	for i := range r.Podcasts {
		if r.Podcasts[i].Name == podcast {
			r.Podcasts[i].Episodes = append(r.Podcasts[i].Episodes, ep)
			return
		}
	}
	r.Podcasts = append(r.Podcasts, PodcastReport{Name: podcast, Episodes: []EpisodeReport{ep}})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
