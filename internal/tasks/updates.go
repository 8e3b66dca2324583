package tasks

import (
	"fmt"

	"github.com/desertthunder/podd/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchFeed Phase = iota
	Reconcile
	Download
	Notify
)

func (p Phase) String() string {
	switch p {
	case FetchFeed:
		return "fetch_feed"
	case Reconcile:
		return "reconcile"
	case Download:
		return "download"
	case Notify:
		return "notify"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchFeedUpdate(step, total int, p *models.Podcast) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, p.Name),
	}
}

func fetchFailedUpdate(step, total int, p *models.Podcast, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, p.Name, err),
	}
}

func reconcileUpdate(step, total int, res *ReconcileResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %d new, %d to download", step, total, res.Podcast.Name, res.Persisted, len(res.Intents)),
		Data:    res,
	}
}

func downloadUpdate(step, total int, out DownloadOutcome) ProgressUpdate {
	if out.Err != nil {
		return ProgressUpdate{
			Phase:   Download,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, out.Intent.Title, out.Err),
			Data:    out,
		}
	}
	return ProgressUpdate{
		Phase:   Download,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, out.Intent.Title),
		Data:    out,
	}
}

func notifyUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Notify,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sending report for %d episode(s)...", count),
	}
}
