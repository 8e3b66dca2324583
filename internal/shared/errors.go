package shared

import "errors"

var (
	// Configuration errors
	ErrMissingConfig = errors.New("configuration not found")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Store errors
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrDuplicateSubscription = errors.New("podcast already subscribed")
	ErrDuplicateEpisode      = errors.New("episode already recorded")
	ErrUnknownPodcast        = errors.New("unknown podcast")
	ErrUnknownOption         = errors.New("unknown option")
	ErrRunInProgress         = errors.New("another run is in progress")

	// Feed errors
	ErrFeedUnreachable = errors.New("feed unreachable")
	ErrFeedUnparseable = errors.New("feed unparseable")
	ErrEmptyFeed       = errors.New("feed has no entries")

	// Download errors
	ErrDownloadFailed = errors.New("download failed")
	ErrTagFailed      = errors.New("tagging failed")

	// Input validation errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidOption     = errors.New("invalid option value")
	ErrInvalidDirectory  = errors.New("invalid directory")
	ErrAmbiguousSelector = errors.New("selector matches more than one podcast")
	ErrMissingArgument   = errors.New("missing required argument")
)

// IsRecoverable reports whether err is a per-item failure that should be logged and skipped rather than abort a batch.
func IsRecoverable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrRunInProgress):
		return false
	default:
		return true
	}
}
