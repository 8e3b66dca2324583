package notifications

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/podd/internal/shared"
)

const defaultTimeout = 10 * time.Second

// Service delivers download reports.
type Service interface {
	NotifyDownloads(ctx context.Context, report Report) error
}

// NewService builds a notification service from configuration.
// With no channel configured, a noop implementation is returned.
func NewService(cfg shared.NotificationsConfig, client *http.Client) Service {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	var services []Service
	if cfg.Ntfy.Enabled() {
		services = append(services, newNtfyService(cfg.Ntfy, client))
	}
	if cfg.Email.Enabled() {
		services = append(services, newEmailService(cfg.Email))
	}

	switch len(services) {
	case 0:
		return noopService{}
	case 1:
		return services[0]
	default:
		return fanout(services)
	}
}

type fanout []Service

// NotifyDownloads sends to every channel and joins their errors.
func (f fanout) NotifyDownloads(ctx context.Context, report Report) error {
	var errs []error
	for _, s := range f {
		if err := s.NotifyDownloads(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) NotifyDownloads(context.Context, Report) error { return nil }
