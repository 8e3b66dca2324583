package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/podd/internal/shared"
)

const userAgent = "podd/1.0"

type ntfyService struct {
	endpoint string
	client   *http.Client
}

// newNtfyService accepts either a bare topic, joined to the configured server, or a full topic URL.
func newNtfyService(cfg shared.NtfyConfig, client *http.Client) *ntfyService {
	topic := strings.TrimSpace(cfg.Topic)
	endpoint := topic
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		server := strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
		if server == "" {
			server = "https://ntfy.sh"
		}
		endpoint = server + "/" + strings.TrimLeft(topic, "/")
	}
	return &ntfyService{endpoint: endpoint, client: client}
}

func (n *ntfyService) NotifyDownloads(ctx context.Context, report Report) error {
	if report.Empty() {
		return nil
	}

	var b strings.Builder
	for i, p := range report.Podcasts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (%d)", p.Name, len(p.Episodes))
		for _, ep := range p.Episodes {
			fmt.Fprintf(&b, "\n- %s", ep.Title)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(b.String()))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", report.Subject())
	req.Header.Set("Tags", "podd,headphones")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
