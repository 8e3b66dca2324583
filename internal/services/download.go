package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/shared"
	"github.com/google/uuid"
)

// manifestName is the hidden per-directory file mapping downloaded file names to the entry that owns them.
const manifestName = ".podd-files.json"

// defaultExtension is used when neither the enclosure URL nor its type names a known media format.
const defaultExtension = ".mp3"

var mediaExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".wav": true, ".ogg": true, ".opus": true,
	".mp4": true, ".m4v": true, ".mov": true, ".avi": true, ".wmv": true,
}

var mediaTypes = map[string]string{
	"audio/mpeg":      ".mp3",
	"audio/mp3":       ".mp3",
	"audio/mp4":       ".m4a",
	"audio/x-m4a":     ".m4a",
	"audio/aac":       ".m4a",
	"audio/wav":       ".wav",
	"audio/x-wav":     ".wav",
	"audio/ogg":       ".ogg",
	"audio/opus":      ".opus",
	"video/mp4":       ".mp4",
	"video/x-m4v":     ".m4v",
	"video/quicktime": ".mov",
	"video/x-msvideo": ".avi",
	"video/x-ms-wmv":  ".wmv",
}

// DownloadService streams episode enclosures to disk.
type DownloadService struct {
	httpClient *http.Client
	userAgent  string

	mu     sync.Mutex
	claims map[string]string // in-flight target path -> entry id
}

// NewDownloadService creates a DownloadService. A nil client falls back to [http.DefaultClient].
func NewDownloadService(client *http.Client, userAgent string) *DownloadService {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &DownloadService{httpClient: client, userAgent: userAgent, claims: map[string]string{}}
}

// Download fetches the intent's enclosure into its directory.
// A file already on disk is reused only when the directory manifest records it for the same entry.
func (s *DownloadService) Download(ctx context.Context, intent models.DownloadIntent) (*DownloadResult, error) {
	if intent.EnclosureURL == "" {
		return nil, fmt.Errorf("%w: %q has no enclosure", shared.ErrDownloadFailed, intent.Title)
	}

	if err := os.MkdirAll(intent.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory: %v", shared.ErrDownloadFailed, err)
	}

	target, reused, err := s.reserve(intent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	if reused {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
		}
		return &DownloadResult{Path: target, Bytes: info.Size(), Reused: true}, nil
	}
	defer s.release(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, intent.EnclosureURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrDownloadFailed, intent.EnclosureURL, resp.StatusCode)
	}

	n, err := writeAtomically(target, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	if err := s.record(intent.Directory, filepath.Base(target), intent.EntryID); err != nil {
		os.Remove(target)
		return nil, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	return &DownloadResult{Path: target, Bytes: n}, nil
}

// reserve picks the target path for intent, preferring [FileName] and falling back to [UniqueFileName]
// when that name is owned by another entry, held by an unrecorded file, or claimed by an in-flight download.
func (s *DownloadService) reserve(intent models.DownloadIntent) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := readManifest(intent.Directory)
	if err != nil {
		return "", false, err
	}

	for _, name := range []string{FileName(intent), UniqueFileName(intent)} {
		target := filepath.Join(intent.Directory, name)
		if owner, ok := s.claims[target]; ok && owner != intent.EntryID {
			continue
		}

		owner, recorded := owners[name]
		exists := isRegularFile(target)
		switch {
		case recorded && owner != intent.EntryID:
			continue
		case recorded && exists:
			return target, true, nil
		case !recorded && exists:
			continue
		}

		s.claims[target] = intent.EntryID
		return target, false, nil
	}
	return "", false, fmt.Errorf("no free file name for entry %q in %s", intent.EntryID, intent.Directory)
}

func (s *DownloadService) release(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, target)
}

// record marks name as owned by entryID in the directory manifest.
func (s *DownloadService) record(dir, name, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owners, err := readManifest(dir)
	if err != nil {
		return err
	}
	owners[name] = entryID

	data, err := json.MarshalIndent(owners, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	_, err = writeAtomically(filepath.Join(dir, manifestName), strings.NewReader(string(data)))
	return err
}

func readManifest(dir string) (map[string]string, error) {
	owners := map[string]string{}
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if errors.Is(err, os.ErrNotExist) {
		return owners, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	if err := json.Unmarshal(data, &owners); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filepath.Join(dir, manifestName), err)
	}
	return owners, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// writeAtomically copies r into target via a ".part" sibling that is renamed on success and removed on failure.
func writeAtomically(target string, r io.Reader) (int64, error) {
	part := target + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", part, err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(part)
		return 0, fmt.Errorf("failed to write %s: %w", part, err)
	}

	if err := os.Rename(part, target); err != nil {
		os.Remove(part)
		return 0, fmt.Errorf("failed to finalize %s: %w", target, err)
	}
	return n, nil
}

// FileName builds "<YYYY-MM-DD> <title><ext>" for an intent, dropping the date when the entry has none.
func FileName(intent models.DownloadIntent) string {
	title := intent.Title
	if strings.TrimSpace(title) == "" {
		title = intent.EntryID
	}
	name := shared.SanitizeFilename(title)
	if !intent.Published.IsZero() {
		name = intent.Published.Format("2006-01-02") + " " + name
	}
	return name + Extension(intent.EnclosureURL, intent.EnclosureType)
}

// UniqueFileName is [FileName] with a short digest of the entry id appended to the stem,
// used when two entries of one podcast would otherwise share a file.
func UniqueFileName(intent models.DownloadIntent) string {
	name := FileName(intent)
	ext := filepath.Ext(name)
	digest := uuid.NewSHA1(uuid.NameSpaceURL, []byte(intent.EntryID)).String()[:8]
	return strings.TrimSuffix(name, ext) + " [" + digest + "]" + ext
}

// Extension derives a media file extension from the enclosure URL path, then its MIME type, defaulting to ".mp3".
func Extension(rawURL, mediaType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); mediaExtensions[ext] {
			return ext
		}
	}

	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		if ext, ok := mediaTypes[mt]; ok {
			return ext
		}
	}
	return defaultExtension
}
