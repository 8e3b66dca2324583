package services

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/shared"
)

const podcastGenre = "Podcast"

// TagService writes ID3v2 metadata into downloaded MP3 files and iTunes-style ilst metadata into MP4 containers.
type TagService struct{}

// NewTagService creates a TagService.
func NewTagService() *TagService {
	return &TagService{}
}

// Supports reports whether path is a format the tagger writes.
func (s *TagService) Supports(path string) bool {
	return isMP3(path) || isMP4(path)
}

func isMP3(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mp3")
}

// Tag sets title, artist, album, genre and year on the file at path. It reports false without error for formats
// it does not handle.
func (s *TagService) Tag(path string, intent models.DownloadIntent) (bool, error) {
	switch {
	case isMP4(path):
		if err := tagMP4(path, intent); err != nil {
			return false, fmt.Errorf("%w: %s: %v", shared.ErrTagFailed, path, err)
		}
		return true, nil
	case !isMP3(path):
		return false, nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return false, fmt.Errorf("%w: failed to open %s: %v", shared.ErrTagFailed, path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if intent.Title != "" {
		tag.SetTitle(intent.Title)
	}
	tag.SetArtist(intent.PodcastName)
	tag.SetAlbum(intent.PodcastName)
	tag.SetGenre(podcastGenre)
	if !intent.Published.IsZero() {
		tag.SetYear(strconv.Itoa(intent.Published.Year()))
	}

	if err := tag.Save(); err != nil {
		return false, fmt.Errorf("%w: failed to save %s: %v", shared.ErrTagFailed, path, err)
	}
	return true, nil
}
