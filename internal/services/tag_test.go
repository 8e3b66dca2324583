package services

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abema/go-mp4"
	"github.com/bogem/id3v2/v2"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/shared"
	tu "github.com/desertthunder/podd/internal/testing"
)

func TestTagService(t *testing.T) {
	intent := models.DownloadIntent{
		PodcastName: "My Show",
		Title:       "Episode 7",
		Published:   time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	t.Run("Tag MP3", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ep.mp3")
		if err := os.WriteFile(path, []byte("fake mpeg frames"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		tagged, err := NewTagService().Tag(path, intent)
		if err != nil {
			t.Fatalf("Tag() error = %v", err)
		}
		if !tagged {
			t.Fatal("expected mp3 to be tagged")
		}

		tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err != nil {
			t.Fatalf("failed to reopen tag: %v", err)
		}
		defer tag.Close()

		if tag.Title() != "Episode 7" {
			t.Errorf("expected title Episode 7, got %s", tag.Title())
		}
		if tag.Artist() != "My Show" || tag.Album() != "My Show" {
			t.Errorf("expected artist/album My Show, got %s/%s", tag.Artist(), tag.Album())
		}
		if tag.Year() != "2022" {
			t.Errorf("expected year 2022, got %s", tag.Year())
		}
	})

	t.Run("Skips Other Formats", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ep.ogg")
		if err := os.WriteFile(path, []byte("OggS"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		tagged, err := NewTagService().Tag(path, intent)
		if err != nil || tagged {
			t.Errorf("expected skip, got tagged=%v err=%v", tagged, err)
		}
	})

	t.Run("Rejects Malformed MP4", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ep.m4a")
		if err := os.WriteFile(path, []byte("not an mp4 container"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		tagged, err := NewTagService().Tag(path, intent)
		if !errors.Is(err, shared.ErrTagFailed) || tagged {
			t.Errorf("expected ErrTagFailed, got tagged=%v err=%v", tagged, err)
		}
		if got := tu.MustReadFile(t, path); got != "not an mp4 container" {
			t.Errorf("malformed file was modified: %q", got)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := NewTagService().Tag(filepath.Join(t.TempDir(), "gone.mp3"), intent)
		if err == nil {
			t.Error("expected error for missing file")
		}
	})
}

const mediaPayload = "aac-frames"

func mp4Box(kind string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	out := binary.BigEndian.AppendUint32(nil, uint32(8+len(body)))
	out = append(out, kind...)
	return append(out, body...)
}

func u32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func mp4Moov(chunkOffset uint32) []byte {
	stco := mp4Box("stco", u32(0), u32(1), u32(chunkOffset))
	return mp4Box("moov", mp4Box("trak", mp4Box("mdia", mp4Box("minf", mp4Box("stbl", stco)))))
}

// m4aFixture builds a minimal M4A whose single chunk offset points at mediaPayload inside mdat.
func m4aFixture(moovFirst bool) []byte {
	ftyp := mp4Box("ftyp", []byte("M4A "), u32(0), []byte("M4A isom"))
	mdat := mp4Box("mdat", []byte(mediaPayload))
	if moovFirst {
		moovLen := len(mp4Moov(0))
		return bytes.Join([][]byte{ftyp, mp4Moov(uint32(len(ftyp) + moovLen + 8)), mdat}, nil)
	}
	return bytes.Join([][]byte{ftyp, mdat, mp4Moov(uint32(len(ftyp) + 8))}, nil)
}

// readMP4File returns the ilst string values by item type and the payload at the first chunk offset.
func readMP4File(t *testing.T, path string) (map[mp4.BoxType][]string, string) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	items := map[mp4.BoxType][]string{}
	_, err = mp4.ReadBoxStructure(f, func(h *mp4.ReadHandle) (any, error) {
		switch {
		case len(h.Path) == 6 && h.BoxInfo.Type == mp4.BoxTypeData():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			items[h.Path[4]] = append(items[h.Path[4]], string(box.(*mp4.Data).Data))
		case len(h.Path) == 5, pathIs(h.Path, "moov"), pathIs(h.Path, "moov", "udta"),
			pathIs(h.Path, "moov", "udta", "meta"), pathIs(h.Path, "moov", "udta", "meta", "ilst"):
			return h.Expand()
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("failed to read boxes: %v", err)
	}

	stcoPath := mp4.BoxPath{
		mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStco(),
	}
	boxes, err := mp4.ExtractBoxWithPayload(f, nil, stcoPath)
	if err != nil || len(boxes) != 1 {
		t.Fatalf("failed to extract stco: %v (%d boxes)", err, len(boxes))
	}
	offset := int64(boxes[0].Payload.(*mp4.Stco).ChunkOffset[0])

	buf := make([]byte, len(mediaPayload))
	if _, err := f.ReadAt(buf, offset); err != nil {
		t.Fatalf("failed to read chunk at %d: %v", offset, err)
	}
	return items, string(buf)
}

func TestTagServiceMP4(t *testing.T) {
	intent := models.DownloadIntent{
		PodcastName: "My Show",
		Title:       "Episode 7",
		Published:   time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	want := map[mp4.BoxType]string{
		itemTitle:  "Episode 7",
		itemArtist: "My Show",
		itemAlbum:  "My Show",
		itemGenre:  "Podcast",
		itemDate:   "2022-01-02",
	}

	tc := []struct {
		name      string
		moovFirst bool
		passes    int
	}{
		{name: "moov before mdat", moovFirst: true, passes: 1},
		{name: "moov after mdat", moovFirst: false, passes: 1},
		{name: "retagging replaces items", moovFirst: true, passes: 2},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ep.m4a")
			if err := os.WriteFile(path, m4aFixture(tt.moovFirst), 0o644); err != nil {
				t.Fatalf("failed to write fixture: %v", err)
			}

			for range tt.passes {
				tagged, err := NewTagService().Tag(path, intent)
				if err != nil {
					t.Fatalf("Tag() error = %v", err)
				}
				if !tagged {
					t.Fatal("expected m4a to be tagged")
				}
			}

			items, chunk := readMP4File(t, path)
			if chunk != mediaPayload {
				t.Errorf("chunk offset no longer points at media data, read %q", chunk)
			}
			for kind, value := range want {
				if got := items[kind]; len(got) != 1 || got[0] != value {
					t.Errorf("item %s = %q, want [%q]", kind, got, value)
				}
			}
		})
	}

	t.Run("Supports", func(t *testing.T) {
		tc := []struct {
			path string
			want bool
		}{
			{path: "a.mp3", want: true},
			{path: "a.M4A", want: true},
			{path: "a.m4b", want: true},
			{path: "a.mp4", want: true},
			{path: "a.ogg", want: false},
			{path: "a.wav", want: false},
		}

		for _, tt := range tc {
			if got := NewTagService().Supports(tt.path); got != tt.want {
				t.Errorf("Supports(%q) = %v, want %v", tt.path, got, tt.want)
			}
		}
	})
}
