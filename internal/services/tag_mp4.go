package services

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/abema/go-mp4"

	"github.com/desertthunder/podd/internal/models"
)

var mp4Extensions = []string{".m4a", ".m4b", ".mp4", ".m4v", ".mov"}

// ilst item types
var (
	itemTitle  = mp4.BoxType{0xA9, 'n', 'a', 'm'}
	itemArtist = mp4.BoxType{0xA9, 'A', 'R', 'T'}
	itemAlbum  = mp4.BoxType{0xA9, 'a', 'l', 'b'}
	itemGenre  = mp4.BoxType{0xA9, 'g', 'e', 'n'}
	itemDate   = mp4.BoxType{0xA9, 'd', 'a', 'y'}
)

func isMP4(path string) bool {
	return slices.Contains(mp4Extensions, strings.ToLower(filepath.Ext(path)))
}

type mp4Item struct {
	kind  mp4.BoxType
	value string
}

func mp4Items(intent models.DownloadIntent) []mp4Item {
	items := []mp4Item{
		{kind: itemArtist, value: intent.PodcastName},
		{kind: itemAlbum, value: intent.PodcastName},
		{kind: itemGenre, value: podcastGenre},
	}
	if intent.Title != "" {
		items = append(items, mp4Item{kind: itemTitle, value: intent.Title})
	}
	if !intent.Published.IsZero() {
		items = append(items, mp4Item{kind: itemDate, value: intent.Published.Format("2006-01-02")})
	}
	return items
}

// chunkTable is a stco or co64 entry list copied into the output, patched once the new moov size is known.
type chunkTable struct {
	pos     int64
	wide    bool
	offsets []uint64
}

// mp4Tagger rewrites a file box by box, replacing moov/udta/meta/ilst items it owns and copying everything else.
type mp4Tagger struct {
	in      *os.File
	w       *mp4.Writer
	items   []mp4Item
	oldMoov mp4.BoxInfo
	newMoov *mp4.BoxInfo
	tables  []chunkTable
	seen    map[string]bool
}

// tagMP4 writes intent metadata into the MP4 container at path through a temporary sibling that replaces it.
func tagMP4(path string, intent models.DownloadIntent) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := checkFtyp(in); err != nil {
		return err
	}

	out, err := os.CreateTemp(filepath.Dir(path), ".tag-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(out.Name())

	t := &mp4Tagger{in: in, w: mp4.NewWriter(out), items: mp4Items(intent), seen: map[string]bool{}}
	if _, err := mp4.ReadBoxStructure(in, t.handle); err != nil {
		out.Close()
		return fmt.Errorf("failed to rewrite boxes: %w", err)
	}
	if t.newMoov == nil {
		out.Close()
		return errors.New("no moov box")
	}
	if err := t.patchChunkOffsets(out); err != nil {
		out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Rename(out.Name(), path)
}

func checkFtyp(r io.ReadSeeker) error {
	bi, err := mp4.ReadBoxInfo(r)
	if err != nil {
		return fmt.Errorf("not an MP4 file: %w", err)
	}
	if bi.Type != mp4.BoxTypeFtyp() {
		return fmt.Errorf("not an MP4 file: first box is %q", bi.Type.String())
	}
	return nil
}

func (t *mp4Tagger) handle(h *mp4.ReadHandle) (any, error) {
	switch {
	case pathIs(h.Path, "moov"):
		t.oldMoov = h.BoxInfo
		bi, err := t.container(h, func() error {
			if t.seen["udta"] {
				return nil
			}
			return t.writeBox(mp4.BoxTypeUdta(), nil, t.writeMeta)
		})
		t.newMoov = bi
		return nil, err
	case pathIs(h.Path, "moov", "udta"):
		t.seen["udta"] = true
		_, err := t.container(h, func() error {
			if t.seen["meta"] {
				return nil
			}
			return t.writeMeta()
		})
		return nil, err
	case pathIs(h.Path, "moov", "udta", "meta"):
		t.seen["meta"] = true
		return nil, t.meta(h)
	case pathIs(h.Path, "moov", "udta", "meta", "ilst"):
		t.seen["ilst"] = true
		_, err := t.container(h, t.writeItems)
		return nil, err
	case len(h.Path) == 5 && pathIs(h.Path[:4], "moov", "udta", "meta", "ilst"):
		if slices.ContainsFunc(t.items, func(it mp4Item) bool { return it.kind == h.BoxInfo.Type }) {
			return nil, nil
		}
	case pathIs(h.Path, "moov", "trak"), pathIs(h.Path, "moov", "trak", "mdia"),
		pathIs(h.Path, "moov", "trak", "mdia", "minf"), pathIs(h.Path, "moov", "trak", "mdia", "minf", "stbl"):
		_, err := t.container(h, nil)
		return nil, err
	case h.BoxInfo.Type == mp4.BoxTypeStco() || h.BoxInfo.Type == mp4.BoxTypeCo64():
		return nil, t.chunkOffsets(h)
	}
	return nil, t.w.CopyBox(t.in, &h.BoxInfo)
}

// container writes a payload-less box, its children, then whatever after adds before closing it.
func (t *mp4Tagger) container(h *mp4.ReadHandle, after func() error) (*mp4.BoxInfo, error) {
	if _, err := t.w.StartBox(&h.BoxInfo); err != nil {
		return nil, err
	}
	if _, err := h.Expand(); err != nil {
		return nil, err
	}
	if after != nil {
		if err := after(); err != nil {
			return nil, err
		}
	}
	return t.w.EndBox()
}

func (t *mp4Tagger) meta(h *mp4.ReadHandle) error {
	box, _, err := h.ReadPayload()
	if err != nil {
		return err
	}
	if _, err := t.w.StartBox(&h.BoxInfo); err != nil {
		return err
	}
	if _, err := mp4.Marshal(t.w, box, h.BoxInfo.Context); err != nil {
		return err
	}
	if _, err := h.Expand(); err != nil {
		return err
	}
	if !t.seen["ilst"] {
		if err := t.writeBox(mp4.BoxTypeIlst(), nil, t.writeItems); err != nil {
			return err
		}
	}
	_, err = t.w.EndBox()
	return err
}

func (t *mp4Tagger) chunkOffsets(h *mp4.ReadHandle) error {
	box, _, err := h.ReadPayload()
	if err != nil {
		return err
	}
	bi, err := t.w.StartBox(&h.BoxInfo)
	if err != nil {
		return err
	}

	table := chunkTable{pos: int64(bi.Offset + bi.HeaderSize + 8)}
	switch b := box.(type) {
	case *mp4.Stco:
		for _, off := range b.ChunkOffset {
			table.offsets = append(table.offsets, uint64(off))
		}
	case *mp4.Co64:
		table.wide = true
		table.offsets = b.ChunkOffset
	}
	t.tables = append(t.tables, table)

	if _, err := mp4.Marshal(t.w, box, h.BoxInfo.Context); err != nil {
		return err
	}
	_, err = t.w.EndBox()
	return err
}

// patchChunkOffsets shifts chunk offsets that pointed past the original moov by the change in its size.
func (t *mp4Tagger) patchChunkOffsets(out io.WriteSeeker) error {
	delta := int64(t.newMoov.Size) - int64(t.oldMoov.Size)
	if delta == 0 {
		return nil
	}

	moovEnd := t.oldMoov.Offset + t.oldMoov.Size
	for _, table := range t.tables {
		for i, off := range table.offsets {
			if off < moovEnd {
				continue
			}

			shifted := uint64(int64(off) + delta)
			var buf []byte
			if table.wide {
				buf = binary.BigEndian.AppendUint64(nil, shifted)
			} else {
				if shifted > 0xFFFFFFFF {
					return errors.New("chunk offset overflows stco")
				}
				buf = binary.BigEndian.AppendUint32(nil, uint32(shifted))
			}

			if _, err := out.Seek(table.pos+int64(i*len(buf)), io.SeekStart); err != nil {
				return err
			}
			if _, err := out.Write(buf); err != nil {
				return err
			}
		}
	}
	_, err := out.Seek(0, io.SeekEnd)
	return err
}

func (t *mp4Tagger) writeMeta() error {
	hdlr := &mp4.Hdlr{HandlerType: [4]byte{'m', 'd', 'i', 'r'}}
	return t.writeBox(mp4.BoxTypeMeta(), &mp4.Meta{}, func() error {
		if err := t.writeBox(mp4.BoxTypeHdlr(), hdlr, nil); err != nil {
			return err
		}
		return t.writeBox(mp4.BoxTypeIlst(), nil, t.writeItems)
	})
}

func (t *mp4Tagger) writeItems() error {
	ctx := mp4.Context{UnderIlst: true, UnderIlstMeta: true}
	for _, it := range t.items {
		data := &mp4.Data{DataType: mp4.DataTypeStringUTF8, Data: []byte(it.value)}
		err := t.writeBox(it.kind, nil, func() error {
			if _, err := t.w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeData()}); err != nil {
				return err
			}
			if _, err := mp4.Marshal(t.w, data, ctx); err != nil {
				return err
			}
			_, err := t.w.EndBox()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", it.kind, err)
		}
	}
	return nil
}

// writeBox writes a new box of kind with an optional payload and children.
func (t *mp4Tagger) writeBox(kind mp4.BoxType, payload mp4.IImmutableBox, children func() error) error {
	if _, err := t.w.StartBox(&mp4.BoxInfo{Type: kind}); err != nil {
		return err
	}
	if payload != nil {
		if _, err := mp4.Marshal(t.w, payload, mp4.Context{}); err != nil {
			return err
		}
	}
	if children != nil {
		if err := children(); err != nil {
			return err
		}
	}
	_, err := t.w.EndBox()
	return err
}

func pathIs(path mp4.BoxPath, types ...string) bool {
	if len(path) != len(types) {
		return false
	}
	for i, kind := range types {
		if path[i] != mp4.StrToBoxType(kind) {
			return false
		}
	}
	return true
}
