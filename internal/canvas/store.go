package canvas

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/canvai/canvai/internal/config"
	"github.com/canvai/canvai/internal/host"
	"github.com/canvai/canvai/internal/logging"
)

const (
	mapsDirName = "maps"
	filePrefix  = "canvas_"
	fileSuffix  = ".png"
)

// Store persists rendered tile images keyed by host-assigned canvas id and
// restores their render bindings after a restart.
//
// The index is shared across threads: Persist writes from workers, RestoreAll
// and Cleanup iterate from the main thread. sync.Map gives the per-key
// atomic semantics the pipeline relies on; no outer lock exists.
type Store struct {
	dir       string
	tracker   *Tracker
	mirror    *Mirror // nil when disabled
	neverSeen string  // config.NeverSeenMtime or config.NeverSeenImmediate
	log       logging.Logger

	index    sync.Map // int32 → image.Image
	bindings sync.Map // int32 → *Binding
}

// NewStore returns a Store rooted at dataDir/maps. mirror may be nil.
func NewStore(dataDir string, tracker *Tracker, mirror *Mirror, neverSeen string, log logging.Logger) *Store {
	return &Store{
		dir:       filepath.Join(dataDir, mapsDirName),
		tracker:   tracker,
		mirror:    mirror,
		neverSeen: neverSeen,
		log:       log,
	}
}

func (s *Store) path(canvasID int32) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%d%s", filePrefix, canvasID, fileSuffix))
}

// parseID extracts the canvas id from a stored file name, reporting false
// for files that are not ours.
func parseID(name string) (int32, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(id), true
}

// Load reads previously persisted images into the index. A corrupt file is
// logged and skipped; the rest of the batch still loads. Call once at
// startup, before RestoreAll.
func (s *Store) Load(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read maps dir %s: %w", s.dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := parseID(entry.Name())
		if !ok {
			continue
		}

		img, err := s.readImage(entry.Name())
		if err != nil {
			s.log.Warn(ctx, "failed to load stored canvas image", "file", entry.Name(), "error", err)
			continue
		}
		s.index.Store(id, img)
		loaded++
	}

	s.log.Info(ctx, "canvas images loaded", "count", loaded)
	return nil
}

func (s *Store) readImage(name string) (image.Image, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Persist writes the raster for a canvas id and updates the index,
// overwriting any prior asset under the same id. Safe from worker threads.
func (s *Store) Persist(ctx context.Context, canvasID int32, img image.Image) error {
	if err := os.MkdirAll(s.dir, 0o770); err != nil {
		return fmt.Errorf("create maps dir %s: %w", s.dir, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode canvas %d: %w", canvasID, err)
	}

	path := s.path(canvasID)
	if err := os.WriteFile(path, buf.Bytes(), 0o660); err != nil {
		return fmt.Errorf("write canvas %d: %w", canvasID, err)
	}

	s.index.Store(canvasID, img)
	s.tracker.MarkSeen(canvasID)

	if s.mirror != nil {
		s.mirror.Enqueue(path)
	}
	return nil
}

// RestoreAll binds a render callback for every persisted asset the host
// still recognizes. Ids the host no longer knows are skipped silently: the
// host recycles canvas ids across restarts, so a miss is expected, not a
// corruption signal.
//
// Must run on the main thread, and only after the host's canvas registry is
// fully queryable.
func (s *Store) RestoreAll(ctx context.Context, reg host.CanvasRegistry) int {
	restored := 0
	s.index.Range(func(key, value any) bool {
		id := key.(int32)
		img := value.(image.Image)

		c, ok := reg.CanvasByID(id)
		if !ok {
			return true
		}

		binding := NewBinding(img)
		s.bindings.Store(id, binding)
		c.Bind(binding)
		restored++
		return true
	})

	s.log.Info(ctx, "canvas bindings restored", "count", restored)
	return restored
}

// BindNew registers a freshly persisted image on a live canvas. Main thread
// only.
func (s *Store) BindNew(c host.Canvas, img image.Image) {
	binding := NewBinding(img)
	s.bindings.Store(c.ID(), binding)
	c.Bind(binding)
}

// Binding returns the active render binding for a canvas id, if any.
func (s *Store) Binding(canvasID int32) (*Binding, bool) {
	v, ok := s.bindings.Load(canvasID)
	if !ok {
		return nil, false
	}
	return v.(*Binding), true
}

// Cleanup deletes every asset not seen for longer than maxAge: the file,
// the index entry, any binding, and the last-seen record. Assets that were
// never marked seen age from their file modification time or are reaped
// immediately, per the configured policy. Returns the number deleted.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	now := time.Now()
	deleted := 0

	s.index.Range(func(key, _ any) bool {
		id := key.(int32)

		lastSeen, ok := s.tracker.LastSeen(id)
		var age time.Duration
		switch {
		case ok:
			age = now.Sub(time.UnixMilli(lastSeen))
		case s.neverSeen == config.NeverSeenImmediate:
			age = maxAge + 1
		default:
			info, err := os.Stat(s.path(id))
			if err != nil {
				s.log.Warn(ctx, "failed to stat canvas image during cleanup", "canvas_id", id, "error", err)
				return true
			}
			age = now.Sub(info.ModTime())
		}

		if age <= maxAge {
			return true
		}

		if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
			s.log.Warn(ctx, "failed to delete canvas image", "canvas_id", id, "error", err)
			return true
		}
		s.index.Delete(id)
		s.bindings.Delete(id)
		s.tracker.Forget(ctx, id)
		deleted++
		return true
	})

	s.log.Info(ctx, "cleaned up unused canvas images", "deleted", deleted)
	return deleted, nil
}
