package sink

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/becco1sar/blank-slots/domain/blank"
)

// frameStoreSize bounds the throttle cache; one entry per region is plenty.
const frameStoreSize = 32

// FrameStore persists a representative frame for an episode as a PNG.
// A flapping monitor can open episodes in quick succession; persistence is
// throttled per region so the disk sees at most one frame per cooldown.
type FrameStore struct {
	dir    string
	logger *slog.Logger
	recent *lru.LRU[int, time.Time]
}

// NewFrameStore creates the target directory if needed. cooldown is the
// minimum gap between persisted frames of one region.
func NewFrameStore(dir string, cooldown time.Duration, logger *slog.Logger) (*FrameStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sink: frame dir: %w", err)
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &FrameStore{
		dir:    dir,
		logger: logger,
		recent: lru.NewLRU[int, time.Time](frameStoreSize, nil, cooldown),
	}, nil
}

// Persist writes the luminance plane that opened an episode. Best-effort:
// failures are logged and swallowed so frame persistence can never disturb
// episode tracking.
func (f *FrameStore) Persist(r blank.Region, g *image.Gray, now time.Time) {
	if g == nil {
		return
	}
	if _, throttled := f.recent.Get(r.ID); throttled {
		return
	}
	f.recent.Add(r.ID, now)

	name := fmt.Sprintf("%s_%s_%s.png",
		sanitizeName(r.Name), now.Format("20060102T150405"), uuid.NewString())
	path := filepath.Join(f.dir, name)
	if err := imaging.Save(g, path); err != nil {
		if f.logger != nil {
			f.logger.Error("frame persist failed",
				slog.String("monitor", r.Name), slog.Any("error", err))
		}
		return
	}
	if f.logger != nil {
		f.logger.Info("frame persisted",
			slog.String("monitor", r.Name), slog.String("path", path))
	}
}

// sanitizeName makes a region name safe for filenames.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
