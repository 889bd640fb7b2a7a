package gallery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	errs "framegen/pkg/errors"
	"framegen/pkg/logger"
)

const indexFilename = "index.json"

// Item is one persisted gallery entry
type Item struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Timestamp int64  `json:"timestamp"`
	Image     string `json:"image"`
}

// Store owns the gallery directory: the JSON index plus one PNG per item
type Store struct {
	dir      string // absolute gallery root
	maxItems int
	logger   logger.Logger

	// mu serializes index read-modify-write within the process; fileLock
	// extends that to sibling processes sharing the gallery directory
	mu       sync.Mutex
	fileLock *flock.Flock
}

// NewStore creates a gallery store rooted at dir, creating it if needed.
// maxItems is the eviction cap on the index.
func NewStore(dir string, maxItems int, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if maxItems <= 0 {
		return nil, fmt.Errorf("gallery max items must be positive, got %d", maxItems)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create gallery directory: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gallery directory: %w", err)
	}

	return &Store{
		dir:      abs,
		maxItems: maxItems,
		logger:   log,
		fileLock: flock.New(filepath.Join(abs, ".gallery.lock")),
	}, nil
}

// Dir returns the absolute gallery root
func (s *Store) Dir() string {
	return s.dir
}

// List returns up to maxItems items, newest first. A missing or corrupt
// index yields an empty list; List never fails.
func (s *Store) List() []Item {
	s.lock()
	items := s.loadIndex()
	s.unlock()

	if len(items) > s.maxItems {
		items = items[len(items)-s.maxItems:]
	}

	// Reverse: most recent save first
	out := make([]Item, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
	}
	return out
}

// Save persists an image with its prompt and timestamp, evicting the oldest
// entries if the index would exceed the cap. The image must carry a PNG or
// JPEG signature. Returns the stored item with its fresh id.
func (s *Store) Save(image []byte, prompt string, timestamp int64) (Item, error) {
	if !IsImage(image) {
		return Item{}, errs.New(errs.ErrorTypeClientInput, "payload is not a PNG or JPEG image")
	}

	if timestamp < 0 {
		timestamp = 0
	}

	item := Item{
		ID:        uuid.New().String(),
		Prompt:    SanitizePrompt(prompt),
		Timestamp: timestamp,
	}
	item.Image = "/gallery/" + item.ID + ".png"

	path, err := s.safePath(item.ID)
	if err != nil {
		return Item{}, errs.New(errs.ErrorTypeStorage, "failed to build image path: %v", err)
	}

	s.lock()
	defer s.unlock()

	if err := writeFileAtomic(path, image); err != nil {
		return Item{}, errs.New(errs.ErrorTypeStorage, "failed to write image: %v", err)
	}

	items := append(s.loadIndex(), item)

	// Evict oldest entries beyond the cap, file first, then entry
	if excess := len(items) - s.maxItems; excess > 0 {
		for _, old := range items[:excess] {
			s.removeImageFile(old.ID)
		}
		items = items[excess:]
	}

	if err := s.writeIndex(items); err != nil {
		return Item{}, errs.New(errs.ErrorTypeStorage, "failed to write index: %v", err)
	}

	s.logger.DebugWithFields("gallery item saved", map[string]interface{}{
		"id":    item.ID,
		"items": len(items),
	})

	return item, nil
}

// Delete removes the item with the given id. The id must be a v4 UUID;
// a missing file or an id absent from the index is not an error.
func (s *Store) Delete(id string) error {
	if !ValidUUID(id) {
		return errs.New(errs.ErrorTypeClientInput, "invalid image id")
	}

	s.lock()
	defer s.unlock()

	s.removeImageFile(id)

	items := s.loadIndex()
	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}

	if err := s.writeIndex(kept); err != nil {
		return errs.New(errs.ErrorTypeStorage, "failed to write index: %v", err)
	}

	return nil
}

// ImagePath validates id and returns the absolute path of its image file.
// Malformed ids and paths resolving outside the gallery root are rejected.
func (s *Store) ImagePath(id string) (string, error) {
	return s.safePath(id)
}

// safePath validates the id before any path construction and verifies the
// joined path still resolves inside the gallery root
func (s *Store) safePath(id string) (string, error) {
	if !ValidUUID(id) {
		return "", errs.New(errs.ErrorTypeClientInput, "invalid image id")
	}

	path, err := filepath.Abs(filepath.Join(s.dir, id+".png"))
	if err != nil {
		return "", errs.New(errs.ErrorTypeStorage, "failed to resolve path: %v", err)
	}
	if !strings.HasPrefix(path, s.dir+string(filepath.Separator)) {
		return "", errs.New(errs.ErrorTypeClientInput, "image path escapes gallery root")
	}

	return path, nil
}

// removeImageFile deletes the image for id if present; a missing file is
// fine, anything else is logged but not fatal
func (s *Store) removeImageFile(id string) {
	path, err := s.safePath(id)
	if err != nil {
		// Entry with a malformed id; nothing on disk to remove
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.WithError(err).WithField("id", id).Warn("failed to remove image file")
	}
}

// loadIndex reads the index, treating a missing or corrupt file as empty
func (s *Store) loadIndex() []Item {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFilename))
	if err != nil {
		return nil
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.WithError(err).Warn("gallery index is corrupt, treating as empty")
		return nil
	}
	return items
}

// writeIndex persists the index atomically
func (s *Store) writeIndex(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.dir, indexFilename), data)
}

func (s *Store) lock() {
	s.mu.Lock()
	if err := s.fileLock.Lock(); err != nil {
		// Keep serving with the in-process mutex only
		s.logger.WithError(err).Warn("failed to acquire gallery file lock")
	}
}

func (s *Store) unlock() {
	if err := s.fileLock.Unlock(); err != nil {
		s.logger.WithError(err).Warn("failed to release gallery file lock")
	}
	s.mu.Unlock()
}

// writeFileAtomic writes data through a temp file and rename
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
