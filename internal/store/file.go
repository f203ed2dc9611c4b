package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/dokzlo13/smartpanel/internal/timer"
)

// DefaultFileName is the settings file created in the working directory.
const DefaultFileName = "timer_settings.json"

// FileStore keeps the mapping in a single indented JSON document.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore creates a store for path on the given filesystem.
func NewFileStore(fsys afero.Fs, path string) *FileStore {
	if path == "" {
		path = DefaultFileName
	}
	return &FileStore{fs: fsys, path: path}
}

// NewOSFileStore creates a store on the real filesystem.
func NewOSFileStore(path string) *FileStore {
	return NewFileStore(afero.NewOsFs(), path)
}

// Path returns the settings file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the settings file.
func (s *FileStore) Load() (map[string]timer.Settings, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return map[string]timer.Settings{}, nil
	}
	if err != nil {
		return map[string]timer.Settings{}, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var records map[string]fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return map[string]timer.Settings{}, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	all := make(map[string]timer.Settings, len(records))
	for id, r := range records {
		all[id] = r.settings()
	}
	return all, nil
}

// fileRecord is one entry as read from disk. Older panel files stored the
// repeat mode as the boolean "is_one_time"; an explicit repeat_mode wins.
type fileRecord struct {
	timer.Settings
	IsOneTime *bool `json:"is_one_time"`
}

func (r fileRecord) settings() timer.Settings {
	s := r.Settings
	if s.RepeatMode == "" && r.IsOneTime != nil {
		s.RepeatMode = timer.RepeatDaily
		if *r.IsOneTime {
			s.RepeatMode = timer.RepeatOnce
		}
	}
	return s
}

// Save writes to a temporary file next to the target and renames it into place.
func (s *FileStore) Save(all map[string]timer.Settings) error {
	if all == nil {
		all = map[string]timer.Settings{}
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	log.Debug().Str("path", s.path).Int("timers", len(all)).Msg("Timer settings saved")
	return nil
}
