package store

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/ini.v1"
)

const (
	stateKey   = "state"
	savedAtKey = "saved_at"
)

// INI stores one section per key in an INI file. Values are base64 encoded
// so multi-line snapshots survive the format.
type INI struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewINI returns a store backed by the file at path. The file is created on
// the first Save.
func NewINI(path string) *INI {
	return &INI{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *INI) Path() string {
	return s.path
}

func (s *INI) Load(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return "", err
	}
	sec, err := f.GetSection(key)
	if err != nil || !sec.HasKey(stateKey) {
		return "", ErrNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(sec.Key(stateKey).String())
	if err != nil {
		return "", fmt.Errorf("decode %s state: %w", key, err)
	}
	return string(raw), nil
}

func (s *INI) Save(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if errors.Is(err, ErrNotFound) {
		f = ini.Empty()
	} else if err != nil {
		return err
	}

	sec := f.Section(key)
	sec.Key(stateKey).SetValue(base64.StdEncoding.EncodeToString([]byte(value)))
	sec.Key(savedAtKey).SetValue(s.now().UTC().Format(time.RFC3339))

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("render state file: %w", err)
	}
	return writeAtomic(s.path, buf.Bytes())
}

// read returns ErrNotFound when the file does not exist yet.
func (s *INI) read() (*ini.File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return f, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
