package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clawscli/mesa/internal/dataset"
	"github.com/clawscli/mesa/internal/state"
)

const (
	DefaultLoadTimeout = 30 * time.Second
	DefaultStorageKey  = "default"
	envConfigPath      = "MESA_CONFIG"
)

var (
	pathMu       sync.RWMutex
	pathOverride string
)

// SetConfigPath overrides the config file location. An empty path restores
// the default lookup.
func SetConfigPath(path string) {
	doWithLock(&pathMu, func() { pathOverride = path })
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "mesa"), nil
}

// ConfigPath resolves the config file: SetConfigPath, then $MESA_CONFIG,
// then config.yaml under ConfigDir.
func ConfigPath() (string, error) {
	if p := withRLock(&pathMu, func() string { return pathOverride }); p != "" {
		return p, nil
	}
	if p := os.Getenv(envConfigPath); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// TableConfig overrides table options. Unset fields keep the base value.
type TableConfig struct {
	RowPadding       *float64     `yaml:"row_padding,omitempty"`
	BodyHeight       *float64     `yaml:"body_height,omitempty"`
	FixedHeight      *bool        `yaml:"fixed_height,omitempty"`
	FillHeight       *bool        `yaml:"fill_height,omitempty"`
	DefaultRowHeight *float64     `yaml:"default_row_height,omitempty"`
	ScrollDebounce   Duration     `yaml:"scroll_debounce,omitempty"`
	ScrollImmediate  *bool        `yaml:"scroll_immediate,omitempty"`
	LoadingText      string       `yaml:"loading_text,omitempty"`
	NoRowsText       string       `yaml:"no_rows_text,omitempty"`
	InitialSorts     []state.Sort `yaml:"initial_sorts,omitempty"`
	Getter           string       `yaml:"getter,omitempty"`
	TrackBy          string       `yaml:"track_by,omitempty"`
}

// Apply overlays the set fields of t onto o.
func (t TableConfig) Apply(o Options) Options {
	if t.RowPadding != nil {
		o.RowPadding = *t.RowPadding
	}
	if t.BodyHeight != nil {
		o.BodyHeight = *t.BodyHeight
	}
	if t.FixedHeight != nil {
		o.FixedHeight = *t.FixedHeight
	}
	if t.FillHeight != nil {
		o.FillHeight = *t.FillHeight
	}
	if t.DefaultRowHeight != nil {
		o.DefaultRowHeight = *t.DefaultRowHeight
	}
	if t.ScrollDebounce > 0 {
		o.ScrollDebounce = t.ScrollDebounce.Duration()
	}
	if t.ScrollImmediate != nil {
		o.ScrollImmediate = *t.ScrollImmediate
	}
	if t.LoadingText != "" {
		o.LoadingText = t.LoadingText
	}
	if t.NoRowsText != "" {
		o.NoRowsText = t.NoRowsText
	}
	if len(t.InitialSorts) > 0 {
		o.InitialSorts = slices.Clone(t.InitialSorts)
	}
	if t.Getter != "" {
		o.Getter = t.Getter
	}
	if t.TrackBy != "" {
		o.TrackBy = t.TrackBy
	}
	return o
}

type PersistenceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
	Key     string `yaml:"key,omitempty"`
	Hash    string `yaml:"hash,omitempty"`
}

// SourceConfig describes one data source.
type SourceConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path,omitempty"`
	Rows int    `yaml:"rows,omitempty"`
}

// Source builds the data source described by c.
func (c SourceConfig) Source() (dataset.Source, error) {
	switch c.Type {
	case "csv":
		if c.Path == "" {
			return nil, &ValidationError{Field: "data.sources.path", Message: "csv source needs a path"}
		}
		return dataset.CSVSource{Path: c.Path}, nil
	case "synthetic", "":
		return dataset.Synthetic{Count: c.Rows}, nil
	default:
		return nil, &ValidationError{
			Field:   "data.sources.type",
			Value:   c.Type,
			Message: fmt.Sprintf("unknown source type %q", c.Type),
		}
	}
}

type DataConfig struct {
	Sources []SourceConfig `yaml:"sources,omitempty"`
	Timeout Duration       `yaml:"timeout,omitempty"`
}

type FileConfig struct {
	mu                  sync.RWMutex      `yaml:"-"`
	persistenceOverride *bool             `yaml:"-"` // CLI flag override (not persisted)
	Table               TableConfig       `yaml:"table,omitempty"`
	Persistence         PersistenceConfig `yaml:"persistence"`
	Data                DataConfig        `yaml:"data,omitempty"`
}

// Duration wraps time.Duration for YAML marshal/unmarshal as string (e.g., "5s", "30s")
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Persistence: PersistenceConfig{
			Enabled: false,
			Key:     DefaultStorageKey,
		},
		Data: DataConfig{
			Timeout: Duration(DefaultLoadTimeout),
		},
	}
}

var (
	fileConfig     *FileConfig
	fileConfigOnce sync.Once
)

// File returns the process-wide file config, loading it on first use.
func File() *FileConfig {
	fileConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = DefaultFileConfig()
		}
		fileConfig = cfg
	})
	return fileConfig
}

func Load() (*FileConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultFileConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultFileConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultFileConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *FileConfig) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	snapshot := withRLock(&c.mu, func() FileConfig {
		table := c.Table
		table.InitialSorts = slices.Clone(c.Table.InitialSorts)
		return FileConfig{
			Table:       table,
			Persistence: c.Persistence,
			Data: DataConfig{
				Sources: slices.Clone(c.Data.Sources),
				Timeout: c.Data.Timeout,
			},
		}
	})

	data, err := yaml.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// Atomic write: write to temp file, then rename
	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
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
		return fmt.Errorf("rename config file: %w", err)
	}

	return nil
}

func (c *FileConfig) applyDefaults() {
	if c.Data.Timeout <= 0 {
		c.Data.Timeout = Duration(DefaultLoadTimeout)
	}
	if c.Persistence.Key == "" {
		c.Persistence.Key = DefaultStorageKey
	}
}

// Options overlays the table section onto base.
func (c *FileConfig) Options(base Options) Options {
	return withRLock(&c.mu, func() Options { return c.Table.Apply(base) })
}

func (c *FileConfig) LoadTimeout() time.Duration {
	return withRLock(&c.mu, func() time.Duration {
		if c.Data.Timeout <= 0 {
			return DefaultLoadTimeout
		}
		return c.Data.Timeout.Duration()
	})
}

func (c *FileConfig) Sources() []SourceConfig {
	return withRLock(&c.mu, func() []SourceConfig { return slices.Clone(c.Data.Sources) })
}

func (c *FileConfig) SetSources(sources []SourceConfig) {
	doWithLock(&c.mu, func() { c.Data.Sources = slices.Clone(sources) })
}

func (c *FileConfig) PersistenceEnabled() bool {
	return withRLock(&c.mu, func() bool {
		if c.persistenceOverride != nil {
			return *c.persistenceOverride
		}
		return c.Persistence.Enabled
	})
}

func (c *FileConfig) SetPersistenceEnabled(enabled bool) {
	doWithLock(&c.mu, func() { c.persistenceOverride = &enabled })
}

func (c *FileConfig) StorageKey() string {
	return withRLock(&c.mu, func() string {
		if c.Persistence.Key == "" {
			return DefaultStorageKey
		}
		return c.Persistence.Key
	})
}

func (c *FileConfig) StorageHash() string {
	return withRLock(&c.mu, func() string { return c.Persistence.Hash })
}

// StatePath returns the state file location. Relative paths and the empty
// default resolve under ConfigDir.
func (c *FileConfig) StatePath() (string, error) {
	p := withRLock(&c.mu, func() string { return c.Persistence.Path })
	if filepath.IsAbs(p) {
		return p, nil
	}
	if p == "" {
		p = "state.ini"
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

func withRLock[T any](mu *sync.RWMutex, fn func() T) T {
	mu.RLock()
	defer mu.RUnlock()
	return fn()
}

func doWithLock(mu *sync.RWMutex, fn func()) {
	mu.Lock()
	defer mu.Unlock()
	fn()
}
