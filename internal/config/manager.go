package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/dpshade/pocket-problem/internal/errors"
)

// ConfigFile is the formatting configuration path relative to the library root
const ConfigFile = "config.json"

// EnvLibraryDir overrides the library root
const EnvLibraryDir = "POCKET_PROBLEM_DIR"

// LibraryDir returns the library root: $POCKET_PROBLEM_DIR or ~/.pocket-problem
func LibraryDir() (string, error) {
	if dir := os.Getenv(EnvLibraryDir); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pocket-problem"), nil
}

// Manager loads and persists the formatting configuration
type Manager struct {
	fs  billy.Filesystem
	mu  sync.RWMutex
	cfg FormattingConfig
}

// NewManager creates a manager and loads config.json from fs. A missing file
// yields the defaults; an unreadable one is reported and replaced by them.
func NewManager(fs billy.Filesystem) *Manager {
	m := &Manager{fs: fs, cfg: Default()}
	if err := m.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using default formatting\n", err)
	}
	return m
}

// Load reads config.json, merging it over the defaults. Keys missing from
// the file keep their default values.
func (m *Manager) Load() error {
	data, err := util.ReadFile(m.fs, ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			m.set(Default())
			return nil
		}
		return errors.StorageError("read configuration", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return errors.CorruptedFileError(ConfigFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return errors.CorruptedFileError(ConfigFile, err)
	}

	m.set(cfg)
	return nil
}

// Save validates cfg and writes it to config.json
func (m *Manager) Save(cfg FormattingConfig) error {
	if err := cfg.Validate(); err != nil {
		return errors.ValidationError(err.Error())
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := util.WriteFile(m.fs, ConfigFile, append(data, '\n'), 0644); err != nil {
		return errors.StorageError("write configuration", err)
	}

	m.set(cfg.Clone())
	return nil
}

// Reset restores and persists the defaults
func (m *Manager) Reset() error {
	return m.Save(Default())
}

// Config returns a copy of the current configuration
func (m *Manager) Config() FormattingConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Clone()
}

// Path returns the location of config.json
func (m *Manager) Path() string {
	return m.fs.Join(m.fs.Root(), ConfigFile)
}

func (m *Manager) set(cfg FormattingConfig) {
	if cfg.CustomCommands == nil {
		cfg.CustomCommands = map[string]string{}
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}
