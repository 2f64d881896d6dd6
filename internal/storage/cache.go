package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/dpshade/pocket-problem/internal/models"
)

const cacheFile = CacheDir + "/metadata.json"

// ProblemMetadata is the cached listing data for one problem file
type ProblemMetadata struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Template  string    `json:"template,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	FilePath  string    `json:"file_path"`
	ModTime   time.Time `json:"mod_time"`
	FileHash  string    `json:"file_hash"`
}

// MetadataCache handles caching of problem metadata
type MetadataCache struct {
	fs       billy.Filesystem
	metadata map[string]*ProblemMetadata
	mu       sync.RWMutex // Protects metadata map from concurrent access
}

// NewMetadataCache creates a new metadata cache
func NewMetadataCache(fs billy.Filesystem) *MetadataCache {
	return &MetadataCache{
		fs:       fs,
		metadata: make(map[string]*ProblemMetadata),
	}
}

// Load loads the metadata cache from disk
func (c *MetadataCache) Load() error {
	data, err := util.ReadFile(c.fs, cacheFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No cache file exists yet
		}
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := json.Unmarshal(data, &c.metadata); err != nil || c.metadata == nil {
		// If cache is corrupted, start fresh
		c.metadata = make(map[string]*ProblemMetadata)
	}
	return nil
}

// Save saves the metadata cache to disk
func (c *MetadataCache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.metadata, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := c.fs.MkdirAll(path.Dir(cacheFile), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := util.WriteFile(c.fs, cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Get retrieves metadata for a file, checking if cache is valid
func (c *MetadataCache) Get(relPath string, fileInfo os.FileInfo) (*ProblemMetadata, bool) {
	c.mu.RLock()
	cached, exists := c.metadata[relPath]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}

	// Check if file has been modified
	if !fileInfo.ModTime().Equal(cached.ModTime) {
		return nil, false
	}

	return cached, true
}

// Set stores metadata in the cache
func (c *MetadataCache) Set(relPath string, fileInfo os.FileInfo, problem *models.Problem) {
	c.mu.Lock()
	c.metadata[relPath] = &ProblemMetadata{
		ID:        problem.ID,
		Title:     problem.Name,
		Tags:      problem.Tags,
		Template:  problem.Template,
		CreatedAt: problem.CreatedAt,
		UpdatedAt: problem.UpdatedAt,
		FilePath:  problem.FilePath,
		ModTime:   fileInfo.ModTime(),
		FileHash:  problem.ContentHash,
	}
	c.mu.Unlock()
}

// ToProblem converts cached metadata back to a Problem (without content)
func (m *ProblemMetadata) ToProblem() *models.Problem {
	return &models.Problem{
		ID:          m.ID,
		Name:        m.Title,
		Tags:        m.Tags,
		Template:    m.Template,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		FilePath:    m.FilePath,
		ContentHash: m.FileHash,
		Content:     "", // Content loaded on demand
	}
}

// Cleanup removes cache entries for files that no longer exist. It reports
// whether anything was removed.
func (c *MetadataCache) Cleanup(existingFiles map[string]bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := false
	for relPath := range c.metadata {
		if !existingFiles[relPath] {
			delete(c.metadata, relPath)
			removed = true
		}
	}
	return removed
}

// Len returns the number of cached entries
func (c *MetadataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.metadata)
}
