package storage

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
)

// Library layout, relative to the root
const (
	ProblemsDir  = "problems"
	TemplatesDir = "templates"
	LogsDir      = "logs"
	StateDir     = ".pocket-problem"
	CacheDir     = ".pocket-problem/cache"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateID checks that id can be used as a file name
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return errors.InvalidInputError(fmt.Sprintf("invalid id '%s': use letters, digits, '-' and '_'", id))
	}
	return nil
}

// Storage handles all file system operations for problems and templates
type Storage struct {
	fs    billy.Filesystem
	cache *MetadataCache
}

// Open creates a storage rooted at an on-disk directory
func Open(rootPath string) (*Storage, error) {
	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory %s: %w", rootPath, err)
	}
	return NewStorage(osfs.New(rootPath)), nil
}

// NewStorage creates a storage on fs
func NewStorage(fs billy.Filesystem) *Storage {
	cache := NewMetadataCache(fs)
	if err := cache.Load(); err != nil {
		// Log error but don't fail - cache is optional
		fmt.Fprintf(os.Stderr, "Warning: failed to load metadata cache: %v\n", err)
	}

	return &Storage{
		fs:    fs,
		cache: cache,
	}
}

// FS returns the library filesystem
func (s *Storage) FS() billy.Filesystem {
	return s.fs
}

// Root returns the library root path
func (s *Storage) Root() string {
	return s.fs.Root()
}

// InitLibrary creates the directory structure for a problem library
func (s *Storage) InitLibrary() error {
	dirs := []string{ProblemsDir, TemplatesDir, LogsDir, StateDir, CacheDir}

	for _, dir := range dirs {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return errors.StorageError("create directory "+dir, err)
		}
	}
	return nil
}

// ProblemPath returns the library-relative file for a problem id
func ProblemPath(id string) string {
	return path.Join(ProblemsDir, id+".md")
}

// TemplatePath returns the library-relative file for a user template id
func TemplatePath(id string) string {
	return path.Join(TemplatesDir, id+".yaml")
}

// LoadProblem loads a problem from a markdown file with YAML frontmatter
func (s *Storage) LoadProblem(relPath string) (*models.Problem, error) {
	content, err := util.ReadFile(s.fs, relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewAppError(errors.ErrCodeFileNotFound, fmt.Sprintf("problem file %s does not exist", relPath))
		}
		return nil, errors.StorageError("read "+relPath, err)
	}

	problem, err := ParseProblem(content)
	if err != nil {
		return nil, errors.CorruptedFileError(relPath, err)
	}

	problem.FilePath = relPath
	problem.ContentHash = calculateHash(content)

	return problem, nil
}

// SaveProblem writes a problem as YAML frontmatter followed by its source
func (s *Storage) SaveProblem(problem *models.Problem) error {
	if err := ValidateID(problem.ID); err != nil {
		return err
	}
	if problem.FilePath == "" {
		problem.FilePath = ProblemPath(problem.ID)
	}

	if err := s.fs.MkdirAll(path.Dir(problem.FilePath), 0755); err != nil {
		return errors.StorageError("create directory", err)
	}

	content, err := serializeProblem(problem)
	if err != nil {
		return fmt.Errorf("failed to serialize problem: %w", err)
	}

	if err := util.WriteFile(s.fs, problem.FilePath, content, 0644); err != nil {
		return errors.StorageError("write "+problem.FilePath, err)
	}
	problem.ContentHash = calculateHash(content)

	return nil
}

// DeleteProblem removes a problem file
func (s *Storage) DeleteProblem(problem *models.Problem) error {
	if _, err := s.fs.Stat(problem.FilePath); os.IsNotExist(err) {
		return errors.NotFoundError(fmt.Sprintf("problem file %s", problem.FilePath))
	}

	if err := s.fs.Remove(problem.FilePath); err != nil {
		return errors.StorageError("delete "+problem.FilePath, err)
	}
	return nil
}

// ListProblems returns every problem in the library, sorted by id. Metadata
// comes from the cache when the file is unchanged; sources are not loaded
// for cached entries.
func (s *Storage) ListProblems() ([]*models.Problem, error) {
	entries, err := s.fs.ReadDir(ProblemsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Problem{}, nil
		}
		return nil, errors.StorageError("list problems", err)
	}

	var problems []*models.Problem
	existingFiles := make(map[string]bool)
	cacheModified := false

	for _, info := range entries {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".md") {
			continue
		}
		relPath := path.Join(ProblemsDir, info.Name())
		existingFiles[relPath] = true

		// Try to get from cache first
		if cached, valid := s.cache.Get(relPath, info); valid {
			problems = append(problems, cached.ToProblem())
			continue
		}

		// Cache miss - load and parse the problem
		problem, err := s.LoadProblem(relPath)
		if err != nil {
			// Log error but keep listing
			fmt.Fprintf(os.Stderr, "Warning: failed to load problem %s: %v\n", relPath, err)
			continue
		}

		s.cache.Set(relPath, info, problem)
		cacheModified = true

		problems = append(problems, problem)
	}

	// Cleanup cache entries for deleted files
	if s.cache.Cleanup(existingFiles) {
		cacheModified = true
	}

	if cacheModified {
		if err := s.cache.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save metadata cache: %v\n", err)
		}
	}

	sort.Slice(problems, func(i, j int) bool { return problems[i].ID < problems[j].ID })
	return problems, nil
}

// LoadTemplate loads a user template definition from a YAML file
func (s *Storage) LoadTemplate(relPath string) (*models.TemplateDefinition, error) {
	content, err := util.ReadFile(s.fs, relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewAppError(errors.ErrCodeFileNotFound, fmt.Sprintf("template file %s does not exist", relPath))
		}
		return nil, errors.StorageError("read "+relPath, err)
	}

	var def models.TemplateDefinition
	if err := yaml.Unmarshal(content, &def); err != nil {
		return nil, errors.CorruptedFileError(relPath, err)
	}

	def.FilePath = relPath
	return &def, nil
}

// SaveTemplate writes a user template definition to templates/<id>.yaml
func (s *Storage) SaveTemplate(def *models.TemplateDefinition) error {
	if err := ValidateID(def.ID); err != nil {
		return err
	}
	if def.FilePath == "" {
		def.FilePath = TemplatePath(def.ID)
	}

	if err := s.fs.MkdirAll(TemplatesDir, 0755); err != nil {
		return errors.StorageError("create directory", err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(def); err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}

	if err := util.WriteFile(s.fs, def.FilePath, buf.Bytes(), 0644); err != nil {
		return errors.StorageError("write "+def.FilePath, err)
	}
	return nil
}

// DeleteTemplate removes a user template file
func (s *Storage) DeleteTemplate(def *models.TemplateDefinition) error {
	if err := s.fs.Remove(def.FilePath); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFoundError(fmt.Sprintf("template file %s", def.FilePath))
		}
		return errors.StorageError("delete "+def.FilePath, err)
	}
	return nil
}

// ListTemplates returns all user templates, sorted by file name. Files that
// fail to parse are reported and skipped.
func (s *Storage) ListTemplates() ([]*models.TemplateDefinition, error) {
	entries, err := s.fs.ReadDir(TemplatesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.TemplateDefinition{}, nil
		}
		return nil, errors.StorageError("list templates", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var defs []*models.TemplateDefinition
	for _, info := range entries {
		name := info.Name()
		if info.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}

		relPath := path.Join(TemplatesDir, name)
		def, err := s.LoadTemplate(relPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load template %s: %v\n", relPath, err)
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Helper functions

// ParseProblem parses a problem file: YAML frontmatter between --- lines,
// then the markdown source
func ParseProblem(content []byte) (*models.Problem, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Check for frontmatter delimiter
	if !scanner.Scan() || strings.TrimRight(scanner.Text(), "\r") != "---" {
		return nil, fmt.Errorf("missing frontmatter delimiter")
	}

	// Read frontmatter
	var frontmatterLines []string
	closed := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "---" {
			closed = true
			break
		}
		frontmatterLines = append(frontmatterLines, line)
	}
	if !closed {
		return nil, fmt.Errorf("unterminated frontmatter")
	}

	var problem models.Problem
	if err := yaml.Unmarshal([]byte(strings.Join(frontmatterLines, "\n")), &problem); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	// Read remaining content
	var contentLines []string
	for scanner.Scan() {
		contentLines = append(contentLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Trim only leading newlines; indentation may be meaningful
	problem.Content = strings.TrimLeft(strings.Join(contentLines, "\n"), "\n")

	return &problem, nil
}

func serializeProblem(problem *models.Problem) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("---\n")

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(problem); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}

	buf.WriteString("---\n")

	if problem.Content != "" {
		buf.WriteString("\n")
		buf.WriteString(problem.Content)
		// Ensure file ends with newline
		if !strings.HasSuffix(problem.Content, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}

func calculateHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
