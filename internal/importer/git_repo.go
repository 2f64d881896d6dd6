// Package importer reads problems and templates from another library, a
// plain directory of markdown sources, or a public git repository.
package importer

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/dpshade/pocket-problem/internal/models"
	"github.com/dpshade/pocket-problem/internal/storage"
	"github.com/dpshade/pocket-problem/internal/tokenizer"
)

// Options controls an import
type Options struct {
	Source   string   // local directory or git repository URL
	Branch   string   // git only; default branch when empty
	Depth    int      // git only; shallow clone depth (0 = full clone)
	OwnerTag string   // git only; defaults to the owner in the URL
	Tags     []string // added to every imported problem
}

// Result contains what an import found
type Result struct {
	Source    string
	OwnerTag  string
	Problems  []*models.Problem
	Templates []*models.TemplateDefinition
	Errors    []error // per-file failures; the import continues past them
}

// Importer reads problems and templates from a source tree
type Importer struct {
	git string
	now func() time.Time
}

// New creates an importer that clones with the git binary on PATH
func New() *Importer {
	return &Importer{git: "git", now: time.Now}
}

var sshURL = regexp.MustCompile(`^git@([^:]+):([^/]+)/`)

// IsRepoURL reports whether source names a remote repository rather than a
// local directory
func IsRepoURL(source string) bool {
	if sshURL.MatchString(source) {
		return true
	}
	u, err := url.Parse(source)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http" || u.Scheme == "ssh" || u.Scheme == "git" || u.Scheme == "file")
}

// Import reads the source. Remote repositories are cloned into a temporary
// directory that is removed afterwards.
func (i *Importer) Import(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{Source: opts.Source}
	if opts.Source == "" {
		return result, fmt.Errorf("import source is required")
	}

	root := opts.Source
	tags := append([]string{}, opts.Tags...)

	if IsRepoURL(opts.Source) {
		owner := opts.OwnerTag
		if owner == "" {
			var err error
			if owner, err = extractOwnerFromURL(opts.Source); err != nil {
				return result, fmt.Errorf("failed to extract owner from URL: %w", err)
			}
		}
		result.OwnerTag = owner
		tags = append(tags, owner, "git-repository")

		tempDir, err := os.MkdirTemp("", "pocket-problem-import-")
		if err != nil {
			return result, fmt.Errorf("failed to create temporary directory: %w", err)
		}
		defer os.RemoveAll(tempDir)

		if root, err = i.clone(ctx, opts, tempDir); err != nil {
			return result, fmt.Errorf("failed to clone repository: %w", err)
		}
	} else if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return result, fmt.Errorf("%s is not a directory", root)
	}

	i.importTree(osfs.New(root), tags, result)
	return result, nil
}

// importTree reads a library layout (problems/ and templates/) when present,
// and otherwise every markdown file under the root
func (i *Importer) importTree(fs billy.Filesystem, tags []string, result *Result) {
	problemsDir, templatesDir := storage.ProblemsDir, storage.TemplatesDir
	if !isDir(fs, problemsDir) && !isDir(fs, templatesDir) {
		problemsDir, templatesDir = "", ""
	}

	for _, p := range walk(fs, problemsDir, ".md") {
		problem, err := i.importProblemFile(fs, p, tags)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to import problem %s: %w", p, err))
			continue
		}
		result.Problems = append(result.Problems, problem)
	}

	if templatesDir == "" {
		return
	}
	for _, p := range walk(fs, templatesDir, ".yaml", ".yml") {
		def, err := importTemplateFile(fs, p)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to import template %s: %w", p, err))
			continue
		}
		result.Templates = append(result.Templates, def)
	}
}

// importProblemFile reads a problem file. Files without frontmatter are
// treated as markdown sources named after the file.
func (i *Importer) importProblemFile(fs billy.Filesystem, p string, tags []string) (*models.Problem, error) {
	content, err := util.ReadFile(fs, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var problem *models.Problem
	if strings.HasPrefix(string(content), "---") {
		if problem, err = storage.ParseProblem(content); err != nil {
			return nil, err
		}
	} else {
		problem = &models.Problem{Content: string(content)}
	}

	if problem.ID == "" {
		problem.ID = slugify(strings.TrimSuffix(path.Base(p), path.Ext(p)))
	}
	if err := storage.ValidateID(problem.ID); err != nil {
		return nil, err
	}
	if problem.Name == "" {
		problem.Name = sourceTitle(problem.Content, problem.ID)
	}

	now := i.now()
	if problem.CreatedAt.IsZero() {
		problem.CreatedAt = now
	}
	if problem.UpdatedAt.IsZero() {
		problem.UpdatedAt = now
	}
	problem.Tags = cleanTags(append(problem.Tags, tags...))
	problem.FilePath = storage.ProblemPath(problem.ID)
	return problem, nil
}

func importTemplateFile(fs billy.Filesystem, p string) (*models.TemplateDefinition, error) {
	content, err := util.ReadFile(fs, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var def models.TemplateDefinition
	if err := yaml.Unmarshal(content, &def); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if def.ID == "" {
		def.ID = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}
	return &def, nil
}

// sourceTitle returns the inline text of the first #title directive
func sourceTitle(source, fallback string) string {
	for _, tok := range tokenizer.Tokenize(source) {
		if tok.Kind == models.TokenDirective && tok.Directive == models.DirectiveTitle && tok.Text != "" {
			return tok.Text
		}
	}
	return fallback
}

func (i *Importer) clone(ctx context.Context, opts Options, tempDir string) (string, error) {
	clonePath := filepath.Join(tempDir, "repo")

	args := []string{"clone"}
	if opts.Depth > 0 {
		args = append(args, "--depth", fmt.Sprintf("%d", opts.Depth))
	}
	if opts.Branch != "" {
		args = append(args, "--branch", opts.Branch)
	}
	args = append(args, opts.Source, clonePath)

	cmd := exec.CommandContext(ctx, i.git, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git clone failed: %w\nOutput: %s", err, string(output))
	}
	return clonePath, nil
}

// extractOwnerFromURL extracts the owner/username from a git repository URL
func extractOwnerFromURL(repoURL string) (string, error) {
	// Handle SSH URLs (git@github.com:user/repo.git)
	if matches := sshURL.FindStringSubmatch(repoURL); len(matches) > 2 {
		return matches[2], nil
	}

	parsedURL, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("invalid repository URL: %w", err)
	}

	pathParts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	if parsedURL.Host == "" || len(pathParts) < 2 {
		return "", fmt.Errorf("invalid repository URL format")
	}
	return pathParts[0], nil
}

// walk returns the files under dir with one of the extensions, depth first
// in directory order. Hidden entries are skipped.
func walk(fs billy.Filesystem, dir string, exts ...string) []string {
	readDir := dir
	if readDir == "" {
		readDir = "."
	}
	entries, err := fs.ReadDir(readDir)
	if err != nil {
		return nil
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		p := path.Join(dir, name)
		if entry.IsDir() {
			files = append(files, walk(fs, p, exts...)...)
			continue
		}
		for _, ext := range exts {
			if strings.HasSuffix(name, ext) {
				files = append(files, p)
				break
			}
		}
	}
	return files
}

func isDir(fs billy.Filesystem, p string) bool {
	info, err := fs.Stat(p)
	return err == nil && info.IsDir()
}

var nonSlug = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func slugify(name string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-_")
	if slug == "" {
		return "imported"
	}
	return slug
}

// cleanTags removes empty and duplicate tags
func cleanTags(tags []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !seen[tag] {
			seen[tag] = true
			result = append(result, tag)
		}
	}
	return result
}
