// Package service wires the compiler core to the problem library. Every
// surface (CLI, HTTP API, TUI) goes through it.
package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/dpshade/pocket-problem/internal/assembler"
	"github.com/dpshade/pocket-problem/internal/config"
	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/git"
	"github.com/dpshade/pocket-problem/internal/importer"
	"github.com/dpshade/pocket-problem/internal/models"
	"github.com/dpshade/pocket-problem/internal/preview"
	"github.com/dpshade/pocket-problem/internal/registry"
	"github.com/dpshade/pocket-problem/internal/renderer"
	"github.com/dpshade/pocket-problem/internal/resolver"
	"github.com/dpshade/pocket-problem/internal/storage"
	"github.com/dpshade/pocket-problem/internal/tokenizer"
)

// Service provides business logic for problem authoring
type Service struct {
	storage     *storage.Storage
	registry    *registry.Registry
	resolver    *resolver.Resolver
	config      *config.Manager
	pipeline    preview.Pipeline
	errorLog    *errors.ErrorLog
	problemSets *storage.ProblemSetStorage
	importer    *importer.Importer
	gitSync     *git.GitSync // nil when the library is not on disk

	mu       sync.RWMutex
	problems []*models.Problem // Cached problems for fast access

	compileMu  sync.Mutex // one document compiles at a time
	templateMu sync.Mutex // template files and the registry change together
}

// Options configures New
type Options struct {
	RootPath   string           // library directory; ignored when FS is set
	FS         billy.Filesystem // library filesystem, e.g. memfs in tests
	Pipeline   preview.Pipeline // defaults to pdflatex
	DisableGit bool
}

// NewService creates a service on the library named by POCKET_PROBLEM_DIR,
// or ~/.pocket-problem
func NewService() (*Service, error) {
	rootPath, err := config.LibraryDir()
	if err != nil {
		return nil, err
	}
	return New(Options{RootPath: rootPath})
}

// New creates a service instance
func New(opts Options) (*Service, error) {
	var store *storage.Storage
	if opts.FS != nil {
		store = storage.NewStorage(opts.FS)
	} else {
		var err error
		if store, err = storage.Open(opts.RootPath); err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	reg := registry.NewWithBuiltins()
	svc := &Service{
		storage:     store,
		registry:    reg,
		resolver:    resolver.New(reg),
		config:      config.NewManager(store.FS()),
		pipeline:    opts.Pipeline,
		errorLog:    errors.NewErrorLog(store.FS()),
		problemSets: storage.NewProblemSetStorage(store.FS()),
		importer:    importer.New(),
	}
	if svc.pipeline == nil {
		svc.pipeline = preview.NewPDFLatex(store.Root())
	}

	svc.loadUserTemplates()

	if opts.FS == nil && !opts.DisableGit {
		svc.gitSync = git.NewGitSync(store.Root())
		// Git sync initialization failure is not fatal
		if err := svc.gitSync.Initialize(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: git sync unavailable: %v\n", err)
		}
	}

	return svc, nil
}

// loadUserTemplates registers templates/*.yaml. A template that fails
// validation or reuses a taken id is skipped with a warning.
func (s *Service) loadUserTemplates() {
	defs, err := s.storage.ListTemplates()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to list user templates: %v\n", err)
		return
	}
	for _, def := range defs {
		if err := s.registry.Register(def); err != nil {
			s.errorLog.Record(err)
			fmt.Fprintf(os.Stderr, "Warning: skipping template %s: %v\n", def.FilePath, err)
		}
	}
}

// InitLibrary initializes a new problem library
func (s *Service) InitLibrary() error {
	return s.storage.InitLibrary()
}

// Root returns the library directory
func (s *Service) Root() string {
	return s.storage.Root()
}

// ErrorLog returns the library error log
func (s *Service) ErrorLog() *errors.ErrorLog {
	return s.errorLog
}

// Compilation

// BuildSourceDocument assembles free-form markdown. It never fails.
func (s *Service) BuildSourceDocument(source string) *models.Document {
	return assembler.Assemble(assembler.Tokens(tokenizer.Tokenize(source)))
}

// BuildTemplateDocument resolves a filled template into a document
func (s *Service) BuildTemplateDocument(templateID string, fillings models.Fillings) (*models.Document, error) {
	blocks, err := s.resolver.Resolve(templateID, fillings)
	if err != nil {
		return nil, err
	}
	return assembler.Assemble(assembler.Resolved(blocks)), nil
}

// CompileSource compiles free-form markdown to a LaTeX document
func (s *Service) CompileSource(source string) string {
	return s.Emit(s.BuildSourceDocument(source))
}

// CompileTemplate compiles a filled template to a LaTeX document
func (s *Service) CompileTemplate(templateID string, fillings models.Fillings) (string, error) {
	doc, err := s.BuildTemplateDocument(templateID, fillings)
	if err != nil {
		return "", err
	}
	return s.Emit(doc), nil
}

// CompileProblem compiles a stored problem from its template or its source
func (s *Service) CompileProblem(id string) (string, error) {
	problem, err := s.GetProblem(id)
	if err != nil {
		return "", err
	}
	doc, err := s.problemDocument(problem)
	if err != nil {
		return "", err
	}
	return s.Emit(doc), nil
}

func (s *Service) problemDocument(problem *models.Problem) (*models.Document, error) {
	if problem.UsesTemplate() {
		return s.BuildTemplateDocument(problem.Template, problem.Fillings)
	}
	return s.BuildSourceDocument(problem.Content), nil
}

// Emit renders an assembled document with the current formatting config
func (s *Service) Emit(doc *models.Document) string {
	cfg := s.config.Config()

	s.compileMu.Lock()
	defer s.compileMu.Unlock()
	return renderer.Emit(doc.Blocks, cfg)
}

// Templates

// ListTemplates returns every registered template in registration order
func (s *Service) ListTemplates() []*models.TemplateDefinition {
	return s.registry.List()
}

// GetTemplate returns a template by id
func (s *Service) GetTemplate(id string) (*models.TemplateDefinition, error) {
	return s.registry.Lookup(id)
}

// SearchTemplates fuzzy-matches templates by id, name and description
func (s *Service) SearchTemplates(query string) []*models.TemplateDefinition {
	defs := s.registry.List()
	if query == "" {
		return defs
	}

	searchStrings := make([]string, len(defs))
	for i, d := range defs {
		searchStrings[i] = fmt.Sprintf("%s %s %s", d.ID, d.Name, d.Description)
	}

	var results []*models.TemplateDefinition
	for _, match := range fuzzy.Find(query, searchStrings) {
		results = append(results, defs[match.Index])
	}
	return results
}

// RegisterTemplate validates, persists and registers a user template
func (s *Service) RegisterTemplate(def *models.TemplateDefinition) error {
	if err := registry.Validate(def); err != nil {
		return err
	}

	s.templateMu.Lock()
	defer s.templateMu.Unlock()

	if s.registry.Has(def.ID) {
		return errors.DuplicateTemplateIDError(def.ID)
	}
	if err := storage.ValidateID(def.ID); err != nil {
		return err
	}

	if err := s.storage.SaveTemplate(def); err != nil {
		return err
	}
	if err := s.registry.Register(def); err != nil {
		return err
	}

	s.sync(fmt.Sprintf("Add template: %s", def.ID))
	return nil
}

// DeleteTemplate removes a user template. Built-in templates cannot be
// deleted.
func (s *Service) DeleteTemplate(id string) error {
	s.templateMu.Lock()
	defer s.templateMu.Unlock()

	def, err := s.registry.Lookup(id)
	if err != nil {
		return err
	}
	if def.FilePath == "" {
		return errors.InvalidInputError(fmt.Sprintf("template '%s' is built in", id))
	}

	if err := s.storage.DeleteTemplate(def); err != nil {
		return err
	}
	if err := s.registry.Unregister(id); err != nil {
		return err
	}

	s.sync(fmt.Sprintf("Delete template: %s", id))
	return nil
}

// Problems

func (s *Service) loadProblems() ([]*models.Problem, error) {
	s.mu.RLock()
	problems := s.problems
	s.mu.RUnlock()
	if problems != nil {
		return problems, nil
	}

	problems, err := s.storage.ListProblems()
	if err != nil {
		return nil, err
	}
	if problems == nil {
		problems = []*models.Problem{}
	}

	s.mu.Lock()
	s.problems = problems
	s.mu.Unlock()
	return problems, nil
}

func (s *Service) invalidate() {
	s.mu.Lock()
	s.problems = nil
	s.mu.Unlock()
}

// ListProblems returns every problem in the library, without content
func (s *Service) ListProblems() ([]*models.Problem, error) {
	return s.loadProblems()
}

// SearchProblems searches problems by query string
func (s *Service) SearchProblems(query string) ([]*models.Problem, error) {
	problems, err := s.ListProblems()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return problems, nil
	}

	// Create searchable strings for each problem
	searchStrings := make([]string, len(problems))
	for i, p := range problems {
		searchStrings[i] = fmt.Sprintf("%s %s %s %s", p.Name, p.ID, p.Template, strings.Join(p.Tags, " "))
	}

	var results []*models.Problem
	for _, match := range fuzzy.Find(query, searchStrings) {
		results = append(results, problems[match.Index])
	}
	return results, nil
}

// GetProblem returns a problem by id with its content and fillings loaded
func (s *Service) GetProblem(id string) (*models.Problem, error) {
	problems, err := s.ListProblems()
	if err != nil {
		return nil, err
	}

	for _, p := range problems {
		if p.ID == id {
			// Listing comes from the metadata cache; load the full file
			return s.storage.LoadProblem(p.FilePath)
		}
	}
	return nil, errors.NotFoundError(fmt.Sprintf("problem '%s'", id))
}

// CreateProblem creates a new problem. An empty id gets a generated one.
func (s *Service) CreateProblem(problem *models.Problem) error {
	if problem.ID == "" {
		problem.ID = uuid.NewString()
	}
	if err := storage.ValidateID(problem.ID); err != nil {
		return err
	}
	if problem.Template != "" && !s.registry.Has(problem.Template) {
		return errors.UnknownTemplateError(problem.Template, nil)
	}
	if s.problemExists(problem.ID) {
		return errors.AlreadyExistsError(fmt.Sprintf("problem '%s'", problem.ID))
	}

	now := time.Now()
	problem.CreatedAt = now
	problem.UpdatedAt = now
	problem.FilePath = storage.ProblemPath(problem.ID)

	if err := s.storage.SaveProblem(problem); err != nil {
		return err
	}
	s.invalidate()

	s.sync(fmt.Sprintf("Create problem: %s", problem.ID))
	return nil
}

// SaveProblem writes an existing or new problem, bumping UpdatedAt
func (s *Service) SaveProblem(problem *models.Problem) error {
	now := time.Now()
	if problem.CreatedAt.IsZero() {
		problem.CreatedAt = now
	}
	problem.UpdatedAt = now

	if err := s.storage.SaveProblem(problem); err != nil {
		return err
	}
	s.invalidate()

	s.sync(fmt.Sprintf("Update problem: %s", problem.ID))
	return nil
}

// DeleteProblem removes a problem and drops it from every problem set
func (s *Service) DeleteProblem(id string) error {
	problem, err := s.GetProblem(id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteProblem(problem); err != nil {
		return err
	}
	s.invalidate()

	sets, err := s.problemSets.LoadProblemSets()
	if err != nil {
		return err
	}
	for _, set := range sets {
		kept := set.ProblemIDs[:0:0]
		for _, pid := range set.ProblemIDs {
			if pid != id {
				kept = append(kept, pid)
			}
		}
		if len(kept) != len(set.ProblemIDs) {
			set.ProblemIDs = kept
			if err := s.problemSets.SaveProblemSet(set); err != nil {
				return err
			}
		}
	}

	s.sync(fmt.Sprintf("Delete problem: %s", id))
	return nil
}

func (s *Service) problemExists(id string) bool {
	_, err := s.storage.FS().Stat(storage.ProblemPath(id))
	return err == nil
}

// Problem sets

// ListProblemSets returns every saved problem set
func (s *Service) ListProblemSets() ([]models.ProblemSet, error) {
	return s.problemSets.LoadProblemSets()
}

// GetProblemSet returns a problem set by name
func (s *Service) GetProblemSet(name string) (*models.ProblemSet, error) {
	return s.problemSets.GetProblemSet(name)
}

// SaveProblemSet saves a problem set after checking that its problems exist
func (s *Service) SaveProblemSet(set models.ProblemSet) error {
	for _, id := range set.ProblemIDs {
		if !s.problemExists(id) {
			return errors.NotFoundError(fmt.Sprintf("problem '%s'", id))
		}
	}
	if err := s.problemSets.SaveProblemSet(set); err != nil {
		return err
	}

	s.sync(fmt.Sprintf("Save problem set: %s", set.Name))
	return nil
}

// DeleteProblemSet removes a problem set
func (s *Service) DeleteProblemSet(name string) error {
	if err := s.problemSets.DeleteProblemSet(name); err != nil {
		return err
	}

	s.sync(fmt.Sprintf("Delete problem set: %s", name))
	return nil
}

// CompileProblemSet compiles the problems of a set, in order, into one
// document
func (s *Service) CompileProblemSet(name string) (string, error) {
	set, err := s.problemSets.GetProblemSet(name)
	if err != nil {
		return "", err
	}

	var blocks []models.Block
	if set.Title != "" {
		blocks = append(blocks, models.Block{Type: models.BlockTitle, Content: set.Title})
	}
	for _, id := range set.ProblemIDs {
		problem, err := s.GetProblem(id)
		if err != nil {
			return "", err
		}
		doc, err := s.problemDocument(problem)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, doc.Blocks...)
	}

	return s.Emit(assembler.Assemble(assembler.Resolved(blocks))), nil
}

// Import

// ImportSummary reports what an import wrote to the library
type ImportSummary struct {
	Problems  []string // ids written
	Templates []string // ids registered
	Skipped   []string // ids already present
	Errors    []error
}

// Import copies problems and templates from a directory or git repository
// into the library. Existing problems are skipped unless overwrite is set;
// templates whose id is taken are always skipped.
func (s *Service) Import(ctx context.Context, opts importer.Options, overwrite bool) (*ImportSummary, error) {
	result, err := s.importer.Import(ctx, opts)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{Errors: result.Errors}
	for _, def := range result.Templates {
		if s.registry.Has(def.ID) {
			summary.Skipped = append(summary.Skipped, "template:"+def.ID)
			continue
		}
		if err := registry.Validate(def); err != nil {
			summary.Errors = append(summary.Errors, err)
			continue
		}
		if err := s.storage.SaveTemplate(def); err != nil {
			summary.Errors = append(summary.Errors, err)
			continue
		}
		if err := s.registry.Register(def); err != nil {
			summary.Errors = append(summary.Errors, err)
			continue
		}
		summary.Templates = append(summary.Templates, def.ID)
	}

	for _, problem := range result.Problems {
		if s.problemExists(problem.ID) && !overwrite {
			summary.Skipped = append(summary.Skipped, problem.ID)
			continue
		}
		if err := s.storage.SaveProblem(problem); err != nil {
			summary.Errors = append(summary.Errors, err)
			continue
		}
		summary.Problems = append(summary.Problems, problem.ID)
	}
	s.invalidate()

	if len(summary.Problems)+len(summary.Templates) > 0 {
		s.sync(fmt.Sprintf("Import %d problems from %s", len(summary.Problems), opts.Source))
	}
	return summary, nil
}

// Configuration

// Config returns a copy of the formatting configuration
func (s *Service) Config() config.FormattingConfig {
	return s.config.Config()
}

// UpdateConfig validates and persists cfg
func (s *Service) UpdateConfig(cfg config.FormattingConfig) error {
	if err := s.config.Save(cfg); err != nil {
		return err
	}
	s.sync("Update formatting config")
	return nil
}

// ResetConfig restores the default formatting configuration
func (s *Service) ResetConfig() error {
	if err := s.config.Reset(); err != nil {
		return err
	}
	s.sync("Reset formatting config")
	return nil
}

// ConfigPath returns the config file location
func (s *Service) ConfigPath() string {
	return filepath.Join(s.storage.Root(), s.config.Path())
}

// Preview

// Preview renders latex to PDF
func (s *Service) Preview(ctx context.Context, latex string) (*preview.Result, error) {
	return s.pipeline.Render(ctx, latex)
}

// ExportPDF renders latex and writes the PDF to dest
func (s *Service) ExportPDF(ctx context.Context, latex, dest string) error {
	return preview.Export(ctx, s.pipeline, latex, dest)
}

// Git sync

// IsGitSyncEnabled returns true if git sync is available and enabled
func (s *Service) IsGitSyncEnabled() bool {
	return s.gitSync != nil && s.gitSync.IsEnabled()
}

// GetGitSyncStatus returns the current git sync status
func (s *Service) GetGitSyncStatus() (string, error) {
	if s.gitSync == nil {
		return "Git sync unavailable", nil
	}
	return s.gitSync.GetStatus()
}

// SetupGitRepository configures git sync with the provided repository URL
func (s *Service) SetupGitRepository(repoURL string) error {
	if s.gitSync == nil {
		return errors.InvalidInputError("git sync needs an on-disk library")
	}
	if err := s.gitSync.SetupRepository(repoURL); err != nil {
		return fmt.Errorf("failed to setup Git repository: %w", err)
	}
	s.invalidate()
	return nil
}

// EnableGitSync turns git sync back on for this session
func (s *Service) EnableGitSync() error {
	if s.gitSync == nil {
		return errors.InvalidInputError("git sync needs an on-disk library")
	}
	s.gitSync.Enable()
	return nil
}

// DisableGitSync turns git sync off for this session
func (s *Service) DisableGitSync() {
	if s.gitSync != nil {
		s.gitSync.Disable()
	}
}

// SyncGitChanges commits and pushes any pending library changes
func (s *Service) SyncGitChanges(message string) error {
	if !s.IsGitSyncEnabled() {
		return fmt.Errorf("git sync is not enabled")
	}
	return s.gitSync.SyncChanges(message)
}

// PullGitChanges manually pulls changes from the remote repository
func (s *Service) PullGitChanges() error {
	if !s.IsGitSyncEnabled() {
		return fmt.Errorf("git sync is not enabled")
	}
	if err := s.gitSync.PullChanges(); err != nil {
		return fmt.Errorf("failed to pull changes: %w", err)
	}

	// Reload problems after pulling changes
	s.invalidate()
	return nil
}

// StartBackgroundSync pulls remote changes every interval until ctx is done
func (s *Service) StartBackgroundSync(ctx context.Context, interval time.Duration) {
	if !s.IsGitSyncEnabled() {
		return
	}
	go s.gitSync.BackgroundSync(ctx, interval)
}

func (s *Service) sync(message string) {
	if !s.IsGitSyncEnabled() {
		return
	}
	if err := s.gitSync.SyncChanges(message); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Git sync failed after %s: %v\n", strings.ToLower(message), err)
	}
}

// Scaffolding

// ScaffoldFillings returns fillings for every slot of a template: literal
// slots get their default text, ref slots one instance of their default
// template, scaffolded recursively
func (s *Service) ScaffoldFillings(templateID string) (models.Fillings, error) {
	def, err := s.registry.Lookup(templateID)
	if err != nil {
		return nil, err
	}
	return s.scaffold(def, map[string]bool{def.ID: true}), nil
}

func (s *Service) scaffold(def *models.TemplateDefinition, seen map[string]bool) models.Fillings {
	fillings := make(models.Fillings, len(def.Slots))
	for _, slot := range def.Slots {
		switch slot.Kind {
		case models.SlotTemplateRef, models.SlotTemplateRefList:
			nested, ok := s.scaffoldNested(slot, seen)
			if !ok {
				continue
			}
			if slot.Kind == models.SlotTemplateRef {
				fillings[slot.ID] = nested
			} else {
				fillings[slot.ID] = models.List(nested)
			}
		default:
			fillings[slot.ID] = models.Literal(slot.Default)
		}
	}
	return fillings
}

func (s *Service) scaffoldNested(slot models.SlotSpec, seen map[string]bool) (models.SlotFilling, bool) {
	if slot.Default == "" || seen[slot.Default] {
		return models.SlotFilling{}, false
	}
	def, err := s.registry.Lookup(slot.Default)
	if err != nil {
		return models.SlotFilling{}, false
	}

	seen[def.ID] = true
	defer delete(seen, def.ID)
	return models.Nested(def.ID, s.scaffold(def, seen)), true
}

// ScaffoldYAML renders a fillings file for templateID in slot order, each
// slot annotated with its label
func (s *Service) ScaffoldYAML(templateID string) (string, error) {
	def, err := s.registry.Lookup(templateID)
	if err != nil {
		return "", err
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{
		s.scaffoldNode(def, map[string]bool{def.ID: true}),
	}}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternalError, "failed to encode scaffold")
	}
	if err := encoder.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternalError, "failed to encode scaffold")
	}
	return buf.String(), nil
}

func (s *Service) scaffoldNode(def *models.TemplateDefinition, seen map[string]bool) *yaml.Node {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, slot := range def.Slots {
		var value *yaml.Node
		switch slot.Kind {
		case models.SlotTemplateRef, models.SlotTemplateRefList:
			if slot.Default == "" || seen[slot.Default] {
				continue
			}
			nested, err := s.registry.Lookup(slot.Default)
			if err != nil {
				continue
			}
			seen[nested.ID] = true
			value = &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
				scalar("template"), scalar(nested.ID),
				scalar("fillings"), s.scaffoldNode(nested, seen),
			}}
			delete(seen, nested.ID)
			if slot.Kind == models.SlotTemplateRefList {
				value = &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{value}}
			}
		default:
			value = scalar(slot.Default)
		}

		key := scalar(slot.ID)
		key.HeadComment = slotComment(slot)
		mapping.Content = append(mapping.Content, key, value)
	}
	return mapping
}

func scalar(v string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	if v == "" {
		node.Style = yaml.DoubleQuotedStyle
	}
	return node
}

func slotComment(slot models.SlotSpec) string {
	need := "optional"
	if slot.Required {
		need = "required"
	}
	comment := fmt.Sprintf("# %s (%s", slot.DisplayLabel(), need)
	switch slot.Kind {
	case models.SlotEquation:
		comment += ", math"
	case models.SlotTemplateRefList:
		comment += ", list"
	}
	return comment + ")"
}
