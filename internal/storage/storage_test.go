package storage

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage(memfs.New())
	require.NoError(t, s.InitLibrary())
	return s
}

func TestInitLibrary(t *testing.T) {
	s := newTestStorage(t)
	for _, dir := range []string{ProblemsDir, TemplatesDir, LogsDir, CacheDir} {
		info, err := s.FS().Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestProblemRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	problem := &models.Problem{
		ID:        "linear-1",
		Name:      "Linear equation",
		Tags:      []string{"algebra"},
		CreatedAt: created,
		UpdatedAt: created,
		Content:   "#problem\nSolve:\n#eq \"2x + 3 = 7\"\n#question What is x?",
	}
	require.NoError(t, s.SaveProblem(problem))
	assert.Equal(t, "problems/linear-1.md", problem.FilePath)

	loaded, err := s.LoadProblem(problem.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "linear-1", loaded.ID)
	assert.Equal(t, "Linear equation", loaded.Name)
	assert.Equal(t, []string{"algebra"}, loaded.Tags)
	assert.True(t, created.Equal(loaded.CreatedAt))
	assert.Equal(t, problem.Content, loaded.Content)
	assert.Equal(t, problem.ContentHash, loaded.ContentHash)
	assert.NotEmpty(t, loaded.ContentHash)
}

func TestTemplateProblemRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	problem := &models.Problem{
		ID:       "mc-1",
		Name:     "Primes",
		Template: "multiple_choice",
		Fillings: models.Fillings{
			"description": models.Literal("Pick the prime."),
			"question":    models.Literal("Which is prime?"),
			"choices": models.List(
				models.Nested("choice", models.Fillings{"text": models.Literal("4")}),
				models.Nested("choice", models.Fillings{"text": models.Literal("7")}),
			),
		},
	}
	require.NoError(t, s.SaveProblem(problem))

	loaded, err := s.LoadProblem(problem.FilePath)
	require.NoError(t, err)
	assert.True(t, loaded.UsesTemplate())
	assert.Equal(t, problem.Fillings, loaded.Fillings)
	assert.Empty(t, loaded.Content)
}

func TestLoadProblemErrors(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.LoadProblem("problems/missing.md")
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))

	require.NoError(t, util.WriteFile(s.FS(), "problems/bad.md", []byte("no frontmatter"), 0644))
	_, err = s.LoadProblem("problems/bad.md")
	assert.True(t, errors.Is(err, errors.ErrCodeFileCorrupted))
}

func TestSaveProblemRejectsUnsafeID(t *testing.T) {
	s := newTestStorage(t)
	for _, id := range []string{"", "../escape", "a/b", ".hidden"} {
		err := s.SaveProblem(&models.Problem{ID: id})
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), id)
	}
}

func TestListProblemsUsesCacheAndSkipsBadFiles(t *testing.T) {
	s := newTestStorage(t)

	for _, id := range []string{"b", "a"} {
		require.NoError(t, s.SaveProblem(&models.Problem{ID: id, Name: "Problem " + id, Content: "#problem " + id}))
	}
	require.NoError(t, util.WriteFile(s.FS(), "problems/broken.md", []byte("---\nid: [\n"), 0644))
	require.NoError(t, util.WriteFile(s.FS(), "problems/notes.txt", []byte("ignored"), 0644))

	problems, err := s.ListProblems()
	require.NoError(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "a", problems[0].ID)
	assert.Equal(t, "b", problems[1].ID)
	assert.Equal(t, 2, s.cache.Len())

	// a fresh storage on the same filesystem reads the persisted cache
	reopened := NewStorage(s.FS())
	assert.Equal(t, 2, reopened.cache.Len())

	require.NoError(t, s.DeleteProblem(problems[0]))
	problems, err = s.ListProblems()
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, 1, s.cache.Len())
}

func TestListProblemsWithoutLibrary(t *testing.T) {
	s := NewStorage(memfs.New())
	problems, err := s.ListProblems()
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestDeleteMissingProblem(t *testing.T) {
	s := newTestStorage(t)
	err := s.DeleteProblem(&models.Problem{ID: "x", FilePath: ProblemPath("x")})
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestTemplateStorage(t *testing.T) {
	s := newTestStorage(t)

	def := &models.TemplateDefinition{
		ID:   "kinematics",
		Name: "Kinematics",
		Slots: []models.SlotSpec{
			{ID: "setup", Kind: models.SlotText, Required: true, Role: models.BlockDescription},
			{ID: "motion", Kind: models.SlotEquation, Aligned: true},
		},
	}
	require.NoError(t, s.SaveTemplate(def))
	assert.Equal(t, "templates/kinematics.yaml", def.FilePath)

	require.NoError(t, util.WriteFile(s.FS(), "templates/broken.yaml", []byte("slots: {"), 0644))

	defs, err := s.ListTemplates()
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, def.Slots, defs[0].Slots)
	assert.Equal(t, "Kinematics", defs[0].Name)

	require.NoError(t, s.DeleteTemplate(defs[0]))
	defs, err = s.ListTemplates()
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestProblemSets(t *testing.T) {
	fs := memfs.New()
	sets := NewProblemSetStorage(fs)

	all, err := sets.LoadProblemSets()
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, sets.SaveProblemSet(models.ProblemSet{Name: "week1", ProblemIDs: []string{"a", "b"}}))
	first, err := sets.GetProblemSet("week1")
	require.NoError(t, err)
	assert.False(t, first.CreatedAt.IsZero())

	require.NoError(t, sets.SaveProblemSet(models.ProblemSet{Name: "week1", ProblemIDs: []string{"c"}}))
	updated, err := sets.GetProblemSet("week1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, updated.ProblemIDs)
	assert.True(t, first.CreatedAt.Equal(updated.CreatedAt))

	require.NoError(t, sets.DeleteProblemSet("week1"))
	_, err = sets.GetProblemSet("week1")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
	assert.True(t, errors.Is(sets.DeleteProblemSet("week1"), errors.ErrCodeNotFound))
}
