package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
)

const problemSetsFile = "problem_sets.json"

// ProblemSetStorage handles persistence of problem sets
type ProblemSetStorage struct {
	fs billy.Filesystem
	mu sync.Mutex
}

// NewProblemSetStorage creates a new problem set storage
func NewProblemSetStorage(fs billy.Filesystem) *ProblemSetStorage {
	return &ProblemSetStorage{fs: fs}
}

// problemSetsData represents the JSON structure of problem_sets.json
type problemSetsData struct {
	Sets    []models.ProblemSet `json:"sets"`
	Version string              `json:"version"`
}

// LoadProblemSets loads all problem sets from disk
func (s *ProblemSetStorage) LoadProblemSets() ([]models.ProblemSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *ProblemSetStorage) load() ([]models.ProblemSet, error) {
	data, err := util.ReadFile(s.fs, problemSetsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.ProblemSet{}, nil
		}
		return nil, errors.StorageError("read problem sets", err)
	}

	var setsData problemSetsData
	if err := json.Unmarshal(data, &setsData); err != nil {
		return nil, errors.CorruptedFileError(problemSetsFile, err)
	}
	return setsData.Sets, nil
}

func (s *ProblemSetStorage) save(sets []models.ProblemSet) error {
	data := problemSetsData{
		Sets:    sets,
		Version: "1.0",
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal problem sets: %w", err)
	}

	if err := util.WriteFile(s.fs, problemSetsFile, jsonData, 0644); err != nil {
		return errors.StorageError("write problem sets", err)
	}
	return nil
}

// SaveProblemSet adds a problem set, replacing any set with the same name
func (s *ProblemSetStorage) SaveProblemSet(set models.ProblemSet) error {
	if err := ValidateID(set.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sets, err := s.load()
	if err != nil {
		return err
	}

	now := time.Now()
	if set.CreatedAt.IsZero() {
		set.CreatedAt = now
	}
	set.UpdatedAt = now

	for i, existing := range sets {
		if existing.Name == set.Name {
			set.CreatedAt = existing.CreatedAt
			sets[i] = set
			return s.save(sets)
		}
	}

	return s.save(append(sets, set))
}

// DeleteProblemSet removes a problem set by name
func (s *ProblemSetStorage) DeleteProblemSet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sets, err := s.load()
	if err != nil {
		return err
	}

	for i, set := range sets {
		if set.Name == name {
			sets = append(sets[:i], sets[i+1:]...)
			return s.save(sets)
		}
	}

	return errors.NotFoundError(fmt.Sprintf("problem set '%s'", name))
}

// GetProblemSet retrieves a problem set by name
func (s *ProblemSetStorage) GetProblemSet(name string) (*models.ProblemSet, error) {
	sets, err := s.LoadProblemSets()
	if err != nil {
		return nil, err
	}

	for i := range sets {
		if sets[i].Name == name {
			return &sets[i], nil
		}
	}

	return nil, errors.NotFoundError(fmt.Sprintf("problem set '%s'", name))
}
