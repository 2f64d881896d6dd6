package models

import "time"

// ProblemSet is a named, ordered selection of problems compiled together as
// one worksheet
type ProblemSet struct {
	Name       string    `json:"name"`
	Title      string    `json:"title,omitempty"`
	ProblemIDs []string  `json:"problem_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Contains reports whether the set lists problem id
func (s ProblemSet) Contains(id string) bool {
	for _, pid := range s.ProblemIDs {
		if pid == id {
			return true
		}
	}
	return false
}
