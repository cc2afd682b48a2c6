package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Difficulty is one of the three game tiers
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Difficulties lists every tier in unlock order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is a known tier
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty accepts any casing of a tier name
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", ValidationError{Field: "difficulty", Message: fmt.Sprintf("unknown difficulty %q", s)}
	}
	return d, nil
}

// StringList is a string slice stored as a JSON array in a single text column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	if len(out) == 0 {
		out = nil
	}
	*l = out
	return nil
}

// Contains reports whether s is in the list
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Word is a single spelling word as held by the word bank
type Word struct {
	ID                string     `json:"id" db:"id" validate:"required"`
	Term              string     `json:"term" db:"term" validate:"required"`
	Difficulty        Difficulty `json:"difficulty" db:"difficulty" validate:"required,difficulty"`
	Category          string     `json:"category" db:"category"`
	Hint              string     `json:"hint,omitempty" db:"hint"`
	Scenario          string     `json:"scenario,omitempty" db:"scenario"`
	HintLocalized     string     `json:"hintLocalized,omitempty" db:"hint_localized"`
	ScenarioLocalized string     `json:"scenarioLocalized,omitempty" db:"scenario_localized"`
	GradeLevels       StringList `json:"gradeLevels,omitempty" db:"grade_levels"`
	Sections          StringList `json:"sections,omitempty" db:"sections"`
}

// Validate checks a word before it is written to the word bank
func (w Word) Validate() error {
	return validateStruct(w)
}

// AvailableTo reports whether a student in the given grade and section may see the word.
// An empty grade level or section list means the word is open to everyone.
func (w Word) AvailableTo(gradeLevel, section string) bool {
	if len(w.GradeLevels) > 0 && !w.GradeLevels.Contains(gradeLevel) {
		return false
	}
	if len(w.Sections) > 0 && !w.Sections.Contains(section) {
		return false
	}
	return true
}

// FilterByDifficulty returns the words of one tier, preserving order
func FilterByDifficulty(words []Word, difficulty Difficulty) []Word {
	var out []Word
	for _, w := range words {
		if w.Difficulty == difficulty {
			out = append(out, w)
		}
	}
	return out
}

// FilterForStudent keeps the words visible to a grade and section.
// With both values empty (teachers, admins) every word is kept.
func FilterForStudent(words []Word, gradeLevel, section string) []Word {
	if gradeLevel == "" && section == "" {
		return words
	}
	out := make([]Word, 0, len(words))
	for _, w := range words {
		if w.AvailableTo(gradeLevel, section) {
			out = append(out, w)
		}
	}
	return out
}

// WordListMeta describes the cached word list
type WordListMeta struct {
	LastUpdated int64  `json:"lastUpdated"`
	Fingerprint string `json:"fingerprint"`
	Count       int    `json:"count"`
}
