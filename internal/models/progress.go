package models

import (
	"encoding/json"
	"sort"
)

// StringSet is a set of ids encoded as a sorted JSON array
type StringSet map[string]struct{}

// NewStringSet builds a set from ids
func NewStringSet(ids ...string) StringSet {
	s := make(StringSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was not already present
func (s StringSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports membership
func (s StringSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewStringSet(ids...)
	return nil
}

// LevelProgress is the per-difficulty mastery record
type LevelProgress struct {
	Mastery     int `json:"mastery"`
	GamesPlayed int `json:"gamesPlayed"`
}

// ProgressHistoryEntry aggregates one calendar day of play
type ProgressHistoryEntry struct {
	Date           string `json:"date"`
	SparkiesEarned int    `json:"sparkiesEarned"`
	WordsLearned   int    `json:"wordsLearned"`
	GamesPlayed    int    `json:"gamesPlayed"`
}

// Certificate is awarded once per difficulty for a perfect game of sufficient length
type Certificate struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	EarnedDate  string     `json:"earnedDate"`
	Difficulty  Difficulty `json:"difficulty"`
	UserName    string     `json:"userName"`
	TeacherName string     `json:"teacherName,omitempty"`
}

// StudentProgress is the reconciliation target held on the student's remote document
type StudentProgress struct {
	Sparkies       int                          `json:"sparkies"`
	TotalGames     int                          `json:"totalGames"`
	WordsLearned   int                          `json:"wordsLearned"`
	BestStreak     int                          `json:"bestStreak"`
	CurrentStreak  int                          `json:"currentStreak"`
	LongestStreak  int                          `json:"longestStreak"`
	LastPlayedDate string                       `json:"lastPlayedDate"`
	Badges         StringSet                    `json:"badges"`
	Achievements   StringSet                    `json:"achievements"`
	Certificates   []Certificate                `json:"certificates"`
	WrongWords     StringSet                    `json:"wrongWords"`
	UsedWordIDs    map[Difficulty][]string      `json:"usedWordIds"`
	History        []ProgressHistoryEntry       `json:"progressHistory"`
	LevelProgress  map[Difficulty]LevelProgress `json:"levelProgress"`
}

// NewStudentProgress returns the state of a student who has never played
func NewStudentProgress() *StudentProgress {
	p := &StudentProgress{}
	p.ensure()
	return p
}

// ensure fills nil collections so decoded documents are safe to mutate
func (p *StudentProgress) ensure() {
	if p.Badges == nil {
		p.Badges = StringSet{}
	}
	if p.Achievements == nil {
		p.Achievements = StringSet{}
	}
	if p.WrongWords == nil {
		p.WrongWords = StringSet{}
	}
	if p.UsedWordIDs == nil {
		p.UsedWordIDs = map[Difficulty][]string{}
	}
	if p.LevelProgress == nil {
		p.LevelProgress = map[Difficulty]LevelProgress{}
	}
	if p.Certificates == nil {
		p.Certificates = []Certificate{}
	}
	if p.History == nil {
		p.History = []ProgressHistoryEntry{}
	}
}

// Clone returns a deep copy
func (p *StudentProgress) Clone() *StudentProgress {
	c := *p
	c.Badges = NewStringSet(p.Badges.Sorted()...)
	c.Achievements = NewStringSet(p.Achievements.Sorted()...)
	c.WrongWords = NewStringSet(p.WrongWords.Sorted()...)
	c.Certificates = append([]Certificate{}, p.Certificates...)
	c.History = append([]ProgressHistoryEntry{}, p.History...)
	c.UsedWordIDs = make(map[Difficulty][]string, len(p.UsedWordIDs))
	for d, ids := range p.UsedWordIDs {
		c.UsedWordIDs[d] = append([]string{}, ids...)
	}
	c.LevelProgress = make(map[Difficulty]LevelProgress, len(p.LevelProgress))
	for d, lp := range p.LevelProgress {
		c.LevelProgress[d] = lp
	}
	return &c
}

// HasCertificate reports whether a certificate exists for the difficulty
func (p *StudentProgress) HasCertificate(d Difficulty) bool {
	for _, c := range p.Certificates {
		if c.Difficulty == d {
			return true
		}
	}
	return false
}

// MarshalProgress encodes progress for the document store
func MarshalProgress(p *StudentProgress) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalProgress decodes a stored document. An empty document is a fresh student.
func UnmarshalProgress(data string) (*StudentProgress, error) {
	p := &StudentProgress{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), p); err != nil {
			return nil, err
		}
	}
	p.ensure()
	return p, nil
}
