package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func tenWords(d Difficulty) []Word {
	words := make([]Word, 10)
	for i := range words {
		words[i] = Word{ID: string(rune('a' + i)), Term: "word", Difficulty: d}
	}
	return words
}

func TestSessionMastery(t *testing.T) {
	tests := []struct {
		name    string
		words   int
		correct int
		want    int
	}{
		{"empty session", 0, 0, 0},
		{"eight of ten", 10, 8, 80},
		{"all correct", 10, 10, 100},
		{"two of three rounds up", 3, 2, 67},
		{"one of three rounds down", 3, 1, 33},
		{"one of eight rounds half up", 8, 1, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := GameSession{Difficulty: DifficultyEasy}
			for i := 0; i < tt.words; i++ {
				id := string(rune('a' + i))
				s.Words = append(s.Words, Word{ID: id, Term: id, Difficulty: DifficultyEasy})
				s.Results = append(s.Results, WordResult{WordID: id, IsCorrect: i < tt.correct})
			}
			if got := s.Mastery(); got != tt.want {
				t.Errorf("Mastery() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionValidate(t *testing.T) {
	tests := []struct {
		name      string
		session   GameSession
		wantErr   bool
		wantField string
	}{
		{
			name:    "valid session",
			session: GameSession{Difficulty: DifficultyEasy, Words: tenWords(DifficultyEasy), Results: []WordResult{{WordID: "a", IsCorrect: true, Attempts: 1}}},
			wantErr: false,
		},
		{
			name:      "unknown difficulty",
			session:   GameSession{Difficulty: "EXPERT", Words: tenWords(DifficultyEasy)},
			wantErr:   true,
			wantField: "difficulty",
		},
		{
			name:      "negative sparkies",
			session:   GameSession{Difficulty: DifficultyEasy, TotalSparkiesEarned: -5},
			wantErr:   true,
			wantField: "totalSparkiesEarned",
		},
		{
			name:      "more results than words",
			session:   GameSession{Difficulty: DifficultyEasy, Results: []WordResult{{WordID: "a"}}},
			wantErr:   true,
			wantField: "results",
		},
		{
			name:      "result for foreign word",
			session:   GameSession{Difficulty: DifficultyEasy, Words: tenWords(DifficultyEasy), Results: []WordResult{{WordID: "zz"}}},
			wantErr:   true,
			wantField: "results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error type = %T, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("ValidationError.Field = %v, want %v", ve.Field, tt.wantField)
			}
		})
	}
}

func TestWordAvailableTo(t *testing.T) {
	tests := []struct {
		name    string
		word    Word
		grade   string
		section string
		want    bool
	}{
		{"open word", Word{}, "3", "A", true},
		{"matching grade", Word{GradeLevels: StringList{"2", "3"}}, "3", "A", true},
		{"other grade", Word{GradeLevels: StringList{"2"}}, "3", "A", false},
		{"matching section", Word{Sections: StringList{"A"}}, "3", "A", true},
		{"other section", Word{GradeLevels: StringList{"3"}, Sections: StringList{"B"}}, "3", "A", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.word.AvailableTo(tt.grade, tt.section); got != tt.want {
				t.Errorf("AvailableTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWordValidate(t *testing.T) {
	tests := []struct {
		name    string
		word    Word
		wantErr bool
	}{
		{"valid", Word{ID: "w1", Term: "apple", Difficulty: DifficultyEasy}, false},
		{"missing term", Word{ID: "w1", Difficulty: DifficultyEasy}, true},
		{"unknown difficulty", Word{ID: "w1", Term: "apple", Difficulty: "EXTREME"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.word.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("Validate() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty(" medium "); err != nil || d != DifficultyMedium {
		t.Errorf("ParseDifficulty() = %v, %v, want MEDIUM", d, err)
	}
	if _, err := ParseDifficulty("legendary"); !IsValidationError(err) {
		t.Errorf("ParseDifficulty() error = %v, want ValidationError", err)
	}
}

func TestStringListScan(t *testing.T) {
	var l StringList
	if err := l.Scan(`["1","2"]`); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(l) != 2 || l[1] != "2" {
		t.Errorf("Scan() = %v, want [1 2]", l)
	}
	if err := l.Scan("[]"); err != nil || l != nil {
		t.Errorf("Scan([]) = %v, %v, want nil list", l, err)
	}
	v, _ := StringList(nil).Value()
	if v != "[]" {
		t.Errorf("Value() = %v, want []", v)
	}
}

func TestStringSetAdd(t *testing.T) {
	s := NewStringSet("b1")
	if s.Add("b1") {
		t.Error("Add() of existing id returned true")
	}
	if !s.Add("b2") {
		t.Error("Add() of new id returned false")
	}
	b, _ := json.Marshal(s)
	if string(b) != `["b1","b2"]` {
		t.Errorf("MarshalJSON() = %s, want sorted array", b)
	}
}

func TestAccountRoundTripKeepsVariant(t *testing.T) {
	tests := []struct {
		name string
		acc  Account
		role Role
	}{
		{"student", &Student{ID: "s1", Name: "Ana"}, RoleStudent},
		{"teacher", &Teacher{ID: "t1", Name: "Mr. Cruz"}, RoleTeacher},
		{"admin", &Admin{ID: "a1"}, RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := MarshalAccount(tt.acc)
			if err != nil {
				t.Fatalf("MarshalAccount() error = %v", err)
			}
			got, err := UnmarshalAccount(b)
			if err != nil {
				t.Fatalf("UnmarshalAccount() error = %v", err)
			}
			if got.AccountRole() != tt.role || got.AccountID() != tt.acc.AccountID() {
				t.Errorf("UnmarshalAccount() = %s/%s, want %s/%s", got.AccountRole(), got.AccountID(), tt.role, tt.acc.AccountID())
			}
			if s, ok := got.(*Student); ok && s.Progress == nil {
				t.Error("decoded student has nil progress")
			}
		})
	}
}

func TestProgressCloneIsDeep(t *testing.T) {
	p := NewStudentProgress()
	p.Badges.Add("b1")
	p.UsedWordIDs[DifficultyEasy] = []string{"w1"}

	c := p.Clone()
	c.Badges.Add("b2")
	c.UsedWordIDs[DifficultyEasy][0] = "changed"

	if p.Badges.Has("b2") {
		t.Error("Clone() shares badge set")
	}
	if p.UsedWordIDs[DifficultyEasy][0] != "w1" {
		t.Error("Clone() shares used word slices")
	}
}

func TestUnmarshalProgressEmpty(t *testing.T) {
	p, err := UnmarshalProgress("")
	if err != nil {
		t.Fatalf("UnmarshalProgress() error = %v", err)
	}
	if p.Badges == nil || p.LevelProgress == nil || p.UsedWordIDs == nil {
		t.Error("UnmarshalProgress() left nil collections")
	}
}
