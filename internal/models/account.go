package models

import (
	"encoding/json"
	"fmt"
)

// Role identifies which account variant a document holds
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Account is one of Student, Teacher or Admin. Only Student carries progress.
type Account interface {
	AccountID() string
	AccountRole() Role
	DisplayName() string
}

// Student is a player account with progress state
type Student struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	Username            string           `json:"username"`
	GradeLevel          string           `json:"gradeLevel,omitempty"`
	Section             string           `json:"section,omitempty"`
	TeacherName         string           `json:"teacherName,omitempty"`
	TeacherEmail        string           `json:"teacherEmail,omitempty"`
	Deleted             bool             `json:"deleted,omitempty"`
	TotalCompletionTime int64            `json:"totalCompletionTime"`
	LastRankUpdate      string           `json:"lastRankUpdate,omitempty"`
	Progress            *StudentProgress `json:"progress"`
}

func (s *Student) AccountID() string   { return s.ID }
func (s *Student) AccountRole() Role   { return RoleStudent }
func (s *Student) DisplayName() string { return s.Name }

// Teacher manages a word bank and a class of students
type Teacher struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
}

func (t *Teacher) AccountID() string   { return t.ID }
func (t *Teacher) AccountRole() Role   { return RoleTeacher }
func (t *Teacher) DisplayName() string { return t.Name }

// Admin manages users and content
type Admin struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *Admin) AccountID() string   { return a.ID }
func (a *Admin) AccountRole() Role   { return RoleAdmin }
func (a *Admin) DisplayName() string { return a.Name }

type accountEnvelope struct {
	Kind Role            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalAccount encodes an account with its variant tag
func MarshalAccount(a Account) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(accountEnvelope{Kind: a.AccountRole(), Data: data})
}

// UnmarshalAccount decodes an account written by MarshalAccount
func UnmarshalAccount(b []byte) (Account, error) {
	var env accountEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	var acc Account
	switch env.Kind {
	case RoleStudent:
		acc = &Student{}
	case RoleTeacher:
		acc = &Teacher{}
	case RoleAdmin:
		acc = &Admin{}
	default:
		return nil, fmt.Errorf("unknown account kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Data, acc); err != nil {
		return nil, fmt.Errorf("failed to decode %s account: %w", env.Kind, err)
	}
	if s, ok := acc.(*Student); ok && s.Progress == nil {
		s.Progress = NewStudentProgress()
	} else if ok {
		s.Progress.ensure()
	}
	return acc, nil
}
