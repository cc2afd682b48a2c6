package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wordhero/internal/database"
	"wordhero/internal/models"
)

// UserDocument is a user's remote document together with its write version
type UserDocument struct {
	Account models.Account
	Version int64
}

// DocumentUpdate is a partial update of a student document.
// The write only applies if the stored version still equals ExpectedVersion.
type DocumentUpdate struct {
	ExpectedVersion     int64
	Progress            *models.StudentProgress
	CompletionTimeDelta int64  // added atomically to totalCompletionTime
	LastRankUpdate      string // left unchanged when empty
}

// WordFilter narrows a word query. Empty fields do not filter.
type WordFilter struct {
	Difficulty models.Difficulty
	GradeLevel string
	Section    string
}

// RemoteStore is the authoritative document store
type RemoteStore interface {
	GetUserDocument(ctx context.Context, userID string) (*UserDocument, error)
	UpdateUserDocument(ctx context.Context, userID string, update DocumentUpdate) (int64, error)
	PutUserDocument(ctx context.Context, account models.Account) error
	ListStudents(ctx context.Context) ([]*models.Student, error)
	QueryWords(ctx context.Context, filter WordFilter) ([]models.Word, error)
	PutWord(ctx context.Context, word models.Word, createdBy string) error
	DeleteWord(ctx context.Context, wordID string) error
	Ping(ctx context.Context) error
}

// SQLRemoteStore keeps user documents and the word bank in a SQL database.
// Every error it returns is classified as ErrRemoteUnavailable, ErrNotFound,
// ErrConflictOnWrite or a models.ValidationError.
type SQLRemoteStore struct {
	db *database.DB
}

// NewSQLRemoteStore applies the remote schema and returns the store
func NewSQLRemoteStore(ctx context.Context, db *database.DB) (*SQLRemoteStore, error) {
	if err := db.RunMigrations(ctx, database.RemoteSchema); err != nil {
		return nil, classifyRemote("migrate remote store", err)
	}
	return &SQLRemoteStore{db: db}, nil
}

const userColumns = `id, role, name, username, email, subject, grade_level, section, teacher_name, teacher_email, deleted, total_completion_time, last_rank_update, progress, version`

type userDocumentRow struct {
	ID                  string `db:"id"`
	Role                string `db:"role"`
	Name                string `db:"name"`
	Username            string `db:"username"`
	Email               string `db:"email"`
	Subject             string `db:"subject"`
	GradeLevel          string `db:"grade_level"`
	Section             string `db:"section"`
	TeacherName         string `db:"teacher_name"`
	TeacherEmail        string `db:"teacher_email"`
	Deleted             bool   `db:"deleted"`
	TotalCompletionTime int64  `db:"total_completion_time"`
	LastRankUpdate      string `db:"last_rank_update"`
	Progress            string `db:"progress"`
	Version             int64  `db:"version"`
}

func (row *userDocumentRow) toAccount() (models.Account, error) {
	switch models.Role(row.Role) {
	case models.RoleStudent:
		progress, err := models.UnmarshalProgress(row.Progress)
		if err != nil {
			return nil, fmt.Errorf("failed to decode progress of %s: %w: %w", row.ID, ErrCorruptDocument, err)
		}
		return &models.Student{
			ID:                  row.ID,
			Name:                row.Name,
			Username:            row.Username,
			GradeLevel:          row.GradeLevel,
			Section:             row.Section,
			TeacherName:         row.TeacherName,
			TeacherEmail:        row.TeacherEmail,
			Deleted:             row.Deleted,
			TotalCompletionTime: row.TotalCompletionTime,
			LastRankUpdate:      row.LastRankUpdate,
			Progress:            progress,
		}, nil
	case models.RoleTeacher:
		return &models.Teacher{ID: row.ID, Name: row.Name, Email: row.Email, Subject: row.Subject}, nil
	case models.RoleAdmin:
		return &models.Admin{ID: row.ID, Name: row.Name, Email: row.Email}, nil
	default:
		return nil, fmt.Errorf("user %s has unknown role %q: %w", row.ID, row.Role, ErrCorruptDocument)
	}
}

func rowFromAccount(account models.Account) (*userDocumentRow, error) {
	row := &userDocumentRow{ID: account.AccountID(), Role: string(account.AccountRole()), Name: account.DisplayName()}
	switch a := account.(type) {
	case *models.Student:
		progress := a.Progress
		if progress == nil {
			progress = models.NewStudentProgress()
		}
		data, err := models.MarshalProgress(progress)
		if err != nil {
			return nil, err
		}
		row.Username = a.Username
		row.GradeLevel = a.GradeLevel
		row.Section = a.Section
		row.TeacherName = a.TeacherName
		row.TeacherEmail = a.TeacherEmail
		row.Deleted = a.Deleted
		row.TotalCompletionTime = a.TotalCompletionTime
		row.LastRankUpdate = a.LastRankUpdate
		row.Progress = data
	case *models.Teacher:
		row.Email = a.Email
		row.Subject = a.Subject
	case *models.Admin:
		row.Email = a.Email
	}
	return row, nil
}

// GetUserDocument reads a user's document
func (s *SQLRemoteStore) GetUserDocument(ctx context.Context, userID string) (*UserDocument, error) {
	var row userDocumentRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM user_documents WHERE id = ?`, userID)
	if err != nil {
		return nil, classifyRemote("get user document", err)
	}
	account, err := row.toAccount()
	if err != nil {
		return nil, classifyRemote("get user document", err)
	}
	return &UserDocument{Account: account, Version: row.Version}, nil
}

// UpdateUserDocument writes a student's progress, increments completion time atomically
// and returns the new version. A stale ExpectedVersion yields ErrConflictOnWrite.
func (s *SQLRemoteStore) UpdateUserDocument(ctx context.Context, userID string, update DocumentUpdate) (int64, error) {
	if update.Progress == nil {
		return 0, models.ValidationError{Field: "progress", Message: "progress is required"}
	}
	data, err := models.MarshalProgress(update.Progress)
	if err != nil {
		return 0, fmt.Errorf("failed to encode progress: %w", err)
	}

	query := `UPDATE user_documents SET progress = ?, total_completion_time = total_completion_time + ?, version = version + 1`
	args := []interface{}{data, update.CompletionTimeDelta}
	if update.LastRankUpdate != "" {
		query += `, last_rank_update = ?`
		args = append(args, update.LastRankUpdate)
	}
	query += ` WHERE id = ? AND role = ? AND version = ?`
	args = append(args, userID, string(models.RoleStudent), update.ExpectedVersion)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyRemote("update user document", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, classifyRemote("update user document", err)
	}
	if affected == 0 {
		// Either the document is gone, is not a student, or moved on to a newer version
		var current struct {
			Role    string `db:"role"`
			Version int64  `db:"version"`
		}
		err := s.db.GetContext(ctx, &current, `SELECT role, version FROM user_documents WHERE id = ?`, userID)
		if err != nil {
			return 0, classifyRemote("update user document", err)
		}
		if models.Role(current.Role) != models.RoleStudent {
			return 0, models.ErrNotEligible
		}
		return 0, fmt.Errorf("update user document %s at version %d (now %d): %w",
			userID, update.ExpectedVersion, current.Version, ErrConflictOnWrite)
	}
	return update.ExpectedVersion + 1, nil
}

// PutUserDocument creates or replaces a whole document, bumping its version
func (s *SQLRemoteStore) PutUserDocument(ctx context.Context, account models.Account) error {
	row, err := rowFromAccount(account)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}
	args := []interface{}{
		row.Role, row.Name, row.Username, row.Email, row.Subject, row.GradeLevel, row.Section,
		row.TeacherName, row.TeacherEmail, row.Deleted, row.TotalCompletionTime, row.LastRankUpdate, row.Progress,
	}

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE user_documents SET role = ?, name = ?, username = ?, email = ?, subject = ?, grade_level = ?,
				section = ?, teacher_name = ?, teacher_email = ?, deleted = ?, total_completion_time = ?,
				last_rank_update = ?, progress = ?, version = version + 1
			WHERE id = ?`, append(args, row.ID)...)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err != nil || n > 0 {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO user_documents (id, role, name, username, email, subject,
			grade_level, section, teacher_name, teacher_email, deleted, total_completion_time, last_rank_update,
			progress, version) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			append([]interface{}{row.ID}, args...)...)
		return err
	})
	return classifyRemote("put user document", err)
}

// ListStudents returns every student document that has not been deleted
func (s *SQLRemoteStore) ListStudents(ctx context.Context) ([]*models.Student, error) {
	var rows []userDocumentRow
	query := `SELECT ` + userColumns + ` FROM user_documents WHERE role = ? AND deleted = ? ORDER BY id`
	if err := s.db.SelectContext(ctx, &rows, query, string(models.RoleStudent), false); err != nil {
		return nil, classifyRemote("list students", err)
	}

	students := make([]*models.Student, 0, len(rows))
	for i := range rows {
		account, err := rows[i].toAccount()
		if err != nil {
			return nil, classifyRemote("list students", err)
		}
		students = append(students, account.(*models.Student))
	}
	return students, nil
}

// QueryWords returns the word bank, optionally narrowed to one difficulty and one student's grade and section
func (s *SQLRemoteStore) QueryWords(ctx context.Context, filter WordFilter) ([]models.Word, error) {
	words := []models.Word{}
	query := `SELECT ` + wordColumns + ` FROM words`
	var args []interface{}
	if filter.Difficulty != "" {
		query += ` WHERE difficulty = ?`
		args = append(args, string(filter.Difficulty))
	}
	query += ` ORDER BY term, id`

	if err := s.db.SelectContext(ctx, &words, query, args...); err != nil {
		return nil, classifyRemote("query words", err)
	}
	return models.FilterForStudent(words, filter.GradeLevel, filter.Section), nil
}

// PutWord creates or replaces a word in the bank
func (s *SQLRemoteStore) PutWord(ctx context.Context, word models.Word, createdBy string) error {
	columns := []string{"id", "term", "difficulty", "category", "hint", "scenario", "hint_localized",
		"scenario_localized", "grade_levels", "sections", "created_by"}
	query := s.db.Dialect.UpsertQuery("words", []string{"id"}, columns)
	_, err := s.db.ExecContext(ctx, query,
		word.ID, word.Term, string(word.Difficulty), word.Category, word.Hint, word.Scenario,
		word.HintLocalized, word.ScenarioLocalized, word.GradeLevels, word.Sections, createdBy)
	return classifyRemote("put word", err)
}

// DeleteWord removes a word from the bank. Deleting a missing word is not an error.
func (s *SQLRemoteStore) DeleteWord(ctx context.Context, wordID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM words WHERE id = ?`, wordID)
	return classifyRemote("delete word", err)
}

// Ping checks that the store is reachable
func (s *SQLRemoteStore) Ping(ctx context.Context) error {
	return classifyRemote("ping", s.db.PingContext(ctx))
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
