package service

import (
	"context"
	"errors"
	"testing"

	"wordhero/internal/models"
	"wordhero/internal/repository"
)

func rankedStudent(id string, sparkies int, time int64) *models.Student {
	p := models.NewStudentProgress()
	p.Sparkies = sparkies
	return &models.Student{ID: id, Name: id, Progress: p, TotalCompletionTime: time}
}

func TestRankStudents(t *testing.T) {
	deleted := rankedStudent("gone", 999, 1)
	deleted.Deleted = true

	rows := RankStudents([]*models.Student{
		rankedStudent("slow", 50, 300),
		rankedStudent("untimed", 50, 0),
		rankedStudent("top", 90, 0),
		rankedStudent("fast", 50, 100),
		deleted,
		{ID: "new", Name: "new"},
	})

	want := []string{"top", "fast", "slow", "untimed", "new"}
	if len(rows) != len(want) {
		t.Fatalf("RankStudents() = %d rows, want %d", len(rows), len(want))
	}
	for i, id := range want {
		if rows[i].StudentID != id || rows[i].Rank != i+1 {
			t.Errorf("row %d = %s rank %d, want %s rank %d", i, rows[i].StudentID, rows[i].Rank, id, i+1)
		}
	}
}

func TestLeaderboard(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	store.PutUserDocument(ctx, rankedStudent("a", 10, 0))
	store.PutUserDocument(ctx, rankedStudent("b", 20, 0))
	store.PutUserDocument(ctx, &models.Teacher{ID: "t1", Name: "Ms. Reyes"})

	rows, err := Leaderboard(ctx, store)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if len(rows) != 2 || rows[0].StudentID != "b" {
		t.Errorf("Leaderboard() = %+v, want b first of 2", rows)
	}

	store.setDown(true)
	if _, err := Leaderboard(ctx, store); !errors.Is(err, repository.ErrRemoteUnavailable) {
		t.Errorf("Leaderboard() error = %v, want ErrRemoteUnavailable", err)
	}
}
