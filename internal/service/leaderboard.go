package service

import (
	"context"
	"sort"

	"wordhero/internal/models"
	"wordhero/internal/repository"
)

// StudentRank is one leaderboard row
type StudentRank struct {
	Rank                int    `json:"rank"`
	StudentID           string `json:"studentId"`
	Name                string `json:"name"`
	Sparkies            int    `json:"sparkies"`
	TotalCompletionTime int64  `json:"totalCompletionTime"`
}

// RankStudents orders students by sparkies, highest first. Ties go to the faster total
// completion time; a student with no recorded time ranks after those with one.
func RankStudents(students []*models.Student) []StudentRank {
	rows := make([]StudentRank, 0, len(students))
	for _, st := range students {
		if st.Deleted {
			continue
		}
		sparkies := 0
		if st.Progress != nil {
			sparkies = st.Progress.Sparkies
		}
		rows = append(rows, StudentRank{
			StudentID:           st.ID,
			Name:                st.Name,
			Sparkies:            sparkies,
			TotalCompletionTime: st.TotalCompletionTime,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Sparkies != b.Sparkies {
			return a.Sparkies > b.Sparkies
		}
		if (a.TotalCompletionTime == 0) != (b.TotalCompletionTime == 0) {
			return b.TotalCompletionTime == 0
		}
		return a.TotalCompletionTime < b.TotalCompletionTime
	})

	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// Leaderboard ranks every student in the remote store
func Leaderboard(ctx context.Context, store repository.RemoteStore) ([]StudentRank, error) {
	students, err := store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	return RankStudents(students), nil
}
