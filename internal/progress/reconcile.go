// Package progress computes a student's new progress from a finished game.
// Nothing here performs I/O: callers read the stored state, call Reconcile and persist the result.
package progress

import (
	"fmt"
	"strconv"
	"time"

	"wordhero/internal/models"
)

// Env carries the inputs of a reconciliation that do not come from the stored state or the session
type Env struct {
	Now time.Time

	// PoolSize is the number of words of the session's difficulty available to the student.
	// Zero falls back to the session length.
	PoolSize int

	DefaultTeacherName string
	NewCertificateID   func() string
}

// LevelUpdate is the new mastery record of the session's difficulty
type LevelUpdate struct {
	Difficulty models.Difficulty `json:"difficulty"`
	models.LevelProgress
}

// Update is the subset of progress fields written by a reconciliation
type Update struct {
	Sparkies       int                            `json:"sparkies"`
	TotalGames     int                            `json:"totalGames"`
	WordsLearned   int                            `json:"wordsLearned"`
	BestStreak     int                            `json:"bestStreak"`
	CurrentStreak  int                            `json:"currentStreak"`
	LongestStreak  int                            `json:"longestStreak"`
	LastPlayedDate string                         `json:"lastPlayedDate"`
	Badges         []string                       `json:"badges"`
	Achievements   []string                       `json:"achievements"`
	Certificates   []models.Certificate           `json:"certificates"`
	WrongWords     []string                       `json:"wrongWords"`
	UsedWordIDs    map[models.Difficulty][]string `json:"usedWordIds"`
	History        []models.ProgressHistoryEntry  `json:"progressHistory"`
	Level          LevelUpdate                    `json:"levelProgress"`
}

// Summary describes what changed, for picking a celebration
type Summary struct {
	CorrectCount    int                 `json:"correctCount"`
	SessionMastery  int                 `json:"sessionMastery"`
	PreviousMastery int                 `json:"previousMastery"`
	NewMastery      int                 `json:"newMastery"`
	SparkiesEarned  int                 `json:"sparkiesEarned"`
	StreakBonus     int                 `json:"streakBonus"`
	CurrentStreak   int                 `json:"currentStreak"`
	NewBadges       []string            `json:"newBadges,omitempty"`
	NewAchievements []string            `json:"newAchievements,omitempty"`
	NewCertificate  *models.Certificate `json:"newCertificate,omitempty"`
	PoolWasReset    bool                `json:"poolWasReset"`
}

// Result is the outcome of Reconcile
type Result struct {
	Progress *models.StudentProgress `json:"-"`
	Update   Update                  `json:"update"`
	Summary  Summary                 `json:"summary"`
}

// Reconcile applies a finished session to an account's progress.
// The account's progress is not modified; the new state is returned in Result.Progress.
func Reconcile(account models.Account, session *models.GameSession, env Env) (*Result, error) {
	student, ok := account.(*models.Student)
	if !ok {
		return nil, models.ErrNotEligible
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if env.Now.IsZero() {
		env.Now = time.Now()
	}

	var p *models.StudentProgress
	if student.Progress == nil {
		p = models.NewStudentProgress()
	} else {
		p = student.Progress.Clone()
	}
	summary := Summary{}

	// Session mastery
	correct := session.CorrectCount()
	sessionMastery := session.Mastery()
	summary.CorrectCount = correct
	summary.SessionMastery = sessionMastery

	// Per-difficulty mastery never regresses
	level := p.LevelProgress[session.Difficulty]
	summary.PreviousMastery = level.Mastery
	if sessionMastery > level.Mastery {
		level.Mastery = sessionMastery
	}
	level.GamesPlayed++
	p.LevelProgress[session.Difficulty] = level
	summary.NewMastery = level.Mastery

	// Totals
	p.WordsLearned += correct
	p.TotalGames++
	if session.Streak > p.BestStreak {
		p.BestStreak = session.Streak
	}

	// Daily streak
	today := env.Now.Format(DateLayout)
	yesterday := env.Now.AddDate(0, 0, -1).Format(DateLayout)
	switch p.LastPlayedDate {
	case today:
		if p.CurrentStreak < 1 {
			p.CurrentStreak = 1
		}
	case yesterday:
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.LastPlayedDate = today
	summary.CurrentStreak = p.CurrentStreak

	// Streak bonus doubles the session's sparkies
	bonus := 0
	if p.CurrentStreak >= StreakBonusThreshold {
		bonus = session.TotalSparkiesEarned
	}
	earned := session.TotalSparkiesEarned + bonus
	p.Sparkies += earned
	summary.StreakBonus = bonus
	summary.SparkiesEarned = earned

	// Wrong words
	for _, id := range session.WrongWordIDs() {
		p.WrongWords.Add(id)
	}

	// Used words of this difficulty, restarted once the pool is nearly exhausted
	summary.PoolWasReset = updateUsedWords(p, session, env.PoolSize)

	// History
	p.History = recordHistory(p.History, env.Now, earned, correct)

	// Certificate
	if sessionMastery == 100 && len(session.Words) >= MinWordsForCertificate && !p.HasCertificate(session.Difficulty) {
		teacher := student.TeacherName
		if teacher == "" {
			teacher = env.DefaultTeacherName
		}
		if teacher == "" {
			teacher = DefaultTeacherName
		}
		id := ""
		if env.NewCertificateID != nil {
			id = env.NewCertificateID()
		}
		if id == "" {
			id = "cert_" + strconv.FormatInt(env.Now.UnixMilli(), 10)
		}
		cert := models.Certificate{
			ID:          id,
			Title:       CertificateTitle(session.Difficulty),
			EarnedDate:  today,
			Difficulty:  session.Difficulty,
			UserName:    student.Name,
			TeacherName: teacher,
		}
		p.Certificates = append(p.Certificates, cert)
		summary.NewCertificate = &cert
	}

	summary.NewBadges = awardBadges(p, session, sessionMastery, level.Mastery)
	summary.NewAchievements = awardAchievements(p, session, sessionMastery, level.Mastery)

	return &Result{
		Progress: p,
		Update:   updateOf(p, session.Difficulty),
		Summary:  summary,
	}, nil
}

func updateUsedWords(p *models.StudentProgress, session *models.GameSession, poolSize int) bool {
	if poolSize <= 0 {
		poolSize = len(session.Words)
	}
	current := p.UsedWordIDs[session.Difficulty]
	sessionIDs := uniqueIDs(session.WordIDs())

	combined := uniqueIDs(append(append([]string{}, current...), sessionIDs...))
	if len(current) > 0 && float64(len(combined)) >= float64(poolSize)*PoolResetRatio {
		p.UsedWordIDs[session.Difficulty] = sessionIDs
		return true
	}
	p.UsedWordIDs[session.Difficulty] = combined
	return false
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func recordHistory(history []models.ProgressHistoryEntry, now time.Time, sparkies, words int) []models.ProgressHistoryEntry {
	today := now.Format(DateLayout)
	found := false
	for i := range history {
		if history[i].Date == today {
			history[i].SparkiesEarned += sparkies
			history[i].WordsLearned += words
			history[i].GamesPlayed++
			found = true
			break
		}
	}
	if !found {
		history = append(history, models.ProgressHistoryEntry{
			Date:           today,
			SparkiesEarned: sparkies,
			WordsLearned:   words,
			GamesPlayed:    1,
		})
	}

	cutoff := now.AddDate(0, 0, -HistoryDays).Format(DateLayout)
	kept := history[:0]
	for _, e := range history {
		if e.Date >= cutoff {
			kept = append(kept, e)
		}
	}
	return kept
}

func awardBadges(p *models.StudentProgress, session *models.GameSession, sessionMastery, newMastery int) []string {
	long := len(session.Words) >= MinWordsForCertificate
	rules := []struct {
		id   string
		earn bool
	}{
		{BadgeFirstGame, p.TotalGames >= 1},
		{BadgeMediumComplete, session.Difficulty == models.DifficultyMedium && long},
		{BadgeHardComplete, session.Difficulty == models.DifficultyHard && long},
		{BadgePerfectSession, sessionMastery == 100 && long},
		{BadgeBestStreak5, p.BestStreak >= 5},
		{BadgeBestStreak10, p.BestStreak >= 10},
		{BadgeLevelMastered, newMastery == 100},
		{BadgeWordsLearned50, p.WordsLearned >= 50},
		{BadgeSparkies100, p.Sparkies >= 100},
		{BadgeSparkies500, p.Sparkies >= 500},
		{BadgeDailyStreak3, p.CurrentStreak >= 3},
		{BadgeDailyStreak7, p.CurrentStreak >= 7},
		{BadgeLongestStreak30, p.LongestStreak >= 30},
	}

	var added []string
	for _, r := range rules {
		if r.earn && p.Badges.Add(r.id) {
			added = append(added, r.id)
		}
	}
	return added
}

func awardAchievements(p *models.StudentProgress, session *models.GameSession, sessionMastery, newMastery int) []string {
	allMastered := true
	for _, d := range models.Difficulties {
		if p.LevelProgress[d].Mastery < 100 {
			allMastered = false
			break
		}
	}

	rules := []struct {
		id   string
		earn bool
	}{
		{AchievementPerfectHard, session.Difficulty == models.DifficultyHard && sessionMastery == 100 && len(session.Words) >= MinWordsForCertificate},
		{AchievementWeekStreak, p.CurrentStreak >= 7},
		{AchievementAllMastered, allMastered},
		{AchievementUnlockMedium, session.Difficulty == models.DifficultyEasy && newMastery >= LevelUnlockMastery},
		{AchievementUnlockHard, session.Difficulty == models.DifficultyMedium && newMastery >= LevelUnlockMastery},
	}

	var added []string
	for _, r := range rules {
		if r.earn && p.Achievements.Add(r.id) {
			added = append(added, r.id)
		}
	}
	return added
}

func updateOf(p *models.StudentProgress, d models.Difficulty) Update {
	used := make(map[models.Difficulty][]string, len(p.UsedWordIDs))
	for k, v := range p.UsedWordIDs {
		used[k] = append([]string{}, v...)
	}
	return Update{
		Sparkies:       p.Sparkies,
		TotalGames:     p.TotalGames,
		WordsLearned:   p.WordsLearned,
		BestStreak:     p.BestStreak,
		CurrentStreak:  p.CurrentStreak,
		LongestStreak:  p.LongestStreak,
		LastPlayedDate: p.LastPlayedDate,
		Badges:         p.Badges.Sorted(),
		Achievements:   p.Achievements.Sorted(),
		Certificates:   append([]models.Certificate{}, p.Certificates...),
		WrongWords:     p.WrongWords.Sorted(),
		UsedWordIDs:    used,
		History:        append([]models.ProgressHistoryEntry{}, p.History...),
		Level:          LevelUpdate{Difficulty: d, LevelProgress: p.LevelProgress[d]},
	}
}

// String renders a one-line description for logs
func (s Summary) String() string {
	return fmt.Sprintf("mastery %d->%d, +%d sparkies (bonus %d), streak %d, badges %v, achievements %v, certificate %t, pool reset %t",
		s.PreviousMastery, s.NewMastery, s.SparkiesEarned, s.StreakBonus, s.CurrentStreak,
		s.NewBadges, s.NewAchievements, s.NewCertificate != nil, s.PoolWasReset)
}
