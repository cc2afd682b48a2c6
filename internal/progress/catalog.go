package progress

import "wordhero/internal/models"

const (
	// MinWordsForCertificate is the session length needed for certificates and difficulty badges
	MinWordsForCertificate = 10

	// StreakBonusThreshold is the daily streak at which session sparkies are doubled
	StreakBonusThreshold = 3

	// PoolResetRatio is the share of a difficulty's pool that must be used before the used list restarts
	PoolResetRatio = 0.9

	// HistoryDays is how many days of progress history are kept
	HistoryDays = 30

	// LevelUnlockMastery unlocks the next difficulty
	LevelUnlockMastery = 85

	// DefaultTeacherName signs certificates of students without a teacher
	DefaultTeacherName = "The Word Master AI"

	// DateLayout is the calendar day format used for streaks, history and certificates
	DateLayout = "2006-01-02"
)

// Award is a badge or achievement definition
type Award struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Badge ids
const (
	BadgeFirstGame       = "b1"
	BadgeMediumComplete  = "b2"
	BadgeHardComplete    = "b3"
	BadgePerfectSession  = "b4"
	BadgeBestStreak5     = "b5"
	BadgeBestStreak10    = "b6"
	BadgeLevelMastered   = "b7"
	BadgeWordsLearned50  = "b8"
	BadgeSparkies100     = "b9"
	BadgeSparkies500     = "b10"
	BadgeDailyStreak3    = "b11"
	BadgeDailyStreak7    = "b12"
	BadgeLongestStreak30 = "b13"
)

// Achievement ids
const (
	AchievementPerfectHard  = "a1"
	AchievementWeekStreak   = "a2"
	AchievementAllMastered  = "a3"
	AchievementUnlockMedium = "a4"
	AchievementUnlockHard   = "a5"
)

var Badges = []Award{
	{BadgeFirstGame, "Beginner Shield", "Play your first game"},
	{BadgeMediumComplete, "Audio Master", "Finish a Medium game of 10 words"},
	{BadgeHardComplete, "Puzzle Master", "Finish a Hard game of 10 words"},
	{BadgePerfectSession, "First Victory", "Spell all 10 words of a game correctly"},
	{BadgeBestStreak5, "Hot Streak", "Spell 5 words in a row correctly"},
	{BadgeBestStreak10, "On Fire", "Spell 10 words in a row correctly"},
	{BadgeLevelMastered, "Perfect Score", "Reach 100% mastery on a level"},
	{BadgeWordsLearned50, "50 Words Master", "Learn 50 words"},
	{BadgeSparkies100, "Sparkle Collector", "Collect 100 sparkies"},
	{BadgeSparkies500, "Sparkle Hoarder", "Collect 500 sparkies"},
	{BadgeDailyStreak3, "3-Day Streak", "Play 3 days in a row"},
	{BadgeDailyStreak7, "Week Warrior", "Play 7 days in a row"},
	{BadgeLongestStreak30, "Month Master", "Play 30 days in a row"},
}

var Achievements = []Award{
	{AchievementPerfectHard, "Perfect Speller", "100% on Hard mode"},
	{AchievementWeekStreak, "7-Day Streak", "Play 7 days in a row"},
	{AchievementAllMastered, "Vocabulary Star", "Master all difficulty levels"},
	{AchievementUnlockMedium, "Level Up: Medium", "Unlock Medium difficulty"},
	{AchievementUnlockHard, "Level Up: Hard", "Unlock Hard difficulty"},
}

// LookupAward finds a badge or achievement by id
func LookupAward(id string) (Award, bool) {
	for _, list := range [][]Award{Badges, Achievements} {
		for _, a := range list {
			if a.ID == id {
				return a, true
			}
		}
	}
	return Award{}, false
}

// CertificateTitle is the title printed on a difficulty's certificate
func CertificateTitle(d models.Difficulty) string {
	return string(d) + " Master"
}
