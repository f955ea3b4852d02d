// Package progress owns the durable per-user progress record: the merge
// algorithm that folds a quiz result into it and the store that reads and
// writes it through a repository.
package progress

import (
	"sort"
	"time"

	"training-quiz-service/internal/domain"
)

// LevelThreshold is the number of points per level.
const LevelThreshold = 1000

// recentSessionLimit bounds the session ids kept for double-submit detection.
const recentSessionLimit = 50

// Level is floor(totalScore/LevelThreshold) + 1, never below 1.
func Level(totalScore int) int {
	if totalScore < 0 {
		return 1
	}
	return totalScore/LevelThreshold + 1
}

// TotalScore sums each module's best score. This is the only total-score
// policy the store applies.
func TotalScore(modules map[string]domain.ModuleProgress) int {
	total := 0
	for _, mp := range modules {
		total += mp.BestScore
	}
	return total
}

// Merge folds one finalized quiz result into prior and returns a new record;
// prior is not modified. A result whose session was already merged returns
// the record unchanged.
func Merge(prior domain.UserProgress, userID, moduleID string, result domain.QuizResult, earned []domain.Badge, now time.Time) domain.UserProgress {
	next := normalize(prior.Clone(), userID, now)
	if Merged(next, result.SessionID) {
		return next
	}

	mp, existed := next.Modules[moduleID]
	priorBest := mp.BestScore
	hadAttempt := existed && mp.Attempts > 0

	mp.ModuleID = moduleID
	mp.Attempts++
	mp.Completed = mp.Completed || result.Completed
	mp.LastScore = result.Score
	mp.Percentage = result.Percentage
	if !hadAttempt || result.Score > mp.BestScore {
		mp.BestScore = result.Score
	}
	if result.Percentage > mp.BestPercentage {
		mp.BestPercentage = result.Percentage
	}
	mp.LastAccessedAt = now

	newBadges := 0
	for _, badge := range earned {
		if next.HasBadge(badge.ID) {
			continue
		}
		next.Badges = append(next.Badges, domain.BadgeRecord{BadgeID: badge.ID, EarnedAt: now, ModuleID: moduleID})
		if !contains(mp.Badges, badge.ID) {
			mp.Badges = append(mp.Badges, badge.ID)
		}
		newBadges++
	}
	next.Modules[moduleID] = mp

	if mp.Completed && !next.HasCompleted(moduleID) {
		next.CompletedModules = append(next.CompletedModules, moduleID)
		sort.Strings(next.CompletedModules)
	}

	ach := &next.Achievements
	ach.QuizzesCompleted++
	if result.Passed {
		ach.QuizzesPassed++
	}
	if result.Total > 0 && result.Percentage == 100 {
		ach.PerfectScores++
	}
	if hadAttempt && result.Score > priorBest {
		ach.Improvements++
	}
	ach.TotalCorrectAnswers += result.Correct
	ach.TotalQuestionsAnswered += result.Total
	ach.AverageScore += (float64(result.Percentage) - ach.AverageScore) / float64(ach.QuizzesCompleted)
	ach.BadgesEarned += newBadges

	recordStudy(&next.Statistics, result.TimeSpent, now)

	next.TotalScore = TotalScore(next.Modules)
	next.Level = Level(next.TotalScore)
	next.LastActiveAt = now
	if result.SessionID != "" {
		next.RecentSessions = append(next.RecentSessions, result.SessionID)
		if n := len(next.RecentSessions); n > recentSessionLimit {
			next.RecentSessions = next.RecentSessions[n-recentSessionLimit:]
		}
	}
	return next
}

// Merged reports whether the result of sessionID is already folded into p.
func Merged(p domain.UserProgress, sessionID string) bool {
	return sessionID != "" && contains(p.RecentSessions, sessionID)
}

// MarkSection records content-section progress for a module.
func MarkSection(prior domain.UserProgress, userID, moduleID string, section int, completed bool, now time.Time) domain.UserProgress {
	next := normalize(prior.Clone(), userID, now)
	mp := next.Modules[moduleID]
	mp.ModuleID = moduleID
	mp.CurrentSection = section
	if completed && !containsInt(mp.CompletedSections, section) {
		mp.CompletedSections = append(mp.CompletedSections, section)
		sort.Ints(mp.CompletedSections)
	}
	mp.LastAccessedAt = now
	next.Modules[moduleID] = mp
	next.LastActiveAt = now
	return next
}

func normalize(p domain.UserProgress, userID string, now time.Time) domain.UserProgress {
	if p.UserID == "" {
		p.UserID = userID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.Modules == nil {
		p.Modules = map[string]domain.ModuleProgress{}
	}
	if p.CompletedModules == nil {
		p.CompletedModules = []string{}
	}
	if p.Badges == nil {
		p.Badges = []domain.BadgeRecord{}
	}
	if p.Level < 1 {
		p.Level = Level(p.TotalScore)
	}
	return p
}

func recordStudy(stats *domain.Statistics, spent time.Duration, now time.Time) {
	stats.StudySessions++
	stats.TotalTimeSpentSeconds += int64(spent / time.Second)

	today := now.Format(time.DateOnly)
	if stats.LastStudyDate == today {
		return
	}
	yesterday := now.AddDate(0, 0, -1).Format(time.DateOnly)
	if stats.LastStudyDate == yesterday {
		stats.CurrentStreakDays++
	} else {
		stats.CurrentStreakDays = 1
	}
	if stats.CurrentStreakDays > stats.LongestStreakDays {
		stats.LongestStreakDays = stats.CurrentStreakDays
	}
	stats.StudyDays++
	stats.LastStudyDate = today
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}
