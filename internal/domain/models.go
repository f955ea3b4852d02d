package domain

import "time"

// QuestionKind selects how a question is answered and compared.
type QuestionKind string

const (
	KindSingle  QuestionKind = "single"
	KindMulti   QuestionKind = "multi"
	KindBoolean QuestionKind = "boolean"
)

// DefaultPassingScorePercent applies when content does not set a passing score.
const DefaultPassingScorePercent = 70

// Option represents a possible answer for a choice question. The answer key
// travels with the option, so a shuffled option list keeps its correctness.
type Option struct {
	ID      string `json:"id" validate:"required"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is immutable once loaded into a session.
type Question struct {
	ID          string       `json:"id" validate:"required"`
	Prompt      string       `json:"prompt" validate:"required"`
	Kind        QuestionKind `json:"kind" validate:"omitempty,oneof=single multi boolean"`
	Options     []Option     `json:"options,omitempty" validate:"dive"`
	BoolAnswer  *bool        `json:"boolAnswer,omitempty"`
	Points      int          `json:"points" validate:"gte=0"` // defaults to the scoring default if zero
	Explanation string       `json:"explanation,omitempty"`
}

// EffectiveKind treats an unset kind as single choice.
func (q Question) EffectiveKind() QuestionKind {
	if q.Kind == "" {
		return KindSingle
	}
	return q.Kind
}

// Public strips the answer key so the question can be shown to a learner.
func (q Question) Public() PublicQuestion {
	options := make([]PublicOption, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, PublicOption{ID: opt.ID, Text: opt.Text})
	}
	return PublicQuestion{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Kind:    q.EffectiveKind(),
		Options: options,
		Points:  q.Points,
	}
}

// PublicOption is an Option without its correctness flag.
type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PublicQuestion is a Question without its answer key or explanation.
type PublicQuestion struct {
	ID      string         `json:"id"`
	Prompt  string         `json:"prompt"`
	Kind    QuestionKind   `json:"kind"`
	Options []PublicOption `json:"options,omitempty"`
	Points  int            `json:"points"`
}

// ModuleQuiz is the quiz content for one training module.
type ModuleQuiz struct {
	ModuleID            string     `json:"moduleId" validate:"required"`
	Title               string     `json:"title"`
	Questions           []Question `json:"questions" validate:"dive"`
	TimeLimitSeconds    int        `json:"timeLimitSeconds" validate:"gte=0"`
	PassingScorePercent int        `json:"passingScorePercent" validate:"gte=0,lte=100"`
}

// ModuleSummary is the catalog view of a module.
type ModuleSummary struct {
	ModuleID      string `json:"moduleId"`
	Title         string `json:"title"`
	QuestionCount int    `json:"questionCount"`
}

// AnswerSubmission is what a learner sends for a question.
type AnswerSubmission struct {
	QuestionID string   `json:"questionId"`
	OptionIDs  []string `json:"optionIds,omitempty"`
	Value      *bool    `json:"value,omitempty"`
}

// Answer is a recorded submission. A re-answer replaces it; it is never edited.
type Answer struct {
	QuestionID   string        `json:"questionId"`
	OptionIDs    []string      `json:"optionIds,omitempty"`
	Value        *bool         `json:"value,omitempty"`
	TimeToAnswer time.Duration `json:"timeToAnswer"`
	SubmittedAt  time.Time     `json:"submittedAt"`
}

// SessionState is a quiz session's position in its lifecycle.
type SessionState string

const (
	StateLoading    SessionState = "loading"
	StateIntro      SessionState = "intro"
	StateInProgress SessionState = "in_progress"
	StateSubmitting SessionState = "submitting"
	StateResults    SessionState = "results"
	StateFailed     SessionState = "error"
	StateAbandoned  SessionState = "abandoned"
)

// QuestionOutcome is the scoring verdict for one question.
type QuestionOutcome struct {
	QuestionID string `json:"questionId"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
	Points     int    `json:"points"`
	SpeedBonus bool   `json:"speedBonus"`
}

// Score is the scoring engine's output.
type Score struct {
	Correct    int               `json:"correct"`
	Total      int               `json:"total"`
	Percentage int               `json:"percentage"`
	Points     int               `json:"points"`
	Outcomes   []QuestionOutcome `json:"outcomes"`
}

// QuizResult is produced once per submitted session and folded into progress.
type QuizResult struct {
	SessionID   string        `json:"sessionId" bson:"sessionId"`
	ModuleID    string        `json:"moduleId" bson:"moduleId"`
	Completed   bool          `json:"completed" bson:"completed"`
	Passed      bool          `json:"passed" bson:"passed"`
	Expired     bool          `json:"expired" bson:"expired"`
	Score       int           `json:"score" bson:"score"`
	Percentage  int           `json:"percentage" bson:"percentage"`
	Correct     int           `json:"correct" bson:"correct"`
	Total       int           `json:"total" bson:"total"`
	TimeSpent   time.Duration `json:"timeSpent" bson:"timeSpent"`
	Badges      []string      `json:"badges" bson:"badges"`
	CompletedAt time.Time     `json:"completedAt" bson:"completedAt"`
}

// BadgeRarity classifies how hard a badge is to earn.
type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// Badge is a static catalog entry.
type Badge struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Rarity      BadgeRarity `json:"rarity"`
	Category    string      `json:"category"`
}

// BadgeRecord references a catalog badge earned by a user.
type BadgeRecord struct {
	BadgeID  string    `json:"badgeId" bson:"badgeId"`
	EarnedAt time.Time `json:"earnedAt" bson:"earnedAt"`
	ModuleID string    `json:"moduleId,omitempty" bson:"moduleId,omitempty"`
}

// ModuleProgress is a user's record for one module.
type ModuleProgress struct {
	ModuleID          string    `json:"moduleId" bson:"moduleId"`
	Completed         bool      `json:"completed" bson:"completed"`
	BestScore         int       `json:"bestScore" bson:"bestScore"`
	LastScore         int       `json:"lastScore" bson:"lastScore"`
	Percentage        int       `json:"percentage" bson:"percentage"`
	BestPercentage    int       `json:"bestPercentage" bson:"bestPercentage"`
	Attempts          int       `json:"attempts" bson:"attempts"`
	CompletedSections []int     `json:"completedSections" bson:"completedSections"`
	CurrentSection    int       `json:"currentSection" bson:"currentSection"`
	Badges            []string  `json:"badges" bson:"badges"`
	LastAccessedAt    time.Time `json:"lastAccessedAt" bson:"lastAccessedAt"`
}

// Achievements accumulates counters across all finalized quizzes.
type Achievements struct {
	QuizzesCompleted       int     `json:"quizzesCompleted" bson:"quizzesCompleted"`
	QuizzesPassed          int     `json:"quizzesPassed" bson:"quizzesPassed"`
	PerfectScores          int     `json:"perfectScores" bson:"perfectScores"`
	Improvements           int     `json:"improvements" bson:"improvements"`
	TotalCorrectAnswers    int     `json:"totalCorrectAnswers" bson:"totalCorrectAnswers"`
	TotalQuestionsAnswered int     `json:"totalQuestionsAnswered" bson:"totalQuestionsAnswered"`
	AverageScore           float64 `json:"averageScore" bson:"averageScore"`
	BadgesEarned           int     `json:"badgesEarned" bson:"badgesEarned"`
}

// Statistics tracks study-session cadence.
type Statistics struct {
	StudySessions         int    `json:"studySessions" bson:"studySessions"`
	StudyDays             int    `json:"studyDays" bson:"studyDays"`
	CurrentStreakDays     int    `json:"currentStreakDays" bson:"currentStreakDays"`
	LongestStreakDays     int    `json:"longestStreakDays" bson:"longestStreakDays"`
	LastStudyDate         string `json:"lastStudyDate,omitempty" bson:"lastStudyDate,omitempty"` // YYYY-MM-DD
	TotalTimeSpentSeconds int64  `json:"totalTimeSpentSeconds" bson:"totalTimeSpentSeconds"`
}

// UserProgress is the durable per-user root record.
type UserProgress struct {
	UserID           string                    `json:"userId" bson:"_id"`
	TotalScore       int                       `json:"totalScore" bson:"totalScore"`
	Level            int                       `json:"level" bson:"level"`
	CompletedModules []string                  `json:"completedModules" bson:"completedModules"`
	Modules          map[string]ModuleProgress `json:"modules" bson:"modules"`
	Badges           []BadgeRecord             `json:"badges" bson:"badges"`
	Achievements     Achievements              `json:"achievements" bson:"achievements"`
	Statistics       Statistics                `json:"statistics" bson:"statistics"`
	RecentSessions   []string                  `json:"recentSessions,omitempty" bson:"recentSessions,omitempty"`
	LastActiveAt     time.Time                 `json:"lastActiveAt" bson:"lastActiveAt"`
	CreatedAt        time.Time                 `json:"createdAt" bson:"createdAt"`
}

// HasBadge reports whether badgeID is already in the user's collection.
func (p UserProgress) HasBadge(badgeID string) bool {
	for _, b := range p.Badges {
		if b.BadgeID == badgeID {
			return true
		}
	}
	return false
}

// HasCompleted reports whether moduleID is in the completed set.
func (p UserProgress) HasCompleted(moduleID string) bool {
	for _, id := range p.CompletedModules {
		if id == moduleID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can never alias a stored record.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.CompletedModules = append([]string(nil), p.CompletedModules...)
	out.Badges = append([]BadgeRecord(nil), p.Badges...)
	out.RecentSessions = append([]string(nil), p.RecentSessions...)
	out.Modules = make(map[string]ModuleProgress, len(p.Modules))
	for id, mp := range p.Modules {
		mp.CompletedSections = append([]int(nil), mp.CompletedSections...)
		mp.Badges = append([]string(nil), mp.Badges...)
		out.Modules[id] = mp
	}
	return out
}

// NewUserProgress returns the zero-valued record for a user seen for the first time.
func NewUserProgress(userID string, now time.Time) UserProgress {
	return UserProgress{
		UserID:           userID,
		Level:            1,
		CompletedModules: []string{},
		Modules:          map[string]ModuleProgress{},
		Badges:           []BadgeRecord{},
		CreatedAt:        now,
		LastActiveAt:     now,
	}
}

// SessionView is a read-only snapshot of a quiz session.
type SessionView struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	ModuleID     string            `json:"moduleId"`
	State        SessionState      `json:"state"`
	Questions    []PublicQuestion  `json:"questions"`
	Answers      map[string]Answer `json:"answers"`
	Position     int               `json:"position"`
	TimeLimit    time.Duration     `json:"timeLimit"`
	Remaining    time.Duration     `json:"remaining"`
	PreviousBest int               `json:"previousBest"`
	CreatedAt    time.Time         `json:"createdAt"`
	StartedAt    time.Time         `json:"startedAt,omitempty"`
	Result       *QuizResult       `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// SessionEventType names a session broadcast.
type SessionEventType string

const (
	EventState  SessionEventType = "state"
	EventTick   SessionEventType = "tick"
	EventResult SessionEventType = "result"
	EventError  SessionEventType = "error"
)

// SessionEvent is pushed to session subscribers.
type SessionEvent struct {
	Type    SessionEventType `json:"type"`
	Session SessionView      `json:"session"`
}

// QuizCompletedEvent is published after a result has been persisted.
type QuizCompletedEvent struct {
	UserID     string     `json:"userId"`
	Result     QuizResult `json:"result"`
	TotalScore int        `json:"totalScore"`
	Level      int        `json:"level"`
}

// BadgeEarnedEvent is published for each newly earned badge.
type BadgeEarnedEvent struct {
	UserID   string    `json:"userId"`
	BadgeID  string    `json:"badgeId"`
	ModuleID string    `json:"moduleId"`
	EarnedAt time.Time `json:"earnedAt"`
}
