package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"training-quiz-service/internal/badges"
	"training-quiz-service/internal/domain"
	"training-quiz-service/internal/progress"
	"training-quiz-service/internal/random"
	"training-quiz-service/internal/scoring"
	"training-quiz-service/internal/timer"
)

// SessionRepository abstracts where live quiz sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	List() []*Session
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, moduleID string) (domain.ModuleQuiz, error)
}

// ModuleLister lists the module catalog.
type ModuleLister interface {
	ListModules(ctx context.Context) ([]domain.ModuleSummary, error)
}

// ProgressStore reads and updates durable per-user progress.
type ProgressStore interface {
	Load(ctx context.Context, userID string) domain.UserProgress
	Update(ctx context.Context, userID string, fn func(domain.UserProgress) (domain.UserProgress, error)) (domain.UserProgress, error)
	RecordSection(ctx context.Context, userID, moduleID string, section int, completed bool) (domain.UserProgress, error)
}

// EventPublisher announces persisted results. Failures are logged, never
// returned to the learner.
type EventPublisher interface {
	PublishQuizCompleted(ctx context.Context, event domain.QuizCompletedEvent) error
	PublishBadgeEarned(ctx context.Context, event domain.BadgeEarnedEvent) error
}

// Metrics records session lifecycle counters.
type Metrics interface {
	SessionStarted(moduleID string)
	SessionFinalized(result domain.QuizResult)
	PersistFailed(moduleID string)
	BadgesAwarded(badgeIDs []string)
}

const (
	DefaultFetchTimeout     = 5 * time.Second
	DefaultPersistTimeout   = 5 * time.Second
	DefaultSessionTimeLimit = 30 * time.Minute
)

// QuizService is the quiz session controller.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	progress ProgressStore
	scorer   *scoring.Engine
	badges   *badges.Engine

	modules ModuleLister
	events  EventPublisher
	metrics Metrics
	random  random.Source
	now     func() time.Time

	fetchTimeout     time.Duration
	persistTimeout   time.Duration
	defaultTimeLimit time.Duration
	timerOptions     []timer.Option
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithModuleLister enables PopularModules.
func WithModuleLister(modules ModuleLister) Option {
	return func(s *QuizService) { s.modules = modules }
}

// WithEvents publishes completion and badge events.
func WithEvents(events EventPublisher) Option {
	return func(s *QuizService) { s.events = events }
}

// WithMetrics records lifecycle counters.
func WithMetrics(m Metrics) Option {
	return func(s *QuizService) { s.metrics = m }
}

// WithRandom replaces the shuffling source, for deterministic tests.
func WithRandom(src random.Source) Option {
	return func(s *QuizService) { s.random = src }
}

// WithClock replaces time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithTimeouts bounds content fetches and progress persistence.
func WithTimeouts(fetch, persist time.Duration) Option {
	return func(s *QuizService) {
		if fetch > 0 {
			s.fetchTimeout = fetch
		}
		if persist > 0 {
			s.persistTimeout = persist
		}
	}
}

// WithDefaultTimeLimit applies to content that sets no time limit.
func WithDefaultTimeLimit(d time.Duration) Option {
	return func(s *QuizService) {
		if d > 0 {
			s.defaultTimeLimit = d
		}
	}
}

// WithTimerOptions is passed to every session timer.
func WithTimerOptions(opts ...timer.Option) Option {
	return func(s *QuizService) { s.timerOptions = append(s.timerOptions, opts...) }
}

func NewQuizService(sessions SessionRepository, quizzes QuizRepository, store ProgressStore, scorer *scoring.Engine, badgeEngine *badges.Engine, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:         sessions,
		quizzes:          quizzes,
		progress:         store,
		scorer:           scorer,
		badges:           badgeEngine,
		metrics:          nopMetrics{},
		random:           random.NewRandomizer(0),
		now:              time.Now,
		fetchTimeout:     DefaultFetchTimeout,
		persistTimeout:   DefaultPersistTimeout,
		defaultTimeLimit: DefaultSessionTimeLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession loads a module's quiz, shuffles it once and parks the new
// session in Intro. Nothing is stored when content is missing or malformed.
func (s *QuizService) StartSession(ctx context.Context, userID, moduleID string) (domain.SessionView, error) {
	if userID == "" || moduleID == "" {
		return domain.SessionView{}, fmt.Errorf("%w: user and module ids are required", domain.ErrValidation)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	quiz, err := s.quizzes.GetQuiz(fetchCtx, moduleID)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrContentNotFound) {
			return domain.SessionView{}, err
		}
		return domain.SessionView{}, fmt.Errorf("%w: module %s: %v", domain.ErrUnavailable, moduleID, err)
	}
	if len(quiz.Questions) == 0 {
		return domain.SessionView{}, fmt.Errorf("%w: module %s has no questions", domain.ErrContentNotFound, moduleID)
	}
	if quiz.ModuleID == "" {
		quiz.ModuleID = moduleID
	}
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.SessionView{}, err
	}

	prior := s.progress.Load(ctx, userID)
	previousBest := prior.Modules[moduleID].BestScore

	limit := time.Duration(quiz.TimeLimitSeconds) * time.Second
	if limit <= 0 {
		limit = s.defaultTimeLimit
	}

	session := newSession(uuid.NewString(), userID, s.shuffle(quiz), limit, previousBest, s.now)
	opts := append([]timer.Option{
		timer.WithClock(s.now),
		timer.OnTick(func(time.Duration) { session.tick() }),
		timer.OnExpire(func() { s.expire(session) }),
	}, s.timerOptions...)
	session.timer = timer.New(limit, opts...)

	s.sessions.Put(session)
	s.metrics.SessionStarted(moduleID)
	return session.View(), nil
}

// Begin moves an Intro session to InProgress and starts its timer.
func (s *QuizService) Begin(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.begin()
}

// Answer records (or replaces) the answer to one question.
func (s *QuizService) Answer(_ context.Context, sessionID string, submission domain.AnswerSubmission) (domain.SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.answer(submission)
}

// Navigate moves the current question pointer.
func (s *QuizService) Navigate(_ context.Context, sessionID string, position int) (domain.SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.navigate(position)
}

// Submit finalizes an InProgress session. On a storage failure the scored
// result is still returned alongside an ErrStorage error and the session
// waits in Error for RetryPersist.
func (s *QuizService) Submit(ctx context.Context, sessionID string) (domain.QuizResult, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if err := session.enterSubmitting(); err != nil {
		return domain.QuizResult{}, err
	}
	return s.finalize(ctx, session, false)
}

// RetryPersist reruns only the persistence step of a session in Error.
func (s *QuizService) RetryPersist(ctx context.Context, sessionID string) (domain.QuizResult, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	result, err := session.enterRetry()
	if err != nil {
		return domain.QuizResult{}, err
	}
	return s.persist(ctx, session, result)
}

// Abandon stops the session and drops it without writing progress.
func (s *QuizService) Abandon(_ context.Context, sessionID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if err := session.abandon(); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}

// Session returns a snapshot of a live or finalized session.
func (s *QuizService) Session(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.View(), nil
}

// Subscribe returns a channel that receives session events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionEvent, func(), error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Progress returns the user's progress record; it never fails.
func (s *QuizService) Progress(ctx context.Context, userID string) domain.UserProgress {
	return s.progress.Load(ctx, userID)
}

// RecordSection stores content-section progress outside any quiz session.
func (s *QuizService) RecordSection(ctx context.Context, userID, moduleID string, section int, completed bool) (domain.UserProgress, error) {
	if userID == "" {
		return domain.UserProgress{}, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.progress.RecordSection(ctx, userID, moduleID, section, completed)
}

// Badges lists the badge catalog.
func (s *QuizService) Badges() []domain.Badge {
	return s.badges.Catalog().List()
}

// PopularModules samples up to n distinct modules from the catalog.
func (s *QuizService) PopularModules(ctx context.Context, n int) ([]domain.ModuleSummary, error) {
	if s.modules == nil {
		return []domain.ModuleSummary{}, nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	modules, err := s.modules.ListModules(fetchCtx)
	if err != nil {
		return nil, err
	}
	return random.RandomElements(s.random, modules, n), nil
}

// Sweep drops Intro sessions idle longer than introTTL and finalized sessions
// older than retention. It returns the number dropped.
func (s *QuizService) Sweep(introTTL, retention time.Duration) int {
	now := s.now()
	dropped := 0
	for _, session := range s.sessions.List() {
		if !session.stale(now, introTTL, retention) {
			continue
		}
		session.close()
		s.sessions.Delete(session.ID())
		dropped++
	}
	return dropped
}

func (s *QuizService) session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return session, nil
}

// shuffle permutes questions and each question's options exactly once.
// Correctness travels with each option, so no answer key remapping is needed.
func (s *QuizService) shuffle(quiz domain.ModuleQuiz) domain.ModuleQuiz {
	questions := random.Shuffle(s.random, quiz.Questions)
	for i := range questions {
		if len(questions[i].Options) > 1 {
			questions[i].Options = random.Shuffle(s.random, questions[i].Options)
		}
	}
	quiz.Questions = questions
	return quiz
}

// expire is the timer's path into finalization. A session already past
// InProgress has been submitted, so the trigger is dropped.
func (s *QuizService) expire(session *Session) {
	if err := session.enterSubmitting(); err != nil {
		return
	}
	if _, err := s.finalize(context.Background(), session, true); err != nil {
		log.Printf("auto-submit of session %s failed: %v", session.ID(), err)
	}
}

// finalize scores whatever answers exist and persists the result. The caller
// must have moved the session to Submitting.
func (s *QuizService) finalize(ctx context.Context, session *Session, expired bool) (domain.QuizResult, error) {
	questions, answers, startedAt := session.scoringInput()
	score := s.scorer.Score(questions, answers)

	now := s.now()
	spent := now.Sub(startedAt)
	if limit := session.timeLimit; spent > limit {
		spent = limit
	}
	passing := session.quiz.PassingScorePercent
	if passing <= 0 {
		passing = domain.DefaultPassingScorePercent
	}

	result := domain.QuizResult{
		SessionID:   session.ID(),
		ModuleID:    session.ModuleID(),
		Completed:   true,
		Passed:      score.Percentage >= passing,
		Expired:     expired,
		Score:       score.Points,
		Percentage:  score.Percentage,
		Correct:     score.Correct,
		Total:       score.Total,
		TimeSpent:   spent,
		Badges:      []string{},
		CompletedAt: now,
	}
	session.scored(result)
	s.metrics.SessionFinalized(result)
	return s.persist(ctx, session, result)
}

// persist runs the strict read, badge evaluation, merge and write as one
// progress update. A result the record already holds is a replay of a write
// that committed before reporting failure: its badges are recovered from the
// record and nothing is announced again.
func (s *QuizService) persist(ctx context.Context, session *Session, result domain.QuizResult) (domain.QuizResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	var (
		earned []domain.Badge
		kept   []string
		replay bool
	)
	updated, err := s.progress.Update(ctx, session.UserID(), func(current domain.UserProgress) (domain.UserProgress, error) {
		earned, kept = nil, nil
		replay = progress.Merged(current, result.SessionID)
		if replay {
			kept = earnedWith(current, result)
			return current, nil
		}
		earned = s.badges.Evaluate(result, current, result.ModuleID, result.CompletedAt)
		withBadges := result
		withBadges.Badges = badges.IDs(earned)
		return progress.Merge(current, session.UserID(), result.ModuleID, withBadges, earned, result.CompletedAt), nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrStorage) {
			err = fmt.Errorf("%w: %v", domain.ErrStorage, err)
		}
		session.fail(result, err)
		s.metrics.PersistFailed(result.ModuleID)
		return result, err
	}

	if replay {
		result.Badges = kept
		session.complete(result)
		return result, nil
	}
	result.Badges = badges.IDs(earned)
	session.complete(result)
	s.metrics.BadgesAwarded(result.Badges)
	s.publish(session.UserID(), result, earned, updated)
	return result, nil
}

// earnedWith lists the badges a stored record credits to result.
func earnedWith(p domain.UserProgress, result domain.QuizResult) []string {
	ids := []string{}
	for _, b := range p.Badges {
		if b.ModuleID == result.ModuleID && b.EarnedAt.Equal(result.CompletedAt) {
			ids = append(ids, b.BadgeID)
		}
	}
	return ids
}

func (s *QuizService) publish(userID string, result domain.QuizResult, earned []domain.Badge, updated domain.UserProgress) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	completed := domain.QuizCompletedEvent{UserID: userID, Result: result, TotalScore: updated.TotalScore, Level: updated.Level}
	if err := s.events.PublishQuizCompleted(ctx, completed); err != nil {
		log.Printf("publish quiz.completed for session %s: %v", result.SessionID, err)
	}
	for _, badge := range earned {
		event := domain.BadgeEarnedEvent{UserID: userID, BadgeID: badge.ID, ModuleID: result.ModuleID, EarnedAt: result.CompletedAt}
		if err := s.events.PublishBadgeEarned(ctx, event); err != nil {
			log.Printf("publish badge.earned %s for %s: %v", badge.ID, userID, err)
		}
	}
}

type nopMetrics struct{}

func (nopMetrics) SessionStarted(string) {}
func (nopMetrics) SessionFinalized(domain.QuizResult) {}
func (nopMetrics) PersistFailed(string) {}
func (nopMetrics) BadgesAwarded([]string) {}
