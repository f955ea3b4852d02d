package app

import (
	"fmt"
	"sync"
	"time"

	"training-quiz-service/internal/domain"
	"training-quiz-service/internal/timer"
)

// Session is one learner's attempt at a module quiz. All mutable fields are
// guarded by mu; user actions and timer callbacks are serialised through it.
type Session struct {
	id        string
	userID    string
	moduleID  string
	createdAt time.Time
	now       func() time.Time

	mu           sync.Mutex
	state        domain.SessionState
	quiz         domain.ModuleQuiz // questions and options already shuffled
	answers      map[string]domain.Answer
	displayedAt  map[string]time.Time
	position     int
	startedAt    time.Time
	finishedAt   time.Time
	timeLimit    time.Duration
	timer        *timer.Timer
	previousBest int
	result       *domain.QuizResult
	failure      string
	subscribers  map[chan domain.SessionEvent]struct{}
}

func newSession(id, userID string, quiz domain.ModuleQuiz, timeLimit time.Duration, previousBest int, now func() time.Time) *Session {
	return &Session{
		id:           id,
		userID:       userID,
		moduleID:     quiz.ModuleID,
		createdAt:    now(),
		now:          now,
		state:        domain.StateIntro,
		quiz:         quiz,
		answers:      make(map[string]domain.Answer),
		displayedAt:  make(map[string]time.Time),
		timeLimit:    timeLimit,
		previousBest: previousBest,
		subscribers:  make(map[chan domain.SessionEvent]struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the learner the session belongs to.
func (s *Session) UserID() string { return s.userID }

// ModuleID returns the module being assessed.
func (s *Session) ModuleID() string { return s.moduleID }

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns a read-only snapshot.
func (s *Session) View() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) begin() (domain.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateIntro {
		return domain.SessionView{}, domain.NewStateError("begin", s.state)
	}
	now := s.now()
	s.state = domain.StateInProgress
	s.startedAt = now
	s.position = 0
	s.displayedAt[s.quiz.Questions[0].ID] = now
	s.timer.Start()
	return s.broadcastLocked(domain.EventState), nil
}

func (s *Session) answer(sub domain.AnswerSubmission) (domain.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateInProgress {
		return domain.SessionView{}, domain.NewStateError("answer", s.state)
	}
	q, ok := s.questionLocked(sub.QuestionID)
	if !ok {
		return domain.SessionView{}, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, sub.QuestionID)
	}
	if err := checkSelection(q, sub); err != nil {
		return domain.SessionView{}, err
	}

	now := s.now()
	shown, ok := s.displayedAt[q.ID]
	if !ok {
		shown = s.startedAt
	}
	s.answers[q.ID] = domain.Answer{
		QuestionID:   q.ID,
		OptionIDs:    append([]string(nil), sub.OptionIDs...),
		Value:        copyBool(sub.Value),
		TimeToAnswer: now.Sub(shown),
		SubmittedAt:  now,
	}
	return s.broadcastLocked(domain.EventState), nil
}

func (s *Session) navigate(position int) (domain.SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateInProgress {
		return domain.SessionView{}, domain.NewStateError("navigate", s.state)
	}
	if position < 0 || position >= len(s.quiz.Questions) {
		return domain.SessionView{}, fmt.Errorf("%w: position %d outside [0, %d]", domain.ErrValidation, position, len(s.quiz.Questions)-1)
	}
	s.position = position
	s.displayedAt[s.quiz.Questions[position].ID] = s.now()
	return s.broadcastLocked(domain.EventState), nil
}

// enterSubmitting is the single gate into finalization. Only the caller that
// moves the session out of InProgress may score it.
func (s *Session) enterSubmitting() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateInProgress {
		return domain.NewStateError("submit", s.state)
	}
	s.timer.Stop()
	s.state = domain.StateSubmitting
	s.broadcastLocked(domain.EventState)
	return nil
}

// enterRetry moves an Error session back to Submitting for another persist.
func (s *Session) enterRetry() (domain.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateFailed || s.result == nil {
		return domain.QuizResult{}, domain.NewStateError("retry", s.state)
	}
	s.state = domain.StateSubmitting
	s.failure = ""
	s.broadcastLocked(domain.EventState)
	return *s.result, nil
}

// scoringInput returns the questions and a copy of the captured answers.
func (s *Session) scoringInput() ([]domain.Question, map[string]domain.Answer, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make(map[string]domain.Answer, len(s.answers))
	for id, a := range s.answers {
		answers[id] = a
	}
	return s.quiz.Questions, answers, s.startedAt
}

func (s *Session) scored(result domain.QuizResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &result
}

func (s *Session) complete(result domain.QuizResult) domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.StateResults
	s.result = &result
	s.finishedAt = s.now()
	return s.broadcastLocked(domain.EventResult)
}

func (s *Session) fail(result domain.QuizResult, err error) domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.StateFailed
	s.result = &result
	s.failure = err.Error()
	s.finishedAt = s.now()
	return s.broadcastLocked(domain.EventError)
}

func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateInProgress {
		s.broadcastLocked(domain.EventTick)
	}
}

// abandon ends the session without a result. It holds mu across the state
// check and the transition, so a timer expiry racing it finds the session
// outside InProgress and is dropped.
func (s *Session) abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.StateSubmitting {
		return domain.NewStateError("abandon", s.state)
	}
	s.state = domain.StateAbandoned
	s.finishedAt = s.now()
	s.closeLocked()
	return nil
}

// close stops the timer and detaches every subscriber.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	s.timer.Stop()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// stale reports whether the janitor may drop the session at now.
func (s *Session) stale(now time.Time, introTTL, retention time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case domain.StateIntro:
		return introTTL > 0 && now.Sub(s.createdAt) > introTTL
	case domain.StateResults, domain.StateFailed:
		return retention > 0 && now.Sub(s.finishedAt) > retention
	default:
		return false
	}
}

func (s *Session) subscribe() (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := domain.SessionEvent{Type: domain.EventState, Session: s.viewLocked()}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(kind domain.SessionEventType) domain.SessionView {
	view := s.viewLocked()
	event := domain.SessionEvent{Type: kind, Session: view}
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// slow subscriber: drop its oldest event instead of blocking
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return view
}

func (s *Session) viewLocked() domain.SessionView {
	questions := make([]domain.PublicQuestion, 0, len(s.quiz.Questions))
	for _, q := range s.quiz.Questions {
		questions = append(questions, q.Public())
	}
	answers := make(map[string]domain.Answer, len(s.answers))
	for id, a := range s.answers {
		answers[id] = a
	}
	view := domain.SessionView{
		ID:           s.id,
		UserID:       s.userID,
		ModuleID:     s.moduleID,
		State:        s.state,
		Questions:    questions,
		Answers:      answers,
		Position:     s.position,
		TimeLimit:    s.timeLimit,
		Remaining:    s.timer.Remaining(),
		PreviousBest: s.previousBest,
		CreatedAt:    s.createdAt,
		StartedAt:    s.startedAt,
		Error:        s.failure,
	}
	if s.result != nil {
		result := *s.result
		result.Badges = append([]string(nil), s.result.Badges...)
		view.Result = &result
	}
	return view
}

func (s *Session) questionLocked(id string) (domain.Question, bool) {
	for _, q := range s.quiz.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

// checkSelection validates that a submission has the shape its question kind
// expects and only names options the question offers.
func checkSelection(q domain.Question, sub domain.AnswerSubmission) error {
	switch q.EffectiveKind() {
	case domain.KindBoolean:
		if sub.Value == nil {
			return fmt.Errorf("%w: question %s expects a true/false value", domain.ErrValidation, q.ID)
		}
		return nil
	case domain.KindSingle:
		if len(sub.OptionIDs) != 1 {
			return fmt.Errorf("%w: question %s expects exactly one option", domain.ErrValidation, q.ID)
		}
	case domain.KindMulti:
		if len(sub.OptionIDs) == 0 {
			return fmt.Errorf("%w: question %s expects at least one option", domain.ErrValidation, q.ID)
		}
	}

	seen := make(map[string]struct{}, len(sub.OptionIDs))
	for _, id := range sub.OptionIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: option %s selected twice", domain.ErrValidation, id)
		}
		seen[id] = struct{}{}
		if !hasOption(q, id) {
			return fmt.Errorf("%w: %s on question %s", domain.ErrOptionNotFound, id, q.ID)
		}
	}
	return nil
}

func hasOption(q domain.Question, id string) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
